// Package opqueue persists operations that exhausted their retry budget so
// they can be replayed once the upstream recovers.
//
// Records live in a single durable hash keyed by operation id. The Store
// interface abstracts the hash; RedisStore is the production implementation
// and MemoryStore backs tests and single-process deployments. Updates are
// read-modify-write without transactions: one queue owner is expected to
// mutate a given id, and callers needing stronger guarantees coordinate
// externally.
//
// The Replayer drains pending operations with bounded concurrency, taking a
// per-operation lock so two drainers never replay the same id.
package opqueue
