// Package metrics tracks publish outcomes: rolling success rate and latency
// over a bounded window, hourly quota consumption, and a derived health
// status for operators.
//
// All state lives behind a single lock so concurrent recorders cannot lose
// updates or race the quota window's check-then-increment. When an OTel
// meter is provided, each attempt is also emitted as a counter increment and
// a latency histogram sample.
package metrics
