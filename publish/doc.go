// Package publish implements the two-phase container flow for posting media
// to the social network: create a container, poll its status until it
// finishes, then publish it.
//
// The Client speaks the wire protocol over httpx; the Publisher drives the
// state machine and, like the retry executor underneath it, reports every
// outcome as a PublishResult value. Provider-reported domain errors become
// typed APIError values, and a deny-list classifier decides whether a failed
// publish is worth retrying at all.
//
// Caption preparation lives here too: captions are truncated so the hashtag
// suffix always fits inside the provider's character limit.
package publish
