// Package alert delivers rate-limited operator notifications when an
// outbound API keeps failing.
//
// The Notifier sends at most one alert per failing API per cooldown window;
// the cooldown lives in a durable store so restarts do not re-flood the
// channel. Alerting is strictly best-effort: any failure in the webhook send
// or the cooldown store degrades to a false return, never into the caller's
// pipeline.
package alert
