// Package notifications delivers drq events via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and degrades to a no-op when no topic is set. Events cover
// terminal queue failures, failed sync sweeps and a manual test message.
// Per-event toggles in [notifications] suppress noisy events without
// touching callers.
package notifications
