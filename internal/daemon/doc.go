// Package daemon coordinates the long-running drq process.
//
// It wires configuration, durable storage, the music queue engine, the venue
// service, and the reconciliation driver into a single lifecycle with
// flock-based locking to prevent multiple instances. Sweeps are triggered by a
// cron schedule, by network-up netlink events, on startup, and on demand
// through the HTTP API. The daemon also owns metrics exposure and the
// notifications emitted when entries or sweeps fail.
//
// Keep orchestration logic here: queue semantics live in internal/queue and
// sweep semantics in internal/reconcile, while the daemon focuses on startup,
// shutdown, and high level coordination.
package daemon
