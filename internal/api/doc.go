// Package api defines wire-format types, converters, and the HTTP client for
// the drq daemon API. It translates queue entries, songs, venues, and sweep
// results into transport-friendly DTOs so the CLI and other consumers can
// render them without coupling to internal types.
//
// # Key Types
//
// Entry: transport representation of a music queue entry, with the song label
// resolved by the daemon.
//
// Venue and Sweep: saved locations and the outcome of a reconciliation pass.
//
// DaemonStatus: running state, queue counts, and sync summary.
//
// # Converters
//
// FromEntry / FromEntries: queue.Entry[string] -> Entry.
//
// FromVenue / FromVenues, FromSweep, FromStats.
//
// # Client
//
// Client wraps the daemon HTTP API. Connection failures are reported as
// ErrDaemonUnavailable; non-2xx responses decode into *Error.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Statuses and outcomes are lowercase strings.
// Timestamps use RFC3339 with milliseconds.
package api
