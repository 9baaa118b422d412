// Package services defines shared utilities consumed by the queue executors and
// the remote sync integration.
//
// Key responsibilities:
//   - Context helpers that stamp queue names, entry IDs, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that tag failures with a
//     category (no-connection, timeout, server-error, resource-corrupt,
//     forced-failure, not_found, unknown) so the retry scheduler and API can
//     classify them uniformly.
//
// Use these helpers when wiring new executors so operational behaviour (error
// handling, observability, retries) stays uniform across queues.
package services
