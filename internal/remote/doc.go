// Package remote talks to the venue sync endpoint over HTTP.
//
// Three calls are exposed: a HEAD connectivity check, a single-venue push and
// a batched push. Each call runs under its own timeout. Only 200 and 201 count
// as success; everything else is classified with the services error markers
// (no-connection, timeout, server-error, unknown) so callers can decide
// whether a failure is worth retrying.
package remote
