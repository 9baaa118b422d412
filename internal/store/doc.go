// Package store provides the durable backends behind drq queues and the venue
// table.
//
// DB wraps a SQLite database (modernc.org/sqlite, WAL mode) holding one JSON
// snapshot per queue plus the venues table. FileBackend, RedisBackend, and
// MemoryBackend satisfy the same queue.Backend contract for deployments that
// prefer plain files, a shared Redis, or no persistence at all. OpenBackend
// selects one from configuration.
//
// The database is versioned through schema_version; a mismatch fails Open with
// ErrSchemaMismatch rather than migrating in place.
package store
