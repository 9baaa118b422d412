// Package queue implements the durable retry queue engine shared by every
// domain that needs at-least-once execution of local operations.
//
// An Engine owns an ordered list of entries, persists the full snapshot after
// every state transition through a Store, and drains pending entries one at a
// time on a background worker. Each entry carries an attempt counter that is
// persisted before the executor runs, so a crash mid-attempt is replayed on the
// next start rather than lost. Failed attempts are rescheduled with exponential
// backoff by arming a timer; nothing sleeps while holding a lock and other
// entries keep flowing while one waits.
//
// Entries end Succeeded or Failed. Failed entries stay visible until cleared,
// retried, or purged by the retention window on load.
package queue
