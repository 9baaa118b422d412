// Package reconcile pushes unsynced domain records to a remote service in
// bounded batches.
//
// A sweep counts unsynced records, checks connectivity, sends the oldest
// batch in one request and marks it synced only when the whole batch was
// accepted. Sweeps are single-flight per Driver; an overlapping call returns
// a Skipped result instead of waiting. Delivery is at-least-once: a crash
// between a successful send and MarkSynced resends the batch next time.
package reconcile
