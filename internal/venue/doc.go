// Package venue owns saved venue locations and their synchronization with the
// remote venue service.
//
// A venue is written locally first with synced=false, then pushed immediately
// on a best-effort basis. Anything the immediate push misses is picked up by
// the reconciliation sweep (see internal/reconcile) or by RetryPending. The
// synced flag flips false to true at most once and never reverts.
package venue
