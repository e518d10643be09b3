// Package cache implements the review cache: a content-addressed cache of
// completed reviews keyed by commit, a duplicate-submission short-circuit
// keyed by branch identity, and a historical findings ledger keyed by
// logical task.
//
// Every operation degrades to a miss or a no-op when the backing store is
// unavailable. A broken cache costs deduplication and historical continuity,
// never a failed review.
package cache
