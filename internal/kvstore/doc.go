// Package kvstore provides a durable key-value store with per-entry TTL,
// backed by SQLite. It is the storage layer under the review cache and the
// task store.
package kvstore
