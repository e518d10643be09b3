// Package analyzer fans per-file analysis units out across a bounded worker
// pool and aggregates their findings into one scored result. Individual unit
// failures are isolated: a file that cannot be analyzed is recorded and
// penalized, never fatal to the batch.
package analyzer
