// Package tasks provides the durable state machine for asynchronous review
// jobs: pending -> running -> completed|failed, with clamped progress
// updates and terminal states that are never overwritten.
package tasks
