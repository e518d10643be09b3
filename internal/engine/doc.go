// Package engine orchestrates one review run: duplicate and cache checks,
// historical findings retrieval, diff fetch, budget-constrained file
// selection, concurrent analysis, and persistence of the result. It exposes
// a synchronous RunReview and an asynchronous Submit/Poll pair backed by the
// task store.
package engine
