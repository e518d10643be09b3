// Package selector decides which changed files enter analysis under a
// per-review spend ceiling. Ignore globs always apply; smart filtering ranks
// the remainder by extension priority and change size, then greedily accepts
// files until the running cost estimate would exceed the ceiling.
package selector
