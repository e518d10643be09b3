// Package repair normalizes and best-effort-repairs the semi-structured
// text LLMs return in place of clean JSON. Parse never fails: each tier of
// the repair chain is tried in order, and the worst case is an empty result
// carrying a diagnostic suggestion.
package repair
