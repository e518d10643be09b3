// Gavel orchestrates LLM code reviews of merge requests.
//
// It fetches the diff between two branches from a git host, selects the
// files worth analyzing under a cost budget, reviews them concurrently,
// and caches results so repeated submissions replay instead of re-running.
//
// Usage:
//
//	gavel review --project group/proj --source feature --target main
//	gavel serve --listen 127.0.0.1:8700   # run the HTTP API
//	gavel tasks list                      # inspect async review tasks
//	gavel config init                     # create a default config file
//
// See https://github.com/gavelhq/gavel for full documentation.
package main
