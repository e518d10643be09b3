// Package llm provides the completion-service client: an OpenAI-compatible
// chat endpoint with retry/backoff, typed rate-limit and auth errors, and a
// fallback-model wrapper.
package llm
