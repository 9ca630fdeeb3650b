// Package llm provides an OpenAI-compatible chat client (OpenRouter by default).
//
// This package is used by:
//   - Script generation: paragraph text and stock-footage descriptions as JSON
//   - Ranking: the judge that picks the best candidate per media slot
//   - Preflight: HealthCheck verifies the key and model
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive a JSON payload.
// Client.CompleteText: send system/user prompts, receive free text.
// DecodeLLMJSON: decode model output that may be wrapped in code fences.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions and network
// timeouts with exponential backoff (base 1s, max 10s, up to 5 attempts by
// default). Context cancellation aborts retries immediately. BackoffDelay and
// Sleep are exported so other retry loops share the same schedule.
package llm
