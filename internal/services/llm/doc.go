// Package llm talks to an OpenAI-compatible backend for the analysis and
// confidence stages.
//
// # Entry Points
//
// NewClient: construct a client from Config (see ConfigFromSettings).
// Client.Describe: send sampled frames to the vision model, receive a
// description and keywords.
// Client.Score: embed a description and its keywords and return their cosine
// similarity in [0, 1].
// Client.Load: verify the configured model is served and return a handle for
// the stage run.
// Client.HealthCheck: verify API key and model availability.
//
// # Errors
//
// Unusable model output and request failures are tagged services.ErrAnalysis
// so the orchestrator fails only the segment at hand. Authentication failures
// are tagged services.ErrConfiguration and a model that cannot be loaded is
// services.ErrResource; both abort the run.
//
// # Retry Behaviour
//
// Transport-level retries (408/429/5xx, connection resets) are delegated to
// the SDK and bounded by WithMaxRetries. Segment-level retries never happen
// inside a run.
package llm
