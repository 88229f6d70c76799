// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session UIDs, stage names, segment UIDs, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that let the orchestrator
//     decide whether a failure belongs to one segment or to the whole video.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
