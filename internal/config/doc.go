// Package config loads, normalizes, and validates SmartCut configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SMARTCUT_LLM_API_KEY. The Config type centralizes every knob the pipeline
// and CLI need: working directories, segmentation and merge tuning, analysis
// batching, the cut profile, and cleanup policy.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
