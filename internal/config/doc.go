// Package config loads, normalizes, and validates reelsmith configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PEXELS_API_KEY and OPENROUTER_API_KEY. The Config type centralizes every
// knob the pipeline and CLI need: clip timing constraints, media selection
// bounds, ranking retries, and render settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
