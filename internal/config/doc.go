// Package config loads, normalizes, and validates filewell configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FILEWELL_ENGINE_URL. The Config type centralizes the cache/output
// directories, the shared encoder engine settings, and image encode presets.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
