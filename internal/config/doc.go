// Package config loads, normalizes, and validates drq configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and applies DRQ_* environment overrides
// (optionally sourced from a .env file). The Config type centralizes every
// knob the daemon and CLI need: queue retry policy, storage backend, remote
// sync endpoint, playback catalog, and API bind address.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
