// Package config loads, normalizes, and validates timeclock configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts),
// reads TOML files, and honours environment overrides for the backend
// credentials, including values from an optional .env file next to the
// config. Always obtain settings through this package so downstream code
// receives sanitized paths, parsed hour boundaries, and clear validation
// errors.
package config
