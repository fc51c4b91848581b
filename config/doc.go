// Package config loads and validates the resilience-layer configuration
// from a YAML/TOML/JSON file plus LEGALOPS_* environment variables,
// layered over built-in defaults.
package config
