// Package config loads the gavel configuration, merging defaults, the YAML
// config file, GAVEL_* environment variables, and CLI overrides in that order.
package config
