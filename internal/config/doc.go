// Package config loads, normalizes, and validates wintail configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), and
// reads TOML files. Settings come from --config, $WINTAIL_CONFIG, or
// ~/.config/wintail/config.toml, in that order; a missing file means defaults.
package config
