// Package config resolves and validates the configuration of an elapsed run.
//
// # Configuration Precedence
//
// Configuration values are resolved in the following order (highest to lowest priority):
//
//  1. CLI flags (--total, --tty, --split-stderr, --format, --log-file, --log-level)
//  2. Environment variables (ELAPSED_TOTAL, ELAPSED_FORMAT, ELAPSED_LOG_FILE, ELAPSED_LOG_LEVEL)
//  3. YAML config file (--config, .elapsed.yaml in the working directory, or
//     $XDG_CONFIG_HOME/elapsed/config.yaml falling back to ~/.config/elapsed/config.yaml)
//  4. Hardcoded defaults
//
// When a higher-priority source sets a value, it overrides any lower-priority values.
// Config.Origins records which source won for each setting.
//
// # Config File
//
// The file uses the same names as the flags, with underscores:
//
//	total: true
//	tty: true
//	split_stderr: false
//	format: "%H:%M:%S"
//	log_file: /tmp/elapsed.log
//	log_level: info
//
// Unknown keys and malformed YAML are usage errors.
//
// # Validation
//
// A command is required. --split-stderr only makes sense together with --tty,
// and neither is available on platforms without pseudo-terminals. The format
// must parse (see package durfmt).
package config
