// Package logging provides structured logging for the MELCloud bridge.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Rotating file output via lumberjack
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, file
//	  file:
//	    path: "./logs/melbridge.log"
//	    max_size: 10     # megabytes
//	    max_backups: 5
//	    max_age: 30      # days
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	defer logger.Close()
//	logger.Info("starting bridge", "accounts", len(cfg.Accounts))
//
// Never log MELCloud passwords or context keys.
package logging
