// Package logging provides structured logging for the HubLink daemon.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for normal operation (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 8428)
//	logger.Error("failed to connect", "error", err)
//
// # Security
//
// Never log the hub access token or other secrets in full.
// Use field redaction for sensitive data:
//
//	logger.Info("registering device", "token_prefix", token[:8]+"...")
package logging
