// Package logging provides structured logging for the notice client.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the daemon and CLI.
//
// # Features
//
//   - Text output by default (human-readable, desktop use)
//   - JSON output for machine parsing
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # text, json
//	  output: "stderr"   # stderr, stdout
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("connecting", "server", endpoint.String())
//	logger.Error("subscribe failed", "error", err)
//
// # Security
//
// Never log auth tokens or API secrets. The MQTT token doubles as the broker
// username, so log only whether one is set.
package logging
