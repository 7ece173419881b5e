// Package logging provides structured logging for the bridge.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same handler, level and default fields.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error (LOG_LEVEL)
//	  format: "text"     # json, text (LOG_FORMAT)
//	  output: "stdout"   # stdout, stderr
//
// Discarded payloads are logged at warn (undecodable bytes) or debug
// (unparseable text), so running at debug shows every rejected message.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("MQTT connected", "broker", addr)
//	logger.Error("destination write failed", "destination", name, "error", err)
package logging
