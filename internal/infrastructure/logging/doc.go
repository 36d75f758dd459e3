// Package logging provides structured logging for Slate Hub.
//
// It wraps the standard log/slog package so every component logs through
// the same handler with consistent default fields (service, version) and
// a single level/format switch in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Components derive child loggers with With:
//
//	log := logger.With("component", "display")
//	log.Warn("push failed", "layout", name, "error", err)
//
// Never log provider credentials or API tokens.
package logging
