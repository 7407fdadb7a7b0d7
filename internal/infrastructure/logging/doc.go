// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components receive plain *zap.Logger values; a nil logger is replaced by
// a no-op logger via OrNop, so every constructor accepts nil.
//
// Example Usage:
//
//	logger, err := logging.New(logging.DefaultConfig())
//	compilerLog := logging.Component(logger.Logger, "compiler")
//	logging.Session(compilerLog, id).Warn("collaborator failed", zap.Error(err))
package logging
