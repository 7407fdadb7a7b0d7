// Package main is the entry point for the EnvForge blueprint compiler
// server.
//
// The server turns natural-language environment requests into complete,
// validated blueprint documents through a question-and-answer session.
//
// The server provides:
//   - REST API for sessions and stateless graph operations
//   - WebSocket conversation stream
//   - Session snapshots on disk
//   - Prometheus metrics and rate limiting
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8000 -snapshots /var/lib/envforge
//
//	# Remote collaborator
//	./server -collaborator remote -collaborator-url http://nlu:8090
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
