// Package config provides 12-factor configuration management for the blueprint compiler.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Compiler: Blueprint name, resolver auto-wiring, validator strictness, round ceiling
//   - Knowledge: Extra catalogue files merged over the built-in catalogue
//   - Collaborator: Direct or remote text-understanding collaborator
//   - Storage: Session snapshot directory
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - BLUEPRINT_NAME, RESOLVER_AUTOWIRE, VALIDATOR_OUTPUT_STRICTNESS, SESSION_MAX_ROUNDS
//   - KNOWLEDGE_PATH, KNOWLEDGE_PATTERN
//   - COLLABORATOR_MODE, COLLABORATOR_URL, COLLABORATOR_TOKEN, COLLABORATOR_TIMEOUT, COLLABORATOR_RPS
//   - SNAPSHOT_DIR
package config
