package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Collaborator modes.
const (
	ModeDirect = "direct"
	ModeRemote = "remote"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Logging      LogConfig
	RateLimit    RateLimitConfig
	Compiler     CompilerConfig
	Knowledge    KnowledgeConfig
	Collaborator CollaboratorConfig
	Storage      StorageConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// CompilerConfig holds graph compiler behaviour.
type CompilerConfig struct {
	BlueprintName    string `envconfig:"BLUEPRINT_NAME" default:"generated_blueprint"`
	AutoWire         bool   `envconfig:"RESOLVER_AUTOWIRE" default:"true"`
	OutputStrictness string `envconfig:"VALIDATOR_OUTPUT_STRICTNESS" default:"structural"`
	MaxRounds        int    `envconfig:"SESSION_MAX_ROUNDS" default:"50"`
}

// KnowledgeConfig points at extra catalogue files merged over the built-in catalogue.
type KnowledgeConfig struct {
	Path    string `envconfig:"KNOWLEDGE_PATH" default:""`
	Pattern string `envconfig:"KNOWLEDGE_PATTERN" default:"**/*.{yaml,yml,toml}"`
}

// CollaboratorConfig selects and configures the text-understanding collaborator.
type CollaboratorConfig struct {
	Mode    string        `envconfig:"COLLABORATOR_MODE" default:"direct"`
	URL     string        `envconfig:"COLLABORATOR_URL" default:"http://localhost:8090"`
	Token   string        `envconfig:"COLLABORATOR_TOKEN" default:""`
	Timeout time.Duration `envconfig:"COLLABORATOR_TIMEOUT" default:"30s"`
	RPS     float64       `envconfig:"COLLABORATOR_RPS" default:"5"`
}

// StorageConfig holds session snapshot storage configuration.
type StorageConfig struct {
	SnapshotDir string `envconfig:"SNAPSHOT_DIR" default:""`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Collaborator.Mode {
	case ModeDirect, ModeRemote:
	default:
		return fmt.Errorf("invalid COLLABORATOR_MODE %q", c.Collaborator.Mode)
	}
	switch c.Compiler.OutputStrictness {
	case "structural", "outputs":
	default:
		return fmt.Errorf("invalid VALIDATOR_OUTPUT_STRICTNESS %q", c.Compiler.OutputStrictness)
	}
	if c.Compiler.MaxRounds <= 0 {
		return fmt.Errorf("SESSION_MAX_ROUNDS must be positive, got %d", c.Compiler.MaxRounds)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Compiler: CompilerConfig{
			BlueprintName:    "generated_blueprint",
			AutoWire:         true,
			OutputStrictness: "structural",
			MaxRounds:        50,
		},
		Knowledge: KnowledgeConfig{
			Pattern: "**/*.{yaml,yml,toml}",
		},
		Collaborator: CollaboratorConfig{
			Mode:    ModeDirect,
			URL:     "http://localhost:8090",
			Timeout: 30 * time.Second,
			RPS:     5,
		},
	}
}
