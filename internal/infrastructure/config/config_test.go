package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	// Compiler config
	assert.Equal(t, "generated_blueprint", cfg.Compiler.BlueprintName)
	assert.True(t, cfg.Compiler.AutoWire)
	assert.Equal(t, "structural", cfg.Compiler.OutputStrictness)
	assert.Equal(t, 50, cfg.Compiler.MaxRounds)

	// Collaborator config
	assert.Equal(t, ModeDirect, cfg.Collaborator.Mode)
	assert.Equal(t, 30*time.Second, cfg.Collaborator.Timeout)

	require.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                        "9000",
		"HOST":                        "127.0.0.1",
		"LOG_LEVEL":                   "debug",
		"LOG_DEV":                     "true",
		"RATE_LIMIT_RPS":              "500",
		"RATE_LIMIT_BURST":            "1000",
		"RATE_LIMIT_ENABLED":          "false",
		"BLUEPRINT_NAME":              "team_env",
		"RESOLVER_AUTOWIRE":           "false",
		"VALIDATOR_OUTPUT_STRICTNESS": "outputs",
		"SESSION_MAX_ROUNDS":          "7",
		"KNOWLEDGE_PATH":              "/etc/envforge/catalogue",
		"COLLABORATOR_MODE":           "remote",
		"COLLABORATOR_URL":            "http://nlu:9000",
		"COLLABORATOR_TOKEN":          "secret",
		"COLLABORATOR_TIMEOUT":        "5s",
		"COLLABORATOR_RPS":            "2.5",
		"SNAPSHOT_DIR":                "/var/lib/envforge",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "team_env", cfg.Compiler.BlueprintName)
	assert.False(t, cfg.Compiler.AutoWire)
	assert.Equal(t, "outputs", cfg.Compiler.OutputStrictness)
	assert.Equal(t, 7, cfg.Compiler.MaxRounds)
	assert.Equal(t, "/etc/envforge/catalogue", cfg.Knowledge.Path)
	assert.Equal(t, ModeRemote, cfg.Collaborator.Mode)
	assert.Equal(t, "http://nlu:9000", cfg.Collaborator.URL)
	assert.Equal(t, "secret", cfg.Collaborator.Token)
	assert.Equal(t, 5*time.Second, cfg.Collaborator.Timeout)
	assert.InDelta(t, 2.5, cfg.Collaborator.RPS, 0.0001)
	assert.Equal(t, "/var/lib/envforge", cfg.Storage.SnapshotDir)
}

func TestServerConfig(t *testing.T) {
	tests := []struct {
		name     string
		port     string
		host     string
		wantPort string
		wantHost string
	}{
		{name: "default values", wantPort: "8000", wantHost: "0.0.0.0"},
		{name: "custom port", port: "9000", wantPort: "9000", wantHost: "0.0.0.0"},
		{name: "custom host", host: "localhost", wantPort: "8000", wantHost: "localhost"},
		{name: "custom port and host", port: "3000", host: "127.0.0.1", wantPort: "3000", wantHost: "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.port != "" {
				t.Setenv("PORT", tt.port)
			}
			if tt.host != "" {
				t.Setenv("HOST", tt.host)
			}

			cfg := LoadOrDefault()

			assert.Equal(t, tt.wantPort, cfg.Server.Port)
			assert.Equal(t, tt.wantHost, cfg.Server.Host)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "default is valid", mutate: func(*Config) {}},
		{
			name:    "unknown collaborator mode",
			mutate:  func(c *Config) { c.Collaborator.Mode = "llm" },
			wantErr: "COLLABORATOR_MODE",
		},
		{
			name:    "unknown strictness",
			mutate:  func(c *Config) { c.Compiler.OutputStrictness = "strict" },
			wantErr: "VALIDATOR_OUTPUT_STRICTNESS",
		},
		{
			name:    "zero round ceiling",
			mutate:  func(c *Config) { c.Compiler.MaxRounds = 0 },
			wantErr: "SESSION_MAX_ROUNDS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadOrDefaultFallsBackOnInvalid(t *testing.T) {
	t.Setenv("COLLABORATOR_MODE", "llm")
	t.Setenv("PORT", "9999")

	cfg := LoadOrDefault()
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, ModeDirect, cfg.Collaborator.Mode)
}
