// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for vigie configuration.
	DefaultConfigDir = ".vigie"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultDatabaseFile is the default SQLite database file name.
	DefaultDatabaseFile = "vigie.db"
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	LLM        LLMConfig        `yaml:"llm,omitempty"`
	Embedder   EmbedderConfig   `yaml:"embedder,omitempty"`
	Qdrant     QdrantConfig     `yaml:"qdrant,omitempty"`
	SQLite     SQLiteConfig     `yaml:"sqlite,omitempty"`
	Search     SearchConfig     `yaml:"search,omitempty"`
	Moderation ModerationConfig `yaml:"moderation,omitempty"`
}

// LLMConfig holds configuration for the classifier model provider.
type LLMConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
}

// EmbedderConfig holds configuration for the embedding provider.
type EmbedderConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
}

// QdrantConfig holds configuration for the optional Qdrant vector index
// used for semantic duplicate hints.
type QdrantConfig struct {
	Enabled    bool   `yaml:"enabled,omitempty"`
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite store.
type SQLiteConfig struct {
	Path string `yaml:"path,omitempty"`
}

// SearchConfig holds configuration for the web search endpoint
// (a SearxNG-compatible JSON API).
type SearchConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
}

// ModerationConfig tunes the moderation pipeline's pacing and thresholds.
type ModerationConfig struct {
	// CallIntervalMS is the fixed delay between classifier calls.
	CallIntervalMS int `yaml:"call_interval_ms,omitempty"`
	// RateLimitPauseS is the single longer pause after a rate-limit signal.
	RateLimitPauseS int `yaml:"rate_limit_pause_s,omitempty"`
	// EnrichMinConfidence is the floor under which extraction is discarded.
	EnrichMinConfidence int `yaml:"enrich_min_confidence,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Embedder: EmbedderConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "vigie_affairs",
		},
		Moderation: ModerationConfig{
			CallIntervalMS:      1500,
			RateLimitPauseS:     30,
			EnrichMinConfidence: 60,
		},
	}
}

// Load loads configuration from the .vigie directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'vigie init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = key
		}
		if c.Embedder.APIKey == "" {
			c.Embedder.APIKey = key
		}
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" && c.Qdrant.APIKey == "" {
		c.Qdrant.APIKey = key
	}
	if key := os.Getenv("SEARCH_API_KEY"); key != "" && c.Search.APIKey == "" {
		c.Search.APIKey = key
	}
}

// ConfigDir returns the path to the .vigie config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// DatabasePath returns the SQLite database path, honoring an explicit
// configured path over the default location.
func (c *Config) DatabasePath(basePath string) string {
	if c.SQLite.Path != "" {
		return c.SQLite.Path
	}
	return filepath.Join(basePath, DefaultConfigDir, DefaultDatabaseFile)
}
