// Package config loads thinkd configuration from a YAML file and the
// environment.
//
// Sections owned by thinkd (chain, features, session, server, coherence,
// embeddings) decode into Config. The logging and telemetry sections belong
// to their packages and are decoded on demand with Config.Section.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/fyrsmithlabs/thinkd/internal/chain"
	"github.com/fyrsmithlabs/thinkd/internal/features"
	"github.com/fyrsmithlabs/thinkd/internal/session"
)

// Config holds the complete thinkd configuration.
type Config struct {
	Chain      chain.Config     `koanf:"chain"`
	Features   features.Flags   `koanf:"features"`
	Session    session.Config   `koanf:"session"`
	Server     ServerConfig     `koanf:"server"`
	Coherence  CoherenceConfig  `koanf:"coherence"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`

	k *koanf.Koanf
}

// ServerConfig configures the optional HTTP sidecar.
type ServerConfig struct {
	HTTPEnabled     bool     `koanf:"http_enabled"`
	HTTPHost        string   `koanf:"http_host"`
	HTTPPort        int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// CoherenceConfig configures the chat-completion coherence scorer.
type CoherenceConfig struct {
	Enabled      bool     `koanf:"enabled"`
	BaseURL      string   `koanf:"base_url"`
	Model        string   `koanf:"model"`
	APIKey       Secret   `koanf:"api_key"`
	RateLimit    float64  `koanf:"rate_limit"` // requests per second, 0 = unlimited
	Timeout      Duration `koanf:"timeout"`
	HistoryLimit int      `koanf:"history_limit"`
}

// EmbeddingsConfig configures the embedding similarity scorer.
type EmbeddingsConfig struct {
	Enabled   bool    `koanf:"enabled"`
	BaseURL   string  `koanf:"base_url"`
	Model     string  `koanf:"model"`
	APIKey    Secret  `koanf:"api_key"`
	RateLimit float64 `koanf:"rate_limit"`
}

// Defaults.
const (
	DefaultHTTPHost        = "127.0.0.1"
	DefaultHTTPPort        = 9191
	DefaultShutdownTimeout = 10 * time.Second
	DefaultCoherenceModel  = "gpt-4o-mini"
	DefaultCoherenceURL    = "https://api.openai.com/v1"
	DefaultEmbeddingsURL   = "http://localhost:8080/v1"
	DefaultEmbeddingsModel = "BAAI/bge-small-en-v1.5"
)

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Chain:    *chain.DefaultConfig(),
		Features: features.DefaultFlags(),
		Server: ServerConfig{
			HTTPHost:        DefaultHTTPHost,
			HTTPPort:        DefaultHTTPPort,
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
		},
		Coherence: CoherenceConfig{
			BaseURL:      DefaultCoherenceURL,
			Model:        DefaultCoherenceModel,
			Timeout:      Duration(10 * time.Second),
			HistoryLimit: 5,
		},
		Embeddings: EmbeddingsConfig{
			BaseURL: DefaultEmbeddingsURL,
			Model:   DefaultEmbeddingsModel,
		},
	}
}

// applyDefaults fills fields an explicit empty value would leave unusable.
func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPHost == "" {
		cfg.Server.HTTPHost = DefaultHTTPHost
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if cfg.Coherence.Model == "" {
		cfg.Coherence.Model = DefaultCoherenceModel
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = DefaultEmbeddingsModel
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Chain.Validate(); err != nil {
		return err
	}
	if c.Session.MaxSessions < 0 {
		return fmt.Errorf("session.max_sessions must not be negative: %d", c.Session.MaxSessions)
	}
	if c.Server.HTTPEnabled && (c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535) {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.HTTPPort)
	}
	if c.Coherence.Enabled {
		if err := validateURL("coherence.base_url", c.Coherence.BaseURL); err != nil {
			return err
		}
		if c.Coherence.RateLimit < 0 {
			return errors.New("coherence.rate_limit must not be negative")
		}
		if c.Coherence.HistoryLimit < 0 {
			return errors.New("coherence.history_limit must not be negative")
		}
	}
	if c.Embeddings.Enabled {
		if err := validateURL("embeddings.base_url", c.Embeddings.BaseURL); err != nil {
			return err
		}
		if c.Embeddings.RateLimit < 0 {
			return errors.New("embeddings.rate_limit must not be negative")
		}
	}
	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL: %q", field, raw)
	}
	return nil
}

// Section decodes the raw section at key onto out. Keys absent from the
// loaded sources leave out's existing values untouched, so out should be
// pre-filled with its package defaults.
func (c *Config) Section(key string, out any) error {
	if c.k == nil || !c.k.Exists(key) {
		return nil
	}
	if err := c.k.Unmarshal(key, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s config: %w", key, err)
	}
	return nil
}
