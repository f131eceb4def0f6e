// Package config loads and validates the service configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/transport"
)

// Config is the main configuration structure.
type Config struct {
	Server   ServerConfig         `yaml:"server"`
	Storage  StorageConfig        `yaml:"storage"`
	Dispatch DispatchConfig       `yaml:"dispatch"`
	SMTP     transport.SMTPConfig `yaml:"smtp"`
	Cache    CacheConfig          `yaml:"cache"`
	Logging  LoggingConfig        `yaml:"logging"`
	Metrics  MetricsConfig        `yaml:"metrics"`
	Auth     AuthConfig           `yaml:"auth"`
}

// ServerConfig contains HTTP server settings. BaseURL is the public
// origin tracking links are derived from.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	BaseURL    string `yaml:"base_url"`
}

// StorageConfig locates the BoltDB file.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// DispatchConfig tunes the batch dispatcher and the scheduled-campaign
// promotion job.
type DispatchConfig struct {
	SendDelay         time.Duration `yaml:"send_delay"`
	SchedulerInterval time.Duration `yaml:"scheduler_interval"`
}

// CacheConfig tunes the read-through cache.
type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// AuthConfig maps static bearer tokens to identities. Deployments
// with a real identity service leave this empty and wire their own
// authenticator.
type AuthConfig struct {
	Tokens map[string]TokenIdentity `yaml:"tokens"`
}

// TokenIdentity is one configured identity.
type TokenIdentity struct {
	UserID      string   `yaml:"user_id"`
	Email       string   `yaml:"email"`
	TenantCode  string   `yaml:"tenant_code"`
	Roles       []string `yaml:"roles"`
	Permissions []string `yaml:"permissions"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate applies defaults and rejects unusable settings.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required for tracking links")
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "/var/lib/phishsim/data.db"
	}
	if c.Dispatch.SendDelay <= 0 {
		c.Dispatch.SendDelay = 2 * time.Second
	}
	if c.Dispatch.SchedulerInterval <= 0 {
		c.Dispatch.SchedulerInterval = time.Minute
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Cache.SweepInterval <= 0 {
		c.Cache.SweepInterval = time.Minute
	}
	if c.SMTP.Addr == "" {
		return fmt.Errorf("smtp.addr is required")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	// Secrets may come from the environment instead of the file.
	if v := os.Getenv("PHISHSIM_SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	return nil
}
