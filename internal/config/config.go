// Package config loads server configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when neither file nor environment provides a value.
const (
	DefaultAddr          = ":8080"
	DefaultMaxConcurrent = 3
	DefaultRetention     = 24 * time.Hour
	DefaultSweepInterval = time.Hour
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Lookup   LookupConfig   `yaml:"lookup"`
	Services ServicesConfig `yaml:"services"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Cache    CacheConfig    `yaml:"cache"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// LookupConfig controls the academic-graph lookup client.
type LookupConfig struct {
	APIKey      string        `yaml:"api_key,omitempty"`
	MinInterval time.Duration `yaml:"min_interval,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

// ServicesConfig points at the external extraction and labeling services.
// Either may be empty, which disables the corresponding analysis phase.
type ServicesConfig struct {
	ExtractURL string `yaml:"extract_url,omitempty"`
	LabelURL   string `yaml:"label_url,omitempty"`
}

// JobsConfig controls the scheduler.
type JobsConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent,omitempty"`
	Retention     time.Duration `yaml:"retention,omitempty"`
	SweepInterval time.Duration `yaml:"sweep_interval,omitempty"`
}

// CacheConfig controls the SQLite lookup cache. An empty path disables
// the cache.
type CacheConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Load reads the configuration file at path, applies environment
// overrides, and fills defaults. A missing file is not an error; an
// empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets the environment override file values. S2_API_KEY keeps
// the variable name the lookup service documents.
func (c *Config) applyEnv() {
	if v := os.Getenv("PAPERMASTER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("S2_API_KEY"); v != "" {
		c.Lookup.APIKey = v
	}
	if v := os.Getenv("EXTRACT_SERVICE_URL"); v != "" {
		c.Services.ExtractURL = v
	}
	if v := os.Getenv("LABEL_SERVICE_URL"); v != "" {
		c.Services.LabelURL = v
	}
	if v := os.Getenv("PAPERMASTER_CACHE_PATH"); v != "" {
		c.Cache.Path = v
	}
	if v := os.Getenv("PAPERMASTER_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Jobs.MaxConcurrent = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Jobs.MaxConcurrent == 0 {
		c.Jobs.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.Jobs.Retention == 0 {
		c.Jobs.Retention = DefaultRetention
	}
	if c.Jobs.SweepInterval == 0 {
		c.Jobs.SweepInterval = DefaultSweepInterval
	}
}

func (c *Config) validate() error {
	if c.Jobs.MaxConcurrent < 1 {
		return fmt.Errorf("jobs.max_concurrent must be at least 1, got %d", c.Jobs.MaxConcurrent)
	}
	if c.Jobs.Retention < 0 {
		return fmt.Errorf("jobs.retention cannot be negative")
	}
	if c.Jobs.SweepInterval < 0 {
		return fmt.Errorf("jobs.sweep_interval cannot be negative")
	}
	return nil
}
