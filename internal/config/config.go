package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tanq16/fetcher/internal/utils"
	"gopkg.in/yaml.v3"
)

// Config holds the tunables of the fetcher CLI.
type Config struct {
	AcceleratedConnections int               `yaml:"accelerated_connections"`
	StandardConnections    int               `yaml:"standard_connections"`
	StreamAttempts         int               `yaml:"stream_attempts"`
	BackoffBase            time.Duration     `yaml:"backoff_base"`
	ProbeTimeout           time.Duration     `yaml:"probe_timeout"`
	ChunkTimeout           time.Duration     `yaml:"chunk_timeout"`
	StallTimeout           time.Duration     `yaml:"stall_timeout"`
	ProgressFile           string            `yaml:"progress_file"`
	ProgressInterval       time.Duration     `yaml:"progress_interval"`
	UserAgent              string            `yaml:"user_agent"`
	Proxy                  string            `yaml:"proxy"`
	Headers                map[string]string `yaml:"headers"`
	Workers                int               `yaml:"workers"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		AcceleratedConnections: 6,
		StandardConnections:    4,
		StreamAttempts:         3,
		BackoffBase:            time.Second,
		ProbeTimeout:           utils.DefaultProbeTimeout,
		ChunkTimeout:           utils.DefaultChunkTimeout,
		StallTimeout:           utils.DefaultStallTimeout,
		ProgressFile:           utils.DefaultProgressFile,
		ProgressInterval:       utils.DefaultProgressInterval,
		UserAgent:              utils.ToolUserAgent,
		Workers:                1,
	}
}

// yamlConfig mirrors Config with durations as strings.
type yamlConfig struct {
	AcceleratedConnections int               `yaml:"accelerated_connections"`
	StandardConnections    int               `yaml:"standard_connections"`
	StreamAttempts         int               `yaml:"stream_attempts"`
	BackoffBase            string            `yaml:"backoff_base"`
	ProbeTimeout           string            `yaml:"probe_timeout"`
	ChunkTimeout           string            `yaml:"chunk_timeout"`
	StallTimeout           string            `yaml:"stall_timeout"`
	ProgressFile           string            `yaml:"progress_file"`
	ProgressInterval       string            `yaml:"progress_interval"`
	UserAgent              string            `yaml:"user_agent"`
	Proxy                  string            `yaml:"proxy"`
	Headers                map[string]string `yaml:"headers"`
	Workers                int               `yaml:"workers"`
}

// LoadFromFile reads a YAML file over the defaults. Keys missing from the
// file keep their default value.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()
	if yc.AcceleratedConnections != 0 {
		cfg.AcceleratedConnections = yc.AcceleratedConnections
	}
	if yc.StandardConnections != 0 {
		cfg.StandardConnections = yc.StandardConnections
	}
	if yc.StreamAttempts != 0 {
		cfg.StreamAttempts = yc.StreamAttempts
	}
	durations := []struct {
		key   string
		value string
		dst   *time.Duration
	}{
		{"backoff_base", yc.BackoffBase, &cfg.BackoffBase},
		{"probe_timeout", yc.ProbeTimeout, &cfg.ProbeTimeout},
		{"chunk_timeout", yc.ChunkTimeout, &cfg.ChunkTimeout},
		{"stall_timeout", yc.StallTimeout, &cfg.StallTimeout},
		{"progress_interval", yc.ProgressInterval, &cfg.ProgressInterval},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	if yc.ProgressFile != "" {
		cfg.ProgressFile = yc.ProgressFile
	}
	if yc.UserAgent != "" {
		cfg.UserAgent = yc.UserAgent
	}
	if yc.Proxy != "" {
		cfg.Proxy = yc.Proxy
	}
	if len(yc.Headers) > 0 {
		cfg.Headers = yc.Headers
	}
	if yc.Workers != 0 {
		cfg.Workers = yc.Workers
	}
	return cfg, nil
}

// LoadFromEnv applies FETCHER_ prefixed environment variables.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("FETCHER_PROGRESS_FILE"); v != "" {
		c.ProgressFile = v
	}
	if v := os.Getenv("FETCHER_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("FETCHER_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("FETCHER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse FETCHER_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("FETCHER_STREAM_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse FETCHER_STREAM_ATTEMPTS: %w", err)
		}
		c.StreamAttempts = n
	}
	return nil
}

func (c *Config) Validate() error {
	if c.AcceleratedConnections < 1 || c.StandardConnections < 1 {
		return errors.New("config: connection counts must be positive")
	}
	if c.StreamAttempts < 1 {
		return errors.New("config: stream_attempts must be at least 1")
	}
	if c.Workers < 1 {
		return errors.New("config: workers must be positive")
	}
	if c.BackoffBase <= 0 || c.ProbeTimeout <= 0 || c.ChunkTimeout <= 0 || c.StallTimeout <= 0 {
		return errors.New("config: durations must be positive")
	}
	return nil
}
