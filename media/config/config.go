// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package config loads client settings from a YAML file and the environment.
// Environment variables win over the file, the file wins over defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrMissingURL is returned when no media server URL is configured
var ErrMissingURL = errors.New("media server url is not set")

type Config struct {
	URL        string           `yaml:"url" env:"KMS_URL"`
	LogLevel   string           `yaml:"log_level" env:"KMS_LOG_LEVEL"`
	StatusAddr string           `yaml:"status_addr" env:"KMS_STATUS_ADDR"`
	Client     ClientConfig     `yaml:"client" envPrefix:"KMS_CLIENT_"`
	Connection ConnectionConfig `yaml:"connection" envPrefix:"KMS_CONNECTION_"`
}

type ClientConfig struct {
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	EventQueueSize  int           `yaml:"event_queue_size" env:"EVENT_QUEUE_SIZE"`
	ResolvedHistory int           `yaml:"resolved_history" env:"RESOLVED_HISTORY"`
}

type ConnectionConfig struct {
	PingInterval time.Duration `yaml:"ping_interval" env:"PING_INTERVAL"`
	PongWait     time.Duration `yaml:"pong_wait" env:"PONG_WAIT"`
	WriteWait    time.Duration `yaml:"write_wait" env:"WRITE_WAIT"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		URL:        "ws://localhost:8888/kurento",
		LogLevel:   "info",
		StatusAddr: "",
		Client: ClientConfig{
			RequestTimeout:  10 * time.Second,
			EventQueueSize:  64,
			ResolvedHistory: 1000,
		},
		Connection: ConnectionConfig{
			PingInterval: 20 * time.Second,
			PongWait:     60 * time.Second,
			WriteWait:    10 * time.Second,
		},
	}
}

// Load reads path over the defaults, then applies the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// FromEnv applies the environment over the defaults.
func FromEnv() (*Config, error) {
	cfg := Default()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate ...
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrMissingURL
	}
	if c.Client.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.Client.RequestTimeout)
	}
	if c.Client.EventQueueSize <= 0 {
		return fmt.Errorf("event queue size must be positive, got %d", c.Client.EventQueueSize)
	}
	return nil
}
