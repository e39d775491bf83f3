// Package config provides YAML-based configuration loading for Orderdesk.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Orderdesk configuration, loaded from orderdesk.yaml.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Server   ServerConfig   `yaml:"server"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Sessions SessionsConfig `yaml:"sessions"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// MySQLConfig holds connection settings for the MySQL server.
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// SessionsConfig controls order-session expiry and the timeout sweep.
type SessionsConfig struct {
	TTLMinutes int    `yaml:"ttl_minutes"`
	SweepCron  string `yaml:"sweep_cron"` // 5-field cron expression
}

// TTL returns the configured session time-to-live as a duration.
func (s SessionsConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.MySQL.Host == "" {
		c.MySQL.Host = "127.0.0.1"
	}
	if c.MySQL.Port == 0 {
		c.MySQL.Port = 3306
	}
	if c.MySQL.User == "" {
		c.MySQL.User = "orderdesk"
	}
	if c.MySQL.Database == "" {
		c.MySQL.Database = "orderdesk"
	}
	if c.Sessions.TTLMinutes == 0 {
		c.Sessions.TTLMinutes = 30
	}
	if c.Sessions.SweepCron == "" {
		c.Sessions.SweepCron = "*/5 * * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.MySQL.Database == "" {
		errs = append(errs, "mysql.database is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Sessions.TTLMinutes < 0 {
		errs = append(errs, "sessions.ttl_minutes must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
