// Package config provides configuration management for the event crawler.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultEnvironment = "development"

	DefaultDBHost           = "localhost"
	DefaultDBPort           = "5432"
	DefaultDBUser           = "postgres"
	DefaultDBName           = "eventcrawl"
	DefaultDBSSLMode        = "disable"

	DefaultLogLevel = "info"
)

// Config is the unified configuration for all commands.
type Config struct {
	App      AppConfig      `mapstructure:"app"      yaml:"app"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Crawl    CrawlConfig    `mapstructure:"crawl"    yaml:"crawl"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	// Name is the name of the application.
	Name string `mapstructure:"name" yaml:"name"`
	// Environment is the application environment (development, staging, production).
	Environment string `mapstructure:"environment" yaml:"environment"`
	// Debug indicates whether debug mode is enabled.
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"     yaml:"host"`
	Port     string `mapstructure:"port"     yaml:"port"`
	User     string `mapstructure:"user"     yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	DBName   string `mapstructure:"dbname"   yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode"  yaml:"sslmode"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level       string `mapstructure:"level"       yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// Validate checks the full configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app config: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}
	if err := c.Crawl.Validate(); err != nil {
		return fmt.Errorf("crawl config: %w", err)
	}
	return nil
}

// Validate checks application settings.
func (c *AppConfig) Validate() error {
	if c.Name == "" {
		return errors.New("application name must be specified")
	}

	switch c.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	return nil
}

// Validate checks database settings.
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return errors.New("database host must be specified")
	}
	if c.DBName == "" {
		return errors.New("database name must be specified")
	}
	return nil
}

// durationPositive returns an error naming field if d is not strictly positive.
func durationPositive(field string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", field, d)
	}
	return nil
}
