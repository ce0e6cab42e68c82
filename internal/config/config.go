package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP struct {
		Port int `yaml:"port"`
	} `yaml:"http"`
	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
	} `yaml:"database"`
	RabbitMQ struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		VHost    string `yaml:"vhost"`
	} `yaml:"rabbitmq"`
	Restaurant struct {
		// IANA zone for calendar-day stats, e.g. "Asia/Almaty". Empty means UTC.
		Timezone string `yaml:"timezone"`
	} `yaml:"restaurant"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	cfg.HTTP.Port = 3000
	cfg.Database.Port = 5432
	cfg.RabbitMQ.Port = 5672
	cfg.RabbitMQ.VHost = "/"
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Database.Host == "" || c.Database.User == "" || c.Database.Database == "" {
		return fmt.Errorf("database config incomplete: host, user and database are required")
	}
	if c.RabbitMQ.Host != "" && c.RabbitMQ.User == "" {
		return fmt.Errorf("rabbitmq config incomplete: user is required when host is set")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("restaurant.timezone: %w", err)
	}
	return nil
}

// Location resolves the restaurant's time zone; empty means UTC.
func (c Config) Location() (*time.Location, error) {
	if c.Restaurant.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Restaurant.Timezone)
}

// MQEnabled reports whether a RabbitMQ endpoint is configured; without one
// the service runs HTTP-only.
func (c Config) MQEnabled() bool { return c.RabbitMQ.Host != "" }
