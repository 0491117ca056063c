// Package config loads process configuration from defaults, an optional YAML
// file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type EmailConfig struct {
	APIKey      string `yaml:"apiKey"`
	FromName    string `yaml:"fromName"`
	FromAddress string `yaml:"fromAddress"`
}

type WorkerConfig struct {
	ID               string `yaml:"id"`
	PollIntervalSecs int    `yaml:"pollIntervalSecs"`
}

type Config struct {
	Port      string         `yaml:"port"`
	Token     string         `yaml:"token"`
	Requester string         `yaml:"requester"`
	Postgres  PostgresConfig `yaml:"postgres"`
	Redis     RedisConfig    `yaml:"redis"`
	Email     EmailConfig    `yaml:"email"`
	Worker    WorkerConfig   `yaml:"worker"`
}

func DefaultConfig() *Config {
	return &Config{
		Port:      "8080",
		Requester: "filplus",
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Email: EmailConfig{
			FromName: "Module Reports",
		},
		Worker: WorkerConfig{
			PollIntervalSecs: 1,
		},
	}
}

// LoadYAMLConfig unmarshals filename into cfg, keeping fields it does not set.
func LoadYAMLConfig(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// Load builds the configuration. path may be empty.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	conf := DefaultConfig()

	if path != "" {
		if err := LoadYAMLConfig(path, conf); err != nil {
			return nil, err
		}
	}

	conf.applyEnv(getenv)
	return conf, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&c.Port, "PORT")
	set(&c.Token, "TOKEN")
	set(&c.Requester, "REQUESTER")
	set(&c.Postgres.DSN, "POSTGRES_DSN")
	set(&c.Redis.Addr, "REDIS_ADDR")
	set(&c.Email.APIKey, "EMAIL_API_KEY")
	set(&c.Email.FromName, "FROM_NAME")
	set(&c.Email.FromAddress, "FROM_ADDRESS")
	set(&c.Worker.ID, "WORKER_ID")
}

// Validate reports every missing required setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Postgres.DSN == "" {
		errs = append(errs, errors.New("POSTGRES_DSN is required"))
	}
	if c.Token == "" {
		errs = append(errs, errors.New("TOKEN is required"))
	}

	return errors.Join(errs...)
}

// ValidateEmail reports missing settings needed to send digests.
func (c *Config) ValidateEmail() error {
	var errs []error
	if c.Email.APIKey == "" {
		errs = append(errs, errors.New("EMAIL_API_KEY is required"))
	}
	if c.Email.FromAddress == "" {
		errs = append(errs, errors.New("FROM_ADDRESS is required"))
	}

	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
