// CLAUDE:SUMMARY Service configuration: YAML file, environment overrides (BOLETIN_DB, PORT, LOG_LEVEL, SMTP_*), defaults.
package boletin

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config configures the boletin service.
type Config struct {
	DBPath    string          `yaml:"db_path"`
	LogLevel  string          `yaml:"log_level"` // debug | info | warn | error
	Fetch     FetchConfig     `yaml:"fetch"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	HTTP      HTTPConfig      `yaml:"http"`
}

// FetchConfig controls gazette page retrieval.
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`
	UserAgent string        `yaml:"user_agent"`
}

// IngestConfig controls archive maintenance.
type IngestConfig struct {
	Pause         time.Duration `yaml:"pause"`          // between requests
	RetentionDays int           `yaml:"retention_days"` // snapshots older than this are pruned
	RefreshDays   int           `yaml:"refresh_days"`   // days re-checked by each refresh
}

// SchedulerConfig holds the cron expressions, read in Timezone.
type SchedulerConfig struct {
	IngestCron string `yaml:"ingest_cron"`
	DigestCron string `yaml:"digest_cron"`
	Timezone   string `yaml:"timezone"`
}

// SMTPConfig configures the digest mail relay. Mail is disabled without a host.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "data/boletines.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 15 * time.Second
	}
	if c.Fetch.MaxBytes <= 0 {
		c.Fetch.MaxBytes = 10 * 1024 * 1024
	}
	if c.Ingest.Pause == 0 {
		c.Ingest.Pause = 2 * time.Second
	}
	if c.Ingest.RetentionDays <= 0 {
		c.Ingest.RetentionDays = 90
	}
	if c.Ingest.RefreshDays <= 0 {
		c.Ingest.RefreshDays = 3
	}
	if c.Scheduler.IngestCron == "" {
		c.Scheduler.IngestCron = "0 6 * * *"
	}
	if c.Scheduler.DigestCron == "" {
		c.Scheduler.DigestCron = "* * * * *"
	}
	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = "Europe/Madrid"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 465
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.defaults()
	return cfg
}

// LoadConfig reads the YAML file at path (skipped when path is empty),
// applies environment overrides, then defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.defaults()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.DBPath, "BOLETIN_DB")
	set(&c.LogLevel, "LOG_LEVEL")
	set(&c.Scheduler.Timezone, "BOLETIN_TIMEZONE")
	set(&c.SMTP.Host, "SMTP_HOST")
	set(&c.SMTP.Username, "SMTP_USERNAME")
	set(&c.SMTP.Password, "SMTP_PASSWORD")
	set(&c.SMTP.From, "SMTP_FROM")
	if v := getenv("PORT"); v != "" {
		c.HTTP.Addr = ":" + v
	}
	if v := getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMTP_PORT %q: %w", v, err)
		}
		c.SMTP.Port = port
	}
	return nil
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Scheduler.Timezone, err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q: want debug, info, warn or error", c.LogLevel)
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return fmt.Errorf("smtp.from is required when smtp.host is set")
	}
	return nil
}
