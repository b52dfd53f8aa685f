// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

// Package config loads the service configuration with layered sources:
// built-in defaults, an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/mkosonen/kulkue/internal/api"
	"github.com/mkosonen/kulkue/internal/mailer"
	"github.com/mkosonen/kulkue/internal/notify"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/kulkue/config.yaml",
	"/etc/kulkue/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// StoreConfig holds event store settings.
type StoreConfig struct {
	// Path is the Badger data directory. Empty selects an in-memory store.
	Path string `koanf:"path"`

	// GCInterval is how often value-log garbage collection runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// JobsConfig holds the background schedule periods.
type JobsConfig struct {
	ExpandInterval    time.Duration `koanf:"expand_interval"`
	OrganizerInterval time.Duration `koanf:"organizer_interval"`
	AutoCloseInterval time.Duration `koanf:"auto_close_interval"`
	PastHideInterval  time.Duration `koanf:"past_hide_interval"`
	RollupInterval    time.Duration `koanf:"rollup_interval"`
	DispatchInterval  time.Duration `koanf:"dispatch_interval"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// LocaleConfig holds the UI locale settings carried through to outbound
// mail and public responses.
type LocaleConfig struct {
	Available []string `koanf:"available"`
	Default   string   `koanf:"default"`
}

// Config is the root configuration.
type Config struct {
	Store   StoreConfig   `koanf:"store"`
	Server  api.Config    `koanf:"server"`
	Mailer  mailer.Config `koanf:"mailer"`
	Notify  notify.Config `koanf:"notify"`
	Jobs    JobsConfig    `koanf:"jobs"`
	Logging LoggingConfig `koanf:"logging"`
	Locale  LocaleConfig  `koanf:"locale"`
}

func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path:       "/data/kulkue",
			GCInterval: 10 * time.Minute,
		},
		Server: api.Config{
			Listen:         ":8080",
			RateLimit:      true,
			AllowedOrigins: []string{},
		},
		Mailer: mailer.Config{
			Port:          587,
			FromName:      "Kulkue",
			UseTLS:        true,
			RatePerMinute: 60,
		},
		Notify: notify.Config{
			AdminRecipients: []string{},
			BaseURL:         "http://localhost:8080",
		},
		Jobs: JobsConfig{
			ExpandInterval:    24 * time.Hour,
			OrganizerInterval: time.Hour,
			AutoCloseInterval: 24 * time.Hour,
			PastHideInterval:  24 * time.Hour,
			RollupInterval:    15 * time.Minute,
			DispatchInterval:  time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Locale: LocaleConfig{
			Available: []string{"fi", "sv", "en"},
			Default:   "fi",
		},
	}
}

// Load builds the configuration: defaults, then the optional YAML file,
// then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen must not be empty")
	}
	if c.Jobs.ExpandInterval <= 0 || c.Jobs.DispatchInterval <= 0 {
		return fmt.Errorf("job intervals must be positive")
	}
	if len(c.Notify.AdminRecipients) > 0 && c.Mailer.Host == "" {
		return fmt.Errorf("mailer.host is required when admin recipients are set")
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths that accept comma-separated env
// values.
var sliceConfigPaths = []string{
	"server.allowed_origins",
	"notify.admin_recipients",
	"locale.available",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to config paths.
// Unmapped variables are dropped so stray environment entries cannot
// pollute the configuration.
func envTransformFunc(key string) string {
	mappings := map[string]string{
		"store_path":        "store.path",
		"store_gc_interval": "store.gc_interval",

		"http_listen":     "server.listen",
		"enforce_limits":  "server.rate_limit",
		"allowed_origins": "server.allowed_origins",

		"smtp_host":            "mailer.host",
		"smtp_port":            "mailer.port",
		"smtp_from":            "mailer.from",
		"smtp_from_name":       "mailer.from_name",
		"smtp_username":        "mailer.username",
		"smtp_password":        "mailer.password",
		"smtp_use_tls":         "mailer.use_tls",
		"mail_rate_per_minute": "mailer.rate_per_minute",

		"admin_recipients": "notify.admin_recipients",
		"public_base_url":  "notify.base_url",

		"job_expand_interval":    "jobs.expand_interval",
		"job_organizer_interval": "jobs.organizer_interval",
		"job_autoclose_interval": "jobs.auto_close_interval",
		"job_pasthide_interval":  "jobs.past_hide_interval",
		"job_rollup_interval":    "jobs.rollup_interval",
		"job_dispatch_interval":  "jobs.dispatch_interval",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		"locales":        "locale.available",
		"default_locale": "locale.default",
	}
	if mapped, ok := mappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
