// Package config loads the settings of the xmlbs command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Schema is the grammar file to repair against. Files ending in .xml are
	// read as XML grammars, anything else as properties. The built-in XHTML
	// grammar is used when empty.
	Schema string `yaml:"schema"`

	// IgnoreCase matches tag and attribute names case-insensitively.
	IgnoreCase bool `yaml:"ignore_case"`

	// Annotate leaves comments in place of dropped markup.
	Annotate bool `yaml:"annotate"`

	// Server
	Listen       string `yaml:"listen"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`

	LogLevel string `yaml:"log_level"`
}

func defaults() Config {
	return Config{
		Listen:       ":8080",
		MaxBodyBytes: 10 << 20, // 10MB
		LogLevel:     "info",
	}
}

// Load reads the YAML file at path, if any, and applies XMLBS_* environment
// overrides on top of it.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Schema = envOr("XMLBS_SCHEMA", cfg.Schema)
	cfg.IgnoreCase = envBool("XMLBS_IGNORE_CASE", cfg.IgnoreCase)
	cfg.Annotate = envBool("XMLBS_ANNOTATE", cfg.Annotate)
	cfg.Listen = envOr("XMLBS_LISTEN", cfg.Listen)
	cfg.MaxBodyBytes = envInt64("XMLBS_MAX_BODY_BYTES", cfg.MaxBodyBytes)
	cfg.LogLevel = envOr("XMLBS_LOG_LEVEL", cfg.LogLevel)

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 20
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Schema != "" {
		if _, err := os.Stat(c.Schema); err != nil {
			errs = append(errs, fmt.Errorf("schema: %w", err))
		}
	}
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SchemaFormat returns "xml" or "properties" depending on the schema file
// extension.
func (c Config) SchemaFormat() string {
	if strings.EqualFold(filepath.Ext(c.Schema), ".xml") {
		return "xml"
	}
	return "properties"
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
