/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables,
// optionally overlaid by a YAML file named in SKALD_CONFIG.
type Config struct {
	Environment string `yaml:"environment"`
	HTTPBind    string `yaml:"http_bind"`
	HTTPPort    int    `yaml:"http_port"`
	MetricsBind string `yaml:"metrics_bind"`

	DBBackend DatabaseBackend `yaml:"db_backend"`
	DBDSN     string          `yaml:"db_dsn"`

	// DataRoot holds per-session asset directories:
	// <DataRoot>/<session_id>/{tracks,inserts,announces}.
	DataRoot string `yaml:"data_root"`
	// FallbackAsset is played on repeat when a session has no tracks.
	FallbackAsset string `yaml:"fallback_asset"`

	FFmpegBin string `yaml:"ffmpeg_bin"`

	// RestartDebounce is slept after restarting playout so pathologically
	// short assets cannot spin the playout-ended loop.
	RestartDebounce time.Duration `yaml:"restart_debounce"`

	// Event fan-out to external messaging consumers.
	NATSURL string `yaml:"nats_url"`

	// Optional Redis cache for library listings.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// Tracing configuration
	TracingEnabled    bool    `yaml:"tracing_enabled"`
	OTLPEndpoint      string  `yaml:"otlp_endpoint"`
	TracingSampleRate float64 `yaml:"tracing_sample_rate"`
}

// Load reads environment variables, applies defaults, overlays the optional
// config file, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("SKALD_ENV", "development"),
		HTTPBind:    getEnv("SKALD_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("SKALD_HTTP_PORT", 8080),
		MetricsBind: getEnv("SKALD_METRICS_BIND", "127.0.0.1:9000"),

		DBBackend: DatabaseBackend(getEnv("SKALD_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:     getEnv("SKALD_DB_DSN", "file:skald.db?_busy_timeout=5000"),

		DataRoot:      getEnv("SKALD_DATA_ROOT", "./data"),
		FallbackAsset: getEnv("SKALD_FALLBACK_ASSET", ""),

		FFmpegBin: getEnv("SKALD_FFMPEG_BIN", "ffmpeg"),

		RestartDebounce: getEnvDuration("SKALD_RESTART_DEBOUNCE", 100*time.Millisecond),

		NATSURL: getEnv("SKALD_NATS_URL", ""),

		RedisAddr:     getEnv("SKALD_REDIS_ADDR", ""),
		RedisPassword: getEnv("SKALD_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("SKALD_REDIS_DB", 0),

		TracingEnabled:    getEnvBool("SKALD_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("SKALD_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("SKALD_TRACING_SAMPLE_RATE", 1.0),
	}

	if path := os.Getenv("SKALD_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if cfg.FallbackAsset == "" {
		cfg.FallbackAsset = filepath.Join(cfg.DataRoot, "default.raw")
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("SKALD_DB_DSN must be provided")
	}

	if cfg.RestartDebounce < 0 {
		return nil, fmt.Errorf("SKALD_RESTART_DEBOUNCE must not be negative")
	}

	return cfg, nil
}

// applyFile overlays non-zero values from a YAML config file.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if overlay.Environment != "" {
		c.Environment = overlay.Environment
	}
	if overlay.HTTPBind != "" {
		c.HTTPBind = overlay.HTTPBind
	}
	if overlay.HTTPPort != 0 {
		c.HTTPPort = overlay.HTTPPort
	}
	if overlay.MetricsBind != "" {
		c.MetricsBind = overlay.MetricsBind
	}
	if overlay.DBBackend != "" {
		c.DBBackend = overlay.DBBackend
	}
	if overlay.DBDSN != "" {
		c.DBDSN = overlay.DBDSN
	}
	if overlay.DataRoot != "" {
		c.DataRoot = overlay.DataRoot
	}
	if overlay.FallbackAsset != "" {
		c.FallbackAsset = overlay.FallbackAsset
	}
	if overlay.FFmpegBin != "" {
		c.FFmpegBin = overlay.FFmpegBin
	}
	if overlay.RestartDebounce != 0 {
		c.RestartDebounce = overlay.RestartDebounce
	}
	if overlay.NATSURL != "" {
		c.NATSURL = overlay.NATSURL
	}
	if overlay.RedisAddr != "" {
		c.RedisAddr = overlay.RedisAddr
	}
	if overlay.RedisPassword != "" {
		c.RedisPassword = overlay.RedisPassword
	}
	if overlay.RedisDB != 0 {
		c.RedisDB = overlay.RedisDB
	}
	if overlay.TracingEnabled {
		c.TracingEnabled = true
	}
	if overlay.OTLPEndpoint != "" {
		c.OTLPEndpoint = overlay.OTLPEndpoint
	}
	if overlay.TracingSampleRate != 0 {
		c.TracingSampleRate = overlay.TracingSampleRate
	}

	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return def
}
