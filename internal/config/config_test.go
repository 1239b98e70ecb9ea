/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Environment != "development" {
		t.Fatalf("unexpected environment: %q", cfg.Environment)
	}
	if cfg.DBBackend != DatabaseSQLite {
		t.Fatalf("unexpected backend: %q", cfg.DBBackend)
	}
	if cfg.RestartDebounce != 100*time.Millisecond {
		t.Fatalf("unexpected debounce: %v", cfg.RestartDebounce)
	}
	if cfg.FallbackAsset != filepath.Join(cfg.DataRoot, "default.raw") {
		t.Fatalf("unexpected fallback asset: %q", cfg.FallbackAsset)
	}
}

func TestLoadReadsEnvKeys(t *testing.T) {
	t.Setenv("SKALD_DATA_ROOT", "/srv/radio")
	t.Setenv("SKALD_HTTP_PORT", "9090")
	t.Setenv("SKALD_RESTART_DEBOUNCE", "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DataRoot != "/srv/radio" {
		t.Fatalf("unexpected data root: %q", cfg.DataRoot)
	}
	if cfg.HTTPPort != 9090 {
		t.Fatalf("unexpected port: %d", cfg.HTTPPort)
	}
	if cfg.RestartDebounce != 250*time.Millisecond {
		t.Fatalf("unexpected debounce: %v", cfg.RestartDebounce)
	}
	if cfg.FallbackAsset != "/srv/radio/default.raw" {
		t.Fatalf("fallback asset should follow data root: %q", cfg.FallbackAsset)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("SKALD_DB_BACKEND", "oracle")
	if _, err := Load(); err == nil {
		t.Fatal("expected load to fail on unknown backend")
	}
}

func TestLoadRejectsNegativeDebounce(t *testing.T) {
	t.Setenv("SKALD_RESTART_DEBOUNCE", "-1s")
	if _, err := Load(); err == nil {
		t.Fatal("expected load to fail on negative debounce")
	}
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skald.yaml")
	body := "data_root: /mnt/assets\nhttp_port: 8888\ntracing_enabled: true\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("SKALD_CONFIG", path)
	t.Setenv("SKALD_HTTP_BIND", "127.0.0.1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DataRoot != "/mnt/assets" {
		t.Fatalf("file overlay ignored: %q", cfg.DataRoot)
	}
	if cfg.HTTPPort != 8888 {
		t.Fatalf("file overlay ignored: %d", cfg.HTTPPort)
	}
	if !cfg.TracingEnabled {
		t.Fatal("file overlay ignored tracing flag")
	}
	// Env values not named in the file survive the overlay.
	if cfg.HTTPBind != "127.0.0.1" {
		t.Fatalf("env value lost: %q", cfg.HTTPBind)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("SKALD_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected load to fail on missing config file")
	}
}
