package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Root != "." {
		t.Errorf("root: got %q", cfg.Root)
	}
	if cfg.Watch {
		t.Error("watch should default to off")
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("level: got %v", cfg.SlogLevel())
	}
}

func TestYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fae.yaml")
	data := "root: /srv/code\nwatch: true\nlog_level: debug\nignore_dirs: [.git, dist]\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Root != "/srv/code" || !cfg.Watch || cfg.LogLevel != "debug" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if len(cfg.IgnoreDirs) != 2 || cfg.IgnoreDirs[1] != "dist" {
		t.Errorf("ignore dirs: %v", cfg.IgnoreDirs)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("level: got %v", cfg.SlogLevel())
	}
}

func TestEnvironmentWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fae.yaml")
	if err := os.WriteFile(path, []byte("root: /from/file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FAE_ROOT", "/from/env")
	t.Setenv("FAE_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Root != "/from/env" {
		t.Errorf("root: got %q, want env override", cfg.Root)
	}
	if cfg.SlogLevel() != slog.LevelWarn {
		t.Errorf("level: got %v", cfg.SlogLevel())
	}
}

func TestBadFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte(":\t:::not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}
