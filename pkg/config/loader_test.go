package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Theme != "dark" {
		t.Errorf("Theme = %q, want %q", cfg.Theme, "dark")
	}
	if !cfg.Labels.ShortenDuplicates {
		t.Error("ShortenDuplicates should default to true")
	}
	if cfg.Tabs.MaxWidth != 24 {
		t.Errorf("Tabs.MaxWidth = %d, want 24", cfg.Tabs.MaxWidth)
	}
}

func TestLoadConfig_PartialYamlKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
theme: nord
tabs:
  wrap: true
labels:
  verbosity: long
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Theme != "nord" {
		t.Errorf("Theme = %q, want %q", cfg.Theme, "nord")
	}
	if !cfg.Tabs.Wrap {
		t.Error("Tabs.Wrap should be true")
	}
	if cfg.Labels.Verbosity != "long" {
		t.Errorf("Labels.Verbosity = %q, want %q", cfg.Labels.Verbosity, "long")
	}
	// Untouched keys keep defaults.
	if cfg.Tabs.MinWidth != 8 {
		t.Errorf("Tabs.MinWidth = %d, want 8", cfg.Tabs.MinWidth)
	}
	if !cfg.Wheel.SwitchTabs {
		t.Error("Wheel.SwitchTabs should default to true")
	}
}

func TestLoadConfig_ClampsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
tabs:
  min_width: 1
  max_width: 2
  wrap_rows: 0
wheel:
  threshold: 0
  debounce_ms: -5
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Tabs.MinWidth != 4 {
		t.Errorf("Tabs.MinWidth = %d, want 4", cfg.Tabs.MinWidth)
	}
	if cfg.Tabs.MaxWidth != 4 {
		t.Errorf("Tabs.MaxWidth = %d, want clamped to MinWidth (4)", cfg.Tabs.MaxWidth)
	}
	if cfg.Tabs.WrapRows != 1 {
		t.Errorf("Tabs.WrapRows = %d, want 1", cfg.Tabs.WrapRows)
	}
	if cfg.Wheel.Threshold != 1 {
		t.Errorf("Wheel.Threshold = %d, want 1", cfg.Wheel.Threshold)
	}
	if cfg.Wheel.DebounceMS != 0 {
		t.Errorf("Wheel.DebounceMS = %d, want 0", cfg.Wheel.DebounceMS)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Theme = "rose-pine"
	cfg.Pinned.Sizing = "shrink"

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if loaded.Theme != "rose-pine" {
		t.Errorf("Theme = %q, want %q", loaded.Theme, "rose-pine")
	}
	if loaded.Pinned.Sizing != "shrink" {
		t.Errorf("Pinned.Sizing = %q, want %q", loaded.Pinned.Sizing, "shrink")
	}
}
