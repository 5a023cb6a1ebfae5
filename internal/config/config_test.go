package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Pipeline.OptLevel != OptBasic {
		t.Errorf("Expected OptLevel=%d, got %d", OptBasic, cfg.Pipeline.OptLevel)
	}
	if cfg.Pipeline.DebugMIR {
		t.Error("Expected DebugMIR=false")
	}
	if !cfg.Codegen.BoundsChecks {
		t.Error("Expected BoundsChecks=true")
	}
	if cfg.Display.NumberFormat != "hex" {
		t.Errorf("Expected NumberFormat=hex, got %s", cfg.Display.NumberFormat)
	}
}

func TestGetConfigPath(t *testing.T) {
	path := GetConfigPath()

	if path == "" {
		t.Error("GetConfigPath returned empty string")
	}
	if filepath.Base(path) != "mirc.toml" {
		t.Errorf("Expected path ending in mirc.toml, got %s", path)
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pipeline.OptLevel != OptBasic {
		t.Errorf("expected default opt level, got %d", cfg.Pipeline.OptLevel)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mirc.toml")
	contents := "[pipeline]\nopt_level = 0\ndebug_mir = true\n"
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pipeline.OptLevel != OptNone {
		t.Errorf("expected OptNone, got %d", cfg.Pipeline.OptLevel)
	}
	if !cfg.Pipeline.DebugMIR {
		t.Error("expected DebugMIR=true")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CAIRO_M_OPT_LEVEL", "2")
	t.Setenv("DEBUG_MIR", "1")

	cfg, err := LoadFromEnv(DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pipeline.OptLevel != OptFull {
		t.Errorf("expected OptFull, got %d", cfg.Pipeline.OptLevel)
	}
	if !cfg.Pipeline.DebugMIR {
		t.Error("expected DebugMIR=true")
	}
}

func TestLoadFromEnvInvalidOptLevel(t *testing.T) {
	t.Setenv("CAIRO_M_OPT_LEVEL", "bogus")

	if _, err := LoadFromEnv(DefaultConfig()); err == nil {
		t.Error("expected error for invalid CAIRO_M_OPT_LEVEL")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.OptLevel = OptFull
	cfg.Codegen.BoundsChecks = false

	path := filepath.Join(t.TempDir(), "mirc.toml")
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.Pipeline.OptLevel != OptFull {
		t.Errorf("expected OptFull, got %d", loaded.Pipeline.OptLevel)
	}
	if loaded.Codegen.BoundsChecks {
		t.Error("expected BoundsChecks=false after round trip")
	}
}
