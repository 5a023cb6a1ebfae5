// Package config loads pipeline and code-generation configuration for the
// Cairo-M back end, from an optional TOML file overlaid with the two
// environment variables the core recognizes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/BurntSushi/toml"
)

// OptLevel selects how much of the Stage A/C pass set runs.
type OptLevel int

const (
	OptNone  OptLevel = 0 // legalization + phi elimination only
	OptBasic OptLevel = 1 // default: full Stage A/B/C pipeline
	OptFull  OptLevel = 2 // reserved for a wider pass set
)

// Config is the full set of knobs the core and its host driver accept.
type Config struct {
	// Pipeline settings
	Pipeline struct {
		OptLevel OptLevel `toml:"opt_level"`
		DebugMIR bool     `toml:"debug_mir"`
	} `toml:"pipeline"`

	// Code generation settings
	Codegen struct {
		BoundsChecks bool `toml:"bounds_checks"`
	} `toml:"codegen"`

	// Pretty-printer / dump settings
	Display struct {
		NumberFormat string `toml:"number_format"` // hex, dec
	} `toml:"display"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Pipeline.OptLevel = OptBasic
	cfg.Pipeline.DebugMIR = false

	cfg.Codegen.BoundsChecks = true

	cfg.Display.NumberFormat = "hex"

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "cairo-m")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "mirc.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "cairo-m")

	default:
		return "mirc.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "mirc.toml"
	}

	return filepath.Join(configDir, "mirc.toml")
}

// Load loads configuration from the default config file location.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file, falling back to
// defaults when the file does not exist.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv overlays CAIRO_M_OPT_LEVEL and DEBUG_MIR (spec.md §6) on top
// of cfg, matching the host driver's flag-overrides-file precedence.
func LoadFromEnv(cfg *Config) (*Config, error) {
	if v, ok := os.LookupEnv("CAIRO_M_OPT_LEVEL"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 2 {
			return nil, fmt.Errorf("invalid CAIRO_M_OPT_LEVEL %q: must be 0, 1, or 2", v)
		}
		cfg.Pipeline.OptLevel = OptLevel(n)
	}

	if v, ok := os.LookupEnv("DEBUG_MIR"); ok {
		cfg.Pipeline.DebugMIR = v == "1"
	}

	return cfg, nil
}

// Save saves configuration to the default config file location.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- caller-controlled config path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
