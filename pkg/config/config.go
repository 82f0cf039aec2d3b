// Package config holds the settings of the modlint command line tools.
//
// Settings are resolved in order: defaults, the TOML config file, the
// environment and finally command line flags, which the caller applies.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ormasoftchile/modlint/pkg/logging"
)

// DefaultFile is looked up in the working directory when no config file is
// given.
const DefaultFile = ".modlint.toml"

// Environment variables.
const (
	EnvStrict  = "MODLINT_STRICT_MODE"
	EnvSchema  = "MODLINT_SCHEMA"
	EnvNoColor = "NO_COLOR"
)

const maxContextLines = 20

// Config is the resolved tool configuration.
type Config struct {
	// SchemaPath is the schema file; empty means the bundled schema.
	SchemaPath string `toml:"schema"`
	// Strict makes misdeclared and unregistered rules fatal.
	Strict bool `toml:"strict"`
	Color  bool `toml:"color"`
	// ContextLines is the number of source lines shown around an issue.
	ContextLines int    `toml:"context_lines"`
	Format       string `toml:"format"`

	Log          LogConfig   `toml:"log"`
	MetricsFile  string      `toml:"metrics_file"`
	ProgressFile string      `toml:"progress_file"`
	Watch        WatchConfig `toml:"watch"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce Duration `toml:"debounce"`
}

// Duration is a time.Duration written as a string such as "150ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Strict:       true,
		Color:        true,
		ContextLines: 3,
		Format:       "text",
		Log:          LogConfig{Level: "warn", Format: "text"},
		Watch:        WatchConfig{Debounce: Duration{150 * time.Millisecond}},
	}
}

// Load returns the defaults overlaid with the config file at path. With an
// empty path DefaultFile is used when it exists. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config file %q: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("decode config file %q: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// ApplyEnv overlays environment settings. Strict mode is on unless
// MODLINT_STRICT_MODE is set to something other than "true".
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvStrict); v != "" {
		c.Strict = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	if v := getenv(EnvSchema); v != "" {
		c.SchemaPath = v
	}
	if getenv(EnvNoColor) != "" {
		c.Color = false
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.ContextLines < 0 || c.ContextLines > maxContextLines {
		errs = append(errs, fmt.Errorf("context_lines must be between 0 and %d, got %d", maxContextLines, c.ContextLines))
	}
	if !slices.Contains([]string{"text", "json"}, c.Format) {
		errs = append(errs, fmt.Errorf("format must be text or json, got %q", c.Format))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, err)
	}
	if c.Watch.Debounce.Duration < 0 {
		errs = append(errs, errors.New("watch.debounce must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
