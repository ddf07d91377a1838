// Package config resolves render settings per source location from a YAML or
// JSON file and the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/aretw0/umlpreview/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "umlpreview.yaml"

// Environment variables that override the file.
const (
	EnvRender = "UMLPREVIEW_RENDER"
	EnvServer = "UMLPREVIEW_SERVER"
	EnvJar    = "UMLPREVIEW_JAR"
)

// fileConfig is the on-disk shape.
type fileConfig struct {
	domain.Settings `mapstructure:",squash"`

	Overrides []map[string]any `mapstructure:"overrides"`
	Facts     string           `mapstructure:"facts"`
	LogLevel  string           `mapstructure:"log_level"`
	Env       []string         `mapstructure:"env"`
	Timeout   time.Duration    `mapstructure:"request_timeout"`
}

type override struct {
	match  string
	values map[string]any
}

// Config holds the base settings, per-location overrides and host options.
// It implements ports.SettingsProvider.
type Config struct {
	base      domain.Settings
	overrides []override
	env       map[string]string

	// Facts is an optional redis:// URL where server capabilities are shared.
	Facts string
	// LogLevel is the default log level of the hosts.
	LogLevel string
	// Env holds extra KEY=VALUE pairs for spawned java processes.
	Env []string
	// RequestTimeout bounds each request to a diagram server. Zero means no limit.
	RequestTimeout time.Duration
}

// Default returns a Config with default settings and no overrides.
func Default() *Config {
	return &Config{base: domain.DefaultSettings()}
}

// Load reads path. A missing file yields the defaults.
// Environment overrides are applied on top.
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data, strings.ToLower(filepath.Ext(path)) == ".json")
}

// Parse decodes a configuration document. YAML unless isJSON is set.
func Parse(data []byte, isJSON bool) (*Config, error) {
	raw := map[string]any{}
	if isJSON {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config yaml: %w", err)
		}
	}

	fc := fileConfig{Settings: domain.DefaultSettings()}
	if err := decode(raw, &fc); err != nil {
		return nil, err
	}

	cfg := &Config{
		base:     fc.Settings,
		Facts:          fc.Facts,
		LogLevel:       fc.LogLevel,
		Env:            fc.Env,
		RequestTimeout: fc.Timeout,
	}
	for _, kv := range cfg.Env {
		if !strings.Contains(kv, "=") {
			return nil, fmt.Errorf("invalid env entry %q: expected KEY=VALUE", kv)
		}
	}
	if cfg.RequestTimeout < 0 {
		return nil, fmt.Errorf("invalid request_timeout: %s", cfg.RequestTimeout)
	}
	for i, entry := range fc.Overrides {
		match, _ := entry["match"].(string)
		if match == "" {
			return nil, fmt.Errorf("override %d: missing match pattern", i)
		}
		if _, err := filepath.Match(match, ""); err != nil {
			return nil, fmt.Errorf("override %d: invalid pattern %q: %w", i, match, err)
		}
		values := make(map[string]any, len(entry))
		for k, v := range entry {
			if k != "match" {
				values[k] = v
			}
		}
		// Validate eagerly so that typos fail at load time.
		check := cfg.base
		if err := decode(values, &check); err != nil {
			return nil, fmt.Errorf("override %d: %w", i, err)
		}
		cfg.overrides = append(cfg.overrides, override{match: match, values: values})
	}
	return cfg, nil
}

// ApplyEnv records overrides from the environment. Empty variables are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	env := map[string]string{}
	for _, key := range []string{EnvRender, EnvServer, EnvJar} {
		if v := getenv(key); v != "" {
			env[key] = v
		}
	}
	if v, ok := env[EnvRender]; ok {
		if _, err := domain.ParseStrategy(v); err != nil {
			return fmt.Errorf("%s: %w", EnvRender, err)
		}
	}
	c.env = env
	return nil
}

// Settings implements ports.SettingsProvider. Overrides apply in file order,
// the environment applies last.
func (c *Config) Settings(location string) domain.Settings {
	s := c.base
	s.JarArgs = append([]string(nil), c.base.JarArgs...)
	for _, o := range c.overrides {
		if matches(o.match, location) {
			// Validated in Parse.
			_ = decode(o.values, &s)
		}
	}
	if v, ok := c.env[EnvRender]; ok {
		s.Render, _ = domain.ParseStrategy(v)
	}
	if v, ok := c.env[EnvServer]; ok {
		s.Server = v
	}
	if v, ok := c.env[EnvJar]; ok {
		s.Jar = v
	}
	return s
}

// matches tests pattern against the full location, then its base name.
func matches(pattern, location string) bool {
	if ok, _ := filepath.Match(pattern, location); ok {
		return true
	}
	ok, _ := filepath.Match(pattern, filepath.Base(location))
	return ok
}

func decode(input map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(
			strategyHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(" "),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

var strategyType = reflect.TypeOf(domain.Strategy(0))

func strategyHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != strategyType || from.Kind() != reflect.String {
		return data, nil
	}
	return domain.ParseStrategy(data.(string))
}
