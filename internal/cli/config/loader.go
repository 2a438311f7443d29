// Package config loads the storelens configuration for the CLI from
// defaults, a config file, the environment and command-line flags.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	intconfig "github.com/leapstack-labs/storelens/internal/config"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "STORELENS_"

// Config file names searched in the working directory.
const (
	ConfigFileName    = "storelens.yaml"
	ConfigFileNameAlt = "storelens.yml"
)

// flagKeys maps flag names whose config key is not the snake_case form.
var flagKeys = map[string]string{
	"root":    "roots",
	"pattern": "name_pattern",
}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *intconfig.Config // Stores the loaded config for access by commands
)

// findConfigFile finds the config file to use.
// Priority: explicit path > storelens.yaml > storelens.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*intconfig.Config, error) {
	k = koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(intconfig.Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Load config file; its relative roots are anchored at its directory
	baseDir := "."
	configFileUsed = findConfigFile(cfgFile)
	var fileRoots []string
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
		if err := checkKeyScalars(k); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
		baseDir = filepath.Dir(configFileUsed)
		fileRoots = k.Strings("roots")
	}

	// 3. Load environment variables (STORELENS_ prefix)
	// Transform: STORELENS_NAME_PATTERN -> name_pattern; roots are comma separated
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if key == "roots" {
			return key, strings.Split(value, ",")
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg intconfig.Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Make roots absolute so database ids are full paths
	fromFile := len(fileRoots) > 0 && slices.Equal(cfg.Roots, fileRoots)
	for i, root := range cfg.Roots {
		root = strings.TrimSpace(root)
		if fromFile && !filepath.IsAbs(root) {
			root = filepath.Join(baseDir, root)
		}
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
		cfg.Roots[i] = root
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// checkKeyScalars rejects hex keys that YAML decoded as numbers. An unquoted
// all-digit key loses precision before it reaches the Config struct.
func checkKeyScalars(k *koanf.Koanf) error {
	if v := k.Get("default_key"); v != nil {
		if _, ok := v.(string); !ok {
			return fmt.Errorf("default_key: expected a hex string, got %T (quote the key)", v)
		}
	}
	entries, _ := k.Get("encryption_keys").([]interface{})
	for i, e := range entries {
		entry, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		if v, ok := entry["key"]; ok && v != nil {
			if _, ok := v.(string); !ok {
				return fmt.Errorf("encryption_keys[%d].key: expected a hex string, got %T (quote the key)", i, v)
			}
		}
	}
	return nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *intconfig.Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
