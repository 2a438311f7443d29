package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/storelens/internal/catalog"
	"github.com/leapstack-labs/storelens/internal/session"
	"github.com/leapstack-labs/storelens/pkg/objectstore"
)

var validOutputs = map[string]bool{
	"auto": true, "text": true, "markdown": true, "json": true, "csv": true,
}

// Validate checks every option and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Roots) == 0 {
		errs = append(errs, errors.New("roots: at least one root directory is required"))
	}
	if c.Limit < 0 {
		errs = append(errs, fmt.Errorf("limit: must not be negative, got %d", c.Limit))
	}
	if c.Order != OrderAsc && c.Order != OrderDesc {
		errs = append(errs, fmt.Errorf("order: must be %q or %q, got %q", OrderAsc, OrderDesc, c.Order))
	}
	if _, err := catalog.CompilePattern(c.NamePattern); err != nil {
		errs = append(errs, fmt.Errorf("name_pattern: %w", err))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("time_zone: %w", err))
	}
	if _, err := c.KeyRing(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if !validOutputs[c.OutputFormat] {
		errs = append(errs, fmt.Errorf("output: unknown format %q", c.OutputFormat))
	}

	return errors.Join(errs...)
}

// Ascending reports whether rows are read first to last.
func (c *Config) Ascending() bool {
	return c.Order != OrderDesc
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.TimeZone)
}

// Level parses the configured log level. Verbose forces debug.
func (c *Config) Level() (slog.Level, error) {
	if c.Verbose {
		return slog.LevelDebug, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// KeyRing decodes the configured keys.
func (c *Config) KeyRing() (session.KeyRing, error) {
	var ring session.KeyRing

	if c.DefaultKey != "" {
		key, err := decodeKey("", c.DefaultKey)
		if err != nil {
			return session.KeyRing{}, fmt.Errorf("default_key: %w", err)
		}
		ring.Default = key
	}

	if len(c.EncryptionKeys) > 0 {
		ring.PerDatabase = make(map[string][]byte, len(c.EncryptionKeys))
	}
	for i, e := range c.EncryptionKeys {
		if strings.TrimSpace(e.File) == "" {
			return session.KeyRing{}, fmt.Errorf("encryption_keys[%d]: file is required", i)
		}
		if e.Key == "" {
			ring.PerDatabase[e.File] = nil
			continue
		}
		key, err := decodeKey(e.File, e.Key)
		if err != nil {
			return session.KeyRing{}, fmt.Errorf("encryption_keys[%d]: %w", i, err)
		}
		ring.PerDatabase[e.File] = key
	}
	return ring, nil
}

func decodeKey(file, s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("key is not valid hex: %w", err)
	}
	if err := objectstore.ValidateKey(file, key); err != nil {
		return nil, err
	}
	return key, nil
}
