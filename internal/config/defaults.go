package config

import (
	"github.com/leapstack-labs/storelens/internal/catalog"
	"github.com/leapstack-labs/storelens/internal/flatten"
	"github.com/leapstack-labs/storelens/internal/inspector"
)

// Default configuration values.
const (
	DefaultRoot       = "."
	DefaultDomain     = "storelens"
	DefaultOrder      = OrderAsc
	DefaultTimeZone   = "UTC"
	DefaultListen     = "127.0.0.1:9229"
	DefaultLogLevel   = "info"
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLimit      = inspector.DefaultLimit
	DefaultDateFormat = flatten.DefaultDateLayout
	DefaultPattern    = catalog.DefaultNamePattern
)

// Row orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Defaults returns the default value of every key, keyed by koanf path.
func Defaults() map[string]any {
	return map[string]any{
		"roots":            []string{DefaultRoot},
		"name_pattern":     DefaultPattern,
		"domain":           DefaultDomain,
		"with_meta_tables": false,
		"limit":            DefaultLimit,
		"order":            DefaultOrder,
		"date_format":      DefaultDateFormat,
		"time_zone":        DefaultTimeZone,
		"default_key":      "",
		"strict_queries":   false,
		"listen":           DefaultListen,
		"watch":            false,
		"log_level":        DefaultLogLevel,
		"verbose":          false,
		"output":           DefaultOutput,
	}
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Roots:        []string{DefaultRoot},
		NamePattern:  DefaultPattern,
		Domain:       DefaultDomain,
		Limit:        DefaultLimit,
		Order:        DefaultOrder,
		DateFormat:   DefaultDateFormat,
		TimeZone:     DefaultTimeZone,
		Listen:       DefaultListen,
		LogLevel:     DefaultLogLevel,
		OutputFormat: DefaultOutput,
	}
}
