// Package config holds the storelens configuration model, its defaults and
// its validation. Loading from files, environment and flags lives in
// internal/cli/config.
package config

// KeyEntry assigns an encryption key to one database file name.
type KeyEntry struct {
	File string `koanf:"file" yaml:"file"`
	// Key is hex encoded. An empty key opens the file without a key even if
	// a default key is configured.
	Key string `koanf:"key" yaml:"key"`
}

// Config holds every configuration option.
type Config struct {
	Roots          []string   `koanf:"roots"`
	NamePattern    string     `koanf:"name_pattern"`
	Domain         string     `koanf:"domain"`
	WithMetaTables bool       `koanf:"with_meta_tables"`
	Limit          int        `koanf:"limit"`
	Order          string     `koanf:"order"`
	DateFormat     string     `koanf:"date_format"`
	TimeZone       string     `koanf:"time_zone"`
	DefaultKey     string     `koanf:"default_key"`
	EncryptionKeys []KeyEntry `koanf:"encryption_keys"`
	StrictQueries  bool       `koanf:"strict_queries"`
	Listen         string     `koanf:"listen"`
	Watch          bool       `koanf:"watch"`
	LogLevel       string     `koanf:"log_level"`
	Verbose        bool       `koanf:"verbose"`
	OutputFormat   string     `koanf:"output"`
}
