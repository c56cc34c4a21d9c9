// Package config loads layoutpub settings.
//
// The config file is looked up in this order:
//  1. the path passed on the command line
//  2. $LAYOUTPUB_CONFIG
//  3. ./layoutpub.yaml
//
// Without a file the defaults apply. LAYOUTPUB_* environment variables
// override individual settings either way.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigPath names an explicit config file.
	EnvConfigPath = "LAYOUTPUB_CONFIG"
	// ConfigFileName is looked up in the working directory.
	ConfigFileName = "layoutpub.yaml"
)

// Defaults.
const (
	DefaultStorageDriver   = "sqlite"
	DefaultSQLitePath      = "./layoutpub.db"
	DefaultLockDriver      = "memory"
	DefaultPublicationHold = 30 * time.Minute
	DefaultRemarksHold     = 10 * time.Minute
	DefaultRemarkBatchSize = 100
	DefaultRemarkWorkers   = 4
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultMetricsExporter = "prometheus"
	DefaultMetricsNS       = "layoutpub"
	DefaultGeocodingCache  = 256
	DefaultOIDPrefix       = "1.2.246.578.13"
	DefaultArchiveFSRoot   = "./archive"
)

// Load reads the config at explicit, or the first file found on the search
// path, applies defaults and environment overrides, and returns the path used.
func Load(explicit string) (*Config, string, error) {
	path := explicit
	if path == "" {
		path = FindConfigPath()
	}
	if path == "" {
		cfg := DefaultConfig()
		if err := cfg.applyEnv(os.LookupEnv); err != nil {
			return nil, "", err
		}
		return cfg, "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, path, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Parse decodes YAML and fills in defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the settings used without a config file.
func DefaultConfig() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = DefaultStorageDriver
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = DefaultSQLitePath
	}
	if c.Lock.Driver == "" {
		c.Lock.Driver = DefaultLockDriver
	}
	if c.Lock.PublicationHold == 0 {
		c.Lock.PublicationHold = Duration(DefaultPublicationHold)
	}
	if c.Lock.RemarksHold == 0 {
		c.Lock.RemarksHold = Duration(DefaultRemarksHold)
	}
	if c.Archive.Driver == "fs" && c.Archive.FSRoot == "" {
		c.Archive.FSRoot = DefaultArchiveFSRoot
	}
	if c.Remarks.BatchSize <= 0 {
		c.Remarks.BatchSize = DefaultRemarkBatchSize
	}
	if c.Remarks.Workers <= 0 {
		c.Remarks.Workers = DefaultRemarkWorkers
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Metrics.Exporter == "" {
		c.Metrics.Exporter = DefaultMetricsExporter
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsNS
	}
	if c.Geocoding.CacheSize <= 0 {
		c.Geocoding.CacheSize = DefaultGeocodingCache
	}
	if c.OID.Prefix == "" {
		c.OID.Prefix = DefaultOIDPrefix
	}
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("LAYOUTPUB_STORAGE_DRIVER", &c.Storage.Driver)
	str("LAYOUTPUB_SQLITE_PATH", &c.Storage.SQLitePath)
	str("LAYOUTPUB_POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("LAYOUTPUB_LOCK_DRIVER", &c.Lock.Driver)
	str("LAYOUTPUB_ARCHIVE_DRIVER", &c.Archive.Driver)
	str("LAYOUTPUB_ARCHIVE_FS_ROOT", &c.Archive.FSRoot)
	str("LAYOUTPUB_ARCHIVE_S3_BUCKET", &c.Archive.S3.Bucket)
	str("LAYOUTPUB_ARCHIVE_S3_REGION", &c.Archive.S3.Region)
	str("LAYOUTPUB_ARCHIVE_S3_ENDPOINT", &c.Archive.S3.Endpoint)
	str("LAYOUTPUB_LOG_LEVEL", &c.Logging.Level)
	str("LAYOUTPUB_METRICS_EXPORTER", &c.Metrics.Exporter)
	if v, ok := lookup("LAYOUTPUB_ARCHIVE_S3_PATH_STYLE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LAYOUTPUB_ARCHIVE_S3_PATH_STYLE: %w", err)
		}
		c.Archive.S3.PathStyle = b
	}
	c.applyDefaults()
	return c.Validate()
}

// Validate rejects unknown drivers and levels.
func (c *Config) Validate() error {
	checks := []struct {
		field, value string
		allowed      []string
	}{
		{"storage.driver", c.Storage.Driver, []string{"memory", "sqlite", "postgres"}},
		{"lock.driver", c.Lock.Driver, []string{"memory", "postgres"}},
		{"archive.driver", c.Archive.Driver, []string{"", "memory", "fs", "s3"}},
		{"logging.level", c.Logging.Level, []string{"debug", "info", "warn", "error"}},
		{"logging.format", c.Logging.Format, []string{"text", "json"}},
		{"metrics.exporter", c.Metrics.Exporter, []string{"prometheus", "expvar"}},
	}
	for _, chk := range checks {
		if !slices.Contains(chk.allowed, chk.value) {
			return fmt.Errorf("invalid %s %q", chk.field, chk.value)
		}
	}
	if c.Archive.Driver == "s3" && c.Archive.S3.Bucket == "" {
		return fmt.Errorf("archive.s3.bucket required for s3 archive")
	}
	return nil
}

// FindConfigPath returns $LAYOUTPUB_CONFIG or ./layoutpub.yaml when the file
// exists, otherwise the empty string.
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" && fileExists(path) {
		return path
	}
	if fileExists(ConfigFileName) {
		return ConfigFileName
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
