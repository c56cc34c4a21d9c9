package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of layoutpub.yaml.
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Lock          LockConfig          `yaml:"lock"`
	Archive       ArchiveConfig       `yaml:"archive"`
	Remarks       RemarksConfig       `yaml:"remarks"`
	Logging       LoggingConfig       `yaml:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	SwitchLibrary SwitchLibraryConfig `yaml:"switchLibrary"`
	Geocoding     GeocodingConfig     `yaml:"geocoding"`
	OID           OIDConfig           `yaml:"oid"`
}

// StorageConfig selects the layout store backend.
type StorageConfig struct {
	Driver      string `yaml:"driver"` // memory|sqlite|postgres
	SQLitePath  string `yaml:"sqlitePath,omitempty"`
	PostgresDSN string `yaml:"postgresDsn,omitempty"`
}

// LockConfig selects the named lock implementation and hold bounds.
type LockConfig struct {
	Driver          string   `yaml:"driver"` // memory|postgres
	PublicationHold Duration `yaml:"publicationHold"`
	RemarksHold     Duration `yaml:"remarksHold"`
}

// ArchiveConfig selects where publication reports are archived. An empty
// driver disables archiving.
type ArchiveConfig struct {
	Driver string   `yaml:"driver,omitempty"` // ""|memory|fs|s3
	FSRoot string   `yaml:"fsRoot,omitempty"`
	S3     S3Config `yaml:"s3,omitempty"`
}

// S3Config addresses an S3 compatible bucket.
type S3Config struct {
	Bucket          string `yaml:"bucket,omitempty"`
	Region          string `yaml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	PathStyle       bool   `yaml:"pathStyle,omitempty"`
	AccessKeyID     string `yaml:"accessKeyId,omitempty"`
	SecretAccessKey string `yaml:"secretAccessKey,omitempty"`
}

// RemarksConfig bounds the geometry change remark job.
type RemarksConfig struct {
	BatchSize int `yaml:"batchSize"`
	Workers   int `yaml:"workers"`
}

// LoggingConfig configures the slog handler installed by the CLI.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// MetricsConfig configures operation metrics.
type MetricsConfig struct {
	Exporter  string `yaml:"exporter"` // prometheus|expvar
	Namespace string `yaml:"namespace"`
}

// SwitchLibraryConfig points at a structure catalogue overriding the embedded one.
type SwitchLibraryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// GeocodingConfig sizes the geocoding context cache.
type GeocodingConfig struct {
	CacheSize int `yaml:"cacheSize"`
}

// OIDConfig configures the local external id issuer.
type OIDConfig struct {
	Prefix string `yaml:"prefix"`
}

// Duration wraps time.Duration so YAML can carry values such as "30m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }
