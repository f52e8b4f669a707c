// Runner configuration.
//
// Zero values select defaults, applied when the runner is created. The
// serializable part of Config can be kept in a YAML file; loggers,
// registries and tracers are set in code.
package varia

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Storage backends accepted by Config.Backend.
const (
	BackendFS     = "fs"
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendPebble = "pebble"
)

// Default values for zero Config fields.
const (
	DefaultWriteAttempts = 3
	DefaultWorkers       = 16
)

// Config holds runner configuration options.
type Config struct {
	Backend       string `yaml:"backend"`        // fs (default), memory, bolt, sqlite, pebble
	Path          string `yaml:"path"`           // Directory (fs, pebble) or database file (bolt, sqlite)
	Codec         string `yaml:"codec"`          // json (default), cbor, msgpack
	Compress      bool   `yaml:"compress"`       // Wrap the codec in zstd
	VerifyWrite   bool   `yaml:"verify_write"`   // Read back and compare checksums after every write
	WriteAttempts int    `yaml:"write_attempts"` // Verified write attempts (default 3)
	Checksum      int    `yaml:"checksum"`       // 1=CRC32C, 2=xxHash3, 3=Blake2b
	Workers       int    `yaml:"workers"`        // Async I/O pool size (default 16)
	SyncWrites    bool   `yaml:"sync_writes"`    // fsync after writes where the backend supports it

	Logger     *zap.Logger           `yaml:"-"` // default: no-op
	Registerer prometheus.Registerer `yaml:"-"` // metrics are not registered when nil
	Tracer     trace.Tracer          `yaml:"-"` // default: no-op
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the serializable part of cfg to path as YAML.
func SaveConfig(cfg Config, path string) error {
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.Backend == "" {
		c.Backend = BackendFS
	}
	if c.Codec == "" {
		c.Codec = "json"
	}
	if c.WriteAttempts == 0 {
		c.WriteAttempts = DefaultWriteAttempts
	}
	if c.Checksum == 0 {
		c.Checksum = AlgCRC32C
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

func (c Config) validate() error {
	if c.WriteAttempts < 1 {
		return fmt.Errorf("varia: write attempts must be positive, got %d", c.WriteAttempts)
	}
	if !validAlg(c.Checksum) {
		return fmt.Errorf("varia: unknown checksum algorithm %d", c.Checksum)
	}
	if c.Workers < 1 {
		return fmt.Errorf("varia: workers must be positive, got %d", c.Workers)
	}
	return nil
}
