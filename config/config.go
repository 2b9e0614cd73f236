// Package config loads bindb.Options/TableOptions from a YAML file, the
// ambient configuration layer the core engine itself deliberately omits
// (schema and table tunables are supplied programmatically; this package
// is for the demo binary and integration tests that want a file-based
// config instead).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/reajuria/bindb"
)

// Config is the root YAML document shape.
type Config struct {
	Database string       `yaml:"database"`
	Dir      string       `yaml:"dir"`
	Tables   []TableEntry `yaml:"tables"`
}

// TableEntry names a table and the tunables cmd/bindb applies when it
// creates that table.
type TableEntry struct {
	Name              string `yaml:"name"`
	CacheSize         int    `yaml:"cache_size"`
	MaxPendingRecords int    `yaml:"max_pending_records"`
	MaxPendingBytes   int    `yaml:"max_pending_bytes"`
}

// TableOptions converts a TableEntry's tunables to bindb.TableOptions,
// falling back to bindb.DefaultTableOptions for any unset field.
func (e TableEntry) TableOptions() bindb.TableOptions {
	defaults := bindb.DefaultTableOptions()
	opts := bindb.TableOptions{
		CacheSize:         e.CacheSize,
		MaxPendingRecords: e.MaxPendingRecords,
		MaxPendingBytes:   e.MaxPendingBytes,
	}
	if opts.CacheSize == 0 {
		opts.CacheSize = defaults.CacheSize
	}
	if opts.MaxPendingRecords == 0 {
		opts.MaxPendingRecords = defaults.MaxPendingRecords
	}
	if opts.MaxPendingBytes == 0 {
		opts.MaxPendingBytes = defaults.MaxPendingBytes
	}
	return opts
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("config: %s: dir is required", path)
	}
	return &cfg, nil
}
