// Package config loads the optional rdfio TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/aleksaelezovic/rdfio/pkg/rdf"
)

// Read holds defaults for the read side.
type Read struct {
	// Graph is an IRI, or "source" for the input's own IRI.
	Graph             string `toml:"graph"`
	Base              string `toml:"base"`
	FreebaseNamespace string `toml:"freebase_namespace"`
}

// Write holds defaults for the write side.
type Write struct {
	Pretty           bool   `toml:"pretty"`
	Nest             bool   `toml:"nest"`
	Spill            bool   `toml:"spill"`
	SpillDir         string `toml:"spill_dir"`
	CompressionLevel int    `toml:"compression_level"`
}

type Config struct {
	Read       Read              `toml:"read"`
	Write      Write             `toml:"write"`
	Namespaces map[string]string `toml:"namespaces"`

	// Undecoded lists keys present in the file that no field consumed.
	Undecoded []string `toml:"-"`

	order []string
}

// DefaultPath is $XDG_CONFIG_HOME/rdfio/config.toml, or the platform
// equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "rdfio", "config.toml")
}

// Load reads the file at path. A missing file yields an empty Config.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	for _, key := range md.Keys() {
		if len(key) == 2 && key[0] == "namespaces" {
			cfg.order = append(cfg.order, key[1])
		}
	}
	for _, key := range md.Undecoded() {
		cfg.Undecoded = append(cfg.Undecoded, key.String())
	}
	return cfg, nil
}

// NamespaceMap returns the [namespaces] table in file order.
func (c *Config) NamespaceMap() *rdf.NamespaceMap {
	m := rdf.NewNamespaceMap()
	for _, prefix := range c.order {
		if iri, ok := c.Namespaces[prefix]; ok {
			m.Set(prefix, iri)
		}
	}
	return m
}
