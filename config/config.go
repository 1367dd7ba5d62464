// Package config handles the operator's CLI defaults.
//
// Config is stored at $XDG_CONFIG_HOME/weft/config.yaml (defaults to
// ~/.config/weft/config.yaml). Everything in it is a default that the
// matching command-line flag overrides; a missing file means stock defaults.
// Credentials are never part of the config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"weft/internal/mesh"
	"weft/internal/ntpcheck"
)

// Config holds the operator's persistent CLI defaults.
type Config struct {
	// DataRoot is where mesh state lives on the anchor.
	DataRoot string `yaml:"data-root,omitempty"`
	// DefaultNet is used when --net is not given.
	DefaultNet string `yaml:"default-net,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	MTU        int    `yaml:"mtu,omitempty"`
	KeyBits    int    `yaml:"key-bits,omitempty"`
	// JournalPath locates the operation history database.
	JournalPath string `yaml:"journal-path,omitempty"`
	NTPPool     string `yaml:"ntp-pool,omitempty"`
}

// Path returns the config file location. It respects XDG_CONFIG_HOME,
// falling back to ~/.config/weft/config.yaml.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "weft", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "weft", "config.yaml")
}

// Load reads the config file. If the file does not exist, a Config with
// stock defaults is returned (not an error).
func Load() (*Config, error) {
	return load(Path())
}

func load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyDefaults()
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes the config to disk, creating directories as needed.
func (c *Config) Save() error {
	return c.save(Path())
}

func (c *Config) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DataRoot == "" {
		c.DataRoot = "/etc/tinc"
	}
	if c.Port <= 0 {
		c.Port = mesh.DefaultPort
	}
	if c.MTU <= 0 {
		c.MTU = mesh.DefaultMTU
	}
	if c.KeyBits <= 0 {
		c.KeyBits = mesh.DefaultKeyBits
	}
	if c.JournalPath == "" {
		c.JournalPath = filepath.Join(c.DataRoot, "weft-journal.db")
	}
	if c.NTPPool == "" {
		c.NTPPool = ntpcheck.DefaultPool
	}
}
