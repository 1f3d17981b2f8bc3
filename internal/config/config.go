package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when neither the config file nor a flag sets a value.
const (
	DefaultAddr            = ":3000"
	DefaultDataPath        = "data/db.json"
	DefaultShutdownTimeout = 5 * time.Second
)

// ServerConfig holds service settings loaded from usercrud.yml.
type ServerConfig struct {
	// Addr is the listen address of the users API.
	Addr string `yaml:"addr,omitempty"`

	// DataPath is the JSON file holding the user collection.
	DataPath string `yaml:"dataPath,omitempty"`

	// PublicDir overrides the embedded landing page with a directory on disk.
	PublicDir string `yaml:"publicDir,omitempty"`

	// MCPAddr, when set, also serves the MCP tools over HTTP on this address.
	MCPAddr string `yaml:"mcpAddr,omitempty"`

	// ShutdownTimeout bounds graceful shutdown, e.g. "5s".
	ShutdownTimeout Duration `yaml:"shutdownTimeout,omitempty"`

	Verbose bool `yaml:"verbose,omitempty"`

	// Telemetry enables OpenTelemetry instrumentation of the record store
	// using the global providers.
	Telemetry bool `yaml:"telemetry,omitempty"`
}

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Load attempts to read usercrud.yml or usercrud.yaml from the given
// directory. Returns a config holding only defaults (not an error) if no
// config file exists.
func Load(dir string) (*ServerConfig, error) {
	for _, name := range []string{"usercrud.yml", "usercrud.yaml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return LoadFile(path)
	}
	cfg := &ServerConfig{}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadFile reads the config at path. Unlike Load, a missing file is an error.
func LoadFile(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *ServerConfig) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.DataPath == "" {
		c.DataPath = DefaultDataPath
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
}
