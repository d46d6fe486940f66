// Package config loads hub onboarding configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultRegistryPath   = "voltlink-registrations.json"
	DefaultFlowTTL        = 15 * time.Minute
)

// Config errors.
var (
	ErrInvalidTimeout = errors.New("connect_timeout must be positive")
	ErrMissingPath    = errors.New("registry_path must not be empty")
	ErrInvalidFlowTTL = errors.New("flow_ttl must be positive")
)

// Duration wraps time.Duration with YAML string parsing ("10s", "1m30s").
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config holds onboarding settings for the hub and the CLI.
type Config struct {
	// Port overrides the well-known charger service port. Zero keeps the
	// default.
	Port uint16 `yaml:"port,omitempty"`

	// ConnectTimeout bounds each authenticate round trip.
	ConnectTimeout Duration `yaml:"connect_timeout,omitempty"`

	// RegistryPath is the JSON registrations file.
	RegistryPath string `yaml:"registry_path,omitempty"`

	// Interface restricts mDNS browsing to one network interface.
	// Empty means all interfaces.
	Interface string `yaml:"interface,omitempty"`

	// AuditPath is the onboarding audit trail file. Empty disables the
	// trail.
	AuditPath string `yaml:"audit_path,omitempty"`

	// FlowTTL is how long an onboarding attempt may sit idle before it is
	// abandoned.
	FlowTTL Duration `yaml:"flow_ttl,omitempty"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		ConnectTimeout: Duration(DefaultConnectTimeout),
		RegistryPath:   DefaultRegistryPath,
		FlowTTL:        Duration(DefaultFlowTTL),
	}
}

// Load reads a YAML config file, filling unset fields with defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	if c.ConnectTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RegistryPath == "" {
		return ErrMissingPath
	}
	if c.FlowTTL <= 0 {
		return ErrInvalidFlowTTL
	}
	return nil
}
