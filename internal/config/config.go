// Package config provides configuration management for eltexfacts.
//
// The config file holds the device inventory and runtime settings. Collected
// facts live in the database, never in the config file.
//
// Config file locations (priority order):
//  1. $ELTEXFACTS_CONFIG
//  2. ./eltexfacts.yaml
//  3. $XDG_CONFIG_HOME/eltexfacts/config.yaml
//  4. ~/.config/eltexfacts/config.yaml
//  5. /etc/eltexfacts/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrUnknownDevice is returned when a device name is not in the inventory
var ErrUnknownDevice = errors.New("unknown device")

// Load reads the first config file found by FindConfigPath. With no file
// it returns defaults and an empty path.
func Load() (*Config, string, error) {
	if path := FindConfigPath(); path != "" {
		return LoadFromPath(path)
	}
	return DefaultConfig(), "", nil
}

// LoadFromPath reads, defaults and validates the config at path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to path. The file is replaced by rename so a
// watcher never reads a partial write.
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// DefaultConfig is an empty inventory with every default applied
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.SSH.ConnectTimeout == 0 {
		c.SSH.ConnectTimeout = Duration(10 * time.Second)
	}
	if c.SSH.CommandTimeout == 0 {
		c.SSH.CommandTimeout = Duration(60 * time.Second)
	}
	if c.Collector.MaxConcurrent <= 0 {
		c.Collector.MaxConcurrent = 4
	}
	if c.Database.Path == "" {
		c.Database.Path = "./eltexfacts.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Discovery.Timeout == 0 {
		c.Discovery.Timeout = Duration(5 * time.Minute)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	for i := range c.Devices {
		if c.Devices[i].Port == 0 {
			c.Devices[i].Port = 22
		}
		if c.Devices[i].Username == "" {
			c.Devices[i].Username = c.SSH.Username
		}
	}
}

// Validate checks the inventory and patterns
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		switch {
		case d.Name == "":
			errs = append(errs, fmt.Errorf("device %d: name is required", i))
		case seen[d.Name]:
			errs = append(errs, fmt.Errorf("device %q: duplicate name", d.Name))
		}
		seen[d.Name] = true
		if d.Host == "" && d.Fixture == "" {
			errs = append(errs, fmt.Errorf("device %q: host or fixture is required", d.Name))
		}
	}
	if c.SSH.Prompt != "" {
		if _, err := regexp.Compile(c.SSH.Prompt); err != nil {
			errs = append(errs, fmt.Errorf("ssh.prompt: %w", err))
		}
	}
	if c.Collector.Retention < 0 {
		errs = append(errs, errors.New("collector.retention: must not be negative"))
	}
	if c.Collector.Interval < 0 {
		errs = append(errs, errors.New("collector.interval: must not be negative"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Device returns the inventory entry called name
func (c *Config) Device(name string) (DeviceConfig, error) {
	for _, d := range c.Devices {
		if d.Name == name {
			return d, nil
		}
	}
	return DeviceConfig{}, fmt.Errorf("%w: %q", ErrUnknownDevice, name)
}

// ResolvePassword returns the literal password, or the value of
// PasswordEnv when no literal is set
func (d DeviceConfig) ResolvePassword() string {
	if d.Password != "" {
		return d.Password
	}
	if d.PasswordEnv != "" {
		return os.Getenv(d.PasswordEnv)
	}
	return ""
}

// LogFields summarizes the config for a startup log line
func (c *Config) LogFields() logrus.Fields {
	return logrus.Fields{
		"devices":     len(c.Devices),
		"concurrency": c.Collector.MaxConcurrent,
		"interval":    c.Collector.Interval.Duration().String(),
		"retention":   c.Collector.Retention,
		"database":    c.Database.Path,
	}
}
