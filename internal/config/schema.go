package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version   int             `yaml:"version"`
	Devices   []DeviceConfig  `yaml:"devices"`
	SSH       SSHConfig       `yaml:"ssh"`
	Collector CollectorConfig `yaml:"collector"`
	Database  DatabaseConfig  `yaml:"database"`
	HTTP      HTTPConfig      `yaml:"http"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Log       LogConfig       `yaml:"log"`
}

// DeviceConfig describes one switch in the inventory.
// Fixture, when set, replays captured output instead of connecting.
type DeviceConfig struct {
	Name        string `yaml:"name"`
	Host        string `yaml:"host,omitempty"`
	Port        int    `yaml:"port,omitempty"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	PasswordEnv string `yaml:"password_env,omitempty"` // Env var holding the password
	KeyFile     string `yaml:"key_file,omitempty"`
	Passphrase  string `yaml:"passphrase,omitempty"`
	Fixture     string `yaml:"fixture,omitempty"`
}

// SSHConfig holds session settings shared by all devices
type SSHConfig struct {
	Username       string   `yaml:"username,omitempty"` // Default when a device sets none
	ConnectTimeout Duration `yaml:"connect_timeout"`
	CommandTimeout Duration `yaml:"command_timeout"`
	Prompt         string   `yaml:"prompt,omitempty"` // Regexp matched against the last output line
	KnownHosts     string   `yaml:"known_hosts,omitempty"`
}

// CollectorConfig tunes bulk collection
type CollectorConfig struct {
	MaxConcurrent int      `yaml:"max_concurrent"`
	Interval      Duration `yaml:"interval,omitempty"`  // serve mode; zero disables periodic collection
	Retention     int      `yaml:"retention,omitempty"` // snapshots kept per device; zero keeps all
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig holds the API listener settings
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// DiscoveryConfig holds nmap discovery settings
type DiscoveryConfig struct {
	Targets []string `yaml:"targets,omitempty"` // CIDRs or hosts to sweep
	Timeout Duration `yaml:"timeout"`
}

// LogConfig controls logrus output
type LogConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
