package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "ELTEXFACTS_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "eltexfacts.yaml"
	// ConfigDirName is the directory under XDG and /etc
	ConfigDirName = "eltexfacts"
)

// userConfigDir is $XDG_CONFIG_HOME/eltexfacts, or ~/.config/eltexfacts
// when XDG_CONFIG_HOME is unset. Empty when neither can be determined.
func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, ConfigDirName)
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName)
	}
	return ""
}

// searchPaths lists config candidates, highest priority first
func searchPaths() []string {
	var paths []string
	if p := os.Getenv(EnvConfigPath); p != "" {
		paths = append(paths, p)
	}
	if abs, err := filepath.Abs(ConfigFileName); err == nil {
		paths = append(paths, abs)
	} else {
		paths = append(paths, ConfigFileName)
	}
	if dir := userConfigDir(); dir != "" {
		paths = append(paths, filepath.Join(dir, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" && os.Getenv("XDG_CONFIG_HOME") != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// FindConfigPath returns the first existing config file from the search
// order in the package doc, or "" when there is none. A stale
// $ELTEXFACTS_CONFIG falls through to the other locations.
func FindConfigPath() string {
	for _, p := range searchPaths() {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

// DefaultConfigPath is where a new config file is written when none was
// loaded: the user config dir, else the working directory.
func DefaultConfigPath() string {
	if dir := userConfigDir(); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	return ConfigFileName
}

// EnsureConfigDir creates the directory holding configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0o755)
}

// ResolveRelative resolves p against the directory of the config file so
// fixture and key paths in the inventory need not be absolute
func ResolveRelative(configPath, p string) string {
	if p == "" || filepath.IsAbs(p) || configPath == "" {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}
