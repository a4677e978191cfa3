package config

import (
	"sync"
)

// Inventory holds the active config and lets a reload swap it while
// readers are running
type Inventory struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewInventory wraps cfg, loaded from path
func NewInventory(cfg *Config, path string) *Inventory {
	return &Inventory{cfg: cfg, path: path}
}

// Config returns the current config. Callers must not modify it.
func (i *Inventory) Config() *Config {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.cfg
}

// Path returns the file the config was loaded from, empty for defaults
func (i *Inventory) Path() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.path
}

// Devices returns a copy of the device list
func (i *Inventory) Devices() []DeviceConfig {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return append([]DeviceConfig(nil), i.cfg.Devices...)
}

// Names returns the device names in inventory order
func (i *Inventory) Names() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	names := make([]string, 0, len(i.cfg.Devices))
	for _, d := range i.cfg.Devices {
		names = append(names, d.Name)
	}
	return names
}

// Device looks name up in the current config
func (i *Inventory) Device(name string) (DeviceConfig, error) {
	return i.Config().Device(name)
}

// Reload reads the config file again. The current config stays in place
// when the file is missing or invalid.
func (i *Inventory) Reload() (*Config, error) {
	path := i.Path()
	cfg, _, err := LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	i.mu.Lock()
	i.cfg = cfg
	i.mu.Unlock()
	return cfg, nil
}
