package channel

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"eltexfacts/internal/config"
)

// Open returns a channel for dev: a Replay when the device names a fixture,
// an SSH session otherwise. configPath anchors relative fixture and key
// paths.
func Open(ctx context.Context, dev config.DeviceConfig, sshCfg config.SSHConfig, configPath string) (Channel, error) {
	if dev.Fixture != "" {
		return LoadReplay(config.ResolveRelative(configPath, dev.Fixture))
	}

	cfg := SSHConfig{
		Host:           dev.Host,
		Port:           dev.Port,
		Username:       dev.Username,
		Password:       dev.ResolvePassword(),
		Passphrase:     dev.Passphrase,
		KnownHostsFile: config.ResolveRelative(configPath, sshCfg.KnownHosts),
		ConnectTimeout: sshCfg.ConnectTimeout.Duration(),
		CommandTimeout: sshCfg.CommandTimeout.Duration(),
	}
	if dev.KeyFile != "" {
		key, err := os.ReadFile(config.ResolveRelative(configPath, dev.KeyFile))
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		cfg.PrivateKey = key
	}
	if sshCfg.Prompt != "" {
		re, err := regexp.Compile(sshCfg.Prompt)
		if err != nil {
			return nil, fmt.Errorf("prompt pattern: %w", err)
		}
		cfg.Prompt = re
	}

	ch, err := DialSSH(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", dev.Name, err)
	}
	return ch, nil
}
