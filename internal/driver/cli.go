package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eltexfacts/internal/domain"
)

// CLI runs arbitrary commands and returns their raw output keyed by command
func (d *Driver) CLI(ctx context.Context, commands []string) (map[string]string, error) {
	if len(commands) == 0 {
		return nil, errors.New("cli: no commands given")
	}
	out := make(map[string]string, len(commands))
	for _, cmd := range commands {
		res, err := d.run(ctx, cmd)
		if err != nil {
			return nil, err
		}
		out[cmd] = res
	}
	return out, nil
}

// GetConfig retrieves "running", "startup" or "all" configurations.
// Candidate is always empty.
func (d *Driver) GetConfig(ctx context.Context, retrieve string) (*domain.ConfigSet, error) {
	retrieve = strings.ToLower(strings.TrimSpace(retrieve))
	if retrieve == "" {
		retrieve = "all"
	}

	var cfg domain.ConfigSet
	switch retrieve {
	case "running", "startup", "all":
	case "candidate":
		return &cfg, nil
	default:
		return nil, fmt.Errorf("get config: unknown datastore %q", retrieve)
	}

	if retrieve == "running" || retrieve == "all" {
		out, err := d.run(ctx, cmdShowRunning)
		if err != nil {
			return nil, err
		}
		cfg.Running = out
	}
	if retrieve == "startup" || retrieve == "all" {
		out, err := d.run(ctx, cmdShowStartup)
		if err != nil {
			return nil, err
		}
		cfg.Startup = out
	}
	return &cfg, nil
}

// IsAlive sends an empty command and reports whether the channel answered
func (d *Driver) IsAlive(ctx context.Context) bool {
	_, err := d.run(ctx, "")
	return err == nil
}
