package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"eltexfacts/internal/adapter"
	"eltexfacts/internal/config"
)

func (a *appEnv) discoverCmd() *cobra.Command {
	var (
		ports     string
		timeout   time.Duration
		eltexOnly bool
		skipPing  bool
		noVersion bool
		add       bool
	)
	cmd := &cobra.Command{
		Use:   "discover [target...]",
		Short: "Find SSH-reachable switches with nmap",
		Long: `Find SSH-reachable switches with nmap.

Targets are hosts, IPs or CIDR ranges and default to discovery.targets from
the config. Hosts are flagged as Eltex by MAC vendor, OUI or SSH banner.
With --add the Eltex hosts not yet in the inventory are appended to the
config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := args
			if len(targets) == 0 {
				targets = a.cfg.Discovery.Targets
			}
			if len(targets) == 0 {
				return errors.New("no targets given and discovery.targets is empty")
			}
			if timeout == 0 {
				timeout = a.cfg.Discovery.Timeout.Duration()
			}

			discoverer := adapter.NewNmapDiscoverer(
				adapter.WithTimeout(timeout),
				adapter.WithSSHPorts(ports),
				adapter.WithServiceDetection(!noVersion),
				adapter.WithSkipHostDiscovery(skipPing),
				adapter.WithEltexOnly(eltexOnly),
				adapter.WithLogger(a.log.WithField("component", "discovery")),
			)
			candidates, err := discoverer.Discover(cmd.Context(), targets)
			if err != nil {
				return err
			}
			if err := a.render(candidates); err != nil {
				return err
			}
			if add {
				return a.addCandidates(candidates)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&ports, "ports", "22", "SSH ports to probe, e.g. 22,2222 or 2200-2299")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Scan timeout (default discovery.timeout from the config)")
	cmd.Flags().BoolVar(&eltexOnly, "eltex-only", false, "Only report hosts identified as Eltex")
	cmd.Flags().BoolVar(&skipPing, "skip-ping", false, "Treat every target as up (nmap -Pn)")
	cmd.Flags().BoolVar(&noVersion, "no-version", false, "Skip SSH banner detection (nmap -sV)")
	cmd.Flags().BoolVar(&add, "add", false, "Append new Eltex hosts to the config file")
	return cmd
}

// addCandidates appends Eltex candidates whose address is not yet in the
// inventory and saves the config
func (a *appEnv) addCandidates(candidates []adapter.Candidate) error {
	hosts := make(map[string]bool, len(a.cfg.Devices))
	names := make(map[string]bool, len(a.cfg.Devices))
	for _, d := range a.cfg.Devices {
		hosts[d.Host] = true
		names[d.Name] = true
	}

	var added int
	for _, c := range candidates {
		if !c.Eltex || hosts[c.Address] {
			continue
		}
		name := c.Name
		for i := 2; names[name]; i++ {
			name = fmt.Sprintf("%s-%d", c.Name, i)
		}
		a.cfg.Devices = append(a.cfg.Devices, config.DeviceConfig{
			Name: name,
			Host: c.Address,
			Port: c.SSHPort,
		})
		hosts[c.Address] = true
		names[name] = true
		added++
	}
	if added == 0 {
		a.log.Info("No new Eltex hosts to add")
		return nil
	}

	path := a.cfgPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if err := a.cfg.Save(path); err != nil {
		return err
	}
	a.log.WithField("path", path).Infof("Added %d devices to the inventory", added)
	return nil
}
