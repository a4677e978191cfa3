package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"eltexfacts/internal/channel"
	"eltexfacts/internal/domain"
	"eltexfacts/internal/driver"
)

var kindNames = func() string {
	names := make([]string, 0, len(domain.AllKinds()))
	for _, k := range domain.AllKinds() {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}()

func parseKinds(args []string) ([]domain.FactKind, error) {
	if len(args) == 0 {
		return domain.AllKinds(), nil
	}
	kinds := make([]domain.FactKind, 0, len(args))
	for _, a := range args {
		k, err := domain.ParseFactKind(a)
		if err != nil {
			return nil, fmt.Errorf("%w (want one of %s)", err, kindNames)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// gather runs kinds on d. A single kind yields its bare value; several
// yield an unsaved snapshot that also carries the per-kind errors.
func gather(ctx context.Context, d *driver.Driver, device string, kinds []domain.FactKind) (any, error) {
	if len(kinds) == 1 {
		v, err := d.Fact(ctx, kinds[0])
		if err != nil {
			return nil, err
		}
		return v, nil
	}

	snap := &domain.Snapshot{Device: device, CollectedAt: time.Now().UTC()}
	var result *multierror.Error
	for _, kind := range kinds {
		v, err := d.Fact(ctx, kind)
		if err != nil {
			snap.RecordError(kind, err)
			result = multierror.Append(result, fmt.Errorf("%s: %w", kind, err))
			continue
		}
		if err := snap.Set(kind, v); err != nil {
			return nil, err
		}
	}
	return snap, result.ErrorOrNil()
}

// renderPartial renders v when there is something to show and returns err
func (a *appEnv) renderPartial(v any, err error) error {
	if v != nil {
		if rerr := a.render(v); rerr != nil {
			return rerr
		}
	}
	return err
}

func (a *appEnv) getCmd() *cobra.Command {
	var vrf string
	cmd := &cobra.Command{
		Use:   "get <device> [kind...]",
		Short: "Query facts from a device without storing them",
		Long: `Query facts from a device without storing them.

Kinds: ` + kindNames + `.
With no kind every fact is collected into one report.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(args[1:])
			if err != nil {
				return err
			}
			device := args[0]

			var v any
			err = a.collector(nil).Session(cmd.Context(), device, func(d *driver.Driver) error {
				if vrf != "" && len(kinds) == 1 && kinds[0] == domain.KindARP {
					entries, err := d.GetARPTable(cmd.Context(), vrf)
					if err != nil {
						return err
					}
					v = entries
					return nil
				}
				var err error
				v, err = gather(cmd.Context(), d, device, kinds)
				return err
			})
			return a.renderPartial(v, err)
		},
	}
	cmd.Flags().StringVar(&vrf, "vrf", "", "VRF for arp_table")
	return cmd
}

func (a *appEnv) parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <fixture> [kind...]",
		Short: "Run fact parsers against a recorded fixture file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(args[1:])
			if err != nil {
				return err
			}
			replay, err := channel.LoadReplay(args[0])
			if err != nil {
				return err
			}
			d := driver.New(replay, driver.WithLogger(a.log.WithField("fixture", args[0])))
			v, err := gather(cmd.Context(), d, args[0], kinds)
			return a.renderPartial(v, err)
		},
	}
}

func (a *appEnv) cliCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cli <device> <command>...",
		Short: "Run show commands and print their raw output",
		Example: `  eltexfacts cli sw1 "show clock" "show spanning-tree"`,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]string
			err := a.collector(nil).Session(cmd.Context(), args[0], func(d *driver.Driver) error {
				var err error
				out, err = d.CLI(cmd.Context(), args[1:])
				return err
			})
			if err != nil {
				return err
			}
			if a.output == "table" {
				return renderCLI(a.stdout, args[1:], out)
			}
			return a.render(out)
		},
	}
}

func (a *appEnv) configsCmd() *cobra.Command {
	var retrieve string
	cmd := &cobra.Command{
		Use:   "configs <device>",
		Short: "Print the running and startup configurations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfgs *domain.ConfigSet
			err := a.collector(nil).Session(cmd.Context(), args[0], func(d *driver.Driver) error {
				var err error
				cfgs, err = d.GetConfig(cmd.Context(), retrieve)
				return err
			})
			if err != nil {
				return err
			}
			return a.render(cfgs)
		},
	}
	cmd.Flags().StringVar(&retrieve, "retrieve", "all", "Datastore: all, running, startup or candidate")
	return cmd
}

func (a *appEnv) pingCmd() *cobra.Command {
	var opts driver.PingOptions
	cmd := &cobra.Command{
		Use:   "ping <device> <destination>",
		Short: "Ping a destination from the device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res *domain.PingResult
			err := a.collector(nil).Session(cmd.Context(), args[0], func(d *driver.Driver) error {
				var err error
				res, err = d.Ping(cmd.Context(), args[1], opts)
				return err
			})
			if err != nil {
				return err
			}
			return a.render(res)
		},
	}
	cmd.Flags().StringVar(&opts.Source, "source", "", "Source address or interface")
	cmd.Flags().IntVar(&opts.Size, "size", 0, "Packet size in bytes")
	cmd.Flags().IntVar(&opts.Count, "count", 0, "Number of echo requests")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Per-probe timeout")
	cmd.Flags().StringVar(&opts.VRF, "vrf", "", "VRF to ping from")
	return cmd
}

func (a *appEnv) recordCmd() *cobra.Command {
	var withConfig bool
	cmd := &cobra.Command{
		Use:   "record <device> <fixture>",
		Short: "Capture command output from a device into a fixture file",
		Long: `Capture command output from a device into a fixture file.

Every fact operation is run once and each successful command output is
saved. The fixture can be replayed with "parse" or referenced from a
device entry's fixture field.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			device, path := args[0], args[1]
			log := a.log.WithField("device", device)

			ch, err := a.opener()(ctx, device)
			if err != nil {
				return err
			}
			defer ch.Close()

			rec := channel.NewRecorder(ch)
			d := driver.New(rec, driver.WithLogger(log))

			var model string
			for _, kind := range domain.AllKinds() {
				v, err := d.Fact(ctx, kind)
				if err != nil {
					log.WithError(err).WithField("kind", kind).Warn("Fact operation failed, fixture will be incomplete")
					continue
				}
				if f, ok := v.(*domain.Facts); ok {
					model = f.Model
				}
			}
			if withConfig {
				if _, err := d.GetConfig(ctx, "all"); err != nil {
					log.WithError(err).Warn("Failed to read configurations")
				}
			}

			fixture := rec.Fixture(device, model)
			if err := channel.SaveFixture(path, fixture); err != nil {
				return err
			}
			log.WithFields(logrus.Fields{"path": path, "commands": len(fixture.Commands)}).Info("Fixture saved")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withConfig, "with-config", false, "Also record running and startup configurations")
	return cmd
}
