package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"eltexfacts/internal/domain"
	"eltexfacts/internal/repository"
)

func (a *appEnv) collectCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "collect [device...]",
		Short: "Collect every fact from devices into the snapshot database",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices := args
			if all {
				devices = a.allDevices()
			}
			if len(devices) == 0 {
				return errors.New("name at least one device or pass --all")
			}
			for _, name := range devices {
				if _, err := a.cfg.Device(name); err != nil {
					return err
				}
			}

			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			snaps, err := a.collector(repo).CollectAll(cmd.Context(), devices)
			if rerr := a.render(snaps); rerr != nil {
				return rerr
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Collect every device in the inventory")
	return cmd
}

func (a *appEnv) showCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "show <device> [kind]",
		Short: "Show a stored snapshot, the latest one unless --id is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			var snap *domain.Snapshot
			if id != "" {
				snap, err = repo.GetSnapshot(cmd.Context(), id)
			} else {
				snap, err = repo.LatestSnapshot(cmd.Context(), args[0])
			}
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("no snapshot of %s, run collect first", args[0])
			}
			if err != nil {
				return err
			}
			if snap.Device != args[0] {
				return fmt.Errorf("snapshot %s belongs to %s", snap.ID, snap.Device)
			}

			if len(args) == 1 {
				return a.render(snap)
			}
			kind, err := domain.ParseFactKind(args[1])
			if err != nil {
				return err
			}
			v := snap.Get(kind)
			if v == nil {
				if msg, ok := snap.Errors[string(kind)]; ok {
					return fmt.Errorf("%s failed in snapshot %s: %s", kind, snap.ID, msg)
				}
				return fmt.Errorf("snapshot %s has no %s", snap.ID, kind)
			}
			return a.render(v)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Snapshot ID")
	return cmd
}

func (a *appEnv) historyCmd() *cobra.Command {
	var (
		limit int
		prune int
		wipe  bool
	)
	cmd := &cobra.Command{
		Use:   "history <device>",
		Short: "List stored snapshots of a device, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			device := args[0]

			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			switch {
			case wipe:
				n, err := a.collector(repo).DeleteDevice(ctx, device)
				if err != nil {
					return err
				}
				a.log.WithField("deleted", n).Infof("Removed snapshots of %s", device)
				return nil
			case prune > 0:
				n, err := repo.PruneSnapshots(ctx, device, prune)
				if err != nil {
					return err
				}
				a.log.WithField("pruned", n).Infof("Kept the newest %d snapshots of %s", prune, device)
			}

			snaps, err := repo.ListSnapshots(ctx, device, limit)
			if err != nil {
				return err
			}
			return a.render(snaps)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum snapshots to list, 0 for all")
	cmd.Flags().IntVar(&prune, "prune", 0, "Delete all but the newest N snapshots first")
	cmd.Flags().BoolVar(&wipe, "clear", false, "Delete every snapshot of the device")
	cmd.MarkFlagsMutuallyExclusive("prune", "clear")
	return cmd
}

// deviceRow is one inventory entry with its snapshot summary
type deviceRow struct {
	Name          string     `json:"name" yaml:"name"`
	Host          string     `json:"host,omitempty" yaml:"host,omitempty"`
	Port          int        `json:"port,omitempty" yaml:"port,omitempty"`
	Fixture       string     `json:"fixture,omitempty" yaml:"fixture,omitempty"`
	Snapshots     int        `json:"snapshots" yaml:"snapshots"`
	LastCollected *time.Time `json:"last_collected,omitempty" yaml:"last_collected,omitempty"`
}

func (a *appEnv) devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the inventory with stored snapshot counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			summaries, err := repo.ListDevices(cmd.Context())
			if err != nil {
				return err
			}
			byName := make(map[string]repository.DeviceSummary, len(summaries))
			for _, s := range summaries {
				byName[s.Device] = s
			}

			rows := make([]deviceRow, 0, len(a.cfg.Devices))
			for _, d := range a.cfg.Devices {
				row := deviceRow{Name: d.Name, Host: d.Host, Fixture: d.Fixture}
				if d.Host != "" {
					row.Port = d.Port
				}
				if s, ok := byName[d.Name]; ok {
					row.Snapshots = s.Snapshots
					last := s.LastCollected
					row.LastCollected = &last
				}
				rows = append(rows, row)
			}
			return a.render(rows)
		},
	}
}
