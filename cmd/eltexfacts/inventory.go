package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"eltexfacts/internal/codec"
	"eltexfacts/internal/config"
	"eltexfacts/internal/repository"
)

func (a *appEnv) inventoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Exchange the device inventory with Ansible",
	}
	cmd.AddCommand(a.inventoryExportCmd(), a.inventoryImportCmd())
	return cmd
}

func (a *appEnv) inventoryExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the inventory as Ansible YAML, with facts from the latest snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			hosts := make([]codec.InventoryHost, 0, len(a.cfg.Devices))
			for _, d := range a.cfg.Devices {
				if d.Host == "" {
					continue
				}
				host := codec.InventoryHost{Name: d.Name, Host: d.Host, Port: d.Port}
				snap, err := repo.LatestSnapshot(cmd.Context(), d.Name)
				switch {
				case err == nil:
					host.Facts = snap.Facts
				case !errors.Is(err, repository.ErrNotFound):
					return err
				}
				hosts = append(hosts, host)
			}
			return codec.NewAnsibleCodec().Export(hosts, a.stdout)
		},
	}
}

func (a *appEnv) inventoryImportCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <inventory.yaml>",
		Short: "Add the hosts of an Ansible inventory to the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			hosts, err := codec.NewAnsibleCodec().ParseInventory(f)
			if err != nil {
				return err
			}

			var added int
			for _, h := range hosts {
				if _, err := a.cfg.Device(h.Name); err == nil {
					a.log.WithField("device", h.Name).Debug("Already in the inventory")
					continue
				}
				a.cfg.Devices = append(a.cfg.Devices, config.DeviceConfig{
					Name: h.Name,
					Host: h.Host,
					Port: h.Port,
				})
				added++
				fmt.Fprintf(a.stdout, "+ %s (%s)\n", h.Name, h.Host)
			}
			if added == 0 || dryRun {
				return nil
			}

			path := a.cfgPath
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if err := a.cfg.Save(path); err != nil {
				return err
			}
			a.log.WithField("path", path).Infof("Imported %d devices", added)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the hosts that would be added without saving")
	return cmd
}
