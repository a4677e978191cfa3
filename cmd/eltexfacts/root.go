package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"eltexfacts/internal/channel"
	"eltexfacts/internal/codec"
	"eltexfacts/internal/config"
	"eltexfacts/internal/repository/sqlite"
	"eltexfacts/internal/service"
)

// appEnv holds state shared by every subcommand
type appEnv struct {
	cfgFile  string
	logLevel string
	output   string

	cfg     *config.Config
	cfgPath string
	inv     *config.Inventory
	log     *logrus.Logger
	stdout  io.Writer
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	app := &appEnv{log: logrus.StandardLogger(), stdout: stdout}
	root := &cobra.Command{
		Use:   "eltexfacts",
		Short: "Collect structured facts from Eltex MES switches.",
		Long: `Collect structured facts from Eltex MES switches over SSH.

Devices are listed in the config file. Facts can be fetched live, collected
into the snapshot database, or served over HTTP with Prometheus metrics:

	eltexfacts get sw1 facts interfaces
	eltexfacts collect --all
	eltexfacts serve
`,
		SilenceUsage:      true,
		PersistentPreRunE: app.load,
	}

	root.PersistentFlags().StringVarP(&app.cfgFile, "config", "c", "", "Config file. Searched in $ELTEXFACTS_CONFIG, ./eltexfacts.yaml and the user config dir when empty")
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "Override log.level from the config file")
	root.PersistentFlags().StringVarP(&app.output, "output", "o", "table", "Output format: table, json or yaml")

	root.AddCommand(
		app.getCmd(),
		app.parseCmd(),
		app.collectCmd(),
		app.showCmd(),
		app.historyCmd(),
		app.devicesCmd(),
		app.serveCmd(),
		app.discoverCmd(),
		app.inventoryCmd(),
		app.cliCmd(),
		app.configsCmd(),
		app.pingCmd(),
		app.recordCmd(),
	)
	return root
}

// load reads the config file and sets up logging
func (a *appEnv) load(cmd *cobra.Command, args []string) error {
	var err error
	if a.cfgFile != "" {
		a.cfg, a.cfgPath, err = config.LoadFromPath(a.cfgFile)
	} else {
		a.cfg, a.cfgPath, err = config.Load()
	}
	if err != nil {
		return err
	}

	a.inv = config.NewInventory(a.cfg, a.cfgPath)

	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	if err := a.cfg.Log.ConfigureLogger(a.log, os.Stderr); err != nil {
		return err
	}

	switch a.output {
	case "table", "json", "yaml", "yml":
	default:
		return fmt.Errorf("unknown output format %q", a.output)
	}

	if a.cfgPath != "" {
		a.log.WithField("path", a.cfgPath).Debug("Loaded config")
	}
	return nil
}

// opener dials devices from the inventory as it is at dial time
func (a *appEnv) opener() service.Opener {
	return func(ctx context.Context, name string) (channel.Channel, error) {
		cfg := a.inv.Config()
		dev, err := cfg.Device(name)
		if err != nil {
			return nil, err
		}
		return channel.Open(ctx, dev, cfg.SSH, a.cfgPath)
	}
}

// collector builds a collector; repo may be nil for live queries
func (a *appEnv) collector(repo *sqlite.Repository, opts ...service.Option) *service.Collector {
	base := []service.Option{
		service.WithLogger(a.log.WithField("component", "collector")),
		service.WithConcurrency(a.cfg.Collector.MaxConcurrent),
		service.WithRetention(a.cfg.Collector.Retention),
	}
	if repo == nil {
		return service.NewCollector(a.opener(), nil, append(base, opts...)...)
	}
	return service.NewCollector(a.opener(), repo, append(base, opts...)...)
}

func (a *appEnv) openRepo() (*sqlite.Repository, error) {
	repo, err := sqlite.New(a.cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", a.cfg.Database.Path, err)
	}
	return repo, nil
}

// render writes v in the selected output format
func (a *appEnv) render(v any) error {
	if a.output == "table" {
		return renderTable(a.stdout, v)
	}
	exp, err := codec.ForFormat(a.output)
	if err != nil {
		return err
	}
	return exp.Export(v, a.stdout)
}

// allDevices returns every inventory name
func (a *appEnv) allDevices() []string {
	return a.inv.Names()
}
