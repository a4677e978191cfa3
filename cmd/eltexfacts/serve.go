package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"eltexfacts/internal/handler"
	"eltexfacts/internal/hub"
	"eltexfacts/internal/service"
	"eltexfacts/internal/watcher"
)

func (a *appEnv) serveCmd() *cobra.Command {
	var (
		addr     string
		interval time.Duration
		watch    bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with periodic collection and Prometheus metrics",
		Long: `Run the HTTP API with periodic collection and Prometheus metrics.

Endpoints:
	/api/...     device facts and stored snapshots
	/api/events  collection events as server-sent events
	/metrics     Prometheus metrics built from the latest snapshots
	/healthz     liveness`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			if !cmd.Flags().Changed("interval") {
				interval = a.cfg.Collector.Interval.Duration()
			}
			return a.serve(cmd.Context(), addr, interval, watch && a.cfgPath != "")
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default http.addr from the config)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Collection interval, 0 disables (default collector.interval from the config)")
	cmd.Flags().BoolVar(&watch, "watch", true, "Reload the device inventory when the config file changes")
	return cmd
}

func (a *appEnv) serve(ctx context.Context, addr string, interval time.Duration, watch bool) error {
	log := a.log.WithField("component", "server")

	repo, err := a.openRepo()
	if err != nil {
		return err
	}
	defer repo.Close()
	log.WithField("path", a.cfg.Database.Path).Info("Database opened")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		service.NewFactsCollector(repo, a.log.WithField("component", "metrics")),
	)
	metrics := service.NewMetrics(reg)

	eventBus := service.NewEventBus()
	sseHub := hub.New(a.log.WithField("component", "hub"))
	go sseHub.Run(ctx)

	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventChan:
				sseHub.Broadcast(string(event.Type), event.Device, event)
			}
		}
	}()

	collector := a.collector(repo, service.WithMetrics(metrics), service.WithEvents(eventBus))

	mux := http.NewServeMux()
	handler.NewFactsHandler(a.inv, collector, repo, a.log.WithField("component", "api")).Register(mux)
	mux.Handle("GET /api/events", sseHub)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.Chain(mux, handler.Recover(log), handler.Logger(log)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: /api/events streams and live collection can run long
	}

	scheduler := service.NewScheduler(collector, a.inv.Names(), interval)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if watch {
		w := watcher.New(a.cfgPath, func() {
			if _, err := a.inv.Reload(); err != nil {
				log.WithError(err).Warn("Config reload failed, keeping the previous inventory")
				return
			}
			names := a.inv.Names()
			scheduler.SetDevices(names)
			log.WithField("devices", len(names)).Info("Inventory reloaded")
		}).WithLogger(a.log.WithField("component", "watcher"))
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("Config watcher stopped")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(a.inv.Config().LogFields()).WithField("addr", addr).Info("Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server stopped")
	return nil
}
