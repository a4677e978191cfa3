package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"eltexfacts/internal/channel"
	"eltexfacts/internal/domain"
	"eltexfacts/internal/driver"
	"eltexfacts/internal/repository"
)

// Opener returns a fresh channel to the named device
type Opener func(ctx context.Context, device string) (channel.Channel, error)

// Collector runs fact operations against devices and stores snapshots
type Collector struct {
	open      Opener
	repo      repository.Repository
	metrics   *Metrics
	events    *EventBus
	log       *logrus.Entry
	limit     int
	retention int
}

// Option configures a Collector
type Option func(*Collector)

// WithMetrics records operation metrics on m
func WithMetrics(m *Metrics) Option {
	return func(c *Collector) { c.metrics = m }
}

// WithEvents publishes collection events on bus
func WithEvents(bus *EventBus) Option {
	return func(c *Collector) { c.events = bus }
}

// WithLogger sets the logger
func WithLogger(log *logrus.Entry) Option {
	return func(c *Collector) { c.log = log }
}

// WithConcurrency bounds the number of devices CollectAll works on at once
func WithConcurrency(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithRetention keeps only the newest n snapshots per device after each
// save. Zero keeps all.
func WithRetention(n int) Option {
	return func(c *Collector) { c.retention = n }
}

// NewCollector creates a collector. repo may be nil, in which case
// snapshots are returned but not stored.
func NewCollector(open Opener, repo repository.Repository, opts ...Option) *Collector {
	c := &Collector{
		open:  open,
		repo:  repo,
		log:   logrus.WithField("component", "collector"),
		limit: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect runs every fact operation against device and stores the
// snapshot. A failed operation is recorded in the snapshot and reported
// in the returned error; the snapshot is returned whenever the device
// could be reached.
func (c *Collector) Collect(ctx context.Context, device string) (*domain.Snapshot, error) {
	log := c.log.WithField("device", device)
	c.events.Publish(Event{Type: EventCollectionStarted, Device: device})

	snap := &domain.Snapshot{
		ID:          uuid.NewString(),
		Device:      device,
		CollectedAt: time.Now().UTC(),
	}

	var result *multierror.Error
	err := c.Session(ctx, device, func(d *driver.Driver) error {
		for _, kind := range domain.AllKinds() {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := c.fact(ctx, d, kind)
			if err != nil {
				log.WithError(err).WithField("kind", kind).Warn("Fact operation failed")
				snap.RecordError(kind, err)
				result = multierror.Append(result, fmt.Errorf("%s: %w", kind, err))
				continue
			}
			if err := snap.Set(kind, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.metrics.collection(resultFailed)
		c.events.Publish(Event{Type: EventCollectionFailed, Device: device, Payload: CollectionPayload{Error: err.Error()}})
		return nil, fmt.Errorf("collect %s: %w", device, err)
	}

	switch {
	case len(snap.Errors) == 0:
		c.metrics.collection(resultOK)
	case len(snap.Errors) == len(domain.AllKinds()):
		c.metrics.collection(resultFailed)
	default:
		c.metrics.collection(resultPartial)
	}

	if c.repo != nil {
		if err := c.repo.SaveSnapshot(ctx, snap); err != nil {
			return snap, fmt.Errorf("save snapshot: %w", err)
		}
		if c.retention > 0 {
			if n, err := c.repo.PruneSnapshots(ctx, device, c.retention); err != nil {
				log.WithError(err).Warn("Failed to prune snapshots")
			} else if n > 0 {
				log.WithField("pruned", n).Debug("Pruned old snapshots")
			}
		}
	}

	log.WithFields(logrus.Fields{
		"snapshot": snap.ID,
		"errors":   len(snap.Errors),
	}).Info("Collection complete")
	c.events.Publish(Event{Type: EventCollectionCompleted, Device: device, Payload: CollectionPayload{
		SnapshotID: snap.ID,
		Errors:     snap.Errors,
	}})

	return snap, result.ErrorOrNil()
}

// CollectAll collects every device, at most limit at a time. The map holds
// a snapshot for each device that could be reached; the error aggregates
// every failure.
func (c *Collector) CollectAll(ctx context.Context, devices []string) (map[string]*domain.Snapshot, error) {
	var (
		mu     sync.Mutex
		snaps  = make(map[string]*domain.Snapshot, len(devices))
		result *multierror.Error
	)

	var g errgroup.Group
	g.SetLimit(c.limit)
	for _, device := range devices {
		g.Go(func() error {
			snap, err := c.Collect(ctx, device)
			mu.Lock()
			defer mu.Unlock()
			if snap != nil {
				snaps[device] = snap
			}
			if err != nil {
				result = multierror.Append(result, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return snaps, result.ErrorOrNil()
}

// Fact runs one fact operation live, without storing anything
func (c *Collector) Fact(ctx context.Context, device string, kind domain.FactKind) (any, error) {
	var v any
	err := c.Session(ctx, device, func(d *driver.Driver) error {
		var err error
		v, err = c.fact(ctx, d, kind)
		return err
	})
	return v, err
}

// Session opens a channel to device, hands a driver to fn and closes the
// channel afterwards
func (c *Collector) Session(ctx context.Context, device string, fn func(*driver.Driver) error) error {
	start := time.Now()
	ch, err := c.open(ctx, device)
	c.metrics.observe("open", time.Since(start), err)
	if err != nil {
		return err
	}
	defer func() {
		if err := ch.Close(); err != nil {
			c.log.WithError(err).WithField("device", device).Debug("Error closing channel")
		}
	}()

	return fn(driver.New(ch, driver.WithLogger(c.log.WithField("device", device))))
}

func (c *Collector) fact(ctx context.Context, d *driver.Driver, kind domain.FactKind) (any, error) {
	start := time.Now()
	v, err := d.Fact(ctx, kind)
	c.metrics.observe(string(kind), time.Since(start), err)
	return v, err
}

// DeleteDevice removes every stored snapshot of device
func (c *Collector) DeleteDevice(ctx context.Context, device string) (int64, error) {
	if c.repo == nil {
		return 0, nil
	}
	n, err := c.repo.DeleteSnapshots(ctx, device)
	if err != nil {
		return 0, err
	}
	c.events.Publish(Event{Type: EventSnapshotsDeleted, Device: device, Payload: map[string]int64{"deleted": n}})
	return n, nil
}
