package service

import (
	"context"
	"sync"
	"time"
)

// Scheduler collects a fixed device list on an interval
type Scheduler struct {
	mu        sync.Mutex
	collector *Collector
	devices   []string
	interval  time.Duration
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewScheduler creates a scheduler. It does nothing until Start.
func NewScheduler(collector *Collector, devices []string, interval time.Duration) *Scheduler {
	return &Scheduler{
		collector: collector,
		devices:   devices,
		interval:  interval,
	}
}

// SetDevices replaces the device list from the next run on
func (s *Scheduler) SetDevices(devices []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = devices
}

// Start runs an initial collection and then one per interval until ctx
// ends or Stop is called. A non-positive interval disables the loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interval <= 0 || s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	log := s.collector.log.WithField("interval", s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.runOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Stopping collection loop")
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	log.WithField("devices", len(s.devices)).Info("Started collection loop")
}

// Stop cancels the loop and waits for a running collection to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.mu.Lock()
	devices := s.devices
	s.mu.Unlock()
	if len(devices) == 0 {
		return
	}

	snaps, err := s.collector.CollectAll(ctx, devices)
	if err != nil {
		s.collector.log.WithError(err).WithField("collected", len(snaps)).Warn("Scheduled collection had failures")
	}
}
