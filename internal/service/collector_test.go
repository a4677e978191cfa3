package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eltexfacts/internal/channel"
	"eltexfacts/internal/domain"
	"eltexfacts/internal/driver"
	"eltexfacts/internal/repository/sqlite"
	"eltexfacts/internal/textparse"
)

// ============================================================================
// Test Helpers
// ============================================================================

// scriptedChannel answers commands from captured output
type scriptedChannel struct {
	mu      sync.Mutex
	outputs map[string]string
	errs    map[string]error
	closed  bool
}

func (s *scriptedChannel) Execute(_ context.Context, command string) (string, error) {
	if err := s.errs[command]; err != nil {
		return "", err
	}
	return s.outputs[command], nil
}

func (s *scriptedChannel) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var captured = map[string]string{
	"show system":               "show_system.txt",
	"show system id":            "show_system_id.txt",
	"show version":              "show_version.txt",
	"show interfaces status":    "show_interfaces_status.txt",
	"show vlan":                 "show_vlan.txt",
	"show interfaces":           "show_interfaces.txt",
	"show interfaces counters":  "show_interfaces_counters.txt",
	"show ip interface":         "show_ip_interface.txt",
	"show ipv6 interface brief": "show_ipv6_interface_brief.txt",
	"show arp":                  "show_arp.txt",
	"show mac address-table":    "show_mac_address_table.txt",
	"show lldp neighbors":       "show_lldp_neighbors.txt",
}

// mes2324 returns a channel replaying the driver's captured MES2324 output
func mes2324(t *testing.T) *scriptedChannel {
	t.Helper()
	outputs := make(map[string]string, len(captured))
	for cmd, file := range captured {
		data, err := os.ReadFile(filepath.Join("..", "driver", "testdata", file))
		require.NoError(t, err)
		outputs[cmd] = string(data)
	}
	return &scriptedChannel{outputs: outputs}
}

// openerFor serves the given channels by device name and counts opens
func openerFor(chans map[string]*scriptedChannel, opens *atomic.Int32) Opener {
	return func(_ context.Context, device string) (channel.Channel, error) {
		if opens != nil {
			opens.Add(1)
		}
		ch, ok := chans[device]
		if !ok {
			return nil, errors.New("dial tcp: connection refused")
		}
		return ch, nil
	}
}

func newTestRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

// metricValue returns the value of the series name{labels}, or -1 if absent
func metricValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !labelsMatch(m, labels) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return -1
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

// ============================================================================
// Collector Tests
// ============================================================================

func TestCollectStoresSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	reg := prometheus.NewRegistry()
	ch := mes2324(t)
	c := NewCollector(openerFor(map[string]*scriptedChannel{"sw1": ch}, nil), repo,
		WithMetrics(NewMetrics(reg)), WithLogger(quietLogger()))

	snap, err := c.Collect(context.Background(), "sw1")
	require.NoError(t, err)
	require.NotNil(t, snap.Facts)
	assert.Equal(t, "sw-access-1", snap.Facts.Hostname)
	assert.Empty(t, snap.Errors)
	for _, kind := range domain.AllKinds() {
		assert.NotNil(t, snap.Get(kind), kind)
	}
	assert.True(t, ch.closed, "channel closed after collection")

	stored, err := repo.LatestSnapshot(context.Background(), "sw1")
	require.NoError(t, err)
	assert.Equal(t, snap.ID, stored.ID)

	assert.Equal(t, 1.0, metricValue(t, reg, "eltexfacts_collections_total", map[string]string{"result": "ok"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "eltexfacts_operation_duration_seconds", map[string]string{"op": "facts"}))
}

func TestCollectPartialFailure(t *testing.T) {
	repo := newTestRepo(t)
	reg := prometheus.NewRegistry()
	ch := mes2324(t)
	ch.errs = map[string]error{"show arp": errors.New("connection reset")}
	ch.outputs["show lldp neighbors"] = "no table here\n"
	c := NewCollector(openerFor(map[string]*scriptedChannel{"sw1": ch}, nil), repo,
		WithMetrics(NewMetrics(reg)), WithLogger(quietLogger()))

	snap, err := c.Collect(context.Background(), "sw1")
	require.Error(t, err)
	require.NotNil(t, snap)
	assert.Contains(t, err.Error(), "arp_table")
	assert.Contains(t, snap.Errors, "arp_table")
	assert.NotNil(t, snap.Facts, "other operations still ran")

	var chErr *driver.ChannelError
	assert.ErrorAs(t, err, &chErr)

	_, err = repo.LatestSnapshot(context.Background(), "sw1")
	require.NoError(t, err, "partial snapshot is stored")

	assert.Equal(t, 1.0, metricValue(t, reg, "eltexfacts_collections_total", map[string]string{"result": "partial"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "eltexfacts_operation_errors_total", map[string]string{"op": "arp_table", "kind": "channel"}))
}

func TestCollectUnreachable(t *testing.T) {
	reg := prometheus.NewRegistry()
	bus := NewEventBus()
	events := make(chan Event, 8)
	bus.Subscribe(events)
	c := NewCollector(openerFor(nil, nil), newTestRepo(t),
		WithMetrics(NewMetrics(reg)), WithEvents(bus), WithLogger(quietLogger()))

	snap, err := c.Collect(context.Background(), "sw9")
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.Contains(t, err.Error(), "connection refused")

	assert.Equal(t, 1.0, metricValue(t, reg, "eltexfacts_collections_total", map[string]string{"result": "failed"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "eltexfacts_operation_errors_total", map[string]string{"op": "open", "kind": "other"}))

	require.Len(t, events, 2)
	assert.Equal(t, EventCollectionStarted, (<-events).Type)
	assert.Equal(t, EventCollectionFailed, (<-events).Type)
}

func TestCollectAll(t *testing.T) {
	repo := newTestRepo(t)
	chans := map[string]*scriptedChannel{"sw1": mes2324(t), "sw2": mes2324(t)}
	c := NewCollector(openerFor(chans, nil), repo, WithConcurrency(2), WithLogger(quietLogger()))

	snaps, err := c.CollectAll(context.Background(), []string{"sw1", "sw2", "sw3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sw3")
	assert.Len(t, snaps, 2)

	devices, err := repo.ListDevices(context.Background())
	require.NoError(t, err)
	assert.Len(t, devices, 2)
}

func TestCollectRetention(t *testing.T) {
	repo := newTestRepo(t)
	ch := mes2324(t)
	c := NewCollector(openerFor(map[string]*scriptedChannel{"sw1": ch}, nil), repo,
		WithRetention(2), WithLogger(quietLogger()))

	for i := 0; i < 3; i++ {
		_, err := c.Collect(context.Background(), "sw1")
		require.NoError(t, err)
	}

	snaps, err := repo.ListSnapshots(context.Background(), "sw1", 0)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)

	n, err := c.DeleteDevice(context.Background(), "sw1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCollectWithoutRepository(t *testing.T) {
	c := NewCollector(openerFor(map[string]*scriptedChannel{"sw1": mes2324(t)}, nil), nil, WithLogger(quietLogger()))

	snap, err := c.Collect(context.Background(), "sw1")
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)

	n, err := c.DeleteDevice(context.Background(), "sw1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFactIsLive(t *testing.T) {
	repo := newTestRepo(t)
	c := NewCollector(openerFor(map[string]*scriptedChannel{"sw1": mes2324(t)}, nil), repo, WithLogger(quietLogger()))

	v, err := c.Fact(context.Background(), "sw1", domain.KindLLDP)
	require.NoError(t, err)
	lldp, ok := v.(domain.LLDPNeighborMap)
	require.True(t, ok)
	assert.Equal(t, "core-sw-1", lldp["gi1/0/1"][0].Hostname)

	devices, err := repo.ListDevices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, devices, "live queries are not stored")
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&driver.ChannelError{Command: "show arp", Err: channel.ErrTimeout}, "channel"},
		{&textparse.ParseError{Msg: "unexpected output data"}, "parse"},
		{driver.ErrUnsupportedFeature, "unsupported"},
		{errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		if got := errorKind(tt.err); got != tt.want {
			t.Errorf("errorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestFactsCollector(t *testing.T) {
	repo := newTestRepo(t)
	c := NewCollector(openerFor(map[string]*scriptedChannel{"sw1": mes2324(t)}, nil), repo, WithLogger(quietLogger()))
	_, err := c.Collect(context.Background(), "sw1")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewFactsCollector(repo, quietLogger()))

	assert.Equal(t, 1.0, metricValue(t, reg, "eltexfacts_device_info", map[string]string{
		"device":        "sw1",
		"serial_number": "ES4G000123",
		"os_version":    "10.3.1",
	}))
	assert.Equal(t, 1050250.0, metricValue(t, reg, "eltexfacts_device_uptime_seconds", map[string]string{"device": "sw1"}))
	assert.Equal(t, 987654321.0, metricValue(t, reg, "eltexfacts_device_interface_rx_octets_total", map[string]string{"device": "sw1", "interface": "gi1/0/1"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "eltexfacts_device_lldp_neighbor_info", map[string]string{
		"interface": "gi1/0/1",
		"neighbor":  "core-sw-1",
	}))
	assert.Equal(t, 0.0, metricValue(t, reg, "eltexfacts_device_snapshot_errors", map[string]string{"device": "sw1"}))
}

// ============================================================================
// Events and Scheduling
// ============================================================================

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	fast := make(chan Event, 2)
	slow := make(chan Event)
	bus.Subscribe(fast)
	bus.Subscribe(slow)

	bus.Publish(Event{Type: EventCollectionStarted})
	bus.Publish(Event{Type: EventCollectionCompleted})

	assert.Len(t, fast, 2)
	assert.Equal(t, EventCollectionStarted, (<-fast).Type)

	var nilBus *EventBus
	nilBus.Publish(Event{Type: EventCollectionFailed})
}

func TestScheduler(t *testing.T) {
	var opens atomic.Int32
	c := NewCollector(openerFor(map[string]*scriptedChannel{"sw1": mes2324(t)}, &opens), nil, WithLogger(quietLogger()))

	s := NewScheduler(c, []string{"sw1"}, 10*time.Millisecond)
	s.Start(context.Background())
	require.Eventually(t, func() bool { return opens.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	after := opens.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, opens.Load(), "no collections after Stop")
}

func TestSchedulerDisabled(t *testing.T) {
	var opens atomic.Int32
	c := NewCollector(openerFor(nil, &opens), nil, WithLogger(quietLogger()))

	s := NewScheduler(c, []string{"sw1"}, 0)
	s.Start(context.Background())
	s.Stop()
	assert.Zero(t, opens.Load())
}

func TestSchedulerSetDevices(t *testing.T) {
	var opens atomic.Int32
	c := NewCollector(openerFor(map[string]*scriptedChannel{"sw1": mes2324(t)}, &opens), nil, WithLogger(quietLogger()))

	s := NewScheduler(c, nil, 10*time.Millisecond)
	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, opens.Load(), "empty device list collects nothing")

	s.SetDevices([]string{"sw1"})
	require.Eventually(t, func() bool { return opens.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
}
