package service

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"eltexfacts/internal/domain"
	"eltexfacts/internal/driver"
	"eltexfacts/internal/repository"
	"eltexfacts/internal/textparse"
)

const namespace = "eltexfacts"

// Collection results
const (
	resultOK      = "ok"
	resultPartial = "partial"
	resultFailed  = "failed"
)

// Metrics holds the operation instruments. A nil *Metrics records nothing.
type Metrics struct {
	duration    *prometheus.HistogramVec
	errors      *prometheus.CounterVec
	collections *prometheus.CounterVec
}

// NewMetrics registers the operation instruments with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of fact operations, including device round trips.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"op"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Failed fact operations by error kind.",
		}, []string{"op", "kind"}),
		collections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collections_total",
			Help:      "Device collections by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) observe(op string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(op).Observe(took.Seconds())
	if err != nil {
		m.errors.WithLabelValues(op, errorKind(err)).Inc()
	}
}

func (m *Metrics) collection(result string) {
	if m == nil {
		return
	}
	m.collections.WithLabelValues(result).Inc()
}

// errorKind classifies err for the errors counter
func errorKind(err error) string {
	var chErr *driver.ChannelError
	var parseErr *textparse.ParseError
	switch {
	case errors.As(err, &chErr):
		return "channel"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.Is(err, driver.ErrUnsupportedFeature):
		return "unsupported"
	}
	return "other"
}

// FactsCollector exposes the latest stored snapshot of every device.
// Each scrape reads the repository only.
type FactsCollector struct {
	repo    repository.Repository
	timeout time.Duration
	log     *logrus.Entry

	info         *prometheus.Desc
	uptime       *prometheus.Desc
	snapshotAge  *prometheus.Desc
	factErrors   *prometheus.Desc
	ifUp         *prometheus.Desc
	ifSpeed      *prometheus.Desc
	rxOctets     *prometheus.Desc
	txOctets     *prometheus.Desc
	rxErrors     *prometheus.Desc
	txErrors     *prometheus.Desc
	arpEntries   *prometheus.Desc
	macEntries   *prometheus.Desc
	lldpNeighbor *prometheus.Desc
}

// NewFactsCollector creates a collector over repo
func NewFactsCollector(repo repository.Repository, log *logrus.Entry) *FactsCollector {
	const subsystem = "device"
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, append([]string{"device"}, labels...), nil)
	}
	return &FactsCollector{
		repo:    repo,
		timeout: 5 * time.Second,
		log:     log,

		info:         desc("info", "Switch identity from the latest snapshot, value is always 1", "hostname", "model", "os_version", "serial_number"),
		uptime:       desc("uptime_seconds", "Switch uptime at collection time"),
		snapshotAge:  desc("snapshot_age_seconds", "Seconds since the latest snapshot was collected"),
		factErrors:   desc("snapshot_errors", "Fact operations that failed in the latest snapshot"),
		ifUp:         desc("interface_up", "Whether the interface is operationally up", "interface"),
		ifSpeed:      desc("interface_speed_mbps", "Interface speed in Mbit/s", "interface"),
		rxOctets:     desc("interface_rx_octets_total", "Received octets", "interface"),
		txOctets:     desc("interface_tx_octets_total", "Transmitted octets", "interface"),
		rxErrors:     desc("interface_rx_errors_total", "Receive errors", "interface"),
		txErrors:     desc("interface_tx_errors_total", "Transmit errors", "interface"),
		arpEntries:   desc("arp_entries", "Entries in the ARP table"),
		macEntries:   desc("mac_entries", "Entries in the MAC address table"),
		lldpNeighbor: desc("lldp_neighbor_info", "LLDP neighbor seen on a local port, value is always 1", "interface", "neighbor", "neighbor_port"),
	}
}

// Describe implements prometheus.Collector
func (c *FactsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.info
	ch <- c.uptime
	ch <- c.snapshotAge
	ch <- c.factErrors
	ch <- c.ifUp
	ch <- c.ifSpeed
	ch <- c.rxOctets
	ch <- c.txOctets
	ch <- c.rxErrors
	ch <- c.txErrors
	ch <- c.arpEntries
	ch <- c.macEntries
	ch <- c.lldpNeighbor
}

// Collect implements prometheus.Collector
func (c *FactsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	devices, err := c.repo.ListDevices(ctx)
	if err != nil {
		c.log.WithError(err).Error("Error listing devices for metrics")
		return
	}
	for _, d := range devices {
		snap, err := c.repo.LatestSnapshot(ctx, d.Device)
		if err != nil {
			c.log.WithError(err).WithField("device", d.Device).Error("Error loading snapshot for metrics")
			continue
		}
		c.collectSnapshot(ch, snap)
	}
}

func (c *FactsCollector) collectSnapshot(ch chan<- prometheus.Metric, snap *domain.Snapshot) {
	dev := snap.Device
	gauge := func(desc *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, append([]string{dev}, labels...)...)
	}
	counter := func(desc *prometheus.Desc, v int64, labels ...string) {
		if v < 0 {
			return
		}
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), append([]string{dev}, labels...)...)
	}

	gauge(c.snapshotAge, time.Since(snap.CollectedAt).Seconds())
	gauge(c.factErrors, float64(len(snap.Errors)))

	if f := snap.Facts; f != nil {
		gauge(c.info, 1, f.Hostname, f.Model, f.OSVersion, f.SerialNumber)
		if f.Uptime >= 0 {
			gauge(c.uptime, float64(f.Uptime))
		}
	}
	for name, iface := range snap.Interfaces {
		up := 0.0
		if iface.IsUp {
			up = 1
		}
		gauge(c.ifUp, up, name)
		gauge(c.ifSpeed, float64(iface.Speed), name)
	}
	for name, cnt := range snap.Counters {
		counter(c.rxOctets, cnt.RxOctets, name)
		counter(c.txOctets, cnt.TxOctets, name)
		counter(c.rxErrors, cnt.RxErrors, name)
		counter(c.txErrors, cnt.TxErrors, name)
	}
	if snap.ARPTable != nil {
		gauge(c.arpEntries, float64(len(snap.ARPTable)))
	}
	if snap.MACTable != nil {
		gauge(c.macEntries, float64(len(snap.MACTable)))
	}
	for port, neighbors := range snap.LLDP {
		seen := make(map[[2]string]bool, len(neighbors))
		for _, n := range neighbors {
			key := [2]string{n.Hostname, n.Port}
			if seen[key] {
				continue
			}
			seen[key] = true
			gauge(c.lldpNeighbor, 1, port, n.Hostname, n.Port)
		}
	}
}
