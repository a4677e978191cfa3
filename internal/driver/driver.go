package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"eltexfacts/internal/domain"
)

// Commands issued by the fact operations
const (
	cmdShowSystem        = "show system"
	cmdShowSystemID      = "show system id"
	cmdShowVersion       = "show version"
	cmdShowIfStatus      = "show interfaces status"
	cmdShowVLAN          = "show vlan"
	cmdShowInterfaces    = "show interfaces"
	cmdShowIfCounters    = "show interfaces counters"
	cmdShowIPInterface   = "show ip interface"
	cmdShowIPv6Interface = "show ipv6 interface brief"
	cmdShowARP           = "show arp"
	cmdShowMAC           = "show mac address-table"
	cmdShowLLDP          = "show lldp neighbors"
	cmdShowRunning       = "show running-config"
	cmdShowStartup       = "show startup-config"
)

// Channel sends one command to the device and returns its full output.
// Implementations own timeouts and paging.
type Channel interface {
	Execute(ctx context.Context, command string) (string, error)
}

// Driver gathers facts over a Channel
type Driver struct {
	ch  Channel
	log *logrus.Entry
}

// Option configures a Driver
type Option func(*Driver)

// WithLogger sets the logger used for command tracing
func WithLogger(log *logrus.Entry) Option {
	return func(d *Driver) {
		d.log = log
	}
}

// New creates a Driver on top of ch
func New(ch Channel, opts ...Option) *Driver {
	d := &Driver{
		ch:  ch,
		log: logrus.WithField("component", "driver"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// run executes command and wraps transport failures with the command text
func (d *Driver) run(ctx context.Context, command string) (string, error) {
	start := time.Now()
	out, err := d.ch.Execute(ctx, command)
	if err != nil {
		d.log.WithFields(logrus.Fields{
			"command": command,
			"error":   err,
		}).Debug("command failed")
		return "", &ChannelError{Command: command, Err: err}
	}
	d.log.WithFields(logrus.Fields{
		"command":  command,
		"bytes":    len(out),
		"duration": time.Since(start),
	}).Debug("command executed")
	return out, nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Fact runs the operation for kind and returns its result
func (d *Driver) Fact(ctx context.Context, kind domain.FactKind) (any, error) {
	switch kind {
	case domain.KindFacts:
		return d.GetFacts(ctx)
	case domain.KindInterfaces:
		return d.GetInterfaces(ctx)
	case domain.KindInterfaceIP:
		return d.GetInterfacesIP(ctx)
	case domain.KindCounters:
		return d.GetInterfacesCounters(ctx)
	case domain.KindARP:
		return d.GetARPTable(ctx, "")
	case domain.KindMAC:
		return d.GetMACAddressTable(ctx)
	case domain.KindLLDP:
		return d.GetLLDPNeighbors(ctx)
	}
	return nil, fmt.Errorf("fact kind %q: %w", kind, ErrUnsupportedFeature)
}
