package adapter

import (
	"time"

	"github.com/sirupsen/logrus"
)

// NmapOption is a functional option for configuring NmapDiscoverer
type NmapOption func(*NmapDiscoverer)

// WithTimeout sets the timeout for the entire nmap scan
func WithTimeout(d time.Duration) NmapOption {
	return func(n *NmapDiscoverer) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithSSHPorts sets the ports probed for SSH.
// Format: "22" or "22,2222" or "2200-2299"
func WithSSHPorts(ports string) NmapOption {
	return func(n *NmapDiscoverer) {
		// Validate and set port range
		if validated, err := parsePorts(ports); err == nil {
			n.portRange = validated
		}
	}
}

// WithServiceDetection enables or disables service version detection (-sV)
func WithServiceDetection(enabled bool) NmapOption {
	return func(n *NmapDiscoverer) {
		n.serviceDetection = enabled
	}
}

// WithSkipHostDiscovery sets whether to skip ping and treat all hosts as online (-Pn)
// Useful for management networks that block ICMP
func WithSkipHostDiscovery(skip bool) NmapOption {
	return func(n *NmapDiscoverer) {
		n.skipHostDiscovery = skip
	}
}

// WithEltexOnly drops candidates not identified as Eltex
func WithEltexOnly(only bool) NmapOption {
	return func(n *NmapDiscoverer) {
		n.eltexOnly = only
	}
}

// WithLogger sets the logger
func WithLogger(log *logrus.Entry) NmapOption {
	return func(n *NmapDiscoverer) {
		n.log = log
	}
}
