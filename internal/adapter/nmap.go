package adapter

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/sirupsen/logrus"
)

// eltexOUIs are MAC prefixes registered to Eltex Enterprise
var eltexOUIs = []string{"A8:F9:4B", "E0:D9:E3"}

// Candidate is a host that may be a manageable switch
type Candidate struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	Hostname  string `json:"hostname,omitempty"`
	MAC       string `json:"mac,omitempty"`
	MACVendor string `json:"mac_vendor,omitempty"`
	SSHPort   int    `json:"ssh_port"`
	SSHBanner string `json:"ssh_banner,omitempty"`
	Eltex     bool   `json:"eltex"`
}

// NmapDiscoverer finds SSH-reachable hosts using nmap
type NmapDiscoverer struct {
	timeout           time.Duration
	portRange         string
	serviceDetection  bool
	skipHostDiscovery bool
	eltexOnly         bool
	log               *logrus.Entry
}

// NewNmapDiscoverer creates a new nmap-based discoverer
func NewNmapDiscoverer(opts ...NmapOption) *NmapDiscoverer {
	n := &NmapDiscoverer{
		timeout:          5 * time.Minute,
		portRange:        "22",
		serviceDetection: true,
		log:              logrus.WithField("component", "discovery"),
	}

	// Apply options
	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Discover scans targets, CIDR ranges or single hosts, and returns the
// hosts with an open SSH port sorted by address
func (n *NmapDiscoverer) Discover(ctx context.Context, targets []string) ([]Candidate, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("no discovery targets")
	}
	expanded, err := expandTargets(targets)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	// Build nmap options
	opts := []nmap.Option{
		nmap.WithTargets(expanded...),
		nmap.WithPorts(n.portRange),
	}
	if n.serviceDetection {
		opts = append(opts, nmap.WithServiceInfo())
	}
	// Skip host discovery for networks that drop ICMP
	if n.skipHostDiscovery {
		opts = append(opts, nmap.WithSkipHostDiscovery())
	}

	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	n.log.WithFields(logrus.Fields{
		"targets": expanded,
		"ports":   n.portRange,
	}).Info("Starting nmap scan")
	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if warnings != nil && len(*warnings) > 0 {
		n.log.WithField("warnings", *warnings).Warn("nmap reported warnings")
	}

	candidates := n.candidatesFromRun(result)
	n.log.WithField("candidates", len(candidates)).Info("Nmap scan complete")
	return candidates, nil
}

// candidatesFromRun converts nmap results to candidates
func (n *NmapDiscoverer) candidatesFromRun(result *nmap.Run) []Candidate {
	if result == nil {
		return nil
	}

	var candidates []Candidate
	for _, host := range result.Hosts {
		if len(host.Addresses) == 0 || host.Status.State != "up" {
			continue
		}

		c, ok := candidateFromHost(host)
		if !ok {
			continue
		}
		if n.eltexOnly && !c.Eltex {
			continue
		}
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return addrLess(candidates[i].Address, candidates[j].Address)
	})
	return candidates
}

func candidateFromHost(host nmap.Host) (Candidate, bool) {
	var c Candidate

	// Get primary IP address
	for _, addr := range host.Addresses {
		switch addr.AddrType {
		case "ipv4":
			if c.Address == "" {
				c.Address = addr.Addr
			}
		case "mac":
			c.MAC = strings.ToUpper(addr.Addr)
			c.MACVendor = addr.Vendor
		}
	}
	if c.Address == "" {
		// Fallback to first non-MAC address
		for _, addr := range host.Addresses {
			if addr.AddrType != "mac" {
				c.Address = addr.Addr
				break
			}
		}
	}
	if c.Address == "" {
		return c, false
	}

	for _, port := range host.Ports {
		if port.State.State != "open" {
			continue
		}
		if port.Service.Name != "" && port.Service.Name != "ssh" {
			continue
		}
		c.SSHPort = int(port.ID)
		c.SSHBanner = banner(port.Service)
		break
	}
	if c.SSHPort == 0 {
		return c, false
	}

	if len(host.Hostnames) > 0 {
		c.Hostname = host.Hostnames[0].Name
	}
	c.Name = suggestName(c.Hostname, c.Address)
	c.Eltex = isEltex(c)
	return c, true
}

// banner builds a banner string from service info
func banner(s nmap.Service) string {
	b := s.Product
	if s.Version != "" {
		b = strings.TrimSpace(b + " " + s.Version)
	}
	if s.ExtraInfo != "" {
		b = strings.TrimSpace(b + " (" + s.ExtraInfo + ")")
	}
	return b
}

func isEltex(c Candidate) bool {
	if strings.Contains(strings.ToLower(c.MACVendor), "eltex") ||
		strings.Contains(strings.ToLower(c.SSHBanner), "eltex") {
		return true
	}
	for _, oui := range eltexOUIs {
		if strings.HasPrefix(c.MAC, oui) {
			return true
		}
	}
	return false
}

// suggestName derives an inventory name, preferring the short DNS name
func suggestName(hostname, ip string) string {
	if hostname != "" {
		if idx := strings.Index(hostname, "."); idx > 0 {
			hostname = hostname[:idx]
		}
		if len(hostname) > 2 {
			return hostname
		}
	}
	return "sw-" + sanitizeIP(ip)
}

// sanitizeIP converts an IP address to a name-safe string
func sanitizeIP(ip string) string {
	// Parse IP to validate
	parsed := net.ParseIP(ip)
	if parsed != nil {
		ip = parsed.String()
	}
	return strings.NewReplacer(".", "-", ":", "-").Replace(ip)
}

// addrLess orders IP addresses numerically, falling back to string order
func addrLess(a, b string) bool {
	ia, ib := net.ParseIP(a), net.ParseIP(b)
	if ia == nil || ib == nil {
		return a < b
	}
	if ia4, ib4 := ia.To4(), ib.To4(); ia4 != nil && ib4 != nil {
		ia, ib = ia4, ib4
	}
	return string(ia) < string(ib)
}

// expandTargets validates CIDR targets; nmap handles expansion
func expandTargets(targets []string) ([]string, error) {
	var expanded []string
	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		// Check if it's CIDR notation
		if strings.Contains(target, "/") {
			_, ipNet, err := net.ParseCIDR(target)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR %s: %w", target, err)
			}
			expanded = append(expanded, ipNet.String())
		} else {
			// Single IP or hostname
			expanded = append(expanded, target)
		}
	}
	if len(expanded) == 0 {
		return nil, fmt.Errorf("no discovery targets")
	}
	return expanded, nil
}

// parsePorts validates a port list in nmap format
// Supported: "22" or "22,2222" or "2200-2299"
func parsePorts(portRange string) (string, error) {
	parts := strings.Split(portRange, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if strings.Contains(part, "-") {
			// Range format
			rangeParts := strings.Split(part, "-")
			if len(rangeParts) != 2 {
				return "", fmt.Errorf("invalid port range: %s", part)
			}
			start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
			if err != nil || start < 1 || start > 65535 {
				return "", fmt.Errorf("invalid port number: %s", rangeParts[0])
			}
			end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
			if err != nil || end < 1 || end > 65535 || end < start {
				return "", fmt.Errorf("invalid port number: %s", rangeParts[1])
			}
		} else {
			// Single port
			port, err := strconv.Atoi(part)
			if err != nil || port < 1 || port > 65535 {
				return "", fmt.Errorf("invalid port number: %s", part)
			}
		}
	}
	return portRange, nil
}
