package driver

import (
	"context"
	"fmt"
	"net/netip"
	"regexp"
	"strconv"
	"strings"

	"eltexfacts/internal/domain"
	"eltexfacts/internal/textparse"
)

// ipv4Binding matches one row of "show ip interface":
//
//	192.168.1.1/24     vlan 1     UP/UP     Static   disable   No
var ipv4Binding = regexp.MustCompile(`(?P<addr>` + ipv4Pattern + `)/(?P<mask>3[0-2]|[12]?[0-9])[ \t]+(?P<eth>\S.*?)[ \t]+(?:UP|DOWN)`)

// GetInterfacesIP returns IPv4 and IPv6 bindings per interface. Both address
// families are always present, possibly empty.
func (d *Driver) GetInterfacesIP(ctx context.Context) (domain.InterfaceIPMap, error) {
	result := make(domain.InterfaceIPMap)

	v4, err := d.run(ctx, cmdShowIPInterface)
	if err != nil {
		return nil, err
	}
	if !blank(v4) {
		if len(textparse.TableSections(v4)) == 0 {
			return nil, fmt.Errorf("interfaces ip: %w", &textparse.ParseError{Msg: "no sections found", Raw: v4})
		}
		for _, m := range ipv4Binding.FindAllStringSubmatch(v4, -1) {
			eth := strings.TrimSpace(m[ipv4Binding.SubexpIndex("eth")])
			prefix, _ := strconv.Atoi(m[ipv4Binding.SubexpIndex("mask")])
			entry(result, eth).IPv4[m[ipv4Binding.SubexpIndex("addr")]] = domain.PrefixInfo{PrefixLength: prefix}
		}
	}

	v6, err := d.run(ctx, cmdShowIPv6Interface)
	if err != nil {
		return nil, err
	}
	if !blank(v6) {
		if err := parseIPv6(v6, result); err != nil {
			return nil, fmt.Errorf("interfaces ip: %w", err)
		}
	}
	return result, nil
}

func entry(m domain.InterfaceIPMap, name string) domain.InterfaceIP {
	e, ok := m[name]
	if !ok {
		e = domain.NewInterfaceIP()
		m[name] = e
	}
	return e
}

// parseIPv6 reads "show ipv6 interface brief". An interface with several
// addresses lists the extra ones on rows with a blank interface cell.
//
//	Interface    Interface State   IPv6 Address
//	----------   ---------------   ---------------------------
//	vlan 1       UP/UP             fe80::e2d9:e3ff:fe00:1/64
//	                               2001:db8::1/64
func parseIPv6(out string, result domain.InterfaceIPMap) error {
	sections := textparse.TableSections(out)
	if len(sections) == 0 {
		return &textparse.ParseError{Msg: "no sections found", Raw: out}
	}
	for _, sec := range sections {
		current := ""
		for _, row := range textparse.DelimitedRows(sec.Rule, sec.Lines) {
			if row.Cell(0) != "" {
				current = row.Cell(0)
			}
			for _, cell := range row[1:] {
				for _, tok := range strings.Fields(cell) {
					p, err := netip.ParsePrefix(tok)
					if err != nil || !p.Addr().Is6() {
						continue
					}
					if current == "" {
						return &textparse.ParseError{Msg: "continuation with no prior record", Raw: strings.Join(row, " ")}
					}
					entry(result, current).IPv6[p.Addr().String()] = domain.PrefixInfo{PrefixLength: p.Bits()}
				}
			}
		}
	}
	return nil
}
