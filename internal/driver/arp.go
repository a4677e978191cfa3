package driver

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"eltexfacts/internal/domain"
	"eltexfacts/internal/textparse"
)

const ipv4Pattern = `(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)`

var (
	ipv4Cell = regexp.MustCompile(`^` + ipv4Pattern + `$`)
	macCell  = regexp.MustCompile(`^[0-9A-Fa-f]{2}(?:[:\-.]?[0-9A-Fa-f]{2}){5}$`)
)

// arpColumns names up to eight cells so that both row shapes survive
// reconstruction: "vlan 1 | gi1/0/1 | ip | mac | ..." and
// "vlan | 1 | gi1/0/1 | ip | mac | ...". Wrapped rows are concatenated.
var arpColumns = func() textparse.Layout {
	l := textparse.Layout{Key: 0}
	for i := 0; i < 8; i++ {
		l.Columns = append(l.Columns, textparse.Column{Name: fmt.Sprintf("c%d", i), Index: i})
	}
	return l
}()

// GetARPTable returns the ARP table in device order. Only the default VRF is
// supported; the device does not print entry age.
func (d *Driver) GetARPTable(ctx context.Context, vrf string) ([]domain.ARPEntry, error) {
	if vrf != "" {
		return nil, fmt.Errorf("arp table for vrf %q: %w", vrf, ErrUnsupportedFeature)
	}

	out, err := d.run(ctx, cmdShowARP)
	if err != nil {
		return nil, err
	}
	entries := []domain.ARPEntry{}
	if blank(out) {
		return entries, nil
	}

	sections := textparse.TableSections(out)
	if len(sections) == 0 {
		return nil, fmt.Errorf("arp table: %w", &textparse.ParseError{Msg: "no sections found", Raw: out})
	}
	for _, sec := range sections {
		records, err := textparse.Reconstruct(textparse.FixedWidthRows(sec.Lines), arpColumns)
		if err != nil {
			return nil, fmt.Errorf("arp table: %w", err)
		}
		for _, rec := range records {
			if e, ok := arpEntry(rec); ok {
				entries = append(entries, e)
			}
		}
	}
	return entries, nil
}

// arpEntry locates the first IP cell followed by a MAC cell; the interface
// is the cell right before the IP
func arpEntry(rec textparse.Record) (domain.ARPEntry, bool) {
	cells := make([]string, 0, len(arpColumns.Columns))
	for _, c := range arpColumns.Columns {
		cells = append(cells, rec.Text(c.Name))
	}
	for i := 1; i+1 < len(cells); i++ {
		if !ipv4Cell.MatchString(cells[i]) || !macCell.MatchString(cells[i+1]) {
			continue
		}
		return domain.ARPEntry{
			Interface: strings.TrimSpace(cells[i-1]),
			MAC:       cells[i+1],
			IP:        cells[i],
			Age:       domain.UnknownAge,
		}, true
	}
	return domain.ARPEntry{}, false
}
