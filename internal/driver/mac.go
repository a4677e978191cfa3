package driver

import (
	"context"
	"fmt"
	"strconv"

	"eltexfacts/internal/domain"
	"eltexfacts/internal/textparse"
)

var macLayout = textparse.Layout{
	Key: 0,
	Columns: []textparse.Column{
		{Name: "vlan", Index: 0},
		{Name: "mac", Index: 1},
		{Name: "port", Index: 2},
		{Name: "type", Index: 3},
	},
}

// GetMACAddressTable returns the forwarding database in device order. Any
// entry type other than "dynamic" is reported as static.
func (d *Driver) GetMACAddressTable(ctx context.Context) ([]domain.MACEntry, error) {
	out, err := d.run(ctx, cmdShowMAC)
	if err != nil {
		return nil, err
	}
	entries := []domain.MACEntry{}
	if blank(out) {
		return entries, nil
	}

	sections := textparse.TableSections(out)
	if len(sections) == 0 {
		return nil, fmt.Errorf("mac address table: %w", &textparse.ParseError{Msg: "no sections found", Raw: out})
	}
	for _, sec := range sections {
		records, err := textparse.Reconstruct(textparse.FixedWidthRows(sec.Lines), macLayout)
		if err != nil {
			return nil, fmt.Errorf("mac address table: %w", err)
		}
		for _, rec := range records {
			if !macCell.MatchString(rec.Text("mac")) {
				continue
			}
			vlan, _ := strconv.Atoi(rec.Text("vlan"))
			entries = append(entries, domain.MACEntry{
				VLAN:      vlan,
				MAC:       rec.Text("mac"),
				Interface: rec.Text("port"),
				Static:    rec.Text("type") != "dynamic",
				Active:    true,
				Moves:     domain.UnknownMoves,
				LastMove:  domain.UnknownAge,
			})
		}
	}
	return entries, nil
}
