package driver

import (
	"context"
	"fmt"

	"eltexfacts/internal/domain"
	"eltexfacts/internal/textparse"
)

// lldpLayout covers "Port | Device ID | Port ID | System Name | ..." rows.
// Wrapped names continue on following rows with a blank port cell.
var lldpLayout = textparse.Layout{
	Key: 0,
	Columns: []textparse.Column{
		{Name: "device_id", Index: 1},
		{Name: "port_id", Index: 2},
		{Name: "system_name", Index: 3},
	},
}

// GetLLDPNeighbors returns neighbors grouped by local interface. The
// neighbor hostname is its advertised system name, or the chassis ID when
// no name is advertised.
func (d *Driver) GetLLDPNeighbors(ctx context.Context) (domain.LLDPNeighborMap, error) {
	out, err := d.run(ctx, cmdShowLLDP)
	if err != nil {
		return nil, err
	}
	result := make(domain.LLDPNeighborMap)
	if blank(out) {
		return result, nil
	}

	sections := textparse.TableSections(textparse.MaskHexIDs(out))
	if len(sections) == 0 {
		return nil, fmt.Errorf("lldp neighbors: %w", &textparse.ParseError{Msg: "no sections found", Raw: out})
	}
	for _, sec := range sections {
		rows := textparse.DelimitedRows(sec.Rule, sec.Lines)
		records, err := textparse.Reconstruct(rows, lldpLayout)
		if err != nil {
			return nil, fmt.Errorf("lldp neighbors: %w", err)
		}
		for _, rec := range records {
			// every cell was cut from masked text
			local := textparse.UnmaskHexIDs(rec.Key)
			hostname := textparse.UnmaskHexIDs(rec.Text("system_name"))
			if hostname == "" {
				hostname = textparse.UnmaskHexIDs(rec.Text("device_id"))
			}
			result[local] = append(result[local], domain.LLDPNeighbor{
				Hostname: hostname,
				Port:     textparse.UnmaskHexIDs(rec.Text("port_id")),
			})
		}
	}
	return result, nil
}
