package driver

import (
	"context"
	"fmt"
	"regexp"

	"eltexfacts/internal/domain"
	"eltexfacts/internal/textparse"
)

var errorFields = textparse.Registry{
	ifnameField,
	{
		Name:    "rx_error",
		Pattern: regexp.MustCompile(`(?P<n>\d+) input errors`),
		Decode:  textparse.Int("n"),
		Default: 0,
	},
	{
		Name:    "tx_error",
		Pattern: regexp.MustCompile(`(?P<n>\d+) output errors`),
		Decode:  textparse.Int("n"),
		Default: 0,
	},
}

// counterLayout is shared by the rx and tx tables of "show interfaces
// counters": port, unicast, multicast, broadcast, octets
var counterLayout = textparse.Layout{
	Key: 0,
	Columns: []textparse.Column{
		{Name: "unicast", Index: 1, Merge: textparse.Sum},
		{Name: "multicast", Index: 2, Merge: textparse.Sum},
		{Name: "broadcast", Index: 3, Merge: textparse.Sum},
		{Name: "octets", Index: 4, Merge: textparse.Sum},
	},
}

type counterPass func(c *domain.Counters, rec textparse.Record)

func rxPass(c *domain.Counters, rec textparse.Record) {
	c.RxUnicastPackets = rec.Total("unicast")
	c.RxMulticastPackets = rec.Total("multicast")
	c.RxBroadcastPackets = rec.Total("broadcast")
	c.RxOctets = rec.Total("octets")
}

func txPass(c *domain.Counters, rec textparse.Record) {
	c.TxUnicastPackets = rec.Total("unicast")
	c.TxMulticastPackets = rec.Total("multicast")
	c.TxBroadcastPackets = rec.Total("broadcast")
	c.TxOctets = rec.Total("octets")
}

// GetInterfacesCounters combines error counts from "show interfaces" with
// the packet and octet tables of "show interfaces counters". The counters
// output holds an rx table followed by a tx table; when the device splits
// them further the sections keep alternating rx, tx.
func (d *Driver) GetInterfacesCounters(ctx context.Context) (domain.CounterMap, error) {
	result := make(domain.CounterMap)

	ifOut, err := d.run(ctx, cmdShowInterfaces)
	if err != nil {
		return nil, err
	}
	if blank(ifOut) {
		return result, nil
	}
	blocks, err := textparse.RequireBlocks(ifOut, interfaceSeparator)
	if err != nil {
		return nil, fmt.Errorf("interface counters: %w", err)
	}
	for _, b := range blocks {
		fs, err := errorFields.Extract(b.Text)
		if err != nil {
			return nil, fmt.Errorf("interface counters: %w", err)
		}
		result[fs.String("name")] = domain.Counters{
			RxErrors: int64(fs.Int("rx_error")),
			TxErrors: int64(fs.Int("tx_error")),
		}
	}

	ctrOut, err := d.run(ctx, cmdShowIfCounters)
	if err != nil {
		return nil, err
	}
	if blank(ctrOut) {
		return domain.CounterMap{}, nil
	}
	sections := textparse.TableSections(ctrOut)
	if len(sections) == 0 {
		return nil, fmt.Errorf("interface counters: %w", &textparse.ParseError{Msg: "no sections found", Raw: ctrOut})
	}

	passes := []counterPass{rxPass, txPass}
	for i, sec := range sections {
		records, err := textparse.Reconstruct(textparse.FixedWidthRows(sec.Lines), counterLayout)
		if err != nil {
			return nil, fmt.Errorf("interface counters: %w", err)
		}
		pass := passes[i%len(passes)]
		for _, rec := range records {
			c := result[rec.Key]
			pass(&c, rec)
			result[rec.Key] = c
		}
	}
	return result, nil
}
