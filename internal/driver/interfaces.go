package driver

import (
	"context"
	"fmt"
	"regexp"

	"eltexfacts/internal/domain"
	"eltexfacts/internal/textparse"
)

// interfaceHeader opens each per-interface block of "show interfaces":
//
//	---------------- show interfaces gi1/0/1 ----------------
const interfaceHeader = `^-+\s+show interfaces\s+(?P<ifname>[A-Za-z][A-Za-z-]*[0-9/]*)\s+-+\s*$`

var interfaceSeparator = textparse.Header(regexp.MustCompile(interfaceHeader))

var ifnameField = textparse.FieldSpec{
	Name:     "name",
	Pattern:  regexp.MustCompile(`(?m)` + interfaceHeader),
	Decode:   textparse.Text("ifname"),
	Required: true,
}

var interfaceFields = textparse.Registry{
	ifnameField,
	{
		Name:    "mac_address",
		Pattern: regexp.MustCompile(`MAC address is (?P<mac>(?:[0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2})`),
		Decode:  textparse.Text("mac"),
		Default: "",
	},
	{
		Name:    "is_up",
		Pattern: regexp.MustCompile(`is up\b`),
		Decode:  textparse.Present(),
		Default: false,
	},
	{
		Name:    "description",
		Pattern: regexp.MustCompile(`(?m)Description:[ \t]*(?P<desc>.*)$`),
		Decode:  textparse.Text("desc"),
		Default: "",
	},
	{
		Name:    "mtu",
		Pattern: regexp.MustCompile(`Interface MTU is (?P<mtu>[0-9]+)`),
		Decode:  textparse.Int("mtu"),
		Default: 0,
	},
	{
		Name:    "speed",
		Pattern: regexp.MustCompile(`(?:Full|Half)-duplex, (?P<speed>[0-9]+)Mbps`),
		Decode:  textparse.Int("speed"),
		Default: 0,
	},
	{
		Name:    "last_flapped",
		Pattern: regexp.MustCompile(`Link is up for (?P<d>\d+) days?, (?P<h>\d+) hours?, (?P<m>\d+) minutes? and (?P<s>\d+) seconds?`),
		Decode:  textparse.Duration("d", "h", "m", "s"),
		Default: domain.UnknownFlap,
	},
}

// GetInterfaces returns the state of every interface in "show interfaces"
func (d *Driver) GetInterfaces(ctx context.Context) (domain.InterfaceMap, error) {
	out, err := d.run(ctx, cmdShowInterfaces)
	if err != nil {
		return nil, err
	}
	result := make(domain.InterfaceMap)
	if blank(out) {
		return result, nil
	}

	blocks, err := textparse.RequireBlocks(out, interfaceSeparator)
	if err != nil {
		return nil, fmt.Errorf("interfaces: %w", err)
	}
	for _, b := range blocks {
		fs, err := interfaceFields.Extract(b.Text)
		if err != nil {
			return nil, fmt.Errorf("interfaces: %w", err)
		}
		up := fs.Bool("is_up")
		result[fs.String("name")] = domain.Interface{
			Description: fs.String("description"),
			IsEnabled:   up,
			IsUp:        up,
			LastFlapped: fs.Int("last_flapped"),
			MACAddress:  fs.String("mac_address"),
			Speed:       fs.Int("speed"),
			MTU:         fs.Int("mtu"),
		}
	}
	return result, nil
}
