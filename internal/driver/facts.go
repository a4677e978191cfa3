package driver

import (
	"context"
	"regexp"
	"strings"

	"eltexfacts/internal/domain"
	"eltexfacts/internal/textparse"
)

var systemFields = textparse.Registry{
	{
		Name:    "model",
		Pattern: regexp.MustCompile(`(?m)^\s*System Description:[ \t]*(?P<model>.*)$`),
		Decode:  textparse.Text("model"),
		Default: domain.Unknown,
	},
	{
		Name:    "uptime",
		Pattern: regexp.MustCompile(`(?m)^\s*System Up Time \(days,hour:min:sec\):[ \t]*(?P<uptime>.*)$`),
		Decode:  uptime("uptime"),
		Default: domain.UnknownUptime,
	},
	{
		Name:    "hostname",
		Pattern: regexp.MustCompile(`(?m)^\s*System Name:[ \t]*(?P<hostname>.*)$`),
		Decode:  textparse.Text("hostname"),
		Default: domain.Unknown,
	},
}

var versionFields = textparse.Registry{
	{
		Name:    "version",
		Pattern: regexp.MustCompile(`(?m)^\s*(?:SW version|Version:)[ \t]*(?P<version>\S+)`),
		Decode:  textparse.Text("version"),
		Default: domain.Unknown,
	},
}

var imageHeader = regexp.MustCompile(`(?m)^\s*(?:Active|Inactive)-image:`)

func uptime(group string) textparse.Decoder {
	return func(m textparse.Match) (any, error) {
		return textparse.ParseUptime(m.Group(group)), nil
	}
}

// GetFacts returns the device identity summary. Each sub-command is parsed
// leniently: a value the device does not print keeps its sentinel default.
func (d *Driver) GetFacts(ctx context.Context) (*domain.Facts, error) {
	facts := &domain.Facts{
		Uptime:        domain.UnknownUptime,
		Vendor:        domain.Vendor,
		OSVersion:     domain.Unknown,
		SerialNumber:  domain.Unknown,
		Model:         domain.Unknown,
		Hostname:      domain.Unknown,
		FQDN:          domain.Unknown,
		InterfaceList: []string{},
	}

	system, err := d.run(ctx, cmdShowSystem)
	if err != nil {
		return nil, err
	}
	if !blank(system) {
		fs, err := systemFields.Extract(system)
		if err != nil {
			return nil, err
		}
		facts.Model = fs.String("model")
		facts.Uptime = fs.Int("uptime")
		facts.Hostname = fs.String("hostname")
	}

	serial, err := d.run(ctx, cmdShowSystemID)
	if err != nil {
		return nil, err
	}
	if s := serialNumber(serial); s != "" {
		facts.SerialNumber = s
	}

	version, err := d.run(ctx, cmdShowVersion)
	if err != nil {
		return nil, err
	}
	if v := activeVersion(version); v != "" {
		facts.OSVersion = v
	}

	status, err := d.run(ctx, cmdShowIfStatus)
	if err != nil {
		return nil, err
	}
	facts.InterfaceList = append(facts.InterfaceList, statusPorts(status)...)

	vlans, err := d.run(ctx, cmdShowVLAN)
	if err != nil {
		return nil, err
	}
	facts.InterfaceList = append(facts.InterfaceList, vlanIDs(vlans)...)

	return facts, nil
}

// serialNumber returns the last token of the first row of the unit table
func serialNumber(out string) string {
	for _, sec := range textparse.TableSections(out) {
		for _, line := range sec.Lines {
			if f := strings.Fields(line); len(f) > 0 {
				return f[len(f)-1]
			}
		}
	}
	return ""
}

// activeVersion prefers the Version line of the active image section and
// falls back to the first version line anywhere in the output
func activeVersion(out string) string {
	if blank(out) {
		return ""
	}
	sections, err := textparse.SplitRegex(out, imageHeader)
	if err == nil {
		for _, sec := range sections {
			if !strings.HasPrefix(strings.TrimSpace(sec), "Active-image") {
				continue
			}
			if fs, err := versionFields.Extract(sec); err == nil && fs.String("version") != domain.Unknown {
				return fs.String("version")
			}
		}
	}
	fs, err := versionFields.Extract(out)
	if err != nil || fs.String("version") == domain.Unknown {
		return ""
	}
	return fs.String("version")
}

// statusPorts returns the port names of every status table. Rows starting
// with whitespace continue the previous port and are skipped.
func statusPorts(out string) []string {
	var ports []string
	for _, sec := range textparse.TableSections(out) {
		for _, line := range sec.Lines {
			if line == "" || line[0] == ' ' || line[0] == '\t' {
				continue
			}
			ports = append(ports, strings.Fields(line)[0])
		}
	}
	return ports
}

// vlanIDs returns the VLAN id column of the vlan table. Data rows end in a
// single-character flag column (created by: D, S, G, ...).
func vlanIDs(out string) []string {
	var ids []string
	for _, sec := range textparse.TableSections(out) {
		for _, line := range sec.Lines {
			f := strings.Fields(line)
			if len(f) > 1 && len(f[len(f)-1]) == 1 {
				ids = append(ids, f[0])
			}
		}
	}
	return ids
}
