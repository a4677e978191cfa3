package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/olekukonko/tablewriter"

	"eltexfacts/internal/adapter"
	"eltexfacts/internal/codec"
	"eltexfacts/internal/domain"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	if len(header) > 0 {
		t.SetHeader(header)
	}
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(true)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetCenterSeparator("")
	t.SetColumnSeparator("")
	t.SetRowSeparator("")
	t.SetHeaderLine(false)
	t.SetBorder(false)
	t.SetTablePadding("  ")
	t.SetNoWhiteSpace(true)
	return t
}

// renderTable writes v as human-readable tables. Types without a table
// layout fall back to YAML.
func renderTable(w io.Writer, v any) error {
	switch v := v.(type) {
	case *domain.Snapshot:
		renderSnapshot(w, v)
	case map[string]*domain.Snapshot:
		renderCollected(w, v)
	case []*domain.Snapshot:
		renderHistory(w, v)
	case *domain.Facts:
		renderFacts(w, v)
	case domain.InterfaceMap:
		renderInterfaces(w, v)
	case domain.InterfaceIPMap:
		renderInterfaceIP(w, v)
	case domain.CounterMap:
		renderCounters(w, v)
	case []domain.ARPEntry:
		renderARP(w, v)
	case []domain.MACEntry:
		renderMAC(w, v)
	case domain.LLDPNeighborMap:
		renderLLDP(w, v)
	case *domain.ConfigSet:
		renderConfigs(w, v)
	case *domain.PingResult:
		renderPing(w, v)
	case []deviceRow:
		renderDevices(w, v)
	case []adapter.Candidate:
		renderCandidates(w, v)
	default:
		return codec.NewYAMLCodec().Export(v, w)
	}
	return nil
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", strings.ToUpper(title))
}

func renderSnapshot(w io.Writer, s *domain.Snapshot) {
	t := newTable(w)
	if s.ID != "" {
		t.Append([]string{"Snapshot", s.ID})
	}
	t.Append([]string{"Device", s.Device})
	t.Append([]string{"Collected", collected(s.CollectedAt)})
	t.Render()

	for _, kind := range domain.AllKinds() {
		section(w, string(kind))
		if msg, ok := s.Errors[string(kind)]; ok {
			fmt.Fprintf(w, "error: %s\n", msg)
			continue
		}
		if v := s.Get(kind); v != nil {
			_ = renderTable(w, v)
		}
	}
}

func renderCollected(w io.Writer, snaps map[string]*domain.Snapshot) {
	names := make([]string, 0, len(snaps))
	for name := range snaps {
		names = append(names, name)
	}
	sort.Strings(names)

	t := newTable(w, "Device", "Snapshot", "Result", "Failed")
	for _, name := range names {
		s := snaps[name]
		result := "ok"
		if len(s.Errors) > 0 {
			result = "partial"
		}
		failed := make([]string, 0, len(s.Errors))
		for kind := range s.Errors {
			failed = append(failed, kind)
		}
		sort.Strings(failed)
		t.Append([]string{name, s.ID, result, strings.Join(failed, ",")})
	}
	t.Render()
}

func renderHistory(w io.Writer, snaps []*domain.Snapshot) {
	t := newTable(w, "Snapshot", "Collected", "Uptime", "Interfaces", "Errors")
	for _, s := range snaps {
		up, ifaces := "-", "-"
		if s.Facts != nil {
			up = seconds(s.Facts.Uptime)
		}
		if s.Interfaces != nil {
			ifaces = strconv.Itoa(len(s.Interfaces))
		}
		t.Append([]string{s.ID, collected(s.CollectedAt), up, ifaces, strconv.Itoa(len(s.Errors))})
	}
	t.Render()
}

func renderFacts(w io.Writer, f *domain.Facts) {
	t := newTable(w)
	t.AppendBulk([][]string{
		{"Hostname", f.Hostname},
		{"FQDN", f.FQDN},
		{"Vendor", f.Vendor},
		{"Model", f.Model},
		{"Serial number", f.SerialNumber},
		{"OS version", f.OSVersion},
		{"Uptime", seconds(f.Uptime)},
		{"Interfaces", fmt.Sprintf("%d: %s", len(f.InterfaceList), strings.Join(f.InterfaceList, " "))},
	})
	t.Render()
}

func renderInterfaces(w io.Writer, m domain.InterfaceMap) {
	t := newTable(w, "Interface", "Enabled", "Up", "Speed", "MTU", "MAC", "Last flap", "Description")
	for _, name := range sortedKeys(m) {
		i := m[name]
		mtu := "-"
		if i.MTU > 0 {
			mtu = strconv.Itoa(i.MTU)
		}
		t.Append([]string{name, yesNo(i.IsEnabled), yesNo(i.IsUp), speed(i.Speed), mtu, i.MACAddress, seconds(i.LastFlapped), i.Description})
	}
	t.Render()
}

func renderInterfaceIP(w io.Writer, m domain.InterfaceIPMap) {
	t := newTable(w, "Interface", "Family", "Address")
	for _, name := range sortedKeys(m) {
		ip := m[name]
		for _, addr := range sortedKeys(ip.IPv4) {
			t.Append([]string{name, "ipv4", fmt.Sprintf("%s/%d", addr, ip.IPv4[addr].PrefixLength)})
		}
		for _, addr := range sortedKeys(ip.IPv6) {
			t.Append([]string{name, "ipv6", fmt.Sprintf("%s/%d", addr, ip.IPv6[addr].PrefixLength)})
		}
	}
	t.Render()
}

func renderCounters(w io.Writer, m domain.CounterMap) {
	t := newTable(w, "Interface", "RX bytes", "RX unicast", "RX errors", "TX bytes", "TX unicast", "TX errors")
	for _, name := range sortedKeys(m) {
		c := m[name]
		t.Append([]string{name, bytes(c.RxOctets), count(c.RxUnicastPackets), count(c.RxErrors), bytes(c.TxOctets), count(c.TxUnicastPackets), count(c.TxErrors)})
	}
	t.Render()
}

func renderARP(w io.Writer, entries []domain.ARPEntry) {
	t := newTable(w, "Interface", "IP", "MAC", "Age")
	for _, e := range entries {
		age := "-"
		if e.Age >= 0 {
			age = strconv.FormatFloat(e.Age, 'f', -1, 64)
		}
		t.Append([]string{e.Interface, e.IP, e.MAC, age})
	}
	t.Render()
}

func renderMAC(w io.Writer, entries []domain.MACEntry) {
	t := newTable(w, "VLAN", "MAC", "Interface", "Type")
	for _, e := range entries {
		typ := "dynamic"
		if e.Static {
			typ = "static"
		}
		t.Append([]string{strconv.Itoa(e.VLAN), e.MAC, e.Interface, typ})
	}
	t.Render()
}

func renderLLDP(w io.Writer, m domain.LLDPNeighborMap) {
	t := newTable(w, "Local port", "Neighbor", "Neighbor port")
	for _, port := range sortedKeys(m) {
		for _, n := range m[port] {
			t.Append([]string{port, n.Hostname, n.Port})
		}
	}
	t.Render()
}

func renderConfigs(w io.Writer, c *domain.ConfigSet) {
	for _, part := range []struct{ name, text string }{
		{"running", c.Running},
		{"startup", c.Startup},
	} {
		if part.text == "" {
			continue
		}
		fmt.Fprintf(w, "! %s-config\n%s\n", part.name, strings.TrimRight(part.text, "\n"))
	}
}

func renderPing(w io.Writer, r *domain.PingResult) {
	switch {
	case r.Error != "":
		fmt.Fprintf(w, "error: %s\n", r.Error)
	case r.Success != nil:
		s := r.Success
		t := newTable(w)
		t.AppendBulk([][]string{
			{"Sent", strconv.Itoa(s.ProbesSent)},
			{"Lost", strconv.Itoa(s.PacketLoss)},
			{"RTT min/avg/max", fmt.Sprintf("%g/%g/%g ms", s.RTTMin, s.RTTAvg, s.RTTMax)},
		})
		t.Render()
	default:
		fmt.Fprintln(w, "no ping statistics in device output")
	}
}

func renderDevices(w io.Writer, rows []deviceRow) {
	t := newTable(w, "Device", "Address", "Snapshots", "Last collected")
	for _, r := range rows {
		addr := r.Host
		if r.Port != 0 && r.Port != 22 {
			addr = fmt.Sprintf("%s:%d", r.Host, r.Port)
		}
		if r.Fixture != "" {
			addr = "fixture " + r.Fixture
		}
		last := "never"
		if r.LastCollected != nil {
			last = collected(*r.LastCollected)
		}
		t.Append([]string{r.Name, addr, strconv.Itoa(r.Snapshots), last})
	}
	t.Render()
}

func renderCandidates(w io.Writer, cands []adapter.Candidate) {
	t := newTable(w, "Name", "Address", "Port", "MAC", "Vendor", "Banner", "Eltex")
	for _, c := range cands {
		t.Append([]string{c.Name, c.Address, strconv.Itoa(c.SSHPort), c.MAC, c.MACVendor, c.SSHBanner, yesNo(c.Eltex)})
	}
	t.Render()
}

// renderCLI prints each command's output under a banner, in request order
func renderCLI(w io.Writer, commands []string, out map[string]string) error {
	for _, cmd := range commands {
		if _, err := fmt.Fprintf(w, "### %s\n%s\n", cmd, strings.TrimRight(out[cmd], "\n")); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// seconds formats a duration in seconds; negative means unknown
func seconds(s int) string {
	if s < 0 {
		return "-"
	}
	return durafmt.Parse(time.Duration(s) * time.Second).String()
}

func collected(t time.Time) string {
	return fmt.Sprintf("%s (%s)", t.Local().Format(time.DateTime), humanize.Time(t))
}

func speed(mbps int) string {
	switch {
	case mbps <= 0:
		return "-"
	case mbps >= 1000 && mbps%1000 == 0:
		return fmt.Sprintf("%dG", mbps/1000)
	}
	return fmt.Sprintf("%dM", mbps)
}

func bytes(n int64) string {
	if n < 0 {
		return "-"
	}
	return humanize.Bytes(uint64(n))
}

func count(n int64) string {
	if n < 0 {
		return "-"
	}
	return humanize.Comma(n)
}
