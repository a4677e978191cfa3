package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eltexfacts/internal/domain"
	"eltexfacts/internal/textparse"
)

type fakeChannel struct {
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeChannel) Execute(_ context.Context, command string) (string, error) {
	f.calls = append(f.calls, command)
	if err := f.errs[command]; err != nil {
		return "", err
	}
	return f.outputs[command], nil
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

// mes2324 returns a channel answering every fact command with captured
// output from an MES2324
func mes2324(t *testing.T) *fakeChannel {
	t.Helper()
	return &fakeChannel{
		outputs: map[string]string{
			cmdShowSystem:        fixture(t, "show_system.txt"),
			cmdShowSystemID:      fixture(t, "show_system_id.txt"),
			cmdShowVersion:       fixture(t, "show_version.txt"),
			cmdShowIfStatus:      fixture(t, "show_interfaces_status.txt"),
			cmdShowVLAN:          fixture(t, "show_vlan.txt"),
			cmdShowInterfaces:    fixture(t, "show_interfaces.txt"),
			cmdShowIfCounters:    fixture(t, "show_interfaces_counters.txt"),
			cmdShowIPInterface:   fixture(t, "show_ip_interface.txt"),
			cmdShowIPv6Interface: fixture(t, "show_ipv6_interface_brief.txt"),
			cmdShowARP:           fixture(t, "show_arp.txt"),
			cmdShowMAC:           fixture(t, "show_mac_address_table.txt"),
			cmdShowLLDP:          fixture(t, "show_lldp_neighbors.txt"),
		},
	}
}

func TestGetFacts(t *testing.T) {
	d := New(mes2324(t))

	got, err := d.GetFacts(context.Background())
	require.NoError(t, err)

	want := &domain.Facts{
		Uptime:        12*86400 + 3*3600 + 44*60 + 10,
		Vendor:        "Eltex",
		OSVersion:     "10.3.1",
		SerialNumber:  "ES4G000123",
		Model:         "MES2324 28-port 1G/10G Managed Switch",
		Hostname:      "sw-access-1",
		FQDN:          "Unknown",
		InterfaceList: []string{"gi1/0/1", "gi1/0/2", "te1/0/1", "Po1", "1", "100"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetFacts() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetFactsDefaults(t *testing.T) {
	d := New(&fakeChannel{outputs: map[string]string{}})

	got, err := d.GetFacts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, -1, got.Uptime)
	assert.Equal(t, "Unknown", got.Model)
	assert.Equal(t, "Unknown", got.Hostname)
	assert.Equal(t, "Unknown", got.SerialNumber)
	assert.Equal(t, "Unknown", got.OSVersion)
	assert.Empty(t, got.InterfaceList)
}

func TestGetFactsBlankDevice(t *testing.T) {
	d := New(&fakeChannel{outputs: map[string]string{
		cmdShowSystem:   "",
		cmdShowSystemID: "\n",
		cmdShowVersion:  "  \n",
		cmdShowIfStatus: "",
		cmdShowVLAN:     "",
	}})

	got, err := d.GetFacts(context.Background())
	require.NoError(t, err)

	want := &domain.Facts{
		Uptime:        domain.UnknownUptime,
		Vendor:        domain.Vendor,
		OSVersion:     domain.Unknown,
		SerialNumber:  domain.Unknown,
		Model:         domain.Unknown,
		Hostname:      domain.Unknown,
		FQDN:          domain.Unknown,
		InterfaceList: []string{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetFacts() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetFactsVersionFallback(t *testing.T) {
	ch := &fakeChannel{outputs: map[string]string{
		cmdShowVersion: "SW version    4.0.9 ( date  23-Dec-2018 time  17:27:52 )\nBoot version    1.3.2\n",
	}}
	got, err := New(ch).GetFacts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4.0.9", got.OSVersion)
}

func TestGetFactsMalformedUptime(t *testing.T) {
	ch := &fakeChannel{outputs: map[string]string{
		cmdShowSystem: "System Up Time (days,hour:min:sec):       soon\n",
	}}
	got, err := New(ch).GetFacts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, got.Uptime)
}

func TestGetInterfaces(t *testing.T) {
	d := New(mes2324(t))

	got, err := d.GetInterfaces(context.Background())
	require.NoError(t, err)

	want := domain.InterfaceMap{
		"gi1/0/1": {
			Description: "uplink to core",
			IsEnabled:   true,
			IsUp:        true,
			LastFlapped: 3*86400 + 4*3600 + 5*60 + 6,
			MACAddress:  "e0:d9:e3:aa:bb:01",
			Speed:       1000,
			MTU:         1500,
		},
		"gi1/0/2": {
			LastFlapped: -1,
			MACAddress:  "e0:d9:e3:aa:bb:02",
		},
		"te1/0/1": {
			IsEnabled:   true,
			IsUp:        true,
			LastFlapped: 90,
			MACAddress:  "e0:d9:e3:aa:bb:19",
			Speed:       10000,
			MTU:         9000,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetInterfaces() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetInterfacesSingleBlockWithoutMTU(t *testing.T) {
	ch := &fakeChannel{outputs: map[string]string{
		cmdShowInterfaces: "---------------- show interfaces gi1/0/1 ----------------\n" +
			"gi1/0/1 is up (connected)\n" +
			"  Full-duplex, 1000Mbps\n",
	}}
	got, err := New(ch).GetInterfaces(context.Background())
	require.NoError(t, err)
	require.Contains(t, got, "gi1/0/1")
	iface := got["gi1/0/1"]
	assert.True(t, iface.IsUp)
	assert.True(t, iface.IsEnabled)
	assert.Equal(t, 1000, iface.Speed)
	assert.Equal(t, 0, iface.MTU)
	assert.Equal(t, -1, iface.LastFlapped)
}

func TestGetInterfacesNoBlocks(t *testing.T) {
	ch := &fakeChannel{outputs: map[string]string{cmdShowInterfaces: "% Unrecognized command\n"}}
	_, err := New(ch).GetInterfaces(context.Background())
	var perr *textparse.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "% Unrecognized command\n", perr.Raw)
}

func TestGetInterfacesCounters(t *testing.T) {
	d := New(mes2324(t))

	got, err := d.GetInterfacesCounters(context.Background())
	require.NoError(t, err)

	want := domain.CounterMap{
		"gi1/0/1": {
			RxErrors:           3,
			RxUnicastPackets:   124000,
			RxMulticastPackets: 7890,
			RxBroadcastPackets: 321,
			RxOctets:           987654321,
			TxUnicastPackets:   65432,
			TxMulticastPackets: 1234,
			TxBroadcastPackets: 56,
			TxOctets:           123456789,
		},
		"gi1/0/2": {
			TxErrors:           5,
			TxUnicastPackets:   10,
			TxMulticastPackets: 2,
			TxBroadcastPackets: 1,
			TxOctets:           1500,
		},
		"te1/0/1": {
			RxUnicastPackets:   1000000,
			RxMulticastPackets: 20000,
			RxBroadcastPackets: 3000,
			RxOctets:           5000000000,
			TxUnicastPackets:   999999,
			TxMulticastPackets: 11111,
			TxBroadcastPackets: 222,
			TxOctets:           4000000000,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetInterfacesCounters() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetInterfacesCountersOrphanContinuation(t *testing.T) {
	ch := mes2324(t)
	ch.outputs[cmdShowIfCounters] = "    Port      InUcastPkts\n------------ ------------\n                      544\n  gi1/0/1             100\n"

	_, err := New(ch).GetInterfacesCounters(context.Background())
	var perr *textparse.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "continuation with no prior record", perr.Msg)
}

func TestGetInterfacesIP(t *testing.T) {
	d := New(mes2324(t))

	got, err := d.GetInterfacesIP(context.Background())
	require.NoError(t, err)

	want := domain.InterfaceIPMap{
		"vlan 1": {
			IPv4: map[string]domain.PrefixInfo{"192.168.1.1": {PrefixLength: 24}},
			IPv6: map[string]domain.PrefixInfo{
				"fe80::e2d9:e3ff:feaa:bb00": {PrefixLength: 64},
				"2001:db8::1":               {PrefixLength: 64},
			},
		},
		"vlan 100": {
			IPv4: map[string]domain.PrefixInfo{"10.100.0.2": {PrefixLength: 30}},
			IPv6: map[string]domain.PrefixInfo{},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetInterfacesIP() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetARPTable(t *testing.T) {
	d := New(mes2324(t))

	got, err := d.GetARPTable(context.Background(), "")
	require.NoError(t, err)

	want := []domain.ARPEntry{
		{Interface: "gi1/0/1", MAC: "00:11:22:33:44:55", IP: "192.168.1.10", Age: -1},
		{Interface: "gi1/0/2", MAC: "00:11:22:33:44:66", IP: "192.168.1.11", Age: -1},
		{Interface: "te1/0/1", MAC: "a8:f9:4b:00:00:01", IP: "10.100.0.1", Age: -1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetARPTable() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetARPTableVRF(t *testing.T) {
	ch := mes2324(t)
	_, err := New(ch).GetARPTable(context.Background(), "mgmt")
	require.ErrorIs(t, err, ErrUnsupportedFeature)
	assert.Empty(t, ch.calls, "no command is sent for an unsupported vrf")
}

func TestGetMACAddressTable(t *testing.T) {
	d := New(mes2324(t))

	got, err := d.GetMACAddressTable(context.Background())
	require.NoError(t, err)

	want := []domain.MACEntry{
		{VLAN: 1, MAC: "00:11:22:33:44:55", Interface: "gi1/0/1", Static: false, Active: true, Moves: -1, LastMove: -1},
		{VLAN: 1, MAC: "e0:d9:e3:aa:bb:00", Interface: "0", Static: true, Active: true, Moves: -1, LastMove: -1},
		{VLAN: 100, MAC: "a8:f9:4b:00:00:01", Interface: "te1/0/1", Static: true, Active: true, Moves: -1, LastMove: -1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetMACAddressTable() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetLLDPNeighbors(t *testing.T) {
	d := New(mes2324(t))

	got, err := d.GetLLDPNeighbors(context.Background())
	require.NoError(t, err)

	want := domain.LLDPNeighborMap{
		"gi1/0/1": {{Hostname: "core-sw-1", Port: "gi0/24"}},
		"gi1/0/2": {{Hostname: "e0 d9 e3 00 00 10", Port: "gi1/0/48"}},
		"te1/0/1": {{Hostname: "distribution-sw-north", Port: "te1/0/1"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetLLDPNeighbors() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetLLDPNeighborsHexPortIDs(t *testing.T) {
	row := func(cells ...string) string {
		return fmt.Sprintf("%-10s%-18s%-18s%-19s%-13s%s\n", cells[0], cells[1], cells[2], cells[3], cells[4], cells[5])
	}
	out := row("Port", "Device ID", "Port ID", "System Name", "Capabilities", "TTL") +
		"--------- ----------------- ----------------- ------------------ ------------ -----\n" +
		row("gi1/0/3", "a8 f9 4b 11 22 33", "a8 f9 4b 11 22 34", "", "B", "98") +
		row("gi1/0/4", "e0 d9 e3 00 00", "e0 d9 e3 00 01", "srv_db_01", "", "120") +
		row("gi1/0/5", "e0:d9:e3:00:00:02", "eth_0", "aa_bb_cc_dd_ee", "", "120")

	ch := &fakeChannel{outputs: map[string]string{cmdShowLLDP: out}}
	got, err := New(ch).GetLLDPNeighbors(context.Background())
	require.NoError(t, err)

	want := domain.LLDPNeighborMap{
		"gi1/0/3": {{Hostname: "a8 f9 4b 11 22 33", Port: "a8 f9 4b 11 22 34"}},
		"gi1/0/4": {{Hostname: "srv_db_01", Port: "e0 d9 e3 00 01"}},
		"gi1/0/5": {{Hostname: "aa_bb_cc_dd_ee", Port: "eth_0"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetLLDPNeighbors() mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyOutputYieldsEmptyResult(t *testing.T) {
	d := New(&fakeChannel{outputs: map[string]string{}})
	ctx := context.Background()

	ifaces, err := d.GetInterfaces(ctx)
	require.NoError(t, err)
	assert.Empty(t, ifaces)

	ips, err := d.GetInterfacesIP(ctx)
	require.NoError(t, err)
	assert.Empty(t, ips)

	counters, err := d.GetInterfacesCounters(ctx)
	require.NoError(t, err)
	assert.Empty(t, counters)

	arp, err := d.GetARPTable(ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, arp)
	assert.Empty(t, arp)

	mac, err := d.GetMACAddressTable(ctx)
	require.NoError(t, err)
	assert.NotNil(t, mac)
	assert.Empty(t, mac)

	lldp, err := d.GetLLDPNeighbors(ctx)
	require.NoError(t, err)
	assert.Empty(t, lldp)
}

func TestFactOperationsAreIdempotent(t *testing.T) {
	d := New(mes2324(t))
	ctx := context.Background()

	for _, kind := range domain.AllKinds() {
		first, err := d.Fact(ctx, kind)
		require.NoError(t, err, kind)
		second, err := d.Fact(ctx, kind)
		require.NoError(t, err, kind)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("%s not idempotent (-first +second):\n%s", kind, diff)
		}
	}
}

func TestChannelErrorWrapsCommand(t *testing.T) {
	boom := errors.New("connection reset")
	ch := &fakeChannel{errs: map[string]error{cmdShowLLDP: boom}}

	_, err := New(ch).GetLLDPNeighbors(context.Background())
	var cerr *ChannelError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, cmdShowLLDP, cerr.Command)
	assert.ErrorIs(t, err, boom)
}
