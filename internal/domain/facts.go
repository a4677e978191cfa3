package domain

// Sentinel values for facts the device did not report
const (
	Unknown       = "Unknown"
	Vendor        = "Eltex"
	UnknownUptime = -1
	UnknownFlap   = -1
	UnknownAge    = -1.0
	UnknownMoves  = -1
)

// Facts summarizes device identity
type Facts struct {
	Uptime        int      `json:"uptime" yaml:"uptime"`
	Vendor        string   `json:"vendor" yaml:"vendor"`
	OSVersion     string   `json:"os_version" yaml:"os_version"`
	SerialNumber  string   `json:"serial_number" yaml:"serial_number"`
	Model         string   `json:"model" yaml:"model"`
	Hostname      string   `json:"hostname" yaml:"hostname"`
	FQDN          string   `json:"fqdn" yaml:"fqdn"`
	InterfaceList []string `json:"interface_list" yaml:"interface_list"`
}

// Interface is the state of one interface. Speed is in Mbps, LastFlapped in
// seconds since the link came up (-1 when unknown).
type Interface struct {
	Description string `json:"description" yaml:"description"`
	IsEnabled   bool   `json:"is_enabled" yaml:"is_enabled"`
	IsUp        bool   `json:"is_up" yaml:"is_up"`
	LastFlapped int    `json:"last_flapped" yaml:"last_flapped"`
	MACAddress  string `json:"mac_address" yaml:"mac_address"`
	Speed       int    `json:"speed" yaml:"speed"`
	MTU         int    `json:"mtu" yaml:"mtu"`
}

// InterfaceMap is keyed by interface name
type InterfaceMap map[string]Interface

// PrefixInfo describes one address binding
type PrefixInfo struct {
	PrefixLength int `json:"prefix_length" yaml:"prefix_length"`
}

// InterfaceIP holds the addresses bound to an interface
type InterfaceIP struct {
	IPv4 map[string]PrefixInfo `json:"ipv4" yaml:"ipv4"`
	IPv6 map[string]PrefixInfo `json:"ipv6" yaml:"ipv6"`
}

// NewInterfaceIP returns an InterfaceIP with both families present
func NewInterfaceIP() InterfaceIP {
	return InterfaceIP{
		IPv4: make(map[string]PrefixInfo),
		IPv6: make(map[string]PrefixInfo),
	}
}

// InterfaceIPMap is keyed by interface name
type InterfaceIPMap map[string]InterfaceIP

// Counters are per-interface traffic counters. Counters the device does not
// report stay 0.
type Counters struct {
	TxErrors           int64 `json:"tx_error" yaml:"tx_error"`
	RxErrors           int64 `json:"rx_error" yaml:"rx_error"`
	TxDiscards         int64 `json:"tx_discards" yaml:"tx_discards"`
	RxDiscards         int64 `json:"rx_discards" yaml:"rx_discards"`
	TxOctets           int64 `json:"tx_octets" yaml:"tx_octets"`
	RxOctets           int64 `json:"rx_octets" yaml:"rx_octets"`
	TxUnicastPackets   int64 `json:"tx_unicast_packets" yaml:"tx_unicast_packets"`
	RxUnicastPackets   int64 `json:"rx_unicast_packets" yaml:"rx_unicast_packets"`
	TxMulticastPackets int64 `json:"tx_multicast_packets" yaml:"tx_multicast_packets"`
	RxMulticastPackets int64 `json:"rx_multicast_packets" yaml:"rx_multicast_packets"`
	TxBroadcastPackets int64 `json:"tx_broadcast_packets" yaml:"tx_broadcast_packets"`
	RxBroadcastPackets int64 `json:"rx_broadcast_packets" yaml:"rx_broadcast_packets"`
}

// CounterMap is keyed by interface name
type CounterMap map[string]Counters

// ARPEntry is one ARP table row. Age is always -1: the device does not
// report it.
type ARPEntry struct {
	Interface string  `json:"interface" yaml:"interface"`
	MAC       string  `json:"mac" yaml:"mac"`
	IP        string  `json:"ip" yaml:"ip"`
	Age       float64 `json:"age" yaml:"age"`
}

// MACEntry is one forwarding database row
type MACEntry struct {
	VLAN      int     `json:"vlan" yaml:"vlan"`
	MAC       string  `json:"mac" yaml:"mac"`
	Interface string  `json:"interface" yaml:"interface"`
	Static    bool    `json:"static" yaml:"static"`
	Active    bool    `json:"active" yaml:"active"`
	Moves     int     `json:"moves" yaml:"moves"`
	LastMove  float64 `json:"last_move" yaml:"last_move"`
}

// LLDPNeighbor is a neighbor seen on a local interface
type LLDPNeighbor struct {
	Hostname string `json:"hostname" yaml:"hostname"`
	Port     string `json:"port" yaml:"port"`
}

// LLDPNeighborMap is keyed by local interface name
type LLDPNeighborMap map[string][]LLDPNeighbor

// ConfigSet holds device configurations. Candidate is always empty: the
// platform has no candidate datastore.
type ConfigSet struct {
	Running   string `json:"running" yaml:"running"`
	Startup   string `json:"startup" yaml:"startup"`
	Candidate string `json:"candidate" yaml:"candidate"`
}

// PingResult is the outcome of a ping issued from the device. Exactly one
// of Error and Success is set, or neither when the output was not
// recognised.
type PingResult struct {
	Error   string       `json:"error,omitempty" yaml:"error,omitempty"`
	Success *PingSuccess `json:"success,omitempty" yaml:"success,omitempty"`
}

// PingSuccess carries ping statistics. RTTs are in milliseconds.
type PingSuccess struct {
	ProbesSent int         `json:"probes_sent" yaml:"probes_sent"`
	PacketLoss int         `json:"packet_loss" yaml:"packet_loss"`
	RTTMin     float64     `json:"rtt_min" yaml:"rtt_min"`
	RTTMax     float64     `json:"rtt_max" yaml:"rtt_max"`
	RTTAvg     float64     `json:"rtt_avg" yaml:"rtt_avg"`
	RTTStddev  float64     `json:"rtt_stddev" yaml:"rtt_stddev"`
	Results    []PingProbe `json:"results" yaml:"results"`
}

// PingProbe is one echo reply
type PingProbe struct {
	IPAddress string  `json:"ip_address" yaml:"ip_address"`
	RTT       float64 `json:"rtt" yaml:"rtt"`
}
