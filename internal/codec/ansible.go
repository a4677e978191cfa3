package codec

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"eltexfacts/internal/domain"

	"gopkg.in/yaml.v3"
)

// InventoryHost is one switch as it appears in an Ansible inventory
type InventoryHost struct {
	Name  string
	Host  string
	Port  int
	Facts *domain.Facts
}

// AnsibleCodec handles Ansible inventory import/export
type AnsibleCodec struct{}

// NewAnsibleCodec creates a new Ansible codec
func NewAnsibleCodec() *AnsibleCodec {
	return &AnsibleCodec{}
}

// Format returns the codec format identifier
func (c *AnsibleCodec) Format() string {
	return "ansible"
}

// ansibleInventory represents the Ansible inventory structure
type ansibleInventory struct {
	All ansibleGroup `yaml:"all"`
}

type ansibleGroup struct {
	Children map[string]ansibleGroupDef `yaml:"children,omitempty"`
	Hosts    map[string]ansibleHost     `yaml:"hosts,omitempty"`
	Vars     map[string]interface{}     `yaml:"vars,omitempty"`
}

type ansibleGroupDef struct {
	Hosts map[string]ansibleHost `yaml:"hosts,omitempty"`
	Vars  map[string]interface{} `yaml:"vars,omitempty"`
}

type ansibleHost struct {
	AnsibleHost string                 `yaml:"ansible_host,omitempty"`
	Vars        map[string]interface{} `yaml:",inline"`
}

// ungrouped collects hosts with no known model
const ungrouped = "eltex"

var groupUnsafe = regexp.MustCompile(`[^a-z0-9_]+`)

// groupName derives an inventory group from the model's first word,
// e.g. "MES2324 28-port 1G/10G Managed Switch" becomes "mes2324"
func groupName(f *domain.Facts) string {
	if f == nil {
		return ungrouped
	}
	fields := strings.Fields(f.Model)
	if len(fields) == 0 || f.Model == domain.Unknown {
		return ungrouped
	}
	name := groupUnsafe.ReplaceAllString(strings.ToLower(fields[0]), "_")
	if name == "" {
		return ungrouped
	}
	return name
}

// ParseInventory reads switches back from an Ansible inventory.
// Hosts without ansible_host use their inventory name as address.
func (c *AnsibleCodec) ParseInventory(r io.Reader) ([]InventoryHost, error) {
	var inv ansibleInventory
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&inv); err != nil {
		return nil, fmt.Errorf("failed to parse Ansible inventory: %w", err)
	}

	seen := make(map[string]bool)
	var hosts []InventoryHost
	add := func(name string, h ansibleHost) {
		if seen[name] {
			return
		}
		seen[name] = true
		ih := InventoryHost{Name: name, Host: h.AnsibleHost}
		if ih.Host == "" {
			ih.Host = name
		}
		if port, ok := h.Vars["ansible_port"].(int); ok {
			ih.Port = port
		}
		hosts = append(hosts, ih)
	}

	// Process all groups
	for _, group := range inv.All.Children {
		for name, h := range group.Hosts {
			add(name, h)
		}
	}
	// Process hosts in the 'all' group directly
	for name, h := range inv.All.Hosts {
		add(name, h)
	}

	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Name < hosts[j].Name })
	return hosts, nil
}

// Export writes an Ansible inventory. v must be a []InventoryHost.
func (c *AnsibleCodec) Export(v any, w io.Writer) error {
	hosts, ok := v.([]InventoryHost)
	if !ok {
		return fmt.Errorf("ansible export: unsupported value %T", v)
	}

	inv := ansibleInventory{
		All: ansibleGroup{
			Children: make(map[string]ansibleGroupDef),
			Vars: map[string]interface{}{
				"ansible_connection": "network_cli",
				"ansible_network_os": "community.network.eltex_mes",
			},
		},
	}

	for _, h := range hosts {
		group := groupName(h.Facts)
		def, ok := inv.All.Children[group]
		if !ok {
			def = ansibleGroupDef{Hosts: make(map[string]ansibleHost)}
		}

		host := ansibleHost{
			AnsibleHost: h.Host,
			Vars:        make(map[string]interface{}),
		}
		if h.Port != 0 && h.Port != 22 {
			host.Vars["ansible_port"] = h.Port
		}
		if f := h.Facts; f != nil {
			host.Vars["model"] = f.Model
			host.Vars["os_version"] = f.OSVersion
			host.Vars["serial_number"] = f.SerialNumber
		}

		def.Hosts[h.Name] = host
		inv.All.Children[group] = def
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&inv); err != nil {
		return fmt.Errorf("failed to encode Ansible inventory: %w", err)
	}

	return nil
}
