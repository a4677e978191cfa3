// Package codec encodes fact results and device inventories for output.
package codec

import (
	"fmt"
	"io"
	"sort"

	"eltexfacts/internal/domain"
)

// Importer interface for reading snapshots back from an export
type Importer interface {
	Parse(r io.Reader) (*domain.Snapshot, error)
	Format() string
}

// Exporter interface for writing any fact result in a given format
type Exporter interface {
	Export(v any, w io.Writer) error
	Format() string
}

var exporters = map[string]func() Exporter{
	"json":    func() Exporter { return NewJSONCodec() },
	"yaml":    func() Exporter { return NewYAMLCodec() },
	"ansible": func() Exporter { return NewAnsibleCodec() },
}

// ForFormat returns the exporter registered under name
func ForFormat(name string) (Exporter, error) {
	if name == "yml" {
		name = "yaml"
	}
	newFn, ok := exporters[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (supported: %v)", name, Formats())
	}
	return newFn(), nil
}

// Formats lists the registered exporter names
func Formats() []string {
	names := make([]string, 0, len(exporters))
	for name := range exporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
