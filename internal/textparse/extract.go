package textparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Match is a successful pattern match inside a block.
type Match struct {
	re     *regexp.Regexp
	groups []string
}

// Group returns the text captured by the named group, or "" when the group
// does not exist or did not participate.
func (m Match) Group(name string) string {
	i := m.re.SubexpIndex(name)
	if i < 0 || i >= len(m.groups) {
		return ""
	}
	return m.groups[i]
}

// Decoder converts a match into a field value.
type Decoder func(m Match) (any, error)

// Text decodes the named group as trimmed text.
func Text(group string) Decoder {
	return func(m Match) (any, error) {
		return strings.TrimSpace(m.Group(group)), nil
	}
}

// Int decodes the named group as a base-10 integer.
func Int(group string) Decoder {
	return func(m Match) (any, error) {
		return atoi(m.Group(group))
	}
}

// Present decodes to true. Paired with a false default it turns a marker
// pattern into a boolean field.
func Present() Decoder {
	return func(Match) (any, error) {
		return true, nil
	}
}

// Duration combines day/hour/minute/second groups into seconds. Empty
// group names are treated as zero.
func Duration(days, hours, minutes, seconds string) Decoder {
	return func(m Match) (any, error) {
		total := 0
		for _, part := range []struct {
			group string
			scale int
		}{
			{days, daySeconds},
			{hours, hourSeconds},
			{minutes, minuteSeconds},
			{seconds, 1},
		} {
			if part.group == "" {
				continue
			}
			n, err := atoi(m.Group(part.group))
			if err != nil {
				return nil, err
			}
			total += n * part.scale
		}
		return total, nil
	}
}

func atoi(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("decode %q: %w", s, err)
	}
	return n, nil
}

// FieldSpec declares one field of a fact type.
type FieldSpec struct {
	Name     string
	Pattern  *regexp.Regexp
	Decode   Decoder
	Default  any
	Required bool
}

// Registry is the ordered field list of one fact type.
type Registry []FieldSpec

// Extract applies every FieldSpec to block. The first match of a pattern wins.
// A missing optional field takes its default; a missing required field, or
// one whose capture cannot be decoded, is a ParseError.
func (r Registry) Extract(block string) (FieldSet, error) {
	fs := make(FieldSet, len(r))
	for _, field := range r {
		groups := field.Pattern.FindStringSubmatch(block)
		if groups == nil {
			if field.Required {
				return nil, parseErrorf(block, "required field %q not found", field.Name)
			}
			fs[field.Name] = field.Default
			continue
		}
		v, err := field.Decode(Match{re: field.Pattern, groups: groups})
		if err != nil {
			return nil, parseErrorf(block, "field %q: %v", field.Name, err)
		}
		fs[field.Name] = v
	}
	return fs, nil
}

// FieldSet holds the decoded fields of one block.
type FieldSet map[string]any

// String returns a text field, or "" when absent or of another type.
func (fs FieldSet) String(name string) string {
	s, _ := fs[name].(string)
	return s
}

// Int returns an integer field, or 0 when absent or of another type.
func (fs FieldSet) Int(name string) int {
	n, _ := fs[name].(int)
	return n
}

// Bool returns a boolean field, or false when absent or of another type.
func (fs FieldSet) Bool(name string) bool {
	b, _ := fs[name].(bool)
	return b
}
