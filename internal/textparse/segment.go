package textparse

import (
	"regexp"
	"strings"
)

// sentinel is appended after the last line so the final block is flushed by
// the same code path as every other block.
const sentinel = "\x00--end-of-output--\x00"

// Separator recognises the line that opens a block.
type Separator interface {
	// Match reports whether line opens a block and, for header
	// separators, the key captured from it.
	Match(line string) (key string, ok bool)
}

type marker string

// Marker returns a Separator matching any line that contains s.
func Marker(s string) Separator { return marker(s) }

func (m marker) Match(line string) (string, bool) {
	return "", strings.Contains(line, string(m))
}

type header struct {
	re *regexp.Regexp
}

// Header returns a Separator matching lines against re. The first capture
// group, when present, becomes the block key.
func Header(re *regexp.Regexp) Separator { return header{re: re} }

func (h header) Match(line string) (string, bool) {
	m := h.re.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	if len(m) > 1 {
		return strings.TrimSpace(m[1]), true
	}
	return "", true
}

// Block is one segment of a response. Text starts with the separator line.
type Block struct {
	Key  string
	Text string
}

// SplitLines splits text into lines, dropping carriage returns left behind by
// PTY sessions.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

// SplitBlocks cuts text into blocks at every line matched by sep. Text before
// the first separator carries no key and is discarded. N separator lines
// produce N blocks in order.
func SplitBlocks(text string, sep Separator) []Block {
	var (
		blocks []Block
		cur    []string
		key    string
		open   bool
	)

	lines := append(SplitLines(text), sentinel)
	for _, line := range lines {
		k, isSep := sep.Match(line)
		if line == sentinel {
			isSep = true
		}
		if !isSep {
			if open {
				cur = append(cur, line)
			}
			continue
		}
		if open {
			blocks = append(blocks, Block{Key: key, Text: strings.Join(cur, "\n") + "\n"})
		}
		cur = []string{line}
		key = k
		open = true
	}
	return blocks
}

// RequireBlocks is SplitBlocks for callers that need at least one block:
// non-blank text without any separator is a ParseError.
func RequireBlocks(text string, sep Separator) ([]Block, error) {
	blocks := SplitBlocks(text, sep)
	if len(blocks) == 0 && strings.TrimSpace(text) != "" {
		return nil, parseErrorf(text, "no sections found")
	}
	return blocks, nil
}

// SplitRegex splits content at every match of re, keeping each match as the
// head of its section. Content before the first match is dropped. Empty
// content yields no sections; content without any match is a ParseError.
func SplitRegex(content string, re *regexp.Regexp) ([]string, error) {
	if content == "" {
		return nil, nil
	}
	idx := re.FindAllStringIndex(content, -1)
	if len(idx) == 0 {
		return nil, parseErrorf(content, "unexpected output data")
	}
	sections := make([]string, 0, len(idx))
	for i, loc := range idx {
		end := len(content)
		if i+1 < len(idx) {
			end = idx[i+1][0]
		}
		sections = append(sections, content[loc[0]:end])
	}
	return sections, nil
}

var ruleLine = regexp.MustCompile(`^\s*-{3,}(?:[\s+]+-{3,})*\s*$`)

// IsRule reports whether line is a dashed table rule such as
// "-------- ------- ----".
func IsRule(line string) bool {
	return ruleLine.MatchString(line)
}

// Section is a table body: the rows between a dashed rule and the next blank
// line. Rule keeps the rule line itself so column spans can be derived from
// it.
type Section struct {
	Rule  string
	Lines []string
}

// TableSections returns every table section of text in order. A rule line
// opens a section, a blank line or another rule closes it, and an
// unterminated final section is closed at the end of the text.
func TableSections(text string) []Section {
	var (
		sections []Section
		cur      *Section
	)
	flush := func() {
		if cur != nil {
			sections = append(sections, *cur)
			cur = nil
		}
	}

	for _, line := range SplitLines(text) {
		switch {
		case IsRule(line):
			flush()
			cur = &Section{Rule: line}
		case strings.TrimSpace(line) == "":
			flush()
		case cur != nil:
			cur.Lines = append(cur.Lines, line)
		}
	}
	flush()
	return sections
}
