package textparse

import (
	"strconv"
	"strings"
)

// Row is one table line split into cells. A blank cell is "".
type Row []string

// Cell returns cell i, or "" when the row is shorter.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Span is a half-open byte range [Start, End) of a line.
type Span struct {
	Start, End int
}

func (s Span) overlap(start, end int) int {
	lo, hi := max(s.Start, start), min(s.End, end)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

func isBlank(b byte) bool { return b == ' ' || b == '\t' }

// InferColumns derives fixed-width column spans from lines: a column is a
// maximal run of positions where at least one line has a non-blank
// character.
func InferColumns(lines []string) []Span {
	width := 0
	for _, l := range lines {
		width = max(width, len(l))
	}
	occupied := make([]bool, width)
	for _, l := range lines {
		for i := 0; i < len(l); i++ {
			if !isBlank(l[i]) {
				occupied[i] = true
			}
		}
	}

	var spans []Span
	start := -1
	for i, occ := range occupied {
		switch {
		case occ && start < 0:
			start = i
		case !occ && start >= 0:
			spans = append(spans, Span{Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, Span{Start: start, End: width})
	}
	return spans
}

func slice(line string, s Span) string {
	if s.Start >= len(line) {
		return ""
	}
	return strings.TrimSpace(line[s.Start:min(s.End, len(line))])
}

// FixedWidthRows splits a fixed-width table body into rows using columns
// inferred from the body itself.
func FixedWidthRows(lines []string) []Row {
	lines = nonBlank(lines)
	spans := InferColumns(lines)
	rows := make([]Row, 0, len(lines))
	for _, l := range lines {
		row := make(Row, len(spans))
		for i, s := range spans {
			row[i] = slice(l, s)
		}
		rows = append(rows, row)
	}
	return rows
}

// RuleSpans returns the spans of the dash runs in a table rule.
func RuleSpans(rule string) []Span {
	var spans []Span
	start := -1
	for i := 0; i < len(rule); i++ {
		dash := rule[i] == '-'
		switch {
		case dash && start < 0:
			start = i
		case !dash && start >= 0:
			spans = append(spans, Span{Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, Span{Start: start, End: len(rule)})
	}
	return spans
}

type token struct {
	start, end int
	text       string
}

func tokenize(line string) []token {
	var toks []token
	start := -1
	for i := 0; i <= len(line); i++ {
		blank := i == len(line) || isBlank(line[i])
		switch {
		case !blank && start < 0:
			start = i
		case blank && start >= 0:
			toks = append(toks, token{start: start, end: i, text: line[start:i]})
			start = -1
		}
	}
	return toks
}

// DelimitedRows splits whitespace-delimited table lines into cells using the
// dash runs of rule as column spans. Each token goes to the column it
// overlaps most; a token that overlaps none goes to the nearest column on
// its left. Tokens landing in the same column are joined with one space.
func DelimitedRows(rule string, lines []string) []Row {
	spans := RuleSpans(rule)
	if len(spans) == 0 {
		return nil
	}
	lines = nonBlank(lines)
	rows := make([]Row, 0, len(lines))
	for _, l := range lines {
		row := make(Row, len(spans))
		for _, tok := range tokenize(l) {
			col := columnFor(spans, tok)
			if row[col] != "" {
				row[col] += " "
			}
			row[col] += tok.text
		}
		rows = append(rows, row)
	}
	return rows
}

func columnFor(spans []Span, tok token) int {
	best, bestOverlap := -1, 0
	for i, s := range spans {
		if o := s.overlap(tok.start, tok.end); o > bestOverlap {
			best, bestOverlap = i, o
		}
	}
	if best >= 0 {
		return best
	}
	best = 0
	for i, s := range spans {
		if s.Start <= tok.start {
			best = i
		}
	}
	return best
}

func nonBlank(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// Merge says how a continuation cell is folded into its record.
type Merge int

const (
	// Concat appends continuation text without a separator.
	Concat Merge = iota
	// Sum adds continuation numbers.
	Sum
)

// Column names one cell of a row and how it merges.
type Column struct {
	Name  string
	Index int
	Merge Merge
}

// Layout describes how rows of one table become records.
type Layout struct {
	Key     int
	Columns []Column
}

// Record is a reconstructed table row.
type Record struct {
	Key    string
	text   map[string]string
	totals map[string]int64
}

// Text returns a Concat column.
func (r Record) Text(name string) string { return r.text[name] }

// Total returns a Sum column.
func (r Record) Total(name string) int64 { return r.totals[name] }

// accumulator keeps records in arrival order and remembers, per key, the
// index of the most recent record so continuations can find it.
type accumulator struct {
	records []Record
	latest  map[string]int
	lastKey string
}

func (a *accumulator) start(rec Record) {
	a.latest[rec.Key] = len(a.records)
	a.lastKey = rec.Key
	a.records = append(a.records, rec)
}

func (a *accumulator) current() (*Record, bool) {
	i, ok := a.latest[a.lastKey]
	if !ok {
		return nil, false
	}
	return &a.records[i], true
}

// Reconstruct turns rows into records. A row whose key cell is blank
// continues the most recent record: Sum columns add, Concat columns append.
// A continuation before any keyed row is a ParseError, as is a Sum cell
// that is not a number.
func Reconstruct(rows []Row, layout Layout) ([]Record, error) {
	acc := &accumulator{latest: make(map[string]int)}
	for _, row := range rows {
		key := row.Cell(layout.Key)
		if key != "" {
			rec := Record{
				Key:    key,
				text:   make(map[string]string),
				totals: make(map[string]int64),
			}
			if err := apply(&rec, row, layout); err != nil {
				return nil, err
			}
			acc.start(rec)
			continue
		}

		rec, ok := acc.current()
		if !ok {
			return nil, parseErrorf(strings.Join(row, " "), "continuation with no prior record")
		}
		if err := apply(rec, row, layout); err != nil {
			return nil, err
		}
	}
	return acc.records, nil
}

func apply(rec *Record, row Row, layout Layout) error {
	for _, col := range layout.Columns {
		cell := row.Cell(col.Index)
		switch col.Merge {
		case Sum:
			if cell == "" {
				continue
			}
			n, err := strconv.ParseInt(strings.ReplaceAll(cell, ",", ""), 10, 64)
			if err != nil {
				return parseErrorf(strings.Join(row, " "), "column %q: not a number: %q", col.Name, cell)
			}
			rec.totals[col.Name] += n
		default:
			rec.text[col.Name] += cell
		}
	}
	return nil
}
