package textparse

import "fmt"

// ParseError reports device output whose structure does not match what a
// parser expects. Raw carries the offending text so it can be logged or
// attached to a bug report.
type ParseError struct {
	Msg string
	Raw string
}

func (e *ParseError) Error() string {
	return "parse error: " + e.Msg
}

func parseErrorf(raw string, format string, args ...any) *ParseError {
	return &ParseError{Msg: fmt.Sprintf(format, args...), Raw: raw}
}
