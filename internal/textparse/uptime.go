package textparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	minuteSeconds = 60
	hourSeconds   = 60 * minuteSeconds
	daySeconds    = 24 * hourSeconds
	weekSeconds   = 7 * daySeconds
	yearSeconds   = 365 * daySeconds
)

// ParseCompactUptime parses "D,HH:MM:SS" or "HH:MM:SS" into seconds.
// Malformed input is logged and yields 0.
func ParseCompactUptime(s string) int {
	s = strings.TrimSpace(s)
	days, clock := 0, s
	if i := strings.IndexByte(s, ','); i >= 0 {
		d, ok := uptimePart(strings.TrimSpace(s[:i]))
		if !ok {
			return malformedUptime(s)
		}
		days, clock = d, s[i+1:]
	}

	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 3 {
		return malformedUptime(s)
	}
	var hms [3]int
	for i, p := range parts {
		n, ok := uptimePart(p)
		if !ok {
			return malformedUptime(s)
		}
		hms[i] = n
	}
	return days*daySeconds + hms[0]*hourSeconds + hms[1]*minuteSeconds + hms[2]
}

var digits = regexp.MustCompile(`^\d+$`)

// uptimePart accepts unsigned decimal digit runs only
func uptimePart(p string) (int, bool) {
	if !digits.MatchString(p) {
		return 0, false
	}
	n, err := strconv.Atoi(p)
	return n, err == nil
}

func malformedUptime(s string) int {
	logrus.WithField("uptime", s).Warn("unable to parse uptime, using 0")
	return 0
}

var verboseUnits = []struct {
	re    *regexp.Regexp
	scale int
}{
	{regexp.MustCompile(`(\d+)\s+years?`), yearSeconds},
	{regexp.MustCompile(`(\d+)\s+weeks?`), weekSeconds},
	{regexp.MustCompile(`(\d+)\s+days?`), daySeconds},
	{regexp.MustCompile(`(\d+)\s+hours?`), hourSeconds},
	{regexp.MustCompile(`(\d+)\s+minutes?`), minuteSeconds},
	{regexp.MustCompile(`(\d+)\s+seconds?`), 1},
}

// ParseVerboseUptime parses "N years, N weeks, N days, N hours, N minutes,
// N seconds" in any order into seconds. Absent units count as zero.
func ParseVerboseUptime(s string) int {
	total := 0
	for _, u := range verboseUnits {
		if m := u.re.FindStringSubmatch(s); m != nil {
			n, _ := strconv.Atoi(m[1])
			total += n * u.scale
		}
	}
	return total
}

// ParseUptime picks the verbose parser when s names any time unit and the
// compact parser otherwise.
func ParseUptime(s string) int {
	for _, u := range verboseUnits {
		if u.re.MatchString(s) {
			return ParseVerboseUptime(s)
		}
	}
	return ParseCompactUptime(s)
}
