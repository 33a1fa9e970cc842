// Package shipdate normalizes the free-text ship dates reps type into
// order sheets. Inputs range from clean MM/DD/YYYY strings to "ASAP",
// "12/25ish", or nothing at all, and the pipeline needs one canonical
// form either way.
package shipdate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layout is the canonical output format.
const Layout = "01/02/2006"

// datePattern finds a month/day pair with an optional year anywhere in
// the string, tolerating both / and - separators.
var datePattern = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{4}|\d{2}))?\b`)

// Normalize parses raw into MM/DD/YYYY. The second return reports
// whether the date was defaulted to tomorrow because the input was
// blank, "ASAP", or unparseable. Callers collect defaulted rows into a
// warning digest; defaulting is never an error.
//
// now anchors "tomorrow" and the yearless roll-forward rule, which
// keeps the function deterministic under test.
func Normalize(raw string, now time.Time) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "ASAP") {
		return tomorrow(now), true
	}

	m := datePattern.FindStringSubmatch(trimmed)
	if m == nil {
		return tomorrow(now), true
	}

	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])

	var year int
	switch {
	case m[3] == "":
		year = now.Year()
	case len(m[3]) == 2:
		// Two-digit pivot: 00-49 are 2000s, 50-99 are 1900s.
		y, _ := strconv.Atoi(m[3])
		if y < 50 {
			year = 2000 + y
		} else {
			year = 1900 + y
		}
	default:
		year, _ = strconv.Atoi(m[3])
	}

	if !validDate(year, month, day) {
		return tomorrow(now), true
	}

	if m[3] == "" {
		// No year given: assume this year, but a date already behind
		// us means the rep meant next year.
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if d.Before(today) {
			year++
			if !validDate(year, month, day) { // Feb 29 may not survive the roll
				return tomorrow(now), true
			}
		}
	}

	return fmt.Sprintf("%02d/%02d/%04d", month, day, year), false
}

func tomorrow(now time.Time) string {
	return now.AddDate(0, 0, 1).Format(Layout)
}

// validDate reports whether year, month, day form a real calendar
// date. time.Date silently normalizes overflow (Feb 30 becomes Mar 2),
// so the round-trip check catches it.
func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return d.Year() == year && int(d.Month()) == month && d.Day() == day
}
