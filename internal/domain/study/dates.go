package study

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// PPMI exports visit and diagnosis dates at month resolution.
var knownLayouts = []string{
	"01/2006",
	"1/2006",
}

// ParseDate parses a study date. PPMI month/year layouts are tried first,
// then anything dateparse understands.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range knownLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return dateparse.ParseAny(s)
}

// MonthsBetween returns the absolute number of calendar months separating a
// and b. Only year and month take part: two dates in the same month are 0
// apart, dates in adjacent months are 1 apart whatever the day.
func MonthsBetween(a, b time.Time) int {
	years := a.Year() - b.Year()
	months := int(a.Month()) - int(b.Month())
	d := years*12 + months
	if d < 0 {
		return -d
	}
	return d
}
