package dates

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrUnparsableDate is returned by Parse. Record-level helpers never surface
// it; they report ok=false so the record drops out of date-dependent results.
var ErrUnparsableDate = errors.New("unparsable date")

const Layout = "2006-01-02"

var (
	dateOnlyRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateSpaceRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}(:\d{2})?(\.\d+)?$`)
)

type strategy struct {
	name  string
	parse func(string) (time.Time, bool)
}

func layouts(ls ...string) func(string) (time.Time, bool) {
	return func(s string) (time.Time, bool) {
		for _, l := range ls {
			if t, err := time.Parse(l, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
}

// strategies run in order; the first success wins.
var strategies = []strategy{
	{
		// "2024-01-05" gets an explicit midnight.
		name: "iso-date",
		parse: func(s string) (time.Time, bool) {
			if !dateOnlyRe.MatchString(s) {
				return time.Time{}, false
			}
			return layouts("2006-01-02T15:04:05")(s + "T00:00:00")
		},
	},
	{
		// "2024-01-05 14:30:00" as written by the spreadsheet export.
		name: "iso-datetime-space",
		parse: func(s string) (time.Time, bool) {
			if !dateSpaceRe.MatchString(s) {
				return time.Time{}, false
			}
			return layouts("2006-01-02T15:04:05.999999999", "2006-01-02T15:04")(strings.Replace(s, " ", "T", 1))
		},
	},
	{
		name:  "rfc3339",
		parse: layouts(time.RFC3339Nano),
	},
	{
		name:  "iso-datetime-local",
		parse: layouts("2006-01-02T15:04:05.999999999", "2006-01-02T15:04"),
	},
	{
		name:  "br-date",
		parse: layouts("02/01/2006", "02/01/2006 15:04:05", "02/01/2006 15:04", "2/1/2006"),
	},
	{
		name:  "br-dash",
		parse: layouts("02-01-2006"),
	},
}

// Parse tries every strategy in order and returns the first success.
func Parse(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrUnparsableDate)
	}
	for _, st := range strategies {
		t, ok := st.parse(s)
		if !ok {
			continue
		}
		if y := t.Year(); y < 1900 || y > 2200 {
			return time.Time{}, fmt.Errorf("%w: %q out of range", ErrUnparsableDate, raw)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableDate, raw)
}

// Normalize returns raw as YYYY-MM-DD, or ok=false.
func Normalize(raw string) (string, bool) {
	t, err := Parse(raw)
	if err != nil {
		return "", false
	}
	return t.Format(Layout), true
}

// Civil drops the clock and zone, keeping the calendar date as written.
func Civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from a to b; negative when b is earlier.
func DaysBetween(a, b time.Time) int {
	return int(Civil(b).Sub(Civil(a)).Hours() / 24)
}
