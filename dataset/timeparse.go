package dataset

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimeLayouts are tried in order for trip timestamps and combined
// crash timestamps.
var DefaultTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
}

var crashDateLayouts = []string{
	"1/2/2006",
	"2006-01-02",
}

var crashClockLayouts = []string{
	"15:04",
	"15:04:05",
}

type timeParser struct {
	layouts []string
	loc     *time.Location
}

func newTimeParser(extra []string, loc *time.Location) timeParser {
	if loc == nil {
		loc = time.UTC
	}
	layouts := make([]string, 0, len(extra)+len(DefaultTimeLayouts))
	layouts = append(layouts, extra...)
	layouts = append(layouts, DefaultTimeLayouts...)
	return timeParser{layouts: layouts, loc: loc}
}

func (p timeParser) parse(s string) (time.Time, error) {
	for _, layout := range p.layouts {
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// parseDateClock combines a separate date and time-of-day, as the NYPD
// export stores them. A date exported with a midnight time part
// ("2021-09-11T00:00:00.000") is cut at the 'T'.
func (p timeParser) parseDateClock(date, clock string) (time.Time, error) {
	if i := strings.IndexByte(date, 'T'); i > 0 {
		date = date[:i]
	}
	var d time.Time
	var err error
	for _, layout := range crashDateLayouts {
		if d, err = time.ParseInLocation(layout, date, p.loc); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", date)
	}
	var c time.Time
	for _, layout := range crashClockLayouts {
		if c, err = time.Parse(layout, clock); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized time %q", clock)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, p.loc), nil
}
