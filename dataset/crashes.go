package dataset

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"bikeshare-risk/models"
)

// CrashTable is a loaded set of crashes with unique ids. Crashes without a
// usable location are included and counted in Report.Unlocated.
type CrashTable struct {
	Records []models.CrashRecord
	Report  LoadReport
}

// Located returns the crashes that carry a location.
func (t *CrashTable) Located() []models.CrashRecord {
	out := make([]models.CrashRecord, 0, len(t.Records)-t.Report.Unlocated)
	for _, c := range t.Records {
		if c.HasLocation() {
			out = append(out, c)
		}
	}
	return out
}

// Locations returns the coordinates of the located crashes, in record order.
func (t *CrashTable) Locations() []models.Coordinate {
	located := t.Located()
	out := make([]models.Coordinate, len(located))
	for i, c := range located {
		out[i] = *c.Location
	}
	return out
}

// LoadCrashes reads one CSV stream of collision records.
func (l *Loader) LoadCrashes(ctx context.Context, r io.Reader, source string) (*CrashTable, error) {
	b := l.newCrashBuilder()
	if err := b.read(ctx, r, source); err != nil {
		return nil, err
	}
	return b.finish(), nil
}

// LoadCrashesFromPath loads a CSV file, a zip archive or a directory.
func (l *Loader) LoadCrashesFromPath(ctx context.Context, path string) (*CrashTable, error) {
	b := l.newCrashBuilder()
	if err := readPath(ctx, path, b.read); err != nil {
		return nil, err
	}
	return b.finish(), nil
}

type crashBuilder struct {
	l        *Loader
	cols     columns
	combined bool
	split    bool
	records  []models.CrashRecord
	seen     map[string]struct{}
	report   LoadReport
}

func (l *Loader) newCrashBuilder() *crashBuilder {
	return &crashBuilder{
		l:      l,
		seen:   make(map[string]struct{}),
		report: newReport(l.maxWarnings),
	}
}

func (b *crashBuilder) read(ctx context.Context, r io.Reader, source string) error {
	return b.l.readCSV(ctx, r, source, b.l.crashColumns, b, &b.report)
}

func (b *crashBuilder) finish() *CrashTable {
	if b.records == nil {
		b.records = []models.CrashRecord{}
	}
	b.l.logReport("crashes", b.report)
	return &CrashTable{Records: b.records, Report: b.report}
}

// header requires an id, a location pair and either a combined timestamp
// or separate date and time columns. Exports may carry both.
func (b *crashBuilder) header(source string, cols columns) error {
	required := []Field{FieldCrashID, FieldLatitude, FieldLongitude}
	b.combined = cols.has(FieldCrashTimestamp)
	b.split = cols.has(FieldCrashDate) && cols.has(FieldCrashTime)
	if !b.combined {
		required = append(required, FieldCrashDate, FieldCrashTime)
	}
	if missing := cols.missing(required); len(missing) > 0 {
		return &SchemaMismatchError{Source: source, Missing: missing}
	}
	b.cols = cols
	return nil
}

func (b *crashBuilder) row(rec []string) *rowError {
	c := b.cols
	cr := models.CrashRecord{
		CrashID: c.get(rec, FieldCrashID),
		Borough: c.get(rec, FieldBorough),
	}
	if cr.CrashID == "" {
		return skip(ReasonMissingField, "%s is empty", FieldCrashID)
	}

	var rerr *rowError
	if cr.Timestamp, rerr = b.timestamp(rec); rerr != nil {
		return rerr
	}

	var err error
	if cr.CyclistsInjured, err = parseCount(c.get(rec, FieldCyclistsInjured)); err != nil {
		return skip(ReasonInvalidNumber, "%s: %v", FieldCyclistsInjured, err)
	}
	if cr.CyclistsKilled, err = parseCount(c.get(rec, FieldCyclistsKilled)); err != nil {
		return skip(ReasonInvalidNumber, "%s: %v", FieldCyclistsKilled, err)
	}
	cr.ContributingFactors = tagSet(c.all(rec, FieldContributingFactor))
	cr.VehicleTypes = tagSet(c.all(rec, FieldVehicleType))
	cr.Location = crashLocation(c.get(rec, FieldLatitude), c.get(rec, FieldLongitude))

	if _, dup := b.seen[cr.CrashID]; dup {
		return skip(ReasonDuplicateID, "crash_id %s", cr.CrashID)
	}
	if b.l.cyclistsOnly && !cr.InvolvesCyclist() {
		b.report.Filtered++
		return nil
	}

	b.seen[cr.CrashID] = struct{}{}
	b.records = append(b.records, cr)
	b.report.Loaded++
	if cr.Location == nil {
		b.report.Unlocated++
	}
	return nil
}

// timestamp prefers the combined column and falls back to the date and time
// columns when the combined value is empty or unparsable.
func (b *crashBuilder) timestamp(rec []string) (time.Time, *rowError) {
	c := b.cols
	var combinedErr error
	if b.combined {
		if ts := c.get(rec, FieldCrashTimestamp); ts != "" {
			t, err := b.l.times.parse(ts)
			if err == nil {
				return t, nil
			}
			combinedErr = err
		}
	}
	if b.split {
		date, clock := c.get(rec, FieldCrashDate), c.get(rec, FieldCrashTime)
		if date != "" && clock != "" {
			t, err := b.l.times.parseDateClock(date, clock)
			if err != nil {
				return time.Time{}, skip(ReasonInvalidTime, "%v", err)
			}
			return t, nil
		}
	}
	if combinedErr != nil {
		return time.Time{}, skip(ReasonInvalidTime, "%v", combinedErr)
	}
	return time.Time{}, skip(ReasonMissingField, "crash date or time is empty")
}

// crashLocation returns nil for rows without usable geocoding. The export
// uses 0 as a placeholder for an unknown latitude or longitude.
func crashLocation(lat, lng string) *models.Coordinate {
	if lat == "" || lng == "" {
		return nil
	}
	loc, err := parseCoordinate(lat, lng)
	if err != nil || loc.Lat == 0 || loc.Lng == 0 {
		return nil
	}
	return &loc
}

// parseCount accepts "2" and "2.0"; an empty value is zero.
func parseCount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not a count", s)
	}
	return int(f), nil
}

// tagSet trims, de-duplicates case-insensitively and sorts free-text tags.
func tagSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
