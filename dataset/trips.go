package dataset

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"bikeshare-risk/models"
)

var bikeTypes = map[string]models.BikeType{
	"classic":       models.BikeClassic,
	"classic_bike":  models.BikeClassic,
	"docked_bike":   models.BikeClassic,
	"docked":        models.BikeClassic,
	"electric":      models.BikeElectric,
	"electric_bike": models.BikeElectric,
	"ebike":         models.BikeElectric,
	"e_bike":        models.BikeElectric,
}

var riderTypes = map[string]models.RiderType{
	"member":     models.RiderMember,
	"subscriber": models.RiderMember,
	"casual":     models.RiderCasual,
	"customer":   models.RiderCasual,
}

// TripTable is a loaded, validated set of trips. Callers must treat Records
// as read-only.
type TripTable struct {
	Records []models.TripRecord
	Report  LoadReport
}

// LoadTrips reads one CSV stream of trips. source names the stream in
// errors and warnings.
func (l *Loader) LoadTrips(ctx context.Context, r io.Reader, source string) (*TripTable, error) {
	b := l.newTripBuilder()
	if err := b.read(ctx, r, source); err != nil {
		return nil, err
	}
	return b.finish(), nil
}

// LoadTripsFromPath loads a CSV file, a zip archive or a directory of
// monthly exports. Each file is mapped through its own header.
func (l *Loader) LoadTripsFromPath(ctx context.Context, path string) (*TripTable, error) {
	b := l.newTripBuilder()
	if err := readPath(ctx, path, b.read); err != nil {
		return nil, err
	}
	return b.finish(), nil
}

type tripBuilder struct {
	l       *Loader
	cols    columns
	records []models.TripRecord
	seen    map[string]struct{}
	report  LoadReport
}

func (l *Loader) newTripBuilder() *tripBuilder {
	return &tripBuilder{
		l:      l,
		seen:   make(map[string]struct{}),
		report: newReport(l.maxWarnings),
	}
}

func (b *tripBuilder) read(ctx context.Context, r io.Reader, source string) error {
	return b.l.readCSV(ctx, r, source, b.l.tripColumns, b, &b.report)
}

func (b *tripBuilder) finish() *TripTable {
	if b.records == nil {
		b.records = []models.TripRecord{}
	}
	b.l.logReport("trips", b.report)
	return &TripTable{Records: b.records, Report: b.report}
}

func (b *tripBuilder) header(source string, cols columns) error {
	if missing := cols.missing(tripRequired); len(missing) > 0 {
		return &SchemaMismatchError{Source: source, Missing: missing}
	}
	b.cols = cols
	return nil
}

func (b *tripBuilder) row(rec []string) *rowError {
	c := b.cols
	for _, f := range tripRequired {
		if c.get(rec, f) == "" {
			return skip(ReasonMissingField, "%s is empty", f)
		}
	}

	t := models.TripRecord{
		RideID:           c.get(rec, FieldRideID),
		StartStationID:   c.get(rec, FieldStartStationID),
		StartStationName: c.get(rec, FieldStartStationName),
		EndStationID:     c.get(rec, FieldEndStationID),
		EndStationName:   c.get(rec, FieldEndStationName),
	}

	var ok bool
	raw := c.get(rec, FieldBikeType)
	if t.BikeType, ok = bikeTypes[enumKey(raw)]; !ok {
		return skip(ReasonInvalidEnum, "bike_type %q", raw)
	}
	raw = c.get(rec, FieldRiderType)
	if t.RiderType, ok = riderTypes[enumKey(raw)]; !ok {
		return skip(ReasonInvalidEnum, "rider_type %q", raw)
	}

	var err error
	if t.StartTime, err = b.l.times.parse(c.get(rec, FieldStartTime)); err != nil {
		return skip(ReasonInvalidTime, "start_time: %v", err)
	}
	if t.EndTime, err = b.l.times.parse(c.get(rec, FieldEndTime)); err != nil {
		return skip(ReasonInvalidTime, "end_time: %v", err)
	}
	if t.EndTime.Before(t.StartTime) {
		return skip(ReasonEndBeforeStart, "ended %s before start %s",
			t.EndTime.Format(time.RFC3339), t.StartTime.Format(time.RFC3339))
	}

	if t.StartLocation, err = parseCoordinate(c.get(rec, FieldStartLat), c.get(rec, FieldStartLng)); err != nil {
		return skip(ReasonInvalidCoordinate, "start: %v", err)
	}
	if t.EndLocation, err = parseCoordinate(c.get(rec, FieldEndLat), c.get(rec, FieldEndLng)); err != nil {
		return skip(ReasonInvalidCoordinate, "end: %v", err)
	}

	if _, dup := b.seen[t.RideID]; dup {
		return skip(ReasonDuplicateID, "ride_id %s", t.RideID)
	}
	b.seen[t.RideID] = struct{}{}
	b.records = append(b.records, t)
	b.report.Loaded++
	return nil
}

// enumKey folds "Classic Bike", "classic-bike" and "classic_bike" together.
func enumKey(s string) string {
	return NormalizeColumn(s)
}

func parseCoordinate(lat, lng string) (models.Coordinate, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("latitude %q is not a number", lat)
	}
	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("longitude %q is not a number", lng)
	}
	c := models.Coordinate{Lat: la, Lng: ln}
	if math.IsNaN(la) || math.IsNaN(ln) || !c.Valid() {
		return models.Coordinate{}, fmt.Errorf("%v out of range", c)
	}
	return c, nil
}

// Stations derives the docks referenced by the trips with their start and
// end counts, ordered by station id. Name and location come from the first
// trip that mentions the station.
func (t *TripTable) Stations() []models.Station {
	byID := make(map[string]*models.Station)
	get := func(id, name string, loc models.Coordinate) *models.Station {
		s, ok := byID[id]
		if !ok {
			s = &models.Station{ID: id, Name: name, Location: loc}
			byID[id] = s
		}
		return s
	}
	for _, r := range t.Records {
		if r.StartStationID != "" {
			get(r.StartStationID, r.StartStationName, r.StartLocation).StartCount++
		}
		if r.EndStationID != "" {
			get(r.EndStationID, r.EndStationName, r.EndLocation).EndCount++
		}
	}

	out := make([]models.Station, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DurationStats is the mean and sample standard deviation of trip length.
type DurationStats struct {
	Count int           `json:"count"`
	Mean  time.Duration `json:"mean"`
	Std   time.Duration `json:"std"`
}

func (t *TripTable) DurationStats() DurationStats {
	n := len(t.Records)
	if n == 0 {
		return DurationStats{}
	}
	sum := 0.0
	for _, r := range t.Records {
		sum += r.Duration().Seconds()
	}
	mean := sum / float64(n)

	var std float64
	if n > 1 {
		ss := 0.0
		for _, r := range t.Records {
			d := r.Duration().Seconds() - mean
			ss += d * d
		}
		std = math.Sqrt(ss / float64(n-1))
	}
	return DurationStats{
		Count: n,
		Mean:  time.Duration(mean * float64(time.Second)),
		Std:   time.Duration(std * float64(time.Second)),
	}
}
