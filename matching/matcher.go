package matching

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"bikeshare-risk/config"
	"bikeshare-risk/geohash"
	"bikeshare-risk/models"
)

var ErrInvalidParams = errors.New("invalid join parameters")

// Params are the thresholds of a proximity join.
type Params struct {
	RadiusMeters float64
	TimeWindow   time.Duration
	Technique    geohash.GeoIndexingTechnique
}

// ParamsFromConfig reads the join section of the configuration.
func ParamsFromConfig(cfg config.JoinConfig) (Params, error) {
	technique, err := geohash.ParseTechnique(cfg.Technique)
	if err != nil {
		return Params{}, err
	}
	p := Params{RadiusMeters: cfg.RadiusMeters, TimeWindow: cfg.TimeWindow, Technique: technique}
	return p, p.validate()
}

func (p Params) validate() error {
	if p.RadiusMeters < 0 || math.IsNaN(p.RadiusMeters) || math.IsInf(p.RadiusMeters, 0) {
		return fmt.Errorf("%w: radius %v meters", ErrInvalidParams, p.RadiusMeters)
	}
	if p.TimeWindow < 0 {
		return fmt.Errorf("%w: time window %s", ErrInvalidParams, p.TimeWindow)
	}
	return nil
}

// Pair associates a trip with a crash that happened near its start.
// TimeOffset is the crash time minus the trip start time.
type Pair struct {
	Trip           models.TripRecord  `json:"trip"`
	Crash          models.CrashRecord `json:"crash"`
	DistanceMeters float64            `json:"distance_meters"`
	TimeOffset     time.Duration      `json:"time_offset"`
}

// JoinByProximity pairs every trip with every located crash whose
// great-circle distance from the trip start is at most p.RadiusMeters and
// whose timestamp is within p.TimeWindow of the trip start, both bounds
// inclusive. Crashes without a location never match.
//
// The association is a heuristic. The source data carries no link between a
// rental and a collision, so a pair means "close in space and time", not
// "this trip was involved in this crash". Labels built from these pairs are
// noisy.
//
// Pairs come in trip order, then crash order. No match is not an error: the
// result is an empty, non-nil slice.
func JoinByProximity(trips []models.TripRecord, crashes []models.CrashRecord, p Params) ([]Pair, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	technique := p.Technique
	if technique == "" {
		technique = geohash.DefaultTechnique
	}

	var (
		located []int
		coords  []models.Coordinate
	)
	for i, c := range crashes {
		if c.HasLocation() {
			located = append(located, i)
			coords = append(coords, *c.Location)
		}
	}
	idx, err := geohash.NewIndex(technique, coords, p.RadiusMeters)
	if err != nil {
		return nil, err
	}

	pairs := []Pair{}
	for _, trip := range trips {
		candidates := idx.Candidates(trip.StartLocation)
		sort.Ints(candidates)
		for _, id := range candidates {
			crash := crashes[located[id]]
			offset := crash.Timestamp.Sub(trip.StartTime)
			if offset < -p.TimeWindow || offset > p.TimeWindow {
				continue
			}
			d := geohash.HaversineMeters(trip.StartLocation, *crash.Location)
			if d > p.RadiusMeters {
				continue
			}
			pairs = append(pairs, Pair{Trip: trip, Crash: crash, DistanceMeters: d, TimeOffset: offset})
		}
	}
	return pairs, nil
}

// Summary counts the distinct trips and crashes taking part in a join.
type Summary struct {
	Pairs   int `json:"pairs"`
	Trips   int `json:"trips"`
	Crashes int `json:"crashes"`
}

func Summarize(pairs []Pair) Summary {
	trips := make(map[string]struct{})
	crashes := make(map[string]struct{})
	for _, p := range pairs {
		trips[p.Trip.RideID] = struct{}{}
		crashes[p.Crash.CrashID] = struct{}{}
	}
	return Summary{Pairs: len(pairs), Trips: len(trips), Crashes: len(crashes)}
}
