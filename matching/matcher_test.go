package matching

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeshare-risk/config"
	"bikeshare-risk/geohash"
	"bikeshare-risk/models"
)

var (
	base       = time.Date(2023, 6, 1, 8, 0, 0, 0, time.UTC)
	timesSq    = models.Coordinate{Lat: 40.7580, Lng: -73.9855}
	brooklyn   = models.Coordinate{Lat: 40.6782, Lng: -73.9442}
	techniques = []geohash.GeoIndexingTechnique{
		geohash.GeohashingTechnique,
		geohash.RTreeTechnique,
		geohash.QuadtreeTechnique,
	}
)

func trip(id string, at models.Coordinate, start time.Time) models.TripRecord {
	return models.TripRecord{
		RideID:        id,
		BikeType:      models.BikeClassic,
		RiderType:     models.RiderMember,
		StartTime:     start,
		EndTime:       start.Add(20 * time.Minute),
		StartLocation: at,
		EndLocation:   at,
	}
}

func crash(id string, at *models.Coordinate, ts time.Time) models.CrashRecord {
	return models.CrashRecord{CrashID: id, Timestamp: ts, Location: at}
}

func ptr(c models.Coordinate) *models.Coordinate { return &c }

func TestJoinByProximity_EmptyIsNotAnError(t *testing.T) {
	trips := []models.TripRecord{trip("t1", timesSq, base)}
	crashes := []models.CrashRecord{crash("c1", ptr(brooklyn), base.Add(time.Hour))}

	for _, technique := range techniques {
		pairs, err := JoinByProximity(trips, crashes, Params{Technique: technique})
		require.NoError(t, err)
		require.NotNil(t, pairs)
		assert.Empty(t, pairs)
	}

	pairs, err := JoinByProximity(nil, nil, Params{RadiusMeters: 100, TimeWindow: time.Minute})
	require.NoError(t, err)
	assert.NotNil(t, pairs)
	assert.Empty(t, pairs)
}

func TestJoinByProximity_BoundsAreInclusive(t *testing.T) {
	trips := []models.TripRecord{trip("t1", timesSq, base)}
	crashes := []models.CrashRecord{crash("c1", ptr(timesSq), base)}

	pairs, err := JoinByProximity(trips, crashes, Params{})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Zero(t, pairs[0].DistanceMeters)
	assert.Zero(t, pairs[0].TimeOffset)

	crashes[0].Timestamp = base.Add(-10 * time.Minute)
	pairs, err = JoinByProximity(trips, crashes, Params{TimeWindow: 10 * time.Minute})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, -10*time.Minute, pairs[0].TimeOffset)

	pairs, err = JoinByProximity(trips, crashes, Params{TimeWindow: 10*time.Minute - time.Second})
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestJoinByProximity_SkipsUnlocatedCrashes(t *testing.T) {
	trips := []models.TripRecord{trip("t1", timesSq, base)}
	crashes := []models.CrashRecord{
		crash("nowhere", nil, base),
		crash("here", ptr(timesSq), base),
	}

	pairs, err := JoinByProximity(trips, crashes, Params{RadiusMeters: 1e7, TimeWindow: time.Hour})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "here", pairs[0].Crash.CrashID)
}

func TestJoinByProximity_Order(t *testing.T) {
	near := func(d float64) *models.Coordinate {
		return &models.Coordinate{Lat: timesSq.Lat + d, Lng: timesSq.Lng}
	}
	trips := []models.TripRecord{
		trip("t1", timesSq, base),
		trip("t2", brooklyn, base),
		trip("t3", timesSq, base.Add(time.Minute)),
	}
	crashes := []models.CrashRecord{
		crash("c1", near(0.0004), base),
		crash("c2", near(-0.0002), base.Add(5*time.Minute)),
		crash("c3", near(0.0001), base.Add(-5*time.Minute)),
	}

	for _, technique := range techniques {
		pairs, err := JoinByProximity(trips, crashes, Params{RadiusMeters: 100, TimeWindow: 10 * time.Minute, Technique: technique})
		require.NoError(t, err)

		var got []string
		for _, p := range pairs {
			got = append(got, p.Trip.RideID+"/"+p.Crash.CrashID)
		}
		assert.Equal(t, []string{"t1/c1", "t1/c2", "t1/c3", "t3/c1", "t3/c2", "t3/c3"}, got, technique)
	}
}

// A crash near a busy dock pairs with every trip starting there. The join
// reports closeness in space and time, not involvement.
func TestJoinByProximity_IsAHeuristicAssociation(t *testing.T) {
	var trips []models.TripRecord
	for i := 0; i < 5; i++ {
		trips = append(trips, trip(fmt.Sprintf("t%d", i), timesSq, base.Add(time.Duration(i)*time.Minute)))
	}
	crashes := []models.CrashRecord{crash("c1", ptr(timesSq), base.Add(2*time.Minute))}

	pairs, err := JoinByProximity(trips, crashes, Params{RadiusMeters: 50, TimeWindow: 5 * time.Minute})
	require.NoError(t, err)
	assert.Len(t, pairs, 5)
	assert.Equal(t, Summary{Pairs: 5, Trips: 5, Crashes: 1}, Summarize(pairs))
}

func TestJoinByProximity_TechniquesAgreeWithBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	jitter := func() models.Coordinate {
		return models.Coordinate{
			Lat: timesSq.Lat + (rng.Float64()*2-1)*0.02,
			Lng: timesSq.Lng + (rng.Float64()*2-1)*0.02,
		}
	}
	var trips []models.TripRecord
	for i := 0; i < 300; i++ {
		start := base.Add(time.Duration(rng.Intn(24*60)) * time.Minute)
		trips = append(trips, trip(fmt.Sprintf("t%d", i), jitter(), start))
	}
	var crashes []models.CrashRecord
	for i := 0; i < 500; i++ {
		var loc *models.Coordinate
		if i%10 != 0 {
			loc = ptr(jitter())
		}
		ts := base.Add(time.Duration(rng.Intn(24*60)) * time.Minute)
		crashes = append(crashes, crash(fmt.Sprintf("c%d", i), loc, ts))
	}

	params := Params{RadiusMeters: 250, TimeWindow: 45 * time.Minute}
	var want []Pair
	for _, tr := range trips {
		for _, c := range crashes {
			if c.Location == nil {
				continue
			}
			d := geohash.HaversineMeters(tr.StartLocation, *c.Location)
			off := c.Timestamp.Sub(tr.StartTime)
			if d <= params.RadiusMeters && math.Abs(off.Minutes()) <= params.TimeWindow.Minutes() {
				want = append(want, Pair{Trip: tr, Crash: c, DistanceMeters: d, TimeOffset: off})
			}
		}
	}
	require.NotEmpty(t, want)

	for _, technique := range techniques {
		params.Technique = technique
		got, err := JoinByProximity(trips, crashes, params)
		require.NoError(t, err)
		assert.Equal(t, want, got, technique)
	}
}

func TestJoinByProximity_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		target error
	}{
		{"negative radius", Params{RadiusMeters: -1}, ErrInvalidParams},
		{"NaN radius", Params{RadiusMeters: math.NaN()}, ErrInvalidParams},
		{"negative window", Params{TimeWindow: -time.Second}, ErrInvalidParams},
		{"unknown technique", Params{Technique: "kd-tree"}, geohash.ErrUnsupportedTechnique},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs, err := JoinByProximity(nil, nil, tt.params)
			assert.ErrorIs(t, err, tt.target)
			assert.Nil(t, pairs)
		})
	}
}

func TestParamsFromConfig(t *testing.T) {
	p, err := ParamsFromConfig(config.JoinConfig{RadiusMeters: 75, TimeWindow: time.Hour, Technique: "geohash"})
	require.NoError(t, err)
	assert.Equal(t, Params{RadiusMeters: 75, TimeWindow: time.Hour, Technique: geohash.GeohashingTechnique}, p)

	_, err = ParamsFromConfig(config.JoinConfig{Technique: "grid"})
	assert.ErrorIs(t, err, geohash.ErrUnsupportedTechnique)
}
