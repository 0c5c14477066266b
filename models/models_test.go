package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCoordinateValid(t *testing.T) {
	tests := []struct {
		c    Coordinate
		want bool
	}{
		{Coordinate{40.7128, -74.0060}, true},
		{Coordinate{-90, 180}, true},
		{Coordinate{90.0001, 0}, false},
		{Coordinate{0, -180.5}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.c.Valid(), tt.c.String())
	}
}

func TestTripDuration(t *testing.T) {
	start := time.Date(2023, 6, 1, 8, 0, 0, 0, time.UTC)
	trip := TripRecord{StartTime: start, EndTime: start.Add(17 * time.Minute)}
	assert.Equal(t, 17*time.Minute, trip.Duration())
}

func TestCrashInvolvesCyclist(t *testing.T) {
	tests := []struct {
		name  string
		crash CrashRecord
		want  bool
	}{
		{"injured", CrashRecord{CyclistsInjured: 1}, true},
		{"killed", CrashRecord{CyclistsKilled: 1}, true},
		{"bicycle", CrashRecord{VehicleTypes: []string{"Sedan", "Bicycle"}}, true},
		{"e-bike", CrashRecord{VehicleTypes: []string{"E-BIKE"}}, true},
		{"cars only", CrashRecord{VehicleTypes: []string{"Sedan", "Taxi"}}, false},
		{"nothing", CrashRecord{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.crash.InvolvesCyclist())
		})
	}
}

func TestCrashHasFactor(t *testing.T) {
	c := CrashRecord{ContributingFactors: []string{"Driver Inattention/Distraction", "Unspecified"}}
	assert.True(t, c.HasFactor("unspecified"))
	assert.False(t, c.HasFactor("Alcohol Involvement"))
	assert.False(t, c.HasLocation())
}

func TestStationTraffic(t *testing.T) {
	assert.Equal(t, 7, Station{StartCount: 3, EndCount: 4}.Traffic())
}
