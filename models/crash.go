package models

import (
	"strings"
	"time"
)

// CrashRecord is one reported vehicle collision. Location is nil when the
// source row had no usable geocoding; such rows are kept so callers can
// decide how to filter them.
type CrashRecord struct {
	CrashID             string      `json:"crash_id"`
	Timestamp           time.Time   `json:"timestamp"`
	Location            *Coordinate `json:"location,omitempty"`
	ContributingFactors []string    `json:"contributing_factors,omitempty"`
	VehicleTypes        []string    `json:"vehicle_types,omitempty"`
	Borough             string      `json:"borough,omitempty"`
	CyclistsInjured     int         `json:"cyclists_injured"`
	CyclistsKilled      int         `json:"cyclists_killed"`
}

func (c CrashRecord) HasLocation() bool {
	return c.Location != nil
}

// InvolvesCyclist reports whether a cyclist was hurt or any vehicle type
// looks like a bicycle or bike.
func (c CrashRecord) InvolvesCyclist() bool {
	if c.CyclistsInjured > 0 || c.CyclistsKilled > 0 {
		return true
	}
	for _, v := range c.VehicleTypes {
		v = strings.ToLower(v)
		if strings.Contains(v, "bic") || strings.Contains(v, "bik") {
			return true
		}
	}
	return false
}

// HasFactor reports whether factor is one of the contributing factors,
// ignoring case.
func (c CrashRecord) HasFactor(factor string) bool {
	for _, f := range c.ContributingFactors {
		if strings.EqualFold(f, factor) {
			return true
		}
	}
	return false
}
