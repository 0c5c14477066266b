package models

import "time"

type BikeType string

const (
	BikeClassic  BikeType = "classic"
	BikeElectric BikeType = "electric"
)

type RiderType string

const (
	RiderMember RiderType = "member"
	RiderCasual RiderType = "casual"
)

// TripRecord is one bike-share rental. Station fields are empty when the
// source export does not carry them.
type TripRecord struct {
	RideID           string     `json:"ride_id"`
	BikeType         BikeType   `json:"bike_type"`
	RiderType        RiderType  `json:"rider_type"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          time.Time  `json:"end_time"`
	StartLocation    Coordinate `json:"start_location"`
	EndLocation      Coordinate `json:"end_location"`
	StartStationID   string     `json:"start_station_id,omitempty"`
	StartStationName string     `json:"start_station_name,omitempty"`
	EndStationID     string     `json:"end_station_id,omitempty"`
	EndStationName   string     `json:"end_station_name,omitempty"`
}

// Duration returns the rental length.
func (t TripRecord) Duration() time.Duration {
	return t.EndTime.Sub(t.StartTime)
}
