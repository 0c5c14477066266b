package models

// Station is a dock derived from the trips that start or end there.
type Station struct {
	ID         string     `json:"station_id"`
	Name       string     `json:"station_name"`
	Location   Coordinate `json:"location"`
	StartCount int        `json:"start_count"`
	EndCount   int        `json:"end_count"`
}

// Traffic is the number of trips touching the station.
func (s Station) Traffic() int {
	return s.StartCount + s.EndCount
}
