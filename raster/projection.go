package raster

import (
	"math"

	"bikeshare-risk/models"
)

// Web Mercator (EPSG:3857) sphere radius and latitude limit.
const (
	mercatorRadius = 6378137.0
	mercatorMaxLat = 85.05112877980659
)

// Project converts a WGS84 coordinate (EPSG:4326) to Web Mercator meters.
// Latitudes beyond the projection limit are clamped to it.
func Project(c models.Coordinate) (x, y float64) {
	lat := math.Max(-mercatorMaxLat, math.Min(mercatorMaxLat, c.Lat))
	x = mercatorRadius * c.Lng * math.Pi / 180
	y = mercatorRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

// Frame is a reference area in Web Mercator: the mean of a set of
// locations and their extent relative to that mean.
type Frame struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	MinX    float64 `json:"min_x"`
	MinY    float64 `json:"min_y"`
	MaxX    float64 `json:"max_x"`
	MaxY    float64 `json:"max_y"`
}

// NewFrame centers the frame on the mean projected location.
func NewFrame(locations []models.Coordinate) (Frame, error) {
	if len(locations) == 0 {
		return Frame{}, ErrEmptyFrame
	}
	xs := make([]float64, len(locations))
	ys := make([]float64, len(locations))
	var f Frame
	for i, c := range locations {
		xs[i], ys[i] = Project(c)
		f.CenterX += xs[i]
		f.CenterY += ys[i]
	}
	f.CenterX /= float64(len(locations))
	f.CenterY /= float64(len(locations))

	f.MinX, f.MinY = math.Inf(1), math.Inf(1)
	f.MaxX, f.MaxY = math.Inf(-1), math.Inf(-1)
	for i := range xs {
		x, y := xs[i]-f.CenterX, ys[i]-f.CenterY
		f.MinX, f.MaxX = math.Min(f.MinX, x), math.Max(f.MaxX, x)
		f.MinY, f.MaxY = math.Min(f.MinY, y), math.Max(f.MaxY, y)
	}
	return f, nil
}

// FromStations frames the dock network.
func FromStations(stations []models.Station) (Frame, error) {
	locs := make([]models.Coordinate, len(stations))
	for i, s := range stations {
		locs[i] = s.Location
	}
	return NewFrame(locs)
}

// Center returns c projected and shifted by the frame center.
func (f Frame) Center(c models.Coordinate) (x, y float64) {
	x, y = Project(c)
	return x - f.CenterX, y - f.CenterY
}

func (f Frame) Contains(x, y float64) bool {
	return x >= f.MinX && x <= f.MaxX && y >= f.MinY && y <= f.MaxY
}

// Align centers the located crashes and keeps those inside the extent.
func (f Frame) Align(crashes []models.CrashRecord) []Point {
	out := make([]Point, 0, len(crashes))
	for _, c := range crashes {
		if !c.HasLocation() {
			continue
		}
		x, y := f.Center(*c.Location)
		if !f.Contains(x, y) {
			continue
		}
		out = append(out, Point{CrashID: c.CrashID, X: x, Y: y, Minute: MinuteOfDay(c)})
	}
	return out
}
