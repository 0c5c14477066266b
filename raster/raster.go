package raster

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"bikeshare-risk/models"
)

var (
	ErrEmptyFrame     = errors.New("raster: no locations to frame")
	ErrInvalidOptions = errors.New("raster: invalid options")
)

// Options sets the grid resolution: Bins cells along each spatial axis and
// time bins of TimeBinMinutes within a day.
type Options struct {
	Bins           int `json:"bins"`
	TimeBinMinutes int `json:"time_bin_minutes"`
}

func (o Options) validate() error {
	if o.Bins <= 0 {
		return fmt.Errorf("%w: bins must be > 0, got %d", ErrInvalidOptions, o.Bins)
	}
	if o.TimeBinMinutes <= 0 || o.TimeBinMinutes > minutesPerDay {
		return fmt.Errorf("%w: time bin must be 1..%d minutes, got %d", ErrInvalidOptions, minutesPerDay, o.TimeBinMinutes)
	}
	return nil
}

const minutesPerDay = 24 * 60

// Point is a crash placed in a frame: centered Web Mercator meters and the
// minute of the day it happened.
type Point struct {
	CrashID string  `json:"crash_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Minute  int     `json:"minute"`
}

// Cell is one populated spatio-temporal bin. Centers are in centered meters
// and minutes since midnight.
type Cell struct {
	XBin       int     `json:"x_bin"`
	YBin       int     `json:"y_bin"`
	TimeBin    int     `json:"time_bin"`
	XCenter    float64 `json:"x_center"`
	YCenter    float64 `json:"y_center"`
	TimeCenter float64 `json:"time_center"`
	CrashCount int     `json:"crash_count"`
}

// Raster is the crash count per populated cell, ordered by x, y and time
// bin. Empty cells are omitted.
type Raster struct {
	Options
	MinX     float64 `json:"min_x"`
	MinY     float64 `json:"min_y"`
	XBinSize float64 `json:"x_bin_size"`
	YBinSize float64 `json:"y_bin_size"`
	Cells    []Cell  `json:"cells"`
}

// Total is the number of crashes counted across all cells.
func (r *Raster) Total() int {
	n := 0
	for _, c := range r.Cells {
		n += c.CrashCount
	}
	return n
}

// Rasterize bins points over their own spatial extent. The maximum edge
// belongs to the last bin. A degenerate extent collapses to bin 0.
func Rasterize(points []Point, opts Options) (*Raster, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	r := &Raster{Options: opts, Cells: []Cell{}}
	if len(points) == 0 {
		return r, nil
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	r.MinX, r.MinY = minX, minY
	r.XBinSize = (maxX - minX) / float64(opts.Bins)
	r.YBinSize = (maxY - minY) / float64(opts.Bins)

	type key struct{ x, y, t int }
	counts := make(map[key]int)
	for _, p := range points {
		k := key{
			x: bin(p.X-minX, r.XBinSize, opts.Bins),
			y: bin(p.Y-minY, r.YBinSize, opts.Bins),
			t: p.Minute / opts.TimeBinMinutes,
		}
		counts[k]++
	}

	tb := float64(opts.TimeBinMinutes)
	for k, n := range counts {
		r.Cells = append(r.Cells, Cell{
			XBin:       k.x,
			YBin:       k.y,
			TimeBin:    k.t,
			XCenter:    minX + (float64(k.x)+0.5)*r.XBinSize,
			YCenter:    minY + (float64(k.y)+0.5)*r.YBinSize,
			TimeCenter: float64(k.t)*tb + tb/2,
			CrashCount: n,
		})
	}
	sort.Slice(r.Cells, func(i, j int) bool {
		a, b := r.Cells[i], r.Cells[j]
		if a.XBin != b.XBin {
			return a.XBin < b.XBin
		}
		if a.YBin != b.YBin {
			return a.YBin < b.YBin
		}
		return a.TimeBin < b.TimeBin
	})
	return r, nil
}

func bin(offset, size float64, bins int) int {
	if size <= 0 {
		return 0
	}
	i := int(math.Floor(offset / size))
	if i >= bins {
		return bins - 1
	}
	if i < 0 {
		return 0
	}
	return i
}

// MinuteOfDay returns the minutes since midnight in the timestamp's own
// location.
func MinuteOfDay(c models.CrashRecord) int {
	return c.Timestamp.Hour()*60 + c.Timestamp.Minute()
}
