package geohash

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeshare-risk/models"
)

var manhattan = models.Coordinate{Lat: 40.7580, Lng: -73.9855}

// destination moves distance meters from c along bearing degrees.
func destination(c models.Coordinate, bearing, distance float64) models.Coordinate {
	d := distance / EarthRadiusMeters
	th := radians(bearing)
	lat1, lng1 := radians(c.Lat), radians(c.Lng)
	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(th))
	lng2 := lng1 + math.Atan2(math.Sin(th)*math.Sin(d)*math.Cos(lat1), math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))
	return models.Coordinate{Lat: degrees(lat2), Lng: degrees(lng2)}
}

func scatter(n int, center models.Coordinate, spread float64) []models.Coordinate {
	rng := rand.New(rand.NewSource(42))
	out := make([]models.Coordinate, n)
	for i := range out {
		out[i] = models.Coordinate{
			Lat: center.Lat + (rng.Float64()*2-1)*spread,
			Lng: center.Lng + (rng.Float64()*2-1)*spread,
		}
	}
	return out
}

func TestHaversineMeters(t *testing.T) {
	la := models.Coordinate{Lat: 34.0522, Lng: -118.2437}
	nyc := models.Coordinate{Lat: 40.7128, Lng: -74.0060}

	assert.InDelta(t, 3_936_000, HaversineMeters(nyc, la), 2_000)
	assert.InDelta(t, HaversineMeters(nyc, la), HaversineMeters(la, nyc), 1e-6)
	assert.Zero(t, HaversineMeters(nyc, nyc))
	assert.InDelta(t, 111_195, HaversineMeters(models.Coordinate{}, models.Coordinate{Lat: 1}), 1)
}

func TestSearchBoxContainsCap(t *testing.T) {
	for _, center := range []models.Coordinate{manhattan, {Lat: 75, Lng: 20}, {Lat: -33.9, Lng: 151.2}} {
		for _, radius := range []float64{1, 100, 5_000} {
			box := SearchBox(center, radius)
			for bearing := 0.0; bearing < 360; bearing += 7.5 {
				p := destination(center, bearing, radius*0.9999)
				assert.True(t, box.Contains(p), "center %v radius %v bearing %v", center, radius, bearing)
			}
		}
	}
}

func TestSearchBoxWrapsNearPoleAndAntimeridian(t *testing.T) {
	polar := SearchBox(models.Coordinate{Lat: 89.999, Lng: 0}, 1_000)
	assert.Equal(t, -180.0, polar.MinLng)
	assert.Equal(t, 180.0, polar.MaxLng)
	assert.Equal(t, 90.0, polar.MaxLat)

	dateline := SearchBox(models.Coordinate{Lat: 0, Lng: 179.9999}, 1_000)
	assert.Equal(t, -180.0, dateline.MinLng)
	assert.Equal(t, 180.0, dateline.MaxLng)

	zero := SearchBox(manhattan, 0)
	assert.True(t, zero.Contains(manhattan))
}

func TestPrecisionFor(t *testing.T) {
	tests := []struct {
		radius float64
		want   uint
	}{
		{0, 12},
		{100, 7},
		{1_000, 5},
		{1e7, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PrecisionFor(tt.radius), "radius %v", tt.radius)
	}
}

func TestCellIndexCoversNeighbors(t *testing.T) {
	idx := NewCellIndex(nil, 100)
	h, _ := cellSize(idx.Precision())
	height := radians(h) * EarthRadiusMeters

	hash := Encode(manhattan.Lat, manhattan.Lng, idx.Precision())
	cover := idx.cover(SearchBox(manhattan, height))
	for _, n := range neighbors(hash) {
		assert.Contains(t, cover, n)
	}
	assert.Contains(t, cover, hash)
}

func TestCellIndexFallsBackToScan(t *testing.T) {
	points := scatter(10, manhattan, 0.01)
	idx := NewCellIndex(points, 100)
	// Near the pole the search box spans thousands of cells in longitude.
	got := idx.Candidates(models.Coordinate{Lat: 89.99, Lng: 0})
	assert.Len(t, got, len(points))
}

func TestParseTechnique(t *testing.T) {
	tests := map[string]GeoIndexingTechnique{
		"":           DefaultTechnique,
		"rtree":      RTreeTechnique,
		"R-Tree":     RTreeTechnique,
		"geohash":    GeohashingTechnique,
		"geohashing": GeohashingTechnique,
		" quadtree ": QuadtreeTechnique,
	}
	for in, want := range tests {
		got, err := ParseTechnique(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseTechnique("kd-tree")
	assert.ErrorIs(t, err, ErrUnsupportedTechnique)

	_, err = NewIndex("kd-tree", nil, 10)
	assert.ErrorIs(t, err, ErrUnsupportedTechnique)
}

func within(points []models.Coordinate, ids []int, center models.Coordinate, radius float64) []int {
	var out []int
	for _, i := range ids {
		if HaversineMeters(points[i], center) <= radius {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

func TestIndexesNeverMissPoints(t *testing.T) {
	points := scatter(2_000, manhattan, 0.05)
	all := make([]int, len(points))
	for i := range all {
		all[i] = i
	}
	centers := append(scatter(25, manhattan, 0.05), points[7], points[1999])

	for _, technique := range []GeoIndexingTechnique{GeohashingTechnique, RTreeTechnique, QuadtreeTechnique} {
		for _, radius := range []float64{0, 50, 400, 3_000} {
			idx, err := NewIndex(technique, points, radius)
			require.NoError(t, err)
			for _, c := range centers {
				candidates := idx.Candidates(c)

				seen := map[int]bool{}
				for _, id := range candidates {
					require.False(t, seen[id], "%s returned %d twice", technique, id)
					seen[id] = true
				}
				assert.Equal(t, within(points, all, c, radius), within(points, candidates, c, radius),
					"technique %s radius %v center %v", technique, radius, c)
			}
		}
	}
}

func TestIndexesEmpty(t *testing.T) {
	for _, technique := range []GeoIndexingTechnique{GeohashingTechnique, RTreeTechnique, QuadtreeTechnique} {
		idx, err := NewIndex(technique, nil, 100)
		require.NoError(t, err)
		assert.Empty(t, idx.Candidates(manhattan), technique)
	}
}

func TestQuadtreeInsert(t *testing.T) {
	qt := InitializeQuadtree(Bounds{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10})
	assert.False(t, qt.Insert(Point{X: 11, Y: 5}))

	for i := 0; i < 200; i++ {
		require.True(t, qt.Insert(Point{X: 5, Y: 5, ID: i}))
	}
	require.True(t, qt.Insert(Point{X: 0, Y: 10, ID: 200}))

	assert.Len(t, qt.Search(Bounds{MinX: 4, MinY: 4, MaxX: 6, MaxY: 6}), 200)
	corner := qt.Search(Bounds{MinX: 0, MinY: 9, MaxX: 1, MaxY: 10})
	require.Len(t, corner, 1)
	assert.Equal(t, 200, corner[0].ID)
}
