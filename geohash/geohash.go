package geohash

import (
	"math"

	"github.com/mmcloughlin/geohash"

	"bikeshare-risk/models"
)

const maxPrecision = 12

// maxCoverCells bounds the cells one query may visit before the index falls
// back to returning every point.
const maxCoverCells = 1024

// Encode coordinates into a geohash with specified precision.
func Encode(lat, lon float64, precision uint) string {
	return geohash.EncodeWithPrecision(lat, lon, precision)
}

// neighbors returns the geohashes of neighboring cells.
func neighbors(hash string) []string {
	return geohash.Neighbors(hash)
}

// cellSize returns the height and width in degrees of a cell with the given
// number of characters.
func cellSize(chars uint) (lat, lng float64) {
	bits := 5 * chars
	latBits, lngBits := bits/2, (bits+1)/2
	return 180 / math.Exp2(float64(latBits)), 360 / math.Exp2(float64(lngBits))
}

// PrecisionFor returns the finest precision whose cells are at least
// radiusMeters tall.
func PrecisionFor(radiusMeters float64) uint {
	for p := uint(maxPrecision); p > 1; p-- {
		h, _ := cellSize(p)
		if radians(h)*EarthRadiusMeters >= radiusMeters {
			return p
		}
	}
	return 1
}

// CellIndex buckets points by geohash cell at a precision matched to the
// search radius.
type CellIndex struct {
	precision uint
	radius    float64
	cells     map[string][]int
	n         int
}

func NewCellIndex(points []models.Coordinate, radiusMeters float64) *CellIndex {
	idx := &CellIndex{
		precision: PrecisionFor(radiusMeters),
		radius:    radiusMeters,
		cells:     make(map[string][]int),
		n:         len(points),
	}
	for i, p := range points {
		h := Encode(p.Lat, p.Lng, idx.precision)
		idx.cells[h] = append(idx.cells[h], i)
	}
	return idx
}

// Precision reports the geohash length used for bucketing.
func (idx *CellIndex) Precision() uint {
	return idx.precision
}

// Candidates returns the points of every cell that overlaps the search box
// around center.
func (idx *CellIndex) Candidates(center models.Coordinate) []int {
	hashes := idx.cover(SearchBox(center, idx.radius))
	if hashes == nil {
		all := make([]int, idx.n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	var out []int
	for _, h := range hashes {
		out = append(out, idx.cells[h]...)
	}
	return out
}

// cover lists the cells overlapping b, or nil when there are more than
// maxCoverCells of them.
func (idx *CellIndex) cover(b Box) []string {
	h, w := cellSize(idx.precision)
	bits := 5 * idx.precision
	rows, cols := 1<<(bits/2), 1<<((bits+1)/2)

	r0, r1 := gridIndex(b.MinLat, -90, h, rows), gridIndex(b.MaxLat, -90, h, rows)
	c0, c1 := gridIndex(b.MinLng, -180, w, cols), gridIndex(b.MaxLng, -180, w, cols)
	if (r1-r0+1)*(c1-c0+1) > maxCoverCells {
		return nil
	}

	hashes := make([]string, 0, (r1-r0+1)*(c1-c0+1))
	for r := r0; r <= r1; r++ {
		lat := -90 + (float64(r)+0.5)*h
		for c := c0; c <= c1; c++ {
			lng := -180 + (float64(c)+0.5)*w
			hashes = append(hashes, Encode(lat, lng, idx.precision))
		}
	}
	return hashes
}

func gridIndex(v, origin, size float64, n int) int {
	i := int(math.Floor((v - origin) / size))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
