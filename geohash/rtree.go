package geohash

import (
	"github.com/dhconnelly/rtreego"

	"bikeshare-risk/models"
)

// zeroDistance is the half-width of the box stored for each point.
const zeroDistance = 0.0001

// SpatialPoint wraps a point to satisfy the rtreego.Spatial interface.
type SpatialPoint struct {
	rtreego.Point
	ID int
}

// Bounds returns a small rectangle around the point.
func (p SpatialPoint) Bounds() rtreego.Rect {
	return p.Point.ToRect(zeroDistance)
}

// RTreeIndex is an R-tree over lat/lng points.
type RTreeIndex struct {
	tree   *rtreego.Rtree
	radius float64
}

// NewRTreeIndex bulk-loads the points into a two-dimensional R-tree.
func NewRTreeIndex(points []models.Coordinate, radiusMeters float64) *RTreeIndex {
	objs := make([]rtreego.Spatial, len(points))
	for i, p := range points {
		objs[i] = SpatialPoint{Point: rtreego.Point{p.Lat, p.Lng}, ID: i}
	}
	return &RTreeIndex{
		tree:   rtreego.NewTree(2, 25, 50, objs...),
		radius: radiusMeters,
	}
}

// Candidates returns the points whose boxes intersect the search box.
func (idx *RTreeIndex) Candidates(center models.Coordinate) []int {
	b := SearchBox(center, idx.radius)
	// Both corners are two-dimensional, so the constructor cannot fail.
	rect, _ := rtreego.NewRectFromPoints(rtreego.Point{b.MinLat, b.MinLng}, rtreego.Point{b.MaxLat, b.MaxLng})

	hits := idx.tree.SearchIntersect(rect)
	out := make([]int, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(SpatialPoint).ID)
	}
	return out
}
