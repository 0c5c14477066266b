package geohash

import (
	"errors"
	"fmt"
	"strings"

	"bikeshare-risk/models"
)

type GeoIndexingTechnique string

const (
	GeohashingTechnique GeoIndexingTechnique = "geohashing"
	RTreeTechnique      GeoIndexingTechnique = "rtree"
	QuadtreeTechnique   GeoIndexingTechnique = "quadtree"
)

const DefaultTechnique = RTreeTechnique

var ErrUnsupportedTechnique = errors.New("unsupported geo-indexing technique")

// ParseTechnique maps a configured name onto a technique. An empty name
// selects DefaultTechnique.
func ParseTechnique(name string) (GeoIndexingTechnique, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return DefaultTechnique, nil
	case "geohash", "geohashing":
		return GeohashingTechnique, nil
	case "rtree", "r-tree":
		return RTreeTechnique, nil
	case "quadtree":
		return QuadtreeTechnique, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedTechnique, name)
}

// Index narrows a point set down to the ones that may lie within a fixed
// radius of a query location. Candidates can include points beyond the
// radius but never omit one inside it; callers verify with HaversineMeters.
// Candidate ids are positions in the slice the index was built from.
type Index interface {
	Candidates(center models.Coordinate) []int
}

// NewIndex builds an index over points for queries of radiusMeters.
func NewIndex(technique GeoIndexingTechnique, points []models.Coordinate, radiusMeters float64) (Index, error) {
	switch technique {
	case GeohashingTechnique:
		return NewCellIndex(points, radiusMeters), nil
	case RTreeTechnique:
		return NewRTreeIndex(points, radiusMeters), nil
	case QuadtreeTechnique:
		return NewQuadtreeIndex(points, radiusMeters), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedTechnique, technique)
}
