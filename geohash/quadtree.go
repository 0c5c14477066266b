package geohash

import (
	"math"

	"bikeshare-risk/models"
)

const (
	nodeCapacity = 4
	maxDepth     = 24
)

// Point represents a point in 2D space. X is latitude, Y longitude.
type Point struct {
	X, Y float64
	ID   int
}

// Bounds represents the boundaries of a region
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

func (b Bounds) contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

func (b Bounds) intersects(o Bounds) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX && b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// QuadtreeNode represents a node in the quadtree
type QuadtreeNode struct {
	Bounds   Bounds
	Points   []Point
	Children [4]*QuadtreeNode
	depth    int
}

// Quadtree represents the quadtree structure
type Quadtree struct {
	Root *QuadtreeNode
}

// InitializeQuadtree initializes a new Quadtree with given bounds
func InitializeQuadtree(bounds Bounds) *Quadtree {
	return &Quadtree{
		Root: &QuadtreeNode{Bounds: bounds},
	}
}

// Insert adds a point to the Quadtree. It reports false for points outside
// the root bounds.
func (qt *Quadtree) Insert(point Point) bool {
	return qt.Root.insert(point)
}

func (node *QuadtreeNode) insert(point Point) bool {
	if !node.Bounds.contains(point) {
		return false
	}
	if node.Children[0] == nil && (len(node.Points) < nodeCapacity || node.depth >= maxDepth) {
		node.Points = append(node.Points, point)
		return true
	}
	if node.Children[0] == nil {
		node.subdivide()
	}
	// Children share edges; the first that accepts the point keeps it.
	for _, child := range node.Children {
		if child.insert(point) {
			return true
		}
	}
	return false
}

// subdivide splits the node into four child nodes
func (node *QuadtreeNode) subdivide() {
	b := node.Bounds
	midX := (b.MinX + b.MaxX) / 2
	midY := (b.MinY + b.MaxY) / 2
	d := node.depth + 1
	node.Children[0] = &QuadtreeNode{Bounds: Bounds{b.MinX, b.MinY, midX, midY}, depth: d}
	node.Children[1] = &QuadtreeNode{Bounds: Bounds{midX, b.MinY, b.MaxX, midY}, depth: d}
	node.Children[2] = &QuadtreeNode{Bounds: Bounds{b.MinX, midY, midX, b.MaxY}, depth: d}
	node.Children[3] = &QuadtreeNode{Bounds: Bounds{midX, midY, b.MaxX, b.MaxY}, depth: d}
}

// Search returns the points inside the region.
func (qt *Quadtree) Search(region Bounds) []Point {
	return qt.Root.search(region, nil)
}

func (node *QuadtreeNode) search(region Bounds, result []Point) []Point {
	if !node.Bounds.intersects(region) {
		return result
	}
	for _, p := range node.Points {
		if region.contains(p) {
			result = append(result, p)
		}
	}
	if node.Children[0] != nil {
		for _, child := range node.Children {
			result = child.search(region, result)
		}
	}
	return result
}

// QuadtreeIndex is a quadtree sized to the extent of its points.
type QuadtreeIndex struct {
	tree   *Quadtree
	radius float64
}

func NewQuadtreeIndex(points []models.Coordinate, radiusMeters float64) *QuadtreeIndex {
	bounds := Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, p := range points {
		bounds.MinX = math.Min(bounds.MinX, p.Lat)
		bounds.MaxX = math.Max(bounds.MaxX, p.Lat)
		bounds.MinY = math.Min(bounds.MinY, p.Lng)
		bounds.MaxY = math.Max(bounds.MaxY, p.Lng)
	}
	if len(points) == 0 {
		bounds = Bounds{}
	}

	qt := InitializeQuadtree(bounds)
	for i, p := range points {
		qt.Insert(Point{X: p.Lat, Y: p.Lng, ID: i})
	}
	return &QuadtreeIndex{tree: qt, radius: radiusMeters}
}

func (idx *QuadtreeIndex) Candidates(center models.Coordinate) []int {
	b := SearchBox(center, idx.radius)
	pts := idx.tree.Search(Bounds{MinX: b.MinLat, MinY: b.MinLng, MaxX: b.MaxLat, MaxY: b.MaxLng})
	out := make([]int, 0, len(pts))
	for _, p := range pts {
		out = append(out, p.ID)
	}
	return out
}
