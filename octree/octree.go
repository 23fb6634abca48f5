// Package octree implements a point octree: a spatial index that stores points inside a fixed
// axis-aligned region and answers axis-aligned range queries.
//
// The root region is fixed when the tree is built. Each node keeps up to a shared capacity of
// points; the first point past that capacity splits the node into eight equal octants and all
// later points passing through it are pushed down into the octant that holds them. Nodes are never
// merged back, and points are never moved once stored.
//
// An Octree is not safe for concurrent use.
package octree

import (
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	commonpb "go.viam.com/api/common/v1"

	"github.com/MisaelVM/octree/spatialmath"
)

// DefaultMaxDepth is the deepest level a node may be split to when no other limit is given.
// Leaves at this depth keep accepting points past capacity.
const DefaultMaxDepth = 20

// settings are shared by every node of one tree.
type settings struct {
	capacity uint
	maxDepth uint
	logger   golog.Logger
}

// Option configures an Octree.
type Option func(*settings)

// WithMaxDepth limits how deep nodes may be subdivided. Without a limit, many copies of the same
// point would split nodes forever.
func WithMaxDepth(depth uint) Option {
	return func(s *settings) {
		s.maxDepth = depth
	}
}

// Octree is a spatial index over three-dimensional points.
type Octree struct {
	settings *settings
	root     *Node
	size     int
}

// New creates an empty octree covering the box centered at center that extends dimensions along
// each axis in both directions. capacity is the number of points each node holds before it is
// divided; a capacity of zero is allowed and divides nodes on their first insertion.
func New(center, dimensions r3.Vector, capacity uint, logger golog.Logger, opts ...Option) (*Octree, error) {
	region, err := spatialmath.NewOctant(center, dimensions)
	if err != nil {
		return nil, errors.Wrap(err, "invalid dimensions for octree")
	}

	s := &settings{
		capacity: capacity,
		maxDepth: DefaultMaxDepth,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	return &Octree{
		settings: s,
		root:     newNode(s, region, 0),
	}, nil
}

// Insert adds p to the tree. Points outside the root region are dropped; the return value reports
// whether p was stored.
func (octree *Octree) Insert(p r3.Vector) bool {
	if !octree.root.region.Contains(p) {
		octree.settings.logger.Debugw("point outside of octree bounds, skipping insertion", "point", p)
		return false
	}
	octree.root.insert(p)
	octree.size++
	return true
}

// InsertMany inserts every point in order and returns how many of them were stored.
func (octree *Octree) InsertMany(points []r3.Vector) int {
	inserted := 0
	for _, p := range points {
		if octree.Insert(p) {
			inserted++
		}
	}
	return inserted
}

// Search returns every stored point inside the box spanned by the two corners, faces included.
// The corners may be given in any order. Results are in no particular order.
func (octree *Octree) Search(start, end r3.Vector) []r3.Vector {
	return octree.SearchOctant(spatialmath.NewOctantFromCorners(start, end))
}

// SearchOctant returns every stored point inside query, faces included.
func (octree *Octree) SearchOctant(query spatialmath.Octant) []r3.Vector {
	return octree.root.search(query, []r3.Vector{})
}

// Root returns the root node for read-only traversal.
func (octree *Octree) Root() *Node {
	return octree.root
}

// Region returns the fixed region covered by the tree.
func (octree *Octree) Region() spatialmath.Octant {
	return octree.root.region
}

// Capacity returns the number of points a node holds before it is divided.
func (octree *Octree) Capacity() uint {
	return octree.settings.capacity
}

// MaxDepth returns the deepest level a node may be divided to.
func (octree *Octree) MaxDepth() uint {
	return octree.settings.maxDepth
}

// Size returns the number of points stored in the tree.
func (octree *Octree) Size() int {
	return octree.size
}

// Walk visits every node in pre-order, parents before their children and children in OctantID
// order. Returning false from fn skips the children of that node.
func (octree *Octree) Walk(fn func(n *Node) bool) {
	octree.root.walk(fn)
}

// Geometries returns the region of every node as a Geometry proto message. Each geometry is
// labeled with the path of octant indices leading to it from the root, e.g. "root/5/3".
func (octree *Octree) Geometries() []*commonpb.Geometry {
	var geoms []*commonpb.Geometry
	var visit func(n *Node, path []string)
	visit = func(n *Node, path []string) {
		geoms = append(geoms, n.region.ToProtobuf(strings.Join(path, "/")))
		for i, child := range n.Children() {
			visit(child, append(path, strconv.Itoa(i)))
		}
	}
	visit(octree.root, []string{"root"})
	return geoms
}
