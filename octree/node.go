package octree

import (
	"github.com/golang/geo/r3"

	"github.com/MisaelVM/octree/spatialmath"
)

// Node is a single octant of an Octree. While it is a leaf it stores up to the tree's capacity
// of points directly. The first insertion past that capacity divides it into eight children,
// after which every further point routed through it is handed to exactly one child. A point
// lying on a face shared by two children is stored once, in the child on the positive side.
// Points stored before the split stay where they are.
type Node struct {
	tree     *settings
	region   spatialmath.Octant
	points   []r3.Vector
	children [spatialmath.NumOctants]*Node
	divided  bool
	depth    uint
	// overflowLogged is set once the depth guard has let this leaf grow past capacity.
	overflowLogged bool
}

func newNode(tree *settings, region spatialmath.Octant, depth uint) *Node {
	return &Node{
		tree:   tree,
		region: region,
		depth:  depth,
	}
}

// subdivide splits the node into its eight children. It must be called at most once per node.
func (n *Node) subdivide() {
	if n.divided {
		panic("octree: subdivide called on a node that is already divided")
	}
	for i := range n.children {
		n.children[i] = newNode(n.tree, n.region.Child(spatialmath.OctantID(i)), n.depth+1)
	}
	n.divided = true
	n.tree.logger.Debugw("subdivided octree node",
		"center", n.region.Center(), "depth", n.depth, "points", len(n.points))
}

// insert stores p in this node or one of its descendants. The caller has already checked that p
// lies inside the node's region.
func (n *Node) insert(p r3.Vector) {
	for {
		if uint(len(n.points)) < n.tree.capacity {
			n.points = append(n.points, p)
			return
		}
		if !n.divided && n.depth >= n.tree.maxDepth {
			// Coincident points can never be separated by splitting, so past the depth limit the
			// leaf simply grows.
			if !n.overflowLogged {
				n.overflowLogged = true
				n.tree.logger.Debugw("octree leaf exceeded capacity at maximum depth",
					"center", n.region.Center(), "depth", n.depth, "capacity", n.tree.capacity)
			}
			n.points = append(n.points, p)
			return
		}
		if !n.divided {
			n.subdivide()
		}
		n = n.children[n.region.OctantFor(p)]
	}
}

// search appends to found every stored point of this subtree that lies inside query.
func (n *Node) search(query spatialmath.Octant, found []r3.Vector) []r3.Vector {
	if !n.region.Intersects(query) {
		return found
	}
	for _, p := range n.points {
		if query.Contains(p) {
			found = append(found, p)
		}
	}
	if n.divided {
		for _, child := range n.children {
			found = child.search(query, found)
		}
	}
	return found
}

// walk visits n and its descendants in pre-order. When fn returns false the children of that
// node are skipped.
func (n *Node) walk(fn func(*Node) bool) {
	if !fn(n) || !n.divided {
		return
	}
	for _, child := range n.children {
		child.walk(fn)
	}
}

// Region returns the octant covered by the node.
func (n *Node) Region() spatialmath.Octant {
	return n.region
}

// Points returns a copy of the points stored directly in the node, in insertion order.
func (n *Node) Points() []r3.Vector {
	out := make([]r3.Vector, len(n.points))
	copy(out, n.points)
	return out
}

// NumPoints returns the number of points stored directly in the node.
func (n *Node) NumPoints() int {
	return len(n.points)
}

// Children returns the eight children in OctantID order, or nil if the node has not been divided.
func (n *Node) Children() []*Node {
	if !n.divided {
		return nil
	}
	out := make([]*Node, len(n.children))
	copy(out, n.children[:])
	return out
}

// Child returns the child for the given octant, or nil if the node has not been divided.
func (n *Node) Child(id spatialmath.OctantID) *Node {
	if !n.divided || int(id) >= len(n.children) {
		return nil
	}
	return n.children[id]
}

// Divided reports whether the node has been split into children.
func (n *Node) Divided() bool {
	return n.divided
}

// Depth returns the distance from the root, which has depth zero.
func (n *Node) Depth() uint {
	return n.depth
}

// Overflowed reports whether the node holds more points than the tree's capacity, which only
// happens to leaves at the maximum depth.
func (n *Node) Overflowed() bool {
	return uint(len(n.points)) > n.tree.capacity
}

// Size returns the number of points stored in the node and all of its descendants.
func (n *Node) Size() int {
	size := 0
	n.walk(func(node *Node) bool {
		size += len(node.points)
		return true
	})
	return size
}
