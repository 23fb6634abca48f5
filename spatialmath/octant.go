// Package spatialmath defines the axis-aligned bounding volumes the octree is built from.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	commonpb "go.viam.com/api/common/v1"
)

// OctantID selects one of the eight children of an octant. Bit 2 picks +X over -X,
// bit 1 picks +Y over -Y and bit 0 picks +Z over -Z.
type OctantID uint8

// The eight octants, in child order.
const (
	LeftBottomBack = OctantID(iota)
	LeftBottomFront
	LeftTopBack
	LeftTopFront
	RightBottomBack
	RightBottomFront
	RightTopBack
	RightTopFront
	NumOctants = 8
)

func (id OctantID) String() string {
	switch id {
	case LeftBottomBack:
		return "LeftBottomBack"
	case LeftBottomFront:
		return "LeftBottomFront"
	case LeftTopBack:
		return "LeftTopBack"
	case LeftTopFront:
		return "LeftTopFront"
	case RightBottomBack:
		return "RightBottomBack"
	case RightBottomFront:
		return "RightBottomFront"
	case RightTopBack:
		return "RightTopBack"
	case RightTopFront:
		return "RightTopFront"
	}
	return fmt.Sprintf("OctantID(%d)", uint8(id))
}

// signs returns the unit offset direction of the octant along each axis.
func (id OctantID) signs() r3.Vector {
	s := r3.Vector{X: -1, Y: -1, Z: -1}
	if id&4 != 0 {
		s.X = 1
	}
	if id&2 != 0 {
		s.Y = 1
	}
	if id&1 != 0 {
		s.Z = 1
	}
	return s
}

// Ordered list of unit box vertices, indexed the same way as OctantID.
var octantVertices = [8]r3.Vector{
	{-1, -1, -1},
	{-1, -1, 1},
	{-1, 1, -1},
	{-1, 1, 1},
	{1, -1, -1},
	{1, -1, 1},
	{1, 1, -1},
	{1, 1, 1},
}

// The 12 edges of a box, as pairs of vertex indices (vertices differing in exactly one coordinate).
var octantEdgeIndices = [12][2]int{
	{0, 1}, {0, 2}, {0, 4},
	{1, 3}, {1, 5},
	{2, 3}, {2, 6},
	{3, 7},
	{4, 5}, {4, 6},
	{5, 7},
	{6, 7},
}

// A single line strip that traces every edge of a box, some of them twice.
var octantWireframeIndices = [16]int{0, 1, 3, 2, 0, 4, 5, 7, 6, 4, 6, 2, 3, 7, 5, 1}

// Octant is an axis-aligned box described by its center and its half extent along each axis.
// It spans the closed interval [center - halfExtent, center + halfExtent] on every axis and is
// immutable once built.
type Octant struct {
	center     r3.Vector
	halfExtent r3.Vector
	// lo and hi are kept alongside center and halfExtent so that faces built from explicit
	// corners, or shared between siblings, compare exactly.
	lo, hi r3.Vector
}

// NewOctant instantiates a new octant. Half extents must not be negative.
func NewOctant(center, halfExtent r3.Vector) (Octant, error) {
	if !validExtent(halfExtent) {
		return Octant{}, errors.Errorf("invalid half extent (%.2f, %.2f, %.2f) for octant",
			halfExtent.X, halfExtent.Y, halfExtent.Z)
	}
	return Octant{center: center, halfExtent: halfExtent, lo: center.Sub(halfExtent), hi: center.Add(halfExtent)}, nil
}

// NewOctantFromCorners returns the smallest octant spanning both corners. The corners may be
// given in any order; they are sorted per axis before the box is built.
func NewOctantFromCorners(a, b r3.Vector) Octant {
	lo := r3.Vector{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
	hi := r3.Vector{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
	half := hi.Sub(lo).Mul(0.5)
	return Octant{center: lo.Add(half), halfExtent: half, lo: lo, hi: hi}
}

func validExtent(v r3.Vector) bool {
	// NaN fails every comparison, so it is rejected here too.
	return v.X >= 0 && v.Y >= 0 && v.Z >= 0
}

// Center returns the center of the octant.
func (o Octant) Center() r3.Vector {
	return o.center
}

// HalfExtent returns the distance from the center to each face.
func (o Octant) HalfExtent() r3.Vector {
	return o.halfExtent
}

// Dimensions returns the full size of the octant along each axis.
func (o Octant) Dimensions() r3.Vector {
	return o.halfExtent.Mul(2)
}

// Min returns the corner with the smallest coordinates.
func (o Octant) Min() r3.Vector {
	return o.lo
}

// Max returns the corner with the largest coordinates.
func (o Octant) Max() r3.Vector {
	return o.hi
}

// Contains reports whether p lies inside the octant. Faces are inclusive, so a point on a face
// shared by two sibling octants is contained by both.
func (o Octant) Contains(p r3.Vector) bool {
	return p.X >= o.lo.X && p.X <= o.hi.X &&
		p.Y >= o.lo.Y && p.Y <= o.hi.Y &&
		p.Z >= o.lo.Z && p.Z <= o.hi.Z
}

// Intersects reports whether two octants overlap on all three axes. Octants that only touch
// along a face, edge or corner intersect.
func (o Octant) Intersects(other Octant) bool {
	return !(other.lo.X > o.hi.X || other.hi.X < o.lo.X ||
		other.lo.Y > o.hi.Y || other.hi.Y < o.lo.Y ||
		other.lo.Z > o.hi.Z || other.hi.Z < o.lo.Z)
}

// Encloses reports whether other lies entirely inside the octant.
func (o Octant) Encloses(other Octant) bool {
	return o.lo.X <= other.lo.X && o.lo.Y <= other.lo.Y && o.lo.Z <= other.lo.Z &&
		other.hi.X <= o.hi.X && other.hi.Y <= o.hi.Y && other.hi.Z <= o.hi.Z
}

// Subdivide returns the center of the child octant selected by id. Every child has half the
// extent of its parent on each axis.
func (o Octant) Subdivide(id OctantID) r3.Vector {
	quarter := o.halfExtent.Mul(0.5)
	s := id.signs()
	return r3.Vector{
		X: o.center.X + s.X*quarter.X,
		Y: o.center.Y + s.Y*quarter.Y,
		Z: o.center.Z + s.Z*quarter.Z,
	}
}

// Child returns the child octant selected by id. The child shares its outer faces with the parent
// and its inner faces with its siblings exactly, so the eight children tile the parent.
func (o Octant) Child(id OctantID) Octant {
	child := Octant{center: o.Subdivide(id), halfExtent: o.halfExtent.Mul(0.5), lo: o.lo, hi: o.center}
	if id&4 != 0 {
		child.lo.X, child.hi.X = o.center.X, o.hi.X
	}
	if id&2 != 0 {
		child.lo.Y, child.hi.Y = o.center.Y, o.hi.Y
	}
	if id&1 != 0 {
		child.lo.Z, child.hi.Z = o.center.Z, o.hi.Z
	}
	return child
}

// OctantFor returns the child that p falls into. Coordinates equal to the center are placed on
// the positive side, so every point maps to exactly one child.
func (o Octant) OctantFor(p r3.Vector) OctantID {
	var id OctantID
	if p.X >= o.center.X {
		id |= 4
	}
	if p.Y >= o.center.Y {
		id |= 2
	}
	if p.Z >= o.center.Z {
		id |= 1
	}
	return id
}

// Vertices returns the eight corners of the octant, ordered like OctantID.
func (o Octant) Vertices() [8]r3.Vector {
	var verts [8]r3.Vector
	for i, v := range octantVertices {
		verts[i] = o.lo
		if v.X > 0 {
			verts[i].X = o.hi.X
		}
		if v.Y > 0 {
			verts[i].Y = o.hi.Y
		}
		if v.Z > 0 {
			verts[i].Z = o.hi.Z
		}
	}
	return verts
}

// Edges returns the twelve edges of the octant as pairs of end points.
func (o Octant) Edges() [12][2]r3.Vector {
	verts := o.Vertices()
	var edges [12][2]r3.Vector
	for i, e := range octantEdgeIndices {
		edges[i] = [2]r3.Vector{verts[e[0]], verts[e[1]]}
	}
	return edges
}

// Wireframe returns a 16 vertex line strip that outlines the octant, suitable for line renderers
// that only accept a single connected path.
func (o Octant) Wireframe() [16]r3.Vector {
	verts := o.Vertices()
	var strip [16]r3.Vector
	for i, idx := range octantWireframeIndices {
		strip[i] = verts[idx]
	}
	return strip
}

// ToProtobuf converts the octant to a Geometry proto message.
func (o Octant) ToProtobuf(label string) *commonpb.Geometry {
	dims := o.Dimensions()
	return &commonpb.Geometry{
		Center: &commonpb.Pose{X: o.center.X, Y: o.center.Y, Z: o.center.Z, OZ: 1},
		GeometryType: &commonpb.Geometry_Box{
			Box: &commonpb.RectangularPrism{DimsMm: &commonpb.Vector3{
				X: dims.X,
				Y: dims.Y,
				Z: dims.Z,
			}},
		},
		Label: label,
	}
}

// String returns a human readable string that represents the octant.
func (o Octant) String() string {
	return fmt.Sprintf("Type: Octant | Center: X:%.2f, Y:%.2f, Z:%.2f | Half extent: X:%.2f, Y:%.2f, Z:%.2f",
		o.center.X, o.center.Y, o.center.Z, o.halfExtent.X, o.halfExtent.Y, o.halfExtent.Z)
}
