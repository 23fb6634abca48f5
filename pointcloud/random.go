package pointcloud

import (
	"math/rand"

	"github.com/golang/geo/r3"

	"github.com/MisaelVM/octree/spatialmath"
)

// RandomPoints returns n points drawn uniformly from the region.
func RandomPoints(region spatialmath.Octant, n int, rng *rand.Rand) []r3.Vector {
	lo, dims := region.Min(), region.Dimensions()
	points := make([]r3.Vector, 0, n)
	for i := 0; i < n; i++ {
		points = append(points, r3.Vector{
			X: lo.X + rng.Float64()*dims.X,
			Y: lo.Y + rng.Float64()*dims.Y,
			Z: lo.Z + rng.Float64()*dims.Z,
		})
	}
	return points
}
