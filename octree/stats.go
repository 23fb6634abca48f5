package octree

import (
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// Stats summarizes the shape of an octree.
type Stats struct {
	Points     int
	Nodes      int
	Leaves     int
	Divided    int
	MaxDepth   uint
	Overflowed int

	// Occupancy of leaves, in points per leaf.
	MeanLeafPoints   float64
	MedianLeafPoints float64
	MaxLeafPoints    float64
}

// Stats walks the tree and summarizes it.
func (octree *Octree) Stats() (Stats, error) {
	var st Stats
	var leafPoints stats.Float64Data
	octree.Walk(func(n *Node) bool {
		st.Nodes++
		st.Points += len(n.points)
		if n.depth > st.MaxDepth {
			st.MaxDepth = n.depth
		}
		if n.divided {
			st.Divided++
			return true
		}
		st.Leaves++
		if n.Overflowed() {
			st.Overflowed++
		}
		leafPoints = append(leafPoints, float64(len(n.points)))
		return true
	})

	var err error
	if st.MeanLeafPoints, err = leafPoints.Mean(); err != nil {
		return Stats{}, errors.Wrap(err, "error computing mean leaf occupancy")
	}
	if st.MedianLeafPoints, err = leafPoints.Median(); err != nil {
		return Stats{}, errors.Wrap(err, "error computing median leaf occupancy")
	}
	if st.MaxLeafPoints, err = leafPoints.Max(); err != nil {
		return Stats{}, errors.Wrap(err, "error computing max leaf occupancy")
	}
	return st, nil
}
