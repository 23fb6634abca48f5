package pointcloud

import (
	"fmt"

	"github.com/edaniels/golog"
	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// Coordinates outside this range cannot be represented exactly by a float64 with millimeter
// precision.
const (
	maxPreciseFloat64 = float64(1 << 43)
	minPreciseFloat64 = -maxPreciseFloat64
)

// ReadLASFile returns the points read from a LAS file. If any lossiness of points could occur
// from reading it in, it's reported but is not an error.
func ReadLASFile(fn string, logger golog.Logger) ([]r3.Vector, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(lf.Close)

	if lf.Header.NumberPoints < 0 {
		return nil, errors.Errorf("invalid number of points %d in LAS header", lf.Header.NumberPoints)
	}
	points := make([]r3.Vector, 0, min(lf.Header.NumberPoints, maxPreallocatedPoints))
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, err
		}
		data := p.PointData()

		x, y, z := data.X, data.Y, data.Z
		if x < minPreciseFloat64 || x > maxPreciseFloat64 ||
			y < minPreciseFloat64 || y > maxPreciseFloat64 ||
			z < minPreciseFloat64 || z > maxPreciseFloat64 {
			logger.Warnw("potential floating point lossiness for LAS point",
				"point", data, "range", fmt.Sprintf("[%f,%f]", minPreciseFloat64, maxPreciseFloat64))
		}
		points = append(points, r3.Vector{X: x, Y: y, Z: z})
	}
	return points, nil
}

// WriteLASFile writes the points out to a LAS file.
func WriteLASFile(points []r3.Vector, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return
	}
	defer func() {
		cerr := lf.Close()
		err = multierr.Combine(err, cerr)
	}()

	if err = lf.AddHeader(lidario.LasHeader{
		PointFormatID: 0,
	}); err != nil {
		return
	}

	for _, pos := range points {
		pr0 := &lidario.PointRecord0{
			X: pos.X,
			Y: pos.Y,
			Z: pos.Z,
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3) | (0 << 6) | (0 << 7),
			},
			ClassBitField: lidario.ClassificationBitField{
				Value: 0,
			},
			ScanAngle:     0,
			UserData:      0,
			PointSourceID: 1,
		}
		if err = lf.AddLasPoint(pr0); err != nil {
			return
		}
	}
	return
}
