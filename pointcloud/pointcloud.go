// Package pointcloud reads and writes the point files an octree is loaded from and its query
// results are written to. Only positions are kept; color and other per point data in the input
// is skipped.
package pointcloud

import (
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// NewFromFile returns the points read in from the given file. The format is picked from the
// file extension.
func NewFromFile(fn string, logger golog.Logger) ([]r3.Vector, error) {
	switch filepath.Ext(fn) {
	case ".las":
		return ReadLASFile(fn, logger)
	case ".pcd":
		f, err := os.Open(filepath.Clean(fn))
		if err != nil {
			return nil, err
		}
		points, err := ReadPCD(f)
		return points, multierr.Combine(err, f.Close())
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}
}

// WriteToFile writes the points to the given file, in the format picked from its extension. PCD
// files are written in binary.
func WriteToFile(points []r3.Vector, fn string) (err error) {
	switch filepath.Ext(fn) {
	case ".las":
		return WriteLASFile(points, fn)
	case ".pcd":
		f, createErr := os.Create(filepath.Clean(fn))
		if createErr != nil {
			return createErr
		}
		defer func() {
			err = multierr.Combine(err, f.Close())
		}()
		return WritePCD(points, f, PCDBinary)
	default:
		return errors.Errorf("do not know how to write file %q", fn)
	}
}
