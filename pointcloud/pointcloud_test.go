package pointcloud

import (
	"bytes"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/MisaelVM/octree/spatialmath"
)

var testPoints = []r3.Vector{
	{X: 0, Y: 0, Z: 0},
	{X: 1.5, Y: -2.25, Z: 3},
	{X: -100, Y: 200.125, Z: 0.1},
	{X: 1e-9, Y: 12345.6789, Z: -0.3},
}

func TestPCDRoundTrip(t *testing.T) {
	for _, pcdType := range []PCDType{PCDAscii, PCDBinary} {
		var buf bytes.Buffer
		test.That(t, WritePCD(testPoints, &buf, pcdType), test.ShouldBeNil)

		points, err := ReadPCD(&buf)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, points, test.ShouldResemble, testPoints)
	}

	var buf bytes.Buffer
	err := WritePCD(testPoints, &buf, PCDCompressed)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not yet implemented")
}

func TestReadPCDAscii(t *testing.T) {
	t.Run("colored float32 points", func(t *testing.T) {
		data := "# .PCD v.7 - Point Cloud Data file format\n" +
			"VERSION .7\n" +
			"FIELDS x y z rgb\n" +
			"SIZE 4 4 4 4\n" +
			"TYPE F F F I\n" +
			"COUNT 1 1 1 1\n" +
			"WIDTH 2\n" +
			"HEIGHT 1\n" +
			"VIEWPOINT 0 0 0 1 0 0 0\n" +
			"POINTS 2\n" +
			"DATA ascii\n" +
			"1 2 3 16711680\n" +
			"-1 -2 -3 255"
		points, err := ReadPCD(strings.NewReader(data))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, points, test.ShouldResemble, []r3.Vector{{X: 1, Y: 2, Z: 3}, {X: -1, Y: -2, Z: -3}})
	})

	t.Run("bad header", func(t *testing.T) {
		data := "VERSION .7\n" +
			"FIELDS x y\n"
		_, err := ReadPCD(strings.NewReader(data))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported pcd fields")
	})

	t.Run("points do not match size", func(t *testing.T) {
		data := "VERSION .7\n" +
			"FIELDS x y z\n" +
			"SIZE 4 4 4\n" +
			"TYPE F F F\n" +
			"COUNT 1 1 1\n" +
			"WIDTH 2\n" +
			"HEIGHT 1\n" +
			"VIEWPOINT 0 0 0 1 0 0 0\n" +
			"POINTS 3\n" +
			"DATA ascii\n"
		_, err := ReadPCD(strings.NewReader(data))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "does not match WIDTH*HEIGHT")
	})

	t.Run("truncated data", func(t *testing.T) {
		data := "VERSION .7\n" +
			"FIELDS x y z\n" +
			"SIZE 4 4 4\n" +
			"TYPE F F F\n" +
			"COUNT 1 1 1\n" +
			"WIDTH 2\n" +
			"HEIGHT 1\n" +
			"VIEWPOINT 0 0 0 1 0 0 0\n" +
			"POINTS 2\n" +
			"DATA ascii\n" +
			"1 2 3\n"
		_, err := ReadPCD(strings.NewReader(data))
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("huge point count", func(t *testing.T) {
		data := "VERSION .7\n" +
			"FIELDS x y z\n" +
			"SIZE 4 4 4\n" +
			"TYPE F F F\n" +
			"COUNT 1 1 1\n" +
			"WIDTH 100000000000000\n" +
			"HEIGHT 1\n" +
			"VIEWPOINT 0 0 0 1 0 0 0\n" +
			"POINTS 100000000000000\n" +
			"DATA ascii\n" +
			"1 2 3\n"
		_, err := ReadPCD(strings.NewReader(data))
		test.That(t, err, test.ShouldNotBeNil)

		binaryData := strings.Replace(data, "DATA ascii\n1 2 3\n", "DATA binary\n", 1)
		_, err = ReadPCD(strings.NewReader(binaryData))
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("overflowing width and height", func(t *testing.T) {
		data := "VERSION .7\n" +
			"FIELDS x y z\n" +
			"SIZE 4 4 4\n" +
			"TYPE F F F\n" +
			"COUNT 1 1 1\n" +
			"WIDTH 4294967296\n" +
			"HEIGHT 4294967296\n" +
			"VIEWPOINT 0 0 0 1 0 0 0\n" +
			"POINTS 0\n" +
			"DATA ascii\n"
		_, err := ReadPCD(strings.NewReader(data))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "overflows")
	})

	t.Run("huge field size", func(t *testing.T) {
		data := "VERSION .7\n" +
			"FIELDS x y z rgb\n" +
			"SIZE 4 4 4 1000000000000000\n" +
			"TYPE F F F U\n" +
			"COUNT 1 1 1 1\n" +
			"WIDTH 1\n" +
			"HEIGHT 1\n" +
			"VIEWPOINT 0 0 0 1 0 0 0\n" +
			"POINTS 1\n" +
			"DATA binary\n"
		_, err := ReadPCD(strings.NewReader(data))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported SIZE")
	})

	t.Run("integer coordinates", func(t *testing.T) {
		data := "VERSION .7\n" +
			"FIELDS x y z\n" +
			"SIZE 4 4 4\n" +
			"TYPE I I I\n"
		_, err := ReadPCD(strings.NewReader(data))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported type")
	})
}

func TestFiles(t *testing.T) {
	logger := golog.NewTestLogger(t)
	dir := t.TempDir()

	t.Run("pcd", func(t *testing.T) {
		fn := filepath.Join(dir, "points.pcd")
		test.That(t, WriteToFile(testPoints, fn), test.ShouldBeNil)
		points, err := NewFromFile(fn, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, points, test.ShouldResemble, testPoints)
	})

	t.Run("las", func(t *testing.T) {
		in := []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 10, Y: -20, Z: 30}, {X: 512, Y: 512, Z: -512}}
		fn := filepath.Join(dir, "points.las")
		test.That(t, WriteToFile(in, fn), test.ShouldBeNil)
		points, err := NewFromFile(fn, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(points), test.ShouldEqual, len(in))
		for i, p := range points {
			test.That(t, p.X, test.ShouldAlmostEqual, in[i].X, 1e-3)
			test.That(t, p.Y, test.ShouldAlmostEqual, in[i].Y, 1e-3)
			test.That(t, p.Z, test.ShouldAlmostEqual, in[i].Z, 1e-3)
		}
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := NewFromFile(filepath.Join(dir, "points.ply"), logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "do not know how to read file")

		err = WriteToFile(testPoints, filepath.Join(dir, "points.ply"))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "do not know how to write file")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewFromFile(filepath.Join(dir, "missing.pcd"), logger)
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestRandomPoints(t *testing.T) {
	region, err := spatialmath.NewOctant(r3.Vector{X: 10, Y: -10, Z: 0}, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, err, test.ShouldBeNil)

	points := RandomPoints(region, 1000, rand.New(rand.NewSource(1)))
	test.That(t, len(points), test.ShouldEqual, 1000)
	for _, p := range points {
		test.That(t, region.Contains(p), test.ShouldBeTrue)
	}

	again := RandomPoints(region, 1000, rand.New(rand.NewSource(1)))
	test.That(t, again, test.ShouldResemble, points)

	test.That(t, RandomPoints(region, 0, rand.New(rand.NewSource(1))), test.ShouldBeEmpty)
}
