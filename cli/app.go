// Package cli contains the octree command line tool.
package cli

import (
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/MisaelVM/octree/config"
	"github.com/MisaelVM/octree/octree"
	"github.com/MisaelVM/octree/pointcloud"
	"github.com/MisaelVM/octree/spatialmath"
)

const (
	// Flags.
	flagConfig = "config"
	flagDebug  = "debug"
	flagInput  = "input"
	flagOutput = "output"
	flagFrom   = "from"
	flagTo     = "to"
	flagCount  = "count"
	flagSeed   = "seed"
)

const loggerKey = "logger"

// NewApp returns the octree command line application writing its results to out.
func NewApp(out io.Writer) *cli.App {
	inputFlag := &cli.StringFlag{
		Name:     flagInput,
		Aliases:  []string{"i"},
		Required: true,
		Usage:    "read points from `FILE` (.pcd or .las)",
	}

	return &cli.App{
		Name:   "octree",
		Usage:  "index points in an octree and run range queries over them",
		Writer:   out,
		Metadata: map[string]interface{}{},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load octree configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			debug := c.Bool(flagDebug)
			if path := c.String(flagConfig); path != "" && !debug {
				cfg, err := config.Read(c.Context, path, zap.NewNop().Sugar())
				if err != nil {
					return err
				}
				debug = cfg.Debug
			}
			var logger golog.Logger
			if debug {
				logger = golog.NewDebugLogger("octree")
			} else {
				logger = zap.NewNop().Sugar()
			}
			c.App.Metadata[loggerKey] = logger
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "random",
				Usage: "write random points inside the configured region",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  flagCount,
						Value: 1000,
						Usage: "number of points to generate",
					},
					&cli.Int64Flag{
						Name:  flagSeed,
						Value: 1,
						Usage: "seed of the random generator",
					},
					&cli.StringFlag{
						Name:     flagOutput,
						Aliases:  []string{"o"},
						Required: true,
						Usage:    "write points to `FILE` (.pcd or .las)",
					},
				},
				Action: randomAction,
			},
			{
				Name:      "query",
				Usage:     "find the points inside the box spanned by two corners",
				ArgsUsage: "--from x,y,z --to x,y,z",
				Flags: []cli.Flag{
					inputFlag,
					&cli.StringFlag{
						Name:     flagFrom,
						Required: true,
						Usage:    "first corner of the query box",
					},
					&cli.StringFlag{
						Name:     flagTo,
						Required: true,
						Usage:    "opposite corner of the query box",
					},
					&cli.StringFlag{
						Name:    flagOutput,
						Aliases: []string{"o"},
						Usage:   "write matching points to `FILE` instead of printing them",
					},
				},
				Action: queryAction,
			},
			{
				Name:  "stats",
				Usage: "print statistics about the tree built from a point file",
				Flags: []cli.Flag{inputFlag},
				Action: statsAction,
			},
			{
				Name:  "geometries",
				Usage: "print the region of every node as JSON geometries, one per line",
				Flags: []cli.Flag{inputFlag},
				Action: geometriesAction,
			},
		},
	}
}

// loggerFrom returns the logger picked for this run by the --debug flag or the config file.
func loggerFrom(c *cli.Context) golog.Logger {
	if logger, ok := c.App.Metadata[loggerKey].(golog.Logger); ok {
		return logger
	}
	return zap.NewNop().Sugar()
}

func readConfig(c *cli.Context, logger golog.Logger) (*config.Config, error) {
	path := c.String(flagConfig)
	if path == "" {
		return config.Default(), nil
	}
	return config.Read(c.Context, path, logger)
}

// buildOctree creates the configured index and loads the input file into it.
func buildOctree(c *cli.Context, logger golog.Logger) (*octree.Octree, error) {
	cfg, err := readConfig(c, logger)
	if err != nil {
		return nil, err
	}
	tree, err := cfg.NewOctree(logger)
	if err != nil {
		return nil, err
	}

	fn := c.String(flagInput)
	points, err := pointcloud.NewFromFile(fn, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading points from %q", fn)
	}
	inserted := tree.InsertMany(points)
	if inserted < len(points) {
		logger.Warnw("some points are outside of the octree bounds and were skipped",
			"file", fn, "skipped", len(points)-inserted)
	}
	logger.Debugw("loaded points into octree", "file", fn, "points", inserted)
	return tree, nil
}

func randomAction(c *cli.Context) error {
	logger := loggerFrom(c)
	cfg, err := readConfig(c, logger)
	if err != nil {
		return err
	}
	region, err := spatialmath.NewOctant(cfg.Center, *cfg.Dimensions)
	if err != nil {
		return err
	}
	count := c.Int(flagCount)
	if count < 0 {
		return errors.Errorf("count must not be negative, got %d", count)
	}

	points := pointcloud.RandomPoints(region, count, rand.New(rand.NewSource(c.Int64(flagSeed)))) //nolint:gosec
	if err := pointcloud.WriteToFile(points, c.String(flagOutput)); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Wrote %d points to %s\n", len(points), c.String(flagOutput))
	return nil
}

func queryAction(c *cli.Context) error {
	logger := loggerFrom(c)
	from, err := parseVector(c.String(flagFrom))
	if err != nil {
		return errors.Wrap(err, "error parsing from flag")
	}
	to, err := parseVector(c.String(flagTo))
	if err != nil {
		return errors.Wrap(err, "error parsing to flag")
	}
	tree, err := buildOctree(c, logger)
	if err != nil {
		return err
	}

	found := tree.Search(from, to)
	if out := c.String(flagOutput); out != "" {
		if err := pointcloud.WriteToFile(found, out); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Found %d points, wrote them to %s\n", len(found), out)
		return nil
	}
	fmt.Fprintf(c.App.Writer, "Found %d points\n", len(found))
	for _, p := range found {
		fmt.Fprintf(c.App.Writer, "%g %g %g\n", p.X, p.Y, p.Z)
	}
	return nil
}

func statsAction(c *cli.Context) error {
	logger := loggerFrom(c)
	tree, err := buildOctree(c, logger)
	if err != nil {
		return err
	}
	st, err := tree.Stats()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Region", tree.Region().String()},
		{"Capacity", tree.Capacity()},
		{"Max depth allowed", tree.MaxDepth()},
		{"Points", st.Points},
		{"Nodes", st.Nodes},
		{"Divided nodes", st.Divided},
		{"Leaves", st.Leaves},
		{"Deepest level", st.MaxDepth},
		{"Leaves over capacity", st.Overflowed},
		{"Mean points per leaf", fmt.Sprintf("%.2f", st.MeanLeafPoints)},
		{"Median points per leaf", fmt.Sprintf("%.2f", st.MedianLeafPoints)},
		{"Max points per leaf", fmt.Sprintf("%.0f", st.MaxLeafPoints)},
	})
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}

func geometriesAction(c *cli.Context) error {
	logger := loggerFrom(c)
	tree, err := buildOctree(c, logger)
	if err != nil {
		return err
	}
	for _, geom := range tree.Geometries() {
		b, err := protojson.Marshal(geom)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, string(b))
	}
	return nil
}

// parseVector parses a vector written as "x,y,z".
func parseVector(s string) (r3.Vector, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vector{}, errors.Errorf("expected a vector as x,y,z but got %q", s)
	}
	var coords [3]float64
	for i, part := range parts {
		v, err := cast.ToFloat64E(strings.TrimSpace(part))
		if err != nil {
			return r3.Vector{}, err
		}
		coords[i] = v
	}
	return r3.Vector{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}
