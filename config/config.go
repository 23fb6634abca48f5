// Package config defines the structures to configure an octree index.
package config

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/MisaelVM/octree/octree"
)

// Defaults used when a field is missing from the config.
const (
	DefaultCapacity  = 8
	DefaultDimension = 512
)

// Config describes the root region and node capacity of an octree.
type Config struct {
	ConfigFilePath string `json:"-"`

	// Center of the root region.
	Center r3.Vector `json:"center"`
	// Dimensions are the half extents of the root region along each axis.
	Dimensions *r3.Vector `json:"dimensions,omitempty"`
	Capacity   *uint      `json:"capacity,omitempty"`
	MaxDepth   *uint      `json:"max_depth,omitempty"`
	// Debug enables debug logging in the command line tool, as --debug does.
	Debug bool `json:"debug,omitempty"`
}

// Default returns the config of an index centered at the origin with the default dimensions and
// capacity.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Dimensions == nil {
		cfg.Dimensions = &r3.Vector{X: DefaultDimension, Y: DefaultDimension, Z: DefaultDimension}
	}
	if cfg.Capacity == nil {
		capacity := uint(DefaultCapacity)
		cfg.Capacity = &capacity
	}
	if cfg.MaxDepth == nil {
		maxDepth := uint(octree.DefaultMaxDepth)
		cfg.MaxDepth = &maxDepth
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if !finite(cfg.Center) {
		return utils.NewConfigValidationError(path, errors.New("center must be finite"))
	}
	if cfg.Dimensions == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "dimensions")
	}
	if !finite(*cfg.Dimensions) {
		return utils.NewConfigValidationError(path, errors.New("dimensions must be finite"))
	}
	if cfg.Dimensions.X < 0 || cfg.Dimensions.Y < 0 || cfg.Dimensions.Z < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("dimensions must not be negative, got %v", *cfg.Dimensions))
	}
	if cfg.Capacity == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "capacity")
	}
	if cfg.MaxDepth == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "max_depth")
	}
	return nil
}

func finite(v r3.Vector) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// NewOctree builds an empty index from the config.
func (cfg *Config) NewOctree(logger golog.Logger) (*octree.Octree, error) {
	if err := cfg.Validate("octree"); err != nil {
		return nil, err
	}
	return octree.New(cfg.Center, *cfg.Dimensions, *cfg.Capacity, logger, octree.WithMaxDepth(*cfg.MaxDepth))
}
