/*
Package storage persists structures in pluggable container engines.

Each engine registers itself at init time under a name and semantic version, and opens
containers given a store configuration:

	NewContainer(config StoreConfig) (c Container, created bool, err error)

A container holds the non-air voxels of one structure along with its metadata.  The
functions ReadInto and WriteStructure move voxels between a container and an in-memory
structure.Structure.
*/
package storage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blang/semver"

	"github.com/janelia-flyem/schemgen/blocks"
	"github.com/janelia-flyem/schemgen/schemgen"
)

// Config is a map of keyword to arbitrary data to specify configurations via keyword.
type Config map[string]interface{}

// GetString returns a string setting.  It returns an error if the setting exists but
// is not a string.
func (c Config) GetString(key string) (s string, found bool, err error) {
	v, found := c[key]
	if !found {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, fmt.Errorf("setting %q must be a string, got %v: %w", key, v, schemgen.ErrInvalidArgument)
	}
	return s, true, nil
}

// GetBool returns a bool setting.
func (c Config) GetBool(key string) (b bool, found bool, err error) {
	v, found := c[key]
	if !found {
		return false, false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, true, fmt.Errorf("setting %q must be a bool, got %v: %w", key, v, schemgen.ErrInvalidArgument)
	}
	return b, true, nil
}

// GetInt returns an integer setting.  TOML integers decode as int64 so both are accepted.
func (c Config) GetInt(key string) (i int, found bool, err error) {
	v, found := c[key]
	if !found {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	default:
		return 0, true, fmt.Errorf("setting %q must be an integer, got %v: %w", key, v, schemgen.ErrInvalidArgument)
	}
}

// StoreConfig is a store-specific configuration where each engine defines the
// parameters it accepts.
type StoreConfig struct {
	Config

	// Engine is a simple name describing the engine, e.g., "badger"
	Engine string
}

// Voxel is a stored block at an absolute position.
type Voxel struct {
	Pos   schemgen.Point3d
	Block blocks.Descriptor
}

// Container is an opened structure container.
type Container interface {
	fmt.Stringer

	// Close releases the container.
	Close() error

	// GetMetadata returns the container metadata or schemgen.ErrNotFound if none was written.
	GetMetadata() (*Metadata, error)

	// PutMetadata replaces the container metadata.
	PutMetadata(m *Metadata) error

	// PutVoxels stores the voxels, replacing any stored at the same positions.
	PutVoxels(voxels []Voxel) error

	// ForEachVoxel calls fn for every stored voxel within the half-open box [min, max) in
	// x, then y, then z order.
	ForEachVoxel(min, max schemgen.Point3d, fn func(Voxel) error) error

	// DeleteAll removes all voxels and metadata.
	DeleteAll() error
}

// Engine is a container implementation.
type Engine interface {
	fmt.Stringer
	GetName() string
	GetDescription() string
	GetSemVer() semver.Version

	// NewContainer opens the container described by config, creating it if necessary.
	// The returned bool is true if the container is new.
	NewContainer(config StoreConfig) (Container, bool, error)
}

var availEngines map[string]Engine

// RegisterEngine registers an Engine for use.
func RegisterEngine(e Engine) {
	if availEngines == nil {
		availEngines = map[string]Engine{e.GetName(): e}
	} else {
		availEngines[e.GetName()] = e
	}
}

// GetEngine returns an Engine of the given name or nil if none is registered.
func GetEngine(name string) Engine {
	if availEngines == nil {
		return nil
	}
	e, found := availEngines[name]
	if !found {
		return nil
	}
	return e
}

// EnginesAvailable returns a description of the available storage engines.
func EnginesAvailable() string {
	var engines []string
	for _, e := range availEngines {
		engines = append(engines, e.String())
	}
	sort.Strings(engines)
	return strings.Join(engines, "; ")
}

// Open opens a container with the engine named in the config.
func Open(config StoreConfig) (Container, bool, error) {
	e := GetEngine(config.Engine)
	if e == nil {
		return nil, false, fmt.Errorf("no storage engine %q available (have %s): %w", config.Engine, EnginesAvailable(), schemgen.ErrNotFound)
	}
	return e.NewContainer(config)
}
