package pipeline

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/blang/semver"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/janelia-flyem/schemgen/schemgen"
	"github.com/janelia-flyem/schemgen/sdf"
	"github.com/janelia-flyem/schemgen/storage"
	"github.com/janelia-flyem/schemgen/structure"
	"github.com/janelia-flyem/schemgen/tiles"
)

const (
	// DefaultBaseName is used for tile names when no base name is configured.
	DefaultBaseName = "structure"

	FormatNBT     = "nbt"
	FormatMsgpack = "msgpack"
)

// Config is the parsed TOML configuration.
type Config struct {
	Logging   schemgen.LogConfig
	Structure structureConfig
	Tiles     tilesConfig
	Voxelize  voxelizeConfig
	Output    outputConfig
	Store     map[string]storeConfig

	location string
}

type structureConfig struct {
	Platform string
	Version  string
}

type tilesConfig struct {
	MaxSize     int   `toml:"max_size"`
	DataVersion int32 `toml:"data_version"`
	Format      string
	Compression string
}

type voxelizeConfig struct {
	Spacing    []float64
	EdgeMode   string `toml:"edge_mode"`
	Fill       bool
	IgnoreClip bool `toml:"ignore_clip"`

	// Origin and Size hold three entries for x, y and z.  An entry of "auto" (or "")
	// leaves that axis to the mesh bounds.
	Origin []interface{}
	Size   []interface{}
}

type outputConfig struct {
	URL      string `toml:"url"`
	BaseName string `toml:"base_name"`
}

// storeConfig holds engine-specific settings plus the "engine" name.
type storeConfig map[string]interface{}

// DefaultConfig returns the configuration used when no TOML file is given.
func DefaultConfig() *Config {
	return &Config{
		Structure: structureConfig{
			Platform: structure.DefaultPlatform,
			Version:  structure.DefaultVersion.String(),
		},
		Tiles: tilesConfig{
			MaxSize: tiles.DefaultMaxSize,
			Format:  FormatNBT,
		},
		Voxelize: voxelizeConfig{
			Spacing:  []float64{1},
			EdgeMode: "center",
			Fill:     true,
		},
		Output: outputConfig{BaseName: DefaultBaseName},
		Store:  make(map[string]storeConfig),
	}
}

// LoadConfig reads a TOML configuration, filling unset values with defaults.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("no TOML configuration file provided")
	}
	c := DefaultConfig()
	if _, err := toml.DecodeFile(filename, c); err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %v", err)
	}
	c.location = filename
	if err := c.convertPathsToAbsolute(filename); err != nil {
		return nil, fmt.Errorf("could not convert relative paths to absolute paths in TOML config: %v", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	schemgen.Debugf("Loaded configuration from %s: %+v\n", filename, *c)
	return c, nil
}

// Location returns the file the configuration was loaded from, if any.
func (c *Config) Location() string {
	return c.location
}

// Some settings in the TOML can be given as relative paths.
// This function converts them in-place to absolute paths,
// assuming the given paths were relative to the TOML file's own directory.
func (c *Config) convertPathsToAbsolute(configPath string) error {
	var err error
	configDir := filepath.Dir(configPath)

	// [logging].logfile
	if c.Logging.Logfile != "" {
		c.Logging.Logfile, err = schemgen.ConvertToAbsolute(c.Logging.Logfile, configDir)
		if err != nil {
			return fmt.Errorf("error converting logfile setting to absolute path")
		}
	}

	// [output].url when it is a plain directory
	if c.Output.URL != "" && !strings.Contains(c.Output.URL, "://") {
		c.Output.URL, err = schemgen.ConvertToAbsolute(c.Output.URL, configDir)
		if err != nil {
			return fmt.Errorf("error converting output url to absolute path")
		}
	}

	// [store.foobar].path
	for alias, sc := range c.Store {
		p, ok := sc["path"]
		if !ok {
			continue
		}
		path, ok := p.(string)
		if !ok {
			return fmt.Errorf("don't understand path setting for store %q", alias)
		}
		absPath, err := schemgen.ConvertToAbsolute(path, configDir)
		if err != nil {
			return fmt.Errorf("error converting store.%s.path to absolute path: %q", alias, path)
		}
		sc["path"] = absPath
	}
	return nil
}

// Validate checks every setting that can be checked without opening resources.
func (c *Config) Validate() error {
	if _, err := c.Version(); err != nil {
		return err
	}
	if _, err := c.Tiler(); err != nil {
		return err
	}
	if _, err := c.Encoder(); err != nil {
		return err
	}
	if _, err := c.VoxelizeOptions(); err != nil {
		return err
	}
	for alias := range c.Store {
		if _, err := c.StoreConfig(alias); err != nil {
			return err
		}
	}
	return nil
}

// Version returns the configured game version.
func (c *Config) Version() (semver.Version, error) {
	if c.Structure.Version == "" {
		return structure.DefaultVersion, nil
	}
	return structure.ParseVersion(c.Structure.Version)
}

// NewStructure returns an empty structure with the configured platform and version.
func (c *Config) NewStructure() (*structure.Structure, error) {
	v, err := c.Version()
	if err != nil {
		return nil, err
	}
	return structure.New(c.Structure.Platform, v), nil
}

// Tiler returns a tiler for the configured maximum tile size.
func (c *Config) Tiler() (*tiles.Tiler, error) {
	if c.Tiles.MaxSize == 0 {
		return tiles.NewTiler(tiles.DefaultMaxSize)
	}
	return tiles.NewTiler(c.Tiles.MaxSize)
}

// Encoder returns the configured tile encoder.  NBT tiles are gzipped unless another
// compression is set; msgpack tiles are uncompressed by default.
func (c *Config) Encoder() (tiles.Encoder, error) {
	switch strings.ToLower(c.Tiles.Format) {
	case FormatNBT, "":
		compress, err := schemgen.ParseCompression(c.Tiles.Compression, schemgen.Gzip)
		if err != nil {
			return nil, err
		}
		return &tiles.NBTEncoder{DataVersion: c.Tiles.DataVersion, Compression: compress}, nil
	case FormatMsgpack:
		compress, err := schemgen.ParseCompression(c.Tiles.Compression, schemgen.Uncompressed)
		if err != nil {
			return nil, err
		}
		return &tiles.MsgpackEncoder{Compression: compress}, nil
	default:
		return nil, fmt.Errorf("unknown tile format %q, expected %s or %s: %w",
			c.Tiles.Format, FormatNBT, FormatMsgpack, schemgen.ErrInvalidArgument)
	}
}

// VoxelizeOptions returns mesh sampling options.  Spacing may be one value for all axes
// or three values for x, y and z.
func (c *Config) VoxelizeOptions() (sdf.Options, error) {
	var opts sdf.Options
	switch len(c.Voxelize.Spacing) {
	case 0:
		opts.Spacing = sdf.NewSpacing(1)
	case 1:
		opts.Spacing = sdf.NewSpacing(c.Voxelize.Spacing[0])
	case 3:
		opts.Spacing = r3.Vec{X: c.Voxelize.Spacing[0], Y: c.Voxelize.Spacing[1], Z: c.Voxelize.Spacing[2]}
	default:
		return opts, fmt.Errorf("spacing needs 1 or 3 values, got %v: %w", c.Voxelize.Spacing, schemgen.ErrInvalidArgument)
	}
	for _, s := range c.Voxelize.Spacing {
		if !(s > 0) {
			return opts, fmt.Errorf("spacing must be positive, got %v: %w", c.Voxelize.Spacing, schemgen.ErrInvalidArgument)
		}
	}
	edge, err := sdf.ParseEdgeMode(c.Voxelize.EdgeMode)
	if err != nil {
		return opts, err
	}
	opts.Edge = edge
	opts.Fill = c.Voxelize.Fill
	opts.IgnoreClip = c.Voxelize.IgnoreClip
	if opts.Origin, err = axisOverrides("origin", c.Voxelize.Origin); err != nil {
		return opts, err
	}
	if opts.Size, err = axisOverrides("size", c.Voxelize.Size); err != nil {
		return opts, err
	}
	for i, s := range opts.Size {
		if s != nil && *s < 0 {
			return opts, fmt.Errorf("size[%d] must not be negative, got %g: %w", i, *s, schemgen.ErrInvalidArgument)
		}
	}
	return opts, nil
}

// axisOverrides converts a TOML array of numbers and "auto" markers into per-axis
// overrides.  An empty array leaves every axis unset.
func axisOverrides(name string, values []interface{}) ([3]*float64, error) {
	var axes [3]*float64
	if len(values) == 0 {
		return axes, nil
	}
	if len(values) != 3 {
		return axes, fmt.Errorf("%s needs 3 values, got %v: %w", name, values, schemgen.ErrInvalidArgument)
	}
	for i, v := range values {
		var f float64
		switch t := v.(type) {
		case float64:
			f = t
		case int64:
			f = float64(t)
		case string:
			if t == "" || strings.EqualFold(t, "auto") {
				continue
			}
			return axes, fmt.Errorf("%s[%d] must be a number or \"auto\", got %q: %w", name, i, t, schemgen.ErrInvalidArgument)
		default:
			return axes, fmt.Errorf("%s[%d] must be a number or \"auto\", got %v: %w", name, i, v, schemgen.ErrInvalidArgument)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return axes, fmt.Errorf("%s[%d] must be finite: %w", name, i, schemgen.ErrInvalidArgument)
		}
		axes[i] = &f
	}
	return axes, nil
}

// StoreConfig returns the container configuration for a [store.alias] section.
func (c *Config) StoreConfig(alias string) (storage.StoreConfig, error) {
	sc, found := c.Store[alias]
	if !found {
		return storage.StoreConfig{}, fmt.Errorf("no store %q in configuration: %w", alias, schemgen.ErrNotFound)
	}
	engine, ok := sc["engine"].(string)
	if !ok || engine == "" {
		return storage.StoreConfig{}, fmt.Errorf("store %q must set an engine: %w", alias, schemgen.ErrInvalidArgument)
	}
	config := make(storage.Config, len(sc))
	for k, v := range sc {
		if k != "engine" {
			config[k] = v
		}
	}
	return storage.StoreConfig{Config: config, Engine: engine}, nil
}

// BaseName returns the configured tile base name.
func (c *Config) BaseName() string {
	if c.Output.BaseName == "" {
		return DefaultBaseName
	}
	return c.Output.BaseName
}
