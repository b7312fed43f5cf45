// Package pipeline wires volumes, meshes and containers into a structure and writes it
// out as tiles according to a TOML configuration.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/DmitriyVTitov/size"
	"github.com/dustin/go-humanize"

	"github.com/janelia-flyem/schemgen/blocks"
	"github.com/janelia-flyem/schemgen/schemgen"
	"github.com/janelia-flyem/schemgen/sdf"
	"github.com/janelia-flyem/schemgen/storage"
	"github.com/janelia-flyem/schemgen/structure"
	"github.com/janelia-flyem/schemgen/tiles"
	"github.com/janelia-flyem/schemgen/volume"
)

// Pipeline stages voxels into a single structure.  Layers are added first; tiles and
// containers are written afterwards.  It is not safe for concurrent use.
type Pipeline struct {
	cfg *Config
	s   *structure.Structure
}

// New returns a pipeline with an empty structure.
func New(cfg *Config) (*Pipeline, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s, err := cfg.NewStructure()
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, s: s}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() *Config {
	return p.cfg
}

// Structure returns the staged structure.
func (p *Pipeline) Structure() *structure.Structure {
	return p.s
}

// AddVolume adds the true voxels of a (depth, row, column[, channel]) volume as the given
// block.  With a nil trueValue every non-zero voxel is true.
func (p *Pipeline) AddVolume(a *volume.Array, block string, trueValue *float64) error {
	mask, err := volume.ToMask(a, trueValue)
	if err != nil {
		return err
	}
	if err := p.s.AddLayerSpec(mask, block); err != nil {
		return err
	}
	schemgen.Debugf("Added %d voxel layer of %s from volume %v\n", mask.Count(), block, a.Shape)
	return nil
}

// AddMesh voxelizes a surface with the configured sampling options and adds it as the
// given block.
func (p *Pipeline) AddMesh(ctx context.Context, m *sdf.Mesh, block string) error {
	opts, err := p.cfg.VoxelizeOptions()
	if err != nil {
		return err
	}
	return p.AddMeshWithOptions(ctx, m, block, opts)
}

// AddMeshWithOptions is AddMesh with explicit sampling options.
func (p *Pipeline) AddMeshWithOptions(ctx context.Context, m *sdf.Mesh, block string, opts sdf.Options) error {
	b, err := blocks.Parse(block)
	if err != nil {
		return err
	}
	mask, err := sdf.VoxelizeMask(ctx, m, opts)
	if err != nil {
		return err
	}
	if err := p.s.AddLayer(mask, b); err != nil {
		return err
	}
	schemgen.Debugf("Added %d voxel layer of %s from mesh with %d faces\n", mask.Count(), b, len(m.Faces))
	return nil
}

func (p *Pipeline) openStore(alias string) (storage.Container, error) {
	config, err := p.cfg.StoreConfig(alias)
	if err != nil {
		return nil, err
	}
	c, _, err := storage.Open(config)
	return c, err
}

// Import adds the voxels of the container configured under [store.alias].
func (p *Pipeline) Import(alias string) (int, error) {
	c, err := p.openStore(alias)
	if err != nil {
		return 0, err
	}
	defer c.Close()
	return storage.ReadInto(c, p.s)
}

// Save replaces the contents of the container configured under [store.alias] with the
// staged structure.
func (p *Pipeline) Save(alias string) (*storage.Metadata, error) {
	c, err := p.openStore(alias)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return storage.WriteStructure(c, p.s)
}

// OpenSink opens the configured output location.
func (p *Pipeline) OpenSink(ctx context.Context) (*tiles.BucketSink, error) {
	return tiles.OpenSink(ctx, p.cfg.Output.URL)
}

// WriteTiles writes the staged structure to the sink with the configured tiler and
// encoder.
func (p *Pipeline) WriteTiles(ctx context.Context, sink tiles.Sink, base string) (tiles.Stats, error) {
	return writeTiles(ctx, p.cfg, p.s, sink, base)
}

func writeTiles(ctx context.Context, cfg *Config, s *structure.Structure, sink tiles.Sink, base string) (tiles.Stats, error) {
	tiler, err := cfg.Tiler()
	if err != nil {
		return tiles.Stats{}, err
	}
	enc, err := cfg.Encoder()
	if err != nil {
		return tiles.Stats{}, err
	}
	if base == "" {
		base = cfg.BaseName()
	}
	return tiles.Emit(ctx, s, tiler, enc, sink, base)
}

// SplitBaseName returns the base name used for the tiles of one block partition.
func SplitBaseName(base, blockName string) string {
	return base + "_" + strings.ReplaceAll(blockName, ":", "_")
}

// WriteSplit partitions the staged structure by block and writes one tile set per block,
// each named with SplitBaseName.  Stats are keyed by "namespace:name".
func (p *Pipeline) WriteSplit(ctx context.Context, sink tiles.Sink, base string) (map[string]tiles.Stats, error) {
	if base == "" {
		base = p.cfg.BaseName()
	}
	parts := p.s.SplitByBlock()
	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	sort.Strings(names)
	stats := make(map[string]tiles.Stats, len(parts))
	for _, name := range names {
		st, err := writeTiles(ctx, p.cfg, parts[name], sink, SplitBaseName(base, name))
		if err != nil {
			return stats, fmt.Errorf("writing tiles for %s: %w", name, err)
		}
		stats[name] = st
	}
	return stats, nil
}

// Summary describes the staged structure.
func (p *Pipeline) Summary() string {
	s := p.s
	var names []string
	for _, b := range s.Blocks() {
		names = append(names, b.Key())
	}
	tiler, _ := p.cfg.Tiler()
	grid := schemgen.Point3d{}
	if tiler != nil {
		grid = tiler.Grid(s.VolumeSize())
	}
	return fmt.Sprintf("%s %s structure: size %s, %d voxels, %d block types, %s tile grid, ~%s in memory\nblocks: %s",
		s.Platform(), s.Version(), s.VolumeSize(), s.NumVoxels(), len(names), grid,
		humanize.Bytes(uint64(size.Of(s))), strings.Join(names, ", "))
}
