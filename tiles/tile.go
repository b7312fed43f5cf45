// Package tiles cuts a structure into size-bounded tiles with per-tile palettes and
// encodes them for output.
package tiles

import (
	"fmt"

	"github.com/janelia-flyem/schemgen/blocks"
	"github.com/janelia-flyem/schemgen/schemgen"
	"github.com/janelia-flyem/schemgen/structure"
)

// DefaultMaxSize is the largest tile edge accepted by structure blocks.
const DefaultMaxSize = 48

// Record is a single non-air voxel within a tile.
type Record struct {
	State uint32           // palette index
	Pos   schemgen.Point3d // position relative to the tile origin
}

// Tile is one cell of the tiling grid.
type Tile struct {
	Index   schemgen.ChunkPoint3d
	Origin  schemgen.Point3d
	Size    schemgen.Point3d
	Palette *blocks.Palette
	Blocks  []Record
}

// Descriptor returns the block for a record of this tile.
func (t *Tile) Descriptor(r Record) blocks.Descriptor {
	return t.Palette.At(r.State)
}

// Tiler cuts structures into tiles no larger than MaxSize on any axis.
type Tiler struct {
	MaxSize int32
}

// NewTiler returns a tiler for the given maximum tile edge.
func NewTiler(maxSize int) (*Tiler, error) {
	if maxSize < 1 || maxSize >= structure.MaxCoord {
		return nil, fmt.Errorf("tile size must be in [1,%d), got %d: %w", structure.MaxCoord, maxSize, schemgen.ErrInvalidArgument)
	}
	return &Tiler{MaxSize: int32(maxSize)}, nil
}

func (t *Tiler) chunkSize() schemgen.Point3d {
	return schemgen.Point3d{t.MaxSize, t.MaxSize, t.MaxSize}
}

// Grid returns the number of tiles along each axis needed to cover a volume of the
// given size.
func (t *Tiler) Grid(size schemgen.Point3d) schemgen.Point3d {
	var g schemgen.Point3d
	for i := 0; i < 3; i++ {
		g[i] = (size[i] + t.MaxSize - 1) / t.MaxSize
	}
	return g
}

// Tiles returns every tile of the structure's grid, ordered by x tile index, then y,
// then z.  Tiles without voxels are included.  Records within a tile keep the
// structure's iteration order.
func (t *Tiler) Tiles(s *structure.Structure) []*Tile {
	size := s.VolumeSize()
	grid := t.Grid(size)
	chunk := t.chunkSize()
	out := make([]*Tile, 0, grid.Prod())
	for ix := int32(0); ix < grid[0]; ix++ {
		for iy := int32(0); iy < grid[1]; iy++ {
			for iz := int32(0); iz < grid[2]; iz++ {
				idx := schemgen.ChunkPoint3d{ix, iy, iz}
				origin := idx.MinPoint(chunk)
				end := origin.Add(chunk)
				end.SetMinimum(size)
				out = append(out, &Tile{
					Index:   idx,
					Origin:  origin,
					Size:    end.Sub(origin),
					Palette: blocks.NewPalette(),
				})
			}
		}
	}
	s.ForEach(func(p schemgen.Point3d, b blocks.Descriptor) error {
		c := p.Chunk(chunk)
		tile := out[(int64(c[0])*int64(grid[1])+int64(c[1]))*int64(grid[2])+int64(c[2])]
		state, _ := tile.Palette.Index(b)
		tile.Blocks = append(tile.Blocks, Record{State: state, Pos: p.PointInChunk(chunk)})
		return nil
	})
	return out
}

// TileName returns the object name, without extension, of the tile at idx.
func TileName(base string, idx schemgen.ChunkPoint3d) string {
	return fmt.Sprintf("%s_%d_%d_%d", base, idx[0], idx[1], idx[2])
}
