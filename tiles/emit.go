package tiles

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/janelia-flyem/schemgen/schemgen"
	"github.com/janelia-flyem/schemgen/structure"
)

// Encoder serializes a tile into a binary layout.
type Encoder interface {
	Encode(w io.Writer, t *Tile) error

	// Ext returns the file extension, including the leading dot, for encoded tiles.
	Ext() string
}

// Stats summarizes a call to Emit.
type Stats struct {
	Tiles  int
	Voxels int
	Bytes  int64
}

// Emit tiles the structure, encodes every tile and writes each to the sink as
// "{base}_{ix}_{iy}_{iz}{ext}".  Tiles are encoded in parallel.  The structure must not be
// modified during the call.
func Emit(ctx context.Context, s *structure.Structure, tiler *Tiler, enc Encoder, sink Sink, base string) (Stats, error) {
	timedLog := schemgen.NewTimeLog()
	tiles := tiler.Tiles(s)

	var nbytes int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(schemgen.NumCPU)
	for _, tile := range tiles {
		tile := tile
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := enc.Encode(&buf, tile); err != nil {
				return err
			}
			name := TileName(base, tile.Index) + enc.Ext()
			if err := sink.Put(gctx, name, buf.Bytes()); err != nil {
				return err
			}
			atomic.AddInt64(&nbytes, int64(buf.Len()))
			schemgen.Debugf("Wrote tile %s: size %s, %d blocks, %d palette entries\n",
				name, tile.Size, len(tile.Blocks), tile.Palette.Len())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	stats := Stats{Tiles: len(tiles), Voxels: s.NumVoxels(), Bytes: nbytes}
	timedLog.Infof("Wrote %d tiles of %d voxels (%s) with base name %q",
		stats.Tiles, stats.Voxels, humanize.Bytes(uint64(stats.Bytes)), base)
	return stats, nil
}
