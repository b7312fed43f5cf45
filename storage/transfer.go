package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/twinj/uuid"

	"github.com/janelia-flyem/schemgen/blocks"
	"github.com/janelia-flyem/schemgen/schemgen"
	"github.com/janelia-flyem/schemgen/structure"
)

// WriteBatchSize is the number of voxels sent to a container per PutVoxels call.
const WriteBatchSize = 10000

// ReadInto adds every non-air voxel of the container to the structure and returns the
// number of voxels added.  The container's metadata size, when present, limits the
// region read.
func ReadInto(c Container, s *structure.Structure) (int, error) {
	max := schemgen.Point3d{structure.MaxCoord, structure.MaxCoord, structure.MaxCoord}
	m, err := c.GetMetadata()
	switch {
	case err == nil:
		max = m.Size
	case errors.Is(err, schemgen.ErrNotFound):
	default:
		return 0, err
	}
	timedLog := schemgen.NewTimeLog()
	var n int
	err = c.ForEachVoxel(schemgen.Point3d{}, max, func(v Voxel) error {
		if v.Block.IsAir() {
			return nil
		}
		n++
		return s.Set(v.Pos, v.Block)
	})
	if err != nil {
		return n, fmt.Errorf("reading voxels from %s: %w", c, err)
	}
	timedLog.Infof("Read %d voxels from %s", n, c)
	return n, nil
}

// WriteStructure replaces the container contents with the voxels of the structure and
// records its size, platform and version under a new UUID.
func WriteStructure(c Container, s *structure.Structure) (*Metadata, error) {
	timedLog := schemgen.NewTimeLog()
	if err := c.DeleteAll(); err != nil {
		return nil, fmt.Errorf("clearing %s: %w", c, err)
	}
	batch := make([]Voxel, 0, WriteBatchSize)
	err := s.ForEach(func(p schemgen.Point3d, b blocks.Descriptor) error {
		batch = append(batch, Voxel{Pos: p, Block: b})
		if len(batch) == WriteBatchSize {
			if err := c.PutVoxels(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing voxels to %s: %w", c, err)
	}
	if len(batch) > 0 {
		if err := c.PutVoxels(batch); err != nil {
			return nil, fmt.Errorf("writing voxels to %s: %w", c, err)
		}
	}
	m := &Metadata{
		UUID:      fmt.Sprintf("%x", uuid.NewV4().Bytes()),
		Platform:  s.Platform(),
		Version:   s.Version(),
		Size:      s.VolumeSize(),
		NumVoxels: int64(s.NumVoxels()),
		Created:   time.Now(),
	}
	if err := c.PutMetadata(m); err != nil {
		return nil, err
	}
	timedLog.Infof("Wrote %d voxels to %s as %s", m.NumVoxels, c, m.UUID)
	return m, nil
}
