// Package structure holds a sparse map from voxel coordinates to block descriptors along
// with the running bounds needed to tile it.
package structure

import (
	"fmt"

	"github.com/blang/semver"

	"github.com/janelia-flyem/schemgen/blocks"
	"github.com/janelia-flyem/schemgen/schemgen"
	"github.com/janelia-flyem/schemgen/volume"
)

const (
	coordBits = 21

	// MaxCoord is one past the largest coordinate that can be stored on any axis.
	MaxCoord = 1 << coordBits

	coordMask = MaxCoord - 1
)

// removed marks an arena slot whose voxel was cleared.
const removed = ^uint32(0)

func packKey(p schemgen.Point3d) uint64 {
	return uint64(p[0])<<(2*coordBits) | uint64(p[1])<<coordBits | uint64(p[2])
}

func unpackKey(k uint64) schemgen.Point3d {
	return schemgen.Point3d{
		int32(k >> (2 * coordBits)),
		int32((k >> coordBits) & coordMask),
		int32(k & coordMask),
	}
}

// Structure is a sparse voxel store.  Only non-air voxels are kept and iteration follows
// first-insertion order; overwriting a voxel keeps its original position.  A Structure
// is not safe for concurrent mutation.
type Structure struct {
	platform string
	version  semver.Version

	// arena of voxels in insertion order
	keys []uint64
	ids  []uint32

	index map[uint64]int // packed key -> arena slot

	descs     []blocks.Descriptor
	descIndex map[string]uint32 // Descriptor.ID() -> id

	numVoxels int
	maxPoint  schemgen.Point3d
	hasBounds bool
}

// New returns an empty structure tagged with the given platform and version.
func New(platform string, version semver.Version) *Structure {
	if platform == "" {
		platform = DefaultPlatform
	}
	return &Structure{
		platform:  platform,
		version:   version,
		index:     make(map[uint64]int),
		descIndex: make(map[string]uint32),
	}
}

func (s *Structure) Platform() string { return s.platform }

func (s *Structure) Version() semver.Version { return s.version }

func checkPoint(p schemgen.Point3d) error {
	for i := 0; i < 3; i++ {
		if p[i] < 0 || p[i] >= MaxCoord {
			return fmt.Errorf("voxel %s outside storable range [0,%d): %w", p, MaxCoord, schemgen.ErrInvalidArgument)
		}
	}
	return nil
}

func (s *Structure) descID(b blocks.Descriptor) uint32 {
	key := b.ID()
	if id, found := s.descIndex[key]; found {
		return id
	}
	id := uint32(len(s.descs))
	s.descs = append(s.descs, b)
	s.descIndex[key] = id
	return id
}

// put stores the voxel without touching bounds and returns true if a voxel was stored.
func (s *Structure) put(p schemgen.Point3d, b blocks.Descriptor) bool {
	key := packKey(p)
	slot, found := s.index[key]
	if b.IsAir() {
		if found && s.ids[slot] != removed {
			s.ids[slot] = removed
			s.numVoxels--
		}
		return false
	}
	id := s.descID(b)
	if found {
		if s.ids[slot] == removed {
			s.numVoxels++
		}
		s.ids[slot] = id
		return true
	}
	s.index[key] = len(s.keys)
	s.keys = append(s.keys, key)
	s.ids = append(s.ids, id)
	s.numVoxels++
	return true
}

func (s *Structure) extend(p schemgen.Point3d) {
	if !s.hasBounds {
		s.maxPoint = p
		s.hasBounds = true
		return
	}
	s.maxPoint.SetMaximum(p)
}

// Set stores the block at p, overwriting any previous block.  Setting Air clears a
// stored voxel but never shrinks the bounds.
func (s *Structure) Set(p schemgen.Point3d, b blocks.Descriptor) error {
	if err := checkPoint(p); err != nil {
		return err
	}
	if b.IsZero() {
		return fmt.Errorf("cannot store uninitialized block descriptor at %s: %w", p, schemgen.ErrInvalidArgument)
	}
	if s.put(p, b) {
		s.extend(p)
	}
	return nil
}

// Get returns the block at p or Air if nothing is stored there.
func (s *Structure) Get(p schemgen.Point3d) blocks.Descriptor {
	if checkPoint(p) != nil {
		return blocks.Air
	}
	slot, found := s.index[packKey(p)]
	if !found || s.ids[slot] == removed {
		return blocks.Air
	}
	return s.descs[s.ids[slot]]
}

// AddLayer stores the block at every true voxel of the mask.  The mask is indexed in
// target space so mask coordinates are used directly.
func (s *Structure) AddLayer(mask *volume.Mask, b blocks.Descriptor) error {
	if mask == nil {
		return fmt.Errorf("nil mask: %w", schemgen.ErrInvalidArgument)
	}
	if b.IsZero() {
		return fmt.Errorf("cannot add layer of uninitialized block descriptor: %w", schemgen.ErrInvalidArgument)
	}
	if mask.Size[0] > MaxCoord || mask.Size[1] > MaxCoord || mask.Size[2] > MaxCoord {
		return fmt.Errorf("mask size %s exceeds storable range: %w", mask.Size, schemgen.ErrInvalidArgument)
	}
	var layerMax schemgen.Point3d
	var stored bool
	mask.ForEach(func(p schemgen.Point3d) error {
		if s.put(p, b) {
			if stored {
				layerMax.SetMaximum(p)
			} else {
				layerMax = p
				stored = true
			}
		}
		return nil
	})
	if stored {
		s.extend(layerMax)
	}
	return nil
}

// AddLayerSpec is AddLayer with the block given as "namespace:name[props]".
func (s *Structure) AddLayerSpec(mask *volume.Mask, spec string) error {
	b, err := blocks.Parse(spec)
	if err != nil {
		return err
	}
	return s.AddLayer(mask, b)
}

// Bounds returns the largest coordinate on each axis ever stored.  The boolean is false
// for a structure that never held a voxel.
func (s *Structure) Bounds() (max schemgen.Point3d, ok bool) {
	return s.maxPoint, s.hasBounds
}

// VolumeSize returns the size of the box from the origin through the bounds, or (0,0,0)
// for a structure that never held a voxel.
func (s *Structure) VolumeSize() schemgen.Point3d {
	if !s.hasBounds {
		return schemgen.Point3d{}
	}
	return s.maxPoint.AddScalar(1)
}

// NumVoxels returns the number of stored voxels.
func (s *Structure) NumVoxels() int {
	return s.numVoxels
}

// ForEach calls fn for every stored voxel in insertion order, stopping at the first error.
func (s *Structure) ForEach(fn func(p schemgen.Point3d, b blocks.Descriptor) error) error {
	for slot, key := range s.keys {
		id := s.ids[slot]
		if id == removed {
			continue
		}
		if err := fn(unpackKey(key), s.descs[id]); err != nil {
			return err
		}
	}
	return nil
}

// ForEachInRegion is ForEach restricted to voxels within the half-open box [min, max).
func (s *Structure) ForEachInRegion(min, max schemgen.Point3d, fn func(p schemgen.Point3d, b blocks.Descriptor) error) error {
	return s.ForEach(func(p schemgen.Point3d, b blocks.Descriptor) error {
		if !p.Contains(min, max) {
			return nil
		}
		return fn(p, b)
	})
}

// Blocks returns the distinct stored descriptors in first-seen order.
func (s *Structure) Blocks() []blocks.Descriptor {
	seen := make([]bool, len(s.descs))
	var out []blocks.Descriptor
	for _, id := range s.ids {
		if id == removed || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, s.descs[id])
	}
	return out
}
