package structure

import (
	"github.com/janelia-flyem/schemgen/blocks"
	"github.com/janelia-flyem/schemgen/schemgen"
)

// SplitByBlock partitions the voxels into one structure per block, keyed by the block's
// "namespace:name".  Blocks that differ only in properties share a partition.  Each
// partition keeps the platform and version of the receiver.
func (s *Structure) SplitByBlock() map[string]*Structure {
	parts := make(map[string]*Structure)
	s.ForEach(func(p schemgen.Point3d, b blocks.Descriptor) error {
		name := b.String()
		part, found := parts[name]
		if !found {
			part = New(s.platform, s.version)
			parts[name] = part
		}
		if part.put(p, b) {
			part.extend(p)
		}
		return nil
	})
	return parts
}
