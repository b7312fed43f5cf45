package volume

import (
	"math/bits"

	"github.com/janelia-flyem/schemgen/schemgen"
)

// Mask is a dense boolean volume in target voxel space, indexed (x, y, z) where x runs
// west to east, y bottom to top and z north to south.  Bits are packed so that
// z varies fastest, then y, then x.
type Mask struct {
	Size schemgen.Point3d
	bits []uint64
}

// NewMask returns an empty mask of the given size.
func NewMask(size schemgen.Point3d) *Mask {
	n := size.Prod()
	if n < 0 {
		n = 0
	}
	return &Mask{Size: size, bits: make([]uint64, (n+63)/64)}
}

func (m *Mask) index(x, y, z int32) int64 {
	return (int64(x)*int64(m.Size[1])+int64(y))*int64(m.Size[2]) + int64(z)
}

func (m *Mask) inside(x, y, z int32) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < m.Size[0] && y < m.Size[1] && z < m.Size[2]
}

// Get returns the value at (x, y, z).  Points outside the mask are false.
func (m *Mask) Get(x, y, z int32) bool {
	if !m.inside(x, y, z) {
		return false
	}
	i := m.index(x, y, z)
	return m.bits[i>>6]&(1<<uint(i&63)) != 0
}

// Set sets the value at (x, y, z).  Points outside the mask are ignored.
func (m *Mask) Set(x, y, z int32, on bool) {
	if !m.inside(x, y, z) {
		return
	}
	i := m.index(x, y, z)
	if on {
		m.bits[i>>6] |= 1 << uint(i&63)
	} else {
		m.bits[i>>6] &^= 1 << uint(i&63)
	}
}

// SetBox turns on every voxel within the half-open box [min, max).
func (m *Mask) SetBox(min, max schemgen.Point3d) {
	for x := min[0]; x < max[0]; x++ {
		for y := min[1]; y < max[1]; y++ {
			for z := min[2]; z < max[2]; z++ {
				m.Set(x, y, z, true)
			}
		}
	}
}

// Count returns the number of true voxels.
func (m *Mask) Count() int {
	n := 0
	for _, w := range m.bits {
		n += bits.OnesCount64(w)
	}
	return n
}

// ForEach calls fn for every true voxel in x, then y, then z order with z varying
// fastest.  Iteration stops at the first error.
func (m *Mask) ForEach(fn func(p schemgen.Point3d) error) error {
	nyz := int64(m.Size[1]) * int64(m.Size[2])
	for wi, w := range m.bits {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			w &= w - 1
			i := int64(wi)*64 + int64(b)
			x := i / nyz
			rem := i % nyz
			p := schemgen.Point3d{int32(x), int32(rem / int64(m.Size[2])), int32(rem % int64(m.Size[2]))}
			if err := fn(p); err != nil {
				return err
			}
		}
	}
	return nil
}
