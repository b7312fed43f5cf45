package volume

import (
	"fmt"

	"github.com/janelia-flyem/schemgen/schemgen"
)

// ToMask converts an array in (depth, row, column[, channel]) order into a mask in target
// voxel space.  A trailing channel axis is summed first.  The column axis becomes the
// first target axis while depth and row keep their relative order, so the mask is
// indexed (column, depth, row).  A cell is true if it equals *trueValue or, when
// trueValue is nil, if it is non-zero.
func ToMask(a *Array, trueValue *float64) (*Mask, error) {
	if a == nil {
		return nil, fmt.Errorf("nil array passed to ToMask: %w", schemgen.ErrInvalidArgument)
	}
	if err := a.check(); err != nil {
		return nil, err
	}
	nd, nr, nc := a.Shape[0], a.Shape[1], a.Shape[2]
	nch := 1
	if a.Rank() == 4 {
		nch = a.Shape[3]
	}
	m := NewMask(schemgen.Point3d{int32(nc), int32(nd), int32(nr)})
	i := 0
	for d := 0; d < nd; d++ {
		for r := 0; r < nr; r++ {
			for c := 0; c < nc; c++ {
				var v float64
				for ch := 0; ch < nch; ch++ {
					v += a.Data[i]
					i++
				}
				var on bool
				if trueValue != nil {
					on = v == *trueValue
				} else {
					on = v != 0
				}
				if on {
					m.Set(int32(c), int32(d), int32(r), true)
				}
			}
		}
	}
	return m, nil
}
