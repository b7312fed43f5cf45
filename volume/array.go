// Package volume holds dense volumes in the external (depth, row, column) convention and
// boolean masks in target voxel space, plus the axis mapping between the two.
package volume

import (
	"fmt"
	"io"

	"github.com/janelia-flyem/schemgen/schemgen"
)

// Array is a dense C-order volume with shape (depth, row, column) or
// (depth, row, column, channel).
type Array struct {
	Shape []int
	Data  []float64
}

// NewArray returns a zeroed array of the given shape.
func NewArray(shape ...int) (*Array, error) {
	n, err := numElements(shape)
	if err != nil {
		return nil, err
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return &Array{Shape: s, Data: make([]float64, n)}, nil
}

func numElements(shape []int) (int, error) {
	if len(shape) != 3 && len(shape) != 4 {
		return 0, fmt.Errorf("volume must have 3 or 4 axes, got shape %v: %w", shape, schemgen.ErrInvalidArgument)
	}
	n := 1
	for _, s := range shape {
		if s < 0 {
			return 0, fmt.Errorf("negative dimension in shape %v: %w", shape, schemgen.ErrInvalidArgument)
		}
		n *= s
	}
	return n, nil
}

// Rank returns the number of axes.
func (a *Array) Rank() int {
	return len(a.Shape)
}

func (a *Array) offset(idx []int) int {
	off := 0
	for i, v := range idx {
		off = off*a.Shape[i] + v
	}
	return off
}

// At returns the value at the given index, which must have one entry per axis.
func (a *Array) At(idx ...int) float64 {
	return a.Data[a.offset(idx)]
}

// Set sets the value at the given index.
func (a *Array) Set(v float64, idx ...int) {
	a.Data[a.offset(idx)] = v
}

// Fill sets every cell within [lo, hi) on the first three axes (and all channels) to v.
func (a *Array) Fill(v float64, lo, hi [3]int) {
	nc := 1
	if len(a.Shape) == 4 {
		nc = a.Shape[3]
	}
	for d := lo[0]; d < hi[0]; d++ {
		for r := lo[1]; r < hi[1]; r++ {
			for c := lo[2]; c < hi[2]; c++ {
				base := ((d*a.Shape[1])+r)*a.Shape[2] + c
				for ch := 0; ch < nc; ch++ {
					a.Data[base*nc+ch] = v
				}
			}
		}
	}
}

func (a *Array) check() error {
	n, err := numElements(a.Shape)
	if err != nil {
		return err
	}
	if n != len(a.Data) {
		return fmt.Errorf("shape %v needs %d values but array has %d: %w", a.Shape, n, len(a.Data), schemgen.ErrInvalidArgument)
	}
	return nil
}

// ReadRaw reads an uncompressed uint8 volume in C order with the given shape, i.e., the
// raw layout of a (depth, row, column[, channel]) image stack.
func ReadRaw(r io.Reader, shape []int) (*Array, error) {
	a, err := NewArray(shape...)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, len(a.Data))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("unable to read %d voxels of raw volume with shape %v: %v", len(buf), shape, err)
	}
	for i, b := range buf {
		a.Data[i] = float64(b)
	}
	return a, nil
}
