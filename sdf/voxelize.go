package sdf

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/janelia-flyem/schemgen/schemgen"
	"github.com/janelia-flyem/schemgen/volume"
)

// Options control how a mesh is sampled.  Nil entries of Origin and Size fall back to the
// mesh bounds on that axis.
type Options struct {
	Spacing    r3.Vec
	Origin     [3]*float64
	Size       [3]*float64
	IgnoreClip bool
	Fill       bool
	Edge       EdgeMode
}

// NewSpacing returns an isotropic spacing.
func NewSpacing(s float64) r3.Vec {
	return r3.Vec{X: s, Y: s, Z: s}
}

// ClipError is returned when the sampling region does not contain the whole mesh.
type ClipError struct {
	Origin, Size r3.Vec
	Min, Max     r3.Vec // mesh bounds
	Upper        bool   // true if the mesh extends past origin + size
}

func (e *ClipError) Error() string {
	if e.Upper {
		return fmt.Sprintf("origin + size %v must be >= mesh maximum bounds %v; set ignore_clip to override",
			r3.Add(e.Origin, e.Size), e.Max)
	}
	return fmt.Sprintf("origin %v must be <= mesh minimum bounds %v; set ignore_clip to override", e.Origin, e.Min)
}

func (e *ClipError) Unwrap() error {
	return schemgen.ErrOutOfRange
}

func vecAt(v r3.Vec, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func setVecAt(v *r3.Vec, i int, f float64) {
	switch i {
	case 0:
		v.X = f
	case 1:
		v.Y = f
	default:
		v.Z = f
	}
}

func (opts Options) validate() error {
	for i := 0; i < 3; i++ {
		s := vecAt(opts.Spacing, i)
		if !(s > 0) || math.IsInf(s, 0) {
			return fmt.Errorf("spacing must be positive on every axis, got %v: %w", opts.Spacing, schemgen.ErrInvalidArgument)
		}
	}
	if opts.Edge > Outer {
		return fmt.Errorf("bad edge mode %d: %w", opts.Edge, schemgen.ErrInvalidArgument)
	}
	return nil
}

// region returns the lattice origin and extent after applying per-axis overrides.
func (opts Options) region(bounds r3.Box) (origin, size r3.Vec) {
	origin = bounds.Min
	for i := 0; i < 3; i++ {
		if opts.Origin[i] != nil {
			setVecAt(&origin, i, *opts.Origin[i])
		}
	}
	size = r3.Sub(bounds.Max, origin)
	for i := 0; i < 3; i++ {
		if opts.Size[i] != nil {
			setVecAt(&size, i, *opts.Size[i])
		}
	}
	return
}

// SampleGrid evaluates the signed distance of the mesh surface at every lattice point of
// the sampling region.  The lattice includes both endpoints of the region on every axis.
func SampleGrid(ctx context.Context, m *Mesh, opts Options) (*Grid, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	tris, err := m.Triangulate()
	if err != nil {
		return nil, err
	}
	if len(tris) == 0 {
		return nil, fmt.Errorf("mesh has no faces: %w", schemgen.ErrInvalidArgument)
	}
	bounds := m.Bounds()
	origin, size := opts.region(bounds)
	if !opts.IgnoreClip {
		for i := 0; i < 3; i++ {
			o, s := vecAt(origin, i), vecAt(size, i)
			if vecAt(bounds.Min, i) < o {
				return nil, &ClipError{Origin: origin, Size: size, Min: bounds.Min, Max: bounds.Max}
			}
			if vecAt(bounds.Max, i) > o+s {
				return nil, &ClipError{Origin: origin, Size: size, Min: bounds.Min, Max: bounds.Max, Upper: true}
			}
		}
	}
	var dims [3]int
	for i := 0; i < 3; i++ {
		n := int(math.Ceil(vecAt(size, i)/vecAt(opts.Spacing, i))) + 1
		if n < 1 {
			n = 1
		}
		dims[i] = n
	}
	grid := newGrid(dims, origin, opts.Spacing)

	timedLog := schemgen.NewTimeLog()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(schemgen.NumCPU)
	for k := 0; k < dims[2]; k++ {
		k := k
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slab := grid.Values[k*dims[0]*dims[1] : (k+1)*dims[0]*dims[1]]
			for j := 0; j < dims[1]; j++ {
				for i := 0; i < dims[0]; i++ {
					slab[j*dims[0]+i] = signedDistance(grid.Point(i, j, k), tris)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	timedLog.Debugf("Sampled %d x %d x %d distance lattice against %d triangles", dims[0], dims[1], dims[2], len(tris))
	return grid, nil
}

// Voxelize samples the mesh and returns an occupancy volume with shape (nz, ny, nx), i.e.,
// in (depth, row, column) order.
func Voxelize(ctx context.Context, m *Mesh, opts Options) (*volume.Array, error) {
	grid, err := SampleGrid(ctx, m, opts)
	if err != nil {
		return nil, err
	}
	occ, err := grid.Threshold(opts.Edge, opts.Fill)
	if err != nil {
		return nil, err
	}
	arr, err := volume.NewArray(grid.Dims[2], grid.Dims[1], grid.Dims[0])
	if err != nil {
		return nil, err
	}
	for i, v := range occ {
		arr.Data[i] = float64(v)
	}
	return arr, nil
}

// VoxelizeMask voxelizes the mesh directly into target voxel space.
func VoxelizeMask(ctx context.Context, m *Mesh, opts Options) (*volume.Mask, error) {
	arr, err := Voxelize(ctx, m, opts)
	if err != nil {
		return nil, err
	}
	return volume.ToMask(arr, nil)
}
