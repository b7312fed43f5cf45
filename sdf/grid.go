package sdf

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/janelia-flyem/schemgen/schemgen"
)

// EdgeMode selects which lattice points near the surface are kept.
type EdgeMode uint8

const (
	// Center keeps points whose distance to the surface is at most half the voxel diagonal.
	Center EdgeMode = iota

	// Inner keeps points on or just inside the surface.
	Inner

	// Outer keeps points on or just outside the surface.
	Outer
)

// edgeEpsilon widens the inner and outer bands as a fraction of the voxel diagonal.
const edgeEpsilon = 0.1

func (e EdgeMode) String() string {
	switch e {
	case Center:
		return "center"
	case Inner:
		return "inner"
	case Outer:
		return "outer"
	default:
		return fmt.Sprintf("unknown edge mode %d", e)
	}
}

// ParseEdgeMode returns the edge mode for "center", "inner" or "outer".
func ParseEdgeMode(s string) (EdgeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "center", "":
		return Center, nil
	case "inner":
		return Inner, nil
	case "outer":
		return Outer, nil
	default:
		return Center, fmt.Errorf("edge mode must be one of center, inner, outer; got %q: %w", s, schemgen.ErrInvalidArgument)
	}
}

// Grid is a regular lattice of signed distances.  Values are stored with x varying
// fastest, then y, then z.
type Grid struct {
	Dims    [3]int // number of samples along x, y, z
	Origin  r3.Vec
	Spacing r3.Vec
	Values  []float64
}

func newGrid(dims [3]int, origin, spacing r3.Vec) *Grid {
	return &Grid{
		Dims:    dims,
		Origin:  origin,
		Spacing: spacing,
		Values:  make([]float64, dims[0]*dims[1]*dims[2]),
	}
}

// Point returns the sample position of lattice index (i, j, k).
func (g *Grid) Point(i, j, k int) r3.Vec {
	return r3.Vec{
		X: g.Origin.X + float64(i)*g.Spacing.X,
		Y: g.Origin.Y + float64(j)*g.Spacing.Y,
		Z: g.Origin.Z + float64(k)*g.Spacing.Z,
	}
}

// At returns the signed distance at lattice index (i, j, k).
func (g *Grid) At(i, j, k int) float64 {
	return g.Values[(k*g.Dims[1]+j)*g.Dims[0]+i]
}

// Diagonal returns the length of a voxel diagonal.
func (g *Grid) Diagonal() float64 {
	return r3.Norm(g.Spacing)
}

// Threshold returns a 0/1 occupancy value per sample in the same order as Values.
// With fill set, every sample strictly inside the surface is also kept.
func (g *Grid) Threshold(edge EdgeMode, fill bool) ([]uint8, error) {
	d := g.Diagonal()
	var keep func(v float64) bool
	switch edge {
	case Center:
		keep = func(v float64) bool { return math.Abs(v) <= d*0.5 }
	case Inner:
		keep = func(v float64) bool { return v <= 0 && v >= -d*(0.5+edgeEpsilon) }
	case Outer:
		keep = func(v float64) bool { return v >= 0 && v <= d*(0.5+edgeEpsilon) }
	default:
		return nil, fmt.Errorf("bad edge mode %d: %w", edge, schemgen.ErrInvalidArgument)
	}
	out := make([]uint8, len(g.Values))
	for i, v := range g.Values {
		if keep(v) || (fill && v < 0) {
			out[i] = 1
		}
	}
	return out, nil
}
