// Package sdf voxelizes triangulated surfaces by sampling a signed distance field on a
// regular lattice and thresholding it.
package sdf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/janelia-flyem/schemgen/schemgen"
)

// Mesh is a polygonal surface.  Each face lists vertex indices and may have three or more
// vertices; faces are fan-triangulated before distances are computed.
type Mesh struct {
	Vertices []r3.Vec
	Faces    [][]int
}

// Triangle is a single mesh triangle in counter-clockwise order when seen from outside.
type Triangle [3]r3.Vec

// Triangulate fans every face into triangles.  Faces with fewer than three vertices or with
// out-of-range indices produce an error.
func (m *Mesh) Triangulate() ([]Triangle, error) {
	var tris []Triangle
	for fi, f := range m.Faces {
		if len(f) < 3 {
			return nil, fmt.Errorf("face %d has %d vertices: %w", fi, len(f), schemgen.ErrInvalidArgument)
		}
		for _, vi := range f {
			if vi < 0 || vi >= len(m.Vertices) {
				return nil, fmt.Errorf("face %d references vertex %d of %d: %w", fi, vi, len(m.Vertices), schemgen.ErrInvalidArgument)
			}
		}
		for i := 1; i+1 < len(f); i++ {
			tris = append(tris, Triangle{m.Vertices[f[0]], m.Vertices[f[i]], m.Vertices[f[i+1]]})
		}
	}
	return tris, nil
}

// Bounds returns the axis-aligned bounding box of the vertices referenced by faces.
func (m *Mesh) Bounds() r3.Box {
	inf := math.Inf(1)
	b := r3.Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
	for _, f := range m.Faces {
		for _, vi := range f {
			if vi < 0 || vi >= len(m.Vertices) {
				continue
			}
			v := m.Vertices[vi]
			b.Min.X, b.Max.X = math.Min(b.Min.X, v.X), math.Max(b.Max.X, v.X)
			b.Min.Y, b.Max.Y = math.Min(b.Min.Y, v.Y), math.Max(b.Max.Y, v.Y)
			b.Min.Z, b.Max.Z = math.Min(b.Min.Z, v.Z), math.Max(b.Max.Z, v.Z)
		}
	}
	return b
}

// Box returns a closed axis-aligned box mesh with outward-facing quads spanning [min, max].
func Box(min, max r3.Vec) *Mesh {
	v := []r3.Vec{
		{X: min.X, Y: min.Y, Z: min.Z},
		{X: max.X, Y: min.Y, Z: min.Z},
		{X: max.X, Y: max.Y, Z: min.Z},
		{X: min.X, Y: max.Y, Z: min.Z},
		{X: min.X, Y: min.Y, Z: max.Z},
		{X: max.X, Y: min.Y, Z: max.Z},
		{X: max.X, Y: max.Y, Z: max.Z},
		{X: min.X, Y: max.Y, Z: max.Z},
	}
	faces := [][]int{
		{0, 3, 2, 1}, // -z
		{4, 5, 6, 7}, // +z
		{0, 1, 5, 4}, // -y
		{3, 7, 6, 2}, // +y
		{0, 4, 7, 3}, // -x
		{1, 2, 6, 5}, // +x
	}
	return &Mesh{Vertices: v, Faces: faces}
}
