package schemgen

import (
	"fmt"
	"strconv"
	"strings"
)

// Point3d is an ordered list of three 32-bit signed integers giving a voxel coordinate.
type Point3d [3]int32

// SetMinimum sets the point to the minimum elements of current and passed points.
func (p *Point3d) SetMinimum(p2 Point3d) {
	if p[0] > p2[0] {
		p[0] = p2[0]
	}
	if p[1] > p2[1] {
		p[1] = p2[1]
	}
	if p[2] > p2[2] {
		p[2] = p2[2]
	}
}

// SetMaximum sets the point to the maximum elements of current and passed points.
func (p *Point3d) SetMaximum(p2 Point3d) {
	if p[0] < p2[0] {
		p[0] = p2[0]
	}
	if p[1] < p2[1] {
		p[1] = p2[1]
	}
	if p[2] < p2[2] {
		p[2] = p2[2]
	}
}

// Add returns the addition of two points.
func (p Point3d) Add(p2 Point3d) Point3d {
	return Point3d{p[0] + p2[0], p[1] + p2[1], p[2] + p2[2]}
}

// Sub returns the subtraction of the passed point from the receiver.
func (p Point3d) Sub(p2 Point3d) Point3d {
	return Point3d{p[0] - p2[0], p[1] - p2[1], p[2] - p2[2]}
}

// AddScalar adds a scalar value to each element of the point.
func (p Point3d) AddScalar(value int32) Point3d {
	return Point3d{p[0] + value, p[1] + value, p[2] + value}
}

// Prod returns the product of the point elements.
func (p Point3d) Prod() int64 {
	return int64(p[0]) * int64(p[1]) * int64(p[2])
}

// Contains returns true if the point is within the half-open box [min, max).
func (p Point3d) Contains(min, max Point3d) bool {
	return p[0] >= min[0] && p[0] < max[0] &&
		p[1] >= min[1] && p[1] < max[1] &&
		p[2] >= min[2] && p[2] < max[2]
}

func (p Point3d) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p[0], p[1], p[2])
}

// Chunk returns the chunk space coordinate of the chunk containing the point.
// Only non-negative points are expected in voxel space.
func (p Point3d) Chunk(size Point3d) ChunkPoint3d {
	return ChunkPoint3d{p[0] / size[0], p[1] / size[1], p[2] / size[2]}
}

// PointInChunk returns a point in containing chunk space for the given point.
func (p Point3d) PointInChunk(size Point3d) Point3d {
	return Point3d{p[0] % size[0], p[1] % size[1], p[2] % size[2]}
}

// StringToPoint3d parses a string of format "%d<sep>%d<sep>%d" into a Point3d.
func StringToPoint3d(str, separator string) (Point3d, error) {
	elems := strings.Split(str, separator)
	if len(elems) != 3 {
		return Point3d{}, fmt.Errorf("cannot convert %q into a 3d point: %w", str, ErrInvalidArgument)
	}
	var p Point3d
	for i, elem := range elems {
		v, err := strconv.ParseInt(strings.TrimSpace(elem), 10, 32)
		if err != nil {
			return Point3d{}, fmt.Errorf("cannot parse %q in point %q: %w", elem, str, ErrInvalidArgument)
		}
		p[i] = int32(v)
	}
	return p, nil
}

// ChunkPoint3d handles 3d chunk coordinates, e.g., the index of a tile in tile space.
type ChunkPoint3d [3]int32

func (c ChunkPoint3d) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c[0], c[1], c[2])
}

// MinPoint returns the minimum voxel point within a chunk of the given size.
func (c ChunkPoint3d) MinPoint(size Point3d) Point3d {
	return Point3d{c[0] * size[0], c[1] * size[1], c[2] * size[2]}
}
