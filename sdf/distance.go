package sdf

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// closestPoint returns the point on triangle t nearest to p using the Voronoi region
// tests from Ericson, Real-Time Collision Detection, 5.1.5.
func closestPoint(p r3.Vec, t Triangle) r3.Vec {
	a, b, c := t[0], t[1], t[2]
	ab, ac, ap := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(p, a)
	d1, d2 := r3.Dot(ab, ap), r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}
	bp := r3.Sub(p, b)
	d3, d4 := r3.Dot(ab, bp), r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return r3.Add(a, r3.Scale(d1/(d1-d3), ab))
	}
	cp := r3.Sub(p, c)
	d5, d6 := r3.Dot(ab, cp), r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return r3.Add(a, r3.Scale(d2/(d2-d6), ac))
	}
	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return r3.Add(b, r3.Scale(w, r3.Sub(c, b)))
	}
	sum := va + vb + vc
	if sum == 0 {
		return closestOnEdges(p, t)
	}
	v, w := vb/sum, vc/sum
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac)))
}

// closestOnEdges handles degenerate (zero area) triangles.
func closestOnEdges(p r3.Vec, t Triangle) r3.Vec {
	best := t[0]
	bestDist := math.Inf(1)
	for i := 0; i < 3; i++ {
		q := closestOnSegment(p, t[i], t[(i+1)%3])
		if d := r3.Norm2(r3.Sub(p, q)); d < bestDist {
			best, bestDist = q, d
		}
	}
	return best
}

func closestOnSegment(p, a, b r3.Vec) r3.Vec {
	ab := r3.Sub(b, a)
	l2 := r3.Norm2(ab)
	if l2 == 0 {
		return a
	}
	s := r3.Dot(r3.Sub(p, a), ab) / l2
	s = math.Max(0, math.Min(1, s))
	return r3.Add(a, r3.Scale(s, ab))
}

// solidAngle is the signed solid angle subtended by t at p (Van Oosterom and Strackee).
// It is positive when p lies behind the triangle's counter-clockwise face.
func solidAngle(p r3.Vec, t Triangle) float64 {
	a, b, c := r3.Sub(t[0], p), r3.Sub(t[1], p), r3.Sub(t[2], p)
	la, lb, lc := r3.Norm(a), r3.Norm(b), r3.Norm(c)
	num := r3.Dot(a, r3.Cross(b, c))
	den := la*lb*lc + r3.Dot(a, b)*lc + r3.Dot(b, c)*la + r3.Dot(c, a)*lb
	return 2 * math.Atan2(num, den)
}

// signedDistance returns the distance from p to the nearest triangle, negative when the
// generalized winding number of the surface around p exceeds one half.
func signedDistance(p r3.Vec, tris []Triangle) float64 {
	best := math.Inf(1)
	var omega float64
	for _, t := range tris {
		if d := r3.Norm2(r3.Sub(p, closestPoint(p, t))); d < best {
			best = d
		}
		omega += solidAngle(p, t)
	}
	dist := math.Sqrt(best)
	if math.Abs(omega/(4*math.Pi)) > 0.5 {
		return -dist
	}
	return dist
}
