package overlay

import (
	"math"
	"slices"

	"github.com/twpayne/go-geom"
)

// IntersectionArea returns the area of a ∩ b for planar multipolygons.
// Overlapping parts of b count once.
func IntersectionArea(a, b *geom.MultiPolygon) float64 {
	return intersectionArea(newShape(a), newShape(b))
}

// splitParams returns the sorted parameters in [0, 1] at which segment
// p→q meets any of the edges, including the ends of collinear overlaps.
func splitParams(p, q vec, edges []edge) []float64 {
	d := q.sub(p)
	l2 := d.dot(d)
	ts := []float64{0, 1}
	if l2 == 0 {
		return ts
	}
	sb := segBox(p, q).grow(eps)
	for _, e := range edges {
		if !segBox(e.a, e.b).overlaps(sb) {
			continue
		}
		s := e.b.sub(e.a)
		den := d.cross(s)
		if math.Abs(den) > 1e-12*math.Sqrt(l2*s.dot(s)) {
			ap := e.a.sub(p)
			t := ap.cross(s) / den
			u := ap.cross(d) / den
			if t > 0 && t < 1 && u >= 0 && u <= 1 {
				ts = append(ts, t)
			}
		}
		for _, c := range [2]vec{e.a, e.b} {
			t := c.sub(p).dot(d) / l2
			if t > 0 && t < 1 && p.lerp(q, t).dist(c) <= eps {
				ts = append(ts, t)
			}
		}
	}
	slices.Sort(ts)
	return ts
}

// pieces calls fn for every sub-segment of p→q between split parameters
// that is longer than eps.
func pieces(p, q vec, ts []float64, fn func(s0, s1 vec)) {
	for i := 0; i+1 < len(ts); i++ {
		s0, s1 := p.lerp(q, ts[i]), p.lerp(q, ts[i+1])
		if s0.dist(s1) <= eps {
			continue
		}
		fn(s0, s1)
	}
}

// intersectionArea integrates x dy − y dx over the boundary of a ∩ b
// (Green's theorem). That boundary is made of the parts of a's edges inside
// b and the parts of b's edges inside a. An edge shared by both counts once
// when both interiors lie on its same side. Summing over every boundary
// piece adds up all intersection pieces at once.
func intersectionArea(a, b shape) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ab := a.box()
	abox := ab.grow(eps)

	var near []int
	for k, pg := range b {
		if pg.box.overlaps(abox) {
			near = append(near, k)
		}
	}
	if len(near) == 0 {
		return 0
	}

	bEdges := b.edges(abox)
	if len(bEdges) == 0 {
		// No boundary of b comes near a: a is wholly inside or outside.
		p := a[0].rings[0].pts[0]
		for _, k := range near {
			if b[k].locate(p) == inside {
				return a.area()
			}
		}
		return 0
	}

	origin := vec{ab.minX, ab.minY}
	var twice float64
	add := func(s0, s1 vec) {
		twice += s0.sub(origin).cross(s1.sub(origin))
	}

	// Edges of a that lie inside b, or on an edge of b facing the same way.
	for _, pg := range a {
		for _, r := range pg.rings {
			for i := 0; i+1 < len(r.pts); i++ {
				p, q := r.pts[i], r.pts[i+1]
				if p == q {
					continue
				}
				pieces(p, q, splitParams(p, q, bEdges), func(s0, s1 vec) {
					m, dir := s0.lerp(s1, 0.5), s1.sub(s0)
					for _, k := range near {
						switch b[k].locate(m) {
						case inside:
							add(s0, s1)
							return
						case onBoundary:
							if same, _ := b[k].alongEdge(m, dir); same {
								add(s0, s1)
								return
							}
						}
					}
				})
			}
		}
	}

	// Edges of b strictly inside a that bound the union of b's parts.
	aEdges := a.edges(abox)
	for _, e := range bEdges {
		splitters := slices.Clone(aEdges)
		for _, o := range bEdges {
			if o.poly != e.poly {
				splitters = append(splitters, o)
			}
		}
		pieces(e.a, e.b, splitParams(e.a, e.b, splitters), func(s0, s1 vec) {
			m, dir := s0.lerp(s1, 0.5), s1.sub(s0)
			if !strictlyInside(a, m) {
				return
			}
			for _, j := range near {
				if j == e.poly {
					continue
				}
				switch b[j].locate(m) {
				case inside:
					return
				case onBoundary:
					same, opposite := b[j].alongEdge(m, dir)
					if opposite || (same && j < e.poly) {
						return
					}
				}
			}
			add(s0, s1)
		})
	}

	return twice / 2
}

// strictlyInside reports whether p is inside some polygon of s and on no
// boundary of s.
func strictlyInside(s shape, p vec) bool {
	in := false
	for _, pg := range s {
		switch pg.locate(p) {
		case onBoundary:
			return false
		case inside:
			in = true
		}
	}
	return in
}
