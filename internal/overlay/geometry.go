package overlay

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// eps is the distance, in projected units, under which a point counts as
// lying on a boundary.
const eps = 1e-6

type vec struct{ x, y float64 }

func (a vec) sub(b vec) vec             { return vec{a.x - b.x, a.y - b.y} }
func (a vec) add(b vec) vec             { return vec{a.x + b.x, a.y + b.y} }
func (a vec) scale(f float64) vec       { return vec{a.x * f, a.y * f} }
func (a vec) dot(b vec) float64         { return a.x*b.x + a.y*b.y }
func (a vec) cross(b vec) float64       { return a.x*b.y - a.y*b.x }
func (a vec) norm() float64             { return math.Hypot(a.x, a.y) }
func (a vec) dist(b vec) float64        { return a.sub(b).norm() }
func (a vec) lerp(b vec, t float64) vec { return a.add(b.sub(a).scale(t)) }

// distToSegment is the distance from p to the segment [a, b].
func distToSegment(p, a, b vec) float64 {
	d := b.sub(a)
	l2 := d.dot(d)
	if l2 == 0 {
		return p.dist(a)
	}
	t := math.Max(0, math.Min(1, p.sub(a).dot(d)/l2))
	return p.dist(a.add(d.scale(t)))
}

type box struct{ minX, minY, maxX, maxY float64 }

func emptyBox() box {
	return box{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
}

func (b box) extend(p vec) box {
	return box{math.Min(b.minX, p.x), math.Min(b.minY, p.y), math.Max(b.maxX, p.x), math.Max(b.maxY, p.y)}
}

func (b box) union(o box) box {
	return box{math.Min(b.minX, o.minX), math.Min(b.minY, o.minY), math.Max(b.maxX, o.maxX), math.Max(b.maxY, o.maxY)}
}

func (b box) grow(d float64) box {
	return box{b.minX - d, b.minY - d, b.maxX + d, b.maxY + d}
}

func (b box) overlaps(o box) bool {
	return b.minX <= o.maxX && o.minX <= b.maxX && b.minY <= o.maxY && o.minY <= b.maxY
}

func (b box) containsPoint(p vec) bool {
	return p.x >= b.minX && p.x <= b.maxX && p.y >= b.minY && p.y <= b.maxY
}

func segBox(a, b vec) box { return emptyBox().extend(a).extend(b) }

// ring is a closed ring: pts[0] == pts[len-1]. flat mirrors pts for go-geom.
type ring struct {
	pts  []vec
	flat []float64
}

func (r ring) signedArea() float64 {
	var s float64
	for i := 0; i+1 < len(r.pts); i++ {
		s += r.pts[i].cross(r.pts[i+1])
	}
	return s / 2
}

func (r ring) reversed() ring {
	n := len(r.pts)
	out := ring{pts: make([]vec, n), flat: make([]float64, 2*n)}
	for i, p := range r.pts {
		out.pts[n-1-i] = p
		out.flat[2*(n-1-i)], out.flat[2*(n-1-i)+1] = p.x, p.y
	}
	return out
}

// polygon has its shell counter-clockwise at rings[0] and clockwise holes
// after it, so the interior is always left of every edge.
type polygon struct {
	rings []ring
	box   box
}

type location int

const (
	outside location = iota
	onBoundary
	inside
)

func (pg polygon) locate(p vec) location {
	if !pg.box.grow(eps).containsPoint(p) {
		return outside
	}
	for _, r := range pg.rings {
		for i := 0; i+1 < len(r.pts); i++ {
			if distToSegment(p, r.pts[i], r.pts[i+1]) <= eps {
				return onBoundary
			}
		}
	}
	c := geom.Coord{p.x, p.y}
	if !xy.IsPointInRing(geom.XY, c, pg.rings[0].flat) {
		return outside
	}
	for _, h := range pg.rings[1:] {
		if xy.IsPointInRing(geom.XY, c, h.flat) {
			return outside
		}
	}
	return inside
}

// alongEdge reports whether a boundary edge of pg passing through p runs
// parallel to dir in the same or the opposite direction.
func (pg polygon) alongEdge(p, dir vec) (same, opposite bool) {
	dn := dir.scale(1 / dir.norm())
	for _, r := range pg.rings {
		for i := 0; i+1 < len(r.pts); i++ {
			a, b := r.pts[i], r.pts[i+1]
			if distToSegment(p, a, b) > eps {
				continue
			}
			s := b.sub(a)
			l := s.norm()
			if l == 0 || math.Abs(dn.cross(s)/l) > 1e-6 {
				continue
			}
			if dn.dot(s) > 0 {
				same = true
			} else {
				opposite = true
			}
		}
	}
	return same, opposite
}

// shape is a set of polygons, the planar form of a multipolygon.
type shape []polygon

// newShape converts mp, orienting every ring so interiors lie to the left.
// Rings with fewer than four positions are skipped.
func newShape(mp *geom.MultiPolygon) shape {
	stride := mp.Stride()
	out := make(shape, 0, mp.NumPolygons())
	for i := range mp.NumPolygons() {
		p := mp.Polygon(i)
		pg := polygon{box: emptyBox()}
		for j := range p.NumLinearRings() {
			src := p.LinearRing(j).FlatCoords()
			r := ring{}
			for k := 0; k+1 < len(src); k += stride {
				v := vec{src[k], src[k+1]}
				r.pts = append(r.pts, v)
				r.flat = append(r.flat, v.x, v.y)
			}
			if len(r.pts) < 4 {
				if j == 0 {
					break
				}
				continue
			}
			if first, last := r.pts[0], r.pts[len(r.pts)-1]; first != last {
				r.pts = append(r.pts, first)
				r.flat = append(r.flat, first.x, first.y)
			}
			a := r.signedArea()
			if (j == 0 && a < 0) || (j > 0 && a > 0) {
				r = r.reversed()
			}
			for _, v := range r.pts {
				pg.box = pg.box.extend(v)
			}
			pg.rings = append(pg.rings, r)
		}
		if len(pg.rings) > 0 {
			out = append(out, pg)
		}
	}
	return out
}

func (s shape) area() float64 {
	var a float64
	for _, pg := range s {
		for _, r := range pg.rings {
			a += r.signedArea()
		}
	}
	return a
}

func (s shape) box() box {
	b := emptyBox()
	for _, pg := range s {
		b = b.union(pg.box)
	}
	return b
}

// edge is one directed boundary segment; poly indexes its polygon in the
// owning shape.
type edge struct {
	a, b vec
	poly int
}

func (s shape) edges(within box) []edge {
	var out []edge
	for k, pg := range s {
		if !pg.box.overlaps(within) {
			continue
		}
		for _, r := range pg.rings {
			for i := 0; i+1 < len(r.pts); i++ {
				a, b := r.pts[i], r.pts[i+1]
				if a == b || !segBox(a, b).overlaps(within) {
					continue
				}
				out = append(out, edge{a: a, b: b, poly: k})
			}
		}
	}
	return out
}
