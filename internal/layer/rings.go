package layer

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
	"go.uber.org/zap"

	"github.com/sells-group/pn-weights/internal/model"
)

// signedArea is twice the shoelace area of a closed XY ring; positive when
// counter-clockwise.
func signedArea(flat []float64) float64 {
	var s float64
	for i := 0; i+3 < len(flat); i += 2 {
		s += flat[i]*flat[i+3] - flat[i+2]*flat[i+1]
	}
	return s
}

func reverseRing(flat []float64) []float64 {
	out := make([]float64, len(flat))
	n := len(flat) / 2
	for i := range n {
		out[2*i] = flat[2*(n-1-i)]
		out[2*i+1] = flat[2*(n-1-i)+1]
	}
	return out
}

// closeRing appends the first vertex when the ring is open and rejects rings
// with fewer than four positions.
func closeRing(flat []float64) ([]float64, error) {
	n := len(flat)
	if n >= 4 && (flat[0] != flat[n-2] || flat[1] != flat[n-1]) {
		flat = append(flat, flat[0], flat[1])
	}
	if len(flat) < 8 {
		return nil, eris.Wrapf(model.ErrGeometry, "layer: ring has %d positions, need 4", len(flat)/2)
	}
	return flat, nil
}

// groupRings builds a multipolygon from shapefile rings. Clockwise rings are
// shells, counter-clockwise rings are holes assigned to the first shell that
// contains them. Output shells are counter-clockwise and holes clockwise.
func groupRings(rings [][]float64) (*geom.MultiPolygon, error) {
	type shell struct {
		ring  []float64
		holes [][]float64
	}
	var shells []*shell
	var holes [][]float64

	for _, r := range rings {
		closed, err := closeRing(r)
		if err != nil {
			return nil, err
		}
		a := signedArea(closed)
		switch {
		case a == 0:
			return nil, eris.Wrap(model.ErrGeometry, "layer: degenerate ring with zero area")
		case a < 0:
			shells = append(shells, &shell{ring: reverseRing(closed)})
		default:
			holes = append(holes, closed)
		}
	}

	// Writers that ignore the ESRI winding rule emit only counter-clockwise
	// rings; every ring is then an outer boundary.
	if len(shells) == 0 {
		for _, h := range holes {
			shells = append(shells, &shell{ring: h})
		}
		holes = nil
	}

	for _, h := range holes {
		var owner *shell
		for _, s := range shells {
			if ringWithin(h, s.ring) {
				owner = s
				break
			}
		}
		if owner == nil {
			zap.L().Debug("layer: hole outside every shell, promoting to shell")
			shells = append(shells, &shell{ring: h})
			continue
		}
		owner.holes = append(owner.holes, reverseRing(h))
	}

	var flat []float64
	endss := make([][]int, 0, len(shells))
	for _, s := range shells {
		flat = append(flat, s.ring...)
		ends := []int{len(flat)}
		for _, h := range s.holes {
			flat = append(flat, h...)
			ends = append(ends, len(flat))
		}
		endss = append(endss, ends)
	}
	return geom.NewMultiPolygonFlat(geom.XY, flat, endss), nil
}

// ringWithin reports whether hole lies inside shell. Vertices on the shell
// boundary are inconclusive, since holes may touch their shell and
// neighbouring shells may share edges.
func ringWithin(hole, shell []float64) bool {
	for i := 0; i+3 < len(hole); i += 2 {
		switch xy.LocatePointInRing(geom.XY, geom.Coord{hole[i], hole[i+1]}, shell) {
		case location.Interior:
			return true
		case location.Exterior:
			return false
		}
	}
	// Every vertex is on the boundary; fall back to an edge midpoint.
	mid := geom.Coord{(hole[0] + hole[2]) / 2, (hole[1] + hole[3]) / 2}
	return xy.LocatePointInRing(geom.XY, mid, shell) != location.Exterior
}

// toXY drops Z and M ordinates, returning mp unchanged when already XY.
func toXY(mp *geom.MultiPolygon) *geom.MultiPolygon {
	if mp.Layout() == geom.XY {
		return mp
	}
	stride := mp.Stride()
	src := mp.FlatCoords()
	flat := make([]float64, 0, len(src)/stride*2)
	for i := 0; i+1 < len(src); i += stride {
		flat = append(flat, src[i], src[i+1])
	}
	endss := mp.Endss()
	out := make([][]int, len(endss))
	for i, ends := range endss {
		out[i] = make([]int, len(ends))
		for j, e := range ends {
			out[i][j] = e / stride * 2
		}
	}
	return geom.NewMultiPolygonFlat(geom.XY, flat, out)
}
