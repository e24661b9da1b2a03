// Package projection converts coordinates between the handful of reference
// systems census and neighborhood boundary files arrive in: geographic
// lon/lat, equal-area Albers, Lambert Conformal Conic state planes and Web
// Mercator.
package projection

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/pn-weights/internal/model"
)

// Projection maps geographic lon/lat in degrees to planar coordinates and
// back. Planar units are those of the CRS (meters or feet).
type Projection interface {
	Forward(lon, lat float64) (x, y float64)
	Inverse(x, y float64) (lon, lat float64)
}

// CRS is a coordinate reference system known to this package.
type CRS struct {
	Name       string
	EPSG       int
	Geographic bool
	proj       Projection
}

func (c CRS) String() string {
	if c.EPSG != 0 {
		return fmt.Sprintf("EPSG:%d", c.EPSG)
	}
	return c.Name
}

// IsZero reports whether c is the zero CRS.
func (c CRS) IsZero() bool { return c.proj == nil }

// Equal reports whether a and b describe the same coordinate space.
func (c CRS) Equal(o CRS) bool {
	if c.Geographic && o.Geographic {
		return true
	}
	if c.EPSG != 0 && c.EPSG == o.EPSG {
		return true
	}
	return c.Name == o.Name && c.EPSG == o.EPSG && c.proj == o.proj
}

type geographic struct{}

func (geographic) Forward(lon, lat float64) (float64, float64) { return lon, lat }
func (geographic) Inverse(x, y float64) (float64, float64)     { return x, y }

type identity struct{}

func (identity) Forward(lon, lat float64) (float64, float64) { return lon, lat }
func (identity) Inverse(x, y float64) (float64, float64)     { return x, y }

// Well-known reference systems.
var (
	NAD83 = CRS{Name: "NAD83", EPSG: 4269, Geographic: true, proj: geographic{}}
	WGS84 = CRS{Name: "WGS 84", EPSG: 4326, Geographic: true, proj: geographic{}}

	WebMercator = CRS{Name: "WGS 84 / Pseudo-Mercator", EPSG: 3857, proj: newWebMercator(GRS80.A)}

	ConusAlbers = CRS{Name: "NAD83 / Conus Albers", EPSG: 5070, proj: NewAlbers(AlbersParams{
		Ellipsoid: GRS80,
		Lat1:      29.5, Lat2: 45.5, Lat0: 23, Lon0: -96,
	})}

	PennsylvaniaSouthFt = CRS{Name: "NAD83 / Pennsylvania South (ftUS)", EPSG: 2272, proj: NewLambert(LambertParams{
		Ellipsoid: GRS80,
		Lat1:      40.0 + 58.0/60, Lat2: 39.0 + 56.0/60, Lat0: 39.0 + 20.0/60, Lon0: -77.75,
		FalseEasting: 1968500, Unit: USSurveyFoot,
	})}

	// Planar treats coordinates as already projected. Areas computed in it
	// are in squared input units.
	Planar = CRS{Name: "planar", proj: identity{}}
)

// Unit conversion factors to meters.
const (
	Meter        = 1.0
	USSurveyFoot = 1200.0 / 3937.0
	Foot         = 0.3048
)

var registry = map[int]CRS{
	NAD83.EPSG:               NAD83,
	WGS84.EPSG:               WGS84,
	WebMercator.EPSG:         WebMercator,
	900913:                   WebMercator,
	ConusAlbers.EPSG:         ConusAlbers,
	PennsylvaniaSouthFt.EPSG: PennsylvaniaSouthFt,
}

// ByEPSG looks up a registered CRS.
func ByEPSG(code int) (CRS, error) {
	c, ok := registry[code]
	if !ok {
		return CRS{}, eris.Wrapf(model.ErrGeometry, "projection: unsupported EPSG:%d", code)
	}
	return c, nil
}

// Parse accepts "EPSG:nnnn", a bare code, or "planar".
func Parse(s string) (CRS, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "planar") {
		return Planar, nil
	}
	code := s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		if !strings.EqualFold(s[:i], "EPSG") {
			return CRS{}, eris.Wrapf(model.ErrGeometry, "projection: unknown authority in %q", s)
		}
		code = s[i+1:]
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return CRS{}, eris.Wrapf(model.ErrGeometry, "projection: invalid CRS %q", s)
	}
	return ByEPSG(n)
}

// Transformer converts points from one CRS to another.
type Transformer func(x, y float64) (float64, float64)

// NewTransformer returns a function converting from -> to through
// geographic coordinates. Planar can only be paired with itself.
func NewTransformer(from, to CRS) (Transformer, error) {
	if from.IsZero() || to.IsZero() {
		return nil, eris.Wrap(model.ErrGeometry, "projection: undefined CRS")
	}
	if from.Equal(to) {
		return func(x, y float64) (float64, float64) { return x, y }, nil
	}
	if from.Name == Planar.Name || to.Name == Planar.Name {
		return nil, eris.Wrapf(model.ErrGeometry, "projection: cannot reconcile %s with %s", from, to)
	}
	return func(x, y float64) (float64, float64) {
		lon, lat := from.proj.Inverse(x, y)
		return to.proj.Forward(lon, lat)
	}, nil
}

// MultiPolygon applies t to a copy of mp. Ring structure and SRID are kept.
func (t Transformer) MultiPolygon(mp *geom.MultiPolygon) *geom.MultiPolygon {
	flat := append([]float64(nil), mp.FlatCoords()...)
	stride := mp.Stride()
	for i := 0; i+1 < len(flat); i += stride {
		flat[i], flat[i+1] = t(flat[i], flat[i+1])
	}
	return geom.NewMultiPolygonFlat(mp.Layout(), flat, mp.Endss()).SetSRID(mp.SRID())
}
