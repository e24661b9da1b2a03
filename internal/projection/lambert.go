package projection

import "math"

// LambertParams configures a two-standard-parallel Lambert Conformal Conic
// projection, the form used by most US state plane zones.
type LambertParams struct {
	Ellipsoid     Ellipsoid
	Lat1, Lat2    float64
	Lat0, Lon0    float64
	FalseEasting  float64
	FalseNorthing float64
	Unit          float64
}

type lambert struct {
	a, e, n, f, rho0 float64
	lon0             float64
	fe, fn, unit     float64
}

// NewLambert builds an ellipsoidal LCC projection (Snyder, ch. 15).
func NewLambert(p LambertParams) Projection {
	if p.Unit == 0 {
		p.Unit = Meter
	}
	e := p.Ellipsoid.E()
	phi1, phi2r, phi0 := p.Lat1*deg, p.Lat2*deg, p.Lat0*deg
	s1, c1 := math.Sincos(phi1)
	s2, c2 := math.Sincos(phi2r)
	m1, m2 := msfn(e, s1, c1), msfn(e, s2, c2)
	t1, t2 := tsfn(e, phi1, s1), tsfn(e, phi2r, s2)
	t0 := tsfn(e, phi0, math.Sin(phi0))

	var n float64
	if math.Abs(p.Lat1-p.Lat2) < 1e-10 {
		n = s1
	} else {
		n = (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	}
	f := m1 / (n * math.Pow(t1, n))
	return &lambert{
		a: p.Ellipsoid.A, e: e, n: n, f: f,
		rho0: p.Ellipsoid.A * f * math.Pow(t0, n),
		lon0: p.Lon0 * deg,
		fe:   p.FalseEasting * p.Unit, fn: p.FalseNorthing * p.Unit, unit: p.Unit,
	}
}

func (p *lambert) Forward(lon, lat float64) (float64, float64) {
	phi := lat * deg
	t := tsfn(p.e, phi, math.Sin(phi))
	rho := p.a * p.f * math.Pow(t, p.n)
	theta := p.n * (lon*deg - p.lon0)
	x := p.fe + rho*math.Sin(theta)
	y := p.fn + p.rho0 - rho*math.Cos(theta)
	return x / p.unit, y / p.unit
}

func (p *lambert) Inverse(x, y float64) (float64, float64) {
	x = x*p.unit - p.fe
	y = p.rho0 - (y*p.unit - p.fn)
	rho := math.Copysign(math.Hypot(x, y), p.n)
	if p.n < 0 {
		x, y = -x, -y
	}
	theta := math.Atan2(x, y)
	t := math.Pow(rho/(p.a*p.f), 1/p.n)
	return (p.lon0 + theta/p.n) / deg, phi2(p.e, t) / deg
}
