package projection

import "math"

// AlbersParams configures an Albers equal-area conic projection. Angles are
// in degrees, false easting/northing in the projection's unit.
type AlbersParams struct {
	Ellipsoid     Ellipsoid
	Lat1, Lat2    float64
	Lat0, Lon0    float64
	FalseEasting  float64
	FalseNorthing float64
	Unit          float64
}

type albers struct {
	a, e, n, c, rho0 float64
	lon0             float64
	fe, fn, unit     float64
}

// NewAlbers builds an ellipsoidal Albers projection (Snyder, ch. 14).
func NewAlbers(p AlbersParams) Projection {
	if p.Unit == 0 {
		p.Unit = Meter
	}
	e := p.Ellipsoid.E()
	s1, c1 := math.Sincos(p.Lat1 * deg)
	s2, c2 := math.Sincos(p.Lat2 * deg)
	m1, m2 := msfn(e, s1, c1), msfn(e, s2, c2)
	q1, q2 := qsfn(e, s1), qsfn(e, s2)
	q0 := qsfn(e, math.Sin(p.Lat0*deg))

	var n float64
	if math.Abs(p.Lat1-p.Lat2) < 1e-10 {
		n = s1
	} else {
		n = (m1*m1 - m2*m2) / (q2 - q1)
	}
	c := m1*m1 + n*q1
	return &albers{
		a: p.Ellipsoid.A, e: e, n: n, c: c,
		rho0: p.Ellipsoid.A * math.Sqrt(c-n*q0) / n,
		lon0: p.Lon0 * deg,
		fe:   p.FalseEasting * p.Unit, fn: p.FalseNorthing * p.Unit, unit: p.Unit,
	}
}

func (p *albers) Forward(lon, lat float64) (float64, float64) {
	q := qsfn(p.e, math.Sin(lat*deg))
	rho := p.a * math.Sqrt(math.Max(p.c-p.n*q, 0)) / p.n
	theta := p.n * (lon*deg - p.lon0)
	x := p.fe + rho*math.Sin(theta)
	y := p.fn + p.rho0 - rho*math.Cos(theta)
	return x / p.unit, y / p.unit
}

func (p *albers) Inverse(x, y float64) (float64, float64) {
	x = x*p.unit - p.fe
	y = p.rho0 - (y*p.unit - p.fn)
	rho := math.Hypot(x, y)
	if p.n < 0 {
		rho, x, y = -rho, -x, -y
	}
	theta := math.Atan2(x, y)
	q := (p.c - rho*rho*p.n*p.n/(p.a*p.a)) / p.n
	return (p.lon0 + theta/p.n) / deg, p.authalicInverse(q) / deg
}

// authalicInverse recovers latitude from q by Newton iteration.
func (p *albers) authalicInverse(q float64) float64 {
	e := p.e
	if e < 1e-10 {
		return math.Asin(math.Max(-1, math.Min(1, q/2)))
	}
	qPole := qsfn(e, 1)
	if math.Abs(math.Abs(q)-qPole) < 1e-12 {
		return math.Copysign(math.Pi/2, q)
	}
	phi := math.Asin(math.Max(-1, math.Min(1, q/2)))
	for range 25 {
		s, c := math.Sincos(phi)
		es := e * s
		one := 1 - es*es
		dphi := one * one / (2 * c) * (q/(1-e*e) - s/one + (1/(2*e))*math.Log((1-es)/(1+es)))
		phi += dphi
		if math.Abs(dphi) < 1e-13 {
			break
		}
	}
	return phi
}
