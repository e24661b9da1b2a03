package projection

import "math"

// Ellipsoid is a reference ellipsoid given by semi-major axis (meters) and
// inverse flattening.
type Ellipsoid struct {
	A    float64
	InvF float64
}

// GRS80 is the NAD83 ellipsoid. WGS84 differs from it by under a millimeter
// in the semi-minor axis, so both datums share it here.
var GRS80 = Ellipsoid{A: 6378137, InvF: 298.257222101}

// E returns the first eccentricity.
func (e Ellipsoid) E() float64 {
	if e.InvF == 0 {
		return 0
	}
	f := 1 / e.InvF
	return math.Sqrt(2*f - f*f)
}

const deg = math.Pi / 180

// msfn is m(φ) in Snyder's notation.
func msfn(e, sinPhi, cosPhi float64) float64 {
	return cosPhi / math.Sqrt(1-e*e*sinPhi*sinPhi)
}

// qsfn is q(φ) in Snyder's notation (authalic latitude helper).
func qsfn(e, sinPhi float64) float64 {
	if e < 1e-10 {
		return 2 * sinPhi
	}
	es := e * sinPhi
	return (1 - e*e) * (sinPhi/(1-es*es) - (1/(2*e))*math.Log((1-es)/(1+es)))
}

// tsfn is t(φ) in Snyder's notation (conformal latitude helper).
func tsfn(e, phi, sinPhi float64) float64 {
	es := e * sinPhi
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-es)/(1+es), e/2)
}

// phi2 inverts tsfn by fixed-point iteration.
func phi2(e, ts float64) float64 {
	half := e / 2
	phi := math.Pi/2 - 2*math.Atan(ts)
	for range 15 {
		es := e * math.Sin(phi)
		next := math.Pi/2 - 2*math.Atan(ts*math.Pow((1-es)/(1+es), half))
		if math.Abs(next-phi) < 1e-12 {
			return next
		}
		phi = next
	}
	return phi
}
