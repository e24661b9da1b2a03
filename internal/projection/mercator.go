package projection

import "math"

// webMercator is the spherical Pseudo-Mercator used by web maps (EPSG:3857).
// It is not equal-area; it is kept so ratios can be reproduced with the
// projection older tooling used.
type webMercator struct{ r float64 }

func newWebMercator(r float64) Projection { return webMercator{r: r} }

func (m webMercator) Forward(lon, lat float64) (float64, float64) {
	return m.r * lon * deg, m.r * math.Log(math.Tan(math.Pi/4+lat*deg/2))
}

func (m webMercator) Inverse(x, y float64) (float64, float64) {
	return x / m.r / deg, (math.Pi/2 - 2*math.Atan(math.Exp(-y/m.r))) / deg
}
