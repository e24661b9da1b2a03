package projection

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pn-weights/internal/model"
)

const paSouthPRJ = `PROJCS["NAD_1983_StatePlane_Pennsylvania_South_FIPS_3702_Feet",GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Lambert_Conformal_Conic"],PARAMETER["False_Easting",1968500.0],PARAMETER["False_Northing",0.0],PARAMETER["Central_Meridian",-77.75],PARAMETER["Standard_Parallel_1",39.93333333333333],PARAMETER["Standard_Parallel_2",40.96666666666667],PARAMETER["Latitude_Of_Origin",39.33333333333334],UNIT["Foot_US",0.3048006096012192]]`

const nad83PRJ = `GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137,298.257222101]],PRIMEM["Greenwich",0],UNIT["Degree",0.017453292519943295]]`

const usAlbersPRJ = `PROJCS["USA_Contiguous_Albers_Equal_Area_Conic",GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Albers"],PARAMETER["False_Easting",0.0],PARAMETER["False_Northing",0.0],PARAMETER["Central_Meridian",-96.0],PARAMETER["Standard_Parallel_1",29.5],PARAMETER["Standard_Parallel_2",45.5],PARAMETER["Latitude_Of_Origin",37.5],UNIT["Meter",1.0]]`

const conusAlbersOGC = `PROJCS["NAD83 / Conus Albers",GEOGCS["NAD83",DATUM["North_American_Datum_1983",SPHEROID["GRS 1980",6378137,298.257222101,AUTHORITY["EPSG","7019"]],AUTHORITY["EPSG","6269"]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]],PROJECTION["Albers_Conic_Equal_Area"],PARAMETER["latitude_of_center",23],PARAMETER["longitude_of_center",-96],PARAMETER["standard_parallel_1",29.5],PARAMETER["standard_parallel_2",45.5],PARAMETER["false_easting",0],PARAMETER["false_northing",0],UNIT["metre",1],AXIS["Easting",EAST],AXIS["Northing",NORTH],AUTHORITY["EPSG","5070"]]`

func TestAlbersOrigin(t *testing.T) {
	x, y := ConusAlbers.proj.Forward(-96, 23)
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)
}

func TestLambertOrigin(t *testing.T) {
	x, y := PennsylvaniaSouthFt.proj.Forward(-77.75, 39.0+20.0/60)
	assert.InDelta(t, 1968500, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)
}

func TestWebMercatorKnownValues(t *testing.T) {
	x, y := WebMercator.proj.Forward(180, 0)
	assert.InDelta(t, 20037508.342789244, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-9)
}

func TestRoundTrips(t *testing.T) {
	points := [][2]float64{{-75.1652, 39.9526}, {-75.0, 40.1}, {-80.5, 42.2}, {-96, 23}}
	for _, c := range []CRS{ConusAlbers, PennsylvaniaSouthFt, WebMercator} {
		t.Run(c.String(), func(t *testing.T) {
			for _, p := range points {
				x, y := c.proj.Forward(p[0], p[1])
				lon, lat := c.proj.Inverse(x, y)
				assert.InDelta(t, p[0], lon, 1e-9)
				assert.InDelta(t, p[1], lat, 1e-9)
			}
		})
	}
}

// Albers must preserve area: a small lon/lat cell's planar area matches the
// ellipsoidal area a²/2·Δλ·(q2−q1).
func TestAlbersPreservesArea(t *testing.T) {
	e := GRS80.E()
	for _, lat := range []float64{30, 40, 48} {
		lon, d := -75.0, 0.01
		ring := [][2]float64{{lon, lat}, {lon + d, lat}, {lon + d, lat + d}, {lon, lat + d}}
		var area float64
		for i := range ring {
			x1, y1 := ConusAlbers.proj.Forward(ring[i][0], ring[i][1])
			j := (i + 1) % len(ring)
			x2, y2 := ConusAlbers.proj.Forward(ring[j][0], ring[j][1])
			area += x1*y2 - x2*y1
		}
		area /= 2
		want := GRS80.A * GRS80.A / 2 * d * deg *
			(qsfn(e, math.Sin((lat+d)*deg)) - qsfn(e, math.Sin(lat*deg)))
		assert.InEpsilon(t, want, area, 1e-4, "lat %v", lat)
	}
}

func TestParse(t *testing.T) {
	c, err := Parse("EPSG:5070")
	require.NoError(t, err)
	assert.Equal(t, "EPSG:5070", c.String())

	c, err = Parse("4269")
	require.NoError(t, err)
	assert.True(t, c.Geographic)

	c, err = Parse("planar")
	require.NoError(t, err)
	assert.Equal(t, "planar", c.String())

	for _, bad := range []string{"EPSG:9999", "ESRI:102003", "nope"} {
		_, err := Parse(bad)
		assert.True(t, eris.Is(err, model.ErrGeometry), bad)
	}
}

func TestNewTransformer(t *testing.T) {
	tr, err := NewTransformer(NAD83, WGS84)
	require.NoError(t, err)
	x, y := tr(-75, 40)
	assert.Equal(t, -75.0, x)
	assert.Equal(t, 40.0, y)

	tr, err = NewTransformer(PennsylvaniaSouthFt, ConusAlbers)
	require.NoError(t, err)
	x1, y1 := tr(1968500, 0)
	x2, y2 := ConusAlbers.proj.Forward(-77.75, 39.0+20.0/60)
	assert.InDelta(t, x2, x1, 1e-6)
	assert.InDelta(t, y2, y1, 1e-6)

	_, err = NewTransformer(Planar, ConusAlbers)
	assert.True(t, eris.Is(err, model.ErrGeometry))
	_, err = NewTransformer(CRS{}, ConusAlbers)
	assert.True(t, eris.Is(err, model.ErrGeometry))
}

func TestFromWKTStatePlane(t *testing.T) {
	c, err := FromWKT(paSouthPRJ)
	require.NoError(t, err)
	assert.Equal(t, "NAD_1983_StatePlane_Pennsylvania_South_FIPS_3702_Feet", c.Name)
	x, y := c.proj.Forward(-77.75, 39.33333333333334)
	assert.InDelta(t, 1968500, x, 1e-4)
	assert.InDelta(t, 0, y, 1e-4)

	// Matches the registered zone to well under a foot.
	x1, y1 := c.proj.Forward(-75.1652, 39.9526)
	x2, y2 := PennsylvaniaSouthFt.proj.Forward(-75.1652, 39.9526)
	assert.InDelta(t, x2, x1, 0.01)
	assert.InDelta(t, y2, y1, 0.01)
}

func TestFromWKTGeographic(t *testing.T) {
	c, err := FromWKT(nad83PRJ)
	require.NoError(t, err)
	assert.True(t, c.Geographic)
	assert.Equal(t, 4269, c.EPSG)
}

func TestFromWKTAlbers(t *testing.T) {
	c, err := FromWKT(usAlbersPRJ)
	require.NoError(t, err)
	x, y := c.proj.Forward(-96, 37.5)
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)

	c, err = FromWKT(conusAlbersOGC)
	require.NoError(t, err)
	assert.Equal(t, 5070, c.EPSG)
}

func TestFromWKTErrors(t *testing.T) {
	cases := map[string]string{
		"transverse mercator": `PROJCS["UTM",GEOGCS["NAD83"],PROJECTION["Transverse_Mercator"],PARAMETER["Central_Meridian",-75]]`,
		"unterminated":        `GEOGCS["NAD83"`,
		"garbage":             `{}`,
		"vertical":            `VERT_CS["NAVD88"]`,
		"single parallel":     `PROJCS["x",PROJECTION["Lambert_Conformal_Conic"],PARAMETER["Standard_Parallel_1",40]]`,
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromWKT(s)
			assert.True(t, eris.Is(err, model.ErrGeometry))
		})
	}
}
