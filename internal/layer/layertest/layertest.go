// Package layertest writes small shapefile and archive fixtures for tests.
package layertest

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

// NAD83PRJ is the ESRI .prj text for geographic NAD83.
const NAD83PRJ = `GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// Record is one polygon record: rings as written, attributes in field order.
// A record without rings is written as a null shape.
type Record struct {
	Rings [][][2]float64
	Attrs []string
}

// Rect returns the clockwise (outer, in shapefile winding) ring of a rectangle.
func Rect(x0, y0, x1, y1 float64) [][2]float64 {
	return [][2]float64{{x0, y0}, {x0, y1}, {x1, y1}, {x1, y0}, {x0, y0}}
}

// Hole returns the counter-clockwise (inner) ring of a rectangle.
func Hole(x0, y0, x1, y1 float64) [][2]float64 {
	return [][2]float64{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}
}

// WriteShapefile writes path (.shp, .shx, .dbf) and, when prj is not empty,
// the sibling .prj.
func WriteShapefile(t testing.TB, path string, fields []string, records []Record, prj string) {
	t.Helper()

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	shpFields := make([]shp.Field, len(fields))
	for i, f := range fields {
		shpFields[i] = shp.StringField(f, 20)
	}
	require.NoError(t, w.SetFields(shpFields))

	for _, rec := range records {
		var idx int32
		if len(rec.Rings) == 0 {
			idx = w.Write(&shp.Null{})
		} else {
			parts := make([][]shp.Point, len(rec.Rings))
			for i, ring := range rec.Rings {
				for _, p := range ring {
					parts[i] = append(parts[i], shp.Point{X: p[0], Y: p[1]})
				}
			}
			poly := shp.Polygon(*shp.NewPolyLine(parts))
			idx = w.Write(&poly)
		}
		for i, v := range rec.Attrs {
			require.NoError(t, w.WriteAttribute(int(idx), i, v))
		}
	}
	w.Close()

	// go-shp names the attribute table "<base>dbf".
	base := strings.TrimSuffix(path, filepath.Ext(path))
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))

	if prj != "" {
		require.NoError(t, os.WriteFile(base+".prj", []byte(prj), 0o644))
	}
}

// ZipShapefile packs every sibling file of shpPath into a ZIP archive and
// returns its bytes.
func ZipShapefile(t testing.TB, shpPath string) []byte {
	t.Helper()

	zipPath := shpPath + ".zip"
	out, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(out)

	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj"} {
		data, err := os.ReadFile(base + ext)
		if os.IsNotExist(err) {
			continue
		}
		require.NoError(t, err)
		fw, err := zw.Create("nested/" + filepath.Base(base+ext))
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	data, err := os.ReadFile(zipPath)
	require.NoError(t, err)
	require.NoError(t, os.Remove(zipPath))
	return data
}
