package layer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/pn-weights/internal/model"
	"github.com/sells-group/pn-weights/internal/projection"
)

// readShapefile reads polygon records and their DBF attributes. Null and
// non-polygon records fail the read; nothing is silently skipped.
func readShapefile(path string, opts Options) (*Layer, error) {
	declared, err := readPRJ(path)
	if err != nil {
		return nil, err
	}
	crs, err := resolveCRS(declared, opts, path)
	if err != nil {
		return nil, err
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(model.ErrGeometry, "layer: open shapefile %s: %v", path, err)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}

	l := &Layer{Path: path, CRS: crs}
	for reader.Next() {
		n, shape := reader.Shape()

		mp, err := shapeToMultiPolygon(shape)
		if err != nil {
			return nil, eris.Wrapf(err, "layer: record %d of %s", n, path)
		}

		attrs := make(map[string]string, len(names))
		for i, name := range names {
			attrs[name] = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}
		l.Features = append(l.Features, Feature{Attrs: attrs, Geometry: mp})
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(model.ErrGeometry, "layer: read %s: %v", path, err)
	}
	// A .shp cut at a record boundary reads as a clean EOF.
	if len(names) > 0 && reader.AttributeCount() != len(l.Features) {
		return nil, eris.Wrapf(model.ErrGeometry, "layer: %s has %d shapes but %d attribute rows",
			path, len(l.Features), reader.AttributeCount())
	}
	return l, nil
}

// readPRJ parses the sibling .prj file. A missing file yields nil.
func readPRJ(shpPath string) (*projection.CRS, error) {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	for _, ext := range []string{".prj", ".PRJ"} {
		data, err := os.ReadFile(base + ext)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(model.ErrGeometry, "layer: read %s: %v", base+ext, err)
		}
		crs, err := projection.FromWKT(string(data))
		if err != nil {
			return nil, eris.Wrapf(err, "layer: parse %s", base+ext)
		}
		return &crs, nil
	}
	return nil, nil
}

// shapeToMultiPolygon splits a polygon record into rings and groups them.
func shapeToMultiPolygon(shape shp.Shape) (*geom.MultiPolygon, error) {
	var parts []int32
	var points []shp.Point
	switch s := shape.(type) {
	case *shp.Polygon:
		parts, points = s.Parts, s.Points
	case *shp.PolygonZ:
		parts, points = s.Parts, s.Points
	case *shp.PolygonM:
		parts, points = s.Parts, s.Points
	case nil, *shp.Null:
		return nil, eris.Wrap(model.ErrGeometry, "null shape")
	default:
		return nil, eris.Wrapf(model.ErrGeometry, "unsupported shape %T", shape)
	}
	if len(parts) == 0 || len(points) == 0 {
		return nil, eris.Wrap(model.ErrGeometry, "empty polygon")
	}

	rings := make([][]float64, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			return nil, eris.Wrapf(model.ErrGeometry, "corrupt part index %d", i)
		}
		ring := make([]float64, 0, 2*(end-start))
		for _, p := range points[start:end] {
			ring = append(ring, p.X, p.Y)
		}
		rings = append(rings, ring)
	}
	return groupRings(rings)
}
