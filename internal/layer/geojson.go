package layer

import (
	"encoding/json"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/pn-weights/internal/model"
	"github.com/sells-group/pn-weights/internal/projection"
)

// geojsonHeader captures the members go-geom's decoder ignores.
type geojsonHeader struct {
	Type string `json:"type"`
	CRS  *struct {
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

var epsgName = regexp.MustCompile(`EPSG:{1,2}(\d+)$`)

// readGeoJSON reads a FeatureCollection or a single Feature. Without a
// legacy "crs" member, opts.DefaultCRS applies, then WGS 84.
func readGeoJSON(path string, opts Options) (*Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(model.ErrGeometry, "layer: read %s: %v", path, err)
	}

	var hdr geojsonHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		return nil, eris.Wrapf(model.ErrGeometry, "layer: decode %s: %v", path, err)
	}

	var declared *projection.CRS
	if hdr.CRS != nil {
		m := epsgName.FindStringSubmatch(hdr.CRS.Properties.Name)
		if m == nil {
			return nil, eris.Wrapf(model.ErrGeometry, "layer: unrecognized crs %q", hdr.CRS.Properties.Name)
		}
		code, _ := strconv.Atoi(m[1])
		c, err := projection.ByEPSG(code)
		if err != nil {
			return nil, err
		}
		declared = &c
	} else if opts.DefaultCRS == "" {
		declared = &projection.WGS84
	}
	crs, err := resolveCRS(declared, opts, path)
	if err != nil {
		return nil, err
	}

	var features []*geojson.Feature
	switch hdr.Type {
	case "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, eris.Wrapf(model.ErrGeometry, "layer: decode %s: %v", path, err)
		}
		features = fc.Features
	case "Feature":
		var f geojson.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrapf(model.ErrGeometry, "layer: decode %s: %v", path, err)
		}
		features = []*geojson.Feature{&f}
	default:
		return nil, eris.Wrapf(model.ErrGeometry, "layer: %s is a %q, want FeatureCollection", path, hdr.Type)
	}

	l := &Layer{Path: path, CRS: crs, Features: make([]Feature, 0, len(features))}
	for i, f := range features {
		mp, err := geometryToMultiPolygon(f.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "layer: feature %d of %s", i, path)
		}
		l.Features = append(l.Features, Feature{Attrs: propertiesToAttrs(f.Properties), Geometry: mp})
	}
	return l, nil
}

func geometryToMultiPolygon(g geom.T) (*geom.MultiPolygon, error) {
	var mp *geom.MultiPolygon
	switch t := g.(type) {
	case nil:
		return nil, eris.Wrap(model.ErrGeometry, "null geometry")
	case *geom.Polygon:
		mp = geom.NewMultiPolygon(t.Layout())
		if err := mp.Push(t); err != nil {
			return nil, eris.Wrapf(model.ErrGeometry, "polygon: %v", err)
		}
	case *geom.MultiPolygon:
		mp = t
	default:
		return nil, eris.Wrapf(model.ErrGeometry, "unsupported geometry %T", g)
	}
	mp = toXY(mp)
	if mp.NumPolygons() == 0 {
		return nil, eris.Wrap(model.ErrGeometry, "empty geometry")
	}
	for i := range mp.NumPolygons() {
		p := mp.Polygon(i)
		for j := range p.NumLinearRings() {
			if p.LinearRing(j).NumCoords() < 4 {
				return nil, eris.Wrapf(model.ErrGeometry, "ring has %d positions, need 4", p.LinearRing(j).NumCoords())
			}
		}
	}
	return mp, nil
}

func propertiesToAttrs(props map[string]any) map[string]string {
	attrs := make(map[string]string, len(props))
	for k, v := range props {
		var s string
		switch t := v.(type) {
		case nil:
		case string:
			s = t
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(t)
		default:
			b, _ := json.Marshal(t)
			s = string(b)
		}
		attrs[strings.ToLower(strings.TrimSpace(k))] = s
	}
	return attrs
}
