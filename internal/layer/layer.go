// Package layer reads polygon datasets (shapefiles, zipped shapefiles and
// GeoJSON) into multipolygon features tagged with their coordinate reference
// system.
package layer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/pn-weights/internal/model"
	"github.com/sells-group/pn-weights/internal/projection"
)

// Feature is one record of a polygon layer. Attribute keys are lowercased.
type Feature struct {
	Attrs    map[string]string
	Geometry *geom.MultiPolygon
}

// Attr returns an attribute by case-insensitive name.
func (f Feature) Attr(name string) (string, bool) {
	v, ok := f.Attrs[strings.ToLower(name)]
	return v, ok
}

// Layer is a set of polygon features sharing one CRS.
type Layer struct {
	Path     string
	CRS      projection.CRS
	Features []Feature
}

// Options controls how a dataset is opened.
type Options struct {
	// DefaultCRS ("EPSG:nnnn") applies when the dataset does not declare one.
	DefaultCRS string
	// TempDir receives extracted archives. Empty uses os.TempDir.
	TempDir string
}

// Open reads the dataset at path, dispatching on its extension.
func Open(path string, opts Options) (*Layer, error) {
	log := zap.L().With(zap.String("component", "layer"), zap.String("path", path))

	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(model.ErrGeometry, "layer: open %s: %v", path, err)
	}

	var (
		l   *Layer
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		l, err = readShapefile(path, opts)
	case ".geojson", ".json":
		l, err = readGeoJSON(path, opts)
	case ".zip":
		l, err = openArchive(path, opts)
	default:
		return nil, eris.Wrapf(model.ErrGeometry, "layer: unsupported dataset %s", path)
	}
	if err != nil {
		return nil, err
	}

	log.Debug("layer loaded", zap.Int("features", len(l.Features)), zap.Stringer("crs", l.CRS))
	return l, nil
}

func openArchive(path string, opts Options) (*Layer, error) {
	base := opts.TempDir
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "layer: create extract dir")
	}
	if err := ExtractZIP(path, dir); err != nil {
		return nil, eris.Wrapf(model.ErrGeometry, "layer: extract %s: %v", path, err)
	}
	for _, ext := range []string{".shp", ".geojson", ".json"} {
		if found, err := FindFileByExt(dir, ext); err == nil {
			l, err := Open(found, opts)
			if err != nil {
				return nil, err
			}
			l.Path = path
			return l, nil
		}
	}
	return nil, eris.Wrapf(model.ErrGeometry, "layer: no dataset inside %s", path)
}

// resolveCRS picks the declared CRS, falling back to opts.DefaultCRS.
func resolveCRS(declared *projection.CRS, opts Options, path string) (projection.CRS, error) {
	if declared != nil {
		return *declared, nil
	}
	if opts.DefaultCRS != "" {
		return projection.Parse(opts.DefaultCRS)
	}
	return projection.CRS{}, eris.Wrapf(model.ErrGeometry, "layer: %s has no CRS and none was configured", path)
}

// Bounds returns the extent of all features.
func (l *Layer) Bounds() *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	for _, f := range l.Features {
		b.Extend(f.Geometry)
	}
	return b
}

// Reproject returns a copy of l with every coordinate converted to crs.
// Ring structure is preserved.
func Reproject(l *Layer, crs projection.CRS) (*Layer, error) {
	tr, err := projection.NewTransformer(l.CRS, crs)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: reproject %s", l.Path)
	}
	out := &Layer{Path: l.Path, CRS: crs, Features: make([]Feature, len(l.Features))}
	for i, f := range l.Features {
		out.Features[i] = Feature{Attrs: f.Attrs, Geometry: tr.MultiPolygon(f.Geometry)}
	}
	return out, nil
}

// Union merges every feature of l into one PN polygon. Overlapping parts are
// kept as-is; the overlay treats the collection as the union of its parts.
func Union(l *Layer) (model.PNPolygon, error) {
	if len(l.Features) == 0 {
		return model.PNPolygon{}, eris.Wrapf(model.ErrGeometry, "layer: %s has no features", l.Path)
	}
	mp := geom.NewMultiPolygon(geom.XY)
	for _, f := range l.Features {
		for i := range f.Geometry.NumPolygons() {
			if err := mp.Push(f.Geometry.Polygon(i)); err != nil {
				return model.PNPolygon{}, eris.Wrapf(model.ErrGeometry, "layer: merge polygon: %v", err)
			}
		}
	}
	return model.PNPolygon{Geometry: mp}, nil
}
