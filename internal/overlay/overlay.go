// Package overlay selects the census blocks that lie mostly inside a Promise
// Neighborhood, comparing areas in an equal-area projection.
package overlay

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/pn-weights/internal/model"
	"github.com/sells-group/pn-weights/internal/projection"
)

// DefaultThreshold is the minimum share of a block's area that must fall
// inside the PN for the block to count as a PN block. The test is inclusive.
const DefaultThreshold = 0.5

// overshoot is the relative excess of intersection over block area that is
// attributed to rounding and clamped.
const overshoot = 1e-6

// DefaultAreaCRS is the equal-area projection areas are measured in.
var DefaultAreaCRS = projection.ConusAlbers

// Options controls the spatial filter.
type Options struct {
	// Threshold is the inclusive minimum AreaInPN/TotalArea. Zero means
	// DefaultThreshold.
	Threshold float64
	// AreaCRS is the projection areas are measured in. The zero value
	// means DefaultAreaCRS.
	AreaCRS projection.CRS
}

func (o Options) withDefaults() Options {
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.AreaCRS.IsZero() {
		o.AreaCRS = DefaultAreaCRS
	}
	return o
}

// Stats summarises one Filter call.
type Stats struct {
	Blocks     int
	Candidates int
	Kept       int
}

// Filter measures each block and its overlap with pn in opts.AreaCRS and
// returns, in input order, the blocks whose overlap ratio meets the
// threshold. Both inputs are in crs; returned geometries stay in crs with
// TotalArea filled in. A block without area is a data-quality error.
func Filter(blocks []model.BlockPolygon, pn model.PNPolygon, crs projection.CRS, opts Options) ([]model.IntersectedBlock, Stats, error) {
	opts = opts.withDefaults()
	log := zap.L().With(zap.String("component", "overlay"))

	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, Stats{}, eris.Errorf("overlay: threshold %v outside [0, 1]", opts.Threshold)
	}
	if pn.Geometry == nil {
		return nil, Stats{}, eris.Wrap(model.ErrGeometry, "overlay: PN has no geometry")
	}

	tr, err := projection.NewTransformer(crs, opts.AreaCRS)
	if err != nil {
		return nil, Stats{}, eris.Wrap(err, "overlay: area projection")
	}

	pnProj := tr.MultiPolygon(pn.Geometry)
	pnShape := make(shape, 0, pnProj.NumPolygons())
	for _, pg := range newShape(pnProj) {
		if (shape{pg}).area() > 0 {
			pnShape = append(pnShape, pg)
		}
	}
	if len(pnShape) == 0 {
		return nil, Stats{}, eris.Wrap(model.ErrGeometry, "overlay: PN has no area")
	}
	pnBounds := pnProj.Bounds()

	stats := Stats{Blocks: len(blocks)}
	var kept []model.IntersectedBlock
	for _, blk := range blocks {
		if blk.Geometry == nil {
			return nil, stats, eris.Wrapf(model.ErrGeometry, "overlay: block %s has no geometry", blk.GEOID())
		}
		proj := tr.MultiPolygon(blk.Geometry)
		s := newShape(proj)

		blk.TotalArea = s.area()
		if !(blk.TotalArea > 0) {
			return nil, stats, eris.Wrapf(model.ErrDataQuality, "overlay: block %s has zero area", blk.GEOID())
		}
		if !proj.Bounds().Overlaps(geom.XY, pnBounds) {
			continue
		}
		stats.Candidates++

		inPN, err := clamp(intersectionArea(s, pnShape), blk.TotalArea)
		if err != nil {
			return nil, stats, eris.Wrapf(err, "overlay: block %s", blk.GEOID())
		}

		ib := model.IntersectedBlock{Block: blk, AreaInPN: inPN}
		if ib.Ratio() >= opts.Threshold {
			kept = append(kept, ib)
		}
	}
	stats.Kept = len(kept)

	log.Info("spatial filter complete",
		zap.Int("blocks", stats.Blocks),
		zap.Int("candidates", stats.Candidates),
		zap.Int("kept", stats.Kept),
		zap.Float64("threshold", opts.Threshold),
		zap.Stringer("area_crs", opts.AreaCRS),
	)
	return kept, stats, nil
}

// clamp absorbs rounding at either end of [0, total].
func clamp(area, total float64) (float64, error) {
	tol := total * overshoot
	switch {
	case math.IsNaN(area):
		return 0, eris.Wrap(model.ErrGeometry, "intersection area is NaN")
	case area < -tol:
		return 0, eris.Wrapf(model.ErrGeometry, "negative intersection area %g", area)
	case area > total+tol:
		return 0, eris.Wrapf(model.ErrGeometry, "intersection area %g exceeds block area %g", area, total)
	}
	return math.Max(0, math.Min(area, total)), nil
}
