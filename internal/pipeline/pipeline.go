// Package pipeline runs the stages that turn a PN boundary, census blocks
// and a census table into tract weights.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pn-weights/internal/census"
	"github.com/sells-group/pn-weights/internal/fetcher"
	"github.com/sells-group/pn-weights/internal/layer"
	"github.com/sells-group/pn-weights/internal/model"
	"github.com/sells-group/pn-weights/internal/overlay"
	"github.com/sells-group/pn-weights/internal/projection"
	"github.com/sells-group/pn-weights/internal/tiger"
	"github.com/sells-group/pn-weights/internal/weights"
)

// Pipeline runs the stages in order. Every stage consumes the complete
// output of the previous one; any failure ends the run.
type Pipeline struct {
	fetcher fetcher.Fetcher
	census  *census.Client
}

// New creates a Pipeline that downloads through f.
func New(f fetcher.Fetcher, censusAPIKey string) *Pipeline {
	return &Pipeline{fetcher: f, census: census.NewClient(f, censusAPIKey)}
}

// Spatial is the outcome of the geometry half of a run.
type Spatial struct {
	Blocks []model.IntersectedBlock
	Stats  overlay.Stats
	// CRS is the block dataset's CRS; Blocks geometries are in it.
	CRS projection.CRS
}

// Run executes every stage and returns the result for the output sinks.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*model.RunResult, error) {
	res := &model.RunResult{
		RunID:        uuid.NewString(),
		Jurisdiction: opts.Jurisdiction.Normalized(),
		Profile:      opts.Profile.Name,
		StartedAt:    time.Now().UTC(),
		Threshold:    opts.Threshold,
		AreaCRS:      opts.AreaCRS.String(),
	}
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("run_id", res.RunID), zap.Stringer("jurisdiction", res.Jurisdiction))
	log.Info("starting run", zap.String("profile", opts.Profile.Name))

	if err := opts.Profile.Validate(); err != nil {
		return nil, eris.Wrap(err, "pipeline: census profile")
	}

	spatial, err := p.FilterBlocks(ctx, opts)
	if err != nil {
		return nil, err
	}
	res.Blocks = spatial.Blocks
	res.SRID = spatial.CRS.EPSG
	if res.Threshold == 0 {
		res.Threshold = overlay.DefaultThreshold
	}
	if opts.AreaCRS.IsZero() {
		res.AreaCRS = overlay.DefaultAreaCRS.String()
	}

	records, err := stage(ctx, log, "census", func() ([]model.DemographicRecord, error) {
		return p.census.Load(ctx, opts.Profile, opts.Jurisdiction)
	})
	if err != nil {
		return nil, err
	}

	var flagged []model.FlaggedRecord
	flagged, err = stage(ctx, log, "join", func() ([]model.FlaggedRecord, error) {
		f, report, err := weights.Join(records, spatial.Blocks)
		res.Join = report
		return f, err
	})
	if err != nil {
		return nil, err
	}

	res.Table, err = stage(ctx, log, "aggregate", func() (model.WeightTable, error) {
		return weights.Aggregate(flagged, weights.Fields{
			Label: opts.Profile.Label,
			Count: opts.Profile.CountField,
		}, opts.Jurisdiction)
	})
	if err != nil {
		return nil, err
	}

	undefined := 0
	for _, r := range res.Table.Rows {
		if !r.Defined() || !r.Under18Defined() {
			undefined++
		}
	}
	log.Info("run complete",
		zap.Int("pn_blocks", len(res.Blocks)),
		zap.Int("tracts", len(res.Table.Rows)),
		zap.Int("undefined_tracts", undefined),
		zap.Duration("elapsed", time.Since(res.StartedAt)),
	)
	return res, nil
}

// FilterBlocks loads both datasets, brings the PN into the blocks' CRS and
// keeps the blocks that lie mostly inside it.
func (p *Pipeline) FilterBlocks(ctx context.Context, opts Options) (*Spatial, error) {
	log := zap.L().With(zap.String("component", "pipeline"), zap.Stringer("jurisdiction", opts.Jurisdiction))
	if err := opts.Jurisdiction.Validate(); err != nil {
		return nil, eris.Wrap(err, "pipeline: filter blocks")
	}
	if opts.PNPath == "" {
		return nil, eris.Wrap(model.ErrGeometry, "pipeline: no PN dataset")
	}

	product, err := p.product(opts)
	if err != nil {
		return nil, err
	}

	blockLayer, err := stage(ctx, log, "load blocks", func() (*layer.Layer, error) {
		path := opts.BlocksPath
		if path == "" {
			if path, err = p.DownloadBlocks(ctx, opts); err != nil {
				return nil, err
			}
		}
		return layer.Open(path, layer.Options{DefaultCRS: opts.BlocksCRS, TempDir: opts.TempDir})
	})
	if err != nil {
		return nil, err
	}

	blocks, err := tiger.Blocks(blockLayer, product)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: decode blocks")
	}
	blocks = inJurisdiction(blocks, opts.Jurisdiction)
	if len(blocks) == 0 {
		return nil, eris.Wrapf(model.ErrGeometry, "pipeline: %s has no blocks in %s", blockLayer.Path, opts.Jurisdiction)
	}

	pn, err := stage(ctx, log, "load pn", func() (model.PNPolygon, error) {
		l, err := layer.Open(opts.PNPath, layer.Options{DefaultCRS: opts.PNCRS, TempDir: opts.TempDir})
		if err != nil {
			return model.PNPolygon{}, err
		}
		if l, err = layer.Reproject(l, blockLayer.CRS); err != nil {
			return model.PNPolygon{}, err
		}
		return layer.Union(l)
	})
	if err != nil {
		return nil, err
	}

	var stats overlay.Stats
	kept, err := stage(ctx, log, "spatial filter", func() ([]model.IntersectedBlock, error) {
		k, s, err := overlay.Filter(blocks, pn, blockLayer.CRS, overlay.Options{
			Threshold: opts.Threshold,
			AreaCRS:   opts.AreaCRS,
		})
		stats = s
		return k, err
	})
	if err != nil {
		return nil, err
	}
	if len(kept) == 0 {
		log.Warn("no block meets the threshold; every weight will be zero or undefined")
	}
	return &Spatial{Blocks: kept, Stats: stats, CRS: blockLayer.CRS}, nil
}

// DownloadBlocks fetches the TIGER/Line block shapefile of the jurisdiction's
// state and returns the extracted .shp path.
func (p *Pipeline) DownloadBlocks(ctx context.Context, opts Options) (string, error) {
	product, err := tiger.BlockProduct(opts.TigerYear)
	if err != nil {
		return "", err
	}
	j := opts.Jurisdiction.Normalized()
	url := tiger.DownloadURL(opts.TigerBaseURL, product, j.State)
	dir := filepath.Join(opts.TempDir, "tiger")
	if opts.TempDir == "" {
		dir = filepath.Join(".", "tiger")
	}
	path, err := tiger.Download(ctx, p.fetcher, url, dir)
	if err != nil {
		return "", eris.Wrapf(err, "pipeline: download blocks for state %s", j.State)
	}
	return path, nil
}

// product picks the attribute vintage. Local datasets fall back to the 2020
// names when no year is configured.
func (p *Pipeline) product(opts Options) (tiger.Product, error) {
	year := opts.TigerYear
	if year == 0 && opts.BlocksPath != "" {
		year = 2020
	}
	product, err := tiger.BlockProduct(year)
	if err != nil {
		return tiger.Product{}, eris.Wrap(err, "pipeline: block product")
	}
	return product, nil
}

func inJurisdiction(blocks []model.BlockPolygon, j model.Jurisdiction) []model.BlockPolygon {
	out := blocks[:0:0]
	for _, b := range blocks {
		if j.Contains(b.StateFP, b.CountyFP) {
			out = append(out, b)
		}
	}
	return out
}

// stage runs fn after checking for cancellation and logs its duration.
func stage[T any](ctx context.Context, log *zap.Logger, name string, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, eris.Wrapf(err, "pipeline: %s", name)
	}
	start := time.Now()
	v, err := fn()
	elapsed := time.Since(start)
	if err != nil {
		log.Error("stage failed", zap.String("stage", name), zap.Duration("elapsed", elapsed), zap.Error(err))
		return zero, eris.Wrapf(err, "pipeline: %s", name)
	}
	log.Debug("stage complete", zap.String("stage", name), zap.Duration("elapsed", elapsed))
	return v, nil
}
