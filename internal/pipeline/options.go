package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/pn-weights/internal/census"
	"github.com/sells-group/pn-weights/internal/config"
	"github.com/sells-group/pn-weights/internal/model"
	"github.com/sells-group/pn-weights/internal/projection"
)

// Options are the inputs of one run.
type Options struct {
	Jurisdiction model.Jurisdiction

	// BlocksPath is a local block dataset; empty downloads TIGER/Line.
	BlocksPath string
	PNPath     string
	// BlocksCRS and PNCRS apply when a dataset declares no CRS.
	BlocksCRS string
	PNCRS     string

	TigerYear    int
	TigerBaseURL string
	TempDir      string

	Threshold float64
	AreaCRS   projection.CRS

	// Profile is only needed by Run.
	Profile census.Profile
}

// OptionsFromConfig resolves the configured CRS and census profile.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	var (
		areaCRS projection.CRS
		err     error
	)
	if cfg.Filter.AreaCRS != "" {
		if areaCRS, err = projection.Parse(cfg.Filter.AreaCRS); err != nil {
			return Options{}, eris.Wrap(err, "pipeline: filter.area_crs")
		}
	}
	opts := Options{
		Jurisdiction: cfg.FIPS(),
		BlocksPath:   cfg.Geometry.BlocksPath,
		PNPath:       cfg.Geometry.PNPath,
		BlocksCRS:    cfg.Geometry.BlocksCRS,
		PNCRS:        cfg.Geometry.PNCRS,
		TigerYear:    cfg.Geometry.TigerYear,
		TigerBaseURL: cfg.Geometry.TigerBaseURL,
		TempDir:      cfg.Geometry.TempDir,
		Threshold:    cfg.Filter.Threshold,
		AreaCRS:      areaCRS,
	}
	if cfg.Census.Profile != "" {
		opts.Profile, err = census.LoadProfile(cfg.Census.Profile)
		if err != nil {
			return Options{}, eris.Wrap(err, "pipeline: census profile")
		}
	}
	return opts, nil
}
