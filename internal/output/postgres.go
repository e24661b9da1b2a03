package output

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/sells-group/pn-weights/internal/db"
	"github.com/sells-group/pn-weights/internal/model"
)

// DefaultSRID tags block geometries whose CRS has no EPSG code.
const DefaultSRID = 4269

const postgresMigration = `
CREATE SCHEMA IF NOT EXISTS pn;

CREATE TABLE IF NOT EXISTS pn.runs (
	run_id           uuid PRIMARY KEY,
	state            text NOT NULL,
	county           text NOT NULL,
	profile          text NOT NULL,
	label            text NOT NULL,
	threshold        double precision NOT NULL,
	area_crs         text NOT NULL,
	blocks           integer NOT NULL,
	records          integer NOT NULL,
	excluded_records integer NOT NULL,
	unmatched_blocks integer NOT NULL,
	started_at       timestamptz NOT NULL,
	finished_at      timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pn.tract_weights (
	run_id         uuid NOT NULL REFERENCES pn.runs(run_id) ON DELETE CASCADE,
	state          text NOT NULL,
	county         text NOT NULL,
	tract          text NOT NULL,
	total          bigint NOT NULL,
	total_in_pn    bigint NOT NULL,
	under18        bigint NOT NULL,
	under18_in_pn  bigint NOT NULL,
	weight         double precision,
	under18_weight double precision,
	PRIMARY KEY (run_id, tract)
);

CREATE TABLE IF NOT EXISTS pn.pn_blocks (
	run_id     uuid NOT NULL REFERENCES pn.runs(run_id) ON DELETE CASCADE,
	geoid      text NOT NULL,
	total_area double precision NOT NULL,
	area_in_pn double precision NOT NULL,
	ratio      double precision NOT NULL,
	geom_ewkb  bytea,
	PRIMARY KEY (run_id, geoid)
);

CREATE TABLE IF NOT EXISTS pn.current_weights (
	state          text NOT NULL,
	county         text NOT NULL,
	tract          text NOT NULL,
	label          text NOT NULL,
	weight         double precision,
	under18_weight double precision,
	run_id         uuid NOT NULL,
	updated_at     timestamptz NOT NULL,
	PRIMARY KEY (state, county, tract, label)
);
`

var (
	weightColumns = []string{"run_id", "state", "county", "tract", "total", "total_in_pn", "under18", "under18_in_pn", "weight", "under18_weight"}
	blockColumns  = []string{"run_id", "geoid", "total_area", "area_in_pn", "ratio", "geom_ewkb"}
	currentCols   = []string{"state", "county", "tract", "label", "weight", "under18_weight", "run_id", "updated_at"}
)

// PostgresWriter stores runs in the pn schema. Each run's history rows are
// written in one transaction; pn.current_weights is then upserted with the
// latest weight per tract and label.
type PostgresWriter struct {
	pool    db.Pool
	migrate bool
}

// NewPostgresWriter connects to databaseURL.
func NewPostgresWriter(ctx context.Context, databaseURL string) (*PostgresWriter, error) {
	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: open output")
	}
	return NewPostgresWriterWithPool(pool), nil
}

// NewPostgresWriterWithPool writes through an existing pool. The schema is
// created on the first Write.
func NewPostgresWriterWithPool(pool db.Pool) *PostgresWriter {
	return &PostgresWriter{pool: pool, migrate: true}
}

// Write stores res.
func (w *PostgresWriter) Write(ctx context.Context, res *model.RunResult) error {
	if err := checkResult(res); err != nil {
		return err
	}
	runID, err := uuid.Parse(res.RunID)
	if err != nil {
		return eris.Wrapf(err, "postgres: run ID %q", res.RunID)
	}

	if w.migrate {
		if _, err := w.pool.Exec(ctx, postgresMigration); err != nil {
			return eris.Wrap(err, "postgres: migrate")
		}
		w.migrate = false
	}

	weights := make([][]any, 0, len(res.Table.Rows))
	current := make([][]any, 0, len(res.Table.Rows))
	now := time.Now().UTC()
	for _, r := range res.Table.Rows {
		weights = append(weights, []any{runID, r.State, r.County, r.Tract,
			r.Total, r.TotalInPN, r.Under18, r.Under18InPN, nullable(r.Weight), nullable(r.Under18Weight)})
		current = append(current, []any{r.State, r.County, r.Tract, res.Table.Label,
			nullable(r.Weight), nullable(r.Under18Weight), runID, now})
	}

	srid := res.SRID
	if srid == 0 {
		srid = DefaultSRID
	}
	blocks := make([][]any, 0, len(res.Blocks))
	for _, ib := range res.Blocks {
		var g []byte
		if ib.Block.Geometry != nil {
			g, err = ewkb.Marshal(ib.Block.Geometry.Clone().SetSRID(srid), ewkb.NDR)
			if err != nil {
				return eris.Wrapf(err, "postgres: encode block %s", ib.GEOID())
			}
		}
		blocks = append(blocks, []any{runID, ib.GEOID(), ib.Block.TotalArea, ib.AreaInPN, ib.Ratio(), g})
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	j := res.Jurisdiction.Normalized()
	if _, err := tx.Exec(ctx, `INSERT INTO pn.runs
		(run_id, state, county, profile, label, threshold, area_crs, blocks, records, excluded_records, unmatched_blocks, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		runID, j.State, j.County, res.Profile, res.Table.Label, res.Threshold, res.AreaCRS,
		len(res.Blocks), res.Join.Records, res.Join.ExcludedRecords, len(res.Join.UnmatchedBlocks), res.StartedAt.UTC(),
	); err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", runID)
	}
	if _, err := db.CopyFrom(ctx, tx, "pn.tract_weights", weightColumns, weights); err != nil {
		return eris.Wrap(err, "postgres: tract weights")
	}
	if _, err := db.CopyFrom(ctx, tx, "pn.pn_blocks", blockColumns, blocks); err != nil {
		return eris.Wrap(err, "postgres: blocks")
	}
	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit")
	}

	n, err := db.BulkUpsert(ctx, w.pool, db.UpsertConfig{
		Table:        "pn.current_weights",
		Columns:      currentCols,
		ConflictKeys: []string{"state", "county", "tract", "label"},
	}, current)
	if err != nil {
		return eris.Wrap(err, "postgres: current weights")
	}

	zap.L().Info("run stored",
		zap.String("component", "output"),
		zap.String("run_id", runID.String()),
		zap.Int("tracts", len(weights)),
		zap.Int("blocks", len(blocks)),
		zap.Int64("current_rows", n),
	)
	return nil
}

// Close closes the pool.
func (w *PostgresWriter) Close() error {
	w.pool.Close()
	return nil
}
