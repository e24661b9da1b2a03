package output

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkb"
	_ "modernc.org/sqlite"

	"github.com/sells-group/pn-weights/internal/model"
)

// SQLiteWriter appends runs to a SQLite database. Undefined weights are
// stored as NULL and block geometries as little-endian WKB.
type SQLiteWriter struct {
	db *sql.DB
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	run_id           TEXT PRIMARY KEY,
	state            TEXT NOT NULL,
	county           TEXT NOT NULL,
	profile          TEXT NOT NULL,
	label            TEXT NOT NULL,
	threshold        REAL NOT NULL,
	area_crs         TEXT NOT NULL,
	srid             INTEGER NOT NULL,
	blocks           INTEGER NOT NULL,
	records          INTEGER NOT NULL,
	excluded_records INTEGER NOT NULL,
	unmatched_blocks INTEGER NOT NULL,
	started_at       DATETIME NOT NULL,
	finished_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS tract_weights (
	run_id         TEXT NOT NULL REFERENCES runs(run_id),
	state          TEXT NOT NULL,
	county         TEXT NOT NULL,
	tract          TEXT NOT NULL,
	total          INTEGER NOT NULL,
	total_in_pn    INTEGER NOT NULL,
	under18        INTEGER NOT NULL,
	under18_in_pn  INTEGER NOT NULL,
	weight         REAL,
	under18_weight REAL,
	PRIMARY KEY (run_id, tract)
);

CREATE TABLE IF NOT EXISTS pn_blocks (
	run_id     TEXT NOT NULL REFERENCES runs(run_id),
	geoid      TEXT NOT NULL,
	total_area REAL NOT NULL,
	area_in_pn REAL NOT NULL,
	ratio      REAL NOT NULL,
	geom       BLOB,
	PRIMARY KEY (run_id, geoid)
);

CREATE INDEX IF NOT EXISTS idx_runs_jurisdiction ON runs(state, county);
`

// NewSQLiteWriter opens dsn and creates the tables.
func NewSQLiteWriter(ctx context.Context, dsn string) (*SQLiteWriter, error) {
	if dsn == "" {
		return nil, eris.New("sqlite: empty DSN")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteMigration); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "sqlite: migrate")
	}
	return &SQLiteWriter{db: db}, nil
}

// Write stores res in one transaction.
func (w *SQLiteWriter) Write(ctx context.Context, res *model.RunResult) error {
	if err := checkResult(res); err != nil {
		return err
	}
	if res.RunID == "" {
		return eris.New("sqlite: result has no run ID")
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	j := res.Jurisdiction.Normalized()
	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(run_id, state, county, profile, label, threshold, area_crs, srid, blocks, records, excluded_records, unmatched_blocks, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, j.State, j.County, res.Profile, res.Table.Label, res.Threshold, res.AreaCRS, res.SRID,
		len(res.Blocks), res.Join.Records, res.Join.ExcludedRecords, len(res.Join.UnmatchedBlocks),
		res.StartedAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", res.RunID)
	}

	weightStmt, err := tx.PrepareContext(ctx, `INSERT INTO tract_weights
		(run_id, state, county, tract, total, total_in_pn, under18, under18_in_pn, weight, under18_weight)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare tract_weights")
	}
	defer weightStmt.Close() //nolint:errcheck

	for _, r := range res.Table.Rows {
		if _, err := weightStmt.ExecContext(ctx, res.RunID, r.State, r.County, r.Tract,
			r.Total, r.TotalInPN, r.Under18, r.Under18InPN, nullable(r.Weight), nullable(r.Under18Weight)); err != nil {
			return eris.Wrapf(err, "sqlite: insert tract %s", r.Tract)
		}
	}

	blockStmt, err := tx.PrepareContext(ctx, `INSERT INTO pn_blocks
		(run_id, geoid, total_area, area_in_pn, ratio, geom) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare pn_blocks")
	}
	defer blockStmt.Close() //nolint:errcheck

	for _, ib := range res.Blocks {
		var g []byte
		if ib.Block.Geometry != nil {
			if g, err = wkb.Marshal(ib.Block.Geometry, wkb.NDR); err != nil {
				return eris.Wrapf(err, "sqlite: encode block %s", ib.GEOID())
			}
		}
		if _, err := blockStmt.ExecContext(ctx, res.RunID, ib.GEOID(), ib.Block.TotalArea, ib.AreaInPN, ib.Ratio(), g); err != nil {
			return eris.Wrapf(err, "sqlite: insert block %s", ib.GEOID())
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// Close closes the database.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
