package output

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

func TestSQLiteWriter(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "pn.db")

	w, err := NewSQLiteWriter(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, sampleResult()))
	require.NoError(t, w.Close())

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	var profile, areaCRS string
	var records, srid int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT profile, area_crs, records, srid FROM runs WHERE run_id = ?`, sampleResult().RunID,
	).Scan(&profile, &areaCRS, &records, &srid))
	assert.Equal(t, "population", profile)
	assert.Equal(t, "EPSG:5070", areaCRS)
	assert.Equal(t, 3, records)
	assert.Equal(t, 4269, srid)

	var weight sql.NullFloat64
	require.NoError(t, db.QueryRowContext(ctx, `SELECT weight FROM tract_weights WHERE tract = '000100'`).Scan(&weight))
	assert.True(t, weight.Valid)
	assert.InDelta(t, 0.7, weight.Float64, 1e-12)

	require.NoError(t, db.QueryRowContext(ctx, `SELECT weight FROM tract_weights WHERE tract = '000200'`).Scan(&weight))
	assert.False(t, weight.Valid, "undefined weight is NULL")

	var blob []byte
	var ratio float64
	require.NoError(t, db.QueryRowContext(ctx, `SELECT ratio, geom FROM pn_blocks WHERE geoid = '421010001001000'`).Scan(&ratio, &blob))
	assert.InDelta(t, 0.6, ratio, 1e-12)
	g, err := wkb.Unmarshal(blob)
	require.NoError(t, err)
	mp, ok := g.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, sampleResult().Blocks[0].Block.Geometry.FlatCoords(), mp.FlatCoords())
}

func TestSQLiteWriterRejectsDuplicateRun(t *testing.T) {
	ctx := context.Background()
	w, err := NewSQLiteWriter(ctx, filepath.Join(t.TempDir(), "pn.db"))
	require.NoError(t, err)
	defer w.Close() //nolint:errcheck

	require.NoError(t, w.Write(ctx, sampleResult()))
	err = w.Write(ctx, sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert run")

	var n int
	require.NoError(t, w.db.QueryRowContext(ctx, `SELECT count(*) FROM tract_weights`).Scan(&n))
	assert.Equal(t, 2, n)
}
