package output

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/pn-weights/internal/model"
)

func sampleResult() *model.RunResult {
	square := geom.NewMultiPolygon(geom.XY)
	_ = square.Push(geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{-75.17, 39.95}, {-75.16, 39.95}, {-75.16, 39.96}, {-75.17, 39.96}, {-75.17, 39.95}},
	}))
	return &model.RunResult{
		RunID:        "6f1c2a9e-8c1d-4f7a-9a51-3a7c1f0e2b44",
		Jurisdiction: model.Jurisdiction{State: "42", County: "101"},
		Profile:      "population",
		StartedAt:    time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Threshold:    0.5,
		AreaCRS:      "EPSG:5070",
		SRID:         4269,
		Blocks: []model.IntersectedBlock{{
			Block: model.BlockPolygon{
				StateFP: "42", CountyFP: "101", TractCE: "000100", BlockCE: "1000",
				Geometry: square, TotalArea: 100,
			},
			AreaInPN: 60,
		}},
		Join: model.JoinReport{Records: 3, Kept: 3, InPN: 2, PNTracts: []string{"42101000100"}},
		Table: model.WeightTable{
			Label: "TotalPopulation",
			Rows: []model.TractWeight{
				{State: "42", County: "101", Tract: "000100", Total: 100, TotalInPN: 70, Under18: 17, Under18InPN: 12, Weight: 0.7, Under18Weight: 12.0 / 17.0},
				{State: "42", County: "101", Tract: "000200", Weight: math.NaN(), Under18Weight: math.NaN()},
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"csv": FormatCSV, "XLSX": FormatXLSX, " sqlite ": FormatSQLite, "Postgres": FormatPostgres} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("parquet")
	assert.ErrorContains(t, err, "unknown format")
}

func TestNewValidatesOptions(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, Options{Format: FormatCSV})
	assert.ErrorContains(t, err, "needs a path")
	_, err = New(ctx, Options{Format: FormatXLSX})
	assert.ErrorContains(t, err, "needs a path")
	_, err = New(ctx, Options{Format: FormatSQLite})
	assert.ErrorContains(t, err, "empty DSN")
	_, err = New(ctx, Options{Format: FormatPostgres})
	assert.ErrorContains(t, err, "database URL is empty")
	_, err = New(ctx, Options{Format: "parquet"})
	assert.Error(t, err)

	w, err := New(ctx, Options{Format: FormatCSV, Path: filepath.Join(t.TempDir(), "w.csv")})
	require.NoError(t, err)
	assert.IsType(t, &CSVWriter{}, w)
}

func TestWriteWeightsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWeightsCSV(&buf, sampleResult().Table, "NA"))
	assert.Equal(t,
		"State,County,Tract,TotalPopulationWeight,TotalPopulationUnder18Weight\n"+
			"42,101,000100,0.7,0.7058823529411765\n"+
			"42,101,000200,NA,NA\n",
		buf.String())
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "weights.csv")
	w := NewCSVWriter(path, "")
	require.NoError(t, w.Write(context.Background(), sampleResult()))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "42,101,000200,NaN,NaN\n")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file removed")
}

func TestCSVWriterRejectsEmptyResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.csv")
	w := NewCSVWriter(path, "")
	assert.Error(t, w.Write(context.Background(), nil))
	assert.Error(t, w.Write(context.Background(), &model.RunResult{}))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteBlocksCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBlocksCSV(&buf, sampleResult().Blocks))
	assert.Equal(t,
		"GEOID,STATEFP,COUNTYFP,TRACTCE,BLOCKCE,TotalArea,AreaInPN,Ratio\n"+
			"421010001001000,42,101,000100,1000,100,60,0.6\n",
		buf.String())

	path := filepath.Join(t.TempDir(), "blocks.csv")
	require.NoError(t, WriteBlocksFile(path, sampleResult().Blocks))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(data))
}
