package output

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestXLSXWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.xlsx")
	w := NewXLSXWriter(path)
	require.NoError(t, w.Write(context.Background(), sampleResult()))
	require.NoError(t, w.Close())

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	weights, ok := f.Sheet[SheetWeights]
	require.True(t, ok)
	require.Len(t, weights.Rows, 3)
	assert.Equal(t, "TotalPopulationWeight", weights.Rows[0].Cells[3].String())
	assert.Equal(t, "000100", weights.Rows[1].Cells[2].String())
	v, err := weights.Rows[1].Cells[3].Float()
	require.NoError(t, err)
	assert.InDelta(t, 0.7, v, 1e-12)
	assert.Equal(t, "", cellText(weights.Rows[2], 3), "undefined weight is an empty cell")

	blocks, ok := f.Sheet[SheetBlocks]
	require.True(t, ok)
	require.Len(t, blocks.Rows, 2)
	assert.Equal(t, "421010001001000", blocks.Rows[1].Cells[0].String())

	run, ok := f.Sheet[SheetRun]
	require.True(t, ok)
	assert.Equal(t, "run_id", run.Rows[0].Cells[0].String())
	assert.Equal(t, "6f1c2a9e-8c1d-4f7a-9a51-3a7c1f0e2b44", run.Rows[0].Cells[1].String())
}

func cellText(row *xlsx.Row, i int) string {
	if i >= len(row.Cells) {
		return ""
	}
	return row.Cells[i].String()
}
