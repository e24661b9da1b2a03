package output

import (
	"context"
	"io"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/pn-weights/internal/model"
)

// Sheet names in the workbook.
const (
	SheetWeights = "weights"
	SheetBlocks  = "blocks"
	SheetRun     = "run"
)

// XLSXWriter writes a workbook with the weights, the retained blocks and the
// run parameters. Undefined weights are left as empty cells.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter writes to path.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

// Write replaces the workbook with res.
func (w *XLSXWriter) Write(_ context.Context, res *model.RunResult) error {
	if err := checkResult(res); err != nil {
		return err
	}

	f := xlsx.NewFile()
	if err := addWeightsSheet(f, res.Table); err != nil {
		return err
	}
	if err := addBlocksSheet(f, res.Blocks); err != nil {
		return err
	}
	if err := addRunSheet(f, res); err != nil {
		return err
	}

	return writeFileAtomic(w.path, func(out io.Writer) error {
		return eris.Wrap(f.Write(out), "xlsx: write workbook")
	})
}

// Close is a no-op.
func (w *XLSXWriter) Close() error { return nil }

func addWeightsSheet(f *xlsx.File, t model.WeightTable) error {
	sheet, err := f.AddSheet(SheetWeights)
	if err != nil {
		return eris.Wrap(err, "xlsx: add weights sheet")
	}
	addStringRow(sheet, t.Header()...)
	for _, r := range t.Rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.State)
		row.AddCell().SetString(r.County)
		row.AddCell().SetString(r.Tract)
		setFloat(row.AddCell(), r.Weight)
		setFloat(row.AddCell(), r.Under18Weight)
	}
	return nil
}

func addBlocksSheet(f *xlsx.File, blocks []model.IntersectedBlock) error {
	sheet, err := f.AddSheet(SheetBlocks)
	if err != nil {
		return eris.Wrap(err, "xlsx: add blocks sheet")
	}
	addStringRow(sheet, "GEOID", "TotalArea", "AreaInPN", "Ratio")
	for _, ib := range blocks {
		row := sheet.AddRow()
		row.AddCell().SetString(ib.GEOID())
		setFloat(row.AddCell(), ib.Block.TotalArea)
		setFloat(row.AddCell(), ib.AreaInPN)
		setFloat(row.AddCell(), ib.Ratio())
	}
	return nil
}

func addRunSheet(f *xlsx.File, res *model.RunResult) error {
	sheet, err := f.AddSheet(SheetRun)
	if err != nil {
		return eris.Wrap(err, "xlsx: add run sheet")
	}
	addStringRow(sheet, "run_id", res.RunID)
	addStringRow(sheet, "state", res.Jurisdiction.Normalized().State)
	addStringRow(sheet, "county", res.Jurisdiction.Normalized().County)
	addStringRow(sheet, "profile", res.Profile)
	addStringRow(sheet, "area_crs", res.AreaCRS)
	addStringRow(sheet, "started_at", res.StartedAt.UTC().Format(time.RFC3339))

	row := sheet.AddRow()
	row.AddCell().SetString("threshold")
	setFloat(row.AddCell(), res.Threshold)

	for _, kv := range []struct {
		key string
		n   int
	}{
		{"records", res.Join.Records},
		{"records_in_pn", res.Join.InPN},
		{"excluded_records", res.Join.ExcludedRecords},
		{"unmatched_blocks", len(res.Join.UnmatchedBlocks)},
	} {
		row := sheet.AddRow()
		row.AddCell().SetString(kv.key)
		row.AddCell().SetInt(kv.n)
	}
	return nil
}

func addStringRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func setFloat(c *xlsx.Cell, v float64) {
	if math.IsNaN(v) {
		return
	}
	c.SetFloat(v)
}
