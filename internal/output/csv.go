package output

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pn-weights/internal/model"
)

// CSVWriter writes the weight table of a result to a file.
type CSVWriter struct {
	path string
	nan  string
}

// NewCSVWriter writes to path, rendering undefined weights as nan
// (DefaultNaNValue when empty).
func NewCSVWriter(path, nan string) *CSVWriter {
	if nan == "" {
		nan = DefaultNaNValue
	}
	return &CSVWriter{path: path, nan: nan}
}

// Write replaces the file with res's weight table.
func (w *CSVWriter) Write(_ context.Context, res *model.RunResult) error {
	if err := checkResult(res); err != nil {
		return err
	}
	return writeFileAtomic(w.path, func(out io.Writer) error {
		return WriteWeightsCSV(out, res.Table, w.nan)
	})
}

// Close is a no-op.
func (w *CSVWriter) Close() error { return nil }

// WriteWeightsCSV writes the table with its header
// State,County,Tract,<Label>Weight,<Label>Under18Weight.
func WriteWeightsCSV(out io.Writer, t model.WeightTable, nan string) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(t.Header()); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, r := range t.Rows {
		row := []string{r.State, r.County, r.Tract, formatFloat(r.Weight, nan), formatFloat(r.Under18Weight, nan)}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "csv: write tract %s", r.Tract)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}

// BlocksHeader is the header of WriteBlocksCSV.
var BlocksHeader = []string{"GEOID", "STATEFP", "COUNTYFP", "TRACTCE", "BLOCKCE", "TotalArea", "AreaInPN", "Ratio"}

// WriteBlocksCSV writes one row per retained block.
func WriteBlocksCSV(out io.Writer, blocks []model.IntersectedBlock) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(BlocksHeader); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, ib := range blocks {
		b := ib.Block
		row := []string{
			ib.GEOID(),
			model.ZeroPad(b.StateFP, model.StateWidth),
			model.ZeroPad(b.CountyFP, model.CountyWidth),
			model.ZeroPad(b.TractCE, model.TractWidth),
			model.ZeroPad(b.BlockCE, model.BlockWidth),
			formatFloat(b.TotalArea, ""),
			formatFloat(ib.AreaInPN, ""),
			formatFloat(ib.Ratio(), ""),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "csv: write block %s", ib.GEOID())
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}

// WriteBlocksFile writes WriteBlocksCSV output to path.
func WriteBlocksFile(path string, blocks []model.IntersectedBlock) error {
	return writeFileAtomic(path, func(out io.Writer) error {
		return WriteBlocksCSV(out, blocks)
	})
}

// writeFileAtomic writes through a temporary file in the target directory
// and renames it into place, so a failed run leaves no partial file.
func writeFileAtomic(path string, fn func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "output: create directory %s", dir)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return eris.Wrapf(err, "output: create %s", path)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := fn(tmp); err != nil {
		tmp.Close() //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "output: close %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "output: rename into %s", path)
	}
	return nil
}
