// Package output writes run results to CSV, XLSX, SQLite or PostgreSQL.
package output

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pn-weights/internal/model"
)

// Writer persists one or more run results.
type Writer interface {
	Write(ctx context.Context, res *model.RunResult) error
	Close() error
}

// Format names an output sink.
type Format string

// Supported formats.
const (
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
	FormatSQLite   Format = "sqlite"
	FormatPostgres Format = "postgres"
)

// DefaultNaNValue is written for undefined weights in CSV output.
const DefaultNaNValue = "NaN"

// Options selects and configures a Writer.
type Options struct {
	Format      Format
	Path        string // file path, or SQLite DSN
	DatabaseURL string // PostgreSQL only
	NaNValue    string // CSV only
}

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatSQLite, FormatPostgres:
		return f, nil
	}
	return "", eris.Errorf("output: unknown format %q (want csv, xlsx, sqlite or postgres)", s)
}

// New opens the writer for opts.Format.
func New(ctx context.Context, opts Options) (Writer, error) {
	switch opts.Format {
	case FormatCSV:
		if opts.Path == "" {
			return nil, eris.New("output: csv needs a path")
		}
		return NewCSVWriter(opts.Path, opts.NaNValue), nil
	case FormatXLSX:
		if opts.Path == "" {
			return nil, eris.New("output: xlsx needs a path")
		}
		return NewXLSXWriter(opts.Path), nil
	case FormatSQLite:
		return NewSQLiteWriter(ctx, opts.Path)
	case FormatPostgres:
		return NewPostgresWriter(ctx, opts.DatabaseURL)
	}
	return nil, eris.Errorf("output: unknown format %q", opts.Format)
}

// formatFloat renders v in the shortest exact form, or nan when v is NaN.
func formatFloat(v float64, nan string) string {
	if math.IsNaN(v) {
		return nan
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// nullable maps NaN to SQL NULL.
func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func checkResult(res *model.RunResult) error {
	if res == nil {
		return eris.New("output: nil result")
	}
	if res.Table.Label == "" {
		return eris.New("output: result has no weight label")
	}
	return nil
}
