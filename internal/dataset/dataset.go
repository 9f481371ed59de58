// Package dataset turns uploaded files, bucket objects and database tables
// into chart.Dataset values. Every cell is kept as text; numeric coercion is
// left to the aggregation engine.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/chartmesh/chartmesh/internal/chart"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	ErrEmptyDataset      = errors.New("dataset has no header row")
)

type Format string

const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatParquet Format = "parquet"
)

var extensionFormats = map[string]Format{
	".csv":     FormatCSV,
	".tsv":     FormatCSV,
	".txt":     FormatCSV,
	".xlsx":    FormatXLSX,
	".xlsm":    FormatXLSX,
	".parquet": FormatParquet,
}

type Options struct {
	// Sheet selects a workbook sheet. Empty means the first sheet.
	Sheet string
}

// FormatFromName picks a format from a file name or object key extension.
func FormatFromName(name string) (Format, error) {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(name)))
	if format, ok := extensionFormats[ext]; ok {
		return format, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatCSV, "tsv", "txt":
		return FormatCSV, nil
	case FormatXLSX, "xlsm", "excel":
		return FormatXLSX, nil
	case FormatParquet:
		return FormatParquet, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
}

func Decode(format Format, r io.Reader, opts Options) (chart.Dataset, error) {
	switch format {
	case FormatCSV:
		return DecodeCSV(r)
	case FormatXLSX:
		return DecodeXLSX(r, opts.Sheet)
	case FormatParquet:
		return DecodeParquet(r)
	}
	return chart.Dataset{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// builder maps positional records onto a header. Empty header cells are
// dropped; a repeated header name keeps its first position and the later
// cell wins.
type builder struct {
	header  []string
	columns []string
	rows    []chart.Row
}

func newBuilder(header []string) (*builder, error) {
	b := &builder{header: header}
	seen := map[string]bool{}
	for _, name := range header {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		b.columns = append(b.columns, name)
	}
	if len(b.columns) == 0 {
		return nil, ErrEmptyDataset
	}
	return b, nil
}

func (b *builder) add(record []string) {
	if isBlankRecord(record) {
		return
	}
	row := make(chart.Row, len(b.columns))
	for i, cell := range record {
		if i >= len(b.header) {
			break
		}
		if name := b.header[i]; name != "" {
			row[name] = cell
		}
	}
	b.rows = append(b.rows, row)
}

func (b *builder) dataset() chart.Dataset {
	rows := b.rows
	if rows == nil {
		rows = []chart.Row{}
	}
	return chart.Dataset{Columns: b.columns, Rows: rows}
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
