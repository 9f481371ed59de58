package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/chartmesh/chartmesh/internal/chart"
)

const parquetReadBatch = 256

// DecodeParquet reads every row group of a parquet file. Nested leaves are
// named by their dotted path, nulls leave the cell absent and repeated
// values keep the first element.
func DecodeParquet(r io.Reader) (chart.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return chart.Dataset{}, fmt.Errorf("read parquet: %w", err)
	}
	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return chart.Dataset{}, fmt.Errorf("open parquet: %w", err)
	}

	leaves := file.Schema().Columns()
	header := make([]string, len(leaves))
	for i, leaf := range leaves {
		header[i] = strings.Join(leaf, ".")
	}
	b, err := newBuilder(header)
	if err != nil {
		return chart.Dataset{}, err
	}

	buf := make([]parquet.Row, parquetReadBatch)
	for _, rowGroup := range file.RowGroups() {
		if err := readRowGroup(rowGroup, header, buf, b); err != nil {
			return chart.Dataset{}, err
		}
	}
	return b.dataset(), nil
}

func readRowGroup(rowGroup parquet.RowGroup, header []string, buf []parquet.Row, b *builder) error {
	rows := rowGroup.Rows()
	defer func() { _ = rows.Close() }()

	for {
		n, err := rows.ReadRows(buf)
		for _, values := range buf[:n] {
			b.rows = append(b.rows, parquetRow(values, header))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read parquet rows: %w", err)
		}
		if n == 0 {
			return nil
		}
	}
}

func parquetRow(values parquet.Row, header []string) chart.Row {
	row := make(chart.Row, len(header))
	for _, value := range values {
		column := value.Column()
		if column < 0 || column >= len(header) || value.IsNull() {
			continue
		}
		name := header[column]
		if _, seen := row[name]; seen {
			continue
		}
		if cell, ok := formatParquetValue(value); ok {
			row[name] = cell
		}
	}
	return row
}

func formatParquetValue(value parquet.Value) (string, bool) {
	switch value.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(value.Boolean()), true
	case parquet.Int32:
		return strconv.FormatInt(int64(value.Int32()), 10), true
	case parquet.Int64:
		return strconv.FormatInt(value.Int64(), 10), true
	case parquet.Float:
		return strconv.FormatFloat(float64(value.Float()), 'f', -1, 32), true
	case parquet.Double:
		return strconv.FormatFloat(value.Double(), 'f', -1, 64), true
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(value.ByteArray()), true
	case parquet.Int96:
		return value.Int96().String(), true
	}
	return "", false
}
