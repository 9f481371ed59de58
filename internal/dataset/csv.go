package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/chartmesh/chartmesh/internal/chart"
)

var (
	utf8BOM             = []byte{0xEF, 0xBB, 0xBF}
	candidateDelimiters = []rune{',', '\t', ';', '|'}
)

// DecodeCSV parses delimited text with a header line. The delimiter is
// detected from the header. Short records leave trailing columns absent and
// extra fields are dropped.
func DecodeCSV(r io.Reader) (chart.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return chart.Dataset{}, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var b *builder
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return chart.Dataset{}, fmt.Errorf("parse csv: %w", err)
		}
		if b == nil {
			if isBlankRecord(record) {
				continue
			}
			if b, err = newBuilder(record); err != nil {
				return chart.Dataset{}, err
			}
			continue
		}
		b.add(record)
	}
	if b == nil {
		return chart.Dataset{}, ErrEmptyDataset
	}
	return b.dataset(), nil
}

// detectDelimiter counts candidate delimiters outside quotes on the first
// non-empty line and picks the most frequent. Ties go to the earlier
// candidate; no candidate at all means a comma.
func detectDelimiter(data []byte) rune {
	line := firstLine(data)
	counts := make(map[rune]int, len(candidateDelimiters))
	quoted := false
	for _, r := range string(line) {
		if r == '"' {
			quoted = !quoted
			continue
		}
		if !quoted {
			counts[r]++
		}
	}
	best, bestCount := ',', 0
	for _, candidate := range candidateDelimiters {
		if counts[candidate] > bestCount {
			best, bestCount = candidate, counts[candidate]
		}
	}
	return best
}

func firstLine(data []byte) []byte {
	for len(data) > 0 {
		line := data
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			data = nil
		}
		if len(bytes.TrimSpace(line)) > 0 {
			return line
		}
	}
	return nil
}

// EncodeCSV writes ds as comma separated text with a header line. Absent
// cells are written empty.
func EncodeCSV(w io.Writer, ds chart.Dataset) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ds.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for i, column := range ds.Columns {
			record[i] = row[column]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
