package dataset

import (
	"fmt"
	"io"
	"slices"

	"github.com/xuri/excelize/v2"

	"github.com/chartmesh/chartmesh/internal/chart"
)

// DecodeXLSX reads one worksheet. The first row with any content is the
// header; cells come back as their formatted display text.
func DecodeXLSX(r io.Reader, sheet string) (chart.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return chart.Dataset{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return chart.Dataset{}, ErrEmptyDataset
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if !slices.Contains(sheets, sheet) {
		return chart.Dataset{}, fmt.Errorf("sheet %q not found in workbook", sheet)
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return chart.Dataset{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	var b *builder
	for _, record := range records {
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
