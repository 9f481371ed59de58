package demo

import (
	"reflect"
	"testing"

	"github.com/chartmesh/chartmesh/internal/aggregate"
)

func TestGeneratorDeterministicForSeed(t *testing.T) {
	g1 := NewGenerator(42, 0.2)
	g2 := NewGenerator(42, 0.2)

	for i := 0; i < 20; i++ {
		r1 := g1.NextRow()
		r2 := g2.NextRow()
		if !reflect.DeepEqual(r1, r2) {
			t.Fatalf("row %d differs: %#v vs %#v", i, r1, r2)
		}
	}
	if g1.NextQuery() != g2.NextQuery() {
		t.Fatal("queries differ for the same seed")
	}
}

func TestGeneratorCleanRowsAreNumeric(t *testing.T) {
	dataset := NewGenerator(7, 0).Dataset(100)
	if len(dataset.Rows) != 100 {
		t.Fatalf("rows = %d", len(dataset.Rows))
	}
	if !reflect.DeepEqual(dataset.Columns, Columns()) {
		t.Fatalf("Columns = %#v", dataset.Columns)
	}
	for i, row := range dataset.Rows {
		if len(row) != len(columns) {
			t.Fatalf("row %d = %#v", i, row)
		}
		if aggregate.ParseNumber(row["Sales"]) <= 0 || aggregate.ParseNumber(row["Units"]) <= 0 {
			t.Fatalf("row %d has non-positive measures: %#v", i, row)
		}
		if row["Region"] == "" {
			t.Fatalf("row %d has empty region", i)
		}
	}
}

func TestGeneratorDirtyRatioProducesDirtyRows(t *testing.T) {
	dataset := NewGenerator(3, 1).Dataset(50)
	dirty := 0
	for _, row := range dataset.Rows {
		_, hasUnits := row["Units"]
		sales := row["Sales"]
		if row["Region"] == "" || !hasUnits || aggregate.ParseNumber(sales) == 0 || sales == "1,200" || sales == "12kg" {
			dirty++
		}
	}
	if dirty != len(dataset.Rows) {
		t.Fatalf("dirty rows = %d, want %d", dirty, len(dataset.Rows))
	}
}
