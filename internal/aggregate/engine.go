package aggregate

import (
	"context"
	"time"

	"github.com/chartmesh/chartmesh/internal/chart"
)

const BackendMemory = "memory"

type Request struct {
	Dataset     chart.Dataset
	Instruction chart.Instruction
	Sort        chart.Sort
}

type Stats struct {
	Backend      string        `json:"backend"`
	Rows         int           `json:"rows"`
	Groups       int           `json:"groups"`
	CoercedCells int           `json:"coerced_cells"`
	Duration     time.Duration `json:"duration_ns"`
}

type Result struct {
	Output chart.Output
	Stats  Stats
}

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
}

// Local runs the in-process aggregation.
type Local struct {
	now func() time.Time
}

func NewLocal() *Local {
	return &Local{now: time.Now}
}

func (l *Local) Execute(ctx context.Context, request Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	now := time.Now
	if l != nil && l.now != nil {
		now = l.now
	}
	start := now()
	output, g := aggregate(request.Dataset.Rows, request.Instruction, request.Sort)
	return Result{
		Output: output,
		Stats: Stats{
			Backend:      BackendMemory,
			Rows:         len(request.Dataset.Rows),
			Groups:       len(g.order),
			CoercedCells: g.coercedCells,
			Duration:     now().Sub(start),
		},
	}, nil
}

// CountCoerced reports how many value cells in rows were present but not
// fully numeric. Count instructions never read the value column.
func CountCoerced(rows []chart.Row, instruction chart.Instruction) int {
	if instruction.Aggregation == chart.AggregationCount {
		return 0
	}
	coerced := 0
	for _, row := range rows {
		cell, ok := row[instruction.Value]
		if !ok {
			continue
		}
		if _, exact := parseCell(cell); !exact {
			coerced++
		}
	}
	return coerced
}
