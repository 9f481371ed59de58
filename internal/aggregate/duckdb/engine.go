package duckdb

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/parquet-go/parquet-go"

	"github.com/chartmesh/chartmesh/internal/aggregate"
	"github.com/chartmesh/chartmesh/internal/chart"
)

const (
	Backend   = "duckdb"
	tableName = "chart_rows"
)

type projectedRow struct {
	Ordinal int64   `parquet:"ordinal"`
	Key     string  `parquet:"group_key"`
	Value   float64 `parquet:"metric"`
}

// Engine reduces rows inside an embedded DuckDB. Cells are coerced in Go
// before they reach SQL so the numbers match the in-memory engine.
type Engine struct {
	TempDir string
}

func NewEngine(tempDir string) *Engine {
	return &Engine{TempDir: tempDir}
}

func (e *Engine) Execute(ctx context.Context, request aggregate.Request) (aggregate.Result, error) {
	start := time.Now()
	instruction := request.Instruction
	hierarchical := instruction.Kind.Shape() == chart.ShapeHierarchy
	rows := request.Dataset.Rows

	stats := aggregate.Stats{
		Backend:      Backend,
		Rows:         len(rows),
		CoercedCells: aggregate.CountCoerced(rows, instruction),
	}
	if len(rows) == 0 {
		stats.Duration = time.Since(start)
		return aggregate.Result{Output: emptyOutput(hierarchical), Stats: stats}, nil
	}

	workDir, err := os.MkdirTemp(e.TempDir, "chartmesh-aggregate-")
	if err != nil {
		return aggregate.Result{}, fmt.Errorf("create aggregate temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	localPath := filepath.Join(workDir, tableName+".parquet")
	if err := writeProjection(localPath, project(rows, instruction, hierarchical)); err != nil {
		return aggregate.Result{}, fmt.Errorf("write local parquet file %q: %w", localPath, err)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return aggregate.Result{}, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, quoteIdent(tableName), quoteStringArray([]string{localPath}))
	if _, err := db.ExecContext(ctx, viewSQL); err != nil {
		return aggregate.Result{}, fmt.Errorf("create view for table %q: %w", tableName, err)
	}

	entries, err := queryEntries(ctx, db, buildSQL(instruction.Aggregation, request.Sort, hierarchical))
	if err != nil {
		return aggregate.Result{}, err
	}

	stats.Groups = len(entries)
	stats.Duration = time.Since(start)
	return aggregate.Result{Output: buildOutput(entries, hierarchical), Stats: stats}, nil
}

func project(rows []chart.Row, instruction chart.Instruction, hierarchical bool) []projectedRow {
	projected := make([]projectedRow, 0, len(rows))
	for i, row := range rows {
		key := row[instruction.GroupBy]
		if hierarchical && key == "" {
			key = aggregate.UnknownLabel
		}
		value := 0.0
		if instruction.Aggregation != chart.AggregationCount {
			value = aggregate.ParseNumber(row[instruction.Value])
		}
		projected = append(projected, projectedRow{Ordinal: int64(i), Key: key, Value: value})
	}
	return projected
}

func writeProjection(path string, rows []projectedRow) error {
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[projectedRow](buf)
	if _, err := writer.Write(rows); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return writeFile(path, buf)
}

func buildSQL(aggregation chart.Aggregation, sortDirective chart.Sort, hierarchical bool) string {
	var valueExpr string
	switch aggregation {
	case chart.AggregationAverage:
		valueExpr = finiteOrZero("SUM(metric) / COUNT(*)")
	case chart.AggregationCount:
		valueExpr = "CAST(COUNT(*) AS DOUBLE)"
	default:
		valueExpr = finiteOrZero("SUM(metric)")
	}

	valueColumn := "value"
	orderBy := "first_seen"
	if hierarchical {
		valueColumn = fmt.Sprintf("GREATEST(value, CAST(%v AS DOUBLE))", chart.MinSegmentValue)
	} else {
		switch sortDirective {
		case chart.SortAscending:
			orderBy = "value ASC, first_seen"
		case chart.SortDescending:
			orderBy = "value DESC, first_seen"
		}
	}

	return fmt.Sprintf(
		`SELECT group_key, %s AS value FROM (SELECT group_key, %s AS value, MIN(ordinal) AS first_seen FROM %s GROUP BY group_key) AS g ORDER BY %s`,
		valueColumn, valueExpr, quoteIdent(tableName), orderBy,
	)
}

// finiteOrZero mirrors the in-memory engine, which reports an overflowed
// reduction as 0.
func finiteOrZero(expr string) string {
	return fmt.Sprintf("CASE WHEN isfinite(%[1]s) THEN %[1]s ELSE 0 END", expr)
}

func queryEntries(ctx context.Context, db *sql.DB, sqlText string) ([]chart.Entry, error) {
	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("execute aggregate query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]chart.Entry, 0)
	for rows.Next() {
		var entry chart.Entry
		if err := rows.Scan(&entry.Label, &entry.Value); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

func buildOutput(entries []chart.Entry, hierarchical bool) chart.Output {
	if !hierarchical {
		return chart.Output{Shape: chart.ShapeFlat, Flat: chart.Flat(entries)}
	}
	children := make([]chart.Node, 0, len(entries))
	for _, entry := range entries {
		children = append(children, chart.Node{Name: entry.Label, ID: entry.Label, Value: entry.Value})
	}
	return chart.Output{
		Shape:     chart.ShapeHierarchy,
		Hierarchy: &chart.Hierarchy{Root: chart.Node{Name: chart.RootName, Children: children}},
	}
}

func emptyOutput(hierarchical bool) chart.Output {
	return buildOutput(make([]chart.Entry, 0), hierarchical)
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}
