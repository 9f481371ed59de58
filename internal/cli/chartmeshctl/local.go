package chartmeshctl

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chartmesh/chartmesh/internal/aggregate"
	"github.com/chartmesh/chartmesh/internal/aggregate/duckdb"
	"github.com/chartmesh/chartmesh/internal/chart"
	"github.com/chartmesh/chartmesh/internal/config"
	"github.com/chartmesh/chartmesh/internal/dataset"
	"github.com/chartmesh/chartmesh/internal/demo"
	"github.com/chartmesh/chartmesh/internal/render"
	"github.com/chartmesh/chartmesh/internal/resolver"
)

type chartResult struct {
	Instruction chart.Instruction   `json:"instruction"`
	Resolution  resolver.Resolution `json:"resolution"`
	Output      chart.Output        `json:"output"`
	Render      render.Payload      `json:"render"`
	Stats       aggregate.Stats     `json:"stats"`
}

func newChartCommand(stdout io.Writer) *cobra.Command {
	var (
		query     string
		chartKind string
		sortFlag  string
		sheet     string
		format    string
		backend   string
		tempDir   string
		compact   bool
	)
	cmd := &cobra.Command{
		Use:   "chart FILE",
		Short: "Resolve a query against a local csv, xlsx or parquet file and print the chart",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			override, err := chart.ParseOptionalKind(chartKind)
			if err != nil {
				return usageError{err}
			}
			sortDirective, err := chart.ParseSort(sortFlag)
			if err != nil {
				return usageError{err}
			}
			engine, err := newEngine(backend, tempDir)
			if err != nil {
				return usageError{err}
			}

			ds, err := loadFile(args[0], format, sheet)
			if err != nil {
				return err
			}
			if len(ds.Columns) == 0 {
				return fmt.Errorf("%s has no columns", args[0])
			}

			resolution := resolver.Explain(query, ds.Columns, override)
			result, err := engine.Execute(cmd.Context(), aggregate.Request{
				Dataset:     ds,
				Instruction: resolution.Instruction,
				Sort:        sortDirective,
			})
			if err != nil {
				return fmt.Errorf("aggregate: %w", err)
			}
			payload, err := render.Build(resolution.Instruction, result.Output)
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			return writeJSONTo(stdout, chartResult{
				Instruction: resolution.Instruction,
				Resolution:  resolution,
				Output:      result.Output,
				Render:      payload,
				Stats:       result.Stats,
			}, !compact)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&query, "query", "q", "", "free-text chart request, e.g. \"average sales by region as a pie\"")
	flags.StringVar(&chartKind, "chart-kind", "", "force the chart kind")
	flags.StringVar(&sortFlag, "sort", "", "sort flat results: asc or desc")
	flags.StringVar(&sheet, "sheet", "", "workbook sheet (xlsx only)")
	flags.StringVar(&format, "format", "", "file format override: csv, xlsx or parquet")
	flags.StringVar(&backend, "backend", config.BackendMemory, "aggregation backend: memory or duckdb")
	flags.StringVar(&tempDir, "temp-dir", "", "scratch directory for the duckdb backend")
	flags.BoolVar(&compact, "compact", false, "print single-line JSON")
	return cmd
}

func newResolveCommand(stdout io.Writer) *cobra.Command {
	var (
		columns   []string
		file      string
		sheet     string
		chartKind string
	)
	cmd := &cobra.Command{
		Use:   "resolve QUERY...",
		Short: "Print the chart instruction a query resolves to",
		Args:  usageArgs(cobra.ArbitraryArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			override, err := chart.ParseOptionalKind(chartKind)
			if err != nil {
				return usageError{err}
			}
			if file != "" {
				ds, err := loadFile(file, "", sheet)
				if err != nil {
					return err
				}
				columns = ds.Columns
			}
			if len(columns) == 0 {
				return usageError{fmt.Errorf("either --columns or --file is required")}
			}
			return writeJSONTo(stdout, resolver.Explain(strings.Join(args, " "), columns, override), true)
		},
	}
	flags := cmd.Flags()
	flags.StringSliceVar(&columns, "columns", nil, "dataset column names in header order")
	flags.StringVar(&file, "file", "", "read column names from a dataset file")
	flags.StringVar(&sheet, "sheet", "", "workbook sheet (xlsx only)")
	flags.StringVar(&chartKind, "chart-kind", "", "force the chart kind")
	return cmd
}

func newDemoCommand(stdout io.Writer) *cobra.Command {
	var (
		rows       int
		seed       int64
		dirtyRatio float64
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Write a synthetic sales dataset as CSV",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(_ *cobra.Command, _ []string) error {
			if rows <= 0 {
				return usageError{fmt.Errorf("--rows must be > 0")}
			}
			if dirtyRatio < 0 || dirtyRatio > 1 {
				return usageError{fmt.Errorf("--dirty-ratio must be between 0 and 1")}
			}
			return dataset.EncodeCSV(stdout, demo.NewGenerator(seed, dirtyRatio).Dataset(rows))
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&rows, "rows", 20, "number of rows")
	flags.Int64Var(&seed, "seed", 1, "random seed")
	flags.Float64Var(&dirtyRatio, "dirty-ratio", 0, "share of rows with a malformed or missing cell")
	return cmd
}

func newEngine(backend, tempDir string) (aggregate.Engine, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", config.BackendMemory:
		return aggregate.NewLocal(), nil
	case config.BackendDuckDB:
		return duckdb.NewEngine(tempDir), nil
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}

func loadFile(path, rawFormat, sheet string) (chart.Dataset, error) {
	var (
		format dataset.Format
		err    error
	)
	if strings.TrimSpace(rawFormat) != "" {
		format, err = dataset.ParseFormat(rawFormat)
	} else {
		format, err = dataset.FormatFromName(path)
	}
	if err != nil {
		return chart.Dataset{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		return chart.Dataset{}, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = file.Close() }()

	ds, err := dataset.Decode(format, file, dataset.Options{Sheet: sheet})
	if err != nil {
		return chart.Dataset{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return ds, nil
}

func writeJSONTo(w io.Writer, value any, indent bool) error {
	encoder := json.NewEncoder(w)
	if indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(value)
}
