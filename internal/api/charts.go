package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chartmesh/chartmesh/internal/aggregate"
	"github.com/chartmesh/chartmesh/internal/auth"
	"github.com/chartmesh/chartmesh/internal/chart"
	"github.com/chartmesh/chartmesh/internal/dataset"
	"github.com/chartmesh/chartmesh/internal/history"
	"github.com/chartmesh/chartmesh/internal/observability"
	"github.com/chartmesh/chartmesh/internal/render"
	"github.com/chartmesh/chartmesh/internal/resolver"
	"github.com/chartmesh/chartmesh/internal/storage"
)

type resolveRequest struct {
	Query     string   `json:"query"`
	Columns   []string `json:"columns"`
	ChartKind string   `json:"chart_kind"`
}

type aggregateRequest struct {
	Instruction chart.Instruction `json:"instruction"`
	Sort        string            `json:"sort"`
	Dataset     chart.Dataset     `json:"dataset"`
}

type aggregateResponse struct {
	Output chart.Output    `json:"output"`
	Render render.Payload  `json:"render"`
	Stats  aggregate.Stats `json:"stats"`
}

type chartRequest struct {
	Query     string         `json:"query"`
	ChartKind string         `json:"chart_kind"`
	Sort      string         `json:"sort"`
	Dataset   *chart.Dataset `json:"dataset"`
	CSV       string         `json:"csv"`
	ObjectKey string         `json:"object_key"`
	Sheet     string         `json:"sheet"`
	Table     string         `json:"table"`
}

type chartResponse struct {
	Instruction chart.Instruction   `json:"instruction"`
	Resolution  resolver.Resolution `json:"resolution"`
	Output      chart.Output        `json:"output"`
	Render      render.Payload      `json:"render"`
	Stats       aggregate.Stats     `json:"stats"`
	History     *history.Entry      `json:"history,omitempty"`
}

func handleResolve(deps Dependencies, maxBytes int64, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleChartReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	var request resolveRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if len(request.Columns) == 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "COLUMNS_REQUIRED", "columns must not be empty", false, nil)
		return
	}
	override, err := chart.ParseOptionalKind(request.ChartKind)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_CHART_KIND", err.Error(), false, nil)
		return
	}

	resolution := resolver.Explain(request.Query, request.Columns, override)
	observeResolution(deps, r, request.Query, resolution)
	writeJSON(w, http.StatusOK, resolution)
}

func handleAggregate(deps Dependencies, maxBytes int64, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleChartReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	var request aggregateRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	sortDirective, err := chart.ParseSort(request.Sort)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_SORT", err.Error(), false, nil)
		return
	}
	ds := request.Dataset
	if err := request.Instruction.Validate(ds.Columns); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_INSTRUCTION", err.Error(), false, nil)
		return
	}

	result, payload, ok := execute(deps, w, r, request.Instruction, sortDirective, ds)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, aggregateResponse{Output: result.Output, Render: payload, Stats: result.Stats})
}

func handleChart(deps Dependencies, maxBytes int64, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleChartReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	var request chartRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	ds, format, err := loadRequestDataset(r.Context(), deps, request)
	if format != "" || err != nil {
		observability.ObserveDatasetLoad(string(format), err)
	}
	if err != nil {
		writeDatasetError(r.Context(), w, err)
		return
	}
	runChart(deps, w, r, request.Query, request.ChartKind, request.Sort, ds)
}

// runChart resolves query against ds, executes it and records the query in
// the caller's history.
func runChart(deps Dependencies, w http.ResponseWriter, r *http.Request, query, rawKind, rawSort string, ds chart.Dataset) {
	override, err := chart.ParseOptionalKind(rawKind)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_CHART_KIND", err.Error(), false, nil)
		return
	}
	sortDirective, err := chart.ParseSort(rawSort)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_SORT", err.Error(), false, nil)
		return
	}
	if len(ds.Columns) == 0 {
		writeError(r.Context(), w, http.StatusUnprocessableEntity, "EMPTY_DATASET", "dataset has no columns", false, nil)
		return
	}

	resolution := resolver.Explain(query, ds.Columns, override)
	observeResolution(deps, r, query, resolution)

	result, payload, ok := execute(deps, w, r, resolution.Instruction, sortDirective, ds)
	if !ok {
		return
	}

	response := chartResponse{
		Instruction: resolution.Instruction,
		Resolution:  resolution,
		Output:      result.Output,
		Render:      payload,
		Stats:       result.Stats,
	}
	if deps.History != nil {
		entry := deps.History.Record(auth.ClientID(r), query, resolution.Instruction)
		response.History = &entry
	}
	writeJSON(w, http.StatusOK, response)
}

func execute(deps Dependencies, w http.ResponseWriter, r *http.Request, instruction chart.Instruction, sortDirective chart.Sort, ds chart.Dataset) (aggregate.Result, render.Payload, bool) {
	result, err := deps.Engine.Execute(r.Context(), aggregate.Request{
		Dataset:     ds,
		Instruction: instruction,
		Sort:        sortDirective,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "AGGREGATION_CANCELED", "aggregation was canceled", true, nil)
			return aggregate.Result{}, render.Payload{}, false
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "AGGREGATION_FAILED", "aggregation failed", true, map[string]any{"details": err.Error()})
		return aggregate.Result{}, render.Payload{}, false
	}
	observability.ObserveAggregate(result.Stats.Backend, result.Stats.Rows, result.Stats.CoercedCells, result.Stats.Duration)

	payload, err := render.Build(instruction, result.Output)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "RENDER_FAILED", "failed to lay out chart", false, map[string]any{"details": err.Error()})
		return aggregate.Result{}, render.Payload{}, false
	}
	return result, payload, true
}

func loadRequestDataset(ctx context.Context, deps Dependencies, request chartRequest) (chart.Dataset, dataset.Format, error) {
	sources := 0
	for _, set := range []bool{request.Dataset != nil, request.CSV != "", request.ObjectKey != "", request.Table != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return chart.Dataset{}, "", errDatasetSource
	}

	switch {
	case request.Dataset != nil:
		return *request.Dataset, "", nil
	case request.CSV != "":
		ds, err := dataset.DecodeCSV(strings.NewReader(request.CSV))
		return ds, dataset.FormatCSV, err
	case request.ObjectKey != "":
		if deps.Objects == nil {
			return chart.Dataset{}, "", errSourceNotConfigured
		}
		return deps.Objects.Load(ctx, request.ObjectKey, dataset.Options{Sheet: request.Sheet})
	default:
		if deps.Tables == nil {
			return chart.Dataset{}, "", errSourceNotConfigured
		}
		ds, err := deps.Tables.Load(ctx, request.Table)
		return ds, "postgres", err
	}
}

var (
	errDatasetSource       = errors.New("exactly one of dataset, csv, object_key or table is required")
	errSourceNotConfigured = errors.New("dataset source is not configured")
)

func writeDatasetError(ctx context.Context, w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, errDatasetSource):
		writeError(ctx, w, http.StatusBadRequest, "DATASET_SOURCE_INVALID", err.Error(), false, nil)
	case errors.Is(err, errSourceNotConfigured):
		writeError(ctx, w, http.StatusNotImplemented, "SOURCE_NOT_CONFIGURED", err.Error(), false, nil)
	case errors.Is(err, dataset.ErrUnsupportedFormat):
		writeError(ctx, w, http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT", err.Error(), false, nil)
	case errors.Is(err, dataset.ErrEmptyDataset):
		writeError(ctx, w, http.StatusUnprocessableEntity, "EMPTY_DATASET", err.Error(), false, nil)
	case errors.Is(err, dataset.ErrDatasetTooLarge), errors.As(err, &maxBytesErr):
		writeError(ctx, w, http.StatusRequestEntityTooLarge, "DATASET_TOO_LARGE", err.Error(), false, nil)
	case errors.Is(err, storage.ErrInvalidKey):
		writeError(ctx, w, http.StatusBadRequest, "INVALID_OBJECT_KEY", err.Error(), false, nil)
	case errors.Is(err, storage.ErrObjectNotFound):
		writeError(ctx, w, http.StatusNotFound, "DATASET_NOT_FOUND", "dataset object was not found", false, map[string]any{"details": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(ctx, w, http.StatusServiceUnavailable, "DATASET_LOAD_CANCELED", "dataset load was canceled", true, nil)
	default:
		writeError(ctx, w, http.StatusBadRequest, "DATASET_LOAD_FAILED", "failed to load dataset", false, map[string]any{"details": err.Error()})
	}
}

func observeResolution(deps Dependencies, r *http.Request, query string, resolution resolver.Resolution) {
	instruction := resolution.Instruction
	observability.ObserveResolution(string(instruction.Kind), string(instruction.Aggregation))
	if deps.Logger != nil {
		deps.Logger.DebugContext(r.Context(), "resolved chart instruction",
			slog.String("trace_id", observability.TraceIDFromContext(r.Context())),
			slog.String("query", query),
			slog.String("chart_kind", string(instruction.Kind)),
			slog.String("kind_source", string(resolution.KindSource)),
			slog.String("group_by", instruction.GroupBy),
			slog.String("group_by_source", string(resolution.GroupBySource)),
			slog.String("value_column", instruction.Value),
			slog.String("value_source", string(resolution.ValueSource)),
			slog.String("aggregation", string(instruction.Aggregation)),
		)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(r.Context(), w, http.StatusRequestEntityTooLarge, "DATASET_TOO_LARGE", "request body exceeds upload limit", false, map[string]any{"limit_bytes": maxBytesErr.Limit})
			return false
		}
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid request body", false, map[string]any{"details": err.Error()})
		return false
	}
	return true
}

func requireRole(r *http.Request, role string) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasRole(role) || identity.HasRole(auth.RoleChartAdmin) {
		return nil
	}
	return errors.New("missing required role \"" + role + "\"")
}
