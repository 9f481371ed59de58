package demo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chartmesh/chartmesh/internal/chart"
)

// Driver posts generated datasets and queries to a running API at a fixed
// interval. It exists to exercise the service end to end.
type Driver struct {
	cfg       Config
	log       *slog.Logger
	http      *http.Client
	generator *Generator
}

type chartRequest struct {
	Query   string        `json:"query"`
	Dataset chart.Dataset `json:"dataset"`
}

type chartResponse struct {
	Instruction chart.Instruction `json:"instruction"`
	Stats       struct {
		Backend      string `json:"backend"`
		Rows         int    `json:"rows"`
		Groups       int    `json:"groups"`
		CoercedCells int    `json:"coerced_cells"`
	} `json:"stats"`
}

func NewDriver(cfg Config, logger *slog.Logger, client *http.Client) (*Driver, error) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if cfg.Rows <= 0 {
		return nil, fmt.Errorf("rows must be > 0")
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	return &Driver{
		cfg:       cfg,
		log:       logger,
		http:      client,
		generator: NewGenerator(cfg.Seed, cfg.DirtyRatio),
	}, nil
}

func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := d.sendOnce(ctx); err != nil {
			d.log.Error("failed to send demo chart request", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *Driver) sendOnce(ctx context.Context) error {
	request := chartRequest{
		Query:   d.generator.NextQuery(),
		Dataset: d.generator.Dataset(d.cfg.Rows),
	}

	var response chartResponse
	status, body, err := d.doJSON(ctx, http.MethodPost, "/v1/charts", request, &response)
	if err != nil {
		return fmt.Errorf("chart request failed: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("chart request status %d: %s", status, strings.TrimSpace(string(body)))
	}

	d.log.Info(
		"resolved demo chart",
		slog.String("query", request.Query),
		slog.String("chart_kind", string(response.Instruction.Kind)),
		slog.String("group_by", response.Instruction.GroupBy),
		slog.String("value_column", response.Instruction.Value),
		slog.String("aggregation", string(response.Instruction.Aggregation)),
		slog.String("backend", response.Stats.Backend),
		slog.Int("rows", response.Stats.Rows),
		slog.Int("groups", response.Stats.Groups),
		slog.Int("coerced_cells", response.Stats.CoercedCells),
	)
	return nil
}

func (d *Driver) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) (int, []byte, error) {
	var payload io.Reader
	if requestBody != nil {
		raw, err := json.Marshal(requestBody)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.cfg.APIBaseURL+path, payload)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if d.cfg.ClientID != "" {
		req.Header.Set("X-Client-ID", d.cfg.ClientID)
	}
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if d.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", d.cfg.APIKey)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	if responseBody != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, responseBody); err != nil {
			return resp.StatusCode, body, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, body, nil
}
