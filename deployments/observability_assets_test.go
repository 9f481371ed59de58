package deployments

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
)

// exportedMetrics are the series registered by internal/observability.
var exportedMetrics = []string{
	"chartmesh_http_requests_total",
	"chartmesh_http_request_duration_seconds",
	"chartmesh_http_rate_limited_total",
	"chartmesh_resolutions_total",
	"chartmesh_aggregate_rows",
	"chartmesh_aggregate_duration_seconds",
	"chartmesh_coerced_cells_total",
	"chartmesh_dataset_loads_total",
}

func TestGrafanaDashboardJSONIsValid(t *testing.T) {
	root := repoRoot(t)
	path := filepath.Join(root, "deployments", "observability", "grafana", "chartmesh_dashboard.json")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dashboard file: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("dashboard JSON parse error: %v", err)
	}

	title, _ := decoded["title"].(string)
	if strings.TrimSpace(title) == "" {
		t.Fatal("dashboard title is required")
	}
	panels, ok := decoded["panels"].([]any)
	if !ok || len(panels) == 0 {
		t.Fatal("dashboard must include at least one panel")
	}
	assertKnownMetrics(t, string(content))
}

func TestPrometheusRulesContainExpectedAlerts(t *testing.T) {
	root := repoRoot(t)
	path := filepath.Join(root, "deployments", "observability", "prometheus", "chartmesh_rules.yaml")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read rules file: %v", err)
	}
	text := string(content)

	requiredAlerts := []string{
		"ChartMeshHTTPErrorRateHigh",
		"ChartMeshAggregateLatencyP95High",
		"ChartMeshCoercedCellRatioHigh",
		"ChartMeshDatasetLoadFailures",
		"ChartMeshClientsRateLimited",
	}
	for _, alertName := range requiredAlerts {
		if !strings.Contains(text, "alert: "+alertName) {
			t.Fatalf("rules missing alert %q", alertName)
		}
	}
}

func TestPrometheusScrapeExampleContainsMetricsPathAndRules(t *testing.T) {
	root := repoRoot(t)
	path := filepath.Join(root, "deployments", "observability", "prometheus", "prometheus-scrape.example.yaml")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read scrape example: %v", err)
	}
	text := string(content)

	for _, token := range []string{
		"metrics_path: /v1/metrics",
		"chartmesh_rules.yaml",
		"chartmesh_recording_rules.yaml",
		"job_name: chartmesh-api",
	} {
		if !strings.Contains(text, token) {
			t.Fatalf("scrape example missing %q", token)
		}
	}
}

func TestPrometheusRecordingRulesReferenceExportedMetrics(t *testing.T) {
	root := repoRoot(t)
	path := filepath.Join(root, "deployments", "observability", "prometheus", "chartmesh_recording_rules.yaml")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read recording rules file: %v", err)
	}
	text := string(content)

	requiredRecords := []string{
		"chartmesh:slo_http_error_rate_5m",
		"chartmesh:slo_http_latency_seconds_p95",
		"chartmesh:slo_aggregate_duration_seconds_p95",
		"chartmesh:slo_coerced_cell_ratio_15m",
		"chartmesh:slo_dataset_load_failures_15m",
		"chartmesh:slo_rate_limited_5m",
	}
	for _, recordName := range requiredRecords {
		if !strings.Contains(text, "record: "+recordName) {
			t.Fatalf("recording rules missing record %q", recordName)
		}
	}
	assertKnownMetrics(t, text)
}

var metricReference = regexp.MustCompile(`chartmesh_[a-z_]+`)

// assertKnownMetrics fails when text queries a chartmesh_ series that the
// service does not export. Histogram suffixes are accepted.
func assertKnownMetrics(t *testing.T, text string) {
	t.Helper()
	for _, reference := range metricReference.FindAllString(text, -1) {
		base := reference
		for _, suffix := range []string{"_bucket", "_sum", "_count"} {
			base = strings.TrimSuffix(base, suffix)
		}
		known := false
		for _, metric := range exportedMetrics {
			if base == metric {
				known = true
				break
			}
		}
		if !known {
			t.Fatalf("reference to unknown metric %q", reference)
		}
	}
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), ".."))
}
