package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chartmesh/chartmesh/internal/aggregate"
	"github.com/chartmesh/chartmesh/internal/chart"
	"github.com/chartmesh/chartmesh/internal/config"
	"github.com/chartmesh/chartmesh/internal/dataset"
	"github.com/chartmesh/chartmesh/internal/history"
	"github.com/chartmesh/chartmesh/internal/observability"
)

type ReadinessCheck func(ctx context.Context) error

// DatasetObjects loads and lists datasets kept in the object store.
type DatasetObjects interface {
	Load(ctx context.Context, key string, opts dataset.Options) (chart.Dataset, dataset.Format, error)
	List(ctx context.Context, prefix string) ([]dataset.ObjectInfo, error)
}

// TableLoader reads a database table as a dataset.
type TableLoader interface {
	Load(ctx context.Context, table string) (chart.Dataset, error)
}

type HistoryStore interface {
	Record(clientID, query string, instruction chart.Instruction) history.Entry
	Entries(clientID string) []history.Entry
	Clear(clientID string)
}

type Dependencies struct {
	Logger           *slog.Logger
	Readiness        ReadinessCheck
	AuthMiddleware   func(http.Handler) http.Handler
	RateLimiter      *RateLimiter
	DependencyTimout time.Duration
	Engine           aggregate.Engine
	Objects          DatasetObjects
	Tables           TableLoader
	History          HistoryStore
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	if deps.Engine == nil {
		deps.Engine = aggregate.NewLocal()
	}
	maxUploadBytes := cfg.Upload.MaxBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/resolve", func(w http.ResponseWriter, r *http.Request) {
		handleResolve(deps, maxUploadBytes, w, r)
	})
	protected.HandleFunc("POST /v1/aggregate", func(w http.ResponseWriter, r *http.Request) {
		handleAggregate(deps, maxUploadBytes, w, r)
	})
	protected.HandleFunc("POST /v1/charts", func(w http.ResponseWriter, r *http.Request) {
		handleChart(deps, maxUploadBytes, w, r)
	})
	protected.HandleFunc("POST /v1/charts/upload", func(w http.ResponseWriter, r *http.Request) {
		handleChartUpload(deps, maxUploadBytes, w, r)
	})
	protected.HandleFunc("GET /v1/datasets", func(w http.ResponseWriter, r *http.Request) {
		handleListDatasets(deps, w, r)
	})
	protected.HandleFunc("GET /v1/history", func(w http.ResponseWriter, r *http.Request) {
		handleHistory(deps, w, r)
	})
	protected.HandleFunc("DELETE /v1/history", func(w http.ResponseWriter, r *http.Request) {
		handleClearHistory(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if deps.RateLimiter != nil {
		protectedHandler = RateLimitMiddleware(deps.RateLimiter)(protectedHandler)
	}
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/resolve", protectedHandler)
	mux.Handle("POST /v1/aggregate", protectedHandler)
	mux.Handle("POST /v1/charts", protectedHandler)
	mux.Handle("POST /v1/charts/upload", protectedHandler)
	mux.Handle("GET /v1/datasets", protectedHandler)
	mux.Handle("GET /v1/history", protectedHandler)
	mux.Handle("DELETE /v1/history", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware(observability.ServeMuxRoute(mux)),
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	if len(cfg.HTTP.CORSOrigins) > 0 {
		middlewares = append(middlewares, cors.Handler(cors.Options{
			AllowedOrigins:   cfg.HTTP.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Client-ID", "X-Trace-ID"},
			ExposedHeaders:   []string{"X-Trace-ID", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	return chain(mux, middlewares...)
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if !cfg.ObjectStore.Enabled {
			return nil
		}
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

// PingCheck reports readiness of a dependency that can be pinged, such as
// the Postgres source pool.
func PingCheck(name string, ping func(ctx context.Context) error) ReadinessCheck {
	return func(ctx context.Context) error {
		if ping == nil {
			return nil
		}
		if err := ping(ctx); err != nil {
			return errors.New(name + " is not reachable: " + err.Error())
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

// writeJSON encodes payload before committing status, so a payload that
// cannot be encoded turns into a 500 envelope instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]any{
			"error_code": "RESPONSE_ENCODING_FAILED",
			"message":    "failed to encode response",
			"retryable":  false,
			"context":    map[string]any{"details": err.Error()},
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
