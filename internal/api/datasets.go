package api

import (
	"errors"
	"net/http"

	"github.com/chartmesh/chartmesh/internal/auth"
	"github.com/chartmesh/chartmesh/internal/storage"
)

func handleListDatasets(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Objects == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SOURCE_NOT_CONFIGURED", "object store is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleChartReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	prefix := r.URL.Query().Get("prefix")
	datasets, err := deps.Objects.List(r.Context(), prefix)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_PREFIX", err.Error(), false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusBadGateway, "OBJECT_STORE_ERROR", "failed to list datasets", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prefix": prefix, "datasets": datasets})
}

func handleHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "query history is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleChartReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	clientID := auth.ClientID(r)
	writeJSON(w, http.StatusOK, map[string]any{"client_id": clientID, "entries": deps.History.Entries(clientID)})
}

func handleClearHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "query history is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleChartReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	clientID := auth.ClientID(r)
	deps.History.Clear(clientID)
	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared", "client_id": clientID})
}
