package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/chartmesh/chartmesh/internal/auth"
	"github.com/chartmesh/chartmesh/internal/dataset"
	"github.com/chartmesh/chartmesh/internal/observability"
)

const multipartMemory = 8 << 20

// handleChartUpload accepts a multipart form with a dataset file plus the
// query, chart_kind, sort and sheet fields.
func handleChartUpload(deps Dependencies, maxBytes int64, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleChartReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(r.Context(), w, http.StatusRequestEntityTooLarge, "DATASET_TOO_LARGE", "upload exceeds size limit", false, map[string]any{"limit_bytes": maxBytesErr.Limit})
			return
		}
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_MULTIPART", "invalid multipart form", false, map[string]any{"details": err.Error()})
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "FILE_REQUIRED", "multipart field \"file\" is required", false, nil)
		return
	}
	defer func() { _ = file.Close() }()

	format, err := uploadFormat(r.FormValue("format"), header.Filename)
	if err != nil {
		observability.ObserveDatasetLoad("", err)
		writeDatasetError(r.Context(), w, err)
		return
	}
	ds, err := dataset.Decode(format, file, dataset.Options{Sheet: strings.TrimSpace(r.FormValue("sheet"))})
	observability.ObserveDatasetLoad(string(format), err)
	if err != nil {
		writeDatasetError(r.Context(), w, err)
		return
	}

	runChart(deps, w, r, r.FormValue("query"), r.FormValue("chart_kind"), r.FormValue("sort"), ds)
}

// uploadFormat prefers an explicit format field over the file extension.
func uploadFormat(explicit, filename string) (dataset.Format, error) {
	if strings.TrimSpace(explicit) != "" {
		return dataset.ParseFormat(explicit)
	}
	return dataset.FormatFromName(filename)
}
