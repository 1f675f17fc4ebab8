package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apihttp "callboard/internal/api/http"
	callstate "callboard/internal/callstate/domain"
	"callboard/internal/callstate/interfaces"
)

// exportHistoryLimit bounds export size to the repository's retention
// window, which never exceeds a few hundred entries.
const exportHistoryLimit = 1000

// HistoryProvider supplies the entries to export. Implemented by the
// call state service.
type HistoryProvider interface {
	History(ctx context.Context, limit int) ([]callstate.HistoryEntry, error)
}

// ExportHandler serves GET /api/v1/exports/history.{csv,xlsx,pdf}.
type ExportHandler struct {
	history HistoryProvider
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(history HistoryProvider) (*ExportHandler, error) {
	if history == nil {
		return nil, errors.New("export handler: nil history provider")
	}
	return &ExportHandler{history: history}, nil
}

// ServeHTTP handles history export downloads.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	format := strings.TrimPrefix(r.URL.Path, "/api/v1/exports/history.")
	entries, err := h.history.History(r.Context(), exportHistoryLimit)
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}

	var (
		body        []byte
		contentType string
	)
	switch format {
	case "csv":
		body, err = interfaces.BuildHistoryCSV(entries)
		contentType = "text/csv"
	case "xlsx":
		body, err = interfaces.BuildHistoryXLSX(entries)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "pdf":
		body, err = interfaces.BuildHistoryPDF(entries)
		contentType = "application/pdf"
	default:
		http.Error(w, "unsupported export format", http.StatusNotFound)
		return
	}
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}

	filename := fmt.Sprintf("history-%s.%s", time.Now().UTC().Format("20060102-150405"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
