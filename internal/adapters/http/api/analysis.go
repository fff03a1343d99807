// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/maintiq/rmi/internal/adapters/tabular"
	"github.com/maintiq/rmi/internal/domain/cmms"
)

// AnalysisHandler handles CMMS export uploads and analysis listings.
type AnalysisHandler struct {
	deps       Dependencies
	workOrders *tabular.Loader
	pmRecords  *tabular.Loader
	integrity  *tabular.Loader
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(deps Dependencies) *AnalysisHandler {
	return &AnalysisHandler{
		deps:       deps,
		workOrders: tabular.New(),
		pmRecords:  tabular.New(tabular.WithAliases(tabular.DefaultPMAliases())),
		integrity:  tabular.New(tabular.WithAliases(tabular.DefaultIntegrityAliases())),
	}
}

// tableRequest is the JSON form of an uploaded table.
type tableRequest struct {
	Columns []string   `json:"columns"`
	Rows    []cmms.Row `json:"rows"`
}

// HandleUpload handles POST /assessments/{id}/analyses/{kind}. The body
// is either a JSON table payload or raw CSV, selected by Content-Type.
// Supported kinds are "work-orders", "pm" and "iso14224".
func (h *AnalysisHandler) HandleUpload(w http.ResponseWriter, r *http.Request, assessmentID, kind string) {
	const op = "api.analysis_upload"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "upload"
	}

	var loader *tabular.Loader
	switch kind {
	case "work-orders":
		loader = h.workOrders
	case "pm":
		loader = h.pmRecords
	case "iso14224":
		loader = h.integrity
	default:
		http.NotFound(w, r)
		return
	}

	table, err := readTable(r, loader)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	switch kind {
	case "work-orders":
		report, err := h.deps.AnalyzeWorkOrders(r.Context(), assessmentID, source, table)
		if err != nil {
			h.writeAnalysisError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	case "pm":
		result, err := h.deps.AnalyzePMRecords(r.Context(), assessmentID, source, table)
		if err != nil {
			h.writeAnalysisError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	case "iso14224":
		audit, err := h.deps.AuditDataIntegrity(r.Context(), assessmentID, source, table)
		if err != nil {
			h.writeAnalysisError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, audit)
	}
}

// readTable decodes the upload body into a table. JSON payloads carry
// canonical column names already; CSV headers go through alias
// resolution.
func readTable(r *http.Request, loader *tabular.Loader) (*cmms.Table, error) {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var req tableRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
		if len(req.Columns) == 0 {
			return nil, errors.New("missing columns")
		}
		return &cmms.Table{Columns: req.Columns, Rows: req.Rows}, nil
	}
	return loader.Read(r.Body)
}

// HandleList handles GET /assessments/{id}/analyses.
func (h *AnalysisHandler) HandleList(w http.ResponseWriter, r *http.Request, assessmentID string) {
	const op = "api.analyses"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	analyses, err := h.deps.GetAnalyses(r.Context(), assessmentID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	rows := make([]analysisRow, 0, len(analyses))
	for _, a := range analyses {
		row := analysisRow{
			ID:         a.ID,
			Kind:       a.Kind,
			DataSource: a.DataSource,
			SampleSize: a.SampleSize,
			Passed:     a.Passed,
			AnalyzedAt: a.AnalyzedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if json.Valid([]byte(a.Metrics)) {
			row.Metrics = json.RawMessage(a.Metrics)
		}
		rows = append(rows, row)
	}
	writeJSON(w, http.StatusOK, rows)
}

// analysisRow is the wire shape of one persisted analysis run.
type analysisRow struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	DataSource string          `json:"data_source"`
	SampleSize int             `json:"sample_size"`
	Passed     bool            `json:"passed"`
	Metrics    json.RawMessage `json:"metrics,omitempty"`
	AnalyzedAt string          `json:"analyzed_at"`
}

func (h *AnalysisHandler) writeAnalysisError(w http.ResponseWriter, op string, err error) {
	switch {
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, cmms.ErrTypeMismatch), errors.Is(err, cmms.ErrInvalidInput):
		writeError(w, http.StatusUnprocessableEntity, "invalid_data", WrapKind(op, ErrInvalidData, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
