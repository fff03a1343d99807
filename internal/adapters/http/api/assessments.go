// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/maintiq/rmi/internal/domain/model"
	"github.com/maintiq/rmi/internal/domain/normalize"
)

// AssessmentsHandler dispatches the /assessments/{id}/... routes.
type AssessmentsHandler struct {
	deps     Dependencies
	analysis *AnalysisHandler
}

// NewAssessmentsHandler creates a new assessments handler.
func NewAssessmentsHandler(deps Dependencies) *AssessmentsHandler {
	return &AssessmentsHandler{
		deps:     deps,
		analysis: NewAnalysisHandler(deps),
	}
}

// Handle routes /assessments/{id}/{resource} requests.
func (h *AssessmentsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	const op = "api.assessments"

	rest := strings.TrimPrefix(r.URL.Path, "/assessments/")
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 3)
	if len(parts) < 2 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	assessmentID := parts[0]

	switch parts[1] {
	case "scores":
		h.handleScores(w, r, assessmentID)
	case "breakdown":
		h.handleBreakdown(w, r, assessmentID)
	case "evidence-violations":
		h.handleEvidenceViolations(w, r, assessmentID)
	case "responses":
		h.handleResponses(w, r, assessmentID)
	case "analyses":
		if len(parts) < 3 {
			h.analysis.HandleList(w, r, assessmentID)
			return
		}
		h.analysis.HandleUpload(w, r, assessmentID, parts[2])
	default:
		http.NotFound(w, r)
	}
}

// handleScores handles GET and POST /assessments/{id}/scores.
// POST recalculates and persists; GET returns the persisted rows.
func (h *AssessmentsHandler) handleScores(w http.ResponseWriter, r *http.Request, assessmentID string) {
	const op = "api.scores"

	switch r.Method {
	case http.MethodPost:
		breakdown, err := h.deps.CalculateAssessmentScores(r.Context(), assessmentID)
		if err != nil {
			h.writeServiceError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, breakdown)
	case http.MethodGet:
		scores, err := h.deps.GetScores(r.Context(), assessmentID)
		if err != nil {
			h.writeServiceError(w, op, err)
			return
		}
		rows := make([]scoreRow, 0, len(scores))
		for _, s := range scores {
			rows = append(rows, toScoreRow(s))
		}
		writeJSON(w, http.StatusOK, rows)
	default:
		http.NotFound(w, r)
	}
}

// handleBreakdown handles GET /assessments/{id}/breakdown.
func (h *AssessmentsHandler) handleBreakdown(w http.ResponseWriter, r *http.Request, assessmentID string) {
	const op = "api.breakdown"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	breakdown, err := h.deps.GetScoreBreakdown(r.Context(), assessmentID)
	if err != nil {
		h.writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

// handleEvidenceViolations handles GET /assessments/{id}/evidence-violations.
func (h *AssessmentsHandler) handleEvidenceViolations(w http.ResponseWriter, r *http.Request, assessmentID string) {
	const op = "api.evidence_violations"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	violations, err := h.deps.ValidateEvidenceRequirements(r.Context(), assessmentID)
	if err != nil {
		h.writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"assessment_id": assessmentID,
		"violations":    violations,
		"count":         len(violations),
	})
}

// handleResponses handles POST /assessments/{id}/responses.
func (h *AssessmentsHandler) handleResponses(w http.ResponseWriter, r *http.Request, assessmentID string) {
	const op = "api.post_response"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req responseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	accepted, err := h.deps.SubmitResponse(r.Context(), model.Response{
		ID:               req.ID,
		AssessmentID:     assessmentID,
		QuestionCode:     req.QuestionCode,
		RawValue:         req.RawValue,
		EvidenceProvided: req.EvidenceProvided,
		EvidenceNotes:    req.EvidenceNotes,
		IsDraft:          req.IsDraft,
		IsNA:             req.IsNA,
	})
	if err != nil {
		switch {
		case isNotFound(err):
			writeError(w, http.StatusNotFound, "not_found", err)
		case errors.Is(err, normalize.ErrValidation), errors.Is(err, normalize.ErrUnmappedValue):
			writeError(w, http.StatusUnprocessableEntity, "invalid_data", WrapKind(op, ErrInvalidData, err))
		default:
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		}
		return
	}
	if !accepted {
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

func (h *AssessmentsHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
}
