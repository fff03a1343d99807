// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/maintiq/rmi/internal/adapters/repository"
	service "github.com/maintiq/rmi/internal/app"
	"github.com/maintiq/rmi/internal/domain/cmms"
	"github.com/maintiq/rmi/internal/domain/evidence"
	"github.com/maintiq/rmi/internal/domain/model"
)

// ScoreBreakdown mirrors the calculation detail returned by the service.
type ScoreBreakdown = service.ScoreBreakdown

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// CalculateAssessmentScores recalculates and persists the score set.
	CalculateAssessmentScores(ctx context.Context, assessmentID string) (ScoreBreakdown, error)

	// GetScoreBreakdown recomputes the calculation detail without persisting.
	GetScoreBreakdown(ctx context.Context, assessmentID string) (ScoreBreakdown, error)

	// GetScores returns the persisted score rows.
	GetScores(ctx context.Context, assessmentID string) ([]model.Score, error)

	// ValidateEvidenceRequirements lists unevidenced high scores.
	ValidateEvidenceRequirements(ctx context.Context, assessmentID string) ([]evidence.Violation, error)

	// SubmitResponse saves one answer. Returns false on backpressure.
	SubmitResponse(ctx context.Context, r model.Response) (bool, error)

	// AnalyzeWorkOrders runs the work order calculators over a table.
	AnalyzeWorkOrders(ctx context.Context, assessmentID, source string, t *cmms.Table) (cmms.WorkOrderReport, error)

	// AnalyzePMRecords runs the PM compliance calculator over a table.
	AnalyzePMRecords(ctx context.Context, assessmentID, source string, t *cmms.Table) (cmms.PMResult, error)

	// AuditDataIntegrity runs the ISO 14224 checks over a table.
	AuditDataIntegrity(ctx context.Context, assessmentID, source string, t *cmms.Table) (cmms.IntegrityAudit, error)

	// GetAnalyses returns the persisted CMMS metric runs.
	GetAnalyses(ctx context.Context, assessmentID string) ([]model.Analysis, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	assessmentsHandler *AssessmentsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		assessmentsHandler: NewAssessmentsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/assessments/", MetricsMiddleware(s.assessmentsHandler.Handle, "assessments"))
}

// responseRequest mirrors the request schema for submitting answers.
type responseRequest struct {
	ID               string `json:"id"`
	QuestionCode     string `json:"question_code"`
	RawValue         string `json:"raw_value"`
	EvidenceProvided bool   `json:"evidence_provided"`
	EvidenceNotes    string `json:"evidence_notes"`
	IsDraft          bool   `json:"is_draft"`
	IsNA             bool   `json:"is_na"`
}

func (r responseRequest) validate() error {
	if strings.TrimSpace(r.QuestionCode) == "" {
		return errors.New("missing question_code")
	}
	if strings.TrimSpace(r.RawValue) == "" && !r.IsDraft && !r.IsNA {
		return errors.New("missing raw_value")
	}
	return nil
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// scoreRow is the wire shape of one persisted score.
type scoreRow struct {
	Pillar        string          `json:"pillar"`
	RawScore      float64         `json:"raw_score"`
	WeightedScore float64         `json:"weighted_score"`
	FinalScore    float64         `json:"final_score"`
	Confidence    string          `json:"confidence"`
	Method        json.RawMessage `json:"method,omitempty"`
	CalculatedAt  string          `json:"calculated_at"`
}

func toScoreRow(s model.Score) scoreRow {
	pillar := "overall"
	if s.Pillar != nil {
		pillar = string(*s.Pillar)
	}
	row := scoreRow{
		Pillar:        pillar,
		RawScore:      s.RawScore,
		WeightedScore: s.WeightedScore,
		FinalScore:    s.FinalScore,
		Confidence:    s.Confidence,
		CalculatedAt:  s.CalculatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if json.Valid([]byte(s.Method)) {
		row.Method = json.RawMessage(s.Method)
	}
	return row
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound translates upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
