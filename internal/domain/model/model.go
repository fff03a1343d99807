// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Pillar is one of the three top-level maturity axes.
type Pillar string

// The three pillars of the maturity framework.
const (
	PillarPeople     Pillar = "People"
	PillarProcess    Pillar = "Process"
	PillarTechnology Pillar = "Technology"
)

// Pillars returns all pillars in canonical order.
func Pillars() []Pillar {
	return []Pillar{PillarPeople, PillarProcess, PillarTechnology}
}

// ParsePillar resolves a case-insensitive pillar name.
func ParsePillar(s string) (Pillar, bool) {
	for _, p := range Pillars() {
		if strings.EqualFold(string(p), s) {
			return p, true
		}
	}
	return "", false
}

// QuestionType determines how a raw answer is normalized to a numeric score.
type QuestionType string

// Supported question types.
const (
	TypeLikert        QuestionType = "Likert"
	TypeBinary        QuestionType = "Binary"
	TypeMultiSelect   QuestionType = "MultiSelect"
	TypeDataInput     QuestionType = "DataInput"
	TypeObservational QuestionType = "Observational"
)

// Confidence qualifies a normalized score.
type Confidence string

// Confidence levels returned by scorers.
const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// ScoringBand maps a value interval [Lo, Hi] to a discrete score.
// Bands are explicit policy; values outside every band are an error,
// never interpolated.
type ScoringBand struct {
	Lo    float64
	Hi    float64
	Score float64
	Label string
}

// Question is an immutable framework question. Once referenced by a
// response it must not change; revisions bump FrameworkVersion.
type Question struct {
	Code                string // e.g. "P-01", "PR-03"
	Text                string
	Pillar              Pillar
	Subcategory         string // e.g. "Competency", "Planning"
	TargetRole          string // technician, supervisor, manager, planner, auditor
	Type                QuestionType
	Weight              float64 // impact on pillar score, default 1.0
	EvidenceRequired    bool
	EvidenceDescription string
	IsCritical          bool // critical questions can cap the pillar score
	MinScore            float64
	MaxScore            float64
	ScoringBands        []ScoringBand // band table for DataInput questions
	FrameworkVersion    string
}

// EffectiveWeight returns the question weight, defaulting to 1.0.
func (q Question) EffectiveWeight() float64 {
	if q.Weight > 0 {
		return q.Weight
	}
	return 1.0
}

// Response is an answer to one question within one assessment.
// Draft and N/A responses are excluded from all scoring, and
// NumericScore is nil whenever IsNA is true.
type Response struct {
	ID               string
	AssessmentID     string
	QuestionCode     string
	RawValue         string
	NumericScore     *float64 // nil until normalized, or for N/A answers
	EvidenceProvided bool
	EvidenceNotes    string
	IsDraft          bool
	IsNA             bool
	Degraded         bool // score is a narrative-scorer fallback, not a judgment
	Rationale        string
	AnsweredAt       time.Time
}

// Observation is a field observation tied to a pillar. An observation
// with nil PassFail contributes nothing to the observation sub-score.
type Observation struct {
	ID           string
	AssessmentID string
	Pillar       Pillar
	Title        string
	Type         string // e.g. "Work Execution", "Safety"
	Subcategory  string
	PassFail     *bool
	Severity     string // "Critical", "Major", "Minor" or empty
	Notes        string
	ObservedAt   time.Time
}

// CriticalFailure records a weakest-link trigger for audit output.
type CriticalFailure struct {
	QuestionCode string  `json:"question_code,omitempty"`
	Score        float64 `json:"score,omitempty"`
	Detail       string  `json:"detail"`
}

// PillarResult is the transient aggregate for one pillar, produced
// fresh on every calculation and never partially mutated.
type PillarResult struct {
	Pillar           Pillar            `json:"pillar"`
	NoData           bool              `json:"no_data,omitempty"`
	RawScore         float64           `json:"raw_score"`
	WeightedScore    float64           `json:"weighted_score"`
	FinalScore       float64           `json:"final_score"`
	InterviewScore   float64           `json:"interview_score"`
	ObservationScore float64           `json:"observation_score"`
	Confidence       string            `json:"confidence"`
	EvidenceCoverage float64           `json:"evidence_coverage"`
	CriticalFailures []CriticalFailure `json:"critical_failures,omitempty"`
	ResponseCount    int               `json:"response_count"`
	ObservationCount int               `json:"observation_count"`
}

// Score is the persisted result row: one per pillar plus one with
// Pillar == nil for the overall RMI. The set for an assessment is
// always replaced whole.
type Score struct {
	ID            string
	AssessmentID  string
	Pillar        *Pillar // nil indicates the overall RMI row
	RawScore      float64
	WeightedScore float64
	FinalScore    float64
	Confidence    string
	Method        string // JSON audit blob (coverage, critical failures)
	CalculatedAt  time.Time
}

// Analysis is a persisted audit record of one CMMS metric run.
type Analysis struct {
	ID           string
	AssessmentID string
	Kind         string // e.g. "Work Order Analysis"
	DataSource   string
	SampleSize   int
	Passed       bool
	Metrics      string // JSON
	AnalyzedAt   time.Time
}

// Assessment identifies one audit engagement.
type Assessment struct {
	ID               string
	ClientName       string
	SiteName         string
	Status           string
	FrameworkVersion string
	AssessmentDate   time.Time
}

// NarrativeJob is a queued free-text scoring request drained by the
// worker pool.
type NarrativeJob struct {
	AssessmentID string
	ResponseID   string
	QuestionCode string
	QuestionText string
	ResponseText string
}

// Float returns a pointer to v. Convenience for optional score fields.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to b. Convenience for optional pass/fail fields.
func Bool(b bool) *bool { return &b }
