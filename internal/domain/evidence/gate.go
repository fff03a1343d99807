// Package evidence enforces the evidence gate: a self-reported score at
// or above the threshold cannot stand without attached proof. The gate
// is a pure, idempotent transform applied before aggregation; it never
// errors, it downgrades.
package evidence

import (
	"github.com/maintiq/rmi/internal/domain/model"
)

// DefaultThreshold is the score at which evidence becomes mandatory.
const DefaultThreshold = 3.0

// CapScore is the ceiling applied to unevidenced high scores.
const CapScore = 3.0

// Violation describes a response whose score would be capped.
type Violation struct {
	QuestionCode        string  `json:"question_code"`
	QuestionText        string  `json:"question_text"`
	Score               float64 `json:"score"`
	EvidenceDescription string  `json:"evidence_description,omitempty"`
	Severity            string  `json:"severity"`
}

// Option applies a configuration option to the Gate.
type Option func(*Gate)

// WithThreshold overrides the evidence threshold.
func WithThreshold(t float64) Option {
	return func(g *Gate) {
		if t > 0 {
			g.threshold = t
		}
	}
}

// Gate applies the evidence policy.
type Gate struct {
	threshold float64
}

// New creates a Gate with configuration options.
func New(opts ...Option) *Gate {
	g := &Gate{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Threshold returns the configured evidence threshold.
func (g *Gate) Threshold() float64 { return g.threshold }

// Apply returns the post-gate score: unchanged unless the question
// requires evidence, the score meets the threshold, and no evidence was
// provided, in which case it is capped at CapScore. Applying twice
// yields the same value.
func (g *Gate) Apply(score float64, evidenceRequired, evidenceProvided bool) float64 {
	if !evidenceRequired || evidenceProvided {
		return score
	}
	if score >= g.threshold && score > CapScore {
		return CapScore
	}
	return score
}

// FindUnevidencedHighScores lists responses meeting (required, score at
// or above threshold, no evidence) BEFORE the clamp. Draft, N/A and
// unscored responses are skipped. Used for report flagging; distinct
// from the clamp path.
func (g *Gate) FindUnevidencedHighScores(responses []model.Response, questions map[string]model.Question) []Violation {
	var violations []Violation
	for _, r := range responses {
		if r.IsDraft || r.IsNA || r.NumericScore == nil {
			continue
		}
		q, ok := questions[r.QuestionCode]
		if !ok || !q.EvidenceRequired {
			continue
		}
		if *r.NumericScore >= g.threshold && !r.EvidenceProvided {
			violations = append(violations, Violation{
				QuestionCode:        q.Code,
				QuestionText:        q.Text,
				Score:               *r.NumericScore,
				EvidenceDescription: q.EvidenceDescription,
				Severity:            "HIGH - Score will be capped at 3",
			})
		}
	}
	return violations
}
