// Package normalize maps raw answer values to numeric scores using the
// question's metadata. Deterministic types (Likert, Binary, DataInput)
// are scored locally; free-text types delegate to a narrative scorer
// and degrade to a neutral score when that scorer fails.
package normalize

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/maintiq/rmi/internal/domain/model"
)

// NeutralScore is the fallback score used when narrative scoring fails.
const NeutralScore = 3.0

// TextResult is the normalized outcome of a narrative evaluation.
type TextResult struct {
	Score      float64
	Rationale  string
	Confidence model.Confidence
	Findings   []string
}

// TextScorer evaluates a free-text answer against its question. It must
// honor ctx for cancellation and return within bounded time.
type TextScorer interface {
	ScoreText(ctx context.Context, questionText, responseText string) (TextResult, error)
}

// Normalized is the result of normalizing one raw answer. Degraded is
// set only when the score is a fallback after a scorer failure, so a
// neutral fallback stays distinguishable from a genuine LOW-confidence
// judgment downstream.
type Normalized struct {
	Score      float64
	Rationale  string
	Confidence model.Confidence
	Degraded   bool
	Findings   []string
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithTextScorer sets the narrative scorer used for free-text types.
func WithTextScorer(s TextScorer) Option {
	return func(n *Normalizer) {
		if s != nil {
			n.scorer = s
		}
	}
}

// WithPositiveTokens overrides the accepted positive tokens for Binary
// questions.
func WithPositiveTokens(tokens []string) Option {
	return func(n *Normalizer) {
		if len(tokens) > 0 {
			n.positiveTokens = tokens
		}
	}
}

// Normalizer converts raw answers into numeric scores in [1,5].
type Normalizer struct {
	scorer         TextScorer
	positiveTokens []string
}

// New creates a Normalizer with configuration options.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		positiveTokens: []string{"yes", "y", "true", "1"},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize scores raw according to the question type. Narrative
// failures never propagate: free-text types always return a usable
// Normalized, degraded at worst.
func (n *Normalizer) Normalize(ctx context.Context, q model.Question, raw string) (Normalized, error) {
	switch q.Type {
	case model.TypeLikert:
		return n.normalizeLikert(q, raw)
	case model.TypeBinary:
		return n.normalizeBinary(q, raw), nil
	case model.TypeDataInput:
		return n.normalizeDataInput(q, raw)
	case model.TypeMultiSelect, model.TypeObservational:
		return n.normalizeNarrative(ctx, q, raw), nil
	default:
		return Normalized{}, fmt.Errorf("%w: unknown question type %q", ErrValidation, q.Type)
	}
}

func (n *Normalizer) normalizeLikert(q model.Question, raw string) (Normalized, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return Normalized{}, fmt.Errorf("%w: %q is not numeric", ErrValidation, raw)
	}
	lo, hi := scoreBounds(q)
	// Out-of-range is rejected, not clamped: silent clamping would hide
	// bad submissions from the submitter.
	if v < lo || v > hi {
		return Normalized{}, fmt.Errorf("%w: %v outside [%v, %v]", ErrValidation, v, lo, hi)
	}
	return Normalized{Score: v, Confidence: model.ConfidenceHigh}, nil
}

func (n *Normalizer) normalizeBinary(q model.Question, raw string) Normalized {
	lo, hi := scoreBounds(q)
	answer := strings.ToLower(strings.TrimSpace(raw))
	for _, tok := range n.positiveTokens {
		if answer == tok {
			return Normalized{Score: hi, Confidence: model.ConfidenceHigh}
		}
	}
	return Normalized{Score: lo, Confidence: model.ConfidenceHigh}
}

func (n *Normalizer) normalizeDataInput(q model.Question, raw string) (Normalized, error) {
	v, err := parseNumeric(raw)
	if err != nil {
		return Normalized{}, fmt.Errorf("%w: %q is not numeric", ErrValidation, raw)
	}
	for _, b := range q.ScoringBands {
		if v >= b.Lo && v <= b.Hi {
			return Normalized{
				Score:      b.Score,
				Rationale:  b.Label,
				Confidence: model.ConfidenceHigh,
			}, nil
		}
	}
	return Normalized{}, fmt.Errorf("%w: %v for question %s", ErrUnmappedValue, v, q.Code)
}

func (n *Normalizer) normalizeNarrative(ctx context.Context, q model.Question, raw string) Normalized {
	if n.scorer == nil {
		return degraded("no narrative scorer configured")
	}
	res, err := n.scorer.ScoreText(ctx, q.Text, raw)
	if err != nil {
		return degraded(fmt.Sprintf("narrative scoring unavailable - manual review recommended: %v", err))
	}
	score := res.Score
	if score < 1 {
		score = 1
	}
	if score > 5 {
		score = 5
	}
	conf := res.Confidence
	if conf == "" {
		conf = model.ConfidenceMedium
	}
	return Normalized{
		Score:      score,
		Rationale:  res.Rationale,
		Confidence: conf,
		Findings:   res.Findings,
	}
}

func degraded(reason string) Normalized {
	return Normalized{
		Score:      NeutralScore,
		Rationale:  reason,
		Confidence: model.ConfidenceLow,
		Degraded:   true,
		Findings:   []string{"narrative evaluation failed - requires manual assessment"},
	}
}

// parseNumeric accepts plain numbers plus the percentage and
// thousands-separated forms common in CMMS exports ("92.5%", "1,200").
func parseNumeric(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func scoreBounds(q model.Question) (lo, hi float64) {
	lo, hi = q.MinScore, q.MaxScore
	if lo == 0 && hi == 0 {
		lo, hi = 1, 5
	}
	return lo, hi
}
