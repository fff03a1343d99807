package narrative

import (
	"context"
	"strings"

	"github.com/maintiq/rmi/internal/domain/model"
	"github.com/maintiq/rmi/internal/domain/normalize"
)

var (
	positiveIndicators = []string{"yes", "implemented", "exists", "established", "in place", "documented"}
	negativeIndicators = []string{"no", "not implemented", "does not exist", "lacking", "absent", "informal"}
)

// KeywordScorer is a deterministic indicator-count scorer used offline
// and as a test double. Positive indicators outnumbering negative ones
// scores 5, otherwise 1.
type KeywordScorer struct{}

// ScoreText counts positive and negative indicators in the response.
func (KeywordScorer) ScoreText(_ context.Context, _, responseText string) (normalize.TextResult, error) {
	lower := strings.ToLower(responseText)

	var positive, negative int
	for _, w := range positiveIndicators {
		if strings.Contains(lower, w) {
			positive++
		}
	}
	for _, w := range negativeIndicators {
		if strings.Contains(lower, w) {
			negative++
		}
	}

	if positive > negative {
		return normalize.TextResult{
			Score:      5.0,
			Rationale:  "Response indicates positive/yes answer",
			Confidence: model.ConfidenceHigh,
			Findings:   []string{"Positive indicators found in response"},
		}, nil
	}
	return normalize.TextResult{
		Score:      1.0,
		Rationale:  "Response indicates negative/no answer",
		Confidence: model.ConfidenceHigh,
		Findings:   []string{"Negative or no indicators found in response"},
	}, nil
}
