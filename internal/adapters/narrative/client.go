// Package narrative scores free-text assessment answers. The HTTP
// client delegates to an external evaluation service; the keyword
// scorer is a deterministic local fallback. Both satisfy the
// normalizer's TextScorer interface.
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/maintiq/rmi/internal/domain/model"
	"github.com/maintiq/rmi/internal/domain/normalize"
)

// DefaultTimeout bounds one evaluation round trip. There is no retry;
// the normalizer degrades to a neutral score instead.
const DefaultTimeout = 45 * time.Second

// maturityRubric anchors the evaluation service on the 1-5 scale.
const maturityRubric = `Evaluate the maintenance maturity described in the response on a 1-5 scale:
1 = Ad Hoc / Non-existent: no formal processes, reactive only, no documentation
2 = Initial / Developing: some informal processes, inconsistent application
3 = Defined / Managed: documented processes, moderate consistency
4 = Optimized / Proactive: standardized, data-driven, continuous improvement
5 = World Class / Excellence: fully integrated, predictive, benchmark performance`

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithTimeout overrides the round-trip timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithAPIKey sets the bearer token sent to the evaluation service.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// Client evaluates free text through an external HTTP service.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client for the evaluation endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type evaluateRequest struct {
	Rubric   string `json:"rubric"`
	Question string `json:"question"`
	Response string `json:"response"`
}

type evaluateResponse struct {
	NumericScore float64  `json:"numeric_score"`
	Rationale    string   `json:"rationale"`
	Confidence   string   `json:"confidence"`
	KeyFindings  []string `json:"key_findings"`
}

// ScoreText sends the question and answer to the evaluation service and
// normalizes its verdict. Every failure wraps ErrScorerFailure.
func (c *Client) ScoreText(ctx context.Context, questionText, responseText string) (normalize.TextResult, error) {
	body, err := json.Marshal(evaluateRequest{
		Rubric:   maturityRubric,
		Question: questionText,
		Response: responseText,
	})
	if err != nil {
		return normalize.TextResult{}, fmt.Errorf("%w: encode request: %v", ErrScorerFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return normalize.TextResult{}, fmt.Errorf("%w: build request: %v", ErrScorerFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return normalize.TextResult{}, fmt.Errorf("%w: %v", ErrScorerFailure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return normalize.TextResult{}, fmt.Errorf("%w: read response: %v", ErrScorerFailure, err)
	}
	if resp.StatusCode != http.StatusOK {
		return normalize.TextResult{}, fmt.Errorf("%w: status %d: %s", ErrScorerFailure, resp.StatusCode, respBody)
	}

	var er evaluateResponse
	if err := json.Unmarshal([]byte(cleanJSON(string(respBody))), &er); err != nil {
		return normalize.TextResult{}, fmt.Errorf("%w: invalid JSON %q: %v", ErrScorerFailure, respBody, err)
	}

	return normalize.TextResult{
		Score:      clamp(er.NumericScore),
		Rationale:  er.Rationale,
		Confidence: parseConfidence(er.Confidence),
		Findings:   er.KeyFindings,
	}, nil
}

// cleanJSON strips the markdown code fences language models wrap
// around JSON payloads.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func clamp(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}

func parseConfidence(s string) model.Confidence {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(model.ConfidenceHigh):
		return model.ConfidenceHigh
	case string(model.ConfidenceLow):
		return model.ConfidenceLow
	default:
		return model.ConfidenceMedium
	}
}
