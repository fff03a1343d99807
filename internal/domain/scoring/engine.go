// Package scoring implements the deterministic maturity calculation:
// weighted interview aggregation, observation blending, weakest-link
// capping, confidence estimation and the overall RMI combine.
package scoring

import (
	"math"
	"strings"

	"github.com/maintiq/rmi/internal/domain/band"
	"github.com/maintiq/rmi/internal/domain/evidence"
	"github.com/maintiq/rmi/internal/domain/model"
)

// Scoring policy constants. Role weights and thresholds are policy, not
// mechanism; they are injectable via options and configuration.
const (
	defaultInterviewWeight   = 0.80
	defaultObservationWeight = 0.20
	defaultRoleWeight        = 1.0

	// criticalFailureScore is the post-gate score at or below which a
	// critical question triggers the weakest-link cap.
	criticalFailureScore = 2.0
	// criticalCap is the ceiling applied when the weakest link fires.
	criticalCap = 3.0

	observationPassScore = 5.0
	observationFailScore = 1.0
)

// DefaultRoleWeights reflects who is closest to ground truth: what
// technicians report dominates, management intent counts for less.
func DefaultRoleWeights() map[string]float64 {
	return map[string]float64{
		"technician": 0.60,
		"supervisor": 0.10,
		"manager":    0.20,
		"planner":    0.10,
		"auditor":    0.20,
	}
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRoleWeights sets per-role interview weights from configuration.
func WithRoleWeights(weights map[string]float64) Option {
	return func(e *Engine) {
		if len(weights) == 0 {
			return
		}
		e.roleWeights = make(map[string]float64, len(weights))
		for role, w := range weights {
			if w > 0 {
				e.roleWeights[strings.ToLower(role)] = w
			}
		}
	}
}

// WithGate sets the evidence gate applied before aggregation.
func WithGate(g *evidence.Gate) Option {
	return func(e *Engine) {
		if g != nil {
			e.gate = g
		}
	}
}

// WithBlend overrides the interview/observation blend. The two weights
// must sum to 1 within the same tolerance config validation applies;
// invalid pairs are ignored.
func WithBlend(interview, observation float64) Option {
	return func(e *Engine) {
		sum := interview + observation
		if interview > 0 && observation >= 0 && sum >= 0.999 && sum <= 1.001 {
			e.interviewWeight = interview
			e.observationWeight = observation
		}
	}
}

// Engine computes pillar and overall maturity scores. It is stateless
// across calls; every calculation produces a fresh PillarResult.
type Engine struct {
	roleWeights       map[string]float64
	gate              *evidence.Gate
	interviewWeight   float64
	observationWeight float64
}

// New creates an Engine with configuration options.
func New(opts ...Option) *Engine {
	e := &Engine{
		roleWeights:       DefaultRoleWeights(),
		gate:              evidence.New(),
		interviewWeight:   defaultInterviewWeight,
		observationWeight: defaultObservationWeight,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Gate exposes the engine's evidence gate for violation reporting.
func (e *Engine) Gate() *evidence.Gate { return e.gate }

// ScorePillar aggregates one pillar. Responses are matched to their
// question via questions (keyed by question code); responses whose
// question is missing or belongs to another pillar are ignored.
func (e *Engine) ScorePillar(
	pillar model.Pillar,
	responses []model.Response,
	questions map[string]model.Question,
	observations []model.Observation,
) model.PillarResult {
	eligible := e.eligibleResponses(pillar, responses, questions)
	eligibleObs := eligibleObservations(pillar, observations)

	if len(eligible) == 0 && len(eligibleObs) == 0 {
		return model.PillarResult{
			Pillar:     pillar,
			NoData:     true,
			Confidence: "No Data",
		}
	}

	// Interview sub-score: role-weight x question-weight average over
	// post-gate scores.
	var (
		totalWeighted    float64
		totalWeight      float64
		requiredCount    int
		evidencedCount   int
		criticalFailures []model.CriticalFailure
	)
	for _, er := range eligible {
		q := er.question
		score := e.gate.Apply(*er.response.NumericScore, q.EvidenceRequired, er.response.EvidenceProvided)

		if q.EvidenceRequired {
			requiredCount++
			if er.response.EvidenceProvided {
				evidencedCount++
			}
		}

		w := e.roleWeight(q.TargetRole) * q.EffectiveWeight()
		totalWeighted += score * w
		totalWeight += w

		if q.IsCritical && score <= criticalFailureScore {
			criticalFailures = append(criticalFailures, model.CriticalFailure{
				QuestionCode: q.Code,
				Score:        score,
				Detail:       q.Text,
			})
		}
	}

	interviewScore := 0.0
	if totalWeight > 0 {
		interviewScore = totalWeighted / totalWeight
	}

	// Observation sub-score: pass 5, fail 1.
	var (
		obsSum          float64
		safetyFailures  []model.CriticalFailure
		observationMean float64
	)
	for _, o := range eligibleObs {
		if *o.PassFail {
			obsSum += observationPassScore
			continue
		}
		obsSum += observationFailScore
		if strings.Contains(strings.ToLower(o.Type), "safety") {
			safetyFailures = append(safetyFailures, model.CriticalFailure{
				Detail: "Safety observation failure: " + o.Title,
			})
		}
	}
	if len(eligibleObs) > 0 {
		observationMean = obsSum / float64(len(eligibleObs))
	}

	// Blend. With only one stream present, that stream stands alone.
	var combined float64
	switch {
	case len(eligible) > 0 && len(eligibleObs) > 0:
		combined = interviewScore*e.interviewWeight + observationMean*e.observationWeight
	case len(eligible) > 0:
		combined = interviewScore
	default:
		combined = observationMean
	}

	// Weakest link: a single critical failure caps the pillar at 3.0.
	// A failed safety observation caps Process regardless of averaging.
	final := combined
	if len(criticalFailures) > 0 {
		final = math.Min(final, criticalCap)
	}
	if len(safetyFailures) > 0 && pillar == model.PillarProcess {
		final = math.Min(final, criticalCap)
	}

	coverage := 100.0
	if requiredCount > 0 {
		coverage = float64(evidencedCount) / float64(requiredCount) * 100
	}

	return model.PillarResult{
		Pillar:           pillar,
		RawScore:         round2(combined),
		WeightedScore:    round2(combined),
		FinalScore:       round2(final),
		InterviewScore:   round2(interviewScore),
		ObservationScore: round2(observationMean),
		Confidence:       confidenceLabel(coverage, len(eligible)),
		EvidenceCoverage: round1(coverage),
		CriticalFailures: append(criticalFailures, safetyFailures...),
		ResponseCount:    len(eligible),
		ObservationCount: len(eligibleObs),
	}
}

// Combine averages the pillar final scores into the overall RMI and
// classifies it. Pillars count equally regardless of question volume.
func (e *Engine) Combine(results map[model.Pillar]model.PillarResult) (overall float64, maturityLevel string) {
	var sum float64
	for _, p := range model.Pillars() {
		sum += results[p].FinalScore
	}
	overall = round2(sum / float64(len(model.Pillars())))
	return overall, band.Maturity.Grade(overall).Label
}

// OverallConfidence folds pillar confidences into one label: High only
// when every pillar is High, Low as soon as any pillar is Low.
func OverallConfidence(results map[model.Pillar]model.PillarResult) string {
	allHigh := true
	for _, p := range model.Pillars() {
		c := results[p].Confidence
		if strings.Contains(c, "Low") || c == "No Data" {
			return "Low"
		}
		if !strings.Contains(c, "High") {
			allHigh = false
		}
	}
	if allHigh {
		return "High"
	}
	return "Medium"
}

type eligibleResponse struct {
	response model.Response
	question model.Question
}

func (e *Engine) eligibleResponses(pillar model.Pillar, responses []model.Response, questions map[string]model.Question) []eligibleResponse {
	var out []eligibleResponse
	for _, r := range responses {
		if r.IsDraft || r.IsNA || r.NumericScore == nil {
			continue
		}
		q, ok := questions[r.QuestionCode]
		if !ok || q.Pillar != pillar {
			continue
		}
		out = append(out, eligibleResponse{response: r, question: q})
	}
	return out
}

func eligibleObservations(pillar model.Pillar, observations []model.Observation) []model.Observation {
	var out []model.Observation
	for _, o := range observations {
		if o.Pillar != pillar || o.PassFail == nil {
			continue
		}
		out = append(out, o)
	}
	return out
}

func (e *Engine) roleWeight(role string) float64 {
	if w, ok := e.roleWeights[strings.ToLower(role)]; ok {
		return w
	}
	return defaultRoleWeight
}

// confidenceLabel qualifies a pillar score by sample size and evidence
// coverage.
func confidenceLabel(coverage float64, responseCount int) string {
	switch {
	case responseCount < 3:
		return "Low - Insufficient Data"
	case coverage < 50:
		return "Medium - Limited Evidence"
	case coverage >= 80 && responseCount >= 5:
		return "High - Well Evidenced"
	default:
		return "Medium - Adequate"
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
