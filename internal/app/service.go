// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	narrativequeue "github.com/maintiq/rmi/internal/adapters/mq/queue"
	workerpool "github.com/maintiq/rmi/internal/adapters/mq/worker"
	"github.com/maintiq/rmi/internal/adapters/repository"
	"github.com/maintiq/rmi/internal/domain/cmms"
	"github.com/maintiq/rmi/internal/domain/evidence"
	"github.com/maintiq/rmi/internal/domain/model"
	"github.com/maintiq/rmi/internal/domain/normalize"
	"github.com/maintiq/rmi/internal/domain/scoring"
	"github.com/maintiq/rmi/pkg/logger"
	"github.com/maintiq/rmi/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Analysis kinds persisted with each CMMS metric run.
const (
	kindISO14224     = "ISO 14224 Audit"
	kindWorkOrder    = "Work Order Analysis"
	kindPMCompliance = "PM Compliance Analysis"
)

// methodAudit is the JSON blob persisted alongside each score row so a
// reviewer can reconstruct how the number was produced.
type methodAudit struct {
	InterviewScore   float64                 `json:"interview_score,omitempty"`
	ObservationScore float64                 `json:"observation_score,omitempty"`
	EvidenceCoverage float64                 `json:"evidence_coverage"`
	ResponseCount    int                     `json:"response_count"`
	ObservationCount int                     `json:"observation_count"`
	NoData           bool                    `json:"no_data,omitempty"`
	CriticalFailures []model.CriticalFailure `json:"critical_failures,omitempty"`
	MaturityLevel    string                  `json:"maturity_level,omitempty"`
}

// QuestionDetail is the per-question line of the breakdown.
type QuestionDetail struct {
	QuestionCode     string  `json:"question_code"`
	Role             string  `json:"role"`
	Score            float64 `json:"score"`
	GatedScore       float64 `json:"gated_score"`
	EvidenceProvided bool    `json:"evidence_provided"`
}

// SubcategoryRollup aggregates the scored questions of one subcategory.
type SubcategoryRollup struct {
	Pillar        model.Pillar     `json:"pillar"`
	Subcategory   string           `json:"subcategory"`
	AverageScore  float64          `json:"average_score"`
	QuestionCount int              `json:"question_count"`
	Questions     []QuestionDetail `json:"questions"`
}

// ScoreBreakdown is the full calculation detail for one assessment.
type ScoreBreakdown struct {
	AssessmentID      string                              `json:"assessment_id"`
	Pillars           map[model.Pillar]model.PillarResult `json:"pillars"`
	Subcategories     []SubcategoryRollup                 `json:"subcategories,omitempty"`
	OverallRMI        float64                             `json:"overall_rmi"`
	MaturityLevel     string                              `json:"maturity_level"`
	OverallConfidence string                              `json:"overall_confidence"`
	CalculatedAt      time.Time                           `json:"calculated_at"`
}

// Service implements the API dependencies for the RMI scoring system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	engine     *scoring.Engine
	normalizer *normalize.Normalizer
	queue      narrativequeue.Queue
	workerPool *workerpool.Pool

	// Recalculations for the same assessment collapse onto one flight.
	calcGroup singleflight.Group

	// Configuration
	workerCount       int
	queueSize         int
	roleWeights       map[string]float64
	evidenceThreshold float64
	interviewWeight   float64
	observationWeight float64
	pmGraceDays       int
	textScorer        normalize.TextScorer

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a pre-built store (e.g. the MySQL-backed one).
// When unset, Start falls back to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of narrative worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the narrative job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithRoleWeights sets the interview role weights for aggregation.
func WithRoleWeights(weights map[string]float64) Option {
	return func(s *Service) {
		if len(weights) > 0 {
			s.roleWeights = weights
		}
	}
}

// WithEvidenceThreshold sets the score at which evidence is mandatory.
func WithEvidenceThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.evidenceThreshold = threshold
		}
	}
}

// WithBlend sets the interview/observation blend weights.
func WithBlend(interview, observation float64) Option {
	return func(s *Service) {
		if interview > 0 && observation > 0 {
			s.interviewWeight = interview
			s.observationWeight = observation
		}
	}
}

// WithTextScorer sets the narrative scorer used for free-text answers.
func WithTextScorer(scorer normalize.TextScorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.textScorer = scorer
		}
	}
}

// WithPMGraceDays sets the PM compliance grace window in days.
func WithPMGraceDays(days int) Option {
	return func(s *Service) {
		if days >= 0 {
			s.pmGraceDays = days
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       runtime.NumCPU() * 2,
		queueSize:         10_000,
		roleWeights:       scoring.DefaultRoleWeights(),
		evidenceThreshold: evidence.DefaultThreshold,
		interviewWeight:   0.80,
		observationWeight: 0.20,
		pmGraceDays:       cmms.DefaultGraceDays,
		stopCh:            make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting RMI scoring service...")

	if s.store == nil {
		s.store = repository.NewMemStore()
		s.logger.Info(ctx, "using in-memory store")
	}

	s.queue = narrativequeue.NewInMemoryQueue(
		narrativequeue.WithCapacity(s.queueSize),
		narrativequeue.WithBufferSize(s.queueSize),
	)

	normOpts := []normalize.Option{}
	if s.textScorer != nil {
		normOpts = append(normOpts, normalize.WithTextScorer(s.textScorer))
	}
	s.normalizer = normalize.New(normOpts...)

	s.engine = scoring.New(
		scoring.WithRoleWeights(s.roleWeights),
		scoring.WithGate(evidence.New(evidence.WithThreshold(s.evidenceThreshold))),
		scoring.WithBlend(s.interviewWeight, s.observationWeight),
	)

	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, s.normalizer, s.store)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "RMI scoring service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Float64("evidenceThreshold", s.evidenceThreshold),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping RMI scoring service...")

	// Closing the queue first lets workers drain in-flight jobs.
	if q, ok := s.queue.(*narrativequeue.InMemoryQueue); ok {
		_ = q.Close()
	}
	if s.workerPool != nil {
		s.workerPool.Stop()
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(ctx, "RMI scoring service stopped")
}

// CalculateAssessmentScores recalculates and persists the full score set
// for one assessment. Concurrent calls for the same assessment collapse
// onto a single calculation; the persisted set is replaced atomically.
func (s *Service) CalculateAssessmentScores(ctx context.Context, assessmentID string) (ScoreBreakdown, error) {
	v, err, _ := s.calcGroup.Do(assessmentID, func() (interface{}, error) {
		return s.calculate(ctx, assessmentID)
	})
	if err != nil {
		return ScoreBreakdown{}, err
	}
	breakdown, ok := v.(ScoreBreakdown)
	if !ok {
		return ScoreBreakdown{}, fmt.Errorf("unexpected calculation result type %T", v)
	}
	return breakdown, nil
}

func (s *Service) calculate(ctx context.Context, assessmentID string) (ScoreBreakdown, error) {
	start := time.Now()

	breakdown, err := s.buildBreakdown(ctx, assessmentID)
	if err != nil {
		return ScoreBreakdown{}, err
	}
	now := breakdown.CalculatedAt

	rows := make([]model.Score, 0, len(breakdown.Pillars)+1)
	for _, pillar := range model.Pillars() {
		res := breakdown.Pillars[pillar]
		method, merr := json.Marshal(methodAudit{
			InterviewScore:   res.InterviewScore,
			ObservationScore: res.ObservationScore,
			EvidenceCoverage: res.EvidenceCoverage,
			ResponseCount:    res.ResponseCount,
			ObservationCount: res.ObservationCount,
			NoData:           res.NoData,
			CriticalFailures: res.CriticalFailures,
		})
		if merr != nil {
			return ScoreBreakdown{}, fmt.Errorf("marshal method audit: %w", merr)
		}

		p := pillar
		rows = append(rows, model.Score{
			AssessmentID:  assessmentID,
			Pillar:        &p,
			RawScore:      res.RawScore,
			WeightedScore: res.WeightedScore,
			FinalScore:    res.FinalScore,
			Confidence:    res.Confidence,
			Method:        string(method),
			CalculatedAt:  now,
		})

		metrics.UpdatePillarScore(string(pillar), res.FinalScore)
		for range res.CriticalFailures {
			metrics.RecordCriticalFailure()
		}
	}

	overallMethod, merr := json.Marshal(methodAudit{MaturityLevel: breakdown.MaturityLevel})
	if merr != nil {
		return ScoreBreakdown{}, fmt.Errorf("marshal method audit: %w", merr)
	}
	rows = append(rows, model.Score{
		AssessmentID: assessmentID,
		RawScore:     breakdown.OverallRMI,
		FinalScore:   breakdown.OverallRMI,
		Confidence:   breakdown.OverallConfidence,
		Method:       string(overallMethod),
		CalculatedAt: now,
	})

	if err := s.store.ReplaceScores(ctx, assessmentID, rows); err != nil {
		return ScoreBreakdown{}, err
	}

	metrics.RecordCalculation()
	metrics.RecordCalculationLatency(float64(time.Since(start).Milliseconds()))

	s.logger.Info(ctx, "assessment scores calculated",
		logger.String("assessmentID", assessmentID),
		logger.Float64("overallRMI", breakdown.OverallRMI),
		logger.String("maturityLevel", breakdown.MaturityLevel),
		logger.Duration("elapsed", time.Since(start)),
	)

	return breakdown, nil
}

// GetScoreBreakdown recomputes the full calculation detail from current
// state without persisting anything.
func (s *Service) GetScoreBreakdown(ctx context.Context, assessmentID string) (ScoreBreakdown, error) {
	return s.buildBreakdown(ctx, assessmentID)
}

// buildBreakdown loads the assessment's data and produces the full
// calculation detail, including the per-subcategory rollup.
func (s *Service) buildBreakdown(ctx context.Context, assessmentID string) (ScoreBreakdown, error) {
	if _, err := s.store.Assessment(ctx, assessmentID); err != nil {
		return ScoreBreakdown{}, err
	}

	questions, err := s.store.Questions(ctx)
	if err != nil {
		return ScoreBreakdown{}, err
	}
	responses, err := s.store.Responses(ctx, assessmentID)
	if err != nil {
		return ScoreBreakdown{}, err
	}
	observations, err := s.store.Observations(ctx, assessmentID)
	if err != nil {
		return ScoreBreakdown{}, err
	}

	results := make(map[model.Pillar]model.PillarResult, 3)
	for _, pillar := range model.Pillars() {
		results[pillar] = s.engine.ScorePillar(pillar, responses, questions, observations)
	}
	overall, maturity := s.engine.Combine(results)

	return ScoreBreakdown{
		AssessmentID:      assessmentID,
		Pillars:           results,
		Subcategories:     s.subcategoryRollups(responses, questions),
		OverallRMI:        overall,
		MaturityLevel:     maturity,
		OverallConfidence: scoring.OverallConfidence(results),
		CalculatedAt:      time.Now(),
	}, nil
}

// subcategoryRollups groups the scorable responses by pillar and
// subcategory with per-question post-gate detail.
func (s *Service) subcategoryRollups(responses []model.Response, questions map[string]model.Question) []SubcategoryRollup {
	type key struct {
		pillar      model.Pillar
		subcategory string
	}

	gate := s.engine.Gate()
	rollups := make(map[key]*SubcategoryRollup)
	var order []key
	for _, r := range responses {
		if r.IsDraft || r.IsNA || r.NumericScore == nil {
			continue
		}
		q, ok := questions[r.QuestionCode]
		if !ok {
			continue
		}

		k := key{pillar: q.Pillar, subcategory: q.Subcategory}
		rollup, ok := rollups[k]
		if !ok {
			rollup = &SubcategoryRollup{Pillar: q.Pillar, Subcategory: q.Subcategory}
			rollups[k] = rollup
			order = append(order, k)
		}

		gated := gate.Apply(*r.NumericScore, q.EvidenceRequired, r.EvidenceProvided)
		rollup.Questions = append(rollup.Questions, QuestionDetail{
			QuestionCode:     q.Code,
			Role:             q.TargetRole,
			Score:            *r.NumericScore,
			GatedScore:       gated,
			EvidenceProvided: r.EvidenceProvided,
		})
		rollup.QuestionCount++
		rollup.AverageScore += gated
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].pillar != order[j].pillar {
			return order[i].pillar < order[j].pillar
		}
		return order[i].subcategory < order[j].subcategory
	})

	out := make([]SubcategoryRollup, 0, len(order))
	for _, k := range order {
		rollup := rollups[k]
		rollup.AverageScore = math.Round(rollup.AverageScore/float64(rollup.QuestionCount)*100) / 100
		out = append(out, *rollup)
	}
	return out
}

// GetScores returns the persisted score rows for an assessment.
func (s *Service) GetScores(ctx context.Context, assessmentID string) ([]model.Score, error) {
	if _, err := s.store.Assessment(ctx, assessmentID); err != nil {
		return nil, err
	}
	return s.store.Scores(ctx, assessmentID)
}

// ValidateEvidenceRequirements lists responses whose self-reported score
// meets the evidence threshold without attached proof.
func (s *Service) ValidateEvidenceRequirements(ctx context.Context, assessmentID string) ([]evidence.Violation, error) {
	if _, err := s.store.Assessment(ctx, assessmentID); err != nil {
		return nil, err
	}

	questions, err := s.store.Questions(ctx)
	if err != nil {
		return nil, err
	}
	responses, err := s.store.Responses(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	violations := s.engine.Gate().FindUnevidencedHighScores(responses, questions)
	for range violations {
		metrics.RecordEvidenceViolation()
	}
	return violations, nil
}

// SubmitResponse normalizes and saves one answer. Deterministic types
// are scored inline; free-text types are saved unscored and queued for
// the narrative workers. Returns false when the queue rejects the job.
func (s *Service) SubmitResponse(ctx context.Context, r model.Response) (bool, error) {
	if _, err := s.store.Assessment(ctx, r.AssessmentID); err != nil {
		return false, err
	}

	questions, err := s.store.Questions(ctx)
	if err != nil {
		return false, err
	}
	q, ok := questions[r.QuestionCode]
	if !ok {
		return false, fmt.Errorf("%w: question %s", repository.ErrNotFound, r.QuestionCode)
	}

	if r.AnsweredAt.IsZero() {
		r.AnsweredAt = time.Now()
	}

	// Draft and N/A answers are stored as-is; scoring skips them.
	if r.IsDraft || r.IsNA {
		r.NumericScore = nil
		return true, s.store.SaveResponse(ctx, r)
	}

	switch q.Type {
	case model.TypeLikert, model.TypeBinary, model.TypeDataInput:
		norm, nerr := s.normalizer.Normalize(ctx, q, r.RawValue)
		if nerr != nil {
			return false, nerr
		}
		r.NumericScore = model.Float(norm.Score)
		r.Rationale = norm.Rationale
		return true, s.store.SaveResponse(ctx, r)
	default:
		// Free text: persist unscored, then hand off to the workers.
		// The ID is fixed here so the queued job points at the row the
		// store keeps, not at a row the store would mint its own ID for.
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.NumericScore = nil
		if err := s.store.SaveResponse(ctx, r); err != nil {
			return false, err
		}

		accepted := s.queue.Enqueue(ctx, narrativequeue.Job{
			AssessmentID: r.AssessmentID,
			ResponseID:   r.ID,
			QuestionCode: r.QuestionCode,
			QuestionText: q.Text,
			ResponseText: r.RawValue,
		})
		if !accepted {
			s.logger.Warn(ctx, "narrative queue rejected job",
				logger.String("assessmentID", r.AssessmentID),
				logger.String("questionCode", r.QuestionCode),
			)
		}
		metrics.UpdateQueueSize(s.queue.Len(ctx))
		return accepted, nil
	}
}

// AnalyzeWorkOrders runs the reactive ratio, data graveyard and work
// type distribution calculators over a work order table and persists an
// audit record.
func (s *Service) AnalyzeWorkOrders(ctx context.Context, assessmentID, source string, t *cmms.Table) (cmms.WorkOrderReport, error) {
	if _, err := s.store.Assessment(ctx, assessmentID); err != nil {
		return cmms.WorkOrderReport{}, err
	}

	report, err := cmms.AnalyzeWorkOrders(t)
	if err != nil {
		metrics.RecordAnalysisError()
		return cmms.WorkOrderReport{}, err
	}

	payload, merr := json.Marshal(report)
	if merr != nil {
		return cmms.WorkOrderReport{}, fmt.Errorf("marshal analysis metrics: %w", merr)
	}
	if err := s.store.SaveAnalysis(ctx, model.Analysis{
		AssessmentID: assessmentID,
		Kind:         kindWorkOrder,
		DataSource:   source,
		SampleSize:   t.Len(),
		Passed:       !report.Reactive.ReactiveSpiral,
		Metrics:      string(payload),
		AnalyzedAt:   time.Now(),
	}); err != nil {
		return cmms.WorkOrderReport{}, err
	}

	metrics.RecordAnalysis(kindWorkOrder)
	s.logger.Info(ctx, "work order analysis completed",
		logger.String("assessmentID", assessmentID),
		logger.Int("sampleSize", t.Len()),
		logger.Float64("reactivePercentage", report.Reactive.ReactivePercentage),
	)
	return report, nil
}

// AnalyzePMRecords runs the PM compliance calculator over a preventive
// maintenance table and persists an audit record.
func (s *Service) AnalyzePMRecords(ctx context.Context, assessmentID, source string, t *cmms.Table) (cmms.PMResult, error) {
	if _, err := s.store.Assessment(ctx, assessmentID); err != nil {
		return cmms.PMResult{}, err
	}

	result, err := cmms.PMCompliance(t, cmms.WithGraceDays(s.pmGraceDays))
	if err != nil {
		metrics.RecordAnalysisError()
		return cmms.PMResult{}, err
	}

	payload, merr := json.Marshal(result)
	if merr != nil {
		return cmms.PMResult{}, fmt.Errorf("marshal analysis metrics: %w", merr)
	}
	if err := s.store.SaveAnalysis(ctx, model.Analysis{
		AssessmentID: assessmentID,
		Kind:         kindPMCompliance,
		DataSource:   source,
		SampleSize:   t.Len(),
		Passed:       result.Score >= 3,
		Metrics:      string(payload),
		AnalyzedAt:   time.Now(),
	}); err != nil {
		return cmms.PMResult{}, err
	}

	metrics.RecordAnalysis(kindPMCompliance)
	s.logger.Info(ctx, "pm compliance analysis completed",
		logger.String("assessmentID", assessmentID),
		logger.Int("sampleSize", t.Len()),
		logger.Float64("compliancePercentage", result.CompliancePercentage),
	)
	return result, nil
}

// AuditDataIntegrity runs the ISO 14224 data-structure checks over a
// CMMS export and persists an audit record. An audit passes when the
// compliance score reaches the acceptable band.
func (s *Service) AuditDataIntegrity(ctx context.Context, assessmentID, source string, t *cmms.Table) (cmms.IntegrityAudit, error) {
	if _, err := s.store.Assessment(ctx, assessmentID); err != nil {
		return cmms.IntegrityAudit{}, err
	}

	audit, err := cmms.AuditDataIntegrity(t)
	if err != nil {
		metrics.RecordAnalysisError()
		return cmms.IntegrityAudit{}, err
	}

	payload, merr := json.Marshal(audit)
	if merr != nil {
		return cmms.IntegrityAudit{}, fmt.Errorf("marshal analysis metrics: %w", merr)
	}
	if err := s.store.SaveAnalysis(ctx, model.Analysis{
		AssessmentID: assessmentID,
		Kind:         kindISO14224,
		DataSource:   source,
		SampleSize:   t.Len(),
		Passed:       audit.ComplianceScore >= 3,
		Metrics:      string(payload),
		AnalyzedAt:   time.Now(),
	}); err != nil {
		return cmms.IntegrityAudit{}, err
	}

	metrics.RecordAnalysis(kindISO14224)
	s.logger.Info(ctx, "data integrity audit completed",
		logger.String("assessmentID", assessmentID),
		logger.Int("sampleSize", t.Len()),
		logger.Float64("passRate", audit.PassRate),
	)
	return audit, nil
}

// GetAnalyses returns the persisted CMMS metric runs for an assessment.
func (s *Service) GetAnalyses(ctx context.Context, assessmentID string) ([]model.Analysis, error) {
	if _, err := s.store.Assessment(ctx, assessmentID); err != nil {
		return nil, err
	}
	return s.store.Analyses(ctx, assessmentID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"pmGraceDays": s.pmGraceDays,
	}

	if s.started {
		queueLen := s.queue.Len(context.Background())
		stats["queueLength"] = queueLen

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}
