package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/maintiq/rmi/internal/domain/model"
)

// MemStore is an in-memory Store guarded by a single RWMutex. It backs
// tests and single-node deployments without a database.
type MemStore struct {
	mu           sync.RWMutex
	assessments  map[string]model.Assessment
	questions    map[string]model.Question
	responses    map[string][]model.Response    // by assessment ID
	observations map[string][]model.Observation // by assessment ID
	scores       map[string][]model.Score       // by assessment ID
	analyses     map[string][]model.Analysis    // by assessment ID
}

// MemOption applies a configuration option to the MemStore.
type MemOption func(*MemStore)

// WithQuestions seeds the framework questions.
func WithQuestions(questions []model.Question) MemOption {
	return func(s *MemStore) {
		for _, q := range questions {
			s.questions[q.Code] = q
		}
	}
}

// WithAssessments seeds assessments.
func WithAssessments(assessments []model.Assessment) MemOption {
	return func(s *MemStore) {
		for _, a := range assessments {
			s.assessments[a.ID] = a
		}
	}
}

// WithObservations seeds observations.
func WithObservations(observations []model.Observation) MemOption {
	return func(s *MemStore) {
		for _, o := range observations {
			s.observations[o.AssessmentID] = append(s.observations[o.AssessmentID], o)
		}
	}
}

// NewMemStore creates a MemStore with configuration options.
func NewMemStore(opts ...MemOption) *MemStore {
	s := &MemStore{
		assessments:  make(map[string]model.Assessment),
		questions:    make(map[string]model.Question),
		responses:    make(map[string][]model.Response),
		observations: make(map[string][]model.Observation),
		scores:       make(map[string][]model.Score),
		analyses:     make(map[string][]model.Analysis),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assessment returns one assessment by ID.
func (s *MemStore) Assessment(_ context.Context, id string) (model.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assessments[id]
	if !ok {
		return model.Assessment{}, fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}
	return a, nil
}

// SaveAssessment inserts or updates an assessment.
func (s *MemStore) SaveAssessment(_ context.Context, a model.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.assessments[a.ID] = a
	return nil
}

// Questions returns the framework questions keyed by code.
func (s *MemStore) Questions(_ context.Context) (map[string]model.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.Question, len(s.questions))
	for code, q := range s.questions {
		out[code] = q
	}
	return out, nil
}

// Responses returns the responses for an assessment.
func (s *MemStore) Responses(_ context.Context, assessmentID string) ([]model.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Response, len(s.responses[assessmentID]))
	copy(out, s.responses[assessmentID])
	return out, nil
}

// Response returns one response by ID.
func (s *MemStore) Response(_ context.Context, assessmentID, responseID string) (model.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.responses[assessmentID] {
		if r.ID == responseID {
			return r, nil
		}
	}
	return model.Response{}, fmt.Errorf("response %s: %w", responseID, ErrNotFound)
}

// SaveResponse inserts or updates one response by ID.
func (s *MemStore) SaveResponse(_ context.Context, r model.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	list := s.responses[r.AssessmentID]
	for i := range list {
		if list[i].ID == r.ID {
			list[i] = r
			return nil
		}
	}
	s.responses[r.AssessmentID] = append(list, r)
	return nil
}

// Observations returns the observations for an assessment.
func (s *MemStore) Observations(_ context.Context, assessmentID string) ([]model.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Observation, len(s.observations[assessmentID]))
	copy(out, s.observations[assessmentID])
	return out, nil
}

// Scores returns the persisted score rows for an assessment.
func (s *MemStore) Scores(_ context.Context, assessmentID string) ([]model.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Score, len(s.scores[assessmentID]))
	copy(out, s.scores[assessmentID])
	return out, nil
}

// ReplaceScores swaps the assessment's score set under the write lock,
// so readers see either the old set or the new one, never a mix.
func (s *MemStore) ReplaceScores(_ context.Context, assessmentID string, scores []model.Score) error {
	replacement := make([]model.Score, len(scores))
	copy(replacement, scores)
	for i := range replacement {
		if replacement[i].ID == "" {
			replacement[i].ID = uuid.NewString()
		}
		replacement[i].AssessmentID = assessmentID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[assessmentID] = replacement
	return nil
}

// SaveAnalysis records one CMMS metric run.
func (s *MemStore) SaveAnalysis(_ context.Context, a model.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.analyses[a.AssessmentID] = append(s.analyses[a.AssessmentID], a)
	return nil
}

// Analyses returns the CMMS metric runs for an assessment.
func (s *MemStore) Analyses(_ context.Context, assessmentID string) ([]model.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Analysis, len(s.analyses[assessmentID]))
	copy(out, s.analyses[assessmentID])
	return out, nil
}
