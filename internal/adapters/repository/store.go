// Package repository defines the assessment store interface and its
// in-memory and MySQL implementations.
package repository

import (
	"context"

	"github.com/maintiq/rmi/internal/domain/model"
)

// Store provides read/write access to assessment state. All reads are
// scoped by assessment ID; score rows for an assessment are only ever
// replaced as a whole set.
type Store interface {
	// Assessment returns one assessment by ID.
	// Returns ErrNotFound if the assessment is unknown.
	Assessment(ctx context.Context, id string) (model.Assessment, error)

	// Questions returns the framework questions keyed by question code.
	Questions(ctx context.Context) (map[string]model.Question, error)

	// Responses returns every response recorded for an assessment.
	Responses(ctx context.Context, assessmentID string) ([]model.Response, error)

	// Response returns one response by ID.
	// Returns ErrNotFound if the response is unknown.
	Response(ctx context.Context, assessmentID, responseID string) (model.Response, error)

	// SaveResponse inserts or updates one response by ID.
	SaveResponse(ctx context.Context, r model.Response) error

	// Observations returns every observation recorded for an assessment.
	Observations(ctx context.Context, assessmentID string) ([]model.Observation, error)

	// Scores returns the persisted score rows for an assessment.
	Scores(ctx context.Context, assessmentID string) ([]model.Score, error)

	// ReplaceScores atomically replaces the assessment's score set.
	// Readers never observe a partial set.
	ReplaceScores(ctx context.Context, assessmentID string, scores []model.Score) error

	// SaveAnalysis records one CMMS metric run.
	SaveAnalysis(ctx context.Context, a model.Analysis) error

	// Analyses returns the CMMS metric runs for an assessment.
	Analyses(ctx context.Context, assessmentID string) ([]model.Analysis, error)
}
