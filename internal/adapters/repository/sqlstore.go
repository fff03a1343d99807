package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/maintiq/rmi/internal/domain/model"
)

// SQLStore is the MySQL-backed Store.
type SQLStore struct {
	db *sql.DB
}

// SQLOption applies a configuration option to the SQLStore pool.
type SQLOption func(*sqlSettings)

type sqlSettings struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
}

// WithPool overrides the connection pool sizing.
func WithPool(maxOpen, maxIdle int) SQLOption {
	return func(s *sqlSettings) {
		if maxOpen > 0 {
			s.maxOpen = maxOpen
		}
		if maxIdle > 0 {
			s.maxIdle = maxIdle
		}
	}
}

// NewSQLStore opens the MySQL pool and verifies connectivity. The DSN
// must enable parseTime for the DATETIME columns.
func NewSQLStore(dsn string, opts ...SQLOption) (*SQLStore, error) {
	settings := sqlSettings{maxOpen: 10, maxIdle: 5, maxLifetime: 5 * time.Minute}
	for _, opt := range opts {
		opt(&settings)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(settings.maxOpen)
	db.SetMaxIdleConns(settings.maxIdle)
	db.SetConnMaxLifetime(settings.maxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Close releases the connection pool.
func (s *SQLStore) Close() error { return s.db.Close() }

// CreateTables creates the schema if it does not exist.
func (s *SQLStore) CreateTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS assessments (
			id                VARCHAR(36)  NOT NULL,
			client_name       VARCHAR(255) NOT NULL,
			site_name         VARCHAR(255) NOT NULL,
			status            VARCHAR(32)  NOT NULL,
			framework_version VARCHAR(32)  NOT NULL,
			assessment_date   DATETIME     NOT NULL,
			PRIMARY KEY (id)
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			code                 VARCHAR(32)   NOT NULL,
			text                 TEXT          NOT NULL,
			pillar               VARCHAR(16)   NOT NULL,
			subcategory          VARCHAR(64)   NOT NULL,
			target_role          VARCHAR(32)   NOT NULL,
			type                 VARCHAR(16)   NOT NULL,
			weight               DOUBLE        NOT NULL DEFAULT 1.0,
			evidence_required    TINYINT(1)    NOT NULL DEFAULT 0,
			evidence_description TEXT,
			is_critical          TINYINT(1)    NOT NULL DEFAULT 0,
			min_score            DOUBLE        NOT NULL DEFAULT 1.0,
			max_score            DOUBLE        NOT NULL DEFAULT 5.0,
			scoring_bands        JSON,
			framework_version    VARCHAR(32)   NOT NULL,
			PRIMARY KEY (code)
		)`,
		`CREATE TABLE IF NOT EXISTS responses (
			id                VARCHAR(36)  NOT NULL,
			assessment_id     VARCHAR(36)  NOT NULL,
			question_code     VARCHAR(32)  NOT NULL,
			raw_value         TEXT,
			numeric_score     DOUBLE,
			evidence_provided TINYINT(1)   NOT NULL DEFAULT 0,
			evidence_notes    TEXT,
			is_draft          TINYINT(1)   NOT NULL DEFAULT 0,
			is_na             TINYINT(1)   NOT NULL DEFAULT 0,
			degraded          TINYINT(1)   NOT NULL DEFAULT 0,
			rationale         TEXT,
			answered_at       DATETIME     NOT NULL,
			PRIMARY KEY (id),
			INDEX idx_responses_assessment (assessment_id)
		)`,
		`CREATE TABLE IF NOT EXISTS observations (
			id            VARCHAR(36)  NOT NULL,
			assessment_id VARCHAR(36)  NOT NULL,
			pillar        VARCHAR(16)  NOT NULL,
			title         VARCHAR(255) NOT NULL,
			type          VARCHAR(64)  NOT NULL,
			subcategory   VARCHAR(64),
			pass_fail     TINYINT(1),
			severity      VARCHAR(16),
			notes         TEXT,
			observed_at   DATETIME     NOT NULL,
			PRIMARY KEY (id),
			INDEX idx_observations_assessment (assessment_id)
		)`,
		`CREATE TABLE IF NOT EXISTS scores (
			id             VARCHAR(36) NOT NULL,
			assessment_id  VARCHAR(36) NOT NULL,
			pillar         VARCHAR(16),
			raw_score      DOUBLE      NOT NULL,
			weighted_score DOUBLE      NOT NULL,
			final_score    DOUBLE      NOT NULL,
			confidence     VARCHAR(64) NOT NULL,
			method         JSON,
			calculated_at  DATETIME    NOT NULL,
			PRIMARY KEY (id),
			INDEX idx_scores_assessment (assessment_id)
		)`,
		`CREATE TABLE IF NOT EXISTS analyses (
			id            VARCHAR(36)  NOT NULL,
			assessment_id VARCHAR(36)  NOT NULL,
			kind          VARCHAR(64)  NOT NULL,
			data_source   VARCHAR(255) NOT NULL,
			sample_size   INT          NOT NULL,
			passed        TINYINT(1)   NOT NULL,
			metrics       JSON,
			analyzed_at   DATETIME     NOT NULL,
			PRIMARY KEY (id),
			INDEX idx_analyses_assessment (assessment_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

func unmarshalBands(raw string, bands *[]model.ScoringBand) error {
	if raw == "" || raw == "[]" {
		return nil
	}
	return json.Unmarshal([]byte(raw), bands)
}

// Assessment returns one assessment by ID.
func (s *SQLStore) Assessment(ctx context.Context, id string) (model.Assessment, error) {
	var a model.Assessment
	err := s.db.QueryRowContext(ctx,
		`SELECT id, client_name, site_name, status, framework_version, assessment_date
		 FROM assessments WHERE id = ?`, id,
	).Scan(&a.ID, &a.ClientName, &a.SiteName, &a.Status, &a.FrameworkVersion, &a.AssessmentDate)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Assessment{}, fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Assessment{}, fmt.Errorf("query assessment: %w", err)
	}
	return a, nil
}

// Questions returns the framework questions keyed by code. Scoring
// bands are stored as JSON alongside the scalar columns.
func (s *SQLStore) Questions(ctx context.Context) (map[string]model.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, text, pillar, subcategory, target_role, type, weight,
		        evidence_required, COALESCE(evidence_description, ''), is_critical,
		        min_score, max_score, COALESCE(scoring_bands, '[]'), framework_version
		 FROM questions`)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.Question)
	for rows.Next() {
		var q model.Question
		var pillar, bandsJSON string
		if err := rows.Scan(&q.Code, &q.Text, &pillar, &q.Subcategory, &q.TargetRole,
			&q.Type, &q.Weight, &q.EvidenceRequired, &q.EvidenceDescription,
			&q.IsCritical, &q.MinScore, &q.MaxScore, &bandsJSON, &q.FrameworkVersion); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if p, ok := model.ParsePillar(pillar); ok {
			q.Pillar = p
		}
		if err := unmarshalBands(bandsJSON, &q.ScoringBands); err != nil {
			return nil, fmt.Errorf("question %s bands: %w", q.Code, err)
		}
		out[q.Code] = q
	}
	return out, rows.Err()
}

// Responses returns the responses for an assessment.
func (s *SQLStore) Responses(ctx context.Context, assessmentID string) ([]model.Response, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, assessment_id, question_code, COALESCE(raw_value, ''), numeric_score,
		        evidence_provided, COALESCE(evidence_notes, ''), is_draft, is_na, degraded,
		        COALESCE(rationale, ''), answered_at
		 FROM responses WHERE assessment_id = ?`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()

	var out []model.Response
	for rows.Next() {
		var r model.Response
		var score sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.AssessmentID, &r.QuestionCode, &r.RawValue, &score,
			&r.EvidenceProvided, &r.EvidenceNotes, &r.IsDraft, &r.IsNA, &r.Degraded,
			&r.Rationale, &r.AnsweredAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		if score.Valid {
			r.NumericScore = model.Float(score.Float64)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Response returns one response by ID.
func (s *SQLStore) Response(ctx context.Context, assessmentID, responseID string) (model.Response, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, assessment_id, question_code, COALESCE(raw_value, ''), numeric_score,
		        evidence_provided, COALESCE(evidence_notes, ''), is_draft, is_na, degraded,
		        COALESCE(rationale, ''), answered_at
		 FROM responses WHERE assessment_id = ? AND id = ?`, assessmentID, responseID)

	var r model.Response
	var score sql.NullFloat64
	if err := row.Scan(&r.ID, &r.AssessmentID, &r.QuestionCode, &r.RawValue, &score,
		&r.EvidenceProvided, &r.EvidenceNotes, &r.IsDraft, &r.IsNA, &r.Degraded,
		&r.Rationale, &r.AnsweredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Response{}, fmt.Errorf("response %s: %w", responseID, ErrNotFound)
		}
		return model.Response{}, fmt.Errorf("query response: %w", err)
	}
	if score.Valid {
		r.NumericScore = model.Float(score.Float64)
	}
	return r, nil
}

// SaveResponse inserts or updates one response by ID.
func (s *SQLStore) SaveResponse(ctx context.Context, r model.Response) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	var score sql.NullFloat64
	if r.NumericScore != nil {
		score = sql.NullFloat64{Float64: *r.NumericScore, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO responses
		   (id, assessment_id, question_code, raw_value, numeric_score, evidence_provided,
		    evidence_notes, is_draft, is_na, degraded, rationale, answered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   raw_value = VALUES(raw_value), numeric_score = VALUES(numeric_score),
		   evidence_provided = VALUES(evidence_provided), evidence_notes = VALUES(evidence_notes),
		   is_draft = VALUES(is_draft), is_na = VALUES(is_na), degraded = VALUES(degraded),
		   rationale = VALUES(rationale), answered_at = VALUES(answered_at)`,
		r.ID, r.AssessmentID, r.QuestionCode, r.RawValue, score, r.EvidenceProvided,
		r.EvidenceNotes, r.IsDraft, r.IsNA, r.Degraded, r.Rationale, r.AnsweredAt)
	if err != nil {
		return fmt.Errorf("save response: %w", err)
	}
	return nil
}

// Observations returns the observations for an assessment.
func (s *SQLStore) Observations(ctx context.Context, assessmentID string) ([]model.Observation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, assessment_id, pillar, title, type, COALESCE(subcategory, ''),
		        pass_fail, COALESCE(severity, ''), COALESCE(notes, ''), observed_at
		 FROM observations WHERE assessment_id = ?`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []model.Observation
	for rows.Next() {
		var o model.Observation
		var pillar string
		var passFail sql.NullBool
		if err := rows.Scan(&o.ID, &o.AssessmentID, &pillar, &o.Title, &o.Type,
			&o.Subcategory, &passFail, &o.Severity, &o.Notes, &o.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		if p, ok := model.ParsePillar(pillar); ok {
			o.Pillar = p
		}
		if passFail.Valid {
			o.PassFail = model.Bool(passFail.Bool)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Scores returns the persisted score rows for an assessment.
func (s *SQLStore) Scores(ctx context.Context, assessmentID string) ([]model.Score, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, assessment_id, pillar, raw_score, weighted_score, final_score,
		        confidence, COALESCE(method, ''), calculated_at
		 FROM scores WHERE assessment_id = ?`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var out []model.Score
	for rows.Next() {
		var sc model.Score
		var pillar sql.NullString
		if err := rows.Scan(&sc.ID, &sc.AssessmentID, &pillar, &sc.RawScore,
			&sc.WeightedScore, &sc.FinalScore, &sc.Confidence, &sc.Method, &sc.CalculatedAt); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		if pillar.Valid {
			if p, ok := model.ParsePillar(pillar.String); ok {
				sc.Pillar = &p
			}
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// ReplaceScores deletes the old score set and inserts the new one in a
// single transaction. Readers never observe a partial set.
func (s *SQLStore) ReplaceScores(ctx context.Context, assessmentID string, scores []model.Score) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace scores: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scores WHERE assessment_id = ?`, assessmentID); err != nil {
		return fmt.Errorf("delete scores: %w", err)
	}
	for _, sc := range scores {
		if sc.ID == "" {
			sc.ID = uuid.NewString()
		}
		var pillar sql.NullString
		if sc.Pillar != nil {
			pillar = sql.NullString{String: string(*sc.Pillar), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scores
			   (id, assessment_id, pillar, raw_score, weighted_score, final_score,
			    confidence, method, calculated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sc.ID, assessmentID, pillar, sc.RawScore, sc.WeightedScore, sc.FinalScore,
			sc.Confidence, sc.Method, sc.CalculatedAt); err != nil {
			return fmt.Errorf("insert score: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace scores: %w", err)
	}
	return nil
}

// SaveAnalysis records one CMMS metric run.
func (s *SQLStore) SaveAnalysis(ctx context.Context, a model.Analysis) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, assessment_id, kind, data_source, sample_size, passed, metrics, analyzed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.AssessmentID, a.Kind, a.DataSource, a.SampleSize, a.Passed, a.Metrics, a.AnalyzedAt)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

// Analyses returns the CMMS metric runs for an assessment.
func (s *SQLStore) Analyses(ctx context.Context, assessmentID string) ([]model.Analysis, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, assessment_id, kind, data_source, sample_size, passed, COALESCE(metrics, ''), analyzed_at
		 FROM analyses WHERE assessment_id = ?`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var out []model.Analysis
	for rows.Next() {
		var a model.Analysis
		if err := rows.Scan(&a.ID, &a.AssessmentID, &a.Kind, &a.DataSource,
			&a.SampleSize, &a.Passed, &a.Metrics, &a.AnalyzedAt); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
