// Package worker defines worker contracts for asynchronous narrative
// scoring and response writes.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/maintiq/rmi/internal/domain/model"
	"github.com/maintiq/rmi/internal/domain/normalize"
	"github.com/maintiq/rmi/pkg/logger"
	"github.com/maintiq/rmi/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Job abstracts what workers read off the queue.
type Job = model.NarrativeJob

// Normalizer scores a raw answer for its question.
type Normalizer interface {
	Normalize(ctx context.Context, q model.Question, raw string) (normalize.Normalized, error)
}

// Saver reads the stored response under scoring and writes the scored
// result back. Scoring only touches the score fields; everything the
// submitter saved (evidence, notes, timestamps) stays intact.
type Saver interface {
	Response(ctx context.Context, assessmentID, responseID string) (model.Response, error)
	SaveResponse(ctx context.Context, r model.Response) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes narrative jobs and writes scored responses.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will process any remaining jobs before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing narrative jobs.
type InMemoryWorker struct {
	queue      Queue
	normalizer Normalizer
	saver      Saver
	name       string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, normalizer Normalizer, saver Saver, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      queue,
		normalizer: normalizer,
		saver:      saver,
		name:       "worker",
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	jobChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobChan:
			if !ok {
				return
			}

			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing narrative job", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob scores one free-text response and writes the result back.
// A degraded fallback is data, not an error; only a failed write fails
// the job, and the job is then dropped rather than retried.
func (w *InMemoryWorker) processJob(ctx context.Context, job Job) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordWorkerProcessingLatency(float64(latency))
	}()

	question := model.Question{
		Code: job.QuestionCode,
		Text: job.QuestionText,
		Type: model.TypeObservational,
	}
	normalized, err := w.normalizer.Normalize(ctx, question, job.ResponseText)
	if err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("normalize response %s: %w", job.ResponseID, err)
	}

	if normalized.Degraded {
		metrics.RecordNarrativeDegradation()
		w.logger.Warn(ctx, "narrative score degraded to neutral",
			logger.String("responseID", job.ResponseID),
			logger.String("questionCode", job.QuestionCode),
		)
	}

	response, err := w.saver.Response(ctx, job.AssessmentID, job.ResponseID)
	if err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("load response %s: %w", job.ResponseID, err)
	}
	response.NumericScore = model.Float(normalized.Score)
	response.Degraded = normalized.Degraded
	response.Rationale = normalized.Rationale
	if err := w.saver.SaveResponse(ctx, response); err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "saving scored response failed",
			logger.String("responseID", job.ResponseID),
			logger.Error(err),
		)
		return fmt.Errorf("save response %s: %w", job.ResponseID, err)
	}

	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers    []*InMemoryWorker
	queue      Queue
	normalizer Normalizer
	saver      Saver

	// Shutdown control
	shutdown chan struct{}

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, normalizer Normalizer, saver Saver) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:    make([]*InMemoryWorker, workerCount),
		queue:      queue,
		normalizer: normalizer,
		saver:      saver,
		shutdown:   make(chan struct{}),
		logger:     logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			normalizer,
			saver,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	close(p.shutdown)

	for _, worker := range p.workers {
		select {
		case <-worker.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// Close the queue first so workers drain what remains.
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	metrics.UpdateWorkerCount(0)

	return nil
}
