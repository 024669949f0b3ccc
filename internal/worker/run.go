package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"xssdawn/internal/pipeline"
	"xssdawn/internal/runs"
	"xssdawn/pkg/domain"
	"xssdawn/pkg/logger"
	"xssdawn/pkg/serrors"
	"xssdawn/pkg/storage"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

// Recorder observes runs that reached a final status.
type Recorder interface {
	RunFinished(ctx context.Context, status domain.RunStatus)
}

// RunWorker is a River worker that executes a persisted run through the
// pipeline and stores its outcome.
//
// A run moves PENDING -> RUNNING when an attempt starts. A successful attempt
// stores the result and COMPLETED. A failed attempt stores the error message
// and puts the run back to PENDING while river still has attempts left, or
// FAILED on the last one. Bad requests and runs that no longer exist cancel
// the job instead of retrying it.
type RunWorker struct {
	river.WorkerDefaults[runs.JobArgs]

	storage  storage.Storage
	pipeline pipeline.Pipeline
	recorder Recorder
}

// NewRunWorker constructs a RunWorker. recorder may be nil.
func NewRunWorker(storage storage.Storage, pipeline pipeline.Pipeline, recorder Recorder) *RunWorker {
	return &RunWorker{
		storage:  storage,
		pipeline: pipeline,
		recorder: recorder,
	}
}

// Work executes a single run job and maps failures to River actions.
func (w *RunWorker) Work(ctx context.Context, job *river.Job[runs.JobArgs]) error {
	ctx = logger.WithFields(ctx,
		zap.Int64("jobID", job.ID),
		zap.Stringer("runID", job.Args.RunID),
		zap.Int("attempt", job.Attempt))

	run, err := w.storage.RunByID(ctx, job.Args.RunID)
	if err != nil {
		return fmt.Errorf("could not load run: %w", err)
	}
	if run == nil {
		logger.Warn(ctx, "run not found, cancelling job")

		return river.JobCancel(serrors.With(serrors.ErrNotFound, "run %s not found", job.Args.RunID)) //nolint: wrapcheck
	}
	if run.Status == domain.RunStatusCompleted {
		logger.Info(ctx, "run already completed")

		return nil
	}

	if _, err := w.storage.UpdateRunByID(ctx, run.ID, storage.RunUpdates{
		Status:            domain.RunStatusRunning,
		IncrementAttempts: true,
	}); err != nil {
		return fmt.Errorf("could not mark run as running: %w", err)
	}

	result, err := w.pipeline.Run(ctx, run.Request)
	if err == nil && run.Request.OutputPath != "" {
		err = pipeline.WriteOutput(run.Request.OutputPath, io.Discard, result.Lines)
	}
	if err != nil {
		return w.fail(ctx, job, run, result, err)
	}

	cleared := ""
	if _, err := w.storage.UpdateRunByID(ctx, run.ID, storage.RunUpdates{
		Status:    domain.RunStatusCompleted,
		Result:    result,
		LastError: &cleared,
	}); err != nil {
		return fmt.Errorf("could not store run result: %w", err)
	}
	w.finished(ctx, domain.RunStatusCompleted)

	logger.Info(ctx, "run completed", zap.Int("lines", len(result.Lines)))

	return nil
}

// fail records runErr on the run. The bookkeeping outlives ctx so that a run
// interrupted by shutdown still gets its error stored.
func (w *RunWorker) fail(ctx context.Context,
	job *river.Job[runs.JobArgs],
	run *domain.Run,
	result *domain.Result,
	runErr error) error {
	badRequest := errors.Is(runErr, serrors.ErrBadRequest)
	final := badRequest || job.Attempt >= job.MaxAttempts

	msg := runErr.Error()
	updates := storage.RunUpdates{
		Status:    domain.RunStatusPending,
		Result:    result,
		LastError: &msg,
	}
	if final {
		updates.Status = domain.RunStatusFailed
	}

	logger.Error(ctx, "run failed", zap.Error(runErr), zap.Bool("final", final))

	if _, err := w.storage.UpdateRunByID(context.WithoutCancel(ctx), run.ID, updates); err != nil {
		logger.Error(ctx, "could not store run failure", zap.Error(err))
	}
	if final {
		w.finished(ctx, domain.RunStatusFailed)
	}

	if badRequest {
		return river.JobCancel(runErr) //nolint: wrapcheck
	}

	return fmt.Errorf("could not execute run: %w", runErr)
}

func (w *RunWorker) finished(ctx context.Context, status domain.RunStatus) {
	if w.recorder != nil {
		w.recorder.RunFinished(ctx, status)
	}
}
