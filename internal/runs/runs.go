// Package runs persists pipeline runs and feeds queued ones to the worker.
package runs

import (
	"context"
	"fmt"
	"strings"
	"time"
	"xssdawn/internal/config"
	"xssdawn/internal/pipeline"
	"xssdawn/pkg/domain"
	"xssdawn/pkg/serrors"
	"xssdawn/pkg/storage"
)

const (
	// DefaultLimit is the page size used when the caller does not set one.
	DefaultLimit = 20
	// MaxLimit caps the page size.
	MaxLimit = 100
)

// Options configure how run jobs are enqueued.
type Options struct {
	// MaxAttempts is the maximum number of attempts the background worker should
	// make when processing a run before marking it failed.
	MaxAttempts int
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		MaxAttempts: cfg.Queue.MaxAttempts,
	}
}

// service is the concrete implementation of the Service interface.
type service struct {
	options Options
	storage storage.Storage
}

// Enqueue validates req, stores it as a PENDING run and inserts the job that
// executes it. Both writes share a transaction, so a worker never sees a job
// without its run.
func (s service) Enqueue(ctx context.Context, req domain.Request) (*domain.Run, error) {
	target, err := pipeline.ValidateRequest(req)
	if err != nil {
		return nil, err
	}
	if req.Scanner == "" {
		req.Scanner = domain.ScannerXSS
	}

	var run *domain.Run
	if err := s.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		stored, err := tx.StoreRun(ctx, domain.Run{
			Target:  target.Domain,
			Request: req,
			Status:  domain.RunStatusPending,
		})
		if err != nil {
			return fmt.Errorf("could not store run: %w", err)
		}
		run = stored

		added, err := tx.AddJob(ctx, JobArgs{
			RunID:       run.ID,
			maxAttempts: s.options.MaxAttempts,
		}, nil)
		if err != nil {
			return fmt.Errorf("could not add job: %w", err)
		}
		if !added {
			return serrors.With(serrors.ErrConflict, "run %s is already queued", run.ID)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("could not enqueue run: %w", err)
	}

	return run, nil
}

// Record stores a run that was executed in-process. runErr decides whether it
// is stored as COMPLETED or FAILED; a partial result is kept either way.
func (s service) Record(ctx context.Context,
	req domain.Request,
	result *domain.Result,
	runErr error) (*domain.Run, error) {
	target, err := pipeline.ParseTarget(req.Target)
	if err != nil {
		return nil, err
	}

	updates := storage.RunUpdates{
		Status:            domain.RunStatusCompleted,
		Result:            result,
		IncrementAttempts: true,
	}
	if runErr != nil {
		msg := runErr.Error()
		updates.Status = domain.RunStatusFailed
		updates.LastError = &msg
	}

	var run *domain.Run
	if err := s.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		stored, err := tx.StoreRun(ctx, domain.Run{
			Target:  target.Domain,
			Request: req,
			Status:  domain.RunStatusRunning,
		})
		if err != nil {
			return fmt.Errorf("could not store run: %w", err)
		}

		run, err = tx.UpdateRunByID(ctx, stored.ID, updates)
		if err != nil {
			return fmt.Errorf("could not update run: %w", err)
		}
		if run == nil {
			return serrors.With(serrors.ErrInternal, "stored run %s vanished", stored.ID)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("could not record run: %w", err)
	}

	return run, nil
}

// Runs returns a page of runs, newest first, optionally narrowed to a target
// and a status. The cursor comes from the previous page (see FormatCursor);
// the returned cursor is empty on the last page.
func (s service) Runs(ctx context.Context,
	target string,
	status domain.RunStatus,
	cursor string,
	limit uint) ([]domain.Run, string, error) {
	filter := storage.RunFilter{
		Status: status,
		Limit:  limit,
	}
	if filter.Limit == 0 {
		filter.Limit = DefaultLimit
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}

	if target != "" {
		t, err := pipeline.ParseTarget(target)
		if err != nil {
			return nil, "", err
		}
		filter.Target = t.Domain
	}

	switch status {
	case "", domain.RunStatusPending, domain.RunStatusRunning, domain.RunStatusCompleted, domain.RunStatusFailed:
	default:
		return nil, "", serrors.With(serrors.ErrBadRequest, "unknown status %q", status)
	}

	if cursor != "" {
		c, err := ParseCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		filter.Cursor = &c
	}

	page, err := s.storage.Runs(ctx, filter)
	if err != nil {
		return nil, "", fmt.Errorf("could not get runs: %w", err)
	}

	var next string
	if page.NextCursor != nil {
		next = FormatCursor(*page.NextCursor)
	}

	return page.Runs, next, nil
}

// FormatCursor encodes c as "<created_at in RFC3339 with nanoseconds>,<run id>".
func FormatCursor(c storage.RunCursor) string {
	return c.CreatedAt.UTC().Format(time.RFC3339Nano) + "," + c.ID.String()
}

// ParseCursor decodes a cursor made by FormatCursor.
func ParseCursor(s string) (storage.RunCursor, error) {
	ts, id, ok := strings.Cut(s, ",")
	if !ok {
		return storage.RunCursor{}, serrors.With(serrors.ErrBadRequest, "invalid cursor %q", s)
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return storage.RunCursor{}, serrors.Wrap(serrors.ErrBadRequest, err, "invalid cursor time")
	}
	runID, err := domain.ParseRunID(id)
	if err != nil {
		return storage.RunCursor{}, serrors.Wrap(serrors.ErrBadRequest, err, "invalid cursor id")
	}

	return storage.RunCursor{CreatedAt: t, ID: runID}, nil
}

// Result fetches a single run by ID. It returns a not-found error when no
// matching run exists.
func (s service) Result(ctx context.Context, id domain.RunID) (*domain.Run, error) {
	res, err := s.storage.RunByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not get run: %w", err)
	}
	if res == nil {
		return nil, serrors.With(serrors.ErrNotFound, "run %s not found", id)
	}

	return res, nil
}

// New creates a new Service backed by the provided storage.
func New(storage storage.Storage, options Options) Service {
	return &service{
		options: options,
		storage: storage,
	}
}
