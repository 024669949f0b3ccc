package storage

import (
	"context"
	"time"
	"xssdawn/pkg/domain"
)

// RunUpdates describes a set of optional fields that can be applied to an
// existing run during an update. Zero values leave the field unchanged.
type RunUpdates struct {
	// Status is the new status to set for the run.
	Status domain.RunStatus
	// Result, when provided, replaces the stored result payload.
	Result *domain.Result
	// LastError, when provided, sets the last error text. An empty string value
	// indicates the error should be cleared (set to NULL).
	LastError *string
	// IncrementAttempts increments the attempts counter by one.
	IncrementAttempts bool
}

// RunCursor is the position of the last run of a page. Runs sort by
// created_at then id, both descending, so the pair is unique even when
// several runs share a timestamp.
type RunCursor struct {
	CreatedAt time.Time
	ID        domain.RunID
}

// RunFilter narrows down the runs returned by Runs.
type RunFilter struct {
	// Target, when non-empty, only matches runs for this normalized target.
	Target string
	// Status, when non-empty, only matches runs with this status.
	Status domain.RunStatus
	// Cursor, when set, only matches runs that sort after it.
	Cursor *RunCursor
	// Limit is the page size.
	Limit uint
}

// RunsPage groups a page of runs together with an optional NextCursor used
// for pagination.
type RunsPage struct {
	// Runs contains the current page of run records, newest first.
	Runs []domain.Run
	// NextCursor is the cursor for the next page. It is nil on the last page.
	NextCursor *RunCursor
}

// RunStorage defines CRUD and query operations related to runs.
type RunStorage interface {
	// StoreRun inserts a run and returns the stored row as it exists in the
	// database (including the generated ID and timestamps).
	StoreRun(ctx context.Context, run domain.Run) (*domain.Run, error)
	// UpdateRunByID updates a single run identified by its ID and returns the
	// updated row, or nil if it was not found. updated_at is set automatically.
	UpdateRunByID(ctx context.Context, ID domain.RunID, updates RunUpdates) (*domain.Run, error)
	// RunByID fetches a run by its ID. Returns nil when not found.
	RunByID(ctx context.Context, ID domain.RunID) (*domain.Run, error)
	// Runs returns a page of runs matching filter, ordered by created_at DESC, id DESC.
	Runs(ctx context.Context, filter RunFilter) (RunsPage, error)
}
