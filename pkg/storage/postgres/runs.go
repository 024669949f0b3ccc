package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"xssdawn/pkg/domain"
	"xssdawn/pkg/storage"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const (
	runsTable = "runs"
)

// StoreRun inserts a run. ID, result, attempts and timestamps are generated
// by the database.
func (p *PgSQL) StoreRun(ctx context.Context, run domain.Run) (*domain.Run, error) {
	var row PgRun
	if err := row.FromDomain(run); err != nil {
		return nil, err
	}

	var stored PgRun
	found, err := p.Builder.Insert(runsTable).
		Rows(row).
		Returning(&PgRun{}).
		Executor().ScanStructContext(ctx, &stored)
	if err != nil {
		return nil, fmt.Errorf("could not store run into pg: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("could not store run into pg: no row returned")
	}

	return stored.ToDomain()
}

// UpdateRunByID applies the non-zero fields of updates and sets updated_at.
// It returns nil when no run has the given ID.
func (p *PgSQL) UpdateRunByID(ctx context.Context, id domain.RunID, updates storage.RunUpdates) (*domain.Run, error) {
	rec := goqu.Record{
		"updated_at": goqu.L("CURRENT_TIMESTAMP"),
	}
	if updates.Status != "" {
		rec["status"] = string(updates.Status)
	}
	if updates.IncrementAttempts {
		rec["attempts"] = goqu.L("attempts + 1")
	}
	if updates.Result != nil {
		b, err := json.Marshal(updates.Result)
		if err != nil {
			return nil, fmt.Errorf("could not marshal result: %w", err)
		}

		rec["result"] = b
	}
	if updates.LastError != nil {
		if *updates.LastError == "" {
			// set to NULL when empty string provided
			rec["last_error"] = goqu.L("NULL")
		} else {
			rec["last_error"] = *updates.LastError
		}
	}

	var row PgRun
	found, err := p.Builder.Update(runsTable).
		Set(rec).
		Where(goqu.I("id").Eq(uuid.UUID(id))).
		Returning(&PgRun{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not update run in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// RunByID returns a run by its ID or nil when it does not exist.
func (p *PgSQL) RunByID(ctx context.Context, id domain.RunID) (*domain.Run, error) {
	var row PgRun
	found, err := p.Builder.From(runsTable).
		Where(goqu.I("id").Eq(uuid.UUID(id))).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch run by id: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// Runs returns a page of runs ordered by created_at DESC, id DESC.
func (p *PgSQL) Runs(ctx context.Context, filter storage.RunFilter) (storage.RunsPage, error) {
	var w []goqu.Expression
	if filter.Target != "" {
		w = append(w, goqu.I("target").Eq(filter.Target))
	}
	if filter.Status != "" {
		w = append(w, goqu.I("status").Eq(string(filter.Status)))
	}
	if filter.Cursor != nil {
		w = append(w, goqu.L("(created_at, id) < (?, ?)", filter.Cursor.CreatedAt, uuid.UUID(filter.Cursor.ID)))
	}

	// fetch one extra to determine if there is a next page
	ds := p.Builder.From(runsTable).
		Where(w...).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(filter.Limit + 1)

	var rows []PgRun
	if err := ds.Executor().ScanStructsContext(ctx, &rows); err != nil {
		return storage.RunsPage{}, fmt.Errorf("could not fetch runs from pg: %w", err)
	}

	var nextCursor *storage.RunCursor
	if uint(len(rows)) > filter.Limit {
		rows = rows[:filter.Limit]
		if len(rows) > 0 {
			last := rows[len(rows)-1]
			nextCursor = &storage.RunCursor{CreatedAt: last.CreatedAt, ID: domain.RunID(last.ID)}
		}
	}

	runs, err := pgRunsToDomain(rows)
	if err != nil {
		return storage.RunsPage{}, err
	}

	return storage.RunsPage{
		Runs:       runs,
		NextCursor: nextCursor,
	}, nil
}
