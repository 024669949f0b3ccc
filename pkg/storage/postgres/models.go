package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
	"xssdawn/pkg/domain"

	"github.com/google/uuid"
)

// PgRun is the row layout of the runs table.
type PgRun struct {
	ID     uuid.UUID `db:"id"     goqu:"skipinsert"`
	Target string    `db:"target"`

	Request json.RawMessage `db:"request"`
	Status  string          `db:"status"`
	Result  json.RawMessage `db:"result" goqu:"skipinsert"`

	Attempts  uint           `db:"attempts"   goqu:"skipinsert"`
	LastError sql.NullString `db:"last_error" goqu:"skipinsert"`

	CreatedAt time.Time    `db:"created_at" goqu:"skipinsert"`
	UpdatedAt sql.NullTime `db:"updated_at" goqu:"skipinsert"`
}

func (p *PgRun) ToDomain() (*domain.Run, error) {
	var request domain.Request
	if err := json.Unmarshal(p.Request, &request); err != nil {
		return nil, fmt.Errorf("could not unmarshal run request: %w", err)
	}
	var result domain.Result
	if len(p.Result) > 0 {
		if err := json.Unmarshal(p.Result, &result); err != nil {
			return nil, fmt.Errorf("could not unmarshal run result: %w", err)
		}
	}

	return &domain.Run{
		ID:        domain.RunID(p.ID),
		Target:    p.Target,
		Request:   request,
		Status:    domain.RunStatus(p.Status),
		Result:    result,
		Attempts:  p.Attempts,
		LastError: p.LastError.String,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt.Time,
	}, nil
}

func (p *PgRun) FromDomain(run domain.Run) error {
	request, err := json.Marshal(run.Request)
	if err != nil {
		return fmt.Errorf("could not marshal run request: %w", err)
	}
	result, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("could not marshal run result: %w", err)
	}

	*p = PgRun{
		ID:       uuid.UUID(run.ID),
		Target:   run.Target,
		Request:  request,
		Status:   string(run.Status),
		Result:   result,
		Attempts: run.Attempts,
		LastError: sql.NullString{
			String: run.LastError,
			Valid:  run.LastError != "",
		},
		CreatedAt: run.CreatedAt,
		UpdatedAt: sql.NullTime{
			Time:  run.UpdatedAt,
			Valid: !run.UpdatedAt.IsZero(),
		},
	}

	return nil
}

func pgRunsToDomain(runs []PgRun) ([]domain.Run, error) {
	out := make([]domain.Run, 0, len(runs))
	for _, run := range runs {
		d, err := run.ToDomain()
		if err != nil {
			return nil, err
		}

		out = append(out, *d)
	}

	return out, nil
}
