package runs

import (
	"context"
	"xssdawn/pkg/domain"
)

//go:generate mockgen -package mockruns -source=interface.go -destination=mock/mockruns.go *
type Service interface {
	Enqueue(ctx context.Context, req domain.Request) (*domain.Run, error)
	Record(ctx context.Context, req domain.Request, result *domain.Result, runErr error) (*domain.Run, error)
	Runs(ctx context.Context,
		target string,
		status domain.RunStatus,
		cursor string,
		limit uint) ([]domain.Run, string, error)
	Result(ctx context.Context, id domain.RunID) (*domain.Run, error)
}
