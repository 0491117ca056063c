package repository

import (
	"context"

	"github.com/nadmax/modreport/internal/outcome"
)

// TaskResultRepository runs grouped aggregations over the task-result store.
// Rows come back in store order, one per (module, success) group.
type TaskResultRepository interface {
	CountByModule(ctx context.Context, f outcome.Filter) ([]outcome.GroupRow, error)
	LatencyByModule(ctx context.Context, f outcome.Filter) ([]outcome.GroupRow, error)
	Ping(ctx context.Context) error
	Close() error
}
