// Package repository provides PostgreSQL access to the task-result store.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/nadmax/modreport/internal/outcome"
	"github.com/sirupsen/logrus"
)

type PostgresTaskResultRepository struct {
	db *sql.DB
}

func NewPostgresTaskResultRepository(connectionString string) (*PostgresTaskResultRepository, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewTaskResultRepository(db), nil
}

// NewTaskResultRepository wraps an already opened pool.
func NewTaskResultRepository(db *sql.DB) *PostgresTaskResultRepository {
	return &PostgresTaskResultRepository{db: db}
}

func (r *PostgresTaskResultRepository) CountByModule(ctx context.Context, f outcome.Filter) ([]outcome.GroupRow, error) {
	query, args, err := buildGroupedQuery(outcome.VariantCounts, f)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			logrus.Warnf("failed to close rows: %v", err)
		}
	}()

	var groups []outcome.GroupRow
	for rows.Next() {
		var g outcome.GroupRow
		if err := rows.Scan(&g.Module, &g.Success, &g.Count); err != nil {
			return nil, err
		}

		groups = append(groups, g)
	}

	return groups, rows.Err()
}

func (r *PostgresTaskResultRepository) LatencyByModule(ctx context.Context, f outcome.Filter) ([]outcome.GroupRow, error) {
	query, args, err := buildGroupedQuery(outcome.VariantLatency, f)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			logrus.Warnf("failed to close rows: %v", err)
		}
	}()

	var groups []outcome.GroupRow
	for rows.Next() {
		var g outcome.GroupRow
		var p50, p95 sql.NullFloat64
		if err := rows.Scan(&g.Module, &g.Success, &g.Count, &p50, &p95); err != nil {
			return nil, err
		}

		if p50.Valid {
			g.TTFBP50 = &p50.Float64
		}
		if p95.Valid {
			g.TTFBP95 = &p95.Float64
		}

		groups = append(groups, g)
	}

	return groups, rows.Err()
}

func (r *PostgresTaskResultRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresTaskResultRepository) DB() *sql.DB {
	return r.db
}

func (r *PostgresTaskResultRepository) Close() error {
	return r.db.Close()
}
