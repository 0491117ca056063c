package report

import (
	"context"
	"fmt"
	"time"

	"github.com/nadmax/modreport/internal/logging"
	"github.com/nadmax/modreport/internal/metrics"
	"github.com/nadmax/modreport/internal/outcome"
	"github.com/nadmax/modreport/internal/repository"
	"github.com/sirupsen/logrus"
)

// DefaultRequester is the requester tag of the caller whose tasks are reported.
const DefaultRequester = "filplus"

type Service struct {
	repo      repository.TaskResultRepository
	requester string
}

func NewService(repo repository.TaskResultRepository, requester string) *Service {
	if requester == "" {
		requester = DefaultRequester
	}

	return &Service{
		repo:      repo,
		requester: requester,
	}
}

func (s *Service) Requester() string {
	return s.requester
}

func (s *Service) Filter(req Request) outcome.Filter {
	return outcome.Filter{
		Requester: s.requester,
		Subject:   req.Subject,
		Window:    req.Window,
	}
}

// Run queries the store for req and folds the grouped rows into one summary
// per module. Latency percentiles are only populated for VariantLatency.
func (s *Service) Run(ctx context.Context, req Request) ([]outcome.ModuleSummary, error) {
	f := s.Filter(req)

	var (
		rows []outcome.GroupRow
		err  error
	)

	start := time.Now()
	switch req.Variant {
	case outcome.VariantCounts:
		rows, err = s.repo.CountByModule(ctx, f)
	case outcome.VariantLatency:
		rows, err = s.repo.LatencyByModule(ctx, f)
	default:
		return nil, fmt.Errorf("unsupported report variant: %q", req.Variant)
	}
	metrics.RecordStoreQuery(req.Variant.String(), time.Since(start))

	if err != nil {
		return nil, fmt.Errorf("failed to query module outcomes: %w", err)
	}

	summaries := outcome.Fold(rows)
	metrics.RecordModulesReported(req.Variant.String(), len(summaries))

	logging.FromContext(ctx).WithFields(logrus.Fields{
		"variant": req.Variant,
		"subject": req.Subject.Kind,
		"date":    req.Date,
		"groups":  len(rows),
		"modules": len(summaries),
	}).Debug("module outcome report built")

	return summaries, nil
}

// Counts runs a VariantCounts request and returns rows without percentiles.
func (s *Service) Counts(ctx context.Context, req Request) ([]outcome.ModuleCounts, error) {
	req.Variant = outcome.VariantCounts

	summaries, err := s.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	return outcome.Counts(summaries), nil
}

func (s *Service) Latency(ctx context.Context, req Request) ([]outcome.ModuleSummary, error) {
	req.Variant = outcome.VariantLatency
	return s.Run(ctx, req)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
