package main

import (
	"context"
	"time"

	"github.com/nadmax/modreport/internal/metrics"
	"github.com/sirupsen/logrus"
)

type depthReader interface {
	Depth(ctx context.Context) (int64, error)
}

func startMetricsCollector(ctx context.Context, q depthReader) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	updateQueueMetrics(ctx, q)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateQueueMetrics(ctx, q)
		}
	}
}

func updateQueueMetrics(ctx context.Context, q depthReader) {
	depth, err := q.Depth(ctx)
	if err != nil {
		logrus.Warnf("Failed to read digest queue depth: %v", err)
		return
	}

	metrics.UpdateDigestQueueDepth(int(depth))
}
