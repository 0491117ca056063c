package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/nadmax/modreport/internal/metrics"
	"github.com/nadmax/modreport/internal/outcome"
	"github.com/nadmax/modreport/internal/report"
	"github.com/sirupsen/logrus"
)

// Reporter runs a validated report request.
type Reporter interface {
	Run(ctx context.Context, req report.Request) ([]outcome.ModuleSummary, error)
}

type Worker struct {
	id           string
	queue        *Queue
	reporter     Reporter
	mailer       Mailer
	stop         chan struct{}
	done         chan struct{}
	pollInterval time.Duration
	logger       *logrus.Entry
}

func NewWorker(id string, q *Queue, reporter Reporter, mailer Mailer) *Worker {
	return &Worker{
		id:           id,
		queue:        q,
		reporter:     reporter,
		mailer:       mailer,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		pollInterval: time.Second,
		logger:       logrus.WithField("worker", id),
	}
}

func (w *Worker) SetPollInterval(d time.Duration) {
	w.pollInterval = d
}

// Start polls the queue until Stop is called or ctx is done.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)
	w.logger.Info("digest worker started")

	for {
		select {
		case <-w.stop:
			w.logger.Info("digest worker stopped")
			return
		case <-ctx.Done():
			w.logger.Info("digest worker context done")
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			w.logger.Warnf("failed to dequeue digest job: %v", err)
		}
		if err != nil || job == nil {
			w.wait(ctx)
			continue
		}

		w.processJob(ctx, job)
	}
}

func (w *Worker) wait(ctx context.Context) {
	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-w.stop:
	case <-ctx.Done():
	}
}

func (w *Worker) processJob(ctx context.Context, job *Job) {
	logger := w.logger.WithFields(logrus.Fields{
		"job_id":  job.ID,
		"variant": job.Variant,
		"date":    job.Date,
	})
	logger.Info("processing digest job")

	now := time.Now().UTC()
	job.Status = StatusRunning
	job.StartedAt = &now
	if err := w.queue.Update(ctx, job); err != nil {
		logger.Warnf("failed to update digest job status to running: %v", err)
	}

	modules, err := w.run(ctx, job)
	completedAt := time.Now().UTC()
	job.CompletedAt = &completedAt

	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		metrics.RecordDigestFailed()
		logger.Errorf("digest job failed: %v", err)
	} else {
		job.Status = StatusCompleted
		job.Modules = modules
		metrics.RecordDigestSent()
		logger.Infof("digest sent to %s (%d modules)", job.Recipient, modules)
	}

	if err := w.queue.Update(ctx, job); err != nil {
		logger.Warnf("failed to update digest job: %v", err)
	}
}

func (w *Worker) run(ctx context.Context, job *Job) (int, error) {
	req, err := job.Request()
	if err != nil {
		return 0, fmt.Errorf("invalid digest job: %w", err)
	}

	summaries, err := w.reporter.Run(ctx, req)
	if err != nil {
		return 0, err
	}

	msg, err := Render(job, summaries)
	if err != nil {
		return 0, err
	}

	if err := w.mailer.Send(ctx, msg); err != nil {
		return 0, err
	}

	return len(summaries), nil
}

// Stop signals a running Start to return and waits for it.
func (w *Worker) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	<-w.done
}
