// Package dashboard implements the monitoring endpoints for digest jobs.
package dashboard

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/nadmax/modreport/internal/digest"
	"github.com/nadmax/modreport/internal/httputil"
	"github.com/nadmax/modreport/internal/logging"
)

// JobLister returns every known digest job.
type JobLister interface {
	All(ctx context.Context) ([]*digest.Job, error)
}

type Dashboard struct {
	jobs JobLister
	now  func() time.Time
}

type Stats struct {
	TotalJobs       int            `json:"total_jobs"`
	PendingJobs     int            `json:"pending_jobs"`
	RunningJobs     int            `json:"running_jobs"`
	CompletedJobs   int            `json:"completed_jobs"`
	FailedJobs      int            `json:"failed_jobs"`
	JobsByVariant   map[string]int `json:"jobs_by_variant"`
	AverageWaitTime string         `json:"average_wait_time"`
	LastUpdated     time.Time      `json:"last_updated"`
}

type JobHistory struct {
	JobID       string           `json:"job_id"`
	Variant     string           `json:"variant"`
	Date        string           `json:"date"`
	Status      digest.JobStatus `json:"status"`
	Modules     int              `json:"modules"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at"`
	Duration    string           `json:"duration"`
}

func NewDashboard(jobs JobLister) *Dashboard {
	return &Dashboard{jobs: jobs, now: time.Now}
}

func (d *Dashboard) GetStats(w http.ResponseWriter, r *http.Request) {
	jobs, err := d.jobs.All(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Errorf("failed to list digest jobs: %v", err)
		httputil.WriteJSONError(w, "Failed to list digest jobs", http.StatusInternalServerError)
		return
	}

	stats := Stats{
		TotalJobs:     len(jobs),
		JobsByVariant: make(map[string]int),
		LastUpdated:   d.now().UTC(),
	}

	var totalWait time.Duration
	waitCount := 0

	for _, job := range jobs {
		switch job.Status {
		case digest.StatusPending:
			stats.PendingJobs++
		case digest.StatusRunning:
			stats.RunningJobs++
		case digest.StatusCompleted:
			stats.CompletedJobs++
		case digest.StatusFailed:
			stats.FailedJobs++
		}

		stats.JobsByVariant[job.Variant.String()]++

		// Wait is measured from ScheduledAt, not CreatedAt.
		if job.StartedAt != nil {
			totalWait += job.StartedAt.Sub(job.ScheduledAt)
			waitCount++
		}
	}

	if waitCount > 0 {
		avg := totalWait / time.Duration(waitCount)
		stats.AverageWaitTime = avg.Round(time.Millisecond).String()
	} else {
		stats.AverageWaitTime = "N/A"
	}

	httputil.WriteJSON(w, stats, http.StatusOK)
}

// GetRecentJobs lists jobs finished in the last 24 hours, newest first.
func (d *Dashboard) GetRecentJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := d.jobs.All(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Errorf("failed to list digest jobs: %v", err)
		httputil.WriteJSONError(w, "Failed to list digest jobs", http.StatusInternalServerError)
		return
	}

	cutoff := d.now().Add(-24 * time.Hour)
	history := []JobHistory{}

	for _, job := range jobs {
		if job.CompletedAt == nil || job.CompletedAt.Before(cutoff) {
			continue
		}

		var duration string
		if job.StartedAt != nil {
			duration = job.CompletedAt.Sub(*job.StartedAt).Round(time.Millisecond).String()
		}

		history = append(history, JobHistory{
			JobID:       job.ID,
			Variant:     job.Variant.String(),
			Date:        job.Date,
			Status:      job.Status,
			Modules:     job.Modules,
			Error:       job.Error,
			CreatedAt:   job.CreatedAt,
			CompletedAt: job.CompletedAt,
			Duration:    duration,
		})
	}

	sort.Slice(history, func(i, j int) bool {
		return history[i].CompletedAt.After(*history[j].CompletedAt)
	})

	httputil.WriteJSON(w, history, http.StatusOK)
}
