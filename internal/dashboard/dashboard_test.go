package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nadmax/modreport/internal/digest"
	"github.com/nadmax/modreport/internal/outcome"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingLister struct{}

func (failingLister) All(context.Context) ([]*digest.Job, error) {
	return nil, errors.New("redis down")
}

func setupTestDashboard(t *testing.T) (*Dashboard, *digest.Queue, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	q, err := digest.NewQueue(mr.Addr())
	require.NoError(t, err)

	return NewDashboard(q), q, mr
}

func storeJob(t *testing.T, q *digest.Queue, variant outcome.Variant, mutate func(*digest.Job)) *digest.Job {
	job := digest.NewJob(variant, "c1", "", "2024-06-01", "ops@example.com")
	if mutate != nil {
		mutate(job)
	}
	require.NoError(t, q.Update(context.Background(), job))
	return job
}

func TestNewDashboard(t *testing.T) {
	dash, q, mr := setupTestDashboard(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()

	assert.NotNil(t, dash)
	assert.NotNil(t, dash.jobs)
}

func TestGetStats_Empty(t *testing.T) {
	dash, q, mr := setupTestDashboard(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()

	req := httptest.NewRequest("GET", "/api/dashboard/stats", nil)
	w := httptest.NewRecorder()

	dash.GetStats(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var stats Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))

	assert.Equal(t, 0, stats.TotalJobs)
	assert.Equal(t, 0, stats.PendingJobs)
	assert.Equal(t, 0, stats.CompletedJobs)
	assert.Equal(t, "N/A", stats.AverageWaitTime)
	assert.NotZero(t, stats.LastUpdated)
}

func TestGetStats_MixedStatuses(t *testing.T) {
	dash, q, mr := setupTestDashboard(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()

	storeJob(t, q, outcome.VariantCounts, nil)
	storeJob(t, q, outcome.VariantCounts, func(j *digest.Job) {
		started := j.ScheduledAt.Add(2 * time.Second)
		j.Status = digest.StatusRunning
		j.StartedAt = &started
	})
	storeJob(t, q, outcome.VariantLatency, func(j *digest.Job) {
		started := j.ScheduledAt.Add(4 * time.Second)
		completed := started.Add(time.Second)
		j.Status = digest.StatusCompleted
		j.StartedAt = &started
		j.CompletedAt = &completed
	})
	storeJob(t, q, outcome.VariantLatency, func(j *digest.Job) {
		j.Status = digest.StatusFailed
	})

	req := httptest.NewRequest("GET", "/api/dashboard/stats", nil)
	w := httptest.NewRecorder()
	dash.GetStats(w, req)

	require.Equal(t, 200, w.Code)

	var stats Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))

	assert.Equal(t, 4, stats.TotalJobs)
	assert.Equal(t, 1, stats.PendingJobs)
	assert.Equal(t, 1, stats.RunningJobs)
	assert.Equal(t, 1, stats.CompletedJobs)
	assert.Equal(t, 1, stats.FailedJobs)
	assert.Equal(t, map[string]int{"counts": 2, "latency": 2}, stats.JobsByVariant)
	assert.Equal(t, "3s", stats.AverageWaitTime)
}

func TestGetStats_ListError(t *testing.T) {
	dash := NewDashboard(failingLister{})

	req := httptest.NewRequest("GET", "/api/dashboard/stats", nil)
	w := httptest.NewRecorder()
	dash.GetStats(w, req)

	assert.Equal(t, 500, w.Code)
	assert.JSONEq(t, `{"error":"Failed to list digest jobs"}`, w.Body.String())
}

func TestGetRecentJobs(t *testing.T) {
	dash, q, mr := setupTestDashboard(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()

	now := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	dash.now = func() time.Time { return now }

	complete := func(at time.Time, status digest.JobStatus, errMsg string) func(*digest.Job) {
		return func(j *digest.Job) {
			started := at.Add(-1500 * time.Millisecond)
			j.Status = status
			j.StartedAt = &started
			j.CompletedAt = &at
			j.Error = errMsg
			j.Modules = 3
		}
	}

	older := storeJob(t, q, outcome.VariantCounts, complete(now.Add(-2*time.Hour), digest.StatusCompleted, ""))
	newer := storeJob(t, q, outcome.VariantLatency, complete(now.Add(-time.Hour), digest.StatusFailed, "sendgrid error: status 500"))
	storeJob(t, q, outcome.VariantCounts, complete(now.Add(-48*time.Hour), digest.StatusCompleted, ""))
	storeJob(t, q, outcome.VariantCounts, nil)

	req := httptest.NewRequest("GET", "/api/dashboard/history", nil)
	w := httptest.NewRecorder()
	dash.GetRecentJobs(w, req)

	require.Equal(t, 200, w.Code)

	var history []JobHistory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))

	require.Len(t, history, 2)
	assert.Equal(t, newer.ID, history[0].JobID)
	assert.Equal(t, "sendgrid error: status 500", history[0].Error)
	assert.Equal(t, older.ID, history[1].JobID)
	assert.Equal(t, "1.5s", history[1].Duration)
	assert.Equal(t, 3, history[1].Modules)
}

func TestGetRecentJobs_Empty(t *testing.T) {
	dash, q, mr := setupTestDashboard(t)
	defer mr.Close()
	defer func() { _ = q.Close() }()

	req := httptest.NewRequest("GET", "/api/dashboard/history", nil)
	w := httptest.NewRecorder()
	dash.GetRecentJobs(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}
