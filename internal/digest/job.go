// Package digest emails module outcome reports on request. Jobs are queued in
// Redis and processed by a polling worker that reuses the report service.
package digest

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nadmax/modreport/internal/outcome"
	"github.com/nadmax/modreport/internal/report"
)

type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

const MsgRecipientRequired = "recipient is required"

type Job struct {
	ID          string          `json:"id"`
	Variant     outcome.Variant `json:"variant"`
	Client      string          `json:"client,omitempty"`
	Provider    string          `json:"provider,omitempty"`
	Date        string          `json:"date"`
	Recipient   string          `json:"recipient"`
	Status      JobStatus       `json:"status"`
	Modules     int             `json:"modules,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
}

func NewJob(variant outcome.Variant, client, provider, date, recipient string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New().String(),
		Variant:     variant,
		Client:      client,
		Provider:    provider,
		Date:        date,
		Recipient:   recipient,
		Status:      StatusPending,
		CreatedAt:   now,
		ScheduledAt: now,
	}
}

// Request validates the job's report parameters the same way the HTTP
// variants do, minus the token.
func (j *Job) Request() (report.Request, error) {
	if j.Recipient == "" {
		return report.Request{}, outcome.NewValidationError(MsgRecipientRequired)
	}

	p := report.Params{
		Client:   j.Client,
		Provider: j.Provider,
		Date:     j.Date,
	}
	return p.ValidateFilters(j.Variant)
}

func (j *Job) ToJSON() (string, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func JobFromJSON(data string) (*Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, err
	}

	return &job, nil
}
