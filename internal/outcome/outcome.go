// Package outcome defines the module outcome report model: the typed filter
// sent to the task-result store, the grouped rows it returns and the
// per-module summaries served to callers.
package outcome

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format accepted in report requests.
const DateLayout = "2006-01-02"

type (
	Variant     string
	SubjectKind string
)

const (
	// VariantCounts reports total and successful task counts per module.
	VariantCounts Variant = "counts"
	// VariantLatency additionally reports ttfb percentiles of successful tasks.
	VariantLatency Variant = "latency"
)

const (
	SubjectClient   SubjectKind = "client"
	SubjectProvider SubjectKind = "provider"
)

func (v Variant) Valid() bool {
	return v == VariantCounts || v == VariantLatency
}

func (v Variant) String() string {
	return string(v)
}

// Subject is the single identifier a report is scoped to.
type Subject struct {
	Kind SubjectKind
	ID   string
}

func ClientSubject(id string) Subject {
	return Subject{Kind: SubjectClient, ID: id}
}

func ProviderSubject(id string) Subject {
	return Subject{Kind: SubjectProvider, ID: id}
}

func (s Subject) String() string {
	return fmt.Sprintf("%s=%s", s.Kind, s.ID)
}

// Window is a half-open UTC time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// DayWindow returns the 24 hour UTC window anchored at midnight of day.
func DayWindow(day time.Time) Window {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return Window{
		Start: start,
		End:   start.AddDate(0, 0, 1),
	}
}

// ParseDay parses a YYYY-MM-DD date into its UTC day window.
func ParseDay(date string) (Window, error) {
	day, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return Window{}, err
	}

	return DayWindow(day), nil
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Filter is the fully typed constraint set of one aggregation request.
type Filter struct {
	Requester string
	Subject   Subject
	Window    Window
}

// GroupRow is one (module, success) group returned by the store.
// The percentiles are only populated for latency reports.
type GroupRow struct {
	Module  string
	Success bool
	Count   int64
	TTFBP50 *float64
	TTFBP95 *float64
}

type ModuleCounts struct {
	Module  string `json:"module"`
	Total   int64  `json:"total"`
	Success int64  `json:"success"`
}

type ModuleSummary struct {
	ModuleCounts
	TTFBP50 *float64 `json:"ttfb_p50"`
	TTFBP95 *float64 `json:"ttfb_p95"`
}
