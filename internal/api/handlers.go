package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nadmax/modreport/internal/dashboard"
	"github.com/nadmax/modreport/internal/digest"
	"github.com/nadmax/modreport/internal/httputil"
	"github.com/nadmax/modreport/internal/logging"
	"github.com/nadmax/modreport/internal/metrics"
	"github.com/nadmax/modreport/internal/middleware"
	"github.com/nadmax/modreport/internal/outcome"
	"github.com/nadmax/modreport/internal/report"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxDigestBody = 64 << 10

// DigestQueue is the part of the digest queue the API needs.
type DigestQueue interface {
	Enqueue(ctx context.Context, job *digest.Job) error
	Get(ctx context.Context, jobID string) (*digest.Job, error)
	All(ctx context.Context) ([]*digest.Job, error)
}

type API struct {
	reports *report.Service
	digests DigestQueue
	dash    *dashboard.Dashboard
	secret  string
	mux     *http.ServeMux
	handler http.Handler
}

type DigestRequest struct {
	Variant    outcome.Variant `json:"variant"`
	Client     string          `json:"client"`
	Provider   string          `json:"provider"`
	Date       string          `json:"date"`
	Recipient  string          `json:"recipient"`
	ScheduleIn *int            `json:"schedule_in"`
}

// NewAPI wires the HTTP routes. digests may be nil, in which case the digest
// endpoints answer 503.
func NewAPI(reports *report.Service, digests DigestQueue, secret string) *API {
	api := &API{
		reports: reports,
		digests: digests,
		secret:  secret,
		mux:     http.NewServeMux(),
	}
	if digests != nil {
		api.dash = dashboard.NewDashboard(digests)
	}

	api.setupRoutes()
	api.handler = middleware.Chain(api.mux,
		middleware.RequestID,
		middleware.AccessLog,
		middleware.MetricsMiddleware,
	)
	return api
}

func (a *API) setupRoutes() {
	a.mux.HandleFunc("/api/modules/outcomes", a.handleReport(outcome.VariantCounts))
	a.mux.HandleFunc("/api/modules/latency", a.handleReport(outcome.VariantLatency))
	a.mux.HandleFunc("/api/digests", a.handleDigests)
	a.mux.HandleFunc("/api/digests/", a.handleDigestByID)
	a.mux.HandleFunc("/api/dashboard/stats", a.dashboardHandler((*dashboard.Dashboard).GetStats))
	a.mux.HandleFunc("/api/dashboard/history", a.dashboardHandler((*dashboard.Dashboard).GetRecentJobs))
	a.mux.HandleFunc("/health", a.handleHealth)
	a.mux.Handle("/metrics", promhttp.Handler())
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *API) handleReport(variant outcome.Variant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.WriteText(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		req, err := report.ParamsFromQuery(r.URL.Query()).Validate(variant, a.secret)
		if err != nil {
			metrics.RecordReport(variant.String(), rejectionOutcome(err))
			writeRequestError(w, err)
			return
		}

		summaries, err := a.reports.Run(r.Context(), req)
		if err != nil {
			metrics.RecordReport(variant.String(), metrics.OutcomeError)
			logging.FromContext(r.Context()).Errorf("module outcome report failed: %v", err)
			httputil.WriteText(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		metrics.RecordReport(variant.String(), metrics.OutcomeOK)
		if variant == outcome.VariantCounts {
			httputil.WriteJSON(w, outcome.Counts(summaries), http.StatusOK)
			return
		}
		httputil.WriteJSON(w, summaries, http.StatusOK)
	}
}

func (a *API) handleDigests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteText(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !a.authorize(w, r) || !a.digestsEnabled(w) {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxDigestBody))
	if err != nil {
		httputil.WriteText(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req DigestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httputil.WriteText(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Variant == "" {
		req.Variant = outcome.VariantCounts
	}

	job := digest.NewJob(req.Variant, req.Client, req.Provider, req.Date, req.Recipient)
	if req.ScheduleIn != nil && *req.ScheduleIn > 0 {
		job.ScheduledAt = job.CreatedAt.Add(time.Duration(*req.ScheduleIn) * time.Second)
	}

	if _, err := job.Request(); err != nil {
		writeRequestError(w, err)
		return
	}

	if err := a.digests.Enqueue(r.Context(), job); err != nil {
		logging.FromContext(r.Context()).Errorf("failed to enqueue digest job: %v", err)
		httputil.WriteText(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	metrics.RecordDigestEnqueued(job.Variant.String())
	logging.FromContext(r.Context()).Infof("digest job %s enqueued for %s", job.ID, job.Date)
	httputil.WriteJSON(w, job, http.StatusCreated)
}

func (a *API) handleDigestByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteText(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/digests/")
	if jobID == "" || strings.Contains(jobID, "/") {
		httputil.WriteText(w, "Digest ID is required", http.StatusBadRequest)
		return
	}
	if !a.authorize(w, r) || !a.digestsEnabled(w) {
		return
	}

	job, err := a.digests.Get(r.Context(), jobID)
	if errors.Is(err, digest.ErrJobNotFound) {
		httputil.WriteJSONError(w, "Digest job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Errorf("failed to load digest job %s: %v", jobID, err)
		httputil.WriteText(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	httputil.WriteJSON(w, job, http.StatusOK)
}

func (a *API) dashboardHandler(view func(*dashboard.Dashboard, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.WriteText(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !a.authorize(w, r) || !a.digestsEnabled(w) {
			return
		}

		view(a.dash, w, r)
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.reports.Ping(ctx); err != nil {
		logging.FromContext(r.Context()).Warnf("health check failed: %v", err)
		httputil.WriteJSON(w, map[string]string{"status": "unavailable"}, http.StatusServiceUnavailable)
		return
	}

	httputil.WriteJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (a *API) authorize(w http.ResponseWriter, r *http.Request) bool {
	if err := report.Authorize(r.URL.Query().Get("token"), a.secret); err != nil {
		writeRequestError(w, err)
		return false
	}
	return true
}

func (a *API) digestsEnabled(w http.ResponseWriter) bool {
	if a.digests == nil {
		httputil.WriteText(w, "Digests are not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func writeRequestError(w http.ResponseWriter, err error) {
	var verr *outcome.ValidationError
	switch {
	case errors.Is(err, outcome.ErrUnauthorized):
		httputil.WriteText(w, "Unauthorized", http.StatusUnauthorized)
	case errors.As(err, &verr):
		httputil.WriteText(w, verr.Message, http.StatusBadRequest)
	default:
		httputil.WriteText(w, "Bad Request", http.StatusBadRequest)
	}
}

func rejectionOutcome(err error) string {
	if errors.Is(err, outcome.ErrUnauthorized) {
		return metrics.OutcomeUnauthorized
	}
	return metrics.OutcomeInvalid
}
