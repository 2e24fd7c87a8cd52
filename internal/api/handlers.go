// Package api exposes lookups and batch jobs over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/EmpoweredVote/address-holidays/internal/batch"
	"github.com/EmpoweredVote/address-holidays/internal/lookup"
)

const maxBatchBody = 10 << 20

type Handler struct {
	svc  batch.Looker
	jobs *batch.Jobs
	log  *zap.Logger
	now  func() time.Time
}

func NewHandler(svc batch.Looker, jobs *batch.Jobs, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, jobs: jobs, log: log, now: time.Now}
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "ok")
}

// GetLookup handles GET /lookup?address=&year=&start=&end=&include_restricted=
func (h *Handler) GetLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, err := h.request(q.Get("address"), q.Get("year"), q.Get("start"), q.Get("end"), q.Get("include_restricted"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Lookup(r.Context(), req))
}

// PostLookup handles POST /lookup
// Accepts {"address": "...", "year": 2025, "start": "2025-04-01", "end": "2025-04-30"}
func (h *Handler) PostLookup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Address           string `json:"address"`
		Year              int    `json:"year"`
		Start             string `json:"start"`
		End               string `json:"end"`
		IncludeRestricted bool   `json:"include_restricted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	year := ""
	if body.Year != 0 {
		year = strconv.Itoa(body.Year)
	}
	req, err := h.request(body.Address, year, body.Start, body.End, strconv.FormatBool(body.IncludeRestricted))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Lookup(r.Context(), req))
}

// StartBatch handles POST /batch/jobs with a CSV body.
func (h *Handler) StartBatch(w http.ResponseWriter, r *http.Request) {
	rows, err := batch.ReadRows(http.MaxBytesReader(w, r.Body, maxBatchBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "CSV body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid CSV: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(rows) == 0 {
		http.Error(w, "CSV has no data rows", http.StatusBadRequest)
		return
	}

	job := h.jobs.Start(r.Context(), rows)
	h.log.Info("batch job accepted", zap.String("job_id", job.ID), zap.Int("rows", job.TotalRows))

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

// GetBatch handles GET /batch/jobs/{jobID}
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	job, ok := h.jobs.Get(chi.URLParam(r, "jobID"))
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GetBatchResults handles GET /batch/jobs/{jobID}/results
func (h *Handler) GetBatchResults(w http.ResponseWriter, r *http.Request) {
	job, outs, ok := h.jobs.Results(chi.URLParam(r, "jobID"))
	switch {
	case !ok:
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	case job.Status == batch.JobRunning:
		http.Error(w, "Job still running", http.StatusConflict)
		return
	case job.Status == batch.JobFailed:
		http.Error(w, "Job failed: "+job.Error, http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "holiday_check_"+job.ID+".csv"))
	if err := batch.WriteCSV(w, outs); err != nil {
		h.log.Error("writing batch results", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// request builds a lookup.Request from raw parameters. Year defaults to the
// current year; dates are YYYY-MM-DD.
func (h *Handler) request(address, year, start, end, restricted string) (lookup.Request, error) {
	req := lookup.Request{Address: address, Year: h.now().Year()}

	if year = strings.TrimSpace(year); year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			return req, errors.New("Invalid year format")
		}
		req.Year = y
	}
	var err error
	if req.Start, err = parseDate("start", start); err != nil {
		return req, err
	}
	if req.End, err = parseDate("end", end); err != nil {
		return req, err
	}
	if restricted = strings.TrimSpace(restricted); restricted != "" {
		b, err := strconv.ParseBool(restricted)
		if err != nil {
			return req, errors.New("Invalid include_restricted value")
		}
		req.IncludeRestricted = b
	}
	return req, nil
}

func parseDate(name, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("Invalid %s date (want YYYY-MM-DD)", name)
	}
	return t, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
