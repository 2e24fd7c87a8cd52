package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is a snapshot of an asynchronous batch.
type Job struct {
	ID           string     `json:"id"`
	Status       JobStatus  `json:"status"`
	TotalRows    int        `json:"total_rows"`
	Processed    int        `json:"processed"`
	RowErrors    int        `json:"row_errors"`
	ManualReview int        `json:"manual_review"`
	Summary      string     `json:"summary,omitempty"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type job struct {
	Job
	outputs []Output
}

// Jobs runs batches in the background and keeps their results in memory for
// the life of the process.
type Jobs struct {
	svc  Looker
	opts Options
	log  *zap.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

func NewJobs(svc Looker, opts Options, log *zap.Logger) *Jobs {
	if log == nil {
		log = zap.NewNop()
	}
	return &Jobs{svc: svc, opts: opts, log: log, jobs: map[string]*job{}}
}

// Start registers a job for rows and runs it in a new goroutine. The job
// outlives ctx's cancellation but keeps its values.
func (j *Jobs) Start(ctx context.Context, rows []Row) Job {
	jb := &job{Job: Job{
		ID:        uuid.NewString(),
		Status:    JobRunning,
		TotalRows: len(rows),
		StartedAt: time.Now(),
	}}

	j.mu.Lock()
	j.jobs[jb.ID] = jb
	snapshot := jb.Job
	j.mu.Unlock()

	go j.run(context.WithoutCancel(ctx), jb, rows)
	return snapshot
}

func (j *Jobs) run(ctx context.Context, jb *job, rows []Row) {
	log := j.log.With(zap.String("job_id", jb.ID))
	log.Info("batch job started", zap.Int("rows", len(rows)))

	opts := j.opts
	opts.OnRow = func(o Output) {
		j.mu.Lock()
		defer j.mu.Unlock()
		jb.Processed++
		if o.Result == nil {
			jb.RowErrors++
		} else if o.Result.ManualReview {
			jb.ManualReview++
		}
	}

	outs, err := NewRunner(j.svc, opts, log).Run(ctx, rows)

	now := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()
	jb.CompletedAt = &now
	if err != nil {
		jb.Status = JobFailed
		jb.Error = err.Error()
		log.Error("batch job failed", zap.Error(err))
		return
	}
	jb.outputs = outs
	jb.Status = JobCompleted
	jb.Summary = Summarise(outs, now.Sub(jb.StartedAt)).String()
	log.Info("batch job finished", zap.String("summary", jb.Summary))
}

// Get returns a snapshot of the job.
func (j *Jobs) Get(id string) (Job, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	jb, ok := j.jobs[id]
	if !ok {
		return Job{}, false
	}
	return jb.Job, true
}

// Results returns the job's outputs once it has completed. The slice is
// shared and must not be modified.
func (j *Jobs) Results(id string) (Job, []Output, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	jb, ok := j.jobs[id]
	if !ok {
		return Job{}, nil, false
	}
	return jb.Job, jb.outputs, true
}
