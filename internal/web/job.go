package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the status of a background scan job
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusError     JobStatus = "error" // Stopped by a fetch or store failure
)

// Job represents a background inbox scan: fetch, analyze, persist
type Job struct {
	ID          string
	Status      JobStatus
	Days        int
	Limit       int
	Fetched     int
	Analyzed    int
	Failed      int
	StartedAt   time.Time
	CompletedAt time.Time
	Error       string

	ctx        context.Context
	cancelFunc context.CancelFunc
	mu         sync.Mutex
}

// JobView is a point-in-time copy of a job for JSON responses
type JobView struct {
	ID          string     `json:"id"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	Days        int        `json:"days"`
	Limit       int        `json:"limit"`
	Fetched     int        `json:"fetched"`
	Analyzed    int        `json:"analyzed"`
	Failed      int        `json:"failed"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// SetFetched records how many messages the scan pulled from the mailbox
func (j *Job) SetFetched(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Fetched = n
}

// Update records analysis progress
func (j *Job) Update(analyzed, failed int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Analyzed = analyzed
	j.Failed = failed
}

// Complete marks the job as completed unless it was already stopped
func (j *Job) Complete() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Status != JobStatusRunning {
		return
	}
	j.Status = JobStatusCompleted
	j.CompletedAt = time.Now()
	j.cancelFunc()
}

// StopWithError stops the job due to an error
func (j *Job) StopWithError(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Status != JobStatusRunning {
		return
	}
	j.Status = JobStatusError
	j.CompletedAt = time.Now()
	j.Error = err.Error()
	j.cancelFunc()
}

// Cancel cancels a running job
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Status == JobStatusRunning {
		j.Status = JobStatusCancelled
		j.CompletedAt = time.Now()
		j.cancelFunc()
	}
}

// IsRunning returns true while the job has not finished
func (j *Job) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status == JobStatusRunning
}

// Context returns the job's context, cancelled when the job stops
func (j *Job) Context() context.Context {
	return j.ctx
}

// View returns a copy of the job's state
func (j *Job) View() JobView {
	j.mu.Lock()
	defer j.mu.Unlock()

	v := JobView{
		ID:        j.ID,
		Status:    j.Status,
		Days:      j.Days,
		Limit:     j.Limit,
		Fetched:   j.Fetched,
		Analyzed:  j.Analyzed,
		Failed:    j.Failed,
		StartedAt: j.StartedAt,
		Error:     j.Error,
	}
	switch {
	case j.Status == JobStatusCompleted:
		v.Progress = 100
	case j.Fetched > 0:
		v.Progress = ((j.Analyzed + j.Failed) * 100) / j.Fetched
	}
	if !j.CompletedAt.IsZero() {
		completed := j.CompletedAt
		v.CompletedAt = &completed
	}
	return v
}

// JobManager manages background jobs. At most one job runs at a time.
type JobManager struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*Job),
	}
}

// Start creates a running job, or returns the running job and false if one exists
func (jm *JobManager) Start(days, limit int) (*Job, bool) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	for _, job := range jm.jobs {
		if job.IsRunning() {
			return job, false
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:         uuid.New().String(),
		Status:     JobStatusRunning,
		Days:       days,
		Limit:      limit,
		StartedAt:  time.Now(),
		ctx:        ctx,
		cancelFunc: cancel,
	}
	jm.jobs[job.ID] = job
	return job, true
}

// Get returns a job by ID, or nil if not found
func (jm *JobManager) Get(id string) *Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	return jm.jobs[id]
}

// GetActive returns the currently running job, or nil if none
func (jm *JobManager) GetActive() *Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	for _, job := range jm.jobs {
		if job.IsRunning() {
			return job
		}
	}
	return nil
}

// CancelAll cancels every running job
func (jm *JobManager) CancelAll() {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	for _, job := range jm.jobs {
		job.Cancel()
	}
}

// Cleanup removes finished jobs older than the specified duration
func (jm *JobManager) Cleanup(maxAge time.Duration) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, job := range jm.jobs {
		job.mu.Lock()
		finished := job.Status != JobStatusRunning && job.CompletedAt.Before(cutoff)
		job.mu.Unlock()
		if finished {
			delete(jm.jobs, id)
		}
	}
}
