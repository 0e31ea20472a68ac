// Package jobs tracks pipeline runs started from the interactive commander so
// they can be listed, inspected and cancelled.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

type Job struct {
	ID          string
	Type        string
	Description string
	StartTime   time.Time

	status     JobStatus
	endTime    time.Time
	err        error
	result     any
	logs       []string
	cancelFunc context.CancelFunc
	mu         sync.RWMutex
}

type Manager struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		jobs: make(map[string]*Job),
	}
}

func (m *Manager) CreateJob(jobType, description string) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Description: description,
		StartTime:   time.Now(),
		status:      JobPending,
	}
	m.jobs[job.ID] = job
	return job
}

// Run executes fn as job on the calling goroutine. The context passed to fn
// is cancelled by CancelJob. A context error from fn marks the job cancelled.
func (m *Manager) Run(ctx context.Context, job *Job, fn func(ctx context.Context) (any, error)) (any, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	job.mu.Lock()
	job.cancelFunc = cancel
	job.status = JobRunning
	job.mu.Unlock()

	result, err := fn(ctx)
	switch {
	case err == nil:
		job.SetResult(result)
		job.SetStatus(JobCompleted)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		job.setError(err, JobCancelled)
	default:
		job.setError(err, JobFailed)
	}
	return result, err
}

func (m *Manager) GetJob(jobID string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	return job, exists
}

// ListJobs returns every job, oldest first.
func (m *Manager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].StartTime.Before(jobs[j].StartTime) })
	return jobs
}

// Latest returns the most recent completed job of jobType.
func (m *Manager) Latest(jobType string) (*Job, bool) {
	jobs := m.ListJobs()
	for i := len(jobs) - 1; i >= 0; i-- {
		if jobs[i].Type == jobType && jobs[i].GetStatus() == JobCompleted {
			return jobs[i], true
		}
	}
	return nil, false
}

func (m *Manager) CancelJob(jobID string) error {
	job, exists := m.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job %s not found", jobID)
	}

	job.mu.Lock()
	defer job.mu.Unlock()

	if job.status != JobRunning {
		return fmt.Errorf("job %s is not running", jobID)
	}
	job.cancelFunc()
	return nil
}

// CancelRunning cancels every running job and reports how many there were.
func (m *Manager) CancelRunning() int {
	n := 0
	for _, job := range m.ListJobs() {
		if job.GetStatus() == JobRunning && m.CancelJob(job.ID) == nil {
			n++
		}
	}
	return n
}

func (j *Job) SetStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
	if status == JobCompleted || status == JobFailed || status == JobCancelled {
		j.endTime = time.Now()
	}
}

func (j *Job) AddLog(message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	timestamp := time.Now().Format("15:04:05")
	j.logs = append(j.logs, fmt.Sprintf("[%s] %s", timestamp, message))
}

func (j *Job) setError(err error, status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.err = err
	j.status = status
	j.endTime = time.Now()
}

func (j *Job) SetResult(result any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = result
}

func (j *Job) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

func (j *Job) Err() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.err
}

func (j *Job) Result() any {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.result
}

// Duration is the run time so far, or the total once the job ended.
func (j *Job) Duration() time.Duration {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.endTime.IsZero() {
		return time.Since(j.StartTime)
	}
	return j.endTime.Sub(j.StartTime)
}

func (j *Job) GetLogs() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	logs := make([]string, len(j.logs))
	copy(logs, j.logs)
	return logs
}
