package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// JobStatus represents the current state of a processing job
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

func (s JobStatus) finished() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job represents a queued content request
type Job struct {
	ID        string         `json:"id"`
	Request   ContentRequest `json:"request"`
	Status    JobStatus      `json:"status"`
	Result    any            `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Details   string         `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	// Internal fields (not serialized)
	cancel context.CancelFunc
	ctx    context.Context
}

// RunFunc processes one job's request and returns its response data.
type RunFunc func(ctx context.Context, req ContentRequest) (any, error)

// JobQueue manages processing jobs with a worker pool
type JobQueue struct {
	jobs          map[string]*Job
	mu            sync.RWMutex
	queue         chan *Job
	maxConcurrent int
	runFn         RunFunc
	wg            sync.WaitGroup
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
	retention     time.Duration
}

// NewJobQueue creates a new job queue with the specified concurrency
func NewJobQueue(maxConcurrent int, runFn RunFunc) *JobQueue {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	return &JobQueue{
		jobs:          make(map[string]*Job),
		queue:         make(chan *Job, 100),
		maxConcurrent: maxConcurrent,
		runFn:         runFn,
		stopCleanup:   make(chan struct{}),
		retention:     time.Hour,
	}
}

// Start begins the worker pool and cleanup routine
func (jq *JobQueue) Start() {
	for i := 0; i < jq.maxConcurrent; i++ {
		jq.wg.Add(1)
		go jq.worker()
	}

	// Every 10 minutes, remove finished jobs older than the retention period
	jq.cleanupTicker = time.NewTicker(10 * time.Minute)
	go jq.cleanupLoop()
}

// Stop cancels running jobs and waits for the workers to exit
func (jq *JobQueue) Stop() {
	jq.stopOnce.Do(func() {
		jq.mu.Lock()
		for _, job := range jq.jobs {
			if !job.Status.finished() {
				job.cancel()
			}
		}
		jq.mu.Unlock()

		close(jq.queue)
		close(jq.stopCleanup)
		if jq.cleanupTicker != nil {
			jq.cleanupTicker.Stop()
		}
		jq.wg.Wait()
	})
}

func (jq *JobQueue) worker() {
	defer jq.wg.Done()

	for job := range jq.queue {
		jq.processJob(job)
	}
}

func (jq *JobQueue) processJob(job *Job) {
	if job.ctx.Err() != nil {
		return // cancelled while queued
	}
	jq.update(job.ID, func(j *Job) { j.Status = JobStatusProcessing })

	result, err := jq.runFn(job.ctx, job.Request)
	jq.update(job.ID, func(j *Job) {
		switch {
		case errors.Is(job.ctx.Err(), context.Canceled):
			j.Status = JobStatusCancelled
			j.Error = "cancelled by user"
		case err != nil:
			resp := errorResponse(err)
			j.Status = JobStatusFailed
			j.Error = resp.Error
			j.Details = resp.Details
		default:
			j.Status = JobStatusCompleted
			j.Result = result
		}
	})
	job.cancel()
}

func (jq *JobQueue) cleanupLoop() {
	for {
		select {
		case <-jq.cleanupTicker.C:
			jq.cleanupOldJobs()
		case <-jq.stopCleanup:
			return
		}
	}
}

func (jq *JobQueue) cleanupOldJobs() {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	cutoff := time.Now().Add(-jq.retention)
	for id, job := range jq.jobs {
		if job.Status.finished() && job.UpdatedAt.Before(cutoff) {
			delete(jq.jobs, id)
		}
	}
}

// ClearHistory removes all completed, failed, and cancelled jobs
func (jq *JobQueue) ClearHistory() int {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	count := 0
	for id, job := range jq.jobs {
		if job.Status.finished() {
			delete(jq.jobs, id)
			count++
		}
	}
	return count
}

// RemoveJob removes a single finished job by ID
func (jq *JobQueue) RemoveJob(id string) bool {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	job, ok := jq.jobs[id]
	if !ok || !job.Status.finished() {
		return false
	}
	delete(jq.jobs, id)
	return true
}

// AddJob creates and queues a new job
func (jq *JobQueue) AddJob(req ContentRequest) (*Job, error) {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	job := &Job{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
		ctx:       ctx,
		cancel:    cancel,
	}

	jq.mu.Lock()
	jq.jobs[job.ID] = job
	jq.mu.Unlock()

	// Queue the job (non-blocking with buffered channel)
	select {
	case jq.queue <- job:
		copied := *job
		return &copied, nil
	default:
		jq.mu.Lock()
		delete(jq.jobs, job.ID)
		jq.mu.Unlock()
		cancel()
		return nil, fmt.Errorf("job queue is full")
	}
}

// GetJob returns a copy of a job by ID
func (jq *JobQueue) GetJob(id string) *Job {
	jq.mu.RLock()
	defer jq.mu.RUnlock()

	if job, ok := jq.jobs[id]; ok {
		jobCopy := *job
		return &jobCopy
	}
	return nil
}

// GetAllJobs returns all jobs, newest first
func (jq *JobQueue) GetAllJobs() []*Job {
	jq.mu.RLock()
	defer jq.mu.RUnlock()

	jobs := make([]*Job, 0, len(jq.jobs))
	for _, job := range jq.jobs {
		jobCopy := *job
		jobs = append(jobs, &jobCopy)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	return jobs
}

// CancelJob cancels a queued or processing job by ID
func (jq *JobQueue) CancelJob(id string) bool {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	job, ok := jq.jobs[id]
	if !ok || job.Status.finished() {
		return false
	}
	job.cancel()
	job.Status = JobStatusCancelled
	job.Error = "cancelled by user"
	job.UpdatedAt = time.Now()
	return true
}

func (jq *JobQueue) update(id string, fn func(*Job)) {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	if job, ok := jq.jobs[id]; ok {
		// A cancelled job stays cancelled.
		if job.Status == JobStatusCancelled {
			return
		}
		fn(job)
		job.UpdatedAt = time.Now()
	}
}

// runJob is the RunFunc used by the server's queue.
func (s *Server) runJob(ctx context.Context, req ContentRequest) (any, error) {
	data, err := s.execute(ctx, req)
	if err != nil {
		return nil, err
	}
	return cleanValue(data), nil
}

func (s *Server) handleAddJob(c *gin.Context) {
	var req ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}
	if req.URL == "" && req.Text == "" && req.Keyword == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Must provide either url, text, or keyword"})
		return
	}

	job, err := s.jobQueue.AddJob(req)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"id":     job.ID,
		"status": job.Status,
	})
}

func (s *Server) handleGetJob(c *gin.Context) {
	job := s.jobQueue.GetJob(c.Param("id"))
	if job == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleGetJobs(c *gin.Context) {
	jobs := s.jobQueue.GetAllJobs()

	list := make([]gin.H, len(jobs))
	for i, job := range jobs {
		list[i] = gin.H{
			"id":         job.ID,
			"status":     job.Status,
			"error":      job.Error,
			"created_at": job.CreatedAt,
			"updated_at": job.UpdatedAt,
		}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": list})
}

func (s *Server) handleClearJobs(c *gin.Context) {
	n := s.jobQueue.ClearHistory()
	c.JSON(http.StatusOK, gin.H{"cleared": n})
}

// handleDeleteJob cancels a running job or removes a finished one.
func (s *Server) handleDeleteJob(c *gin.Context) {
	id := c.Param("id")
	if s.jobQueue.CancelJob(id) {
		c.JSON(http.StatusOK, gin.H{"id": id, "status": JobStatusCancelled})
		return
	}
	if s.jobQueue.RemoveJob(id) {
		c.JSON(http.StatusOK, gin.H{"id": id, "removed": true})
		return
	}
	c.JSON(http.StatusNotFound, ErrorResponse{Error: "job not found"})
}
