package sync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/shared"
)

// JobStatus is the lifecycle state of a background sync job
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// JobProgress counts processed write groups against the total
type JobProgress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// JobView is the polling snapshot of one job
type JobView struct {
	ID         uuid.UUID   `json:"id"`
	Status     JobStatus   `json:"status"`
	Progress   JobProgress `json:"progress"`
	Result     *SyncResult `json:"result,omitempty"`
	Errors     []string    `json:"errors,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

type jobState struct {
	mu       sync.Mutex
	view     JobView
	cancel   context.CancelFunc
	finished bool
}

// JobManagerConfig bounds the job manager
type JobManagerConfig struct {
	// MaxConcurrent caps simultaneously running jobs
	MaxConcurrent int
	// JobTimeout bounds a single job's runtime
	JobTimeout time.Duration
	// Retention is how long finished jobs stay pollable
	Retention time.Duration
}

func (c *JobManagerConfig) applyDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 2
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 30 * time.Minute
	}
	if c.Retention <= 0 {
		c.Retention = 24 * time.Hour
	}
}

// JobManager runs bulk syncs as cancellable background jobs with a polling
// status contract. Cancellation stops issuing new writes; writes already
// committed to the external ledger stay.
type JobManager struct {
	syncs  *SyncService
	cfg    JobManagerConfig
	logger *zap.Logger

	mu   sync.RWMutex
	jobs map[uuid.UUID]*jobState
	sem  chan struct{}
}

// NewJobManager creates a new JobManager
func NewJobManager(syncs *SyncService, cfg JobManagerConfig, logger *zap.Logger) *JobManager {
	cfg.applyDefaults()
	return &JobManager{
		syncs:  syncs,
		cfg:    cfg,
		logger: logger,
		jobs:   make(map[uuid.UUID]*jobState),
		sem:    make(chan struct{}, cfg.MaxConcurrent),
	}
}

// StartSync enqueues a sync request as a background job and returns its ID
func (m *JobManager) StartSync(req SyncRequest) uuid.UUID {
	jobCtx, cancel := context.WithTimeout(context.Background(), m.cfg.JobTimeout)

	state := &jobState{
		view: JobView{
			ID:        uuid.New(),
			Status:    JobPending,
			CreatedAt: time.Now(),
		},
		cancel: cancel,
	}

	m.mu.Lock()
	m.evictExpiredLocked()
	m.jobs[state.view.ID] = state
	m.mu.Unlock()

	go m.run(jobCtx, cancel, state, req)
	return state.view.ID
}

func (m *JobManager) run(ctx context.Context, cancel context.CancelFunc, state *jobState, req SyncRequest) {
	defer cancel()

	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		state.finish(JobCancelled, nil, ctx.Err())
		return
	}

	state.mu.Lock()
	state.view.Status = JobRunning
	state.mu.Unlock()

	result, err := m.syncs.sync(ctx, req, func(processed, total int) {
		state.mu.Lock()
		state.view.Progress = JobProgress{Processed: processed, Total: total}
		state.mu.Unlock()
	})

	switch {
	case err == nil:
		state.finish(JobCompleted, result, nil)
	case ctx.Err() != nil:
		state.finish(JobCancelled, result, err)
	default:
		state.finish(JobFailed, result, err)
	}

	m.logger.Info("sync job finished",
		zap.String("job_id", state.view.ID.String()),
		zap.String("status", string(state.status())),
	)
}

// Get returns the polling snapshot for a job
func (m *JobManager) Get(jobID uuid.UUID) (*JobView, error) {
	m.mu.RLock()
	state, ok := m.jobs[jobID]
	m.mu.RUnlock()
	if !ok {
		return nil, shared.ErrNotFound
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	view := state.view
	if view.Result != nil {
		copied := *view.Result
		view.Result = &copied
	}
	return &view, nil
}

// Cancel asks a running job to stop issuing new writes. Finished jobs cannot
// be cancelled.
func (m *JobManager) Cancel(jobID uuid.UUID) error {
	m.mu.RLock()
	state, ok := m.jobs[jobID]
	m.mu.RUnlock()
	if !ok {
		return shared.ErrNotFound
	}

	state.mu.Lock()
	finished := state.finished
	state.mu.Unlock()
	if finished {
		return shared.NewDomainError("JOB_FINISHED", "Job has already finished")
	}

	state.cancel()
	return nil
}

// evictExpiredLocked drops finished jobs older than the retention window.
// Caller holds m.mu.
func (m *JobManager) evictExpiredLocked() {
	cutoff := time.Now().Add(-m.cfg.Retention)
	for id, state := range m.jobs {
		state.mu.Lock()
		expired := state.finished && state.view.FinishedAt != nil && state.view.FinishedAt.Before(cutoff)
		state.mu.Unlock()
		if expired {
			delete(m.jobs, id)
		}
	}
}

func (s *jobState) finish(status JobStatus, result *SyncResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	now := time.Now()
	s.finished = true
	s.view.Status = status
	s.view.Result = result
	s.view.FinishedAt = &now
	if err != nil {
		s.view.Errors = append(s.view.Errors, err.Error())
	}
}

func (s *jobState) status() JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Status
}
