package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/catalog-scraper/internal/scraper"
)

var (
	ErrRunInProgress = errors.New("a catalog run is already in progress")
	ErrRunNotFound   = errors.New("run not found")
	ErrShuttingDown  = errors.New("run manager is shutting down")
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// historyLimit bounds the number of finished runs kept in memory.
const historyLimit = 100

type Executor interface {
	Execute(ctx context.Context, runID uuid.UUID) (*Outcome, error)
}

// Run represents one catalog run
type Run struct {
	ID          string        `json:"id"`
	Region      string        `json:"region"`
	Status      Status        `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Products    int           `json:"products"`
	Stats       scraper.Stats `json:"stats"`
	OutputPath  string        `json:"output_path,omitempty"`
	Published   bool          `json:"published"`
	Error       string        `json:"error,omitempty"`
}

// Manager starts runs in the background, at most one at a time, and keeps
// their status.
type Manager struct {
	exec   Executor
	region string
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	runs   map[string]*Run
	order  []string
	active string
	closed bool
}

func NewManager(exec Executor, region string, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		exec:   exec,
		region: region,
		logger: logger.With("component", "run_manager"),
		ctx:    ctx,
		cancel: cancel,
		runs:   make(map[string]*Run),
	}
}

// Start launches a new run unless one is active.
func (m *Manager) Start() (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrShuttingDown
	}
	if m.active != "" {
		return nil, ErrRunInProgress
	}

	id := uuid.New()
	run := &Run{
		ID:        id.String(),
		Region:    m.region,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}

	m.runs[run.ID] = run
	m.order = append(m.order, run.ID)
	m.active = run.ID
	m.prune()

	m.wg.Add(1)
	go m.execute(id, run.ID)

	m.logger.Info("run started", "run_id", run.ID, "region", m.region)
	return run.copy(), nil
}

func (m *Manager) execute(id uuid.UUID, runID string) {
	defer m.wg.Done()

	outcome, err := m.exec.Execute(m.ctx, id)

	m.mu.Lock()
	defer m.mu.Unlock()

	run := m.runs[runID]
	now := time.Now()
	run.CompletedAt = &now
	m.active = ""

	if outcome != nil {
		run.Products = outcome.Products
		run.Stats = outcome.Stats
		run.OutputPath = outcome.OutputPath
		run.Published = outcome.Published
	}

	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
		m.logger.Error("run failed", "run_id", runID, "error", err)
		return
	}

	run.Status = StatusCompleted
	m.logger.Info("run completed",
		"run_id", runID,
		"products", run.Products,
		"duration", now.Sub(run.StartedAt))
}

// prune drops the oldest finished runs beyond historyLimit.
func (m *Manager) prune() {
	for len(m.order) > historyLimit {
		oldest := m.order[0]
		if oldest == m.active {
			return
		}
		delete(m.runs, oldest)
		m.order = m.order[1:]
	}
}

func (m *Manager) Get(id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run.copy(), nil
}

// List returns the known runs, newest first.
func (m *Manager) List() []*Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]*Run, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		runs = append(runs, m.runs[m.order[i]].copy())
	}
	return runs
}

// Active returns the running run, if any.
func (m *Manager) Active() (*Run, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active == "" {
		return nil, false
	}
	return m.runs[m.active].copy(), true
}

// Shutdown cancels the active run and waits for it to return or for ctx to
// expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Run) copy() *Run {
	c := *r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
