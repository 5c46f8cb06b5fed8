package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingExecutor returns the queued result once release is closed or the
// run context is cancelled.
type blockingExecutor struct {
	release chan struct{}
	outcome *Outcome
	err     error
	started chan uuid.UUID
}

func newBlockingExecutor(outcome *Outcome, err error) *blockingExecutor {
	return &blockingExecutor{
		release: make(chan struct{}),
		outcome: outcome,
		err:     err,
		started: make(chan uuid.UUID, 1),
	}
}

func (b *blockingExecutor) Execute(ctx context.Context, runID uuid.UUID) (*Outcome, error) {
	b.started <- runID
	select {
	case <-b.release:
		return b.outcome, b.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func waitForStatus(t *testing.T, m *Manager, id string, want Status) *Run {
	t.Helper()

	var run *Run
	require.Eventually(t, func() bool {
		var err error
		run, err = m.Get(id)
		return err == nil && run.Status == want
	}, time.Second, 5*time.Millisecond)
	return run
}

func TestManager_StartCompletes(t *testing.T) {
	exec := newBlockingExecutor(&Outcome{OutputPath: "result_Moscow.json", Products: 4, Published: true}, nil)
	m := NewManager(exec, "Moscow", testLogger())

	run, err := m.Start()
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, run.Status)
	assert.Equal(t, "Moscow", run.Region)

	startedID := <-exec.started
	assert.Equal(t, run.ID, startedID.String())

	active, ok := m.Active()
	require.True(t, ok)
	assert.Equal(t, run.ID, active.ID)

	close(exec.release)

	done := waitForStatus(t, m, run.ID, StatusCompleted)
	assert.Equal(t, 4, done.Products)
	assert.Equal(t, "result_Moscow.json", done.OutputPath)
	assert.True(t, done.Published)
	assert.NotNil(t, done.CompletedAt)
	assert.Empty(t, done.Error)

	_, ok = m.Active()
	assert.False(t, ok)
}

func TestManager_OneRunAtATime(t *testing.T) {
	exec := newBlockingExecutor(&Outcome{}, nil)
	m := NewManager(exec, "Moscow", testLogger())

	first, err := m.Start()
	require.NoError(t, err)
	<-exec.started

	_, err = m.Start()
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(exec.release)
	waitForStatus(t, m, first.ID, StatusCompleted)

	exec.release = make(chan struct{})
	close(exec.release)

	second, err := m.Start()
	require.NoError(t, err)
	<-exec.started
	waitForStatus(t, m, second.ID, StatusCompleted)

	runs := m.List()
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
}

func TestManager_FailedRun(t *testing.T) {
	exec := newBlockingExecutor(nil, errors.New("page structure mismatch: pagination control"))
	m := NewManager(exec, "Moscow", testLogger())

	run, err := m.Start()
	require.NoError(t, err)
	<-exec.started
	close(exec.release)

	failed := waitForStatus(t, m, run.ID, StatusFailed)
	assert.Contains(t, failed.Error, "pagination control")
	assert.Zero(t, failed.Products)
}

func TestManager_GetUnknown(t *testing.T) {
	m := NewManager(newBlockingExecutor(nil, nil), "Moscow", testLogger())

	_, err := m.Get(uuid.NewString())
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.Empty(t, m.List())
}

func TestManager_Shutdown(t *testing.T) {
	exec := newBlockingExecutor(&Outcome{}, nil)
	m := NewManager(exec, "Moscow", testLogger())

	run, err := m.Start()
	require.NoError(t, err)
	<-exec.started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	stopped, err := m.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stopped.Status)
	assert.Contains(t, stopped.Error, context.Canceled.Error())

	_, err = m.Start()
	assert.ErrorIs(t, err, ErrShuttingDown)
}
