package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/musterhq/muster/pkg/store"
	"github.com/musterhq/muster/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecutor struct {
	mu       sync.Mutex
	executed []string
	inflight int
	peak     int
	err      error
	delay    time.Duration
}

func (e *recordingExecutor) Execute(ctx context.Context, documentID string) error {
	e.mu.Lock()
	e.inflight++
	if e.inflight > e.peak {
		e.peak = e.inflight
	}
	e.mu.Unlock()

	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
		}
	}

	e.mu.Lock()
	e.inflight--
	e.executed = append(e.executed, documentID)
	e.mu.Unlock()
	return e.err
}

func (e *recordingExecutor) ids() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.executed...)
}

func (e *recordingExecutor) peakInflight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.peak
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewBoltStore(t.TempDir(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestPoolExecutesSubmitted(t *testing.T) {
	exec := &recordingExecutor{}
	p := NewPool(exec, newTestStore(t), 2)
	p.Start()

	p.Submit("doc-1")
	p.Submit("doc-2")
	p.Submit("doc-3")

	require.Eventually(t, func() bool {
		return len(exec.ids()) == 3
	}, time.Second, 5*time.Millisecond)
	p.Stop()

	assert.ElementsMatch(t, []string{"doc-1", "doc-2", "doc-3"}, exec.ids())
}

func TestPoolBoundsParallelism(t *testing.T) {
	exec := &recordingExecutor{delay: 20 * time.Millisecond}
	p := NewPool(exec, newTestStore(t), 2)
	p.Start()

	for i := 0; i < 6; i++ {
		p.Submit(string(rune('a' + i)))
	}

	require.Eventually(t, func() bool {
		return len(exec.ids()) == 6
	}, 2*time.Second, 5*time.Millisecond)
	p.Stop()

	assert.LessOrEqual(t, exec.peakInflight(), 2)
}

func TestPoolContinuesAfterFailure(t *testing.T) {
	exec := &recordingExecutor{err: errors.New("stage failed")}
	p := NewPool(exec, newTestStore(t), 1)
	p.Start()

	p.Submit("doc-1")
	p.Submit("doc-2")

	require.Eventually(t, func() bool {
		return len(exec.ids()) == 2
	}, time.Second, 5*time.Millisecond)
	p.Stop()
}

func TestResumeRequeuesInterrupted(t *testing.T) {
	st := newTestStore(t)

	inflight := types.NewRecord("doc-inflight", "vet1", time.Hour)
	inflight.ExecutionHandle = "dd214-doc-inflight"
	inflight.Status = types.StatusProcessing
	require.NoError(t, st.Create(inflight))

	done := types.NewRecord("doc-done", "vet1", time.Hour)
	done.ExecutionHandle = "dd214-doc-done"
	done.Status = types.StatusComplete
	require.NoError(t, st.Create(done))

	unclaimed := types.NewRecord("doc-unclaimed", "vet1", time.Hour)
	require.NoError(t, st.Create(unclaimed))

	exec := &recordingExecutor{}
	p := NewPool(exec, st, 1)
	require.NoError(t, p.Resume())
	p.Start()

	require.Eventually(t, func() bool {
		return len(exec.ids()) == 1
	}, time.Second, 5*time.Millisecond)
	p.Stop()

	assert.Equal(t, []string{"doc-inflight"}, exec.ids())
}

func TestStopCancelsInflight(t *testing.T) {
	exec := &recordingExecutor{delay: 10 * time.Second}
	p := NewPool(exec, newTestStore(t), 1)
	p.Start()
	p.Submit("doc-slow")

	time.Sleep(20 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not cancel the in-flight execution")
	}
}
