package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nhle/tolerance-rules/internal/rules"
)

// fakeEvaluator records calls and returns canned results.
type fakeEvaluator struct {
	mu     sync.Mutex
	calls  map[string]int
	result rules.Result
	err    error
	panic  bool
	block  bool
}

func newFakeEvaluator() *fakeEvaluator {
	return &fakeEvaluator{calls: make(map[string]int)}
}

func (f *fakeEvaluator) EvaluateAllRules(ctx context.Context, org string) (rules.Result, error) {
	f.mu.Lock()
	f.calls[org]++
	result, err, shouldPanic, block := f.result, f.err, f.panic, f.block
	f.mu.Unlock()

	if shouldPanic {
		panic("boom")
	}
	if block {
		<-ctx.Done()
		return rules.Result{}, ctx.Err()
	}
	return result, err
}

func (f *fakeEvaluator) callCount(org string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[org]
}

func receive(t *testing.T, s *Scheduler) RunResult {
	t.Helper()
	select {
	case res := <-s.Results():
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a run result")
		return RunResult{}
	}
}

func TestScheduler_RunOnStartAndTrigger(t *testing.T) {
	eval := newFakeEvaluator()
	eval.result = rules.Result{ExceptionsCreated: 2, Errors: []string{}}

	s := New(eval, []string{"org-b", "org-a", "org-a"}, Options{RunOnStart: true}, zaptest.NewLogger(t))
	assert.Equal(t, []string{"org-b", "org-a"}, s.Organizations())

	s.Start()
	defer s.Stop()

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		res := receive(t, s)
		require.NoError(t, res.Error)
		assert.Equal(t, 2, res.Result.ExceptionsCreated)
		seen[res.OrganizationID] = true
	}
	assert.Equal(t, map[string]bool{"org-a": true, "org-b": true}, seen)

	require.True(t, s.Trigger("org-a"))
	res := receive(t, s)
	assert.Equal(t, "org-a", res.OrganizationID)
	assert.Equal(t, 2, eval.callCount("org-a"))
	assert.Equal(t, 1, eval.callCount("org-b"))

	assert.False(t, s.Trigger("org-z"))

	statuses := s.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "org-a", statuses[0].OrganizationID)
	assert.Equal(t, StateIdle, statuses[0].State)
	assert.Equal(t, 2, statuses[0].Runs)
	assert.Equal(t, 2, statuses[0].LastResult.ExceptionsCreated)
	assert.False(t, statuses[0].LastRun.IsZero())
}

func TestScheduler_Ticks(t *testing.T) {
	eval := newFakeEvaluator()
	s := New(eval, []string{"org-a"}, Options{Interval: 10 * time.Millisecond}, zaptest.NewLogger(t))
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return eval.callCount("org-a") >= 3
	}, 5*time.Second, 5*time.Millisecond)
}

func TestScheduler_Errors(t *testing.T) {
	eval := newFakeEvaluator()
	eval.err = errors.New("database unavailable")

	s := New(eval, []string{"org-a"}, Options{RunOnStart: true}, zaptest.NewLogger(t))
	s.Start()
	defer s.Stop()

	res := receive(t, s)
	assert.EqualError(t, res.Error, "database unavailable")

	statuses := s.Statuses()
	assert.Equal(t, StateError, statuses[0].State)
	assert.EqualError(t, statuses[0].Error, "database unavailable")
}

func TestScheduler_RecoversPanics(t *testing.T) {
	eval := newFakeEvaluator()
	eval.panic = true

	s := New(eval, []string{"org-a"}, Options{RunOnStart: true}, zaptest.NewLogger(t))
	s.Start()
	defer s.Stop()

	res := receive(t, s)
	require.Error(t, res.Error)
	assert.Contains(t, res.Error.Error(), "boom")

	// The loop survives and keeps serving triggers.
	s.Trigger("org-a")
	receive(t, s)
	assert.Equal(t, 2, eval.callCount("org-a"))
}

func TestScheduler_TimeoutAndStop(t *testing.T) {
	eval := newFakeEvaluator()
	eval.block = true

	s := New(eval, []string{"org-a"}, Options{
		RunOnStart: true,
		Timeout:    20 * time.Millisecond,
	}, zaptest.NewLogger(t))
	s.Start()

	res := receive(t, s)
	assert.ErrorIs(t, res.Error, context.DeadlineExceeded)

	s.Trigger("org-a")
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}

	// Stop is idempotent and Start after Stop is a no-op.
	s.Stop()
	s.Start()
}

func TestScheduler_DropsResultsWhenFull(t *testing.T) {
	eval := newFakeEvaluator()
	s := New(eval, []string{"org-a"}, Options{Interval: time.Millisecond}, zaptest.NewLogger(t))
	s.Start()

	require.Eventually(t, func() bool {
		return eval.callCount("org-a") > cap(s.resultCh)+5
	}, 5*time.Second, time.Millisecond)
	s.Stop()

	assert.Len(t, s.resultCh, cap(s.resultCh))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "error", StateError.String())
	assert.Equal(t, "State(9)", State(9).String())
}
