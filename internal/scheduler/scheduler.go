package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/tolerance-rules/internal/rules"
)

// State represents the current state of an organization's evaluation.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// RunStatus holds the evaluation state for a single organization.
type RunStatus struct {
	OrganizationID string
	State          State
	LastRun        time.Time
	LastResult     rules.Result
	Runs           int
	Error          error
}

// RunResult is published after every evaluation.
type RunResult struct {
	OrganizationID string
	Result         rules.Result
	Error          error
	StartedAt      time.Time
	Duration       time.Duration
}

// Evaluator runs an organization's rules.
type Evaluator interface {
	EvaluateAllRules(ctx context.Context, organizationID string) (rules.Result, error)
}

// Options control how often organizations are evaluated.
type Options struct {
	// Interval between scheduled runs. Defaults to one hour.
	Interval time.Duration
	// Timeout bounds a single run. Defaults to five minutes.
	Timeout time.Duration
	// RunOnStart evaluates every organization as soon as Start is called.
	RunOnStart bool
}

const (
	defaultInterval = time.Hour
	defaultTimeout  = 5 * time.Minute
)

// Scheduler periodically evaluates the rules of a fixed set of
// organizations, one goroutine per organization.
type Scheduler struct {
	eval   Evaluator
	logger *zap.Logger
	opts   Options
	orgs   []string

	statuses map[string]*RunStatus
	triggers map[string]chan struct{}
	resultCh chan RunResult

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates a scheduler for organizations. Duplicate ids are ignored.
func New(eval Evaluator, organizations []string, opts Options, logger *zap.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scheduler{
		eval:     eval,
		logger:   logger,
		opts:     opts,
		statuses: make(map[string]*RunStatus),
		triggers: make(map[string]chan struct{}),
		resultCh: make(chan RunResult, 16),
	}
	for _, org := range organizations {
		if _, ok := s.statuses[org]; ok {
			continue
		}
		s.orgs = append(s.orgs, org)
		s.statuses[org] = &RunStatus{OrganizationID: org, State: StateIdle}
		// A pending trigger already covers any that arrive before it runs.
		s.triggers[org] = make(chan struct{}, 1)
	}
	return s
}

// Start launches one evaluation loop per organization. Calling Start more
// than once, or after Stop, does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for _, org := range s.orgs {
		s.wg.Add(1)
		go s.loop(ctx, org, s.triggers[org])
	}
	s.logger.Info("scheduler started",
		zap.Strings("organizations", s.orgs),
		zap.Duration("interval", s.opts.Interval),
		zap.Bool("run_on_start", s.opts.RunOnStart),
	)
}

// Stop cancels in-flight runs and waits for every loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.stopped = true
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Trigger requests an immediate run for organizationID. It reports false
// for an unknown organization.
func (s *Scheduler) Trigger(organizationID string) bool {
	ch, ok := s.triggers[organizationID]
	if !ok {
		return false
	}
	select {
	case ch <- struct{}{}:
	default:
		// A run is already pending.
	}
	return true
}

// TriggerAll requests an immediate run for every organization.
func (s *Scheduler) TriggerAll() {
	for _, org := range s.orgs {
		s.Trigger(org)
	}
}

// Organizations returns the scheduled organization ids in order.
func (s *Scheduler) Organizations() []string {
	return append([]string(nil), s.orgs...)
}

// Statuses returns a snapshot of every organization's status sorted by id.
func (s *Scheduler) Statuses() []RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]RunStatus, 0, len(s.statuses))
	for _, st := range s.statuses {
		statuses = append(statuses, *st)
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].OrganizationID < statuses[j].OrganizationID
	})
	return statuses
}

// Results delivers a RunResult after each run. Results are dropped while
// the channel is full.
func (s *Scheduler) Results() <-chan RunResult {
	return s.resultCh
}

// loop runs the evaluation loop for a single organization.
func (s *Scheduler) loop(ctx context.Context, org string, trigger <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	if s.opts.RunOnStart {
		s.run(ctx, org)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, org)
		case <-trigger:
			s.run(ctx, org)
		}
	}
}

// run performs a single evaluation and publishes its result.
func (s *Scheduler) run(ctx context.Context, org string) {
	if ctx.Err() != nil {
		return
	}
	s.setStatus(org, StateRunning, nil, nil)

	started := time.Now()
	result, err := s.evaluate(ctx, org)
	duration := time.Since(started)

	if err != nil {
		s.setStatus(org, StateError, nil, err)
		s.logger.Error("evaluation failed",
			zap.String("organization_id", org),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	} else {
		s.setStatus(org, StateIdle, &result, nil)
		s.logger.Info("evaluation finished",
			zap.String("organization_id", org),
			zap.Int("exceptions_created", result.ExceptionsCreated),
			zap.Int("rule_errors", len(result.Errors)),
			zap.Duration("duration", duration),
		)
	}

	s.sendResult(RunResult{
		OrganizationID: org,
		Result:         result,
		Error:          err,
		StartedAt:      started,
		Duration:       duration,
	})
}

// evaluate calls the evaluator under the run timeout. A panic is returned
// as an error so the loop keeps going.
func (s *Scheduler) evaluate(ctx context.Context, org string) (result rules.Result, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluation panicked: %v", r)
		}
	}()

	return s.eval.EvaluateAllRules(ctx, org)
}

// setStatus updates the status of an organization.
func (s *Scheduler) setStatus(org string, state State, result *rules.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.statuses[org]
	if !ok {
		return
	}

	status.State = state
	if state == StateRunning {
		return
	}
	status.Error = err
	status.Runs++
	status.LastRun = time.Now()
	if result != nil {
		status.LastResult = *result
	}
}

// sendResult publishes msg without blocking.
func (s *Scheduler) sendResult(msg RunResult) {
	select {
	case s.resultCh <- msg:
	default:
		s.logger.Debug("result channel full, dropping result",
			zap.String("organization_id", msg.OrganizationID))
	}
}
