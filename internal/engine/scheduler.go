package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sagecry/sagebot/internal/events"
	"github.com/sagecry/sagebot/internal/logger"
	"github.com/sagecry/sagebot/internal/market"
	"github.com/sagecry/sagebot/internal/metrics"
	"github.com/sagecry/sagebot/pkg/errors"
)

// State is the scheduler lifecycle state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// Scheduler drives the periodic trading cycle on a dedicated goroutine. It
// is the only writer of the ledger; foreground readers use the ledger's
// snapshot accessor.
type Scheduler struct {
	engine   *Engine
	market   market.Provider
	interval time.Duration
	sink     events.Sink
	log      *logger.Logger

	mu     sync.Mutex
	state  State
	runID  string
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewScheduler creates an idle scheduler for the given engine.
func NewScheduler(
	eng *Engine,
	marketProvider market.Provider,
	interval time.Duration,
	sink events.Sink,
	log *logger.Logger,
) *Scheduler {
	return &Scheduler{
		engine:   eng,
		market:   marketProvider,
		interval: interval,
		sink:     sink,
		log:      log,
		state:    StateIdle,
	}
}

// Start verifies exchange connectivity and launches the cycle loop. It
// fails fast with ErrCodeClientUnavailable when the connectivity check
// fails, emitting a fatal event so a caller can distinguish "never started"
// from "ran and was stopped". The scheduler stays idle in that case.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return errors.Newf(errors.ErrCodeAlreadyRunning, "scheduler is %s", s.state)
	}

	if err := s.market.CheckConnection(ctx); err != nil {
		s.sink.Emit(events.New(events.CategoryFatalError, "client unavailable, session not started: %v", err))

		return errors.Wrap(errors.ErrCodeClientUnavailable, "connectivity check failed", err)
	}

	s.runID = uuid.NewString()
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.state = StateRunning

	go s.loop(ctx)

	s.log.Info("trading session started",
		zap.String("run_id", s.runID),
		zap.Duration("cycle_interval", s.interval),
	)

	return nil
}

// Stop requests a transition to stopping. The loop finishes its current
// wait increment and returns to idle. Idempotent: stopping an idle or
// already-stopping scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return
	}

	s.state = StateStopping
	close(s.stopCh)
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// RunID identifies the current (or most recent) session.
func (s *Scheduler) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.runID
}

// Wait blocks until the loop has exited or the timeout elapses. It returns
// false on timeout; callers should treat that as a reportable warning, not
// a crash.
func (s *Scheduler) Wait(timeout time.Duration) bool {
	s.mu.Lock()
	done := s.doneCh
	s.mu.Unlock()

	if done == nil {
		return true
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.state = StateIdle
		close(s.doneCh)
		s.mu.Unlock()

		s.sink.Emit(events.New(events.CategoryCore, "trading loop stopped"))
	}()

	s.sink.Emit(events.New(events.CategoryCore, "trading loop started (run %s)", s.runID))

	for {
		if s.stopRequested(ctx) {
			return
		}

		cycleStart := time.Now()

		s.engine.RunCycle(ctx)
		metrics.CyclesTotal.Inc()

		// Subtract the work duration from the target period; a cycle that
		// overruns starts the next one immediately.
		sleep := s.interval - time.Since(cycleStart)
		if sleep < 0 {
			sleep = 0
		}

		if !s.sleepCancellably(ctx, sleep) {
			return
		}
	}
}

// stopRequested checks the stop flag at the top of a cycle.
func (s *Scheduler) stopRequested(ctx context.Context) bool {
	select {
	case <-s.stopCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// sleepCancellably waits out the remaining cycle time, returning false as
// soon as a stop is requested. The wait primitive reacts to cancellation
// immediately, well inside the one-second latency bound.
func (s *Scheduler) sleepCancellably(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-s.stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}
