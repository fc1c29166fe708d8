// Package refresh decides when the panel re-fetches network facts.
//
// The scheduler owns a single timer. Idle polling re-arms it every IdleInterval;
// a user action replaces it with a short debounce timer. At most one job runs at
// a time: a timer that fires while a job is running re-arms itself instead of
// starting a second one, and the running job always re-arms the idle timer when
// it returns, whether it succeeded, failed or panicked.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	tderrors "tunneldeck/pkg/errors"
)

// State is the scheduler's externally visible phase.
type State int

const (
	// Idle: no job running; the periodic timer is armed (or the scheduler is stopped).
	Idle State = iota
	// Scheduled: a debounce timer will start a job shortly.
	Scheduled
	// FetchInFlight: a job is running.
	FetchInFlight
)

func (s State) String() string {
	switch s {
	case Scheduled:
		return "scheduled"
	case FetchInFlight:
		return "fetching"
	default:
		return "idle"
	}
}

// Job is one refresh cycle.
type Job func(ctx context.Context) error

// Config holds the scheduler cadence.
type Config struct {
	IdleInterval  time.Duration
	DebounceDelay time.Duration
	CoalesceDelay time.Duration
	// JobTimeout bounds a single job; zero means no deadline.
	JobTimeout time.Duration
}

// DefaultConfig returns the reference cadence.
func DefaultConfig() Config {
	return Config{
		IdleInterval:  5 * time.Second,
		DebounceDelay: 300 * time.Millisecond,
		CoalesceDelay: time.Second,
		JobTimeout:    30 * time.Second,
	}
}

// timerHandle is the one pending timer. seq identifies it so that a callback
// from a timer that was replaced while firing is ignored.
type timerHandle struct {
	timer     clockwork.Timer
	seq       uint64
	immediate bool
}

// Scheduler serialises refresh jobs on a single timer.
type Scheduler struct {
	clock  clockwork.Clock
	job    Job
	cfg    Config
	logger *zap.Logger

	mu        sync.Mutex
	pending   *timerHandle
	seq       uint64
	inFlight  bool
	stopped   bool
	closed    bool
	state     State
	completed uint64
	observers []func()
}

// New creates a scheduler. Nothing is armed until RequestPeriodicCheck or
// RequestImmediateRefresh is called.
func New(clock clockwork.Clock, job Job, cfg Config, logger *zap.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = def.IdleInterval
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = def.DebounceDelay
	}
	if cfg.CoalesceDelay < cfg.DebounceDelay {
		cfg.CoalesceDelay = cfg.DebounceDelay
	}
	return &Scheduler{
		clock:  clock,
		job:    job,
		cfg:    cfg,
		logger: logger,
	}
}

// OnStateChange registers fn to be called, outside the scheduler lock, after
// every state transition. Transitions on different goroutines may be reported
// in any order, so fn reads the current phase with State.
func (s *Scheduler) OnStateChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// RequestPeriodicCheck replaces any pending timer with an idle-interval timer.
func (s *Scheduler) RequestPeriodicCheck() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.armLocked(s.cfg.IdleInterval, false)
	s.commit()
}

// RequestImmediateRefresh arms a short one-shot timer that starts one job. A
// request made while another debounce timer is pending pushes it out to
// CoalesceDelay, so a burst of requests yields a single trailing job. While a
// job is running the request is dropped; that job re-arms the idle timer when
// it finishes.
func (s *Scheduler) RequestImmediateRefresh() {
	s.mu.Lock()
	if s.stopped || s.inFlight {
		s.mu.Unlock()
		return
	}
	delay := s.cfg.DebounceDelay
	if s.pending != nil && s.pending.immediate {
		delay = s.cfg.CoalesceDelay
	}
	s.armLocked(delay, true)
	s.commit()
}

// Cancel stops the pending timer, if any. A running job is not affected and
// still re-arms the idle timer when it returns.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	s.cancelLocked()
	s.commit()
}

// Stop cancels the pending timer and ignores further requests until Start. A
// running job is left to finish; its completion no longer re-arms.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.cancelLocked()
	s.commit()
}

// Start accepts requests again after Stop. It arms nothing by itself and
// reports ErrSchedulerStopped once the scheduler is closed.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return tderrors.ErrSchedulerStopped
	}
	s.stopped = false
	return nil
}

// Close stops the scheduler for good.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopped = true
	s.cancelLocked()
	s.commit()
}

// State returns the current phase.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Refreshing reports whether a refresh is scheduled or running.
func (s *Scheduler) Refreshing() bool {
	return s.State() != Idle
}

// InFlight reports whether a job is currently running.
func (s *Scheduler) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Pending reports whether a timer is armed.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Completed returns the number of jobs that have finished.
func (s *Scheduler) Completed() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

func (s *Scheduler) armLocked(d time.Duration, immediate bool) {
	s.cancelLocked()
	s.seq++
	seq := s.seq
	h := &timerHandle{seq: seq, immediate: immediate}
	h.timer = s.clock.AfterFunc(d, func() { s.fire(seq) })
	s.pending = h
}

func (s *Scheduler) cancelLocked() {
	if s.pending == nil {
		return
	}
	s.pending.timer.Stop()
	s.pending = nil
}

func (s *Scheduler) fire(seq uint64) {
	s.mu.Lock()
	if s.stopped || s.pending == nil || s.pending.seq != seq {
		s.mu.Unlock()
		return
	}
	s.pending = nil

	if s.inFlight {
		s.logger.Debug("refresh timer fired during fetch, re-arming")
		s.armLocked(s.cfg.IdleInterval, false)
		s.commit()
		return
	}

	s.inFlight = true
	s.commit()

	s.run()
}

func (s *Scheduler) run() {
	defer s.finish()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("refresh cycle panicked", zap.Error(fmt.Errorf("%v", r)))
		}
	}()

	ctx := context.Background()
	if s.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.JobTimeout)
		defer cancel()
	}

	start := s.clock.Now()
	if err := s.job(ctx); err != nil {
		s.logger.Warn("refresh cycle failed", zap.Error(err))
		return
	}
	s.logger.Debug("refresh cycle done", zap.Duration("elapsed", s.clock.Since(start)))
}

func (s *Scheduler) finish() {
	s.mu.Lock()
	s.inFlight = false
	s.completed++
	if !s.stopped {
		s.armLocked(s.cfg.IdleInterval, false)
	}
	s.commit()
}

// commit recomputes the state, releases the lock and notifies observers if the
// state changed. It must be called with s.mu held.
func (s *Scheduler) commit() {
	next := Idle
	switch {
	case s.inFlight:
		next = FetchInFlight
	case s.pending != nil && s.pending.immediate:
		next = Scheduled
	}

	changed := next != s.state
	s.state = next
	observers := s.observers
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range observers {
		fn()
	}
}
