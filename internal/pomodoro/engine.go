// Package pomodoro implements the countdown state machine behind a focus
// session and the point policy applied when a session completes naturally.
package pomodoro

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/port"
)

var (
	// ErrClosed is returned by operations on an engine after Close.
	ErrClosed = errors.New("pomodoro: engine closed")
	// ErrAwardDiscarded reports an award whose session was reset or closed
	// while it was still in flight. Its result is never applied.
	ErrAwardDiscarded = errors.New("pomodoro: award discarded")
)

// AwardFunc persists the points earned by a natural completion and returns
// the confirmed score record.
type AwardFunc func(ctx context.Context, points int) (domain.ScoreRecord, error)

// Event describes a state transition of an engine.
type Event struct {
	Kind   string // one of the domain.EventTimer* constants
	State  domain.TimerState
	Points int
	Score  *domain.ScoreRecord
	Err    error
}

// Config configures an Engine.
type Config struct {
	// Duration is the initial session length in seconds.
	Duration  int
	Interval  time.Duration // defaults to one second
	Scheduler Scheduler     // defaults to TickerScheduler
	Award     AwardFunc
	OnEvent   func(Event)
}

// Engine runs a single countdown. All transitions are serialized; the award
// call runs outside the lock so store latency never blocks Pause or Reset.
type Engine struct {
	mu       sync.Mutex
	state    domain.TimerState
	interval time.Duration
	sched    Scheduler
	award    AwardFunc
	onEvent  func(Event)

	stop func() // handle of the active timer, nil when idle
	gen  uint64 // incremented on every start/stop; ticks of older generations are dropped

	ctx         context.Context
	cancelAll   context.CancelFunc
	cancelAward context.CancelFunc
	awardSeq    uint64
	closed      bool
}

// New returns an idle engine with the full duration remaining.
func New(cfg Config) (*Engine, error) {
	if cfg.Duration <= 0 {
		return nil, port.ErrInvalidDuration
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = TickerScheduler{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		state: domain.TimerState{
			RemainingSeconds:          cfg.Duration,
			ConfiguredDurationSeconds: cfg.Duration,
		},
		interval:  cfg.Interval,
		sched:     cfg.Scheduler,
		award:     cfg.Award,
		onEvent:   cfg.OnEvent,
		ctx:       ctx,
		cancelAll: cancel,
	}, nil
}

// State returns a snapshot of the timer.
func (e *Engine) State() domain.TimerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start begins or resumes the countdown. Starting a running engine is a no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.state.Running {
		e.mu.Unlock()
		return nil
	}
	e.startLocked()
	st := e.state
	e.mu.Unlock()

	e.emit(Event{Kind: domain.EventTimerStarted, State: st})
	return nil
}

// Pause stops the countdown and keeps the remaining time. Pausing an idle
// engine is a no-op.
func (e *Engine) Pause() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if !e.state.Running {
		e.mu.Unlock()
		return nil
	}
	e.stopLocked()
	e.state.Running = false
	st := e.state
	e.mu.Unlock()

	e.emit(Event{Kind: domain.EventTimerPaused, State: st})
	return nil
}

// Toggle pauses a running engine and resumes an idle one.
func (e *Engine) Toggle() error {
	e.mu.Lock()
	running := e.state.Running
	e.mu.Unlock()

	if running {
		return e.Pause()
	}
	return e.Start()
}

// Reset returns to idle with the full duration and discards any award still
// in flight.
func (e *Engine) Reset() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.stopLocked()
	e.state.Running = false
	e.state.RemainingSeconds = e.state.ConfiguredDurationSeconds
	if e.cancelAward != nil {
		e.cancelAward()
		e.cancelAward = nil
	}
	st := e.state
	e.mu.Unlock()

	e.emit(Event{Kind: domain.EventTimerReset, State: st})
	return nil
}

// SetDuration changes the session length. It is rejected while running and
// for non-positive values; the state is unchanged on rejection.
func (e *Engine) SetDuration(seconds int) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.state.Running {
		e.mu.Unlock()
		return port.ErrTimerRunning
	}
	if seconds <= 0 {
		e.mu.Unlock()
		return port.ErrInvalidDuration
	}
	e.state.ConfiguredDurationSeconds = seconds
	e.state.RemainingSeconds = seconds
	st := e.state
	e.mu.Unlock()

	e.emit(Event{Kind: domain.EventTimerDuration, State: st})
	return nil
}

// Close stops the timer and cancels any in-flight award. It is idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.stopLocked()
	e.state.Running = false
	e.cancelAll()
}

func (e *Engine) startLocked() {
	if e.state.RemainingSeconds <= 0 {
		e.state.RemainingSeconds = e.state.ConfiguredDurationSeconds
	}
	e.state.Running = true
	e.gen++
	gen := e.gen
	e.stop = e.sched.Every(e.interval, func() { e.tick(gen) })
}

func (e *Engine) stopLocked() {
	e.gen++
	if e.stop != nil {
		stop := e.stop
		e.stop = nil
		stop()
	}
}

func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || !e.state.Running {
		e.mu.Unlock()
		return
	}

	e.state.RemainingSeconds--
	if e.state.RemainingSeconds > 0 {
		st := e.state
		e.mu.Unlock()
		e.emit(Event{Kind: domain.EventTimerTick, State: st})
		return
	}

	// Natural completion: stop, compute the award, return to idle.
	e.stopLocked()
	e.state.Running = false
	points := PointsEarned(e.state.ConfiguredDurationSeconds)
	e.state.RemainingSeconds = e.state.ConfiguredDurationSeconds
	st := e.state

	ctx, cancel := context.WithCancel(e.ctx)
	e.cancelAward = cancel
	e.awardSeq++
	seq := e.awardSeq
	award := e.award
	e.mu.Unlock()

	evt := Event{Kind: domain.EventTimerCompleted, State: st, Points: points}
	if award != nil {
		rec, err := award(ctx, points)
		switch {
		case ctx.Err() != nil && err != nil:
			evt.Err = fmt.Errorf("%w: %v", ErrAwardDiscarded, err)
		case ctx.Err() != nil:
			evt.Err = ErrAwardDiscarded
		case err != nil:
			evt.Err = err
		default:
			evt.Score = &rec
		}
	}

	e.mu.Lock()
	if e.awardSeq == seq {
		e.cancelAward = nil
	}
	e.mu.Unlock()
	cancel()

	e.emit(evt)
}

func (e *Engine) emit(evt Event) {
	if e.onEvent != nil {
		e.onEvent(evt)
	}
}
