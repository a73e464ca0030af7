// Package task runs a function periodically on a dedicated goroutine with
// fixed-delay scheduling and an explicit lifecycle.
//
// # States
//
//	Idle -> Starting -> Running -> Stopping -> Terminated
//	                       \
//	                        -> Failed
//
// A [Periodic] starts Idle. [Periodic.Start] moves it to Starting and then
// Running once the worker goroutine is up. [Periodic.Stop] moves it through
// Stopping to Terminated. A tick that returns an error (or panics) moves it
// to Failed. Terminated and Failed are final: a stopped task is not restarted,
// a new one is created instead.
//
// # Scheduling
//
// The next tick starts one delay after the previous tick returned, never on a
// fixed wall-clock rate, so a slow tick delays the schedule instead of
// building a backlog.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matzehuels/livegraph/pkg/event"
)

// State is the lifecycle state of a [Periodic].
type State int

const (
	Idle State = iota
	Starting
	Running
	Stopping
	Terminated
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Terminated:
		return "terminated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Done reports whether s is a final state.
func (s State) Done() bool { return s == Terminated || s == Failed }

// Sentinel errors.
var (
	ErrAlreadyStarted = errors.New("task already started")
	ErrPanic          = errors.New("tick panicked")
)

// TickFunc is one unit of periodic work. ctx is cancelled when the task is
// stopped; a tick observing cancellation should return promptly. Returning
// ctx.Err() after cancellation is not treated as a failure.
type TickFunc func(ctx context.Context) error

// Periodic runs a [TickFunc] with fixed-delay scheduling.
type Periodic struct {
	tick  TickFunc
	delay time.Duration

	mu     sync.Mutex
	state  State
	err    error
	cancel context.CancelFunc
	done   chan struct{}

	feed event.Feed[event.Change[State]]
}

// NewPeriodic creates an Idle task. A non-positive delay runs ticks back to
// back.
func NewPeriodic(delay time.Duration, tick TickFunc) *Periodic {
	return &Periodic{tick: tick, delay: delay, done: make(chan struct{})}
}

// Subscribe registers fn for state transitions. fn runs synchronously on the
// goroutine making the transition and must not block.
func (p *Periodic) Subscribe(fn func(event.Change[State])) event.Subscription {
	return p.feed.Subscribe(fn)
}

// State returns the current state.
func (p *Periodic) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the error that moved the task to Failed, or nil.
func (p *Periodic) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Done returns a channel closed when the worker goroutine has exited.
func (p *Periodic) Done() <-chan struct{} { return p.done }

// Start launches the worker. It returns ErrAlreadyStarted unless the task is
// Idle.
func (p *Periodic) Start() error {
	p.mu.Lock()
	if p.state != Idle {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.state = Starting
	p.mu.Unlock()

	p.feed.Send(event.Change[State]{Old: Idle, New: Starting})
	go p.run(ctx)
	return nil
}

// Stop cancels the task and waits up to timeout for the in-flight tick to
// return. It reports whether the worker exited in time. Stopping an Idle task
// terminates it without running anything; stopping a finished task is a
// no-op that returns true.
func (p *Periodic) Stop(timeout time.Duration) bool {
	p.mu.Lock()
	switch p.state {
	case Idle:
		p.state = Terminated
		close(p.done)
		p.mu.Unlock()
		p.feed.Send(event.Change[State]{Old: Idle, New: Terminated})
		return true
	case Terminated, Failed:
		p.mu.Unlock()
		return true
	}
	cancel := p.cancel
	p.mu.Unlock()

	if !p.transition(Starting, Stopping) {
		p.transition(Running, Stopping)
	}
	cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-p.done:
		return true
	case <-timer.C:
		return false
	}
}

func (p *Periodic) run(ctx context.Context) {
	defer close(p.done)
	p.transition(Starting, Running)

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		if ctx.Err() != nil {
			p.transition(Stopping, Terminated)
			return
		}
		select {
		case <-ctx.Done():
			p.transition(Stopping, Terminated)
			return
		case <-timer.C:
		}

		if err := p.safeTick(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				p.transition(Stopping, Terminated)
				return
			}
			p.fail(err)
			return
		}
		timer.Reset(p.delay)
	}
}

func (p *Periodic) safeTick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return p.tick(ctx)
}

func (p *Periodic) fail(err error) {
	p.mu.Lock()
	old := p.state
	p.state = Failed
	p.err = err
	p.mu.Unlock()
	p.feed.Send(event.Change[State]{Old: old, New: Failed})
}

// transition moves from -> to if the task is currently in from. It reports
// whether the transition happened.
func (p *Periodic) transition(from, to State) bool {
	p.mu.Lock()
	if p.state != from {
		p.mu.Unlock()
		return false
	}
	p.state = to
	p.mu.Unlock()
	p.feed.Send(event.Change[State]{Old: from, New: to})
	return true
}
