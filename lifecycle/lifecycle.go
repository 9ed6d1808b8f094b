/***********************************************************************************************************************
 *
 *   MIT License
 *
 *   Copyright (c) 2026 Nicolas JUHEL
 *
 *   Permission is hereby granted, free of charge, to any person obtaining a copy
 *   of this software and associated documentation files (the "Software"), to deal
 *   in the Software without restriction, including without limitation the rights
 *   to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 *   copies of the Software, and to permit persons to whom the Software is
 *   furnished to do so, subject to the following conditions:
 *
 *   The above copyright notice and this permission notice shall be included in all
 *   copies or substantial portions of the Software.
 *
 *   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 *   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 *   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 *   AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 *   LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 *   OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 *   SOFTWARE.
 *
 *
 **********************************************************************************************************************/

// Package lifecycle is the component lifecycle framework used by
// reactor.Reactor; the servers and engines of this module keep their own
// start/stop state. It wraps a pair of start/stop functions
// in a small state machine: initial -> starting -> running -> stopping ->
// stopped, with idempotent Stop and a future-style WaitStop.
package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kcenon/network-system-sub000/result"
)

// State is one of the five lifecycle states a Runner moves through.
type State uint8

const (
	StateInitial State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}

	return "unknown"
}

// StartFunc performs the component's startup. It is expected to block for
// the lifetime of the component, returning when ctx is cancelled or when
// the component stops on its own (e.g. a listener closing).
type StartFunc func(ctx context.Context) error

// StopFunc performs the component's shutdown. It receives a fresh
// context.Context (ctx's cancellation does not, by itself, cancel a stop
// already in flight) bounded by whatever deadline the caller of Stop set.
type StopFunc func(ctx context.Context) error

// Runner is the lifecycle state machine. A zero-value Runner is not
// usable; construct one with New.
type Runner interface {
	// Start transitions initial/stopped -> starting -> running and
	// launches fn in its own goroutine. Start never blocks waiting for fn
	// to return. Calling Start while already running stops the previous
	// run first (its StopFunc is invoked) before starting the new one.
	Start(ctx context.Context) error

	// Stop transitions running -> stopping -> stopped. It is idempotent:
	// concurrent or repeated calls after the first observe the same
	// outcome without invoking StopFunc more than once. Stop blocks until
	// the stop function has returned.
	Stop(ctx context.Context) error

	// WaitStop blocks until the Runner reaches StateStopped, or ctx is
	// done, whichever comes first. It does not itself request a stop.
	WaitStop(ctx context.Context) error

	// IsRunning reports whether the Runner is in StateRunning.
	IsRunning() bool

	// State reports the current lifecycle state.
	State() State

	// Uptime reports how long the Runner has been running. It is zero
	// before the first Start and is reset on every Start.
	Uptime() time.Duration

	// ErrorsLast returns the most recent error produced by either the
	// start or the stop function, or nil.
	ErrorsLast() error

	// ErrorsList returns every error observed over the Runner's life, in
	// the order they occurred.
	ErrorsList() []error
}

type runner struct {
	mu    sync.Mutex
	start StartFunc
	stop  StopFunc

	state     atomic.Int32
	startedAt atomic.Int64 // unix nano; 0 when not running

	stopCh   chan struct{} // closed when the current run's start function returns
	doneCh   chan struct{} // closed once stop has fully completed
	cancel   context.CancelFunc
	stopOnce sync.Once

	errMu sync.Mutex
	errs  []error
}

// New builds a Runner from a start and a stop function. Either may be
// nil: a nil StartFunc behaves as an immediate synthetic error ("nil
// start function") recorded via ErrorsList/ErrorsLast, matching the
// original component framework's tolerance for partially-wired
// components during incremental construction.
func New(start StartFunc, stop StopFunc) Runner {
	r := &runner{start: start, stop: stop}
	r.state.Store(int32(StateInitial))

	return r
}

func (r *runner) State() State {
	return State(r.state.Load())
}

func (r *runner) IsRunning() bool {
	return r.State() == StateRunning
}

func (r *runner) Uptime() time.Duration {
	start := r.startedAt.Load()
	if start == 0 || !r.IsRunning() {
		return 0
	}

	return time.Since(time.Unix(0, start))
}

func (r *runner) recordErr(err error) {
	if err == nil {
		return
	}

	r.errMu.Lock()
	defer r.errMu.Unlock()

	r.errs = append(r.errs, err)
}

func (r *runner) ErrorsLast() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()

	if len(r.errs) == 0 {
		return nil
	}

	return r.errs[len(r.errs)-1]
}

func (r *runner) ErrorsList() []error {
	r.errMu.Lock()
	defer r.errMu.Unlock()

	out := make([]error, len(r.errs))
	copy(out, r.errs)

	return out
}

func (r *runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.IsRunning() {
		// Starting again stops the previous instance first; Stop takes
		// the same mutex re-entrantly via stopLocked, never via Stop
		// itself, to avoid deadlocking here.
		r.stopLocked(ctx)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.stopOnce = sync.Once{}

	r.state.Store(int32(StateStarting))
	r.startedAt.Store(time.Now().UnixNano())

	start := r.start
	stopCh := r.stopCh
	doneCh := r.doneCh

	go func() {
		defer close(stopCh)

		r.state.Store(int32(StateRunning))

		var err error
		if start == nil {
			err = result.New(result.CodeInvalidArgument, "lifecycle.Runner").WithDetail("reason", "nil start function")
		} else {
			err = start(runCtx)
		}

		r.recordErr(err)

		select {
		case <-doneCh:
			// Stop already drove the transition to stopped.
		default:
			r.state.Store(int32(StateStopped))
			r.startedAt.Store(0)
		}
	}()

	return nil
}

func (r *runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stopLocked(ctx)
}

// stopLocked assumes r.mu is held.
func (r *runner) stopLocked(ctx context.Context) error {
	if r.State() == StateStopped || r.State() == StateInitial {
		return nil
	}

	var stopErr error

	r.stopOnce.Do(func() {
		r.state.Store(int32(StateStopping))

		if r.cancel != nil {
			r.cancel()
		}

		if r.stop != nil {
			stopErr = r.stop(ctx)
			r.recordErr(stopErr)
		}

		r.state.Store(int32(StateStopped))
		r.startedAt.Store(0)

		if r.doneCh != nil {
			close(r.doneCh)
		}
	})

	return stopErr
}

func (r *runner) WaitStop(ctx context.Context) error {
	r.mu.Lock()
	done := r.doneCh
	exited := r.stopCh
	r.mu.Unlock()

	if done == nil {
		return nil
	}

	for {
		select {
		case <-done:
			return nil
		case <-exited:
			// The start function returned; without a Stop in progress
			// that already left the Runner stopped.
			if r.State() == StateStopped {
				return nil
			}

			exited = nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
