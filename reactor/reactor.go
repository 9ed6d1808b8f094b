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

package reactor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kcenon/network-system-sub000/lifecycle"
	"github.com/kcenon/network-system-sub000/result"
)

const reactorSource = "reactor.Reactor"

// timer is one periodic callback registered with a Reactor.
type timer struct {
	id       uint64
	interval time.Duration
	fn       func(ctx context.Context)
	stop     chan struct{}
}

// Reactor multiplexes timer scheduling and offloaded work over a fixed
// worker Pool. A caller registers a timer (for periodic polling/retransmit
// work) or calls Dispatch (for a one-shot task) instead of spawning its
// own goroutine for the work; every task submitted this way is bounded by
// the one Pool. Each timer runs its own ticker goroutine, which only
// submits work to the Pool.
type Reactor struct {
	pool *Pool
	run  lifecycle.Runner

	mu      sync.Mutex
	timers  map[uint64]*timer
	nextID  atomic.Uint64
	started atomic.Bool
}

// New builds a Reactor whose offloaded work runs on a Pool of the given
// worker capacity.
func New(workerCapacity int) *Reactor {
	r := &Reactor{
		pool:   NewPool(workerCapacity),
		timers: make(map[uint64]*timer),
	}

	r.run = lifecycle.New(r.doStart, r.doStop)

	return r
}

// Start brings the reactor's internal bookkeeping online. Registering
// timers and dispatching tasks both work before Start is called; Start
// only marks the reactor as the running component a caller can
// WaitStop/Stop through lifecycle semantics.
func (r *Reactor) Start(ctx context.Context) error {
	return r.run.Start(ctx)
}

func (r *Reactor) doStart(ctx context.Context) error {
	r.started.Store(true)
	<-ctx.Done()
	return nil
}

func (r *Reactor) doStop(ctx context.Context) error {
	r.mu.Lock()
	for _, t := range r.timers {
		close(t.stop)
	}
	r.timers = make(map[uint64]*timer)
	r.mu.Unlock()

	if err := r.pool.Shutdown(ctx); err != nil {
		return err
	}

	return nil
}

// Stop cancels every scheduled timer and waits for outstanding dispatched
// tasks to finish, or ctx to expire.
func (r *Reactor) Stop(ctx context.Context) error {
	return r.run.Stop(ctx)
}

// WaitStop blocks until the reactor has fully stopped.
func (r *Reactor) WaitStop(ctx context.Context) error {
	return r.run.WaitStop(ctx)
}

// IsRunning reports whether the reactor is currently running.
func (r *Reactor) IsRunning() bool { return r.run.IsRunning() }

// Dispatch offloads fn onto the worker pool, blocking until a slot is
// free or ctx is done.
func (r *Reactor) Dispatch(ctx context.Context, fn Task) *result.Error {
	return r.pool.Submit(ctx, fn)
}

// TryDispatch offloads fn without blocking, reporting whether a slot was
// free.
func (r *Reactor) TryDispatch(fn Task) bool {
	return r.pool.TrySubmit(fn)
}

// ScheduleID identifies a registered periodic timer for later
// cancellation via Cancel.
type ScheduleID uint64

// Schedule registers fn to run every interval, on the worker pool,
// starting after the first interval elapses. It returns an id that
// Cancel accepts to stop this timer alone.
func (r *Reactor) Schedule(interval time.Duration, fn func(ctx context.Context)) ScheduleID {
	id := r.nextID.Add(1)
	t := &timer{id: id, interval: interval, fn: fn, stop: make(chan struct{})}

	r.mu.Lock()
	r.timers[id] = t
	r.mu.Unlock()

	go r.runTimer(t)

	return ScheduleID(id)
}

func (r *Reactor) runTimer(t *timer) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = r.pool.Submit(context.Background(), t.fn)
		case <-t.stop:
			return
		}
	}
}

// Cancel stops the timer registered under id, if it is still active.
func (r *Reactor) Cancel(id ScheduleID) {
	r.mu.Lock()
	t, ok := r.timers[uint64(id)]
	if ok {
		delete(r.timers, uint64(id))
	}
	r.mu.Unlock()

	if ok {
		close(t.stop)
	}
}

// TimerCount reports how many timers are currently scheduled.
func (r *Reactor) TimerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Capacity reports the reactor's worker pool capacity.
func (r *Reactor) Capacity() int { return r.pool.Capacity() }

// Active reports how many tasks are currently running on the pool.
func (r *Reactor) Active() int { return r.pool.Active() }
