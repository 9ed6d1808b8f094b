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

// Package reactor provides the worker pool that runs reactor loops and
// offloaded tasks, and the Reactor itself: a timer-and-dispatch loop
// that runs periodic and one-shot work on that pool. The protocol
// packages of this module do not use it; they run their own goroutines.
package reactor

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/kcenon/network-system-sub000/result"
)

const poolSource = "reactor.Pool"

// Task is a unit of work submitted to a Pool. It receives the context
// passed to Submit, which is cancelled when the pool shuts down.
type Task func(ctx context.Context)

// Pool bounds how many Tasks run concurrently, the way a fixed-size
// thread pool would in the original design; here it is a weighted
// semaphore gating goroutines spawned per Submit, the idiomatic Go
// equivalent of a thread pool without a dedicated worker-goroutine set.
type Pool struct {
	sem      *semaphore.Weighted
	capacity int64

	wg      sync.WaitGroup
	active  atomic.Int64
	closed  atomic.Bool
	mu      sync.Mutex
	cancels []context.CancelFunc
}

// NewPool builds a Pool that runs at most capacity Tasks at once.
// capacity <= 0 is treated as 1.
func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = 1
	}

	return &Pool{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

// Capacity reports the maximum number of concurrently running tasks.
func (p *Pool) Capacity() int { return int(p.capacity) }

// Active reports how many tasks are currently running.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Submit blocks until a slot is free or ctx is done, then runs fn in its
// own goroutine. It returns before fn completes; use Shutdown to wait
// for all outstanding tasks to finish.
func (p *Pool) Submit(ctx context.Context, fn Task) *result.Error {
	if p.closed.Load() {
		return result.New(result.CodeClosed, poolSource)
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return result.Wrap(result.CodeCanceled, poolSource, err)
	}

	taskCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	p.cancels = append(p.cancels, cancel)
	p.mu.Unlock()

	p.wg.Add(1)
	p.active.Add(1)

	go func() {
		defer func() {
			cancel()
			p.sem.Release(1)
			p.active.Add(-1)
			p.wg.Done()
		}()

		fn(taskCtx)
	}()

	return nil
}

// TrySubmit runs fn immediately if a slot is free without blocking, and
// reports whether it did.
func (p *Pool) TrySubmit(fn Task) bool {
	if p.closed.Load() || !p.sem.TryAcquire(1) {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	p.cancels = append(p.cancels, cancel)
	p.mu.Unlock()

	p.wg.Add(1)
	p.active.Add(1)

	go func() {
		defer func() {
			cancel()
			p.sem.Release(1)
			p.active.Add(-1)
			p.wg.Done()
		}()

		fn(ctx)
	}()

	return true
}

// Shutdown cancels every outstanding task's context and blocks until all
// of them return, or ctx expires first.
func (p *Pool) Shutdown(ctx context.Context) *result.Error {
	p.closed.Store(true)

	p.mu.Lock()
	for _, cancel := range p.cancels {
		cancel()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return result.Wrap(result.CodeTimeout, poolSource, ctx.Err())
	}
}
