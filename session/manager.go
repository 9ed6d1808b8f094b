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

// Package session is the generic session manager shared by the server
// components (QUIC, WebSocket, HTTP/2, HTTP/1.1) in this module: admission
// control, a concurrent session registry, idle cleanup, and broadcast.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kcenon/network-system-sub000/atomic"
)

// Stoppable is implemented by sessions that need an explicit shutdown
// hook invoked when they are removed by ClearAll or idle cleanup.
type Stoppable interface {
	StopSession()
}

// Config controls admission and idle-cleanup behaviour. The zero value is
// not meaningful; use DefaultConfig.
type Config struct {
	MaxSessions           int
	IdleTimeout           time.Duration
	CleanupInterval       time.Duration
	EnableBackpressure    bool
	BackpressureThreshold float64
}

// DefaultConfig matches the defaults used throughout this module's
// reference implementation: 1000 sessions, 5 minute idle timeout, 30
// second cleanup interval, backpressure at 80% of capacity.
func DefaultConfig() Config {
	return Config{
		MaxSessions:           1000,
		IdleTimeout:            5 * time.Minute,
		CleanupInterval:       30 * time.Second,
		EnableBackpressure:    true,
		BackpressureThreshold: 0.8,
	}
}

type entry[T any] struct {
	session      T
	createdAt    time.Time
	lastActivity time.Time
}

// Handle is a lightweight accessor to a tracked session, returned by Add.
type Handle[T any] struct {
	ID      string
	Session T
}

// Manager is a thread-safe registry of sessions of type T, with admission
// control, idle cleanup and broadcast. The zero value is not usable; use
// New.
type Manager[T any] struct {
	cfg Config

	mu       sync.RWMutex
	sessions map[string]*entry[T]

	count          atomic.Value[int]
	totalAccepted  atomic.Value[uint64]
	totalRejected  atomic.Value[uint64]
	totalCleanedUp atomic.Value[uint64]
}

// New builds a Manager with the given configuration.
func New[T any](cfg Config) *Manager[T] {
	return &Manager[T]{
		cfg:            cfg,
		sessions:       make(map[string]*entry[T]),
		count:          atomic.NewValue[int](),
		totalAccepted:  atomic.NewValue[uint64](),
		totalRejected:  atomic.NewValue[uint64](),
		totalCleanedUp: atomic.NewValue[uint64](),
	}
}

// CanAcceptConnection reports whether the manager is under its configured
// session limit.
func (m *Manager[T]) CanAcceptConnection() bool {
	return m.count.Load() < m.cfg.MaxSessions
}

// IsBackpressureActive reports whether the session count has reached the
// configured backpressure threshold.
func (m *Manager[T]) IsBackpressureActive() bool {
	if !m.cfg.EnableBackpressure {
		return false
	}

	threshold := int(float64(m.cfg.MaxSessions) * m.cfg.BackpressureThreshold)

	return m.count.Load() >= threshold
}

// Add registers session under an auto-generated ID. It returns
// (Handle{}, false) if the manager is at capacity.
func (m *Manager[T]) Add(session T) (Handle[T], bool) {
	return m.add(session, "")
}

// AddWithID registers session under the given id, or an auto-generated ID
// if id is empty, and returns the assigned id. It returns "" if the
// manager is at capacity.
func (m *Manager[T]) AddWithID(session T, id string) string {
	h, ok := m.add(session, id)
	if !ok {
		return ""
	}

	return h.ID
}

func (m *Manager[T]) add(session T, id string) (Handle[T], bool) {
	if !m.CanAcceptConnection() {
		m.totalRejected.Store(m.totalRejected.Load() + 1)

		return Handle[T]{}, false
	}

	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()

	m.mu.Lock()
	m.sessions[id] = &entry[T]{session: session, createdAt: now, lastActivity: now}
	m.mu.Unlock()

	m.count.Store(m.count.Load() + 1)
	m.totalAccepted.Store(m.totalAccepted.Load() + 1)

	return Handle[T]{ID: id, Session: session}, true
}

// Remove unregisters the session with the given id. It reports whether a
// session was actually removed.
func (m *Manager[T]) Remove(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		m.count.Store(m.count.Load() - 1)
	}

	return ok
}

// Get looks up a session by id.
func (m *Manager[T]) Get(id string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.sessions[id]
	if !ok {
		var zero T

		return zero, false
	}

	return e.session, true
}

// UpdateActivity refreshes the last-activity timestamp of a session, used
// by idle cleanup.
func (m *Manager[T]) UpdateActivity(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.sessions[id]; ok {
		e.lastActivity = time.Now()
	}
}

// IdleDuration reports how long the session has been idle, and whether it
// exists.
func (m *Manager[T]) IdleDuration(id string) (time.Duration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.sessions[id]
	if !ok {
		return 0, false
	}

	return time.Since(e.lastActivity), true
}

// Count reports the number of active sessions.
func (m *Manager[T]) Count() int {
	return m.count.Load()
}

// Utilization reports the active session count as a fraction of
// MaxSessions, in [0, 1].
func (m *Manager[T]) Utilization() float64 {
	if m.cfg.MaxSessions == 0 {
		return 0
	}

	return float64(m.count.Load()) / float64(m.cfg.MaxSessions)
}

// TotalAccepted, TotalRejected and TotalCleanedUp report lifetime
// counters, independent of the current session count.
func (m *Manager[T]) TotalAccepted() uint64  { return m.totalAccepted.Load() }
func (m *Manager[T]) TotalRejected() uint64  { return m.totalRejected.Load() }
func (m *Manager[T]) TotalCleanedUp() uint64 { return m.totalCleanedUp.Load() }

// ForEach calls fn for every active session under a shared (read) lock.
// fn must not call Add/Remove on the same Manager.
func (m *Manager[T]) ForEach(fn func(id string, session T)) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, e := range m.sessions {
		fn(id, e.session)
	}
}

// Broadcast calls fn for every active session, ignoring any returned
// error's individual failure (a broadcast best-effort delivers to every
// reachable session rather than aborting on the first failing one), and
// returns the number of sessions fn was attempted against.
func (m *Manager[T]) Broadcast(fn func(session T) error) int {
	attempted := 0

	m.ForEach(func(_ string, s T) {
		attempted++
		_ = fn(s)
	})

	return attempted
}

// With looks up the session registered under id and, if found, calls fn
// with it while holding the registry's shared-read lock, preventing a
// concurrent Remove from invalidating the session for the duration of fn.
// It reports whether the session was found.
func (m *Manager[T]) With(id string, fn func(session T)) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.sessions[id]
	if !ok {
		return false
	}

	fn(e.session)

	return true
}

// CleanupIdle removes every session whose idle duration exceeds the
// configured IdleTimeout, invoking StopSession on each if T implements
// Stoppable, and returns the number removed.
func (m *Manager[T]) CleanupIdle() int {
	now := time.Now()

	type victim struct {
		id      string
		session T
	}

	var victims []victim

	m.mu.RLock()
	for id, e := range m.sessions {
		if now.Sub(e.lastActivity) > m.cfg.IdleTimeout {
			victims = append(victims, victim{id: id, session: e.session})
		}
	}
	m.mu.RUnlock()

	removed := 0

	for _, v := range victims {
		if s, ok := any(v.session).(Stoppable); ok {
			s.StopSession()
		}

		if m.Remove(v.id) {
			removed++
		}
	}

	if removed > 0 {
		m.totalCleanedUp.Store(m.totalCleanedUp.Load() + uint64(removed))
	}

	return removed
}

// ClearAll removes every session, invoking StopSession on each if T
// implements Stoppable.
func (m *Manager[T]) ClearAll() {
	m.mu.RLock()
	sessions := make([]T, 0, len(m.sessions))
	for _, e := range m.sessions {
		sessions = append(sessions, e.session)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		if st, ok := any(s).(Stoppable); ok {
			st.StopSession()
		}
	}

	m.mu.Lock()
	m.sessions = make(map[string]*entry[T])
	m.mu.Unlock()

	m.count.Store(0)
}
