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

// Package pmtud implements a DPLPMTUD (RFC 8899) path-MTU discovery state
// machine for a single QUIC connection: binary-search probing between a
// floor and ceiling MTU, black-hole detection, and ICMP
// packet-too-big-driven immediate reduction.
package pmtud

import (
	"sync"
	"time"
)

// State is one of the five DPLPMTUD states a Controller moves through.
type State uint8

const (
	StateDisabled State = iota
	StateBase
	StateSearching
	StateSearchComplete
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateBase:
		return "base"
	case StateSearching:
		return "searching"
	case StateSearchComplete:
		return "search_complete"
	case StateError:
		return "error"
	}

	return "unknown"
}

// BlackHoleThreshold is the number of consecutive probe losses that
// triggers black-hole handling (reset to the floor MTU).
const BlackHoleThreshold = 6

// Config bounds and times the search. Defaults match RFC 9000's QUIC
// minimum MTU and a common Ethernet ceiling.
type Config struct {
	MinMTU              int
	MaxProbeMTU         int
	ProbeStep           int
	ProbeTimeout        time.Duration
	MaxProbes           int
	ProbeInterval       time.Duration
	ConfirmationInterval time.Duration
}

// DefaultConfig mirrors the reference controller's defaults: 1200-byte
// QUIC minimum, 1500-byte Ethernet ceiling, 32-byte probe granularity, a
// 3 second probe timeout with up to 3 probes per size, probing every
// second while searching, and revalidating a confirmed MTU every 10
// minutes.
func DefaultConfig() Config {
	return Config{
		MinMTU:               1200,
		MaxProbeMTU:          1500,
		ProbeStep:            32,
		ProbeTimeout:         3 * time.Second,
		MaxProbes:            3,
		ProbeInterval:        time.Second,
		ConfirmationInterval: 10 * time.Minute,
	}
}

// Controller is the DPLPMTUD state machine for one connection. The zero
// value is not usable; use New.
type Controller struct {
	mu  sync.Mutex
	cfg Config

	state State

	currentMTU int
	searchLow  int
	searchHigh int

	probingMTU          int
	probeCount          int
	consecutiveFailures int
	probeInFlight       bool

	lastProbeTime      time.Time
	searchCompleteTime time.Time
}

// New builds a Controller in the disabled state.
func New(cfg Config) *Controller {
	return &Controller{
		cfg:        cfg,
		state:      StateDisabled,
		currentMTU: cfg.MinMTU,
		searchLow:  cfg.MinMTU,
		searchHigh: cfg.MaxProbeMTU,
	}
}

// Enable transitions disabled -> base and starts the initial search. It
// is a no-op if already enabled.
func (c *Controller) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateDisabled {
		return
	}

	c.state = StateBase
	c.currentMTU = c.cfg.MinMTU
	c.searchLow = c.cfg.MinMTU
	c.searchHigh = c.cfg.MaxProbeMTU
	c.probeCount = 0
	c.consecutiveFailures = 0
	c.probeInFlight = false
	c.startSearch()
}

// Disable resets the controller to its disabled floor-MTU state.
func (c *Controller) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateDisabled
	c.currentMTU = c.cfg.MinMTU
	c.probingMTU = 0
	c.probeInFlight = false
}

// Reset returns the controller to disabled with every search bound
// cleared, as if newly constructed.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateDisabled
	c.currentMTU = c.cfg.MinMTU
	c.searchLow = c.cfg.MinMTU
	c.searchHigh = c.cfg.MaxProbeMTU
	c.probingMTU = 0
	c.probeCount = 0
	c.consecutiveFailures = 0
	c.probeInFlight = false
}

// State reports the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// CurrentMTU reports the largest MTU validated so far (the floor MTU
// while disabled or before any probe has succeeded).
func (c *Controller) CurrentMTU() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.currentMTU
}

// ShouldProbe reports whether the controller wants a probe sent right
// now, given the current time.
func (c *Controller) ShouldProbe(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisabled || c.probeInFlight {
		return false
	}

	switch c.state {
	case StateBase:
		return true
	case StateSearching:
		return now.Sub(c.lastProbeTime) >= c.cfg.ProbeInterval
	case StateSearchComplete:
		return now.Sub(c.searchCompleteTime) >= c.cfg.ConfirmationInterval
	case StateError:
		return now.Sub(c.lastProbeTime) >= c.cfg.ProbeTimeout
	}

	return false
}

// ProbeSize reports the size the next probe should use, and whether a
// probe is wanted at all.
func (c *Controller) ProbeSize() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateDisabled:
		return 0, false
	case StateBase, StateSearching:
		if c.probingMTU > 0 {
			return c.probingMTU, true
		}

		return 0, false
	case StateSearchComplete:
		// Periodic revalidation re-probes the already-confirmed MTU.
		return c.currentMTU, true
	case StateError:
		// Recovery probes resume the binary search over the reset bounds.
		return c.calculateNextProbeSize(), true
	}

	return 0, false
}

// OnProbeSent records that a probe of the given size was sent at sentTime.
func (c *Controller) OnProbeSent(size int, sentTime time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.probingMTU = size
	c.lastProbeTime = sentTime
	c.probeInFlight = true
	c.probeCount++
}

// OnProbeAcked records that a probe of the given size was acknowledged.
func (c *Controller) OnProbeAcked(size int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.probeInFlight = false
	c.consecutiveFailures = 0

	switch c.state {
	case StateBase, StateSearching:
		if size > c.currentMTU {
			c.currentMTU = size
			c.searchLow = size
		}

		if c.searchHigh-c.searchLow <= c.cfg.ProbeStep {
			c.completeSearch()
		} else {
			c.state = StateSearching
			c.probeCount = 0
			c.probingMTU = c.calculateNextProbeSize()
		}
	case StateSearchComplete:
		c.searchCompleteTime = time.Now()
	case StateError:
		c.state = StateSearching
		c.probeCount = 0
		c.probingMTU = c.calculateNextProbeSize()
	}
}

// OnProbeLost records that a probe of the given size was lost (either an
// explicit loss signal, or a probe timeout via OnTimeout).
func (c *Controller) OnProbeLost(size int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.probeInFlight = false
	c.consecutiveFailures++

	if c.consecutiveFailures >= BlackHoleThreshold {
		c.handleBlackHole()

		return
	}

	switch c.state {
	case StateBase, StateSearching:
		if c.probeCount >= c.cfg.MaxProbes {
			c.searchHigh = size
			c.probeCount = 0

			if c.searchHigh-c.searchLow <= c.cfg.ProbeStep {
				c.completeSearch()
			} else {
				c.probingMTU = c.calculateNextProbeSize()
			}
		}
		// Otherwise the same size is retried on the next ShouldProbe.
	case StateSearchComplete:
		c.state = StateError
		c.searchHigh = c.currentMTU
		c.searchLow = c.cfg.MinMTU
		c.currentMTU = c.cfg.MinMTU
		c.probeCount = 0
	}
}

// OnPacketTooBig handles an ICMP Packet-Too-Big report per RFC 8899: an
// immediate reduction of the current MTU to the reported value, or a black-hole
// signal if the report is below the protocol's minimum MTU.
func (c *Controller) OnPacketTooBig(reportedMTU int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case reportedMTU >= c.cfg.MinMTU && reportedMTU < c.currentMTU:
		c.currentMTU = reportedMTU
		c.searchHigh = reportedMTU

		if c.state == StateSearchComplete {
			c.state = StateSearching
			c.probeCount = 0
			c.probingMTU = c.calculateNextProbeSize()
		}
	case reportedMTU < c.cfg.MinMTU:
		c.handleBlackHole()
	}
}

// NextTimeout reports when the controller next needs OnTimeout called,
// and whether a timeout is scheduled at all.
func (c *Controller) NextTimeout() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisabled {
		return time.Time{}, false
	}

	if c.probeInFlight {
		return c.lastProbeTime.Add(c.cfg.ProbeTimeout), true
	}

	switch c.state {
	case StateSearching, StateBase:
		return c.lastProbeTime.Add(c.cfg.ProbeInterval), true
	case StateSearchComplete:
		return c.searchCompleteTime.Add(c.cfg.ConfirmationInterval), true
	case StateError:
		return c.lastProbeTime.Add(c.cfg.ProbeTimeout), true
	}

	return time.Time{}, false
}

// OnTimeout is called by the connection's timer loop at or after the
// time NextTimeout reported. A probe still in flight past ProbeTimeout
// is treated as lost.
func (c *Controller) OnTimeout(now time.Time) {
	c.mu.Lock()
	disabled := c.state == StateDisabled
	inFlight := c.probeInFlight
	elapsed := now.Sub(c.lastProbeTime)
	timeout := c.cfg.ProbeTimeout
	size := c.probingMTU
	c.mu.Unlock()

	if disabled || !inFlight || elapsed < timeout {
		return
	}

	c.OnProbeLost(size)
}

// startSearch assumes c.mu is held.
func (c *Controller) startSearch() {
	c.state = StateSearching
	c.searchLow = c.currentMTU
	c.searchHigh = c.cfg.MaxProbeMTU
	c.probeCount = 0
	c.probingMTU = c.calculateNextProbeSize()
}

// calculateNextProbeSize assumes c.mu is held.
func (c *Controller) calculateNextProbeSize() int {
	mid := c.searchLow + (c.searchHigh-c.searchLow)/2

	if mid == c.searchLow && c.searchHigh > c.searchLow {
		mid = c.searchLow + c.cfg.ProbeStep
	}

	if mid > c.searchHigh {
		return c.searchHigh
	}

	return mid
}

// completeSearch assumes c.mu is held.
func (c *Controller) completeSearch() {
	c.state = StateSearchComplete
	c.searchCompleteTime = time.Now()
	c.probingMTU = 0
	c.probeCount = 0
}

// handleBlackHole assumes c.mu is held.
func (c *Controller) handleBlackHole() {
	c.state = StateError
	c.currentMTU = c.cfg.MinMTU
	c.searchLow = c.cfg.MinMTU
	c.searchHigh = c.cfg.MaxProbeMTU
	c.probingMTU = 0
	c.probeCount = 0
	c.consecutiveFailures = 0
	c.probeInFlight = false
}
