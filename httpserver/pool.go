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

package httpserver

import (
	"context"
	"net/http"
	"sync"

	"github.com/kcenon/network-system-sub000/result"
)

// HandlerDefault is the map key ListenMultiHandler falls back to for a
// server whose name has no matching entry.
const HandlerDefault = "default"

// Pool runs several named Servers side by side and lets the caller
// start, stop, or inspect them as one unit.
type Pool struct {
	mu  sync.RWMutex
	srv map[string]*Server
}

// NewPool builds a Pool containing srv.
func NewPool(srv ...*Server) *Pool {
	p := &Pool{srv: make(map[string]*Server)}

	for _, s := range srv {
		p.srv[s.Name()] = s
	}

	return p
}

// Add registers additional servers, skipping any whose name already
// exists in the pool.
func (p *Pool) Add(srv ...*Server) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range srv {
		if _, exists := p.srv[s.Name()]; !exists {
			p.srv[s.Name()] = s
		}
	}
}

// Get returns the server registered under name, if any.
func (p *Pool) Get(name string) (*Server, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.srv[name]
	return s, ok
}

// Del removes the server registered under name.
func (p *Pool) Del(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.srv, name)
}

// Has reports whether a server is registered under name.
func (p *Pool) Has(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.srv[name]
	return ok
}

// Len reports the number of registered servers.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.srv)
}

// MapRun invokes f for every registered server.
func (p *Pool) MapRun(f func(srv *Server)) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, s := range p.srv {
		f(s)
	}
}

// IsRunning reports whether every server is running, or, if atLeastOne
// is true, whether any single server is running.
func (p *Pool) IsRunning(atLeastOne bool) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.srv) == 0 {
		return false
	}

	for _, s := range p.srv {
		if s.IsRunning() {
			if atLeastOne {
				return true
			}
		} else if !atLeastOne {
			return false
		}
	}

	return !atLeastOne
}

// Listen starts every registered server with the same handler.
func (p *Pool) Listen(handler http.Handler) *result.Error {
	return p.ListenMultiHandler(map[string]http.Handler{HandlerDefault: handler})
}

// ListenMultiHandler starts every registered server, using the handler
// keyed by the server's name, falling back to HandlerDefault.
func (p *Pool) ListenMultiHandler(handler map[string]http.Handler) *result.Error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for name, s := range p.srv {
		h, ok := handler[name]
		if !ok {
			h = handler[HandlerDefault]
		}

		if err := s.Listen(h); err != nil {
			return err
		}
	}

	return nil
}

// Restart stops and re-listens every registered server, reusing each
// one's last handler.
func (p *Pool) Restart() {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, s := range p.srv {
		if s.httpSrv == nil {
			continue
		}

		_ = s.Restart(s.httpSrv.Handler)
	}
}

// Shutdown gracefully stops every registered server.
func (p *Pool) Shutdown() {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var wg sync.WaitGroup
	wg.Add(len(p.srv))

	for _, s := range p.srv {
		go func(s *Server) {
			defer wg.Done()
			s.Shutdown()
		}(s)
	}

	wg.Wait()
}

// WaitNotify blocks until ctx is done, then shuts the whole pool down.
func (p *Pool) WaitNotify(ctx context.Context) {
	<-ctx.Done()
	p.Shutdown()
}

// TotalSessions sums SessionCount across every registered server.
func (p *Pool) TotalSessions() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	total := 0
	for _, s := range p.srv {
		total += s.SessionCount()
	}

	return total
}
