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

package http2

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"

	"github.com/kcenon/network-system-sub000/internal/log"
	"github.com/kcenon/network-system-sub000/result"
	"github.com/kcenon/network-system-sub000/session"
	"github.com/kcenon/network-system-sub000/tlsconf"
)

const serverSource = "http2.Server"

// Server wraps net/http's Server with golang.org/x/net/http2 configured
// on top, tracking each accepted TCP connection as a session the way
// every other server component in this module does. HTTP/2 itself
// multiplexes many requests on one connection, so a "session" here is a
// connection, not a single request.
type Server struct {
	cfg      Config
	log      *log.Entry
	sessions *session.Manager[*connSession]

	httpSrv  *http.Server
	listener net.Listener

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	mu             sync.RWMutex
	onConnected    func(sessionID string, conn net.Conn)
	onDisconnected func(sessionID string)
}

// Config bundles the TLS material and handler a Server is built with.
type Config struct {
	TLS     *tlsconf.Config
	Handler http.Handler
}

type connSession struct {
	id   string
	conn net.Conn
}

func (c *connSession) StopSession() {
	_ = c.conn.Close()
}

// NewServer builds a Server from cfg. Start must be called to begin
// accepting connections.
func NewServer(cfg Config, logEntry *logrus.Entry) *Server {
	return &Server{
		cfg:      cfg,
		log:      log.Resolve(logEntry).With("component", serverSource),
		sessions: session.New[*connSession](session.DefaultConfig()),
		stopCh:   make(chan struct{}),
	}
}

// SetConnectedCallback sets the function invoked for every newly
// accepted TCP connection, before the TLS/HTTP-2 handshake completes.
func (s *Server) SetConnectedCallback(fn func(sessionID string, conn net.Conn)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onConnected = fn
}

// SetDisconnectedCallback sets the function invoked once a connection
// closes.
func (s *Server) SetDisconnectedCallback(fn func(sessionID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onDisconnected = fn
}

// Start binds addr (host:port) and begins serving HTTP/2 over TLS.
func (s *Server) Start(addr string) *result.Error {
	if !s.running.CompareAndSwap(false, true) {
		return result.New(result.CodeServerAlreadyRunning, serverSource)
	}

	tlsCfg := tlsconf.Build(s.cfg.TLS)
	if len(tlsCfg.NextProtos) == 0 {
		tlsCfg.NextProtos = []string{"h2", "http/1.1"}
	}

	handler := s.cfg.Handler
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	httpSrv := &http.Server{
		Addr:      addr,
		Handler:   handler,
		TLSConfig: tlsCfg,
		ConnState: s.trackConnState,
	}

	if err := http2.ConfigureServer(httpSrv, &http2.Server{}); err != nil {
		s.running.Store(false)
		return result.Wrap(result.CodeInternal, serverSource, err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.running.Store(false)
		return result.Wrap(result.CodeBindFailed, serverSource, err).WithDetail("address", addr)
	}

	s.httpSrv = httpSrv
	s.listener = ln

	tlsListener := tls.NewListener(ln, tlsCfg)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = httpSrv.Serve(tlsListener)
	}()

	return nil
}

func (s *Server) trackConnState(conn net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		id := uuid.NewString()
		s.sessions.AddWithID(&connSession{id: id, conn: conn}, id)

		s.mu.RLock()
		fn := s.onConnected
		s.mu.RUnlock()

		if fn != nil {
			fn(id, conn)
		}
	case http.StateClosed, http.StateHijacked:
		var id string

		s.sessions.ForEach(func(sid string, sess *connSession) {
			if sess.conn == conn {
				id = sid
			}
		})

		if id == "" || !s.sessions.Remove(id) {
			return
		}

		s.mu.RLock()
		fn := s.onDisconnected
		s.mu.RUnlock()

		if fn != nil {
			fn(id)
		}
	}
}

// SessionCount reports the number of currently open connections.
func (s *Server) SessionCount() int { return s.sessions.Count() }

// IsRunning reports whether the server is currently accepting
// connections.
func (s *Server) IsRunning() bool { return s.running.Load() }

// Stop gracefully shuts down the server, closing every tracked
// connection. Calling Stop while the server is not running (never
// started, or already stopped) is a no-op that returns nil.
func (s *Server) Stop(ctx context.Context) *result.Error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	close(s.stopCh)

	err := s.httpSrv.Shutdown(ctx)

	s.sessions.ClearAll()
	s.wg.Wait()

	if err != nil {
		return result.Wrap(result.CodeInternal, serverSource, err)
	}

	return nil
}

// WaitForStop blocks until Stop is called or ctx is done.
func (s *Server) WaitForStop(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
