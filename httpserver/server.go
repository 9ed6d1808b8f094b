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
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"

	"github.com/kcenon/network-system-sub000/internal/log"
	"github.com/kcenon/network-system-sub000/result"
	"github.com/kcenon/network-system-sub000/session"
	"github.com/kcenon/network-system-sub000/tlsconf"
)

const (
	serverSource    = "httpserver.Server"
	timeoutShutdown = 10 * time.Second
)

// connSession tracks one accepted net.Conn for the session manager; it
// carries no application state, only enough to be located and closed.
type connSession struct {
	id   string
	conn net.Conn
}

func (c *connSession) StopSession() { _ = c.conn.Close() }

// Server runs a single named HTTP listener. It upgrades to HTTP/2 over
// TLS automatically (via golang.org/x/net/http2.ConfigureServer) and
// tracks every accepted connection through the generic session manager,
// the same pattern http2.Server and ws.Server use.
type Server struct {
	cfg Config
	log *log.Entry

	sessions *session.Manager[*connSession]
	httpSrv  *http.Server
	listener net.Listener

	running atomic.Bool
	mu      sync.RWMutex

	onConnected    func(sessionID string)
	onDisconnected func(sessionID string)
}

// New builds a Server from cfg. A nil logEntry discards log output.
func New(cfg Config, logEntry *logrus.Entry) *Server {
	cfg = cfg.withDefaults()

	return &Server{
		cfg:      cfg,
		log:      log.Resolve(logEntry).With("component", serverSource).With("name", cfg.Name),
		sessions: session.New[*connSession](session.DefaultConfig()),
	}
}

// SetConnectedCallback sets the function invoked whenever a new TCP
// connection is accepted.
func (s *Server) SetConnectedCallback(fn func(sessionID string)) { s.onConnected = fn }

// SetDisconnectedCallback sets the function invoked once an accepted
// connection closes.
func (s *Server) SetDisconnectedCallback(fn func(sessionID string)) { s.onDisconnected = fn }

// GetConfig returns the server's current configuration.
func (s *Server) GetConfig() Config { return s.cfg }

// Name returns the server's configured name.
func (s *Server) Name() string { return s.cfg.Name }

// IsRunning reports whether the server is currently accepting
// connections.
func (s *Server) IsRunning() bool { return s.running.Load() }

// IsTLS reports whether this server terminates TLS.
func (s *Server) IsTLS() bool { return s.cfg.IsTLS() }

// SessionCount reports the number of currently tracked connections.
func (s *Server) SessionCount() int { return s.sessions.Count() }

// Listen starts serving handler on the configured address. It returns
// once the listening socket is bound; serving happens in the
// background.
func (s *Server) Listen(handler http.Handler) *result.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return result.New(result.CodeServerAlreadyRunning, serverSource)
	}

	httpSrv := s.cfg.buildHTTPServer(handler)
	httpSrv.ConnState = s.trackConnState

	h2cfg := &http2.Server{}
	if s.cfg.MaxConcurrentStreams > 0 {
		h2cfg.MaxConcurrentStreams = s.cfg.MaxConcurrentStreams
	}

	if err := http2.ConfigureServer(httpSrv, h2cfg); err != nil {
		return result.Wrap(result.CodeInternal, serverSource, err)
	}

	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return result.Wrap(result.CodeBindFailed, serverSource, err)
	}

	if s.cfg.IsTLS() {
		tlsCfg := tlsconf.Build(s.cfg.TLS)
		if len(tlsCfg.NextProtos) == 0 {
			tlsCfg.NextProtos = []string{"h2", "http/1.1"}
		}

		ln = tls.NewListener(ln, tlsCfg)
	}

	s.listener = ln
	s.httpSrv = httpSrv
	s.running.Store(true)

	go func() {
		s.log.Info("server listening")

		err := httpSrv.Serve(ln)
		s.running.Store(false)

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.With("error", err).Warn("server stopped")
		}
	}()

	return nil
}

func (s *Server) trackConnState(conn net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		id := uuid.NewString()
		sess := &connSession{id: id, conn: conn}

		if s.sessions.AddWithID(sess, id) == "" {
			_ = conn.Close()
			return
		}

		if s.onConnected != nil {
			s.onConnected(id)
		}
	case http.StateClosed, http.StateHijacked:
		var id string

		s.sessions.ForEach(func(sid string, sess *connSession) {
			if sess.conn == conn {
				id = sid
			}
		})

		if id != "" {
			s.sessions.Remove(id)

			if s.onDisconnected != nil {
				s.onDisconnected(id)
			}
		}
	}
}

// Restart stops and re-listens with the current handler.
func (s *Server) Restart(handler http.Handler) *result.Error {
	s.Shutdown()
	return s.Listen(handler)
}

// Shutdown gracefully stops the server, closing every tracked
// connection once the grace period elapses.
func (s *Server) Shutdown() {
	s.mu.Lock()
	httpSrv := s.httpSrv
	s.mu.Unlock()

	if httpSrv == nil {
		return
	}

	s.log.Info("server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), timeoutShutdown)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.With("error", err).Warn("shutdown did not complete cleanly")
	}

	s.sessions.ClearAll()
	s.running.Store(false)
}

// WaitNotify blocks until ctx is done, then shuts the server down.
func (s *Server) WaitNotify(ctx context.Context) {
	<-ctx.Done()
	s.Shutdown()
}
