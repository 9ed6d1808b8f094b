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

package quic

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	quicgo "github.com/quic-go/quic-go"
	"github.com/sirupsen/logrus"

	"github.com/kcenon/network-system-sub000/internal/log"
	"github.com/kcenon/network-system-sub000/result"
	"github.com/kcenon/network-system-sub000/session"
	"github.com/kcenon/network-system-sub000/tlsconf"
)

const serverSource = "quic.Server"

// Server accepts inbound QUIC connections on a shared UDP socket and
// tracks each one as a session. Every write to the shared socket goes
// through quic-go's Transport; the server itself holds socketMu only
// while Stop closes the listener and the socket. With EnableRetry set,
// the Transport's VerifySourceAddress hook makes quic-go answer new
// connections with Retry packets carrying quic-go's own tokens; the
// RetryTokenValidator built by NewServer is not used to issue or check
// them.
type Server struct {
	cfg      Config
	log      *log.Entry
	sessions *session.Manager[*Connection]
	retry    *RetryTokenValidator

	socketMu      sync.Mutex
	conn          net.PacketConn
	listener      *quicgo.Listener
	earlyListener *quicgo.EarlyListener

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	mu             sync.RWMutex
	onConnected    func(*Connection)
	onDisconnected func(string, error)
	onError        func(error)
}

// NewServer builds a Server from cfg. Start must be called to begin
// accepting connections.
func NewServer(cfg Config, logEntry *logrus.Entry) (*Server, *result.Error) {
	var (
		validator *RetryTokenValidator
		rerr      *result.Error
	)

	if cfg.EnableRetry {
		validator, rerr = NewRetryTokenValidator()
		if rerr != nil {
			return nil, rerr
		}
	}

	return &Server{
		cfg:      cfg.withDefaults(),
		log:      log.Resolve(logEntry).With("component", serverSource),
		sessions: session.New[*Connection](session.DefaultConfig()),
		retry:    validator,
		stopCh:   make(chan struct{}),
	}, nil
}

// SetConnectedCallback sets the function invoked for every newly accepted
// connection, after the handshake completes.
func (s *Server) SetConnectedCallback(fn func(*Connection)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onConnected = fn
}

// SetDisconnectedCallback sets the function invoked when a session ends.
func (s *Server) SetDisconnectedCallback(fn func(sessionID string, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onDisconnected = fn
}

// SetErrorCallback sets the function invoked on non-fatal errors.
func (s *Server) SetErrorCallback(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onError = fn
}

// Start binds addr (host:port) and begins accepting connections.
func (s *Server) Start(ctx context.Context, addr string) *result.Error {
	if !s.running.CompareAndSwap(false, true) {
		return result.New(result.CodeServerAlreadyRunning, serverSource)
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		s.running.Store(false)
		return result.Wrap(result.CodeInvalidArgument, serverSource, err).WithDetail("address", addr)
	}

	pc, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		s.running.Store(false)
		return result.Wrap(result.CodeBindFailed, serverSource, err).WithDetail("address", addr)
	}

	tlsCfg := tlsconf.Build(s.cfg.TLS)
	if tlsCfg.NextProtos == nil {
		tlsCfg.NextProtos = []string{"network-system"}
	}

	transportCfg := s.cfg.transportConfig()

	tr := &quicgo.Transport{Conn: pc}
	if s.retry != nil {
		tr.VerifySourceAddress = func(net.Addr) bool { return true }
	}

	s.conn = pc

	if s.cfg.EnableEarlyData {
		early, lerr := tr.ListenEarly(tlsCfg, transportCfg)
		if lerr != nil {
			_ = pc.Close()
			s.running.Store(false)
			return result.Wrap(result.CodeBindFailed, serverSource, lerr).WithDetail("address", addr)
		}

		s.earlyListener = early
		s.wg.Add(1)
		go s.acceptEarlyLoop(ctx, early)

		return nil
	}

	listener, lerr := tr.Listen(tlsCfg, transportCfg)
	if lerr != nil {
		_ = pc.Close()
		s.running.Store(false)
		return result.Wrap(result.CodeBindFailed, serverSource, lerr).WithDetail("address", addr)
	}

	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop(ctx, listener)

	return nil
}

func (s *Server) acceptLoop(ctx context.Context, listener *quicgo.Listener) {
	defer s.wg.Done()

	for {
		raw, err := listener.Accept(ctx)
		if err != nil {
			return
		}

		s.handleAccepted(raw)
	}
}

func (s *Server) acceptEarlyLoop(ctx context.Context, listener *quicgo.EarlyListener) {
	defer s.wg.Done()

	for {
		raw, err := listener.Accept(ctx)
		if err != nil {
			return
		}

		s.handleAccepted(raw)
	}
}

func (s *Server) handleAccepted(raw quicgo.Connection) {
	id := uuid.NewString()
	conn := newConnection(id, raw, nil)

	conn.SetDisconnectedCallback(func(err error) {
		s.sessions.Remove(id)

		s.mu.RLock()
		fn := s.onDisconnected
		s.mu.RUnlock()

		if fn != nil {
			fn(id, err)
		}
	})
	conn.SetErrorCallback(func(err error) {
		s.mu.RLock()
		fn := s.onError
		s.mu.RUnlock()

		if fn != nil {
			fn(err)
		}
	})

	if s.cfg.OnEarlyData != nil {
		conn.SetEarlyDataCallback(func(payload []byte) {
			s.cfg.OnEarlyData(id, payload)
		})
	}

	if assigned := s.sessions.AddWithID(conn, id); assigned == "" {
		_ = conn.Close(ErrEnhanceYourCalm, "too many connections")
		return
	}

	go conn.acceptLoop(context.Background())
	go conn.acceptUniLoop(context.Background())

	s.mu.RLock()
	fn := s.onConnected
	s.mu.RUnlock()

	if fn != nil {
		fn(conn)
	}
}

// IsRunning reports whether the server is currently accepting
// connections.
func (s *Server) IsRunning() bool { return s.running.Load() }

// SessionCount reports the number of live connections.
func (s *Server) SessionCount() int { return s.sessions.Count() }

// Session returns the connection tracked under id, if any.
func (s *Server) Session(id string) (*Connection, bool) {
	return s.sessions.Get(id)
}

// Disconnect closes one session by ID with the given application error
// code.
func (s *Server) Disconnect(id string, code ErrorCode) *result.Error {
	conn, ok := s.sessions.Get(id)
	if !ok {
		return result.New(result.CodeNotFound, serverSource).WithDetail("session_id", id)
	}

	return conn.Close(code, "disconnected by server")
}

// DisconnectAll closes every live session.
func (s *Server) DisconnectAll(code ErrorCode) {
	// Close runs the disconnect callback, which calls sessions.Remove, so
	// the connections are closed after ForEach has released its lock.
	var conns []*Connection

	s.sessions.ForEach(func(_ string, conn *Connection) {
		conns = append(conns, conn)
	})

	for _, conn := range conns {
		_ = conn.Close(code, "server shutting down")
	}
}

// Broadcast sends payload on the default stream of every live session,
// opening one if needed, and returns the number of sessions delivery was
// attempted against.
func (s *Server) Broadcast(ctx context.Context, payload []byte) int {
	return s.sessions.Broadcast(func(conn *Connection) error {
		ids := conn.streams.IDs()
		if len(ids) == 0 {
			newID, err := conn.OpenStream(ctx)
			if err != nil {
				return err
			}

			return conn.Send(newID, payload, false)
		}

		return conn.Send(ids[0], payload, false)
	})
}

// Multicast sends payload to the subset of live sessions named by ids.
func (s *Server) Multicast(ctx context.Context, sessionIDs []string, payload []byte) {
	for _, id := range sessionIDs {
		conn, ok := s.sessions.Get(id)
		if !ok {
			continue
		}

		streamIDs := conn.streams.IDs()
		if len(streamIDs) == 0 {
			if newID, err := conn.OpenStream(ctx); err == nil {
				_ = conn.Send(newID, payload, false)
			}
			continue
		}

		_ = conn.Send(streamIDs[0], payload, false)
	}
}

// Stop closes the listener, every live session, and releases the socket.
// Calling Stop while the server is not running (never started, or already
// stopped) is a no-op that returns nil.
func (s *Server) Stop() *result.Error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	close(s.stopCh)

	s.DisconnectAll(ErrNoError)

	s.socketMu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.earlyListener != nil {
		_ = s.earlyListener.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.socketMu.Unlock()

	s.wg.Wait()
	s.sessions.ClearAll()

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
