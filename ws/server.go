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

package ws

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/kcenon/network-system-sub000/internal/log"
	"github.com/kcenon/network-system-sub000/session"
)

const serverSource = "ws.Server"

// wsSession wraps one accepted connection for tracking by the generic
// session manager.
type wsSession struct {
	id   string
	conn *websocket.Conn
	done chan struct{}
}

func (s *wsSession) StopSession() {
	close(s.done)
	_ = s.conn.Close()
}

// Server upgrades incoming HTTP requests to WebSocket connections and
// tracks each one as a session, dispatching received messages to a
// per-server callback (mirroring quic.Server and http2.Server's shape).
type Server struct {
	log      *log.Entry
	sessions *session.Manager[*wsSession]
	upgrader websocket.Upgrader

	onConnected    func(sessionID string, conn *Conn)
	onDisconnected func(sessionID string, err error)
	onData         func(sessionID string, payload []byte)
}

// NewServer builds a Server with the given session admission policy.
func NewServer(cfg session.Config, logEntry *logrus.Entry) *Server {
	return &Server{
		log:      log.Resolve(logEntry).With("component", serverSource),
		sessions: session.New[*wsSession](cfg),
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
	}
}

// SetConnectedCallback sets the function invoked for every newly
// upgraded connection.
func (s *Server) SetConnectedCallback(fn func(sessionID string, conn *Conn)) {
	s.onConnected = fn
}

// SetDisconnectedCallback sets the function invoked once a session's
// connection closes.
func (s *Server) SetDisconnectedCallback(fn func(sessionID string, err error)) {
	s.onDisconnected = fn
}

// SetReceiveCallback sets the function invoked for every message
// received on any session.
func (s *Server) SetReceiveCallback(fn func(sessionID string, payload []byte)) {
	s.onData = fn
}

// HandleUpgrade upgrades an incoming HTTP request to a WebSocket
// connection, admits it through the session manager, and starts its
// read/keepalive loop. Intended to be wired as an http.HandlerFunc.
func (s *Server) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	if !IsUpgrade(r) {
		http.Error(w, "expected websocket upgrade", http.StatusBadRequest)
		return
	}

	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.With("error", err).Warn("websocket upgrade failed")
		return
	}

	id := uuid.NewString()
	sess := &wsSession{id: id, conn: raw, done: make(chan struct{})}

	if s.sessions.AddWithID(sess, id) == "" {
		_ = raw.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server at capacity"),
			deadlineNow())
		_ = raw.Close()
		return
	}

	startKeepalive(raw, sess.done)

	if s.onConnected != nil {
		s.onConnected(id, &Conn{raw})
	}

	go s.readLoop(id, sess)
}

func (s *Server) readLoop(id string, sess *wsSession) {
	defer func() {
		s.sessions.Remove(id)
	}()

	for {
		_, message, err := sess.conn.ReadMessage()
		if err != nil {
			if s.onDisconnected != nil {
				s.onDisconnected(id, err)
			}

			return
		}

		s.sessions.UpdateActivity(id)

		if s.onData != nil {
			s.onData(id, message)
		}
	}
}

// Send writes payload to the named session as a single binary message.
func (s *Server) Send(sessionID string, payload []byte) bool {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return false
	}

	return sess.conn.WriteMessage(websocket.BinaryMessage, payload) == nil
}

// Broadcast writes payload to every live session and returns the number
// of sessions delivery was attempted against.
func (s *Server) Broadcast(payload []byte) int {
	return s.sessions.Broadcast(func(sess *wsSession) error {
		return sess.conn.WriteMessage(websocket.BinaryMessage, payload)
	})
}

// SessionCount reports the number of currently open connections.
func (s *Server) SessionCount() int { return s.sessions.Count() }

// CleanupIdle removes sessions idle longer than the configured timeout.
func (s *Server) CleanupIdle() int { return s.sessions.CleanupIdle() }

// Shutdown closes every tracked session.
func (s *Server) Shutdown() {
	s.sessions.ClearAll()
}
