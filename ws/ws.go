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

// Package ws provides WebSocket client and server wrappers around
// gorilla/websocket. It does not add its own message framing: a
// WebSocket message is already a discrete unit, so this package's only
// job beyond dialing/upgrading is keepalive (ping/pong) and integrating
// accepted connections with the generic session manager.
package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds how long a single write (including control
	// frames) may block before the connection is considered dead.
	writeWait = 10 * time.Second

	// pongWait bounds how long to wait for a pong before the peer is
	// considered unresponsive.
	pongWait = 60 * time.Second

	// pingPeriod must stay below pongWait so a ping always has time to
	// be answered before the read deadline expires.
	pingPeriod = (pongWait * 9) / 10
)

// Conn adapts a *websocket.Conn to io.Reader/io.Writer so it can be
// handed to code that reads and writes bytes, one message per Read or
// Write. The session manager and reliability.Engine do not take one.
type Conn struct {
	*websocket.Conn
}

// Read reads one WebSocket message into p, truncating if p is smaller
// than the message.
func (c *Conn) Read(p []byte) (int, error) {
	_, message, err := c.Conn.ReadMessage()
	if err != nil {
		return 0, err
	}

	return copy(p, message), nil
}

// Write sends p as a single binary WebSocket message.
func (c *Conn) Write(p []byte) (int, error) {
	if err := c.Conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}

	return len(p), nil
}

// deadlineNow returns a deadline writeWait from now, for control frames
// sent outside the keepalive ticker (e.g. an explicit Close).
func deadlineNow() time.Time {
	return time.Now().Add(writeWait)
}

// IsUpgrade reports whether req is a WebSocket upgrade request.
func IsUpgrade(req *http.Request) bool {
	return websocket.IsWebSocketUpgrade(req)
}

// startKeepalive arms the read deadline/pong handler and launches a
// ticker that sends periodic pings, stopping when done is closed.
func startKeepalive(conn *websocket.Conn, done <-chan struct{}) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			case <-done:
				return
			}
		}
	}()
}
