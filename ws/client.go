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
	"context"
	"crypto/tls"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/kcenon/network-system-sub000/result"
	"github.com/kcenon/network-system-sub000/tlsconf"
)

const clientSource = "ws.Client"

// Client dials a single outbound WebSocket connection and dispatches
// received messages to a callback, mirroring this module's other
// protocol clients (reliability.Engine, quic.Client).
type Client struct {
	tlsCfg *tlsconf.Config

	mu      sync.RWMutex
	conn    *Conn
	onData  func([]byte)
	onClose func(error)

	connected atomic.Bool
	done      chan struct{}
}

// NewClient builds a Client. A nil tlsCfg uses tlsconf's defaults.
func NewClient(tlsCfg *tlsconf.Config) *Client {
	return &Client{tlsCfg: tlsCfg, done: make(chan struct{})}
}

// SetReceiveCallback sets the function invoked for every received
// message.
func (c *Client) SetReceiveCallback(fn func([]byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onData = fn
}

// SetCloseCallback sets the function invoked once the connection closes.
func (c *Client) SetCloseCallback(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onClose = fn
}

// Connect dials u (a ws:// or wss:// URL) and starts the read loop.
func (c *Client) Connect(ctx context.Context, u string, header http.Header) *result.Error {
	var tlsClientCfg *tls.Config
	if c.tlsCfg != nil {
		tlsClientCfg = tlsconf.Build(c.tlsCfg)
	}

	dialer := &websocket.Dialer{TLSClientConfig: tlsClientCfg}

	raw, _, err := dialer.DialContext(ctx, u, header)
	if err != nil {
		return result.Wrap(result.CodeConnectionRefused, clientSource, err).WithDetail("url", u)
	}

	c.mu.Lock()
	c.conn = &Conn{raw}
	c.mu.Unlock()

	c.connected.Store(true)
	startKeepalive(raw, c.done)

	go c.readLoop(raw)

	return nil
}

func (c *Client) readLoop(raw *websocket.Conn) {
	for {
		_, message, err := raw.ReadMessage()
		if err != nil {
			c.connected.Store(false)
			close(c.done)

			c.mu.RLock()
			fn := c.onClose
			c.mu.RUnlock()

			if fn != nil {
				fn(err)
			}

			return
		}

		c.mu.RLock()
		fn := c.onData
		c.mu.RUnlock()

		if fn != nil {
			fn(message)
		}
	}
}

// Send writes payload as a single binary message.
func (c *Client) Send(payload []byte) *result.Error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return result.New(result.CodeServerNotStarted, clientSource)
	}

	if _, err := conn.Write(payload); err != nil {
		return result.Wrap(result.CodeSendFailed, clientSource, err)
	}

	return nil
}

// IsConnected reports whether the connection is open.
func (c *Client) IsConnected() bool { return c.connected.Load() }

// Close closes the connection with the given close code and reason.
func (c *Client) Close(code int, reason string) *result.Error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return nil
	}

	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, deadlineNow())

	if err := conn.Close(); err != nil {
		return result.Wrap(result.CodeInternal, clientSource, err)
	}

	return nil
}
