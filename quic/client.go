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
	"crypto/tls"
	"sync"
	"sync/atomic"

	quicgo "github.com/quic-go/quic-go"
	"github.com/sirupsen/logrus"

	"github.com/kcenon/network-system-sub000/internal/log"
	"github.com/kcenon/network-system-sub000/result"
	"github.com/kcenon/network-system-sub000/tlsconf"
)

const clientSource = "quic.Client"

// Client dials a single outbound QUIC connection and exposes the small
// set of operations an application needs: opening streams, sending on
// the default stream, and observing connection lifecycle events.
type Client struct {
	cfg Config
	log *log.Entry

	mu         sync.RWMutex
	conn       *Connection
	connected  atomic.Bool
	done       chan struct{}

	onConnected    func(*Connection)
	onDisconnected func(error)
	onError        func(error)
}

// NewClient builds a Client from cfg. Connect must be called before the
// client is usable.
func NewClient(cfg Config, logEntry *logrus.Entry) *Client {
	return &Client{
		cfg:  cfg.withDefaults(),
		log:  log.Resolve(logEntry).With("component", clientSource),
		done: make(chan struct{}),
	}
}

// SetConnectedCallback sets the function invoked once the handshake
// completes.
func (c *Client) SetConnectedCallback(fn func(*Connection)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onConnected = fn
}

// SetDisconnectedCallback sets the function invoked once the connection
// closes, for any reason.
func (c *Client) SetDisconnectedCallback(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onDisconnected = fn
}

// SetErrorCallback sets the function invoked on non-fatal stream errors.
func (c *Client) SetErrorCallback(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onError = fn
}

func (c *Client) tlsConfig() *tls.Config {
	tlsCfg := tlsconf.Build(c.cfg.TLS)

	if tlsCfg.NextProtos == nil {
		tlsCfg.NextProtos = []string{"network-system"}
	}

	if c.cfg.OnSessionTicket != nil {
		delegate := tlsCfg.ClientSessionCache
		if delegate == nil {
			delegate = tls.NewLRUClientSessionCache(0)
		}

		tlsCfg.ClientSessionCache = &ticketObservingCache{
			delegate: delegate,
			onTicket: c.cfg.OnSessionTicket,
		}
	}

	return tlsCfg
}

// ticketObservingCache wraps a tls.ClientSessionCache so every session
// ticket the server issues on Put is also handed to a SessionTicketFunc,
// before being cached exactly as it would be without the wrapper.
type ticketObservingCache struct {
	delegate tls.ClientSessionCache
	onTicket SessionTicketFunc
}

func (c *ticketObservingCache) Get(sessionKey string) (*tls.ClientSessionState, bool) {
	return c.delegate.Get(sessionKey)
}

func (c *ticketObservingCache) Put(sessionKey string, cs *tls.ClientSessionState) {
	if cs != nil {
		if ticket, _, err := cs.ResumptionState(); err == nil {
			c.onTicket(ticket)
		}
	}

	c.delegate.Put(sessionKey, cs)
}

// Connect dials addr (host:port) and performs the QUIC/TLS handshake. If
// cfg.EnableEarlyData and a valid session ticket are available, the
// connection may send 0-RTT data before the handshake finishes.
func (c *Client) Connect(ctx context.Context, addr string) *result.Error {
	tlsCfg := c.tlsConfig()
	transportCfg := c.cfg.transportConfig()

	var (
		raw quicgo.Connection
		err error
	)

	if c.cfg.EnableEarlyData {
		var early quicgo.EarlyConnection
		early, err = quicgo.DialAddrEarly(ctx, addr, tlsCfg, transportCfg)
		raw = early

		if err == nil && c.cfg.OnEarlyDataAccepted != nil {
			go c.watchEarlyDataAccepted(ctx, early)
		}
	} else {
		raw, err = quicgo.DialAddr(ctx, addr, tlsCfg, transportCfg)
	}

	if err != nil {
		return result.Wrap(result.CodeConnectionRefused, clientSource, err).WithDetail("address", addr)
	}

	conn := newConnection(addr, raw, nil)
	conn.SetDisconnectedCallback(func(derr error) {
		c.connected.Store(false)
		close(c.done)

		c.mu.RLock()
		fn := c.onDisconnected
		c.mu.RUnlock()

		if fn != nil {
			fn(derr)
		}
	})
	conn.SetErrorCallback(func(eerr error) {
		c.mu.RLock()
		fn := c.onError
		c.mu.RUnlock()

		if fn != nil {
			fn(eerr)
		}
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.connected.Store(true)

	go conn.acceptLoop(context.Background())
	go conn.acceptUniLoop(context.Background())

	c.mu.RLock()
	fn := c.onConnected
	c.mu.RUnlock()

	if fn != nil {
		fn(conn)
	}

	return nil
}

// watchEarlyDataAccepted waits for the handshake to finish confirming,
// then reports through cfg.OnEarlyDataAccepted whether the 0-RTT data
// this client sent ahead of the handshake was actually accepted by the
// server (a server restarted since the session ticket was issued, or one
// that rejects 0-RTT, discards it and forces a full handshake instead).
func (c *Client) watchEarlyDataAccepted(ctx context.Context, early quicgo.EarlyConnection) {
	select {
	case <-early.HandshakeComplete():
		c.cfg.OnEarlyDataAccepted(early.ConnectionState().Used0RTT)
	case <-ctx.Done():
	}
}

// IsConnected reports whether the handshake completed and the connection
// has not since closed.
func (c *Client) IsConnected() bool { return c.connected.Load() }

// IsHandshakeComplete reports whether the TLS handshake has finished.
func (c *Client) IsHandshakeComplete() bool {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return false
	}

	return conn.raw.ConnectionState().TLS.HandshakeComplete
}

// ALPNProtocol reports the negotiated ALPN protocol, if any.
func (c *Client) ALPNProtocol() string {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ""
	}

	return conn.raw.ConnectionState().TLS.NegotiatedProtocol
}

// Connection returns the underlying Connection, or nil before Connect
// succeeds.
func (c *Client) Connection() *Connection {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.conn
}

// SendPacket sends payload on the connection's default (first opened)
// bidirectional stream, opening it on first use.
func (c *Client) SendPacket(ctx context.Context, payload []byte) *result.Error {
	conn := c.Connection()
	if conn == nil {
		return result.New(result.CodeServerNotStarted, clientSource)
	}

	// Bit 0x2 of a QUIC stream ID marks a unidirectional stream, and IDs
	// of each kind grow in the order streams are opened (RFC 9000 §2.1).
	var (
		first uint64
		found bool
	)

	for _, id := range conn.streams.IDs() {
		if id&0x2 == 0 && (!found || id < first) {
			first, found = id, true
		}
	}

	if !found {
		id, err := conn.OpenStream(ctx)
		if err != nil {
			return err
		}

		return conn.Send(id, payload, false)
	}

	return conn.Send(first, payload, false)
}

// CreateStream opens a new bidirectional stream for the caller to manage
// directly.
func (c *Client) CreateStream(ctx context.Context) (uint64, *result.Error) {
	conn := c.Connection()
	if conn == nil {
		return 0, result.New(result.CodeServerNotStarted, clientSource)
	}

	return conn.OpenStream(ctx)
}

// CreateUnidirectionalStream opens a new send-only stream.
func (c *Client) CreateUnidirectionalStream(ctx context.Context) (uint64, *result.Error) {
	conn := c.Connection()
	if conn == nil {
		return 0, result.New(result.CodeServerNotStarted, clientSource)
	}

	return conn.OpenUniStream(ctx)
}

// Stats reports the connection's Stats, as Connection.Stats does: the
// RTT fields are filled, the byte and packet counters are always zero.
func (c *Client) Stats() Stats {
	conn := c.Connection()
	if conn == nil {
		return Stats{}
	}

	return conn.Stats()
}

// Close tears down the connection.
func (c *Client) Close(code ErrorCode, reason string) *result.Error {
	conn := c.Connection()
	if conn == nil {
		return nil
	}

	return conn.Close(code, reason)
}

// WaitForStop blocks until the connection closes or ctx is done.
func (c *Client) WaitForStop(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
