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
	"io"
	"sync"
	"sync/atomic"

	quicgo "github.com/quic-go/quic-go"
	"github.com/sirupsen/logrus"

	"github.com/kcenon/network-system-sub000/internal/log"
	"github.com/kcenon/network-system-sub000/quic/stream"
	"github.com/kcenon/network-system-sub000/result"
)

const connectionSource = "quic.Connection"

// Stats mirrors the small set of transport counters a caller can observe
// on a live connection.
type Stats struct {
	BytesSent       uint64
	BytesReceived   uint64
	PacketsSent     uint64
	PacketsReceived uint64
	PacketsLost     uint64
	SmoothedRTT     int64 // nanoseconds
	MinRTT          int64 // nanoseconds
}

// Connection wraps a quic-go connection with this module's stream
// bookkeeping, callbacks and stats surface. It is shared by Client (one
// Connection per dial) and Server (one Connection per accepted session).
type Connection struct {
	id  string
	raw quicgo.Connection
	log *log.Entry

	streams *stream.Manager

	mu            sync.RWMutex
	onStreamData  func(streamID uint64, payload []byte, fin bool)
	onDisconnect  func(err error)
	onError       func(err error)
	onEarlyData   func(payload []byte)

	closed   atomic.Bool
	acceptWG sync.WaitGroup
}

func newConnection(id string, raw quicgo.Connection, logEntry *logrus.Entry) *Connection {
	c := &Connection{
		id:      id,
		raw:     raw,
		log:     log.Resolve(logEntry).With("component", connectionSource).With("connection_id", id),
		streams: stream.NewManager(),
	}

	c.streams.SetReceiveCallback(func(streamID uint64, payload []byte, fin bool) {
		c.mu.RLock()
		fn := c.onStreamData
		earlyFn := c.onEarlyData
		c.mu.RUnlock()

		if earlyFn != nil && !c.handshakeComplete() {
			earlyFn(payload)
		}

		if fn != nil {
			fn(streamID, payload, fin)
		}
	})

	return c
}

// handshakeComplete reports whether the QUIC/TLS handshake on this
// connection has finished. Data delivered before it has is 0-RTT early
// data: the peer sent it using a resumed session ticket, ahead of
// handshake confirmation.
func (c *Connection) handshakeComplete() bool {
	select {
	case <-c.raw.HandshakeComplete():
		return true
	default:
		return false
	}
}

// SetEarlyDataCallback sets the function invoked with the payload of any
// stream data this connection receives before its handshake completes
// (RFC 9001 §4.1.1's 0-RTT data, arriving on streams like any other
// application data but ahead of handshake confirmation here).
func (c *Connection) SetEarlyDataCallback(fn func(payload []byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onEarlyData = fn
}

// ID returns the application-level identifier assigned to this connection.
func (c *Connection) ID() string { return c.id }

// SetStreamReceiveCallback sets the function invoked for every envelope
// received on any stream of this connection.
func (c *Connection) SetStreamReceiveCallback(fn func(streamID uint64, payload []byte, fin bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onStreamData = fn
}

// SetDisconnectedCallback sets the function invoked once the connection
// has fully closed, with the reason if any.
func (c *Connection) SetDisconnectedCallback(fn func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onDisconnect = fn
}

// SetErrorCallback sets the function invoked on non-fatal stream errors.
func (c *Connection) SetErrorCallback(fn func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onError = fn
}

// IsClosed reports whether this connection has been torn down.
func (c *Connection) IsClosed() bool { return c.closed.Load() }

// StopSession implements session.Stoppable so a Server's session manager
// can tear down a connection during idle cleanup or ClearAll.
func (c *Connection) StopSession() {
	_ = c.Close(ErrNoError, "session stopped")
}

// Stats reports the connection's current RTT estimates (SmoothedRTT and
// MinRTT). The byte and packet counters of Stats are not filled in and
// are always zero.
func (c *Connection) Stats() Stats {
	rtt := c.raw.ConnectionState().RTTStats

	s := Stats{}
	if rtt != nil {
		s.SmoothedRTT = int64(rtt.SmoothedRTT())
		s.MinRTT = int64(rtt.MinRTT())
	}

	return s
}

// OpenStream opens a new bidirectional stream and registers it for
// envelope-framed sends via Send.
func (c *Connection) OpenStream(ctx context.Context) (uint64, *result.Error) {
	s, err := c.raw.OpenStreamSync(ctx)
	if err != nil {
		return 0, result.Wrap(result.CodeConnectionRefused, connectionSource, err)
	}

	id := uint64(s.StreamID())
	c.streams.Open(id, s, false)
	c.acceptWG.Add(1)
	go c.readStream(id, s)

	return id, nil
}

// OpenUniStream opens a new unidirectional (send-only) stream.
func (c *Connection) OpenUniStream(ctx context.Context) (uint64, *result.Error) {
	s, err := c.raw.OpenUniStreamSync(ctx)
	if err != nil {
		return 0, result.Wrap(result.CodeConnectionRefused, connectionSource, err)
	}

	id := uint64(s.StreamID())
	c.streams.Open(id, s, true)

	return id, nil
}

// Send writes payload as a framed envelope on the given stream.
func (c *Connection) Send(streamID uint64, payload []byte, fin bool) *result.Error {
	return c.streams.Send(streamID, payload, fin)
}

// CloseStream closes one stream without tearing down the connection.
func (c *Connection) CloseStream(streamID uint64) {
	c.streams.Close(streamID)
}

// StreamCount reports how many streams are currently open.
func (c *Connection) StreamCount() int { return c.streams.Count() }

// Close closes the connection with the given application error code.
func (c *Connection) Close(code ErrorCode, reason string) *result.Error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	err := c.raw.CloseWithError(code.Application(), reason)

	c.mu.RLock()
	fn := c.onDisconnect
	c.mu.RUnlock()

	if fn != nil {
		fn(err)
	}

	if err != nil {
		return result.Wrap(result.CodeInternal, connectionSource, err)
	}

	return nil
}

// acceptLoop accepts peer-opened bidirectional streams until the
// connection closes, feeding each into the stream manager.
func (c *Connection) acceptLoop(ctx context.Context) {
	for {
		s, err := c.raw.AcceptStream(ctx)
		if err != nil {
			c.handleClosed(err)
			return
		}

		id := uint64(s.StreamID())
		c.streams.Open(id, s, false)
		c.acceptWG.Add(1)
		go c.readStream(id, s)
	}
}

// acceptUniLoop accepts peer-opened unidirectional streams.
func (c *Connection) acceptUniLoop(ctx context.Context) {
	for {
		s, err := c.raw.AcceptUniStream(ctx)
		if err != nil {
			return
		}

		id := uint64(s.StreamID())
		c.acceptWG.Add(1)
		go c.readUniStream(id, s)
	}
}

func (c *Connection) readStream(id uint64, r io.Reader) {
	defer c.acceptWG.Done()
	c.drainStream(id, r)
}

func (c *Connection) readUniStream(id uint64, r io.Reader) {
	defer c.acceptWG.Done()
	c.drainStream(id, r)
}

// drainStream reassembles length-prefixed envelopes from r using a
// stream.FrameReader and delivers each complete one in turn. A QUIC
// stream gives no guarantee that one peer Write corresponds to one local
// Read, so a raw Read-and-deliver loop would corrupt an envelope split
// across two Reads and silently drop every envelope but the first when
// several are coalesced into one Read; FrameReader's length prefix fixes
// both cases.
func (c *Connection) drainStream(id uint64, r io.Reader) {
	fr := stream.NewFrameReader(r)

	for {
		payload, err := fr.ReadFrame()
		if payload != nil {
			c.streams.Deliver(id, payload)
		}

		if err != nil {
			if err != io.EOF {
				c.mu.RLock()
				fn := c.onError
				c.mu.RUnlock()

				if fn != nil {
					fn(err)
				}
			}

			c.streams.Close(id)
			return
		}
	}
}

func (c *Connection) handleClosed(err error) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	c.mu.RLock()
	fn := c.onDisconnect
	c.mu.RUnlock()

	if fn != nil {
		fn(err)
	}
}
