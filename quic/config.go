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
	"time"

	quicgo "github.com/quic-go/quic-go"

	"github.com/kcenon/network-system-sub000/tlsconf"
)

// SessionTicketFunc is invoked by a Client whenever the server issues a
// new session ticket usable for a future 0-RTT resumption.
type SessionTicketFunc func(ticket []byte)

// EarlyDataFunc is invoked by a Server with the early (0-RTT) data a
// client sent before the handshake completed.
type EarlyDataFunc func(connectionID string, data []byte)

// EarlyDataAcceptedFunc is invoked by a Client once the server confirms
// whether it accepted the early data the client sent.
type EarlyDataAcceptedFunc func(accepted bool)

// Config holds every tunable this package's Client and Server share.
// Zero-value fields are replaced by DefaultConfig's values where that
// makes sense (0 is never a meaningful idle timeout or stream limit).
type Config struct {
	TLS *tlsconf.Config

	// MaxIdleTimeout closes a connection that has been idle this long.
	MaxIdleTimeout time.Duration
	// InitialMaxData and InitialMaxStreamData are per-connection and
	// per-stream flow control starting points.
	InitialMaxData       int64
	InitialMaxStreamData int64
	// MaxIncomingStreams and MaxIncomingUniStreams bound concurrent
	// streams a peer may open.
	MaxIncomingStreams    int64
	MaxIncomingUniStreams int64

	// EnableEarlyData turns on 0-RTT: a Client may send application
	// data before the handshake finishes if it holds a valid session
	// ticket, and a Server may accept such data.
	EnableEarlyData bool

	OnSessionTicket       SessionTicketFunc
	OnEarlyData           EarlyDataFunc
	OnEarlyDataAccepted   EarlyDataAcceptedFunc

	// EnableRetry turns on the address-validation Retry mechanism
	// (RFC 9000 §8.1.2) as DoS mitigation for server-side connections.
	EnableRetry bool
}

// DefaultConfig mirrors the reference QUIC client/server defaults: a
// 30 second idle timeout, 1 MiB of connection-level flow control, 64 KiB
// per stream, and 100 concurrent streams in each direction.
func DefaultConfig() Config {
	return Config{
		MaxIdleTimeout:        30 * time.Second,
		InitialMaxData:        1 << 20,
		InitialMaxStreamData:  64 << 10,
		MaxIncomingStreams:    100,
		MaxIncomingUniStreams: 100,
		EnableRetry:           true,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.MaxIdleTimeout <= 0 {
		c.MaxIdleTimeout = def.MaxIdleTimeout
	}

	if c.InitialMaxData <= 0 {
		c.InitialMaxData = def.InitialMaxData
	}

	if c.InitialMaxStreamData <= 0 {
		c.InitialMaxStreamData = def.InitialMaxStreamData
	}

	if c.MaxIncomingStreams <= 0 {
		c.MaxIncomingStreams = def.MaxIncomingStreams
	}

	if c.MaxIncomingUniStreams <= 0 {
		c.MaxIncomingUniStreams = def.MaxIncomingUniStreams
	}

	return c
}

func (c Config) transportConfig() *quicgo.Config {
	c = c.withDefaults()

	return &quicgo.Config{
		MaxIdleTimeout:        c.MaxIdleTimeout,
		InitialStreamReceiveWindow:     uint64(c.InitialMaxStreamData),
		InitialConnectionReceiveWindow: uint64(c.InitialMaxData),
		MaxIncomingStreams:             c.MaxIncomingStreams,
		MaxIncomingUniStreams:          c.MaxIncomingUniStreams,
		Allow0RTT:                      c.EnableEarlyData,
	}
}
