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

// Package stream tracks the set of open streams on one QUIC connection
// and hands received data, tagged with its stream ID, to one
// per-connection callback.
// It sits above quic-go's own Stream type: quic-go already multiplexes
// bytes onto stream IDs at the transport level, this package is the
// bookkeeping layer the rest of the module programs against instead of
// quic-go's stream accept loop directly.
//
// A QUIC stream is a reliable, ordered byte stream with no message
// boundaries of its own, so Send wraps every envelope with a 4-byte
// length prefix before writing it, and FrameReader reassembles those
// envelopes on the receiving side - correctly, whether the transport
// splits one envelope across several Reads or coalesces several
// envelopes into one.
package stream

import (
	"io"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/kcenon/network-system-sub000/result"
)

const source = "quic/stream.Manager"

// Envelope is the small frame this package wraps around application
// payloads crossing a stream, letting a single stream carry multiple
// logical messages with an explicit boundary (QUIC streams are
// byte-oriented; Envelope reintroduces message framing on top).
type Envelope struct {
	Final   bool   `cbor:"fin"`
	Payload []byte `cbor:"payload"`
}

// Encode serializes an Envelope to CBOR.
func Encode(final bool, payload []byte) ([]byte, *result.Error) {
	buf, err := cbor.Marshal(Envelope{Final: final, Payload: payload})
	if err != nil {
		return nil, result.Wrap(result.CodeInternal, source, err)
	}

	return buf, nil
}

// Decode parses a CBOR-encoded Envelope.
func Decode(buf []byte) (Envelope, *result.Error) {
	var e Envelope

	if err := cbor.Unmarshal(buf, &e); err != nil {
		return Envelope{}, result.Wrap(result.CodeProtocolViolation, source, err)
	}

	return e, nil
}

// Writer is the minimal surface a quic-go stream provides that this
// package needs to send framed envelopes.
type Writer interface {
	io.Writer
}

// handle tracks one open stream's direction and liveness.
type handle struct {
	id          uint64
	writer      Writer
	closed      bool
	unidirFlag  bool
}

// Manager tracks every stream open on one connection, keyed by stream ID,
// and dispatches received envelopes to a per-connection callback.
type Manager struct {
	mu      sync.RWMutex
	streams map[uint64]*handle

	onData func(streamID uint64, payload []byte, fin bool)
}

// NewManager builds an empty stream table.
func NewManager() *Manager {
	return &Manager{streams: make(map[uint64]*handle)}
}

// SetReceiveCallback sets the function invoked for every envelope
// received on any tracked stream.
func (m *Manager) SetReceiveCallback(fn func(streamID uint64, payload []byte, fin bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onData = fn
}

// Open registers a newly created or accepted stream.
func (m *Manager) Open(id uint64, w Writer, unidirectional bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.streams[id] = &handle{id: id, writer: w, unidirFlag: unidirectional}
}

// Close marks a stream as no longer usable for writes and drops it from
// the table.
func (m *Manager) Close(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.streams[id]; ok {
		h.closed = true
		delete(m.streams, id)
	}
}

// Send writes payload as a length-prefixed, CBOR-encoded envelope on the
// given stream. The length prefix lets the receiving side's FrameReader
// recover envelope boundaries regardless of how the underlying QUIC
// stream happens to chunk the bytes across Read calls.
func (m *Manager) Send(id uint64, payload []byte, fin bool) *result.Error {
	m.mu.RLock()
	h, ok := m.streams[id]
	m.mu.RUnlock()

	if !ok || h.closed {
		return result.New(result.CodeNotFound, source).WithDetail("stream_id", id)
	}

	envelope, err := Encode(fin, payload)
	if err != nil {
		return err
	}

	if _, werr := h.writer.Write(frame(envelope)); werr != nil {
		return result.Wrap(result.CodeSendFailed, source, werr).WithDetail("stream_id", id)
	}

	return nil
}

// Deliver decodes buf as an envelope and invokes the receive callback for
// streamID. buf is a single complete envelope's bytes (the length prefix
// already stripped by the caller's FrameReader) - called by the
// connection's per-stream read loop.
func (m *Manager) Deliver(streamID uint64, buf []byte) {
	envelope, err := Decode(buf)
	if err != nil {
		return
	}

	m.mu.RLock()
	fn := m.onData
	m.mu.RUnlock()

	if fn != nil {
		fn(streamID, envelope.Payload, envelope.Final)
	}
}

// Count reports how many streams are currently tracked.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.streams)
}

// IDs returns every currently open stream ID.
func (m *Manager) IDs() []uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]uint64, 0, len(m.streams))
	for id := range m.streams {
		ids = append(ids, id)
	}

	return ids
}
