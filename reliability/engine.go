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

// Package reliability layers selective-acknowledgment reliability,
// retransmission, and optional in-order delivery on top of a plain UDP
// conduit. An Engine owns its own net.Conn (a connected UDP socket); it
// does not route through any generic socket wrapper.
package reliability

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kcenon/network-system-sub000/internal/log"
	"github.com/kcenon/network-system-sub000/result"
)

const source = "reliability.Engine"

// Config tunes an Engine's congestion and retransmission behavior.
// Defaults mirror the reference reliability engine.
type Config struct {
	// CongestionWindow caps the number of unacknowledged packets in
	// flight at once in the reliable modes.
	CongestionWindow int
	// MaxRetries is how many times a packet is retransmitted before it
	// is dropped and reported through the error callback.
	MaxRetries int
	// RetransmissionTimeout is how long to wait for an ACK before
	// retransmitting.
	RetransmissionTimeout time.Duration
	// ReorderBufferLimit caps the number of out-of-order packets held
	// for reassembly in ModeReliableOrdered, bounding memory against a
	// sender that never fills the gap.
	ReorderBufferLimit int
}

// DefaultConfig matches the reference engine's defaults: a 32-packet
// window, 5 retries, a 200ms retransmission timeout, and a bounded
// reorder buffer.
func DefaultConfig() Config {
	return Config{
		CongestionWindow:      32,
		MaxRetries:            5,
		RetransmissionTimeout: 200 * time.Millisecond,
		ReorderBufferLimit:    4096,
	}
}

type pendingPacket struct {
	data            []byte
	sendTime        time.Time
	retransmitCount int
}

// Engine is a UDP conduit with the reliability behavior selected by its
// Mode layered on top. The zero value is not usable; use New.
type Engine struct {
	id   string
	mode Mode
	cfg  Config
	log  *log.Entry

	conn net.Conn

	nextSeq     uint32
	expectedSeq uint32
	seqMu       sync.Mutex

	pendingMu sync.Mutex
	pending   map[uint32]*pendingPacket

	reorderMu  sync.Mutex
	reorderBuf map[uint32][]byte

	cbMu      sync.Mutex
	onReceive func([]byte)
	onError   func(error)

	statsMu sync.Mutex
	stats   Stats

	running bool
	stateMu sync.Mutex

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds an Engine for the given mode and config. cfg's zero value
// is replaced field-by-field with DefaultConfig where unset. logEntry may
// be nil, in which case the engine logs nothing.
func New(id string, mode Mode, cfg Config, logEntry *logrus.Entry) *Engine {
	def := DefaultConfig()

	if cfg.CongestionWindow <= 0 {
		cfg.CongestionWindow = def.CongestionWindow
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}

	if cfg.RetransmissionTimeout <= 0 {
		cfg.RetransmissionTimeout = def.RetransmissionTimeout
	}

	if cfg.ReorderBufferLimit <= 0 {
		cfg.ReorderBufferLimit = def.ReorderBufferLimit
	}

	return &Engine{
		id:          id,
		mode:        mode,
		cfg:         cfg,
		log:         log.Resolve(logEntry).With("component", source).With("mode", mode.String()),
		nextSeq:     1,
		expectedSeq: 1,
		pending:     make(map[uint32]*pendingPacket),
		reorderBuf:  make(map[uint32][]byte),
	}
}

// SetReceiveCallback sets the function invoked with each reassembled
// payload delivered to the application.
func (e *Engine) SetReceiveCallback(fn func([]byte)) {
	e.cbMu.Lock()
	defer e.cbMu.Unlock()

	e.onReceive = fn
}

// SetErrorCallback sets the function invoked for asynchronous errors
// (receive-loop failures, exhausted retransmissions).
func (e *Engine) SetErrorCallback(fn func(error)) {
	e.cbMu.Lock()
	defer e.cbMu.Unlock()

	e.onError = fn
}

// Start dials remoteAddress (e.g. "host:port" on network "udp"),
// connecting a dedicated UDP socket, and launches the receive loop and -
// for the reliable modes - the retransmission loop. localAddress may be
// empty to let the OS pick an ephemeral port; a non-empty value pins the
// engine to a fixed local port, which a peer needs in order to dial it
// back.
func (e *Engine) Start(ctx context.Context, network, localAddress, remoteAddress string) *result.Error {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if e.running {
		return result.New(result.CodeAlreadyExists, source).WithDetail("id", e.id)
	}

	d := net.Dialer{}

	if localAddress != "" {
		la, err := net.ResolveUDPAddr(network, localAddress)
		if err != nil {
			return result.Wrap(result.CodeInvalidArgument, source, err).WithDetail("local_address", localAddress)
		}

		d.LocalAddr = la
	}

	conn, err := d.DialContext(ctx, network, remoteAddress)
	if err != nil {
		return result.Wrap(result.CodeConnectionRefused, source, err).WithDetail("address", remoteAddress)
	}

	e.conn = conn
	e.stopCh = make(chan struct{})
	e.running = true

	e.wg.Add(1)
	go e.receiveLoop()

	if e.mode != ModeUnreliable {
		e.wg.Add(1)
		go e.retransmitLoop()
	}

	e.log.Info("engine started", "address", remoteAddress)

	return nil
}

// Stop closes the conduit, halts the background loops, and drops all
// pending/reorder state.
func (e *Engine) Stop() *result.Error {
	e.stateMu.Lock()

	if !e.running {
		e.stateMu.Unlock()

		return nil
	}

	e.running = false
	close(e.stopCh)

	conn := e.conn
	e.conn = nil
	e.stateMu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}

	e.wg.Wait()

	e.pendingMu.Lock()
	e.pending = make(map[uint32]*pendingPacket)
	e.pendingMu.Unlock()

	e.reorderMu.Lock()
	e.reorderBuf = make(map[uint32][]byte)
	e.reorderMu.Unlock()

	e.log.Info("engine stopped")

	return nil
}

// IsRunning reports whether the engine is currently started.
func (e *Engine) IsRunning() bool {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	return e.running
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()

	return e.stats
}

// Send transmits data with the reliability handling selected by the
// engine's Mode.
func (e *Engine) Send(data []byte) *result.Error {
	if !e.IsRunning() {
		return result.New(result.CodeUnavailable, source).WithDetail("id", e.id)
	}

	switch e.mode {
	case ModeUnreliable:
		return e.sendUnreliable(data)
	case ModeReliableOrdered, ModeReliableUnordered:
		return e.sendReliable(data)
	case ModeSequenced:
		return e.sendSequenced(data)
	}

	return result.New(result.CodeInvalidArgument, source).WithDetail("mode", e.mode.String())
}

func (e *Engine) sendUnreliable(data []byte) *result.Error {
	h := header{Flags: FlagData, DataLength: uint16(len(data))}

	if err := e.write(frame(h, data)); err != nil {
		return err
	}

	e.statsMu.Lock()
	e.stats.PacketsSent++
	e.statsMu.Unlock()

	return nil
}

func (e *Engine) sendReliable(data []byte) *result.Error {
	e.pendingMu.Lock()

	if len(e.pending) >= e.cfg.CongestionWindow {
		e.pendingMu.Unlock()

		return result.New(result.CodeBackpressure, source).WithDetail("window", e.cfg.CongestionWindow)
	}

	e.seqMu.Lock()
	seq := e.nextSeq
	e.nextSeq++
	e.seqMu.Unlock()

	h := header{Sequence: seq, Flags: FlagData, DataLength: uint16(len(data))}
	packet := frame(h, data)

	e.pending[seq] = &pendingPacket{data: packet, sendTime: time.Now()}
	e.pendingMu.Unlock()

	if err := e.write(packet); err != nil {
		e.pendingMu.Lock()
		delete(e.pending, seq)
		e.pendingMu.Unlock()

		return err
	}

	e.statsMu.Lock()
	e.stats.PacketsSent++
	e.statsMu.Unlock()

	return nil
}

func (e *Engine) sendSequenced(data []byte) *result.Error {
	e.seqMu.Lock()
	seq := e.nextSeq
	e.nextSeq++
	e.seqMu.Unlock()

	h := header{Sequence: seq, Flags: FlagData, DataLength: uint16(len(data))}

	if err := e.write(frame(h, data)); err != nil {
		return err
	}

	e.statsMu.Lock()
	e.stats.PacketsSent++
	e.statsMu.Unlock()

	return nil
}

func (e *Engine) write(packet []byte) *result.Error {
	e.stateMu.Lock()
	conn := e.conn
	e.stateMu.Unlock()

	if conn == nil {
		return result.New(result.CodeClosed, source)
	}

	if _, err := conn.Write(packet); err != nil {
		return result.Wrap(result.CodeSendFailed, source, err)
	}

	return nil
}

func (e *Engine) sendAck(seq uint32) {
	h := header{Ack: seq, Flags: FlagACK}

	if err := e.write(frame(h, nil)); err == nil {
		e.statsMu.Lock()
		e.stats.AcksSent++
		e.statsMu.Unlock()
	}
}

func (e *Engine) receiveLoop() {
	defer e.wg.Done()

	buf := make([]byte, 64*1024)

	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		e.stateMu.Lock()
		conn := e.conn
		e.stateMu.Unlock()

		if conn == nil {
			return
		}

		n, err := conn.Read(buf)
		if err != nil {
			select {
			case <-e.stopCh:
				return
			default:
			}

			e.emitError(result.Wrap(result.CodeReceiveFailed, source, err))

			return
		}

		e.handleReceived(buf[:n])
	}
}

func (e *Engine) handleReceived(data []byte) {
	h, ok := decodeHeader(data)
	if !ok {
		e.log.Warn("dropped undersized frame", "length", len(data))

		return
	}

	if h.Flags&FlagACK != 0 {
		e.handleAck(h.Ack)

		return
	}

	if h.Flags&FlagData == 0 {
		return
	}

	if e.mode == ModeReliableOrdered || e.mode == ModeReliableUnordered {
		e.sendAck(h.Sequence)
	}

	payload := append([]byte(nil), data[headerSize:]...)

	switch e.mode {
	case ModeUnreliable, ModeReliableUnordered:
		e.deliver(payload)
	case ModeReliableOrdered:
		e.handleOrdered(h.Sequence, payload)
	case ModeSequenced:
		e.handleSequenced(h.Sequence, payload)
	}

	e.statsMu.Lock()
	e.stats.PacketsReceived++
	e.statsMu.Unlock()
}

func (e *Engine) handleAck(seq uint32) {
	e.pendingMu.Lock()
	p, ok := e.pending[seq]
	if ok {
		delete(e.pending, seq)
	}
	e.pendingMu.Unlock()

	if !ok {
		return
	}

	rtt := float64(time.Since(p.sendTime).Milliseconds())

	e.statsMu.Lock()
	e.stats.AcksReceived++

	if e.stats.AverageRTT == 0 {
		e.stats.AverageRTT = rtt
	} else {
		e.stats.AverageRTT = 0.875*e.stats.AverageRTT + 0.125*rtt
	}
	e.statsMu.Unlock()
}

func (e *Engine) handleOrdered(seq uint32, payload []byte) {
	e.reorderMu.Lock()
	defer e.reorderMu.Unlock()

	switch {
	case seq == e.expectedSeq:
		e.expectedSeq++
		e.deliver(payload)

		for {
			buffered, ok := e.reorderBuf[e.expectedSeq]
			if !ok {
				break
			}

			delete(e.reorderBuf, e.expectedSeq)
			e.expectedSeq++
			e.deliver(buffered)
		}
	case seq > e.expectedSeq:
		if len(e.reorderBuf) >= e.cfg.ReorderBufferLimit {
			e.log.Warn("reorder buffer full, dropping packet", "sequence", seq)

			return
		}

		e.reorderBuf[seq] = payload
	default:
		// duplicate or stale packet, ignore
	}
}

func (e *Engine) handleSequenced(seq uint32, payload []byte) {
	e.reorderMu.Lock()
	newer := seq >= e.expectedSeq
	if newer {
		e.expectedSeq = seq + 1
	}
	e.reorderMu.Unlock()

	if newer {
		e.deliver(payload)

		return
	}

	e.statsMu.Lock()
	e.stats.PacketsDropped++
	e.statsMu.Unlock()
}

func (e *Engine) deliver(payload []byte) {
	e.cbMu.Lock()
	fn := e.onReceive
	e.cbMu.Unlock()

	if fn != nil {
		fn(payload)
	}
}

func (e *Engine) emitError(err *result.Error) {
	e.cbMu.Lock()
	fn := e.onError
	e.cbMu.Unlock()

	if fn != nil {
		fn(err)
	}
}

func (e *Engine) retransmitLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.RetransmissionTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.checkAndRetransmit()
		}
	}
}

func (e *Engine) checkAndRetransmit() {
	now := time.Now()

	e.pendingMu.Lock()
	var toRetransmit [][]byte

	for seq, p := range e.pending {
		if now.Sub(p.sendTime) < e.cfg.RetransmissionTimeout {
			continue
		}

		if p.retransmitCount >= e.cfg.MaxRetries {
			delete(e.pending, seq)

			e.statsMu.Lock()
			e.stats.PacketsDropped++
			e.statsMu.Unlock()

			e.log.Warn("packet exceeded max retries, dropping", "sequence", seq)
			e.emitError(result.Newf(result.CodeSendFailed, source, "packet %d dropped after max retries", seq))

			continue
		}

		p.sendTime = now
		p.retransmitCount++
		toRetransmit = append(toRetransmit, p.data)

		e.statsMu.Lock()
		e.stats.PacketsRetransmitted++
		e.statsMu.Unlock()
	}
	e.pendingMu.Unlock()

	for _, packet := range toRetransmit {
		_ = e.write(packet)
	}
}
