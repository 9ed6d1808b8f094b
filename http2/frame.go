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

// Package http2 implements the RFC 7540 §6 frame wire format and wraps
// golang.org/x/net/http2 for the actual protocol engine. The frame codec
// here is the public, on-the-wire representation; encoding/decoding a
// frame never requires HPACK state, which belongs to whatever consumes
// a HEADERS frame's header block fragment.
package http2

import (
	"encoding/binary"

	"github.com/kcenon/network-system-sub000/result"
)

const frameSource = "http2.Frame"

// FrameType identifies one of the ten frame types RFC 7540 §6 defines.
type FrameType uint8

const (
	FrameData FrameType = iota
	FrameHeaders
	FramePriority
	FrameRstStream
	FrameSettings
	FramePushPromise
	FramePing
	FrameGoAway
	FrameWindowUpdate
	FrameContinuation
)

func (t FrameType) String() string {
	switch t {
	case FrameData:
		return "DATA"
	case FrameHeaders:
		return "HEADERS"
	case FramePriority:
		return "PRIORITY"
	case FrameRstStream:
		return "RST_STREAM"
	case FrameSettings:
		return "SETTINGS"
	case FramePushPromise:
		return "PUSH_PROMISE"
	case FramePing:
		return "PING"
	case FrameGoAway:
		return "GOAWAY"
	case FrameWindowUpdate:
		return "WINDOW_UPDATE"
	case FrameContinuation:
		return "CONTINUATION"
	}

	return "UNKNOWN"
}

// Frame flag bits, named per the field(s) they apply to.
const (
	FlagNone       uint8 = 0x0
	FlagEndStream  uint8 = 0x1 // DATA, HEADERS
	FlagAck        uint8 = 0x1 // SETTINGS, PING
	FlagEndHeaders uint8 = 0x4 // HEADERS, PUSH_PROMISE, CONTINUATION
	FlagPadded     uint8 = 0x8 // DATA, HEADERS, PUSH_PROMISE
	FlagPriority   uint8 = 0x20 // HEADERS
)

// ErrorCode enumerates the HTTP/2 error codes of RFC 7540 §7.
type ErrorCode uint32

const (
	ErrNoError ErrorCode = iota
	ErrProtocol
	ErrInternal
	ErrFlowControl
	ErrSettingsTimeout
	ErrStreamClosed
	ErrFrameSize
	ErrRefusedStream
	ErrCancel
	ErrCompression
	ErrConnect
	ErrEnhanceYourCalm
	ErrInadequateSecurity
	ErrHTTP11Required
)

// FrameHeaderLen is the fixed size of an HTTP/2 frame header.
const FrameHeaderLen = 9

// FrameHeader is the 9-byte header every HTTP/2 frame carries: a 24-bit
// payload length, an 8-bit type, an 8-bit flags field, and a 31-bit
// stream identifier (the high bit of the stream-id word is reserved).
type FrameHeader struct {
	Length   uint32
	Type     FrameType
	Flags    uint8
	StreamID uint32
}

// ParseFrameHeader parses the 9-byte header from the front of buf.
func ParseFrameHeader(buf []byte) (FrameHeader, *result.Error) {
	if len(buf) < FrameHeaderLen {
		return FrameHeader{}, result.New(result.CodeInvalidArgument, frameSource).WithDetail("reason", "short frame header")
	}

	length := uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
	streamID := binary.BigEndian.Uint32(buf[5:9]) &^ (1 << 31)

	return FrameHeader{
		Length:   length,
		Type:     FrameType(buf[3]),
		Flags:    buf[4],
		StreamID: streamID,
	}, nil
}

// Serialize encodes h as its 9-byte wire form.
func (h FrameHeader) Serialize() []byte {
	buf := make([]byte, FrameHeaderLen)

	buf[0] = byte(h.Length >> 16)
	buf[1] = byte(h.Length >> 8)
	buf[2] = byte(h.Length)
	buf[3] = byte(h.Type)
	buf[4] = h.Flags
	binary.BigEndian.PutUint32(buf[5:9], h.StreamID&^(1<<31))

	return buf
}

// Frame is a generic, fully-parsed HTTP/2 frame: a header plus its raw
// payload bytes. The specific frame constructors below build and read a
// Frame's payload according to each frame type's wire layout.
type Frame struct {
	Header  FrameHeader
	Payload []byte
}

// ParseFrame parses one complete frame (header plus payload) from buf.
func ParseFrame(buf []byte) (Frame, *result.Error) {
	hdr, err := ParseFrameHeader(buf)
	if err != nil {
		return Frame{}, err
	}

	if uint32(len(buf)) < FrameHeaderLen+hdr.Length {
		return Frame{}, result.New(result.CodeInvalidArgument, frameSource).WithDetail("reason", "truncated frame payload")
	}

	payload := append([]byte(nil), buf[FrameHeaderLen:FrameHeaderLen+hdr.Length]...)

	return Frame{Header: hdr, Payload: payload}, nil
}

// Serialize encodes f as header-plus-payload wire bytes.
func (f Frame) Serialize() []byte {
	f.Header.Length = uint32(len(f.Payload))

	buf := f.Header.Serialize()

	return append(buf, f.Payload...)
}

func newFrame(t FrameType, streamID uint32, flags uint8, payload []byte) Frame {
	return Frame{
		Header: FrameHeader{
			Length:   uint32(len(payload)),
			Type:     t,
			Flags:    flags,
			StreamID: streamID,
		},
		Payload: payload,
	}
}

// NewDataFrame builds a DATA frame (RFC 7540 §6.1).
func NewDataFrame(streamID uint32, data []byte, endStream bool) Frame {
	var flags uint8
	if endStream {
		flags |= FlagEndStream
	}

	return newFrame(FrameData, streamID, flags, data)
}

// DataPayload returns a DATA frame's data, after stripping any padding
// declared by the PADDED flag.
func DataPayload(f Frame) ([]byte, *result.Error) {
	if f.Header.Type != FrameData {
		return nil, result.New(result.CodeInvalidArgument, frameSource).WithDetail("reason", "not a DATA frame")
	}

	return stripPadding(f)
}

// NewHeadersFrame builds a HEADERS frame (RFC 7540 §6.2) carrying an
// already HPACK-encoded header block fragment.
func NewHeadersFrame(streamID uint32, headerBlock []byte, endStream, endHeaders bool) Frame {
	var flags uint8
	if endStream {
		flags |= FlagEndStream
	}
	if endHeaders {
		flags |= FlagEndHeaders
	}

	return newFrame(FrameHeaders, streamID, flags, headerBlock)
}

// HeaderBlock returns a HEADERS frame's header block fragment, after
// stripping any PRIORITY prefix and PADDED suffix.
func HeaderBlock(f Frame) ([]byte, *result.Error) {
	if f.Header.Type != FrameHeaders {
		return nil, result.New(result.CodeInvalidArgument, frameSource).WithDetail("reason", "not a HEADERS frame")
	}

	payload, err := stripPadding(f)
	if err != nil {
		return nil, err
	}

	if f.Header.Flags&FlagPriority != 0 {
		if len(payload) < 5 {
			return nil, result.New(result.CodeProtocolViolation, frameSource).WithDetail("reason", "truncated priority prefix")
		}

		payload = payload[5:]
	}

	return payload, nil
}

func stripPadding(f Frame) ([]byte, *result.Error) {
	if f.Header.Flags&FlagPadded == 0 {
		return f.Payload, nil
	}

	if len(f.Payload) < 1 {
		return nil, result.New(result.CodeProtocolViolation, frameSource).WithDetail("reason", "missing pad length")
	}

	padLen := int(f.Payload[0])
	body := f.Payload[1:]

	if padLen > len(body) {
		return nil, result.New(result.CodeProtocolViolation, frameSource).WithDetail("reason", "pad length exceeds payload")
	}

	return body[:len(body)-padLen], nil
}

// SettingParam is one identifier/value pair in a SETTINGS frame.
type SettingParam struct {
	Identifier uint16
	Value      uint32
}

// SETTINGS parameter identifiers (RFC 7540 §6.5.2).
const (
	SettingHeaderTableSize      uint16 = 0x1
	SettingEnablePush           uint16 = 0x2
	SettingMaxConcurrentStreams uint16 = 0x3
	SettingInitialWindowSize    uint16 = 0x4
	SettingMaxFrameSize         uint16 = 0x5
	SettingMaxHeaderListSize    uint16 = 0x6
)

// NewSettingsFrame builds a SETTINGS frame (RFC 7540 §6.5). An ACK
// SETTINGS frame carries no parameters.
func NewSettingsFrame(params []SettingParam, ack bool) Frame {
	var flags uint8
	if ack {
		flags |= FlagAck
	}

	payload := make([]byte, 0, 6*len(params))
	for _, p := range params {
		entry := make([]byte, 6)
		binary.BigEndian.PutUint16(entry[0:2], p.Identifier)
		binary.BigEndian.PutUint32(entry[2:6], p.Value)
		payload = append(payload, entry...)
	}

	return newFrame(FrameSettings, 0, flags, payload)
}

// Settings parses a SETTINGS frame's parameter list.
func Settings(f Frame) ([]SettingParam, *result.Error) {
	if f.Header.Type != FrameSettings {
		return nil, result.New(result.CodeInvalidArgument, frameSource).WithDetail("reason", "not a SETTINGS frame")
	}

	if len(f.Payload)%6 != 0 {
		return nil, result.New(result.CodeProtocolViolation, frameSource).WithDetail("reason", "settings payload not a multiple of 6")
	}

	params := make([]SettingParam, 0, len(f.Payload)/6)
	for i := 0; i < len(f.Payload); i += 6 {
		params = append(params, SettingParam{
			Identifier: binary.BigEndian.Uint16(f.Payload[i : i+2]),
			Value:      binary.BigEndian.Uint32(f.Payload[i+2 : i+6]),
		})
	}

	return params, nil
}

// IsAck reports whether a SETTINGS or PING frame carries the ACK flag.
func IsAck(f Frame) bool { return f.Header.Flags&FlagAck != 0 }

// NewRstStreamFrame builds an RST_STREAM frame (RFC 7540 §6.4).
func NewRstStreamFrame(streamID uint32, code ErrorCode) Frame {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, uint32(code))

	return newFrame(FrameRstStream, streamID, FlagNone, payload)
}

// RstStreamErrorCode parses an RST_STREAM frame's error code.
func RstStreamErrorCode(f Frame) (ErrorCode, *result.Error) {
	if f.Header.Type != FrameRstStream || len(f.Payload) != 4 {
		return 0, result.New(result.CodeProtocolViolation, frameSource).WithDetail("reason", "malformed RST_STREAM frame")
	}

	return ErrorCode(binary.BigEndian.Uint32(f.Payload)), nil
}

// NewPingFrame builds a PING frame (RFC 7540 §6.7) carrying 8 bytes of
// opaque data.
func NewPingFrame(opaque [8]byte, ack bool) Frame {
	var flags uint8
	if ack {
		flags |= FlagAck
	}

	return newFrame(FramePing, 0, flags, opaque[:])
}

// PingOpaqueData parses a PING frame's 8-byte opaque payload.
func PingOpaqueData(f Frame) ([8]byte, *result.Error) {
	var out [8]byte

	if f.Header.Type != FramePing || len(f.Payload) != 8 {
		return out, result.New(result.CodeProtocolViolation, frameSource).WithDetail("reason", "malformed PING frame")
	}

	copy(out[:], f.Payload)

	return out, nil
}

// NewGoAwayFrame builds a GOAWAY frame (RFC 7540 §6.8).
func NewGoAwayFrame(lastStreamID uint32, code ErrorCode, debugData []byte) Frame {
	payload := make([]byte, 8+len(debugData))
	binary.BigEndian.PutUint32(payload[0:4], lastStreamID&^(1<<31))
	binary.BigEndian.PutUint32(payload[4:8], uint32(code))
	copy(payload[8:], debugData)

	return newFrame(FrameGoAway, 0, FlagNone, payload)
}

// GoAwayInfo parses a GOAWAY frame's last-stream-id, error code, and any
// additional debug data.
func GoAwayInfo(f Frame) (lastStreamID uint32, code ErrorCode, debugData []byte, rerr *result.Error) {
	if f.Header.Type != FrameGoAway || len(f.Payload) < 8 {
		rerr = result.New(result.CodeProtocolViolation, frameSource).WithDetail("reason", "malformed GOAWAY frame")
		return
	}

	lastStreamID = binary.BigEndian.Uint32(f.Payload[0:4]) &^ (1 << 31)
	code = ErrorCode(binary.BigEndian.Uint32(f.Payload[4:8]))
	debugData = append([]byte(nil), f.Payload[8:]...)

	return
}

// NewWindowUpdateFrame builds a WINDOW_UPDATE frame (RFC 7540 §6.9).
// streamID is 0 for a connection-level update.
func NewWindowUpdateFrame(streamID, increment uint32) Frame {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, increment&^(1<<31))

	return newFrame(FrameWindowUpdate, streamID, FlagNone, payload)
}

// WindowSizeIncrement parses a WINDOW_UPDATE frame's increment.
func WindowSizeIncrement(f Frame) (uint32, *result.Error) {
	if f.Header.Type != FrameWindowUpdate || len(f.Payload) != 4 {
		return 0, result.New(result.CodeProtocolViolation, frameSource).WithDetail("reason", "malformed WINDOW_UPDATE frame")
	}

	return binary.BigEndian.Uint32(f.Payload) &^ (1 << 31), nil
}
