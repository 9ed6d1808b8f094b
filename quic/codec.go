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

import "github.com/kcenon/network-system-sub000/result"

const codecSource = "quic.Codec"

// PacketType identifies the RFC 9000 long-header packet type, or the
// synthetic ShortHeader value for 1-RTT packets which carry no type bits.
type PacketType uint8

const (
	PacketTypeShortHeader PacketType = iota
	PacketTypeVersionNegotiation
	PacketTypeInitial
	PacketTypeZeroRTT
	PacketTypeHandshake
	PacketTypeRetry
)

func (t PacketType) String() string {
	switch t {
	case PacketTypeShortHeader:
		return "short_header"
	case PacketTypeVersionNegotiation:
		return "version_negotiation"
	case PacketTypeInitial:
		return "initial"
	case PacketTypeZeroRTT:
		return "0-rtt"
	case PacketTypeHandshake:
		return "handshake"
	case PacketTypeRetry:
		return "retry"
	}

	return "unknown"
}

// longHeaderTypeBits maps the two type bits of a long header (RFC 9000
// §17.2) to a PacketType, for QUIC version 1 (0x00000001).
var longHeaderTypeBits = map[byte]PacketType{
	0b00: PacketTypeInitial,
	0b01: PacketTypeZeroRTT,
	0b10: PacketTypeHandshake,
	0b11: PacketTypeRetry,
}

// PacketHeader is the result of parsing the public (unencrypted) portion
// of a QUIC packet: the header form, type, version, and both connection
// IDs. None of this requires decrypting the packet - only the first
// bytes, which every QUIC packet carries in the clear.
type PacketHeader struct {
	Type    PacketType
	Version uint32
	// DestConnID is 0-20 bytes per RFC 9000 §17.2.
	DestConnID []byte
	// SrcConnID is present only on long-header packets.
	SrcConnID []byte
	// HeaderLen is the number of bytes consumed by the header the codec
	// actually parsed (not including the payload or any length-prefixed
	// token/payload-length fields beyond what ParseHeader inspects).
	HeaderLen int
}

// ParseHeader parses the public header of a single QUIC packet from buf.
// It extracts enough to demultiplex by destination connection ID and
// classify the packet type; it never touches encrypted payload.
func ParseHeader(buf []byte) (PacketHeader, *result.Error) {
	if len(buf) < 1 {
		return PacketHeader{}, result.New(result.CodeInvalidArgument, codecSource).WithDetail("reason", "empty packet")
	}

	first := buf[0]
	isLong := first&0x80 != 0

	if !isLong {
		return parseShortHeader(buf, first)
	}

	return parseLongHeader(buf, first)
}

func parseShortHeader(buf []byte, first byte) (PacketHeader, *result.Error) {
	// Short header: 1 byte flags + DCID (length is connection-state,
	// not self-describing) + packet number. Since the codec is not
	// privy to the negotiated DCID length, it reports the remainder of
	// the buffer as a maximal DCID candidate for the caller (the CID
	// store) to trim to the length it issued.
	_ = first

	if len(buf) < 2 {
		return PacketHeader{}, result.New(result.CodeInvalidArgument, codecSource).WithDetail("reason", "short header too small")
	}

	dcidLen := len(buf) - 1
	if dcidLen > 20 {
		dcidLen = 20
	}

	return PacketHeader{
		Type:       PacketTypeShortHeader,
		DestConnID: append([]byte(nil), buf[1:1+dcidLen]...),
		HeaderLen:  1 + dcidLen,
	}, nil
}

func parseLongHeader(buf []byte, first byte) (PacketHeader, *result.Error) {
	if len(buf) < 6 {
		return PacketHeader{}, result.New(result.CodeInvalidArgument, codecSource).WithDetail("reason", "long header too small")
	}

	version := uint32(buf[1])<<24 | uint32(buf[2])<<16 | uint32(buf[3])<<8 | uint32(buf[4])

	if version == 0 {
		return parseVersionNegotiation(buf)
	}

	offset := 5

	dcidLen := int(buf[offset])
	offset++

	if dcidLen > 20 || offset+dcidLen > len(buf) {
		return PacketHeader{}, result.New(result.CodeProtocolViolation, codecSource).WithDetail("reason", "dcid length out of range")
	}

	dcid := append([]byte(nil), buf[offset:offset+dcidLen]...)
	offset += dcidLen

	if offset >= len(buf) {
		return PacketHeader{}, result.New(result.CodeInvalidArgument, codecSource).WithDetail("reason", "truncated after dcid")
	}

	scidLen := int(buf[offset])
	offset++

	if scidLen > 20 || offset+scidLen > len(buf) {
		return PacketHeader{}, result.New(result.CodeProtocolViolation, codecSource).WithDetail("reason", "scid length out of range")
	}

	scid := append([]byte(nil), buf[offset:offset+scidLen]...)
	offset += scidLen

	typeBits := (first >> 4) & 0x03

	pt, ok := longHeaderTypeBits[typeBits]
	if !ok {
		return PacketHeader{}, result.New(result.CodeProtocolViolation, codecSource).WithDetail("reason", "unknown long header type")
	}

	return PacketHeader{
		Type:       pt,
		Version:    version,
		DestConnID: dcid,
		SrcConnID:  scid,
		HeaderLen:  offset,
	}, nil
}

// longHeaderTypeBitsReverse is the inverse of longHeaderTypeBits, used by
// Serialize to recover the two type bits for a given PacketType.
var longHeaderTypeBitsReverse = map[PacketType]byte{
	PacketTypeInitial:   0b00,
	PacketTypeZeroRTT:   0b01,
	PacketTypeHandshake: 0b10,
	PacketTypeRetry:     0b11,
}

// Serialize encodes h back into its wire form. It is the inverse of
// ParseHeader: for any buf successfully parsed by ParseHeader, calling
// ParseHeader(h.Serialize()) again yields an equal PacketHeader. The one
// exception is a version negotiation packet that ends right after its
// DCID: Serialize still writes a zero SCID length byte, so the reparsed
// HeaderLen is one larger.
//
// Serialize only reproduces the fields ParseHeader itself extracts: the
// header form, type, version, and connection IDs. Encrypted payload,
// packet numbers, and long-header-specific fields ParseHeader does not
// inspect (token, length) are out of scope and are never written.
func (h PacketHeader) Serialize() []byte {
	if h.Type == PacketTypeShortHeader {
		buf := make([]byte, 1+len(h.DestConnID))
		buf[0] = 0x40
		copy(buf[1:], h.DestConnID)

		return buf
	}

	buf := make([]byte, 0, 7+len(h.DestConnID)+len(h.SrcConnID))

	var first byte = 0x80

	if h.Type != PacketTypeVersionNegotiation {
		first |= longHeaderTypeBitsReverse[h.Type] << 4
	}

	buf = append(buf, first)
	buf = append(buf, byte(h.Version>>24), byte(h.Version>>16), byte(h.Version>>8), byte(h.Version))

	buf = append(buf, byte(len(h.DestConnID)))
	buf = append(buf, h.DestConnID...)

	buf = append(buf, byte(len(h.SrcConnID)))
	buf = append(buf, h.SrcConnID...)

	return buf
}

// Encode is an alias for Serialize, matching the verb used by callers
// that think in terms of encoding a value rather than producing wire
// bytes for it.
func (h PacketHeader) Encode() []byte {
	return h.Serialize()
}

func parseVersionNegotiation(buf []byte) (PacketHeader, *result.Error) {
	offset := 5

	dcidLen := int(buf[offset])
	offset++

	if dcidLen > 20 || offset+dcidLen > len(buf) {
		return PacketHeader{}, result.New(result.CodeProtocolViolation, codecSource).WithDetail("reason", "dcid length out of range")
	}

	dcid := append([]byte(nil), buf[offset:offset+dcidLen]...)
	offset += dcidLen

	if offset >= len(buf) {
		return PacketHeader{Type: PacketTypeVersionNegotiation, DestConnID: dcid, HeaderLen: offset}, nil
	}

	scidLen := int(buf[offset])
	offset++

	if scidLen > 20 || offset+scidLen > len(buf) {
		return PacketHeader{}, result.New(result.CodeProtocolViolation, codecSource).WithDetail("reason", "scid length out of range")
	}

	scid := append([]byte(nil), buf[offset:offset+scidLen]...)
	offset += scidLen

	return PacketHeader{
		Type:       PacketTypeVersionNegotiation,
		DestConnID: dcid,
		SrcConnID:  scid,
		HeaderLen:  offset,
	}, nil
}
