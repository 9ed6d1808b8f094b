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

package reliability

import "encoding/binary"

// headerSize is the fixed wire size of a frame header: sequence number,
// ack number, flags, and payload length, all network byte order.
const headerSize = 12

// Flag bits carried in a frame header.
const (
	FlagACK  uint16 = 0x01
	FlagData uint16 = 0x02
	FlagSyn  uint16 = 0x04
	FlagFin  uint16 = 0x08
)

// header is the 12-byte frame header prefixed to every datagram this
// engine sends or expects to receive.
type header struct {
	Sequence   uint32
	Ack        uint32
	Flags      uint16
	DataLength uint16
}

func (h header) encode() []byte {
	buf := make([]byte, headerSize)
	binary.BigEndian.PutUint32(buf[0:4], h.Sequence)
	binary.BigEndian.PutUint32(buf[4:8], h.Ack)
	binary.BigEndian.PutUint16(buf[8:10], h.Flags)
	binary.BigEndian.PutUint16(buf[10:12], h.DataLength)

	return buf
}

func decodeHeader(buf []byte) (header, bool) {
	if len(buf) < headerSize {
		return header{}, false
	}

	return header{
		Sequence:   binary.BigEndian.Uint32(buf[0:4]),
		Ack:        binary.BigEndian.Uint32(buf[4:8]),
		Flags:      binary.BigEndian.Uint16(buf[8:10]),
		DataLength: binary.BigEndian.Uint16(buf[10:12]),
	}, true
}

// frame builds a complete wire frame: header followed by payload.
func frame(h header, payload []byte) []byte {
	buf := make([]byte, headerSize+len(payload))
	copy(buf, h.encode())
	copy(buf[headerSize:], payload)

	return buf
}
