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

package stream

import (
	"encoding/binary"
	"errors"
	"io"
)

// lengthPrefixSize is the width of the big-endian frame length written
// ahead of every envelope put on the wire by Send.
const lengthPrefixSize = 4

// maxFrameSize bounds a single buffered frame so a corrupt or hostile
// length prefix cannot force FrameReader to grow its buffer without
// limit before the peer ever sends a terminator.
const maxFrameSize = 16 * 1024 * 1024

// ErrFrameTooLarge is returned by FrameReader when a length prefix
// exceeds maxFrameSize.
var ErrFrameTooLarge = errors.New("quic/stream: frame exceeds maximum size")

// frame prepends envelope with its own length, so a byte-oriented QUIC
// stream - which makes no promise that one Write on the sending side
// corresponds to one Read on the receiving side - can be re-split back
// into the same envelope boundaries the writer intended.
func frame(envelope []byte) []byte {
	framed := make([]byte, lengthPrefixSize+len(envelope))
	binary.BigEndian.PutUint32(framed, uint32(len(envelope)))
	copy(framed[lengthPrefixSize:], envelope)

	return framed
}

// FrameReader reassembles length-prefixed envelopes from a stream that
// may deliver them split across multiple Read calls, or several
// coalesced into a single Read. Each call to ReadFrame returns exactly
// one envelope's bytes, unprefixed, suitable for Manager.Deliver.
type FrameReader struct {
	r   io.Reader
	buf []byte
}

// NewFrameReader wraps r, an already-open stream, for frame-at-a-time
// reading.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// ReadFrame blocks until a complete frame is available and returns its
// payload with the length prefix stripped. It returns the underlying
// reader's error (io.EOF included) once the stream ends without a
// further complete frame buffered.
func (f *FrameReader) ReadFrame() ([]byte, error) {
	for {
		if payload, ok, err := f.extract(); err != nil {
			return nil, err
		} else if ok {
			return payload, nil
		}

		chunk := make([]byte, 64*1024)

		n, rerr := f.r.Read(chunk)
		if n > 0 {
			f.buf = append(f.buf, chunk[:n]...)
		}

		if rerr != nil {
			if payload, ok, _ := f.extract(); ok {
				return payload, nil
			}

			return nil, rerr
		}
	}
}

// extract pulls one complete frame out of the front of f.buf, if one is
// fully buffered yet.
func (f *FrameReader) extract() ([]byte, bool, error) {
	if len(f.buf) < lengthPrefixSize {
		return nil, false, nil
	}

	length := binary.BigEndian.Uint32(f.buf[:lengthPrefixSize])
	if length > maxFrameSize {
		return nil, false, ErrFrameTooLarge
	}

	total := lengthPrefixSize + int(length)
	if len(f.buf) < total {
		return nil, false, nil
	}

	payload := append([]byte(nil), f.buf[lengthPrefixSize:total]...)
	f.buf = append([]byte(nil), f.buf[total:]...)

	return payload, true, nil
}
