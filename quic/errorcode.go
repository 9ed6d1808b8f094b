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

import "github.com/quic-go/quic-go"

// ErrorCode is the small set of application-level error codes this
// module surfaces to callers on CloseWithError / stream resets. Names and
// values are those of the HTTP/2 error codes (RFC 7540 §7), 0x0 to 0xd.
type ErrorCode uint64

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

func (c ErrorCode) String() string {
	switch c {
	case ErrNoError:
		return "no_error"
	case ErrProtocol:
		return "protocol_error"
	case ErrInternal:
		return "internal_error"
	case ErrFlowControl:
		return "flow_control_error"
	case ErrSettingsTimeout:
		return "settings_timeout"
	case ErrStreamClosed:
		return "stream_closed"
	case ErrFrameSize:
		return "frame_size_error"
	case ErrRefusedStream:
		return "refused_stream"
	case ErrCancel:
		return "cancel"
	case ErrCompression:
		return "compression_error"
	case ErrConnect:
		return "connect_error"
	case ErrEnhanceYourCalm:
		return "enhance_your_calm"
	case ErrInadequateSecurity:
		return "inadequate_security"
	case ErrHTTP11Required:
		return "http_1_1_required"
	}

	return "unknown"
}

// Application converts an ErrorCode to quic-go's transport-level error
// code type for use with CloseWithError/CancelWrite/CancelRead.
func (c ErrorCode) Application() quic.ApplicationErrorCode {
	return quic.ApplicationErrorCode(c)
}
