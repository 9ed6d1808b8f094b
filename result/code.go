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

// Package result provides the tagged success/error taxonomy shared by every
// component in this module: a Result[T] that carries either a value or a
// structured Error, and an Error type with a stable Code, a human message,
// an origin component name, and free-form details.
package result

// Code identifies a class of failure. Components never return bare errors
// across package boundaries; they return *Error with one of these codes
// (or a component-local code in the same style).
type Code uint16

const (
	CodeNone Code = iota

	// common codes, shared across every component.
	CodeInvalidArgument
	CodeNotFound
	CodeAlreadyExists
	CodeClosed
	CodeTimeout
	CodeCanceled
	CodeUnavailable
	CodeInternal

	// network-specific codes.
	CodeConnectionRefused
	CodeConnectionReset
	CodeConnectionClosed
	CodeAddressInUse
	CodeHandshakeFailed
	CodeProtocolViolation
	CodeFlowControlViolation
	CodeStreamLimitExceeded
	CodeBackpressure
	CodeSessionRejected
	CodeMTUProbeFailed
	CodeSendFailed
	CodeReceiveFailed
	CodeBindFailed
	CodeServerNotStarted
	CodeServerAlreadyRunning
)

//nolint:cyclop
func (c Code) String() string {
	switch c {
	case CodeNone:
		return "none"
	case CodeInvalidArgument:
		return "invalid_argument"
	case CodeNotFound:
		return "not_found"
	case CodeAlreadyExists:
		return "already_exists"
	case CodeClosed:
		return "closed"
	case CodeTimeout:
		return "timeout"
	case CodeCanceled:
		return "canceled"
	case CodeUnavailable:
		return "unavailable"
	case CodeInternal:
		return "internal"
	case CodeConnectionRefused:
		return "connection_refused"
	case CodeConnectionReset:
		return "connection_reset"
	case CodeConnectionClosed:
		return "connection_closed"
	case CodeAddressInUse:
		return "address_in_use"
	case CodeHandshakeFailed:
		return "handshake_failed"
	case CodeProtocolViolation:
		return "protocol_violation"
	case CodeFlowControlViolation:
		return "flow_control_violation"
	case CodeStreamLimitExceeded:
		return "stream_limit_exceeded"
	case CodeBackpressure:
		return "backpressure"
	case CodeSessionRejected:
		return "session_rejected"
	case CodeMTUProbeFailed:
		return "mtu_probe_failed"
	case CodeSendFailed:
		return "send_failed"
	case CodeReceiveFailed:
		return "receive_failed"
	case CodeBindFailed:
		return "bind_failed"
	case CodeServerNotStarted:
		return "server_not_started"
	case CodeServerAlreadyRunning:
		return "server_already_running"
	}

	return "unknown"
}
