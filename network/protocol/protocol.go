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

// Package protocol enumerates the wire protocols this module's components
// can be configured for: the net package dial/listen networks, plus the
// application protocols layered on top of them (WebSocket, HTTP/1.1,
// HTTP/2, QUIC).
package protocol

import (
	"math"
	"strconv"
	"strings"
)

// NetworkProtocol identifies a transport or application protocol. The
// zero value, NetworkEmpty, is never valid configuration.
type NetworkProtocol uint8

const (
	NetworkEmpty NetworkProtocol = iota
	NetworkUnix
	NetworkTCP
	NetworkTCP4
	NetworkTCP6
	NetworkUDP
	NetworkUDP4
	NetworkUDP6
	NetworkIP
	NetworkIP4
	NetworkIP6
	NetworkUnixGram
	NetworkWebsocket
	NetworkHTTP
	NetworkHTTP2
	NetworkQUIC
)

// String returns the net package dial/listen network name for transport
// protocols ("tcp", "udp4", "unix", ...), and a lowercase scheme name for
// application protocols ("ws", "http", "http2", "quic"). Unknown values
// return "".
//
//nolint:cyclop
func (p NetworkProtocol) String() string {
	switch p {
	case NetworkUnix:
		return "unix"
	case NetworkTCP:
		return "tcp"
	case NetworkTCP4:
		return "tcp4"
	case NetworkTCP6:
		return "tcp6"
	case NetworkUDP:
		return "udp"
	case NetworkUDP4:
		return "udp4"
	case NetworkUDP6:
		return "udp6"
	case NetworkIP:
		return "ip"
	case NetworkIP4:
		return "ip4"
	case NetworkIP6:
		return "ip6"
	case NetworkUnixGram:
		return "unixgram"
	case NetworkWebsocket:
		return "ws"
	case NetworkHTTP:
		return "http"
	case NetworkHTTP2:
		return "http2"
	case NetworkQUIC:
		return "quic"
	}

	return ""
}

// Int returns the protocol's numeric value, or 0 for NetworkEmpty.
func (p NetworkProtocol) Int() int {
	return int(p)
}

// Int64 returns the protocol's numeric value as an int64.
func (p NetworkProtocol) Int64() int64 {
	return int64(p)
}

// IsTransport reports whether p is a net package dial/listen network as
// opposed to an application protocol layered on top of one.
func (p NetworkProtocol) IsTransport() bool {
	switch p {
	case NetworkUnix, NetworkTCP, NetworkTCP4, NetworkTCP6,
		NetworkUDP, NetworkUDP4, NetworkUDP6,
		NetworkIP, NetworkIP4, NetworkIP6, NetworkUnixGram:
		return true
	}

	return false
}

// IsDatagram reports whether p delivers unordered, unreliable datagrams
// at the transport layer (UDP family). QUIC rides on top of UDP but is
// not itself datagram-oriented from the caller's perspective, so it is
// excluded.
func (p NetworkProtocol) IsDatagram() bool {
	switch p {
	case NetworkUDP, NetworkUDP4, NetworkUDP6, NetworkUnixGram:
		return true
	}

	return false
}

func cleanToken(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "`")
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)

	return strings.ToLower(s)
}

// Parse converts a protocol name to a NetworkProtocol, case-insensitively
// and tolerant of surrounding whitespace or quoting. Unrecognized input
// returns NetworkEmpty.
//
//nolint:cyclop
func Parse(s string) NetworkProtocol {
	switch cleanToken(s) {
	case "unix":
		return NetworkUnix
	case "tcp":
		return NetworkTCP
	case "tcp4":
		return NetworkTCP4
	case "tcp6":
		return NetworkTCP6
	case "udp":
		return NetworkUDP
	case "udp4":
		return NetworkUDP4
	case "udp6":
		return NetworkUDP6
	case "ip":
		return NetworkIP
	case "ip4":
		return NetworkIP4
	case "ip6":
		return NetworkIP6
	case "unixgram":
		return NetworkUnixGram
	case "ws", "websocket":
		return NetworkWebsocket
	case "http", "http1", "http1.1":
		return NetworkHTTP
	case "http2", "h2":
		return NetworkHTTP2
	case "quic", "http3", "h3":
		return NetworkQUIC
	}

	return NetworkEmpty
}

// ParseBytes is Parse for a byte slice, avoiding an allocation for the
// common case of parsing a freshly-read configuration value.
func ParseBytes(p []byte) NetworkProtocol {
	if len(p) == 0 {
		return NetworkEmpty
	}

	return Parse(string(p))
}

// ParseInt64 converts a raw numeric protocol value back to a
// NetworkProtocol. Values outside uint8 range, or that do not name a
// known protocol, return NetworkEmpty.
func ParseInt64(i int64) NetworkProtocol {
	if i < 0 || i > math.MaxUint8 {
		return NetworkEmpty
	}

	p := NetworkProtocol(i)
	if p.String() == "" {
		return NetworkEmpty
	}

	return p
}

// MarshalText implements encoding.TextMarshaler.
func (p NetworkProtocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *NetworkProtocol) UnmarshalText(text []byte) error {
	*p = ParseBytes(text)

	return nil
}

// MarshalJSON implements json.Marshaler.
func (p NetworkProtocol) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *NetworkProtocol) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		s = string(data)
	}

	*p = Parse(s)

	return nil
}
