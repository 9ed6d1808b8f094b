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

// Package tlsconf assembles stdlib crypto/tls.Config values for this
// module's components. It deliberately does not parse certificate files,
// bundle stores, or PEM chains - that is out of scope for this module;
// callers load their own certificates and hand this package a ready
// tls.Certificate.
package tlsconf

import (
	"crypto/tls"
	"crypto/x509"
)

// Config is the subset of TLS options every component in this module
// needs to negotiate a connection: server name for SNI, minimum
// acceptable protocol version, client certificate requirements, ALPN
// protocol list, and the certificates to present.
type Config struct {
	ServerName         string
	MinVersion         uint16
	InsecureSkipVerify bool
	ClientAuth         tls.ClientAuthType
	NextProtos         []string
	Certificates       []tls.Certificate
	RootCAs            *x509.CertPool
}

// Build returns a *tls.Config reflecting c. A nil Config returns a
// *tls.Config with defaults (MinVersion TLS 1.3, no client auth).
func Build(c *Config) *tls.Config {
	if c == nil {
		return &tls.Config{MinVersion: tls.VersionTLS13}
	}

	minVersion := c.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS13
	}

	return &tls.Config{
		ServerName:         c.ServerName,
		MinVersion:         minVersion,
		InsecureSkipVerify: c.InsecureSkipVerify,
		ClientAuth:         c.ClientAuth,
		NextProtos:         c.NextProtos,
		Certificates:       c.Certificates,
		RootCAs:            c.RootCAs,
	}
}
