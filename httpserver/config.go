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

// Package httpserver provides the HTTP/1.1 (and, via ALPN, HTTP/2)
// server side of this module: a single named listener plus a pool that
// runs several of them side by side, each tracked through the generic
// session manager.
package httpserver

import (
	"net/http"
	"time"

	"github.com/kcenon/network-system-sub000/tlsconf"
)

// Config describes one HTTP listener: where it binds, what TLS (if any)
// it terminates, and its timeout/limits profile.
type Config struct {
	// Name identifies this server within a Pool; defaults to Listen.
	Name string

	// Listen is the host:port this server binds to.
	Listen string

	// TLS is nil for a plaintext listener, or a built config for HTTPS.
	TLS *tlsconf.Config

	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// MaxConcurrentStreams bounds HTTP/2 stream concurrency per
	// connection; 0 uses golang.org/x/net/http2's default.
	MaxConcurrentStreams uint32
}

// DefaultConfig returns a Config with conservative production timeouts.
func DefaultConfig(name, listen string) Config {
	return Config{
		Name:              name,
		Listen:            listen,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig(c.Name, c.Listen)

	if c.ReadTimeout > 0 {
		d.ReadTimeout = c.ReadTimeout
	}
	if c.ReadHeaderTimeout > 0 {
		d.ReadHeaderTimeout = c.ReadHeaderTimeout
	}
	if c.WriteTimeout > 0 {
		d.WriteTimeout = c.WriteTimeout
	}
	if c.IdleTimeout > 0 {
		d.IdleTimeout = c.IdleTimeout
	}
	if c.MaxHeaderBytes > 0 {
		d.MaxHeaderBytes = c.MaxHeaderBytes
	}

	d.TLS = c.TLS
	d.MaxConcurrentStreams = c.MaxConcurrentStreams

	if d.Name == "" {
		d.Name = d.Listen
	}

	return d
}

// IsTLS reports whether this server terminates TLS.
func (c Config) IsTLS() bool { return c.TLS != nil }

// buildHTTPServer returns an *http.Server populated from c, ready for
// http2.ConfigureServer and ListenAndServe(TLS).
func (c Config) buildHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              c.Listen,
		Handler:           handler,
		ReadTimeout:       c.ReadTimeout,
		ReadHeaderTimeout: c.ReadHeaderTimeout,
		WriteTimeout:      c.WriteTimeout,
		IdleTimeout:       c.IdleTimeout,
		MaxHeaderBytes:    c.MaxHeaderBytes,
	}
}
