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

// Package httpcli provides the HTTP/1.1 client side of this module: a
// small builder-style Request on top of *http.Client, configured with
// this module's TLS and result types instead of stdlib errors.
package httpcli

import (
	"net"
	"net/http"
	"time"

	"github.com/kcenon/network-system-sub000/tlsconf"
)

// ClientTimeout5Sec is the default per-request timeout used by NewClient
// when none is specified.
const ClientTimeout5Sec = 5 * time.Second

// FctHttpClient returns an *http.Client, allowing callers to inject a
// custom or mock client into Request instead of the package default.
type FctHttpClient func() *http.Client

// NewClient builds an *http.Client with the given TLS configuration and
// global timeout. A nil tlsCfg uses tlsconf's defaults; a zero timeout
// uses ClientTimeout5Sec.
func NewClient(tlsCfg *tlsconf.Config, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = ClientTimeout5Sec
	}

	transport := &http.Transport{
		TLSClientConfig:     tlsconf.Build(tlsCfg),
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 5,
		MaxConnsPerHost:     25,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 15 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 3 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
