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

package http2

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/net/http2"

	"github.com/kcenon/network-system-sub000/result"
	"github.com/kcenon/network-system-sub000/tlsconf"
)

const clientSource = "http2.Client"

// Client issues requests over HTTP/2, negotiated via ALPN ("h2") against
// a TLS endpoint. It wraps golang.org/x/net/http2's Transport rather than
// reimplementing stream multiplexing, flow control or HPACK - the frame
// codec in this package exists for callers that need to observe or build
// frames directly, not to replace the transport engine.
type Client struct {
	http *http.Client
}

// NewClient builds a Client dialing with the given TLS configuration.
// A nil tlsCfg uses tlsconf's defaults (TLS 1.3 minimum).
func NewClient(tlsCfg *tlsconf.Config) *Client {
	built := tlsconf.Build(tlsCfg)
	if len(built.NextProtos) == 0 {
		built.NextProtos = []string{"h2"}
	}

	return &Client{
		http: &http.Client{
			Transport: &http2.Transport{
				TLSClientConfig: built,
			},
		},
	}
}

// Do performs req and returns the raw response.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, *result.Error) {
	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return nil, result.Wrap(result.CodeConnectionRefused, clientSource, err)
	}

	return resp, nil
}

// Get issues a GET request to u.
func (c *Client) Get(ctx context.Context, u string) (*http.Response, *result.Error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, result.Wrap(result.CodeInvalidArgument, clientSource, err)
	}

	return c.Do(ctx, req)
}

// PostJSON issues a POST request with body JSON-encoded.
func (c *Client) PostJSON(ctx context.Context, u string, body any) (*http.Response, *result.Error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, result.Wrap(result.CodeInvalidArgument, clientSource, err)
	}

	req, err := http.NewRequest(http.MethodPost, u, bytes.NewReader(buf))
	if err != nil {
		return nil, result.Wrap(result.CodeInvalidArgument, clientSource, err)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.Do(ctx, req)
}

// DoParse performs req and decodes a JSON response body into model. Any
// status code not listed in validStatus (defaulting to just 200) is
// treated as a failure.
func (c *Client) DoParse(ctx context.Context, req *http.Request, model any, validStatus ...int) *result.Error {
	resp, rerr := c.Do(ctx, req)
	if rerr != nil {
		return rerr
	}

	defer func() { _ = resp.Body.Close() }()

	if len(validStatus) == 0 {
		validStatus = []int{http.StatusOK}
	}

	ok := false
	for _, s := range validStatus {
		if resp.StatusCode == s {
			ok = true
			break
		}
	}

	if !ok {
		body, _ := io.ReadAll(resp.Body)
		return result.Newf(result.CodeProtocolViolation, clientSource, "unexpected status %d", resp.StatusCode).
			WithDetail("body", string(body))
	}

	if model == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(model); err != nil {
		return result.Wrap(result.CodeProtocolViolation, clientSource, err)
	}

	return nil
}

// ParseURL is a small convenience wrapper so callers building requests
// from user input get a *result.Error instead of a bare error.
func ParseURL(raw string) (*url.URL, *result.Error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, result.Wrap(result.CodeInvalidArgument, clientSource, err)
	}

	return u, nil
}
