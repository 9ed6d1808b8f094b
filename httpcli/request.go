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

package httpcli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/kcenon/network-system-sub000/result"
)

const requestSource = "httpcli.Request"

// Request is a builder for a single outgoing HTTP/1.1 call: set an
// endpoint and headers, attach a body, then Do or DoParse it. A Request
// is reusable across calls via Clone, mirroring a typical REST client's
// per-endpoint helper.
type Request interface {
	// Clone returns an independent copy of this Request, so a shared
	// base (same client, same auth header) can be specialized per call
	// without races.
	Clone() Request

	// SetClient overrides the *http.Client used to perform the request.
	SetClient(cli *http.Client) Request

	// Endpoint sets the full base URL (scheme+host+path) for the
	// request.
	Endpoint(raw string) Request

	// GetURL returns the request's current URL, including any path
	// segments and query parameters added so far.
	GetURL() *url.URL

	// AddPath appends one or more path segments to the endpoint.
	AddPath(segment ...string) Request

	// AddParam adds a query string parameter.
	AddParam(key, value string) Request

	// AuthBearer sets an `Authorization: Bearer <token>` header.
	AuthBearer(token string) Request

	// AuthBasic sets HTTP basic auth credentials.
	AuthBasic(user, pass string) Request

	// ContentType sets the Content-Type header.
	ContentType(contentType string) Request

	// Header sets an arbitrary header, overwriting any existing value.
	Header(key, value string) Request

	// Method sets the HTTP method (defaults to GET if never called).
	Method(method string) Request

	// RequestJSON marshals body as JSON and uses it as the request body,
	// also setting Content-Type to application/json.
	RequestJSON(body any) Request

	// RequestReader uses r directly as the request body.
	RequestReader(r io.Reader) Request

	// Do performs the request and returns the raw *http.Response. The
	// caller owns closing resp.Body.
	Do(ctx context.Context) (*http.Response, *result.Error)

	// DoParse performs the request, verifies the status code is among
	// validStatus (200 if none given), and decodes a JSON response body
	// into model.
	DoParse(ctx context.Context, model any, validStatus ...int) *result.Error
}

type request struct {
	mu     sync.Mutex
	client *http.Client
	url    *url.URL
	header http.Header
	method string
	body   *bytes.Buffer
}

// New builds a Request using cli to perform calls. A nil cli uses
// NewClient(nil, 0).
func New(cli *http.Client) Request {
	if cli == nil {
		cli = NewClient(nil, 0)
	}

	return &request{
		client: cli,
		url:    &url.URL{},
		header: make(http.Header),
		method: http.MethodGet,
		body:   &bytes.Buffer{},
	}
}

func (r *request) Clone() Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := *r.url
	h := r.header.Clone()
	b := bytes.NewBuffer(append([]byte(nil), r.body.Bytes()...))

	return &request{
		client: r.client,
		url:    &u,
		header: h,
		method: r.method,
		body:   b,
	}
}

func (r *request) SetClient(cli *http.Client) Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.client = cli
	return r
}

func (r *request) Endpoint(raw string) Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, err := url.Parse(raw); err == nil {
		r.url = u
	}

	return r
}

func (r *request) GetURL() *url.URL {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := *r.url
	return &u
}

func (r *request) AddPath(segment ...string) Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range segment {
		r.url = r.url.JoinPath(s)
	}

	return r
}

func (r *request) AddParam(key, value string) Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := r.url.Query()
	q.Add(key, value)
	r.url.RawQuery = q.Encode()

	return r
}

func (r *request) AuthBearer(token string) Request {
	return r.Header("Authorization", "Bearer "+token)
}

func (r *request) AuthBasic(user, pass string) Request {
	req := &http.Request{Header: make(http.Header)}
	req.SetBasicAuth(user, pass)
	return r.Header("Authorization", req.Header.Get("Authorization"))
}

func (r *request) ContentType(contentType string) Request {
	return r.Header("Content-Type", contentType)
}

func (r *request) Header(key, value string) Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.header.Set(key, value)
	return r
}

func (r *request) Method(method string) Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.method = method
	return r
}

func (r *request) RequestJSON(body any) Request {
	r.mu.Lock()
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	encErr := enc.Encode(body)
	r.mu.Unlock()

	if encErr != nil {
		return r
	}

	r.mu.Lock()
	r.body = buf
	r.mu.Unlock()

	return r.ContentType("application/json")
}

func (r *request) RequestReader(reader io.Reader) Request {
	buf := &bytes.Buffer{}
	_, _ = io.Copy(buf, reader)

	r.mu.Lock()
	r.body = buf
	r.mu.Unlock()

	return r
}

func (r *request) Do(ctx context.Context) (*http.Response, *result.Error) {
	r.mu.Lock()
	u := r.url.String()
	method := r.method
	header := r.header.Clone()
	body := bytes.NewReader(r.body.Bytes())
	client := r.client
	r.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, result.Wrap(result.CodeInvalidArgument, requestSource, err)
	}
	req.Header = header

	resp, err := client.Do(req)
	if err != nil {
		return nil, result.Wrap(result.CodeUnavailable, requestSource, err)
	}

	return resp, nil
}

func (r *request) DoParse(ctx context.Context, model any, validStatus ...int) *result.Error {
	resp, rErr := r.Do(ctx)
	if rErr != nil {
		return rErr
	}
	defer func() { _ = resp.Body.Close() }()

	if len(validStatus) == 0 {
		validStatus = []int{http.StatusOK}
	}

	valid := false
	for _, code := range validStatus {
		if resp.StatusCode == code {
			valid = true
			break
		}
	}

	if !valid {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return result.Newf(result.CodeInternal, requestSource, "unexpected status %d", resp.StatusCode).
			WithDetail("body", string(detail))
	}

	if model == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(model); err != nil {
		return result.Wrap(result.CodeInternal, requestSource, err)
	}

	return nil
}
