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

package result

import (
	"fmt"
)

// Error is the structured error carried by every failing Result. Source
// names the component that raised it (e.g. "quic.Connection",
// "reliability.Engine") so a caller juggling several subsystems can tell
// them apart without parsing the message.
type Error struct {
	Code    Code
	Message string
	Source  string
	Details map[string]any
	cause   error
}

// New builds an Error with no message beyond the code's own description.
func New(code Code, source string) *Error {
	return &Error{Code: code, Source: source}
}

// Newf builds an Error with a formatted message.
func Newf(code Code, source, format string, args ...any) *Error {
	return &Error{Code: code, Source: source, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches an existing error as the cause of a new structured Error.
// If err is already *Error, Wrap returns it unchanged (errors are not
// double-wrapped as they cross component boundaries).
func Wrap(code Code, source string, err error) *Error {
	if err == nil {
		return nil
	}

	if e, ok := err.(*Error); ok {
		return e
	}

	return &Error{Code: code, Source: source, Message: err.Error(), cause: err}
}

// WithDetail returns e with an additional key/value detail attached. e is
// mutated in place and returned for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e == nil {
		return nil
	}

	if e.Details == nil {
		e.Details = make(map[string]any, 1)
	}

	e.Details[key] = value

	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Source, e.Code)
	}

	return fmt.Sprintf("%s: %s: %s", e.Source, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// Is reports whether target is an *Error with the same Code, so callers
// can do errors.Is(err, result.New(result.CodeTimeout, "")) style checks
// without caring about Source or Message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}

	return e.Code == t.Code
}
