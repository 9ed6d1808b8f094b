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

// Result is a tagged union of a success value and a structured Error, for
// returning "a value, or why there isn't one" where the zero value of T
// would otherwise be ambiguous with failure. The other packages of this
// module do not return Result; pmtud, for example, reports a probe size
// as an (int, bool) pair.
type Result[T any] struct {
	value T
	err   *Error
	ok    bool
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true}
}

// Err wraps a failure.
func Err[T any](err *Error) Result[T] {
	return Result[T]{err: err}
}

// IsOk reports whether the Result carries a value.
func (r Result[T]) IsOk() bool {
	return r.ok
}

// Value returns the wrapped value and true, or the zero value and false.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.ok
}

// Error returns the wrapped error, or nil if the Result is Ok.
func (r Result[T]) Error() *Error {
	return r.err
}

// Unwrap returns the value if Ok, and panics otherwise. Reserved for call
// sites that have already checked IsOk or that run under a recover guard;
// prefer Value in all other code.
func (r Result[T]) Unwrap() T {
	if !r.ok {
		panic(r.err)
	}

	return r.value
}
