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

// Package log is the ambient logging seam every component in this module
// logs through. A nil *logrus.Entry is valid and means "discard" - callers
// are never forced to construct a logger just to satisfy a constructor.
package log

import (
	"github.com/sirupsen/logrus"

	"github.com/kcenon/network-system-sub000/logger/level"
)

// Entry is the logging handle components accept. It is always non-nil;
// use Resolve to build one from a possibly-nil *logrus.Entry.
type Entry struct {
	e *logrus.Entry
}

// Resolve wraps e, or a discard logger if e is nil.
func Resolve(e *logrus.Entry) *Entry {
	if e == nil {
		l := logrus.New()
		l.SetOutput(nilWriter{})
		e = logrus.NewEntry(l)
	}

	return &Entry{e: e}
}

// With returns a derived Entry carrying an additional structured field.
func (l *Entry) With(key string, value any) *Entry {
	if l == nil {
		return Resolve(nil).With(key, value)
	}

	return &Entry{e: l.e.WithField(key, value)}
}

func (l *Entry) log(lvl level.Level, args ...any) {
	if l == nil {
		return
	}

	l.e.Log(lvl.Logrus(), args...)
}

func (l *Entry) Debug(args ...any) { l.log(level.DebugLevel, args...) }
func (l *Entry) Info(args ...any)  { l.log(level.InfoLevel, args...) }
func (l *Entry) Warn(args ...any)  { l.log(level.WarnLevel, args...) }
func (l *Entry) Error(args ...any) { l.log(level.ErrorLevel, args...) }

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }
