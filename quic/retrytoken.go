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

package quic

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/kcenon/network-system-sub000/result"
)

const retryTokenSource = "quic.RetryTokenValidator"

// retryTokenRotationInterval matches the PMTUD confirmation cadence for
// symmetry between the module's two periodic-rotation policies.
const retryTokenRotationInterval = 10 * time.Minute

// retryTokenValidity is how long a token remains acceptable after issue,
// bounding the window an attacker can replay a captured Initial.
const retryTokenValidity = 30 * time.Second

// RetryTokenValidator issues and validates address-validation tokens used
// to mitigate amplification/DoS on the Initial packet, per RFC 9000
// §8.1.2. The HMAC key rotates when RotateIfDue is called after
// retryTokenRotationInterval has passed; a token signed under the
// previous key is still accepted for one rotation so tokens issued just
// before a rotation do not fail validation.
type RetryTokenValidator struct {
	mu         sync.RWMutex
	currentKey [32]byte
	prevKey    [32]byte
	hasPrev    bool
	lastRotate time.Time
}

// NewRetryTokenValidator builds a validator with a freshly generated key.
func NewRetryTokenValidator() (*RetryTokenValidator, *result.Error) {
	v := &RetryTokenValidator{lastRotate: time.Now()}

	if _, err := rand.Read(v.currentKey[:]); err != nil {
		return nil, result.Wrap(result.CodeInternal, retryTokenSource, err)
	}

	return v, nil
}

// RotateIfDue rotates the HMAC key if retryTokenRotationInterval has
// elapsed since the last rotation. Nothing in this package calls it;
// the key changes only when a caller does.
func (v *RetryTokenValidator) RotateIfDue(now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if now.Sub(v.lastRotate) < retryTokenRotationInterval {
		return
	}

	v.prevKey = v.currentKey
	v.hasPrev = true
	v.lastRotate = now

	_, _ = rand.Read(v.currentKey[:])
}

// Issue builds a retry token binding clientAddr and the original
// destination connection ID to the current time, authenticated with the
// current HMAC key.
func (v *RetryTokenValidator) Issue(clientAddr net.Addr, originalDCID []byte) []byte {
	v.mu.RLock()
	key := v.currentKey
	v.mu.RUnlock()

	return sealToken(key, clientAddr, originalDCID, time.Now())
}

// Validate reports whether token is a well-formed, unexpired token for
// clientAddr, and if so returns the original DCID it was issued for.
func (v *RetryTokenValidator) Validate(token []byte, clientAddr net.Addr) ([]byte, bool) {
	v.mu.RLock()
	current := v.currentKey
	prev := v.prevKey
	hasPrev := v.hasPrev
	v.mu.RUnlock()

	if dcid, ok := openToken(current, token, clientAddr); ok {
		return dcid, true
	}

	if hasPrev {
		if dcid, ok := openToken(prev, token, clientAddr); ok {
			return dcid, true
		}
	}

	return nil, false
}

// token wire layout: 8-byte unix seconds | 1-byte dcid length | dcid | HMAC-SHA256(32 bytes)
func sealToken(key [32]byte, clientAddr net.Addr, originalDCID []byte, issued time.Time) []byte {
	body := make([]byte, 9+len(originalDCID))
	binary.BigEndian.PutUint64(body[0:8], uint64(issued.Unix()))
	body[8] = byte(len(originalDCID))
	copy(body[9:], originalDCID)

	mac := hmac.New(sha256.New, key[:])
	mac.Write(body)
	mac.Write([]byte(clientAddr.String()))
	sum := mac.Sum(nil)

	return append(body, sum...)
}

func openToken(key [32]byte, token []byte, clientAddr net.Addr) ([]byte, bool) {
	if len(token) < 9+sha256.Size {
		return nil, false
	}

	dcidLen := int(token[8])
	if 9+dcidLen+sha256.Size != len(token) {
		return nil, false
	}

	body := token[:9+dcidLen]
	gotMAC := token[9+dcidLen:]

	mac := hmac.New(sha256.New, key[:])
	mac.Write(body)
	mac.Write([]byte(clientAddr.String()))
	wantMAC := mac.Sum(nil)

	if subtle.ConstantTimeCompare(gotMAC, wantMAC) != 1 {
		return nil, false
	}

	issuedUnix := binary.BigEndian.Uint64(body[0:8])
	issued := time.Unix(int64(issuedUnix), 0)

	if time.Since(issued) > retryTokenValidity {
		return nil, false
	}

	dcid := append([]byte(nil), body[9:9+dcidLen]...)

	return dcid, true
}
