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
	"encoding/hex"
	"sync"
)

// CIDStore maps connection IDs (as parsed by ParseHeader) to the
// Connection instance that owns them, so an inbound packet on a shared
// UDP socket can be demultiplexed to the right connection before any
// decryption happens.
type CIDStore struct {
	mu   sync.RWMutex
	byID map[string]*Connection
}

// NewCIDStore builds an empty store.
func NewCIDStore() *CIDStore {
	return &CIDStore{byID: make(map[string]*Connection)}
}

func cidKey(cid []byte) string {
	return hex.EncodeToString(cid)
}

// Register associates cid with conn. A connection typically registers
// every connection ID it has been issued (initial DCID plus any issued
// via NEW_CONNECTION_ID).
func (s *CIDStore) Register(cid []byte, conn *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[cidKey(cid)] = conn
}

// Lookup returns the connection owning cid, if any.
func (s *CIDStore) Lookup(cid []byte) (*Connection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byID[cidKey(cid)]

	return c, ok
}

// Remove drops every connection ID in cids from the store.
// Called once a connection is fully closed.
func (s *CIDStore) Remove(cids [][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cid := range cids {
		delete(s.byID, cidKey(cid))
	}
}

// Len reports how many connection IDs are currently tracked.
func (s *CIDStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byID)
}
