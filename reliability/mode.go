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

package reliability

// Mode selects the delivery guarantee an Engine applies to sent
// datagrams.
type Mode uint8

const (
	// ModeUnreliable sends plain UDP with no tracking: lowest latency,
	// no guarantees.
	ModeUnreliable Mode = iota
	// ModeReliableOrdered guarantees delivery and in-order arrival,
	// buffering out-of-order frames until the gap is filled.
	ModeReliableOrdered
	// ModeReliableUnordered guarantees delivery but delivers frames as
	// they arrive, with no reordering.
	ModeReliableUnordered
	// ModeSequenced delivers the newest frame for a stream and drops
	// anything older, with no retransmission.
	ModeSequenced
)

func (m Mode) String() string {
	switch m {
	case ModeUnreliable:
		return "unreliable"
	case ModeReliableOrdered:
		return "reliable_ordered"
	case ModeReliableUnordered:
		return "reliable_unordered"
	case ModeSequenced:
		return "sequenced"
	}

	return "unknown"
}
