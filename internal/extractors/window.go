package extractors

import "math/bits"

// ResponseWindow keeps the most recent response times up to a fixed capacity.
// The running sum is held in 128 bits so readings anywhere in the int64 range
// cannot wrap it.
type ResponseWindow struct {
	samples []int64
	next    int
	size    int
	sumHi   uint64
	sumLo   uint64
}

// NewResponseWindow creates a window holding capacity samples; capacity must be positive.
func NewResponseWindow(capacity int) *ResponseWindow {
	if capacity <= 0 {
		capacity = 1
	}
	return &ResponseWindow{samples: make([]int64, capacity)}
}

// Push records a sample, evicting the oldest once full. Negative samples count as zero.
func (w *ResponseWindow) Push(ms int64) {
	if ms < 0 {
		ms = 0
	}
	var carry uint64
	if w.size == len(w.samples) {
		w.sumLo, carry = bits.Sub64(w.sumLo, uint64(w.samples[w.next]), 0)
		w.sumHi -= carry
	} else {
		w.size++
	}
	w.samples[w.next] = ms
	w.sumLo, carry = bits.Add64(w.sumLo, uint64(ms), 0)
	w.sumHi += carry
	w.next = (w.next + 1) % len(w.samples)
}

// Len returns the number of samples held.
func (w *ResponseWindow) Len() int {
	return w.size
}

// Full reports whether the window reached capacity.
func (w *ResponseWindow) Full() bool {
	return w.size == len(w.samples)
}

// Mean returns the integer-truncated mean of the held samples, zero when empty.
func (w *ResponseWindow) Mean() int64 {
	if w.size == 0 {
		return 0
	}
	// Each sample is below 2^63, so sumHi < size and the quotient fits in int64.
	q, _ := bits.Div64(w.sumHi, w.sumLo, uint64(w.size))
	return int64(q)
}
