// Package assemble implements spec.md §3 RingBuffer and §4.E LineAssembler:
// the byte ring that line layouts pack into and Session.Read drains from,
// plus the four wire-layout unpackers and expanded-resolution scaling.
package assemble

import "fmt"

// Ring is the RingBuffer of spec.md §3: a growable byte buffer with three
// per-channel write cursors (tail_r/g/b, stepping by 3 so that position
// k*3+channel holds channel "channel" of pixel k) and one read cursor
// (head_complete). complete_count is the number of bytes available to a
// reader; extras[c] counts bytes written to channel c beyond complete_count
// (a partial triplet still waiting on its sibling channels).
//
// Grown only by reallocation (spec.md §9: "keep the semantics... but
// implement grow by reallocation with explicit cursor fix-ups", replacing
// the source's memmove-on-grow).
type Ring struct {
	bytesPerLine  int
	pixelsPerLine int

	buf  []byte
	size int

	tail          [3]int // tail_r, tail_g, tail_b: next write offset per channel
	headComplete  int
	extras        [3]int // bytes written to channel c past completeCount
	completeCount int
}

// NewRing allocates a Ring sized to hold at least minSize bytes (rounded up
// to a whole number of pixel triplets so tail cursors stay 3-aligned).
func NewRing(bytesPerLine, pixelsPerLine, minSize int) *Ring {
	if minSize < bytesPerLine {
		minSize = bytesPerLine
	}
	size := roundUpTriplet(minSize)
	return &Ring{
		bytesPerLine:  bytesPerLine,
		pixelsPerLine: pixelsPerLine,
		buf:           make([]byte, size),
		size:          size,
		tail:          [3]int{0, 1, 2},
	}
}

func roundUpTriplet(n int) int {
	if n%3 != 0 {
		n += 3 - n%3
	}
	return n
}

// Size reports the current ring capacity in bytes.
func (r *Ring) Size() int { return r.size }

// CompleteCount reports how many bytes are ready for a reader.
func (r *Ring) CompleteCount() int { return r.completeCount }

// HeadComplete reports the current read cursor.
func (r *Ring) HeadComplete() int { return r.headComplete }

func (r *Ring) maxExtra() int {
	m := r.extras[0]
	if r.extras[1] > m {
		m = r.extras[1]
	}
	if r.extras[2] > m {
		m = r.extras[2]
	}
	return m
}

// checkInvariants returns an error describing the first violated §3
// invariant, or nil (spec.md §8 property 3). The Ring does not call it
// itself; ring_test.go calls it after pack/drain/grow operations.
func (r *Ring) checkInvariants() error {
	if r.completeCount+3*r.maxExtra() > r.size {
		return fmt.Errorf("assemble: ring invariant violated: complete=%d extras=%v size=%d", r.completeCount, r.extras, r.size)
	}
	if r.headComplete < 0 || r.headComplete >= r.size {
		return fmt.Errorf("assemble: head_complete %d out of [0,%d)", r.headComplete, r.size)
	}
	return nil
}

// ensureRoom grows the ring before a write of n more bytes to channel ch
// would push complete_count+3*max(extras) past size (spec.md §4.E ring
// growth policy): "enlarge... by max(needed - available, size/2)... fix up
// tail_{r,g,b} and head_complete accordingly".
func (r *Ring) ensureRoom(ch, n int) {
	projected := r.extras[ch] + n
	m := r.maxExtra()
	if projected > m {
		m = projected
	}
	needed := r.completeCount + 3*m
	if needed <= r.size {
		return
	}
	grow := needed - r.size
	if half := r.size / 2; half > grow {
		grow = half
	}
	r.grow(grow)
}

// grow reallocates the buffer larger by extra bytes (rounded to a triplet
// boundary), copying live data out in logical order and resetting every
// cursor to the equivalent logical position in the new buffer — the
// "reallocation with explicit cursor fix-ups" §9 calls for in place of
// memmove-on-grow.
func (r *Ring) grow(extra int) {
	newSize := roundUpTriplet(r.size + extra)
	nb := make([]byte, newSize)

	// Copy the complete region starting at head_complete, unwrapped.
	for i := 0; i < r.completeCount; i++ {
		nb[i] = r.buf[(r.headComplete+i)%r.size]
	}

	// Copy each channel's in-flight (incomplete-triplet) bytes, which live
	// past complete_count at offsets complete_count+3*j+ch for j in
	// [0, extras[ch]).
	for ch := 0; ch < 3; ch++ {
		for j := 0; j < r.extras[ch]; j++ {
			srcOff := (r.completeCount + 3*j + ch) % r.size
			dstOff := r.completeCount + 3*j + ch
			nb[dstOff] = r.buf[(r.headComplete+srcOff)%r.size]
		}
	}

	r.buf = nb
	r.size = newSize
	r.headComplete = 0
	for ch := 0; ch < 3; ch++ {
		r.tail[ch] = (r.completeCount + r.extras[ch]*3 + ch) % r.size
	}
}

// packTriplet writes v to channel ch at its current tail cursor, bumping
// extras[ch]; when all three channels' extras agree (every channel has
// produced the next pixel) the common prefix is promoted into
// complete_count. Used by the SEQ_RGB/GOOFY_RGB/SEQ_2R2G2B layouts; FLAT
// writes contiguous runs directly via PackFlat instead.
func (r *Ring) packTriplet(ch int, v byte) {
	r.ensureRoom(ch, 1)
	r.buf[r.tail[ch]] = v
	r.tail[ch] = (r.tail[ch] + 3) % r.size
	r.extras[ch]++
	r.promote()
}

// promote advances complete_count by every fully-triplet-complete pixel now
// available across all three channels.
func (r *Ring) promote() {
	m := r.extras[0]
	if r.extras[1] < m {
		m = r.extras[1]
	}
	if r.extras[2] < m {
		m = r.extras[2]
	}
	if m == 0 {
		return
	}
	r.completeCount += 3 * m
	for ch := 0; ch < 3; ch++ {
		r.extras[ch] -= m
	}
}

// PackFlat appends data as a contiguous run (FLAT layout: bytes already
// arrive in frame-format order), wrapping at size and growing first if the
// run would not fit.
func (r *Ring) PackFlat(data []byte) {
	if len(data) == 0 {
		return
	}
	r.ensureRoomFlat(len(data))
	start := (r.headComplete + r.completeCount) % r.size
	for i, b := range data {
		r.buf[(start+i)%r.size] = b
	}
	r.completeCount += len(data)
}

func (r *Ring) ensureRoomFlat(n int) {
	needed := r.completeCount + n
	if needed <= r.size {
		return
	}
	grow := needed - r.size
	if half := r.size / 2; half > grow {
		grow = half
	}
	r.grow(grow)
}

// Drain copies up to len(dst) ready bytes out, advancing head_complete, and
// returns the number of bytes copied.
func (r *Ring) Drain(dst []byte) int {
	n := len(dst)
	if n > r.completeCount {
		n = r.completeCount
	}
	for i := 0; i < n; i++ {
		dst[i] = r.buf[(r.headComplete+i)%r.size]
	}
	r.headComplete = (r.headComplete + n) % r.size
	r.completeCount -= n
	return n
}
