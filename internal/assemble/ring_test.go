package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// Property 4 (spec.md §8): for FLAT layout, writing N bytes then draining N
// yields the original bytes in order.
func TestRingRoundTripFlat(t *testing.T) {
	r := NewRing(16, 16, 16)
	data := []byte("hello, scanner!!")
	r.PackFlat(data)
	out := make([]byte, len(data))
	n := r.Drain(out)
	require.Equal(t, len(data), n)
	assert.Equal(t, data, out)
}

func TestRingRoundTripFlatAcrossWrap(t *testing.T) {
	r := NewRing(8, 8, 9) // rounds to a multiple of 3 >= 9 -> 9
	first := []byte("abcdef")
	r.PackFlat(first)
	drained := make([]byte, 4)
	r.Drain(drained)
	assert.Equal(t, []byte("abcd"), drained)

	second := []byte("ghijkl")
	r.PackFlat(second)
	rest := make([]byte, 8)
	n := r.Drain(rest)
	require.Equal(t, 8, n)
	assert.Equal(t, []byte("efghijkl"), rest)
}

func TestRingSeqRGBTripletOrder(t *testing.T) {
	r := NewRing(9, 3, 9)
	layout := NewSeqRGBLayout(3)
	layout.Feed(r, []byte{1, 2, 3})    // R sub-line
	layout.Feed(r, []byte{10, 20, 30}) // G sub-line
	layout.Feed(r, []byte{100, 200, 250})
	require.Equal(t, 9, r.CompleteCount())
	out := make([]byte, 9)
	r.Drain(out)
	assert.Equal(t, []byte{1, 10, 100, 2, 20, 200, 3, 30, 250}, out)
}

func TestRingSeqRGBPartialSublineHoldsBack(t *testing.T) {
	r := NewRing(9, 3, 9)
	layout := NewSeqRGBLayout(3)
	layout.Feed(r, []byte{1, 2, 3})
	layout.Feed(r, []byte{10, 20}) // G sub-line split mid-way
	assert.Equal(t, 0, r.CompleteCount())
	layout.Feed(r, []byte{30})
	layout.Feed(r, []byte{100, 200, 250})
	assert.Equal(t, 9, r.CompleteCount())
}

// Property 3 (spec.md §8): after any sequence of pack_* operations,
// complete_count + 3*max(extras) <= size and head_complete in [0, size).
func TestRingInvariantsHoldUnderRandomSeqRGBFeeds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pixelsPerLine := rapid.IntRange(1, 20).Draw(t, "pixels")
		r := NewRing(pixelsPerLine*3, pixelsPerLine, 3)
		layout := NewSeqRGBLayout(pixelsPerLine)

		nFeeds := rapid.IntRange(0, 40).Draw(t, "nFeeds")
		for i := 0; i < nFeeds; i++ {
			chunkLen := rapid.IntRange(0, 7).Draw(t, "chunkLen")
			chunk := make([]byte, chunkLen)
			for j := range chunk {
				chunk[j] = byte(rapid.IntRange(0, 255).Draw(t, "b"))
			}
			layout.Feed(r, chunk)
			require.NoError(t, r.checkInvariants())

			if rapid.Bool().Draw(t, "drainSome") {
				drainLen := rapid.IntRange(0, r.CompleteCount()+2).Draw(t, "drainLen")
				buf := make([]byte, drainLen)
				r.Drain(buf)
				require.NoError(t, r.checkInvariants())
			}
		}
	})
}

func TestRingGrowPreservesCompleteBytes(t *testing.T) {
	r := NewRing(3, 1, 3)
	layout := NewSeqRGBLayout(1)
	for i := 0; i < 20; i++ {
		layout.Feed(r, []byte{byte(i), byte(i + 1), byte(i + 2)})
	}
	require.NoError(t, r.checkInvariants())
	out := make([]byte, r.CompleteCount())
	r.Drain(out)
	for i := 0; i < 20; i++ {
		assert.Equal(t, byte(i), out[i*3])
		assert.Equal(t, byte(i+1), out[i*3+1])
		assert.Equal(t, byte(i+2), out[i*3+2])
	}
}
