package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoofyRGBHonoursChannelLetterOverOrder(t *testing.T) {
	r := NewRing(9, 3, 9)
	layout := NewGoofyRGBLayout(3)

	// Sub-lines arrive out of R,G,B order: B, then R, then G.
	layout.Feed(r, []byte{0, 'B', 3, 30, 250})
	layout.Feed(r, []byte{0, 'R', 1, 2, 3})
	layout.Feed(r, []byte{0, 'G', 10, 20, 200})

	require.Equal(t, 9, r.CompleteCount())
	out := make([]byte, 9)
	r.Drain(out)
	assert.Equal(t, []byte{1, 10, 3, 2, 20, 30, 3, 200, 250}, out)
}

func TestGoofyRGBHeaderSplitAcrossFeeds(t *testing.T) {
	r := NewRing(9, 3, 9)
	layout := NewGoofyRGBLayout(3)
	layout.Feed(r, []byte{0}) // header byte 1 only
	layout.Feed(r, []byte{'R', 1, 2, 3})
	assert.Equal(t, 0, r.CompleteCount()) // R complete, G/B still pending
	assert.Equal(t, 3, r.extras[0])
}

func TestSeq2R2G2BUnpacksTwoPixels(t *testing.T) {
	r := NewRing(6, 2, 6)
	layout := NewSeq2R2G2BLayout()
	// group: r1=1 r2=2 g1=10 g2=20 b1=100 b2=200
	layout.Feed(r, []byte{1, 2, 10, 20, 100, 200})
	require.Equal(t, 6, r.CompleteCount())
	out := make([]byte, 6)
	r.Drain(out)
	assert.Equal(t, []byte{1, 10, 100, 2, 20, 200}, out)
}

func TestSeq2R2G2BGroupSplitAcrossFeeds(t *testing.T) {
	r := NewRing(6, 2, 6)
	layout := NewSeq2R2G2BLayout()
	layout.Feed(r, []byte{1, 2, 10})
	assert.Equal(t, 0, r.CompleteCount())
	layout.Feed(r, []byte{20, 100, 200})
	assert.Equal(t, 6, r.CompleteCount())
}

func TestScaleChannelIdentityWhenSameSize(t *testing.T) {
	src := []byte{10, 20, 30, 40}
	out := ScaleChannel(src, 4)
	assert.Equal(t, src, out)
}

func TestScaleChannelUpsampleInterpolates(t *testing.T) {
	src := []byte{0, 255}
	out := ScaleChannel(src, 4)
	require.Len(t, out, 4)
	// Monotonic non-decreasing across an up-scaled ramp.
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i], out[i-1])
	}
	assert.Equal(t, byte(0), out[0])
}

func TestScaleLineartThresholdsAtHalf(t *testing.T) {
	// 4 bits all set -> 0b11110000, scale down to 2 bits: each output bit
	// averages two fully-set source bits, which must threshold to 1.
	src := []byte{0b11110000}
	out := ScaleLineartBits(src, 4, 2)
	require.Len(t, out, 1)
	assert.Equal(t, byte(0b11000000), out[0])
}
