package sense

import (
	"testing"

	"github.com/corescan/sane/internal/sanecore"
	"github.com/stretchr/testify/assert"
)

func TestDecodeKnownTriples(t *testing.T) {
	cases := []struct {
		name string
		f    Frame
		want sanecore.Kind
	}{
		{"good", Frame{0, 0, 0}, sanecore.KindNone},
		{"busy", Frame{2, 0, 0}, sanecore.KindDeviceBusy},
		{"busy-warming", Frame{2, 0x04, 0x01}, sanecore.KindDeviceBusy},
		{"cover-adf", Frame{2, 0x04, 0x80}, sanecore.KindCoverOpen},
		{"cancelled", Frame{2, 0x80, 0x02}, sanecore.KindCancelled},
		{"no-docs", Frame{3, 0x3a, 0}, sanecore.KindNoDocs},
		{"jam-1", Frame{3, 0x80, 0x01}, sanecore.KindJammed},
		{"jam-9", Frame{3, 0x80, 0x09}, sanecore.KindJammed},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Decode(c.f))
		})
	}
}

func TestDecodeUnknownTripleIsIOError(t *testing.T) {
	assert.Equal(t, sanecore.KindIOError, Decode(Frame{3, 0x11, 0x22}))
}

func TestFrameFromBufferOffsets(t *testing.T) {
	buf := make([]byte, 18)
	buf[2] = 0x03
	buf[12] = 0x80
	buf[13] = 0x04
	f := FrameFromBuffer(buf)
	assert.Equal(t, Frame{0x03, 0x80, 0x04}, f)
	assert.True(t, Decode(f) == sanecore.KindJammed)
}

func TestIsEndOfMedium(t *testing.T) {
	assert.True(t, IsEndOfMedium(0x40))
	assert.False(t, IsEndOfMedium(0x03))
	// Masking the flag out must not disturb the sense key used for lookup.
	f := FrameFromBuffer([]byte{0, 0, 0x40 | 0x03, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x3a, 0})
	assert.Equal(t, byte(0x03), f.Key)
}

// TestFrameFromBufferMasksHighNibble pins the real device's sense_buffer[2]
// & 0xf masking (kvs20xx_cmd.c): bits 4-7 (e.g. INCORRECT_LENGTH_INDICATOR,
// 0x20) are never part of the key, not just bit 6 (END_OF_MEDIUM).
func TestFrameFromBufferMasksHighNibble(t *testing.T) {
	buf := make([]byte, 18)
	buf[2] = 0x23 // key 3 with the INCORRECT_LENGTH_INDICATOR bit set
	buf[12] = 0x3a
	f := FrameFromBuffer(buf)
	assert.Equal(t, byte(0x03), f.Key)
	assert.Equal(t, sanecore.KindNoDocs, Decode(f))
}
