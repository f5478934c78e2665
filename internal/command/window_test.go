package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestWindowRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := Window{
			Side:             Side(rapid.SampledFrom([]byte{byte(SideFront), byte(SideBack)}).Draw(t, "side")),
			ResolutionX:      uint16(rapid.IntRange(50, 1200).Draw(t, "rx")),
			ResolutionY:      uint16(rapid.IntRange(50, 1200).Draw(t, "ry")),
			UpperLeftX:       uint32(rapid.IntRange(0, 20000).Draw(t, "ulx")),
			UpperLeftY:       uint32(rapid.IntRange(0, 20000).Draw(t, "uly")),
			Width:            uint32(rapid.IntRange(1, 20000).Draw(t, "w")),
			Length:           uint32(rapid.IntRange(1, 20000).Draw(t, "l")),
			Brightness:       uint8(rapid.IntRange(0, 255).Draw(t, "b")),
			Threshold:        uint8(rapid.IntRange(0, 255).Draw(t, "th")),
			Contrast:         uint8(rapid.IntRange(0, 255).Draw(t, "c")),
			ImageComposition: uint8(rapid.IntRange(0, 4).Draw(t, "ic")),
			BitsPerPixel:     uint8(rapid.SampledFrom([]int{1, 8, 24, 48}).Draw(t, "bpp")),
			BitOrdering:      BitOrdering(rapid.IntRange(0, 1).Draw(t, "bo")),
			ImageEmphasis:    uint8(rapid.IntRange(0, 5).Draw(t, "ie")),
			GammaCorrection:  uint8(rapid.IntRange(0, 10).Draw(t, "gc")),
			LampMode:         uint8(rapid.IntRange(0, 15).Draw(t, "lamp")),
			HasPaperSize:     rapid.Bool().Draw(t, "haspaper"),
			LengthControl:    rapid.Bool().Draw(t, "lc"),
			Landscape:        rapid.Bool().Draw(t, "landscape"),
			PaperSizeCode:    uint8(rapid.IntRange(0, 15).Draw(t, "papercode")),
			DocumentWidth:    uint32(rapid.IntRange(0, 20000).Draw(t, "dw")),
			DocumentLength:   uint32(rapid.IntRange(0, 20000).Draw(t, "dl")),
			DoubleFeedSens:   rapid.Bool().Draw(t, "dfs"),
			FitToPage:        rapid.Bool().Draw(t, "ftp"),
			ContinuousScan:   rapid.Bool().Draw(t, "cs"),
			ManualFeedHold:   rapid.Bool().Draw(t, "mfh"),
			StopMode:         uint8(rapid.IntRange(0, 2).Draw(t, "sm")),
		}

		got := DecodeWindow(w.Encode())
		assert.Equal(t, w, got)
	})
}

// TestWindowEncodeOffsets pins the wire layout against the real device's
// struct window (original_source/.../kvs20xx.h), relative to
// window_identifier at buf[0]: a regression here means a byte moved off
// the real offset, not just an internal round-trip mismatch.
func TestWindowEncodeOffsets(t *testing.T) {
	w := Window{
		Side:             SideBack,
		ResolutionX:      600,
		ResolutionY:      1200,
		UpperLeftX:       0x01020304,
		UpperLeftY:       0x05060708,
		Width:            0x090a0b0c,
		Length:           0x0d0e0f10,
		Brightness:       10,
		Threshold:        20,
		Contrast:         30,
		ImageComposition: 2,
		BitsPerPixel:     24,
		BitOrdering:      BitOrderingRightToLeft,
		ImageEmphasis:    3,
		GammaCorrection:  4,
		LampMode:         5,
		HasPaperSize:     true,
		LengthControl:    true,
		Landscape:        true,
		PaperSizeCode:    7,
		DocumentWidth:    0x11121314,
		DocumentLength:   0x15161718,
		DoubleFeedSens:   true,
		FitToPage:        true,
		ContinuousScan:   true,
		ManualFeedHold:   true,
		StopMode:         1,
	}
	buf := w.Encode()

	assert.Equal(t, byte(SideBack), buf[0])
	assert.Equal(t, []byte{0x02, 0x58}, buf[2:4])                 // x_resolution
	assert.Equal(t, []byte{0x04, 0xb0}, buf[4:6])                 // y_resolution
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, buf[6:10])    // upper_left_x
	assert.Equal(t, []byte{0x05, 0x06, 0x07, 0x08}, buf[10:14])   // upper_left_y
	assert.Equal(t, []byte{0x09, 0x0a, 0x0b, 0x0c}, buf[14:18])   // width
	assert.Equal(t, []byte{0x0d, 0x0e, 0x0f, 0x10}, buf[18:22])   // length
	assert.Equal(t, byte(10), buf[22])                            // brightness
	assert.Equal(t, byte(20), buf[23])                            // threshold
	assert.Equal(t, byte(30), buf[24])                            // contrast
	assert.Equal(t, byte(2), buf[25])                             // image_composition
	assert.Equal(t, byte(24), buf[26])                            // bit_per_pixel
	assert.Equal(t, []byte{0x00, 0x00}, buf[27:29])               // halftone_pattern: unsupported
	assert.Equal(t, byte(0), buf[29])                             // reserved3
	assert.Equal(t, []byte{0x00, 0x01}, buf[30:32])               // bit_ordering
	assert.Equal(t, []byte{0x00, 0x00}, buf[32:34])               // compression_type/argument
	assert.Equal(t, make([]byte, 6), buf[34:40])                  // reserved4
	assert.Equal(t, byte(0), buf[40])                             // vendor_unique_identifier
	assert.Equal(t, byte(0), buf[41])                             // nobuf_fstspeed_dfstop
	assert.Equal(t, byte(0), buf[42])                             // mirror_image
	assert.Equal(t, byte(3), buf[43])                             // image_emphasis
	assert.Equal(t, byte(4), buf[44])                              // gamma_correction
	assert.Equal(t, byte(5<<4|2), buf[45])                        // mcd_lamp_dfeed_sens
	assert.Equal(t, byte(0), buf[46])                             // reserved5
	assert.Equal(t, byte(1<<7|1<<6|1<<4|7), buf[47])              // document_size
	assert.Equal(t, []byte{0x11, 0x12, 0x13, 0x14}, buf[48:52])   // document_width
	assert.Equal(t, []byte{0x15, 0x16, 0x17, 0x18}, buf[52:56])   // document_length
	assert.Equal(t, byte(1<<4|1<<2), buf[56])                     // ahead_deskew_...
	assert.Equal(t, byte(0xff), buf[57])                          // continuous_scanning_pages
	assert.Equal(t, byte(0), buf[58])                             // automatic_threshold_mode
	assert.Equal(t, byte(0), buf[59])                             // automatic_separation_mode
	assert.Equal(t, byte(0), buf[60])                             // standard_white_level_mode
	assert.Equal(t, byte(0), buf[61])                             // b_wnr_noise_reduction
	assert.Equal(t, byte(2<<6), buf[62])                          // mfeed_toppos_...
	assert.Equal(t, byte(1), buf[63])                             // stop_mode
}

func TestWindowEncodeSize(t *testing.T) {
	var w Window
	buf := w.Encode()
	assert.Equal(t, WindowSize, len(buf))
}

func TestBulkHeaderRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := BulkHeader{
			Length:        uint32(rapid.IntRange(0, 1<<30).Draw(t, "len")),
			Type:          BlockType(rapid.SampledFrom([]uint16{uint16(BlockCommand), uint16(BlockData), uint16(BlockResponse)}).Draw(t, "type")),
			Code:          uint16(rapid.IntRange(0, 0xffff).Draw(t, "code")),
			TransactionID: uint32(rapid.IntRange(0, 1<<30).Draw(t, "xact")),
		}
		assert.Equal(t, h, DecodeBulkHeader(h.Encode()))
	})
}

func TestDecodeBufferStatusOffset(t *testing.T) {
	buf := make([]byte, 16)
	buf[12], buf[13], buf[14], buf[15] = 0x00, 0x00, 0x01, 0x00
	assert.Equal(t, uint32(256), DecodeBufferStatus(buf))
}

func TestDecodeAdjustDataOffset(t *testing.T) {
	buf := make([]byte, GetAdjustDataLen)
	buf[0], buf[1] = 0x00, 0x10
	assert.Equal(t, uint16(16), DecodeAdjustData(buf))
}
