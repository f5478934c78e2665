package command

import "encoding/binary"

// WindowSize is the fixed on-wire size of a SET_WINDOW descriptor
// (spec.md §4.B: "a packed `window` struct (64 bytes)"). The field order,
// sizes and reserved gaps below are grounded field-for-field on the
// Panasonic KV-S20xx `struct window` (original_source/.../kvs20xx.h),
// relative to its `window_identifier` byte; `kvs20xx_opt.c`'s
// `kvs20xx_init_window` supplies the packing formulas for the bitfield
// bytes reproduced in Encode/DecodeWindow below.
const WindowSize = 64

// BitOrdering selects pixel packing direction, set from device endianness
// (spec.md §4.B).
type BitOrdering uint16

const (
	BitOrderingLeftToRight BitOrdering = 0
	BitOrderingRightToLeft BitOrdering = 1
)

// Window is the in-memory form of the 64-byte SET_WINDOW descriptor. Bytes
// the device never interprets (halftone_pattern, compression, the vendor
// and "automatic_*"/noise-reduction bytes) are not modelled as fields:
// Encode always writes zero there, matching kvs20xx_init_window's
// "/*Does not supported */" assignments.
type Window struct {
	Side Side

	ResolutionX uint16
	ResolutionY uint16
	UpperLeftX  uint32 // in scanner base units (1/1200")
	UpperLeftY  uint32
	Width       uint32
	Length      uint32

	Brightness       uint8
	Threshold        uint8
	Contrast         uint8
	ImageComposition uint8 // LINEART/HALFTONE/GRAY/COLOR, device encoding
	BitsPerPixel     uint8

	BitOrdering BitOrdering

	ImageEmphasis   uint8
	GammaCorrection uint8
	LampMode        uint8 // lamp selection, packed into mcd_lamp_dfeed_sens's high nibble

	HasPaperSize  bool  // document_size bit 7: a named paper size, not TL/BR, is in effect
	LengthControl bool  // document_size bit 6
	Landscape     bool  // document_size bit 4
	PaperSizeCode uint8 // document_size low nibble: device paper-size enum

	DocumentWidth  uint32 // only set alongside HasPaperSize
	DocumentLength uint32

	DoubleFeedSens bool // ahead_deskew_dfeed_scan_area_fspeed_rshad bit 4
	FitToPage      bool // ahead_deskew_dfeed_scan_area_fspeed_rshad bit 2

	ContinuousScan bool // continuous_scanning_pages: 0xff when set, else 0

	ManualFeedHold bool // mfeed_toppos_btmpos_dsepa_hsepa_dcont_rstkr: 2<<6 when set

	StopMode uint8
}

// Encode packs w into a 64-byte wire frame, all multi-byte fields
// big-endian as specified by spec.md §4.B/§6.2. Offsets below are relative
// to buf[0] (window_identifier); everything not named here is a reserved
// or unsupported byte and stays zero.
func (w Window) Encode() [WindowSize]byte {
	var buf [WindowSize]byte

	buf[0] = byte(w.Side)
	binary.BigEndian.PutUint16(buf[2:4], w.ResolutionX)
	binary.BigEndian.PutUint16(buf[4:6], w.ResolutionY)
	binary.BigEndian.PutUint32(buf[6:10], w.UpperLeftX)
	binary.BigEndian.PutUint32(buf[10:14], w.UpperLeftY)
	binary.BigEndian.PutUint32(buf[14:18], w.Width)
	binary.BigEndian.PutUint32(buf[18:22], w.Length)
	buf[22] = w.Brightness
	buf[23] = w.Threshold
	buf[24] = w.Contrast
	buf[25] = w.ImageComposition
	buf[26] = w.BitsPerPixel
	// buf[27:29] halftone_pattern, buf[29] reserved3: unsupported, left zero.
	binary.BigEndian.PutUint16(buf[30:32], uint16(w.BitOrdering))
	// buf[32:34] compression_type/argument, buf[34:40] reserved4: left zero.
	// buf[40] vendor_unique_identifier, buf[41] nobuf_fstspeed_dfstop,
	// buf[42] mirror_image: left zero.
	buf[43] = w.ImageEmphasis
	buf[44] = w.GammaCorrection
	buf[45] = w.LampMode<<4 | 2 // low nibble is a fixed device constant

	var documentSize uint8
	if w.HasPaperSize {
		documentSize |= 1 << 7
	}
	if w.LengthControl {
		documentSize |= 1 << 6
	}
	if w.Landscape {
		documentSize |= 1 << 4
	}
	documentSize |= w.PaperSizeCode & 0x0f
	buf[47] = documentSize
	binary.BigEndian.PutUint32(buf[48:52], w.DocumentWidth)
	binary.BigEndian.PutUint32(buf[52:56], w.DocumentLength)

	var aheadDeskew uint8
	if w.DoubleFeedSens {
		aheadDeskew |= 1 << 4
	}
	if w.FitToPage {
		aheadDeskew |= 1 << 2
	}
	buf[56] = aheadDeskew

	if w.ContinuousScan {
		buf[57] = 0xff
	}
	// buf[58:62] automatic_threshold/separation_mode, standard_white_level,
	// b_wnr_noise_reduction: unsupported, left zero.
	if w.ManualFeedHold {
		buf[62] = 2 << 6
	}
	buf[63] = w.StopMode
	return buf
}

// DecodeWindow is the inverse of Encode.
func DecodeWindow(buf [WindowSize]byte) Window {
	var w Window
	w.Side = Side(buf[0])
	w.ResolutionX = binary.BigEndian.Uint16(buf[2:4])
	w.ResolutionY = binary.BigEndian.Uint16(buf[4:6])
	w.UpperLeftX = binary.BigEndian.Uint32(buf[6:10])
	w.UpperLeftY = binary.BigEndian.Uint32(buf[10:14])
	w.Width = binary.BigEndian.Uint32(buf[14:18])
	w.Length = binary.BigEndian.Uint32(buf[18:22])
	w.Brightness = buf[22]
	w.Threshold = buf[23]
	w.Contrast = buf[24]
	w.ImageComposition = buf[25]
	w.BitsPerPixel = buf[26]
	w.BitOrdering = BitOrdering(binary.BigEndian.Uint16(buf[30:32]))
	w.ImageEmphasis = buf[43]
	w.GammaCorrection = buf[44]
	w.LampMode = buf[45] >> 4

	documentSize := buf[47]
	w.HasPaperSize = documentSize&(1<<7) != 0
	w.LengthControl = documentSize&(1<<6) != 0
	w.Landscape = documentSize&(1<<4) != 0
	w.PaperSizeCode = documentSize & 0x0f
	w.DocumentWidth = binary.BigEndian.Uint32(buf[48:52])
	w.DocumentLength = binary.BigEndian.Uint32(buf[52:56])

	aheadDeskew := buf[56]
	w.DoubleFeedSens = aheadDeskew&(1<<4) != 0
	w.FitToPage = aheadDeskew&(1<<2) != 0

	w.ContinuousScan = buf[57] != 0
	w.ManualFeedHold = buf[62]&(2<<6) != 0
	w.StopMode = buf[63]
	return w
}
