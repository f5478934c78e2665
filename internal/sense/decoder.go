// Package sense translates USB/SCSI REQUEST_SENSE frames into the backend's
// ErrorKind taxonomy. It is a pure function over a static table — the
// single place sense bytes are ever interpreted, per spec.md §4.C/§9
// ("Global error signalling via sense codes... Central SenseDecoder as a
// pure function from 3-tuple to ErrorKind").
package sense

import "github.com/corescan/sane/internal/sanecore"

// Frame is the decoded {sense_key, asc, ascq} triple described in spec.md
// §3 SenseFrame and §6.2 (offsets 2, 12, 13 of the 18-byte sense buffer).
type Frame struct {
	Key  byte
	ASC  byte
	ASCQ byte
}

const endOfMedium = 1 << 6
const senseKeyMask = 0x0f

// FrameFromBuffer extracts a Frame from an 18-byte REQUEST_SENSE payload.
func FrameFromBuffer(buf []byte) Frame {
	var f Frame
	if len(buf) > 2 {
		f.Key = buf[2] & senseKeyMask
	}
	if len(buf) > 12 {
		f.ASC = buf[12]
	}
	if len(buf) > 13 {
		f.ASCQ = buf[13]
	}
	return f
}

// IsEndOfMedium reports whether the raw sense byte 2 carries the
// END_OF_MEDIUM flag (spec.md §6.2).
func IsEndOfMedium(rawSenseByte2 byte) bool {
	return rawSenseByte2&endOfMedium != 0
}

type entry struct {
	key, asc, ascq byte
	kind           sanecore.Kind
}

// table is grounded field-for-field on s_errors[] in the original Panasonic
// KV-S20xx backend (original_source/.../kvs20xx_cmd.h).
var table = []entry{
	{0, 0, 0, sanecore.KindNone},
	{2, 0, 0, sanecore.KindDeviceBusy},
	{2, 0x04, 0x01, sanecore.KindDeviceBusy},
	{2, 0x04, 0x80, sanecore.KindCoverOpen},
	{2, 0x04, 0x81, sanecore.KindCoverOpen},
	{2, 0x04, 0x82, sanecore.KindCoverOpen},
	{2, 0x04, 0x83, sanecore.KindCoverOpen},
	{2, 0x04, 0x84, sanecore.KindCoverOpen},
	{2, 0x80, 0x01, sanecore.KindCancelled},
	{2, 0x80, 0x02, sanecore.KindCancelled},
	{3, 0x3a, 0x00, sanecore.KindNoDocs},
	{3, 0x80, 0x01, sanecore.KindJammed},
	{3, 0x80, 0x02, sanecore.KindJammed},
	{3, 0x80, 0x03, sanecore.KindJammed},
	{3, 0x80, 0x04, sanecore.KindJammed},
	{3, 0x80, 0x05, sanecore.KindJammed},
	{3, 0x80, 0x06, sanecore.KindJammed},
	{3, 0x80, 0x07, sanecore.KindJammed},
	{3, 0x80, 0x08, sanecore.KindJammed},
	{3, 0x80, 0x09, sanecore.KindJammed},
}

// Decode maps a sense Frame to an ErrorKind. Unrecognized triples with a
// non-zero sense key decode to KindIOError: an unmapped sense code is
// still a device-reported failure, and surfacing it as IO_ERROR matches
// spec.md §7's "transport errors bubble up" default. Any triple with sense
// key 0 (NO SENSE) decodes to KindNone whatever its asc/ascq.
func Decode(f Frame) sanecore.Kind {
	for _, e := range table {
		if e.key == f.Key && e.asc == f.ASC && e.ascq == f.ASCQ {
			return e.kind
		}
	}
	if f.Key == 0 {
		return sanecore.KindNone
	}
	return sanecore.KindIOError
}

// DecodeBuffer is the convenience form used right after REQUEST_SENSE.
func DecodeBuffer(buf []byte) sanecore.Kind {
	return Decode(FrameFromBuffer(buf))
}
