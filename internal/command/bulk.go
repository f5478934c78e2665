package command

import "encoding/binary"

// Block types distinguish the three phases of a USB bulk exchange
// (spec.md §4.A/§6.2).
type BlockType uint16

const (
	BlockCommand  BlockType = 0x9000
	BlockData     BlockType = 0xb000
	BlockResponse BlockType = 0xa000
)

// BulkHeaderSize is the fixed size of the wrapper prefixed to every USB
// bulk block (spec.md §6.2).
const BulkHeaderSize = 12

// BulkHeader is the 12-byte header wrapping command/data/response blocks on
// the USB transport (length, type, code, transaction id, all big-endian).
// The SCSI transport bypasses this wrapper entirely.
type BulkHeader struct {
	Length        uint32
	Type          BlockType
	Code          uint16
	TransactionID uint32
}

// Encode packs h into its wire form.
func (h BulkHeader) Encode() [BulkHeaderSize]byte {
	var buf [BulkHeaderSize]byte
	binary.BigEndian.PutUint32(buf[0:4], h.Length)
	binary.BigEndian.PutUint16(buf[4:6], uint16(h.Type))
	binary.BigEndian.PutUint16(buf[6:8], h.Code)
	binary.BigEndian.PutUint32(buf[8:12], h.TransactionID)
	return buf
}

// DecodeBulkHeader is the inverse of Encode.
func DecodeBulkHeader(buf [BulkHeaderSize]byte) BulkHeader {
	return BulkHeader{
		Length:        binary.BigEndian.Uint32(buf[0:4]),
		Type:          BlockType(binary.BigEndian.Uint16(buf[4:6])),
		Code:          binary.BigEndian.Uint16(buf[6:8]),
		TransactionID: binary.BigEndian.Uint32(buf[8:12]),
	}
}

// StatusFrameSize is the 4-byte trailing status frame described in
// spec.md §6.2.
const StatusFrameSize = 4

// EncodeStatus packs a 32-bit BE status code.
func EncodeStatus(status uint32) [StatusFrameSize]byte {
	var buf [StatusFrameSize]byte
	binary.BigEndian.PutUint32(buf[:], status)
	return buf
}

// DecodeStatus is the inverse of EncodeStatus.
func DecodeStatus(buf [StatusFrameSize]byte) uint32 {
	return binary.BigEndian.Uint32(buf[:])
}

// DecodeBufferStatus extracts the big-endian 32-bit bytes-available field
// at offset 12 of a GET_BUFFER_STATUS response block (spec.md §4.B).
func DecodeBufferStatus(buf []byte) uint32 {
	if len(buf) < 16 {
		return 0
	}
	return binary.BigEndian.Uint32(buf[12:16])
}

// DecodeAdjustData extracts the duplex "dummy length" BE16 at offset 0 of
// a GET_ADJUST_DATA response (spec.md §4.B).
func DecodeAdjustData(buf []byte) uint16 {
	if len(buf) < 2 {
		return 0
	}
	return binary.BigEndian.Uint16(buf[0:2])
}
