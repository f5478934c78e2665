package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/corescan/sane/internal/command"
	"github.com/corescan/sane/internal/rawterm"
	"github.com/corescan/sane/internal/sanecore"
)

// byteDevice is the minimal surface USBSCSI needs from its underlying
// handle; *rawterm.Handle satisfies it, and tests substitute a fake.
type byteDevice interface {
	io.ReadWriteCloser
}

// USBSCSI implements Transport over the wrapped-bulk USB protocol of
// spec.md §4.A/§6.2. SCSI-attached devices bypass the wrapper entirely;
// Raw, when true, sends/receives bare CDBs with no BulkHeader framing.
type USBSCSI struct {
	dev byteDevice
	Raw bool

	xact atomic.Uint32
}

// NewUSBSCSI wraps an already-open device handle (typically
// rawterm.Open("/dev/usb/scannerN", 0) or an sg/usbfs file).
func NewUSBSCSI(dev byteDevice, raw bool) *USBSCSI {
	return &USBSCSI{dev: dev, Raw: raw}
}

// OpenUSBSCSI opens devicePath in raw mode and wraps it.
func OpenUSBSCSI(devicePath string, raw bool) (*USBSCSI, error) {
	h, err := rawterm.Open(devicePath, 0)
	if err != nil {
		return nil, err
	}
	return NewUSBSCSI(h, raw), nil
}

func (t *USBSCSI) nextXact() uint32 { return t.xact.Add(1) }

func (t *USBSCSI) writeBlock(blockType command.BlockType, payload []byte) error {
	if t.Raw {
		_, err := t.dev.Write(payload)
		return err
	}
	hdr := command.BulkHeader{
		Length:        uint32(len(payload)),
		Type:          blockType,
		Code:          blockCode(blockType),
		TransactionID: t.nextXact(),
	}
	enc := hdr.Encode()
	if _, err := t.dev.Write(enc[:]); err != nil {
		return fmt.Errorf("transport: write bulk header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := t.dev.Write(payload); err != nil {
			return fmt.Errorf("transport: write bulk payload: %w", err)
		}
	}
	return nil
}

func blockCode(t command.BlockType) uint16 {
	switch t {
	case command.BlockCommand:
		return 0
	case command.BlockData:
		return 0
	case command.BlockResponse:
		return 0
	default:
		return 0
	}
}

func (t *USBSCSI) readExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(t.dev, buf); err != nil {
		return nil, fmt.Errorf("transport: read %d bytes: %w", n, err)
	}
	return buf, nil
}

// SendCommand implements Transport. It writes the command block (and, for
// DirOut, the data-out block), reads back the data-in block (for DirIn)
// followed by the 4-byte status frame, and translates a CHECK_CONDITION
// status into ErrCheckCondition (any other non-GOOD status becomes an
// IO_ERROR) — sense decoding itself happens one level up
// (internal/session), per spec.md §9's "central SenseDecoder".
func (t *USBSCSI) SendCommand(ctx context.Context, cdb []byte, dir command.Direction, out []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, sanecore.New(sanecore.KindCancelled, err)
	}
	if len(cdb) > command.MaxCDBSize {
		return nil, sanecore.New(sanecore.KindInval, fmt.Errorf("cdb too long: %d bytes", len(cdb)))
	}

	if err := t.writeBlock(command.BlockCommand, cdb); err != nil {
		return nil, sanecore.New(sanecore.KindIOError, err)
	}

	if dir == command.DirOut && len(out) > 0 {
		if err := t.writeBlock(command.BlockData, out); err != nil {
			return nil, sanecore.New(sanecore.KindIOError, err)
		}
	}

	var payload []byte
	if dir == command.DirIn {
		if t.Raw {
			payload = make([]byte, cap(out))
			n, err := t.dev.Read(payload)
			if err != nil {
				return nil, sanecore.New(sanecore.KindIOError, err)
			}
			payload = payload[:n]
		} else {
			hdrBuf, err := t.readExact(command.BulkHeaderSize)
			if err != nil {
				return nil, sanecore.New(sanecore.KindIOError, err)
			}
			var hdrArr [command.BulkHeaderSize]byte
			copy(hdrArr[:], hdrBuf)
			hdr := command.DecodeBulkHeader(hdrArr)
			payload, err = t.readExact(int(hdr.Length))
			if err != nil {
				return nil, sanecore.New(sanecore.KindIOError, err)
			}
		}
	}

	if !t.Raw {
		statusBuf, err := t.readExact(command.StatusFrameSize)
		if err != nil {
			return nil, sanecore.New(sanecore.KindIOError, err)
		}
		status := binary.BigEndian.Uint32(statusBuf)
		if status == command.StatusCheckCondition {
			return payload, ErrCheckCondition
		}
		if status != command.StatusGood {
			return payload, sanecore.New(sanecore.KindIOError, fmt.Errorf("status 0x%08x", status))
		}
	}

	return payload, nil
}

func (t *USBSCSI) RegisterWrite(command.Reg, byte) error {
	return sanecore.ErrUnsupported
}
func (t *USBSCSI) RegisterRead(command.Reg) (byte, error) {
	return 0, sanecore.ErrUnsupported
}
func (t *USBSCSI) BurstRead([]byte) (int, error) {
	return 0, sanecore.ErrUnsupported
}

func (t *USBSCSI) Close() error { return t.dev.Close() }
