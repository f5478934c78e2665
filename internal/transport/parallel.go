package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/corescan/sane/internal/command"
	"github.com/corescan/sane/internal/parport"
	"github.com/corescan/sane/internal/sanecore"
)

// magicOpen and magicReset are the documented byte sequences written to
// the data port to enter/leave scanner mode on the parallel-port ASICs
// (spec.md §6.3).
var (
	magicOpen  = [4]byte{0x69, 0x96, 0xA5, 0x5A}
	magicReset = [4]byte{0x69, 0x96, 0xAA, 0x55}
)

// scannerModeStatus is the status nibble expected at STATUS after the
// magic open sequence (spec.md §6.3).
const scannerModeStatus = 0x50

// ParallelPort implements Transport over internal/parport.Lines. It does
// not implement SendCommand (SCSI-shaped commands are a USB/SCSI concept);
// callers that hold a ParallelPort use RegisterWrite/RegisterRead/
// BurstRead and internal/command's register table directly.
type ParallelPort struct {
	lines  parport.Lines
	settle time.Duration
}

// NewParallelPort wraps an already-probed Lines backend with the settle
// delay appropriate to its mode (spec.md §4.A).
func NewParallelPort(lines parport.Lines, delay parport.Delay) *ParallelPort {
	return &ParallelPort{lines: lines, settle: delay.Duration()}
}

func (p *ParallelPort) wait() {
	if p.settle > 0 {
		time.Sleep(p.settle)
	}
}

// EnterScannerMode writes the magic open sequence and confirms the
// status nibble (spec.md §6.3).
func (p *ParallelPort) EnterScannerMode() error {
	return p.writeMagic(magicOpen)
}

// ResetASIC writes the distinct reset sequence required for certain ASICs
// (spec.md §6.3).
func (p *ParallelPort) ResetASIC() error {
	return p.writeMagic(magicReset)
}

func (p *ParallelPort) writeMagic(seq [4]byte) error {
	for _, b := range seq {
		if err := p.lines.WriteData(b); err != nil {
			return sanecore.New(sanecore.KindIOError, fmt.Errorf("parallel: write magic byte 0x%02x: %w", b, err))
		}
		p.wait()
	}
	status, err := p.lines.ReadStatus()
	if err != nil {
		return sanecore.New(sanecore.KindIOError, err)
	}
	if status&0xf0 != scannerModeStatus {
		return sanecore.New(sanecore.KindIOError, fmt.Errorf("parallel: unexpected status nibble 0x%02x", status))
	}
	return nil
}

// RegisterWrite performs a "register write" strobe: address on the data
// lines, CONTROL strobed with C_SELECT_IN|C_NOT_INIT, then the value with
// CONTROL strobed C_AUTOLF|C_NOT_INIT for "data write" (spec.md §6.3).
func (p *ParallelPort) RegisterWrite(reg command.Reg, val byte) error {
	if err := p.lines.WriteData(byte(reg)); err != nil {
		return sanecore.New(sanecore.KindIOError, err)
	}
	if err := p.lines.WriteControl(parport.CSelectIn | parport.CNotInit); err != nil {
		return sanecore.New(sanecore.KindIOError, err)
	}
	p.wait()
	if err := p.lines.WriteData(val); err != nil {
		return sanecore.New(sanecore.KindIOError, err)
	}
	if err := p.lines.WriteControl(parport.CAutoLF | parport.CNotInit); err != nil {
		return sanecore.New(sanecore.KindIOError, err)
	}
	p.wait()
	return nil
}

// RegisterRead performs the matching read strobe: address on the data
// lines, CONTROL strobed with C_SELECT_IN|C_NOT_INIT, then one direct
// ReadData of the value. It does not perform the SPP two-nibble read, and
// neither Lines backend (ppdev, GPIO) combines nibble halves in ReadData.
func (p *ParallelPort) RegisterRead(reg command.Reg) (byte, error) {
	if err := p.lines.WriteData(byte(reg)); err != nil {
		return 0, sanecore.New(sanecore.KindIOError, err)
	}
	if err := p.lines.WriteControl(parport.CSelectIn | parport.CNotInit); err != nil {
		return 0, sanecore.New(sanecore.KindIOError, err)
	}
	p.wait()
	v, err := p.lines.ReadData()
	if err != nil {
		return 0, sanecore.New(sanecore.KindIOError, err)
	}
	return v, nil
}

// BurstRead reads len(buf) bytes from the currently addressed register
// (typically RegGetScanState/FIFO drains), one strobe per byte.
func (p *ParallelPort) BurstRead(buf []byte) (int, error) {
	for i := range buf {
		v, err := p.lines.ReadData()
		if err != nil {
			return i, sanecore.New(sanecore.KindIOError, err)
		}
		buf[i] = v
		p.wait()
	}
	return len(buf), nil
}

// WriteScanStateProgram downloads the 32-byte nibble-packed microprogram
// via RegMemoryLow/High addressing and RegScanStateControl latching
// (spec.md §4.D/§6.3).
func (p *ParallelPort) WriteScanStateProgram(prog [command.ScanStateProgramSize]byte) error {
	if err := p.RegisterWrite(command.RegMemoryLow, 0); err != nil {
		return err
	}
	if err := p.RegisterWrite(command.RegMemoryHigh, 0); err != nil {
		return err
	}
	for _, b := range prog {
		if err := p.RegisterWrite(command.RegScanStateControl, b); err != nil {
			return err
		}
	}
	return nil
}

func (p *ParallelPort) SendCommand(context.Context, []byte, command.Direction, []byte) ([]byte, error) {
	return nil, sanecore.ErrUnsupported
}

func (p *ParallelPort) Close() error { return p.lines.Close() }
