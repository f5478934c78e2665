// Package parport abstracts parallel-port register I/O behind a single
// Lines interface with two backends: the Linux ppdev character device
// (the common case, register read/write pairs over an ioctl-backed file)
// and, for hosts with no parallel port controller at all, a GPIO
// character-device bit-banged substitute using the header's
// data/control/status lines, driven through
// github.com/warthog618/go-gpiocdev.
package parport

import (
	"fmt"
	"time"
)

// Mode selects the parallel-port transfer mode (spec.md §4.A).
type Mode int

const (
	ModeSPP Mode = iota
	ModePS2Bidi
	ModeEPP
)

// Delay is the settle interval (0..3) applied between strobes, required
// for correctness on slow hardware (spec.md §4.A).
type Delay int

const (
	Delay0 Delay = iota
	Delay1
	Delay2
	Delay3
)

func (d Delay) Duration() time.Duration {
	switch d {
	case Delay1:
		return 2 * time.Microsecond
	case Delay2:
		return 10 * time.Microsecond
	case Delay3:
		return 50 * time.Microsecond
	default:
		return 0
	}
}

// Lines is the minimal set of raw operations a parallel-port backend must
// provide; command.Reg-level semantics are layered on top by
// internal/transport.
type Lines interface {
	WriteData(b byte) error
	ReadData() (byte, error)
	WriteControl(b byte) error
	ReadControl() (byte, error)
	ReadStatus() (byte, error)
	Close() error
}

// Control bit meanings used by the register-write/data-write strobe
// encoding of spec.md §6.3.
const (
	CSelectIn = 0x08
	CAutoLF   = 0x02
	CNotInit  = 0x04
)

// Open tries a real ppdev node first, then a GPIO header fallback. It does
// not probe port capabilities or compare modes: a ppdev node is reported
// as ModeEPP, or as *forceMode when forceMode is non-nil; the GPIO
// fallback is always reported as ModeSPP and ignores forceMode.
func Open(devicePath string, gpioChip string, forceMode *Mode) (Lines, Mode, error) {
	if devicePath != "" {
		if l, err := openPPDev(devicePath); err == nil {
			mode := ModeEPP
			if forceMode != nil {
				mode = *forceMode
			}
			return l, mode, nil
		}
	}
	if gpioChip != "" {
		l, err := openGPIO(gpioChip)
		if err == nil {
			return l, ModeSPP, nil
		}
		return nil, 0, fmt.Errorf("parport: no ppdev and gpio fallback failed: %w", err)
	}
	return nil, 0, fmt.Errorf("parport: no usable backend for %q", devicePath)
}
