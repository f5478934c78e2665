package parport

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ppdevLines talks to /dev/parportN via the Linux ppdev ioctl interface.
// Ioctl numbers are computed the same way <linux/ioctl.h>'s _IOR/_IOW
// macros do, grounded on <linux/ppdev.h>'s PPWDATA/PPRDATA/PPWCONTROL/
// PPRCONTROL/PPRSTATUS/PPCLAIM/PPRELEASE definitions.
type ppdevLines struct {
	f *os.File
}

const ppIOCTLType = 'p'

func ior(nr, size uintptr) uintptr { return ioc(2, nr, size) }
func iow(nr, size uintptr) uintptr { return ioc(1, nr, size) }
func ioNoArg(nr uintptr) uintptr   { return ioc(0, nr, 0) }

func ioc(dir, nr, size uintptr) uintptr {
	return (dir << 30) | (ppIOCTLType << 8) | nr | (size << 16)
}

var (
	ppwData    = iow(0x86, 1)
	pprData    = ior(0x85, 1)
	ppwControl = iow(0x84, 1)
	pprControl = ior(0x83, 1)
	pprStatus  = ior(0x81, 1)
	ppClaim    = ioNoArg(0x8b)
	ppRelease  = ioNoArg(0x8c)
)

func openPPDev(path string) (Lines, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("parport: open %s: %w", path, err)
	}
	if err := ioctlNoArg(f, ppClaim); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("parport: claim %s: %w", path, err)
	}
	return &ppdevLines{f: f}, nil
}

func ioctlByte(f *os.File, req uintptr, b *byte) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), req, uintptr(unsafe.Pointer(b)))
	if errno != 0 {
		return errno
	}
	return nil
}

func ioctlNoArg(f *os.File, req uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), req, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func (p *ppdevLines) WriteData(b byte) error    { v := b; return ioctlByte(p.f, ppwData, &v) }
func (p *ppdevLines) ReadData() (byte, error)   { var v byte; err := ioctlByte(p.f, pprData, &v); return v, err }
func (p *ppdevLines) WriteControl(b byte) error { v := b; return ioctlByte(p.f, ppwControl, &v) }
func (p *ppdevLines) ReadControl() (byte, error) {
	var v byte
	err := ioctlByte(p.f, pprControl, &v)
	return v, err
}
func (p *ppdevLines) ReadStatus() (byte, error) {
	var v byte
	err := ioctlByte(p.f, pprStatus, &v)
	return v, err
}

func (p *ppdevLines) Close() error {
	_ = ioctlNoArg(p.f, ppRelease)
	return p.f.Close()
}
