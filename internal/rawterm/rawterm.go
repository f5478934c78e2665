// Package rawterm opens a byte-oriented device handle in raw mode. It
// backs the USB/SCSI bulk transport (talking to a /dev/usb/... or
// /dev/sg... node), wrapping github.com/pkg/term. The parallel-port
// transport does not use it.
package rawterm

import (
	"fmt"

	"github.com/pkg/term"
)

// Handle is a raw-mode byte device. It intentionally exposes a minimal
// surface: Read, Write, Close, nothing that assumes line discipline.
type Handle struct {
	t *term.Term
}

// Open opens name in raw mode. A non-zero baud is applied as the line
// speed; zero leaves the port's existing rate alone (OpenUSBSCSI passes
// 0).
func Open(name string, baud int) (*Handle, error) {
	t, err := term.Open(name, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("rawterm: open %s: %w", name, err)
	}
	if baud != 0 {
		if err := t.SetSpeed(baud); err != nil {
			_ = t.Close()
			return nil, fmt.Errorf("rawterm: set speed %d on %s: %w", baud, name, err)
		}
	}
	return &Handle{t: t}, nil
}

func (h *Handle) Read(p []byte) (int, error)  { return h.t.Read(p) }
func (h *Handle) Write(p []byte) (int, error) { return h.t.Write(p) }
func (h *Handle) Close() error                { return h.t.Close() }
