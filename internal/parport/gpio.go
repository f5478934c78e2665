package parport

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// gpioLines bit-bangs the parallel-port protocol over a Linux GPIO
// character device chip, for hosts (single-board computers) with header
// GPIOs wired to the data/control/status lines instead of a real parallel
// port controller. Only SPP-style full-byte transfers are supported; EPP/
// ECP timing cannot be reproduced over a plain GPIO chip.
type gpioLines struct {
	chip    *gpiocdev.Chip
	data    []*gpiocdev.Line
	control []*gpiocdev.Line
	status  []*gpiocdev.Line
}

// Offsets match the conventional 8-bit data bus (lines 0-7), 4-bit control
// bus (8-11) and 5-bit status bus (12-16) used by parallel-port-over-GPIO
// wiring harnesses.
var (
	dataOffsets    = []int{0, 1, 2, 3, 4, 5, 6, 7}
	controlOffsets = []int{8, 9, 10, 11}
	statusOffsets  = []int{12, 13, 14, 15, 16}
)

func openGPIO(chipName string) (Lines, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("parport: open gpio chip %s: %w", chipName, err)
	}

	g := &gpioLines{chip: chip}
	for _, off := range dataOffsets {
		l, err := chip.RequestLine(off, gpiocdev.AsOutput(0))
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("parport: request data line %d: %w", off, err)
		}
		g.data = append(g.data, l)
	}
	for _, off := range controlOffsets {
		l, err := chip.RequestLine(off, gpiocdev.AsOutput(0))
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("parport: request control line %d: %w", off, err)
		}
		g.control = append(g.control, l)
	}
	for _, off := range statusOffsets {
		l, err := chip.RequestLine(off, gpiocdev.AsInput)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("parport: request status line %d: %w", off, err)
		}
		g.status = append(g.status, l)
	}
	return g, nil
}

func writeBus(lines []*gpiocdev.Line, b byte) error {
	for i, l := range lines {
		v := 0
		if b&(1<<uint(i)) != 0 {
			v = 1
		}
		if err := l.SetValue(v); err != nil {
			return err
		}
	}
	return nil
}

func readBus(lines []*gpiocdev.Line) (byte, error) {
	var b byte
	for i, l := range lines {
		v, err := l.Value()
		if err != nil {
			return 0, err
		}
		if v != 0 {
			b |= 1 << uint(i)
		}
	}
	return b, nil
}

func (g *gpioLines) WriteData(b byte) error    { return writeBus(g.data, b) }
func (g *gpioLines) ReadData() (byte, error)   { return readBus(g.data) }
func (g *gpioLines) WriteControl(b byte) error { return writeBus(g.control, b) }
func (g *gpioLines) ReadControl() (byte, error) {
	return readBus(g.control)
}
func (g *gpioLines) ReadStatus() (byte, error) { return readBus(g.status) }

func (g *gpioLines) Close() error {
	for _, l := range append(append(append([]*gpiocdev.Line{}, g.data...), g.control...), g.status...) {
		_ = l.Close()
	}
	return g.chip.Close()
}
