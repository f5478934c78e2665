// Package motor implements spec.md §3 MotorProgram and §4.D MotorPlanner:
// the 64-slot nibble-packed scan-state program, homing, fast-move-to-origin,
// the FIFO-paced read loop, duplex alignment, and the per-scan state
// machine. Grounded on
// original_source/.../plustek-pp_motor.c (the P96/P98 motor state tables
// this backend generalises away from per-ASIC C code into one Go
// generator driven by resolution ratio, color scheme and speed index).
package motor

import "github.com/corescan/sane/internal/device"

// Slots is the number of scan-state microprogram slots (spec.md §3).
const Slots = 64

// nibble bit layout within one slot: bit0 selects "step this tick", bits
// 1-3 select which of R/G/B to latch from the sensor.
const (
	nibbleStep   = 1 << 0
	nibbleLatchR = 1 << 1
	nibbleLatchG = 1 << 2
	nibbleLatchB = 1 << 3
)

// Program is the 64-slot, nibble-packed scan-state microprogram (spec.md
// §3: "An array of 64 scan-state slots... Two nibbles share one byte (even
// slot in low nibble, odd in high)"), backed directly by the 32-byte
// on-wire form downloaded via
// internal/transport.ParallelPort.WriteScanStateProgram.
type Program [32]byte

// Set writes slot's step/latch bits.
func (p *Program) Set(slot int, step bool, latch [3]bool) {
	var n byte
	if step {
		n |= nibbleStep
	}
	if latch[0] {
		n |= nibbleLatchR
	}
	if latch[1] {
		n |= nibbleLatchG
	}
	if latch[2] {
		n |= nibbleLatchB
	}
	idx := slot / 2
	if slot%2 == 0 {
		p[idx] = (p[idx] &^ 0x0F) | n
	} else {
		p[idx] = (p[idx] &^ 0xF0) | (n << 4)
	}
}

// Slot reads back slot's step/latch bits.
func (p Program) Slot(slot int) (step bool, latch [3]bool) {
	idx := slot / 2
	var n byte
	if slot%2 == 0 {
		n = p[idx] & 0x0F
	} else {
		n = (p[idx] >> 4) & 0x0F
	}
	step = n&nibbleStep != 0
	latch[0] = n&nibbleLatchR != 0
	latch[1] = n&nibbleLatchG != 0
	latch[2] = n&nibbleLatchB != 0
	return
}

// Generate builds the 64-slot program for one scan (spec.md §4.D "Program
// generation"): given the resolution ratio r = physical_dpi/requested_dpi_y
// and the CCD's color scheme, enumerate 64 ticks deciding latching
// (round-robin accumulator driven by r) and stepping (step every
// ticksPerStep ticks).
func Generate(ratioPhysicalOverRequested float64, scheme device.ColorScheme, ticksPerStep int) Program {
	if ratioPhysicalOverRequested <= 0 {
		ratioPhysicalOverRequested = 1
	}
	if ticksPerStep <= 0 {
		ticksPerStep = 1
	}

	var prog Program
	var latchAccum float64
	stepAccum := 0
	ch := 0

	for slot := 0; slot < Slots; slot++ {
		latchAccum += 1.0 / ratioPhysicalOverRequested
		latch := [3]bool{}
		if latchAccum >= 1.0 {
			latchAccum -= 1.0
			switch scheme {
			case device.SchemeFlat:
				latch = [3]bool{true, true, true}
			default:
				latch[ch] = true
				ch = (ch + 1) % 3
			}
		}

		stepAccum++
		step := false
		if stepAccum >= ticksPerStep {
			step = true
			stepAccum = 0
		}

		prog.Set(slot, step, latch)
	}
	return prog
}

// Cursor tracks the head state counter modulo Slots (spec.md §3: "the
// program is monotonic under the head state counter modulo 64").
type Cursor struct{ head int }

// Next returns the current slot index and advances the cursor.
func (c *Cursor) Next() int {
	s := c.head
	c.head = (c.head + 1) % Slots
	return s
}

// Head reports the current slot index without advancing.
func (c *Cursor) Head() int { return c.head }
