// Package timing holds the static per-model tables of spec.md §3/§4.D:
// CCD/DAC register sequences, step/exposure tables, home offsets and paper
// sizes. Constants are grounded on
// original_source/.../plustek-pp_hwdefs.h register definitions and
// original_source/.../kvs20xx.h's document-size enumeration.
package timing

import "fmt"

// PaperSize is one of the fixed document sizes a scanner's OptionModel can
// select (spec.md §3 OptionValues paper-size enum).
type PaperSize int

const (
	PaperUserDef PaperSize = iota
	PaperA3
	PaperA4
	PaperA5
	PaperA6
	PaperB4
	PaperB5
	PaperB6
	PaperLetter
	PaperLegal
)

// Dimensions is the (width, height) of a fixed paper size in millimetres,
// portrait orientation.
type Dimensions struct{ WidthMM, HeightMM float64 }

var paperDimensions = map[PaperSize]Dimensions{
	PaperA3:     {297.0, 420.0},
	PaperA4:     {210.0, 297.0},
	PaperA5:     {148.0, 210.0},
	PaperA6:     {105.0, 148.0},
	PaperB4:     {257.0, 364.0},
	PaperB5:     {182.0, 257.0},
	PaperB6:     {128.0, 182.0},
	PaperLetter: {215.9, 279.4},
	PaperLegal:  {215.9, 355.6},
}

// DimensionsOf returns the portrait mm dimensions of a fixed paper size;
// ok is false for PaperUserDef, which carries no fixed size.
func DimensionsOf(p PaperSize) (Dimensions, bool) {
	d, ok := paperDimensions[p]
	return d, ok
}

// LandscapeDefault reports whether p defaults to landscape orientation
// when selected (spec.md §4.F: "for A5/A6/B6, activates LANDSCAPE").
func LandscapeDefault(p PaperSize) bool {
	switch p {
	case PaperA5, PaperA6, PaperB6:
		return true
	default:
		return false
	}
}

// HomeOffset is the per-model distance (in motor steps) between the home
// sensor trip point and the optical scan origin.
type HomeOffset struct {
	Steps int
}

// SpeedCurve maps a speed index (1..34 for the P96 family, finer for P98)
// to a step period, in motor ticks per step — the "k" referenced by
// spec.md §4.D's program generation ("step every k ticks where k depends
// on current speed").
type SpeedCurve []int

// DefaultSpeedCurve is a representative monotonic curve: higher indices
// step more often (smaller k), matching "Speed index ∈ {1..34}" moving
// from coarse to fine. Concrete CCD/DAC gain tables are deliberately not
// baked in further than this — spec.md's Open Questions flag per-sensor
// gain curves as something to validate empirically, not guess.
// device.Override carries a GainCurve list loaded from YAML, but
// Override.Apply does not copy it onto the Device and no calibration code
// reads it.
var DefaultSpeedCurve = buildDefaultSpeedCurve()

func buildDefaultSpeedCurve() SpeedCurve {
	c := make(SpeedCurve, 34)
	for i := range c {
		// k decreases from 34 ticks/step at index 1 down to 1 tick/step
		// at index 34: a simple monotonic deceleration-to-full-speed
		// curve, standing in for the empirically-tuned tables spec.md
		// says not to fabricate.
		c[i] = 34 - i
		if c[i] < 1 {
			c[i] = 1
		}
	}
	return c
}

// TicksPerStep returns k for a given 1-based speed index.
func (c SpeedCurve) TicksPerStep(speedIndex int) (int, error) {
	if speedIndex < 1 || speedIndex > len(c) {
		return 0, fmt.Errorf("timing: speed index %d out of range 1..%d", speedIndex, len(c))
	}
	return c[speedIndex-1], nil
}

// Exposure maps the resolution ratio to a CCD exposure register value; kept as a simple monotonic function rather than a literal
// constants table for the same reason as DefaultSpeedCurve.
func Exposure(resolutionDPI, opticalDPI int) int {
	if opticalDPI <= 0 {
		return 0
	}
	ratio := float64(resolutionDPI) / float64(opticalDPI)
	if ratio < 1 {
		ratio = 1
	}
	return int(1000 / ratio)
}
