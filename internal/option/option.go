// Package option implements spec.md §3 OptionValues and §4.F OptionModel:
// typed options with constraints, cap flags, and the cross-option effects
// that must be applied atomically whenever any option changes.
package option

import (
	"fmt"

	"github.com/corescan/sane/internal/device"
	"github.com/corescan/sane/internal/timing"
)

// Type is the SANE-shaped option value type (spec.md §4.F).
type Type int

const (
	TypeBool Type = iota
	TypeInt
	TypeFixed // 16.16 fixed point
	TypeString
)

// ConstraintKind selects how a Descriptor's legal values are limited.
type ConstraintKind int

const (
	ConstraintNone ConstraintKind = iota
	ConstraintRange
	ConstraintStringList
	ConstraintWordList
)

// Range is a RANGE{min,max,quant} constraint (spec.md §4.F).
type Range struct{ Min, Max, Quant int }

// Cap flags (spec.md §4.F).
type Cap int

const (
	CapSoftSelect Cap = 1 << iota
	CapSoftDetect
	CapAdvanced
	CapInactive
)

// Descriptor is the static shape of one option: type, constraint, caps.
// Name identifies the option across Values/Descriptor/Info.
type Descriptor struct {
	Name       string
	Type       Type
	Constraint ConstraintKind
	Range      Range
	StringList []string
	WordList   []int
	Caps       Cap
}

func (d Descriptor) active() bool   { return d.Caps&CapInactive == 0 }
func (d Descriptor) settable() bool { return d.Caps&CapSoftSelect != 0 }

// Active reports whether d is currently selectable (not CapInactive).
func (d Descriptor) Active() bool { return d.active() }

// Settable reports whether d accepts control_option SET/SET_AUTO.
func (d Descriptor) Settable() bool { return d.settable() }

// Info mirrors spec.md §4.F/§6.1's info_flags returned by SET.
type Info struct {
	Inexact      bool
	ReloadOpts   bool
	ReloadParams bool
}

func (i Info) Bits() int {
	var b int
	if i.Inexact {
		b |= 1
	}
	if i.ReloadOpts {
		b |= 2
	}
	if i.ReloadParams {
		b |= 4
	}
	return b
}

// Action is the control_option verb (spec.md §6.1).
type Action int

const (
	ActionGet Action = iota
	ActionSet
	ActionSetAuto
)

// BBox is the scan area in millimetres (spec.md §3).
type BBox struct{ TLX, TLY, BRX, BRY float64 }

// Values holds the current OptionValues for one Session (spec.md §3).
// Field names match the option Names used by the Model below.
type Values struct {
	Mode         device.Mode
	ResolutionX  float64
	ResolutionY  float64
	Source       device.Source
	Duplex       bool
	PaperSize    timing.PaperSize
	PaperUserMM  timing.Dimensions
	BBox         BBox
	Landscape    bool
	Brightness   int
	Contrast     int
	Threshold    int
	Gamma        []float64 // per channel, or length 1 for gray
	DoubleFeed   bool
	ManualFeed   bool
	FeedTimeout  int // seconds
	ImageEmphasis int
	LampDropout  int
}

const MinWidthMM = 1.0
const MinHeightMM = 1.0

// Validate checks the invariants of spec.md §3:
// tl_x + MIN_WIDTH ≤ br_x ≤ MAX_WIDTH (and same for Y), resolution within
// device range and on the allowed step, string enums valid.
func Validate(v Values, d *device.Device, maxWidthMM, maxHeightMM float64) error {
	if v.BBox.TLX+MinWidthMM > v.BBox.BRX || v.BBox.BRX > maxWidthMM {
		return fmt.Errorf("option: bbox x out of range: tl=%.2f br=%.2f max=%.2f", v.BBox.TLX, v.BBox.BRX, maxWidthMM)
	}
	if v.BBox.TLY+MinHeightMM > v.BBox.BRY || v.BBox.BRY > maxHeightMM {
		return fmt.Errorf("option: bbox y out of range: tl=%.2f br=%.2f max=%.2f", v.BBox.TLY, v.BBox.BRY, maxHeightMM)
	}
	if !d.SupportsMode(v.Mode) {
		return fmt.Errorf("option: unsupported mode %q", v.Mode)
	}
	if !d.SupportsSource(v.Source) {
		return fmt.Errorf("option: unsupported source %q", v.Source)
	}
	if err := validResolution(v.ResolutionX, d.OpticalDPIX); err != nil {
		return err
	}
	if err := validResolution(v.ResolutionY, d.OpticalDPIY); err != nil {
		return err
	}
	return nil
}

// validResolution enforces "resolution within device range and on the
// allowed step (1% or 5% of base)" (spec.md §3): any requested DPI within
// [1, base] that lands on a 1% step, or any multiple of a 5% step above
// base, is accepted.
func validResolution(dpi float64, baseDPI int) error {
	if dpi <= 0 || baseDPI <= 0 {
		return fmt.Errorf("option: resolution %.2f invalid for base %d", dpi, baseDPI)
	}
	step := float64(baseDPI) * 0.01
	if dpi > float64(baseDPI) {
		step = float64(baseDPI) * 0.05
	}
	const eps = 1e-6
	n := dpi / step
	nearest := float64(int(n + 0.5))
	if abs(n-nearest)*step > eps {
		return fmt.Errorf("option: resolution %.3f not on allowed step %.3f", dpi, step)
	}
	return nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// ClampTL clamps tl to keep br - tl ≥ MIN_EXTENT, reporting Inexact when a
// clamp occurred (spec.md §4.F: "TL adjustments are clamped to
// br − MIN_EXTENT; on clamp, INEXACT is reported").
func ClampTL(tl, br, minExtent float64) (clamped float64, inexact bool) {
	if br-tl < minExtent {
		return br - minExtent, true
	}
	return tl, false
}
