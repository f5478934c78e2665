// Package session implements spec.md §4.G SessionFSM: the per-scan state
// machine that owns Transport, OptionValues, DerivedParams, RingBuffer,
// MotorProgram and CalibrationArtifacts (spec.md §3 Ownership), and
// exposes the open/control_option/get_parameters/start/read/cancel/close
// operations of §6.1 to the frontend collaborator in pkg/sane.
package session

import (
	"github.com/corescan/sane/internal/device"
	"github.com/corescan/sane/internal/option"
)

// Format is the frame format reported in Params (spec.md §6.1).
type Format int

const (
	FormatGray Format = iota
	FormatRGB
	FormatRed
	FormatGreen
	FormatBlue
)

func (f Format) String() string {
	switch f {
	case FormatGray:
		return "GRAY"
	case FormatRGB:
		return "RGB"
	case FormatRed:
		return "RED"
	case FormatGreen:
		return "GREEN"
	case FormatBlue:
		return "BLUE"
	default:
		return "UNKNOWN"
	}
}

// Params is spec.md §3 DerivedParams / §6.1 Params, the frozen per-scan
// geometry a frontend queries via get_parameters.
type Params struct {
	Format        Format
	LastFrame     bool
	PixelsPerLine int
	Lines         int
	Depth         int
	BytesPerLine  int
}

const mmPerInch = 25.4

// ComputeParams is a pure function of OptionValues and Device caps (spec.md
// §8 property 2: "get_parameters(O) is a pure function of O and Device
// caps"). bytes_per_line = depth*pixels_per_line/8, rounded up to a whole
// byte (spec.md §6.1).
func ComputeParams(v option.Values, d *device.Device) Params {
	widthMM := v.BBox.BRX - v.BBox.TLX
	heightMM := v.BBox.BRY - v.BBox.TLY

	pixelsPerLine := int(widthMM/mmPerInch*v.ResolutionX + 0.5)
	lines := int(heightMM/mmPerInch*v.ResolutionY + 0.5)

	var format Format
	var depth int
	switch v.Mode {
	case device.ModeLineart, device.ModeHalftone:
		format = FormatGray
		depth = 1
	case device.ModeGray:
		format = FormatGray
		depth = 8
	case device.ModeColor:
		format = FormatRGB
		depth = 8
	default:
		format = FormatGray
		depth = 8
	}

	bitsPerLine := depth * pixelsPerLine
	if format == FormatRGB {
		bitsPerLine *= 3
	}
	bytesPerLine := (bitsPerLine + 7) / 8

	return Params{
		Format:        format,
		LastFrame:     true, // this backend always interleaves color in one frame, never 3-pass
		PixelsPerLine: pixelsPerLine,
		Lines:         lines,
		Depth:         depth,
		BytesPerLine:  bytesPerLine,
	}
}
