package assemble

import "github.com/corescan/sane/internal/device"

// NewLayout selects the Layout for a ColorScheme (spec.md §4.D "Color
// scheme of the CCD" / §4.E's four line layouts).
func NewLayout(scheme device.ColorScheme, pixelsPerLine int) Layout {
	switch scheme {
	case device.SchemeSeqRGB:
		return NewSeqRGBLayout(pixelsPerLine)
	case device.SchemeGoofyRGB:
		return NewGoofyRGBLayout(pixelsPerLine)
	case device.SchemeSeq2R2G2B:
		return NewSeq2R2G2BLayout()
	default:
		return FlatLayout{}
	}
}

// Assembler is the spec.md §4.E LineAssembler: a Layout feeding a Ring,
// plus expanded-resolution scaling applied by DrainLine when the output
// width differs from the captured width. Session.Read does not scale: it
// builds its Assembler with equal captured and output widths and drains
// through Drain.
type Assembler struct {
	layout Layout
	ring   *Ring

	lineart      bool
	needsScaling bool
	srcSamples   int // samples (pixels, or bits for lineart) per line as captured
	dstSamples   int // samples per line after scaling, i.e. DerivedParams.pixels_per_line
}

// NewAssembler builds an Assembler for one scan. bytesPerLine/pixelsPerLine
// describe the as-captured (pre-scaling) line shape; dstPixelsPerLine is
// the output shape after expanded-resolution scaling (equal to
// pixelsPerLine when requested_dpi <= base_dpi).
func NewAssembler(scheme device.ColorScheme, bytesPerLine, pixelsPerLine, dstPixelsPerLine int, lineart bool, ringSize int) *Assembler {
	return &Assembler{
		layout:       NewLayout(scheme, pixelsPerLine),
		ring:         NewRing(bytesPerLine, pixelsPerLine, ringSize),
		lineart:      lineart,
		needsScaling: dstPixelsPerLine != pixelsPerLine,
		srcSamples:   pixelsPerLine,
		dstSamples:   dstPixelsPerLine,
	}
}

// Feed hands raw transport bytes to the underlying Layout.
func (a *Assembler) Feed(data []byte) { a.layout.Feed(a.ring, data) }

// CompleteCount reports how many assembled (pre-scaling) bytes are ready.
func (a *Assembler) CompleteCount() int { return a.ring.CompleteCount() }

// DrainLine drains exactly one complete captured line (bytesPerLine bytes,
// or srcSamples bits packed for lineart) and returns it scaled to
// dstSamples when scaling is needed, otherwise unscaled.
func (a *Assembler) DrainLine(capturedLineBytes int) ([]byte, bool) {
	if a.ring.CompleteCount() < capturedLineBytes {
		return nil, false
	}
	line := make([]byte, capturedLineBytes)
	a.ring.Drain(line)
	if !a.needsScaling {
		return line, true
	}
	if a.lineart {
		return ScaleLineartBits(line, a.srcSamples, a.dstSamples), true
	}
	return ScaleChannel(line, a.dstSamples), true
}

// Drain copies up to len(dst) ready bytes with no line-boundary awareness,
// for callers (session.Read) pulling arbitrary-length chunks of an
// already-scaled or non-scaling stream.
func (a *Assembler) Drain(dst []byte) int { return a.ring.Drain(dst) }
