// Package calib implements spec.md §4.C Calibration: the three coordinated
// phases (dark-offset trim, gain, per-pixel shading) run with the carriage
// parked under the reference strip, plus the REFLECTION/TRANSPARENCY/
// NEGATIVE variant tables and the "clever precalibration" skip optimisation.
// Grounded on original_source/.../plustek-pp_hwdefs.h's
// DarkCmpLo/DarkCmpHi/bGainLow/bGainHigh/bMinGain/bMaxGain fields (the
// calibration register windows this package's VariantTable literally
// carries) and the calibration entry points in plustek-pp_motor.c.
package calib

import "sort"

// Variant selects one of the three reference-window tables (spec.md §4.C:
// "Negative/transparency sources change the reference windows, gain
// limits, and dark-offset subtract table").
type Variant int

const (
	VariantReflection Variant = iota
	VariantTransparency
	VariantNegative
)

// ChannelWindow is one channel's dark-offset convergence window and gain
// limits, grounded on plustek-pp_hwdefs.h's DarkCmpLo/DarkCmpHi/bGainLow/
// bGainHigh/bMinGain/bMaxGain.
type ChannelWindow struct {
	DarkCmpLo, DarkCmpHi   uint8
	DarkOffsetSubtract     uint8
	GainLow, GainHigh      uint8
	MinGain, MaxGain       uint8
}

// VariantTable holds one ChannelWindow per RGB channel for a Variant.
type VariantTable [3]ChannelWindow

// defaultTables are representative, schematically-correct reference
// windows; concrete per-sensor calibration constants are not baked in any
// further than this — spec.md's Open Questions flags empirical gain
// tables as something to validate against real hardware, not fabricate
// (mirrors internal/timing.DefaultSpeedCurve's same stance).
var defaultTables = map[Variant]VariantTable{
	VariantReflection: {
		{DarkCmpLo: 8, DarkCmpHi: 24, DarkOffsetSubtract: 4, GainLow: 80, GainHigh: 160, MinGain: 0, MaxGain: 31},
		{DarkCmpLo: 8, DarkCmpHi: 24, DarkOffsetSubtract: 4, GainLow: 80, GainHigh: 160, MinGain: 0, MaxGain: 31},
		{DarkCmpLo: 8, DarkCmpHi: 24, DarkOffsetSubtract: 4, GainLow: 80, GainHigh: 160, MinGain: 0, MaxGain: 31},
	},
	VariantTransparency: {
		{DarkCmpLo: 2, DarkCmpHi: 10, DarkOffsetSubtract: 2, GainLow: 120, GainHigh: 220, MinGain: 0, MaxGain: 31},
		{DarkCmpLo: 2, DarkCmpHi: 10, DarkOffsetSubtract: 2, GainLow: 120, GainHigh: 220, MinGain: 0, MaxGain: 31},
		{DarkCmpLo: 2, DarkCmpHi: 10, DarkOffsetSubtract: 2, GainLow: 120, GainHigh: 220, MinGain: 0, MaxGain: 31},
	},
	VariantNegative: {
		{DarkCmpLo: 2, DarkCmpHi: 10, DarkOffsetSubtract: 0, GainLow: 140, GainHigh: 240, MinGain: 0, MaxGain: 31},
		{DarkCmpLo: 2, DarkCmpHi: 10, DarkOffsetSubtract: 0, GainLow: 140, GainHigh: 240, MinGain: 0, MaxGain: 31},
		{DarkCmpLo: 2, DarkCmpHi: 10, DarkOffsetSubtract: 0, GainLow: 140, GainHigh: 240, MinGain: 0, MaxGain: 31},
	},
}

// TableFor returns the reference-window table for v.
func TableFor(v Variant) VariantTable { return defaultTables[v] }

// Artifacts is spec.md §3 CalibrationArtifacts: per-channel dark offset
// and gain, plus a per-pixel shading LUT downloaded to the device.
type Artifacts struct {
	DarkOffset [3]uint8
	Gain       [3]uint8
	Shading    [3][]uint16 // one entry per pixel per channel
}

const darkOffsetConvergenceBudget = 16

// TrimDarkOffset runs spec.md §4.C phase 1 for one channel: it steps the
// 8-bit DAC dark register up while the darkest pixel is below DarkCmpLo
// and down while it is above DarkCmpHi, for at most 16 iterations. If the
// window is never reached, the last register value is returned with
// converged=false; TrimDarkOffset does not log anything itself. sample is
// called once per iteration with the current register value and must
// return the darkest pixel observed.
func TrimDarkOffset(win ChannelWindow, initial uint8, sample func(reg uint8) uint8) (reg uint8, converged bool) {
	reg = initial
	for i := 0; i < darkOffsetConvergenceBudget; i++ {
		darkest := sample(reg)
		if darkest >= win.DarkCmpLo && darkest <= win.DarkCmpHi {
			return reg, true
		}
		if darkest < win.DarkCmpLo {
			reg = saturatingInc(reg)
		} else {
			reg = saturatingDec(reg)
		}
	}
	return reg, false
}

func saturatingInc(v uint8) uint8 {
	if v == 255 {
		return v
	}
	return v + 1
}

func saturatingDec(v uint8) uint8 {
	if v == 0 {
		return v
	}
	return v - 1
}

// TrimGain runs spec.md §4.C phase 2 for one channel: "scan the reference
// strip, compute the 90th-percentile (implemented as a trimmed mean after
// a median filter), and adjust the 5-bit gain index up/down to land within
// {bGainLow..bGainHigh}. The gain index is clamped to [bMinGain,
// bMaxGain]." samples is one row of raw reference-strip pixel values per
// call; TrimGain calls sampleRow once per attempt (the caller reprograms
// gain between calls as directed by the returned index).
func TrimGain(win ChannelWindow, initial uint8, sampleRow func(gain uint8) []uint16) (gain uint8) {
	gain = clampGain(initial, win)
	const budget = 16
	for i := 0; i < budget; i++ {
		row := sampleRow(gain)
		level := trimmedMeanAfterMedianFilter(row)
		switch {
		case level < float64(win.GainLow):
			gain = clampGain(saturatingInc(gain), win)
		case level > float64(win.GainHigh):
			gain = clampGain(saturatingDec(gain), win)
		default:
			return gain
		}
	}
	return gain
}

func clampGain(g uint8, win ChannelWindow) uint8 {
	if g < win.MinGain {
		return win.MinGain
	}
	if g > win.MaxGain {
		return win.MaxGain
	}
	return g
}

// trimmedMeanAfterMedianFilter approximates the 90th-percentile aggregate
// spec.md §4.C calls for: a 3-wide median filter to reject impulse noise,
// then a mean over the filtered values with the top/bottom 10% trimmed.
func trimmedMeanAfterMedianFilter(row []uint16) float64 {
	if len(row) == 0 {
		return 0
	}
	filtered := medianFilter3(row)
	sorted := append([]uint16(nil), filtered...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	trim := len(sorted) / 10
	lo, hi := trim, len(sorted)-trim
	if lo >= hi {
		lo, hi = 0, len(sorted)
	}
	var sum float64
	for _, v := range sorted[lo:hi] {
		sum += float64(v)
	}
	return sum / float64(hi-lo)
}

func medianFilter3(row []uint16) []uint16 {
	if len(row) < 3 {
		return append([]uint16(nil), row...)
	}
	out := make([]uint16, len(row))
	out[0] = row[0]
	out[len(row)-1] = row[len(row)-1]
	for i := 1; i < len(row)-1; i++ {
		out[i] = median3(row[i-1], row[i], row[i+1])
	}
	return out
}

func median3(a, b, c uint16) uint16 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return b
}

// ShadingLines is the number of reference-strip lines captured for
// per-pixel shading (spec.md §4.C phase 3: "Capture N (typ. 12) lines").
const ShadingLines = 12

// iqrTrimFactor is the outlier-rejection bound (spec.md §4.C: "drop
// outliers beyond 1.5*IQR").
const iqrTrimFactor = 1.5

// ComputeShading implements spec.md §4.C phase 3 for one channel: lines is
// ShadingLines rows of pixelsPerLine raw reference samples; per pixel,
// sort across lines, drop outliers beyond 1.5*IQR, average the remainder.
// A pixel whose remainder is empty after rejection keeps prev[pixel]
// (spec.md §4.C: "Zero-valued aggregates after outlier rejection: keep
// previous value and re-try next session").
func ComputeShading(lines [][]uint16, prev []uint16) []uint16 {
	if len(lines) == 0 {
		return append([]uint16(nil), prev...)
	}
	pixelsPerLine := len(lines[0])
	out := make([]uint16, pixelsPerLine)

	column := make([]uint16, len(lines))
	for px := 0; px < pixelsPerLine; px++ {
		for li, line := range lines {
			if px < len(line) {
				column[li] = line[px]
			}
		}
		sorted := append([]uint16(nil), column...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		q1 := float64(sorted[len(sorted)/4])
		q3 := float64(sorted[(len(sorted)*3)/4])
		iqr := q3 - q1
		lo := q1 - iqrTrimFactor*iqr
		hi := q3 + iqrTrimFactor*iqr

		var sum float64
		var n int
		for _, v := range sorted {
			if float64(v) >= lo && float64(v) <= hi {
				sum += float64(v)
				n++
			}
		}
		if n == 0 {
			if px < len(prev) {
				out[px] = prev[px]
			}
			continue
		}
		out[px] = uint16(sum / float64(n))
	}
	return out
}
