package calib

// ModeSense identifies a calibration-relevant combination of scan mode and
// variant (spec.md §4.C "clever precalibration" optimisation).
type ModeSense struct {
	Variant Variant
	Color   bool // true for COLOR/GRAY preview-class modes, false for LINEART
}

// precalClass groups ModeSenses that share a compatible precalibration,
// mirroring spec.md §4.C's example ("PRECAL_COLOR covers both color and
// gray previews").
func precalClass(m ModeSense) int {
	class := int(m.Variant) * 2
	if m.Color {
		class++
	}
	return class
}

// Session tracks the last completed calibration's ModeSense and Artifacts
// so a Session reopening the same effective mode can skip the full
// procedure (spec.md §4.C: "if the session's mode-sense cache matches the
// device's current mode-sense and the last precal is compatible..., the
// full procedure is skipped and only a short dummy motion is performed").
type Session struct {
	lastSense     ModeSense
	lastArtifacts Artifacts
	has           bool
}

// NeedsFullCalibration reports whether current requires the full
// dark/gain/shading sequence, or whether a cached-compatible Artifacts set
// (and a short dummy motion) suffices.
func (s *Session) NeedsFullCalibration(current ModeSense) bool {
	if !s.has {
		return true
	}
	return precalClass(s.lastSense) != precalClass(current)
}

// Record stores the Artifacts produced by a completed full calibration for
// future NeedsFullCalibration checks.
func (s *Session) Record(sense ModeSense, artifacts Artifacts) {
	s.lastSense = sense
	s.lastArtifacts = artifacts
	s.has = true
}

// Cached returns the last recorded Artifacts, for reuse when
// NeedsFullCalibration reports false.
func (s *Session) Cached() (Artifacts, bool) { return s.lastArtifacts, s.has }
