package motor

// SpeedMode is one of the coarse speed modes used to cover distance
// quickly during fast-move (spec.md §4.D: "choose one of the coarse speed
// modes (C50/G100, C75/G150, full-step) according to distance").
type SpeedMode int

const (
	ModeC50G100 SpeedMode = iota
	ModeC75G150
	ModeFullStep
)

func (m SpeedMode) String() string {
	switch m {
	case ModeC50G100:
		return "C50/G100"
	case ModeC75G150:
		return "C75/G150"
	case ModeFullStep:
		return "full-step"
	default:
		return "unknown"
	}
}

// distance thresholds (in motor steps) above which a faster coarse mode is
// worth the reduced precision near the target.
const (
	thresholdC50G100 = 2000
	thresholdC75G150 = 500

	// decelFraction caps how much of the move is spent decelerating into
	// the precise region (spec.md §4.D: "decelerate before the precise
	// region"); maxDecelSteps bounds it for short moves.
	decelFraction  = 10
	maxDecelSteps  = 200
)

// Plan is the result of PlanFastMove: which coarse mode to run for
// CoarseSteps, followed by DecelSteps of full-step motion into the
// precise scan-origin region.
type Plan struct {
	Mode        SpeedMode
	CoarseSteps int
	DecelSteps  int
}

// PlanFastMove converts a start-Y distance in motor steps into a fast-move
// Plan (spec.md §4.D Fast move to scan origin).
func PlanFastMove(distanceSteps int) Plan {
	if distanceSteps <= 0 {
		return Plan{Mode: ModeFullStep}
	}

	var mode SpeedMode
	switch {
	case distanceSteps > thresholdC50G100:
		mode = ModeC50G100
	case distanceSteps > thresholdC75G150:
		mode = ModeC75G150
	default:
		mode = ModeFullStep
	}

	decel := distanceSteps / decelFraction
	if decel > maxDecelSteps {
		decel = maxDecelSteps
	}
	if mode == ModeFullStep {
		decel = 0
	}
	return Plan{Mode: mode, CoarseSteps: distanceSteps - decel, DecelSteps: decel}
}

// StepsForStartY converts the start-Y option (millimetres from the scan
// origin) to motor steps at the given steps-per-mm density.
func StepsForStartY(startYMM float64, stepsPerMM float64) int {
	if startYMM <= 0 {
		return 0
	}
	return int(startYMM*stepsPerMM + 0.5)
}
