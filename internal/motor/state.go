package motor

import "fmt"

// State is one node of the per-scan motor state machine (spec.md §4.D):
//
//	INIT -> HOMING -> SETTLE -> WARMUP -> CALIBRATE -> PARK -> FAST_MOVE
//	     -> SCAN_ACTIVE <-> STALLED <-> BACKOFF_RETRY
//	     -> EOF_PAGE -> (more_pages?) -> PARK ; else DONE
//	DONE -> HOMING -> IDLE
type State int

const (
	StateInit State = iota
	StateHoming
	StateSettle
	StateWarmup
	StateCalibrate
	StatePark
	StateFastMove
	StateScanActive
	StateStalled
	StateBackoffRetry
	StateEOFPage
	StateDone
	StateIdle
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateHoming:
		return "HOMING"
	case StateSettle:
		return "SETTLE"
	case StateWarmup:
		return "WARMUP"
	case StateCalibrate:
		return "CALIBRATE"
	case StatePark:
		return "PARK"
	case StateFastMove:
		return "FAST_MOVE"
	case StateScanActive:
		return "SCAN_ACTIVE"
	case StateStalled:
		return "STALLED"
	case StateBackoffRetry:
		return "BACKOFF_RETRY"
	case StateEOFPage:
		return "EOF_PAGE"
	case StateDone:
		return "DONE"
	case StateIdle:
		return "IDLE"
	default:
		return "UNKNOWN"
	}
}

// legalNext enumerates the directed edges of the state graph above, plus
// the PAGE_EOF -> SCANNING_SIDE_FRONT-equivalent loop for continuous/ADF
// mode (here EOF_PAGE -> PARK -> FAST_MOVE, re-entering the scan-active
// path for another page).
var legalNext = map[State][]State{
	StateInit:         {StateHoming},
	StateHoming:       {StateSettle, StateIdle}, // DONE -> HOMING -> IDLE collapses through here too
	StateSettle:       {StateWarmup},
	StateWarmup:       {StateCalibrate},
	StateCalibrate:    {StatePark},
	StatePark:         {StateFastMove},
	StateFastMove:     {StateScanActive},
	StateScanActive:   {StateStalled, StateEOFPage},
	StateStalled:      {StateBackoffRetry},
	StateBackoffRetry: {StateScanActive, StateStalled},
	StateEOFPage:      {StatePark, StateDone},
	StateDone:         {StateHoming},
}

// Machine drives one scan's motor state, enforcing the graph above except
// for cancellation, which spec.md §4.D says "is valid in every state; on
// cancel the planner always passes through HOMING before IDLE."
type Machine struct {
	current   State
	cancelled bool
}

// NewMachine starts a Machine in StateInit.
func NewMachine() *Machine { return &Machine{current: StateInit} }

// Current reports the Machine's state.
func (m *Machine) Current() State { return m.current }

// Advance transitions to next, returning an error if next is not a legal
// successor of the current state. Advancing is refused once Cancel has
// been called except toward HOMING/IDLE, matching the "always passes
// through HOMING before IDLE" rule.
func (m *Machine) Advance(next State) error {
	if m.cancelled {
		if next != StateHoming && next != StateIdle {
			return fmt.Errorf("motor: cancelled, must transition through HOMING to IDLE, not %s", next)
		}
		if next == StateIdle && m.current != StateHoming {
			return fmt.Errorf("motor: cancelled, must pass through HOMING before IDLE, not %s -> %s", m.current, next)
		}
		m.current = next
		return nil
	}

	for _, ok := range legalNext[m.current] {
		if ok == next {
			m.current = next
			return nil
		}
	}
	return fmt.Errorf("motor: illegal transition %s -> %s", m.current, next)
}

// Cancel marks the Machine cancelled; the next Advance call must move
// toward HOMING (spec.md §4.D: cancellation is valid in every state).
func (m *Machine) Cancel() { m.cancelled = true }

// Cancelled reports whether Cancel has been called.
func (m *Machine) Cancelled() bool { return m.cancelled }
