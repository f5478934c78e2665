package motor

// FIFOStatus reports how many bytes are currently queued in the device's
// capture FIFO, abstracting over the two ways spec.md §4.D's "FIFO-paced
// read loop" reads it: GET_BUFFER_STATUS on USB/SCSI, RegFifoOffset on
// parallel-port.
type FIFOStatus interface {
	BytesAvailable() (int, error)
}

// Pacer tracks FIFO occupancy across successive polls and decides whether
// the current speed index should be throttled back, matching spec.md
// §4.D: "Thresholds: if FIFO above OverflowThresh and climbing, reduce
// speed index; on stall (device busy without FIFO growth) re-issue the
// current segment."
type Pacer struct {
	overflowThresh int
	minSpeedIndex  int
	maxSpeedIndex  int

	speedIndex int
	lastBytes  int
	stallTicks int
}

// stallBudget is how many consecutive non-growing polls constitute a
// stall worth re-issuing the segment for.
const stallBudget = 3

// NewPacer starts a Pacer at startSpeedIndex, clamped to
// [minSpeedIndex, maxSpeedIndex].
func NewPacer(overflowThresh, minSpeedIndex, maxSpeedIndex, startSpeedIndex int) *Pacer {
	if startSpeedIndex < minSpeedIndex {
		startSpeedIndex = minSpeedIndex
	}
	if startSpeedIndex > maxSpeedIndex {
		startSpeedIndex = maxSpeedIndex
	}
	return &Pacer{
		overflowThresh: overflowThresh,
		minSpeedIndex:  minSpeedIndex,
		maxSpeedIndex:  maxSpeedIndex,
		speedIndex:     startSpeedIndex,
		lastBytes:      -1,
	}
}

// Decision is what the read loop should do after one FIFO poll.
type Decision int

const (
	DecisionContinue Decision = iota
	DecisionReduceSpeed
	DecisionReissueSegment
)

// SpeedIndex reports the Pacer's current speed index.
func (p *Pacer) SpeedIndex() int { return p.speedIndex }

// Poll records one FIFO occupancy sample and returns the resulting
// Decision.
func (p *Pacer) Poll(bytesAvailable int) Decision {
	growing := p.lastBytes >= 0 && bytesAvailable > p.lastBytes
	notGrowing := p.lastBytes >= 0 && bytesAvailable <= p.lastBytes

	decision := DecisionContinue

	if bytesAvailable > p.overflowThresh && growing {
		if p.speedIndex > p.minSpeedIndex {
			p.speedIndex--
		}
		decision = DecisionReduceSpeed
	}

	if notGrowing {
		p.stallTicks++
		if p.stallTicks >= stallBudget {
			p.stallTicks = 0
			decision = DecisionReissueSegment
		}
	} else {
		p.stallTicks = 0
	}

	p.lastBytes = bytesAvailable
	return decision
}
