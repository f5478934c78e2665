package motor

// DuplexAlignmentBase is the reference resolution the device's "dummy
// length" is expressed against (spec.md §8 property 5: "the BACK image
// starts exactly dummy_length * resolution / 1200 lines later than FRONT
// in the consumer view").
const DuplexAlignmentBase = 1200

// DuplexOffsetLines converts GET_ADJUST_DATA's dummy_length into the extra
// line offset applied to the BACK side so FRONT/BACK stay aligned after
// transport skew (spec.md §4.D Duplex alignment, §8 property 5).
func DuplexOffsetLines(dummyLength uint16, resolutionDPI int) int {
	return int(float64(dummyLength)*float64(resolutionDPI)/DuplexAlignmentBase + 0.5)
}
