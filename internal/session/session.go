package session

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/corescan/sane/internal/assemble"
	"github.com/corescan/sane/internal/calib"
	"github.com/corescan/sane/internal/command"
	"github.com/corescan/sane/internal/device"
	"github.com/corescan/sane/internal/motor"
	"github.com/corescan/sane/internal/option"
	"github.com/corescan/sane/internal/sanecore"
	"github.com/corescan/sane/internal/sense"
	"github.com/corescan/sane/internal/transport"
)

// State is one node of spec.md §4.G's SessionFSM state set.
type State int

const (
	StateIdle State = iota
	StateOpened
	StateConfigured
	StateScanningFront
	StateScanningBack
	StatePageEOF
	StateCancelled
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateOpened:
		return "OPENED"
	case StateConfigured:
		return "CONFIGURED"
	case StateScanningFront:
		return "SCANNING_SIDE_FRONT"
	case StateScanningBack:
		return "SCANNING_SIDE_BACK"
	case StatePageEOF:
		return "PAGE_EOF"
	case StateCancelled:
		return "CANCELLED"
	case StateFaulted:
		return "FAULTED"
	default:
		return "UNKNOWN"
	}
}

// defaultFeedTimeout is spec.md §5's "default 30 s" FEED_TIMEOUT.
const defaultFeedTimeout = 30 * time.Second

// Session owns everything spec.md §3's Ownership line assigns it
// exclusively: Transport, OptionValues, DerivedParams, RingBuffer (via
// *assemble.Assembler), MotorProgram state and CalibrationArtifacts.
// Session is single-threaded per spec.md §5 ("single-threaded, cooperative
// per Session"); the mutex below guards only the cancel flag, which must
// be observable from a concurrent caller per spec.md §5's "cancel never
// blocks".
type Session struct {
	device   *device.Device
	registry *device.Registry
	tr       transport.Transport

	model  *option.Model
	values option.Values

	state  State
	params Params

	mu         sync.Mutex
	cancelled  bool
	cancelHalt bool // set once cancel's HOMING->IDLE transition has run, so it only runs once

	lastScanEnd time.Time
	warmupS     time.Duration

	asm   *assemble.Assembler
	motor *motor.Machine
	pacer *motor.Pacer
	precal calib.Session
	faultErr error

	noPrecal  bool // disables the "clever precalibration" skip optimisation process-wide
	noRealCal bool // disables on-scanner calibration entirely process-wide

	currentSide  command.Side
	page         byte
	duplexSkip   int // bytes of BACK-side dummy skip remaining, spec.md §4.D duplex alignment
	skipPending  int // bytes still to discard from the current side's stream for duplex alignment
}

// Open implements spec.md §4.G open: "Opens transport, attempts three
// TEST_UNIT_READY, sets timeout from option, initialises option model from
// device caps."
func Open(ctx context.Context, reg *device.Registry, name string, tr transport.Transport) (*Session, error) {
	d := reg.Find(name)
	if d == nil {
		return nil, sanecore.New(sanecore.KindInval, fmt.Errorf("session: unknown device %q", name))
	}
	if err := reg.Open(d); err != nil {
		return nil, err
	}

	s := &Session{
		device:   d,
		registry: reg,
		tr:       tr,
		model:    option.NewModel(d),
		state:    StateOpened,
		warmupS:  2 * time.Second,
	}
	s.values = defaultValues(d)

	if err := s.testUnitReadyRetry(ctx); err != nil {
		reg.Close(d)
		return nil, err
	}
	if _, err := s.tr.SendCommand(ctx, command.CDB(command.OpSetTimeout), command.DirOut, command.SetTimeoutCDB(uint16(defaultFeedTimeout/time.Second))); err != nil {
		reg.Close(d)
		return nil, sanecore.New(sanecore.KindIOError, err)
	}

	s.state = StateConfigured
	return s, nil
}

func defaultValues(d *device.Device) option.Values {
	v := option.Values{
		Mode:        device.ModeGray,
		Source:      device.SourceFlatbed,
		ResolutionX: float64(d.OpticalDPIX),
		ResolutionY: float64(d.OpticalDPIY),
		BBox:        option.BBox{TLX: 0, TLY: 0, BRX: 215.9, BRY: 279.4},
		FeedTimeout: int(defaultFeedTimeout / time.Second),
	}
	return v
}

// testUnitReadyRetry sends TEST_UNIT_READY up to 3 times back to back and
// returns DEVICE_BUSY if none succeeds. The transport is not re-opened
// between attempts and no delay is inserted between them.
func (s *Session) testUnitReadyRetry(ctx context.Context) error {
	var lastErr error
	for i := 0; i < 3; i++ {
		_, err := s.tr.SendCommand(ctx, command.CDB(command.OpTestUnitReady), command.DirNone, nil)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return sanecore.New(sanecore.KindDeviceBusy, lastErr)
}

// requestSense issues REQUEST_SENSE and decodes it centrally (spec.md §9:
// "sense is always decoded centrally... and never duplicated at call
// sites").
func (s *Session) requestSense(ctx context.Context) error {
	payload, err := s.tr.SendCommand(ctx, command.CDB(command.OpRequestSense), command.DirIn, make([]byte, command.RequestSenseLen))
	if err != nil {
		return sanecore.New(sanecore.KindIOError, err)
	}
	kind := sense.DecodeBuffer(payload)
	if kind == sanecore.KindNone {
		return nil
	}
	return sanecore.New(kind, nil)
}

// sendChecked issues cmd and, on ErrCheckCondition, immediately follows
// with REQUEST_SENSE per spec.md §5 ("On CHECK_CONDITION, REQUEST_SENSE
// must be the very next command issued on that Session").
func (s *Session) sendChecked(ctx context.Context, cdb []byte, dir command.Direction, out []byte) ([]byte, error) {
	payload, err := s.tr.SendCommand(ctx, cdb, dir, out)
	if err == transport.ErrCheckCondition {
		if senseErr := s.requestSense(ctx); senseErr != nil {
			return payload, senseErr
		}
		return payload, sanecore.New(sanecore.KindIOError, fmt.Errorf("session: CHECK_CONDITION with empty sense"))
	}
	if err != nil {
		return payload, sanecore.New(sanecore.KindIOError, err)
	}
	return payload, nil
}

// SetCalibPolicy applies the process-wide NoPrecal/NoRealCal switches
// (SPEC_FULL.md config section) to this Session: noPrecal forces full
// calibration on every Start by bypassing the precal cache's
// NeedsFullCalibration check; noRealCal skips driving the scanner's
// calibration hardware entirely, leaving runMotorSequence's CALIBRATE
// transition as a no-op.
func (s *Session) SetCalibPolicy(noPrecal, noRealCal bool) {
	s.noPrecal = noPrecal
	s.noRealCal = noRealCal
}

// Values returns the Session's current OptionValues, for frontends
// rendering control_option(GET) (spec.md §6.1).
func (s *Session) Values() option.Values { return s.values }

// GetOptionDescriptor implements spec.md §6.1 get_option_descriptor(i).
func (s *Session) GetOptionDescriptor(i int) (option.Descriptor, bool) {
	if i < 0 || i >= len(s.model.Order) {
		return option.Descriptor{}, false
	}
	return *s.model.Descriptors[s.model.Order[i]], true
}

// ControlOption implements spec.md §4.G control_option(i, GET|SET|SET_AUTO,
// value), returning the accumulated info_flags.
func (s *Session) ControlOption(name string, action option.Action, apply func(*option.Values)) (option.Info, error) {
	if s.state == StateFaulted {
		return option.Info{}, sanecore.New(sanecore.KindInval, fmt.Errorf("session: faulted"))
	}
	d, ok := s.model.Descriptors[name]
	if !ok {
		return option.Info{}, sanecore.New(sanecore.KindInval, fmt.Errorf("session: unknown option %q", name))
	}
	if action != option.ActionGet && !d.Settable() {
		return option.Info{}, sanecore.New(sanecore.KindInval, fmt.Errorf("session: option %q is not settable", name))
	}
	if action == option.ActionGet {
		return option.Info{}, nil
	}

	before := s.values
	apply(&s.values)
	if reflect.DeepEqual(before, s.values) {
		// Setting the value an option already holds changes nothing and
		// reloads nothing.
		return option.Info{}, nil
	}
	info := option.ApplyCrossEffects(s.model, &s.values, name)
	if err := option.Validate(s.values, s.device, 500, 500); err != nil {
		s.values = before
		return option.Info{}, err
	}
	return info, nil
}
