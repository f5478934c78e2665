// Package sane is the frontend-facing surface of spec.md §6.1: init, exit,
// get_devices, open, close, get_option_descriptor, control_option,
// get_parameters, start, read, cancel, set_io_mode and get_select_fd,
// implemented over internal/session rather than linked against libsane.
// The Type/Unit/Format/Option/Params/Info naming below mirrors the shape a
// cgo SANE client binding exposes, so a frontend author moving from one to
// the other finds the same vocabulary.
package sane

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/corescan/sane/internal/device"
	"github.com/corescan/sane/internal/discover"
	"github.com/corescan/sane/internal/option"
	"github.com/corescan/sane/internal/sanecore"
	"github.com/corescan/sane/internal/sanelog"
	"github.com/corescan/sane/internal/session"
	"github.com/corescan/sane/internal/transport"
)

// Type mirrors spec.md §4.F's OptionModel value types.
type Type = option.Type

const (
	TypeBool   = option.TypeBool
	TypeInt    = option.TypeInt
	TypeFixed  = option.TypeFixed
	TypeString = option.TypeString
)

// Format mirrors spec.md §6.1's frame format in Params.
type Format = session.Format

const (
	FormatGray  = session.FormatGray
	FormatRGB   = session.FormatRGB
	FormatRed   = session.FormatRed
	FormatGreen = session.FormatGreen
	FormatBlue  = session.FormatBlue
)

// Info mirrors spec.md §4.F/§6.1's info_flags.
type Info = option.Info

// Range is a RANGE{min,max,quant} constraint (spec.md §4.F).
type Range = option.Range

// Option is the frontend-facing rendering of an internal/option.Descriptor.
type Option struct {
	Name       string
	Type       Type
	Constraint option.ConstraintKind
	Range      Range
	StringList []string
	WordList   []int
	IsActive   bool
	IsSettable bool
}

// Params mirrors spec.md §6.1's get_parameters result.
type Params = session.Params

// Action selects control_option's verb (spec.md §6.1).
type Action = option.Action

const (
	ActionGet     = option.ActionGet
	ActionSet     = option.ActionSet
	ActionSetAuto = option.ActionSetAuto
)

// Device is the frontend-facing rendering of an internal/device.Device,
// named the way spec.md §6.1 get_devices() reports them.
type Device struct {
	Name   string // DevicePath: what Open takes
	Vendor string
	Model  string
}

// Errors mirror spec.md §7's taxonomy, one per sanecore.Kind a frontend
// operation can surface.
var (
	ErrUnsupported = fmt.Errorf("sane: operation not supported")
	ErrCancelled   = fmt.Errorf("sane: operation cancelled")
	ErrBusy        = fmt.Errorf("sane: device busy")
	ErrInvalid     = fmt.Errorf("sane: invalid argument")
	ErrJammed      = fmt.Errorf("sane: feeder jammed")
	ErrNoDocs      = fmt.Errorf("sane: no documents")
	ErrCoverOpen   = fmt.Errorf("sane: cover open")
	ErrIO          = fmt.Errorf("sane: input/output error")
	ErrNoMem       = fmt.Errorf("sane: out of memory")
	ErrDenied      = fmt.Errorf("sane: access denied")
)

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch sanecore.KindOf(err) {
	case sanecore.KindUnsupported:
		return ErrUnsupported
	case sanecore.KindCancelled:
		return ErrCancelled
	case sanecore.KindDeviceBusy:
		return ErrBusy
	case sanecore.KindInval:
		return ErrInvalid
	case sanecore.KindJammed:
		return ErrJammed
	case sanecore.KindNoDocs:
		return ErrNoDocs
	case sanecore.KindCoverOpen:
		return ErrCoverOpen
	case sanecore.KindNoMem:
		return ErrNoMem
	case sanecore.KindAccessDenied:
		return ErrDenied
	case sanecore.KindEOF:
		return io.EOF
	default:
		return ErrIO
	}
}

// state is the package-level registry and discovery state Init/Exit manage,
// mirroring libsane's process-wide sane_init/sane_exit lifetime.
var state struct {
	mu       sync.Mutex
	reg      *device.Registry
	log      *sanelog.Logger
	cancel   context.CancelFunc
	known    map[string]*device.Device
	initDone bool
}

// Init must be called before any other package function (spec.md §6.1
// init()). backendName selects the SANE_DEBUG_<BACKEND> environment
// variable sanelog consults for verbosity.
func Init(backendName string, known []*device.Device) error {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.initDone {
		return nil
	}
	state.reg = device.NewRegistry()
	state.log = sanelog.New(backendName)
	state.known = map[string]*device.Device{}
	for _, d := range known {
		vendorID, productID := uint16(d.ModelID>>16), uint16(d.ModelID)
		state.known[fmt.Sprintf("%04x:%04x", vendorID, productID)] = d
	}

	if err := discover.ScanUSB(state.reg, state.known, state.log); err != nil {
		state.log.Warn("initial usb scan failed", "err", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	state.cancel = cancel
	go func() {
		if err := discover.WatchUSB(ctx, state.reg, state.known, state.log); err != nil {
			state.log.Warn("usb watch stopped", "err", err)
		}
	}()

	state.initDone = true
	return nil
}

// Exit releases all resources in use, stopping hotplug watching (spec.md
// §6.1 exit()). The package cannot be used again before Init is called.
func Exit() {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.cancel != nil {
		state.cancel()
	}
	state.initDone = false
	state.reg = nil
	state.log = nil
}

// GetDevices lists all currently known devices (spec.md §6.1 get_devices()).
func GetDevices() []Device {
	state.mu.Lock()
	reg := state.reg
	state.mu.Unlock()
	if reg == nil {
		return nil
	}
	var out []Device
	for _, d := range reg.List() {
		out = append(out, Device{Name: d.DevicePath, Vendor: d.Vendor, Model: d.Model})
	}
	return out
}

// Handle is an open connection to one device (spec.md §6.1's opaque
// session handle), wrapping *internal/session.Session.
type Handle struct {
	s *session.Session
}

// TransportFor resolves the right Transport for a named device, since
// pkg/sane itself has no knowledge of physical wiring; callers supply it
// (cmd/sanescand wires this from CLI flags / config at open time).
type TransportFor func(d *device.Device) (transport.Transport, error)

// Open opens a connection to name (spec.md §6.1 open(device_name)).
func Open(ctx context.Context, name string, transportFor TransportFor) (*Handle, error) {
	state.mu.Lock()
	reg := state.reg
	state.mu.Unlock()
	if reg == nil {
		return nil, ErrInvalid
	}
	d := reg.Find(name)
	if d == nil {
		return nil, ErrInvalid
	}
	tr, err := transportFor(d)
	if err != nil {
		return nil, mapErr(err)
	}
	s, err := session.Open(ctx, reg, name, tr)
	if err != nil {
		return nil, mapErr(err)
	}
	return &Handle{s: s}, nil
}

// SetCalibPolicy applies the process-wide NoPrecal/NoRealCal config
// switches to this Handle's Session (SPEC_FULL.md config section);
// callers pull noPrecal/noRealCal from internal/config.Load's result.
func (h *Handle) SetCalibPolicy(noPrecal, noRealCal bool) {
	h.s.SetCalibPolicy(noPrecal, noRealCal)
}

// GetOptionDescriptor implements spec.md §6.1 get_option_descriptor(i).
func (h *Handle) GetOptionDescriptor(i int) (Option, bool) {
	d, ok := h.s.GetOptionDescriptor(i)
	if !ok {
		return Option{}, false
	}
	return Option{
		Name:       d.Name,
		Type:       d.Type,
		Constraint: d.Constraint,
		Range:      d.Range,
		StringList: d.StringList,
		WordList:   d.WordList,
		IsActive:   d.Active(),
		IsSettable: d.Settable(),
	}, true
}

// ControlOption implements spec.md §6.1 control_option(i, action, value).
// val's concrete type must match the option's Type (bool, int, float64 for
// TypeFixed, or string), or be nil for ActionSetAuto.
func (h *Handle) ControlOption(name string, action Action, val interface{}) (Info, error) {
	if action == ActionGet {
		info, err := h.s.ControlOption(name, action, func(*option.Values) {})
		return info, mapErr(err)
	}
	info, err := h.s.ControlOption(name, action, func(v *option.Values) {
		applyOption(v, name, val)
	})
	return info, mapErr(err)
}

// applyOption writes val into the Values field named by name. Unknown
// names are a no-op here; Session.ControlOption has already validated name
// exists in the Model before invoking this callback.
func applyOption(v *option.Values, name string, val interface{}) {
	switch name {
	case option.NameMode:
		if s, ok := val.(string); ok {
			v.Mode = device.Mode(s)
		}
	case option.NameResolutionX:
		if f, ok := val.(float64); ok {
			v.ResolutionX = f
		}
	case option.NameResolutionY:
		if f, ok := val.(float64); ok {
			v.ResolutionY = f
		}
	case option.NameSource:
		if s, ok := val.(string); ok {
			v.Source = device.Source(s)
		}
	case option.NameDuplex:
		if b, ok := val.(bool); ok {
			v.Duplex = b
		}
	case option.NameLandscape:
		if b, ok := val.(bool); ok {
			v.Landscape = b
		}
	case option.NameTLX:
		if f, ok := val.(float64); ok {
			v.BBox.TLX = f
		}
	case option.NameTLY:
		if f, ok := val.(float64); ok {
			v.BBox.TLY = f
		}
	case option.NameBRX:
		if f, ok := val.(float64); ok {
			v.BBox.BRX = f
		}
	case option.NameBRY:
		if f, ok := val.(float64); ok {
			v.BBox.BRY = f
		}
	case option.NameBrightness:
		if n, ok := val.(int); ok {
			v.Brightness = n
		}
	case option.NameContrast:
		if n, ok := val.(int); ok {
			v.Contrast = n
		}
	case option.NameThreshold:
		if n, ok := val.(int); ok {
			v.Threshold = n
		}
	case option.NameDoubleFeed:
		if b, ok := val.(bool); ok {
			v.DoubleFeed = b
		}
	case option.NameManualFeed:
		if b, ok := val.(bool); ok {
			v.ManualFeed = b
		}
	case option.NameFeedTimeout:
		if n, ok := val.(int); ok {
			v.FeedTimeout = n
		}
	case option.NameImageEmphasis:
		if n, ok := val.(int); ok {
			v.ImageEmphasis = n
		}
	case option.NameLampDropout:
		if n, ok := val.(int); ok {
			v.LampDropout = n
		}
	}
}

// GetOptionValue returns the option's current value as the appropriate Go
// type (bool, int, float64 or string), for frontends rendering
// control_option(name, ActionGet).
func (h *Handle) GetOptionValue(name string) (interface{}, error) {
	d, ok := h.s.GetOptionDescriptor(indexOf(h, name))
	if !ok {
		return nil, ErrInvalid
	}
	v := h.s.Values()
	switch d.Name {
	case option.NameMode:
		return string(v.Mode), nil
	case option.NameResolutionX:
		return v.ResolutionX, nil
	case option.NameResolutionY:
		return v.ResolutionY, nil
	case option.NameSource:
		return string(v.Source), nil
	case option.NameDuplex:
		return v.Duplex, nil
	case option.NameLandscape:
		return v.Landscape, nil
	case option.NameTLX:
		return v.BBox.TLX, nil
	case option.NameTLY:
		return v.BBox.TLY, nil
	case option.NameBRX:
		return v.BBox.BRX, nil
	case option.NameBRY:
		return v.BBox.BRY, nil
	case option.NameBrightness:
		return v.Brightness, nil
	case option.NameContrast:
		return v.Contrast, nil
	case option.NameThreshold:
		return v.Threshold, nil
	case option.NameDoubleFeed:
		return v.DoubleFeed, nil
	case option.NameManualFeed:
		return v.ManualFeed, nil
	case option.NameFeedTimeout:
		return v.FeedTimeout, nil
	case option.NameImageEmphasis:
		return v.ImageEmphasis, nil
	case option.NameLampDropout:
		return v.LampDropout, nil
	default:
		return nil, ErrInvalid
	}
}

// indexOf finds name's position in the Model's descriptor order, the index
// GetOptionDescriptor expects. Frontends that already track indices (the
// usual SANE usage pattern) should prefer iterating GetOptionDescriptor
// directly over calling this per lookup.
func indexOf(h *Handle, name string) int {
	for i := 0; ; i++ {
		d, ok := h.s.GetOptionDescriptor(i)
		if !ok {
			return -1
		}
		if d.Name == name {
			return i
		}
	}
}

// GetParameters implements spec.md §6.1 get_parameters().
func (h *Handle) GetParameters() Params { return h.s.GetParameters() }

// Start implements spec.md §6.1 start().
func (h *Handle) Start(ctx context.Context) error { return mapErr(h.s.Start(ctx)) }

// Read implements spec.md §6.1 read(buf), returning io.EOF when the
// current side's data is exhausted (frontends call Start again for the
// next side/page).
func (h *Handle) Read(buf []byte) (int, error) {
	n, err := h.s.Read(context.Background(), buf)
	return n, mapErr(err)
}

// Cancel implements spec.md §6.1 cancel(): never blocks.
func (h *Handle) Cancel() { h.s.Cancel() }

// Close implements spec.md §6.1 close().
func (h *Handle) Close() error { return mapErr(h.s.Close()) }

// SetIOMode implements spec.md §6.1 set_io_mode(blocking). This backend's
// Transport.SendCommand is always blocking; non-blocking mode is
// unsupported, matching real SANE backends without a select()-able fd.
func SetIOMode(blocking bool) error {
	if !blocking {
		return ErrUnsupported
	}
	return nil
}

// GetSelectFd implements spec.md §6.1 get_select_fd(). Always unsupported
// for the reason SetIOMode(false) is.
func GetSelectFd() (int, error) {
	return -1, ErrUnsupported
}
