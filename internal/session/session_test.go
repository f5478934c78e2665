package session

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/corescan/sane/internal/command"
	"github.com/corescan/sane/internal/device"
	"github.com/corescan/sane/internal/option"
	"github.com/corescan/sane/internal/sanecore"
	"github.com/corescan/sane/internal/transport/transporttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDevice() *device.Device {
	return &device.Device{
		Vendor:      "ExampleCo",
		Model:       "ES-100",
		OpticalDPIX: 600,
		OpticalDPIY: 600,
		BitDepths:   []int{1, 8},
		Modes:       []device.Mode{device.ModeLineart, device.ModeGray, device.ModeColor},
		Transports:  []device.TransportKind{device.TransportUSB},
		Sources:     []device.Source{device.SourceFlatbed, device.SourceADF},
		ColorScheme: device.SchemeFlat,
		SpeedSteps:  34,
		DevicePath:  "/dev/bus/usb/001:002",
	}
}

// fakeBackend wires a transporttest.Fake's Default responder to behave like
// a cooperative USB/SCSI device across the full open/start/read/close
// sequence, dispatching on CDB opcode the way a real device's firmware
// would.
type fakeBackend struct {
	fake        *transporttest.Fake
	imageChunks int
}

func newFakeBackend() *fakeBackend {
	fb := &fakeBackend{fake: transporttest.New()}
	fb.fake.Default = fb.respond
	return fb
}

func (fb *fakeBackend) respond(cdb []byte, dir command.Direction, out []byte) ([]byte, error) {
	op := command.Opcode(cdb[0])
	switch op {
	case command.OpTestUnitReady, command.OpSetTimeout, command.OpSetWindow, command.OpScan:
		return nil, nil
	case command.OpRead10:
		switch command.Read10SubMode(cdb[2]) {
		case command.Read10PixelCount:
			buf := make([]byte, 8)
			binary.BigEndian.PutUint32(buf[0:4], 1417) // ~ (215.9/25.4)*600, rounded
			binary.BigEndian.PutUint32(buf[4:8], 1200)
			return buf, nil
		case command.Read10DocumentProbe:
			return []byte{1}, nil
		default:
			fb.imageChunks++
			if fb.imageChunks > 2 {
				return nil, nil
			}
			return make([]byte, len(out)), nil
		}
	case command.OpGetAdjustData:
		buf := make([]byte, command.GetAdjustDataLen)
		binary.BigEndian.PutUint16(buf[0:2], 0)
		return buf, nil
	case command.OpGetBufferStatus:
		buf := make([]byte, 16)
		binary.BigEndian.PutUint32(buf[12:16], 512)
		return buf, nil
	case command.OpRequestSense:
		return make([]byte, command.RequestSenseLen), nil
	default:
		return nil, nil
	}
}

func openTestSession(t *testing.T) (*Session, *fakeBackend) {
	t.Helper()
	reg := device.NewRegistry()
	reg.Add(testDevice())
	fb := newFakeBackend()
	s, err := Open(context.Background(), reg, "/dev/bus/usb/001:002", fb.fake)
	require.NoError(t, err)
	return s, fb
}

func TestOpenSetsConfiguredState(t *testing.T) {
	s, _ := openTestSession(t)
	assert.Equal(t, StateConfigured, s.state)
	assert.Equal(t, device.ModeGray, s.values.Mode)
}

func TestControlOptionIdempotence(t *testing.T) {
	s, _ := openTestSession(t)

	apply := func(v *option.Values) { v.Mode = device.ModeColor }
	info1, err := s.ControlOption(option.NameMode, option.ActionSet, apply)
	require.NoError(t, err)

	info2, err := s.ControlOption(option.NameMode, option.ActionSet, apply)
	require.NoError(t, err)

	assert.Equal(t, device.ModeColor, s.values.Mode)
	assert.True(t, info1.ReloadOpts)
	assert.Equal(t, 0, info2.Bits())
}

func TestControlOptionUnknownNameRejected(t *testing.T) {
	s, _ := openTestSession(t)
	_, err := s.ControlOption("not-a-real-option", option.ActionSet, func(*option.Values) {})
	require.Error(t, err)
	assert.Equal(t, sanecore.KindInval, sanecore.KindOf(err))
}

func TestGetParametersPureBeforeStart(t *testing.T) {
	s, _ := openTestSession(t)
	p1 := s.GetParameters()
	p2 := s.GetParameters()
	assert.Equal(t, p1, p2)
}

func TestStartReadDrainsToEOF(t *testing.T) {
	s, _ := openTestSession(t)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StateScanningFront, s.state)

	paramsDuringScan := s.GetParameters()
	assert.Equal(t, 1417, paramsDuringScan.PixelsPerLine)

	buf := make([]byte, 4096)
	total := 0
	var readErr error
	for {
		n, err := s.Read(context.Background(), buf)
		total += n
		if err != nil {
			readErr = err
			break
		}
	}
	assert.Equal(t, sanecore.KindEOF, sanecore.KindOf(readErr))
	assert.Greater(t, total, 0)
	assert.Equal(t, StatePageEOF, s.state)
}

func TestCancelIsObservedAtNextRead(t *testing.T) {
	s, _ := openTestSession(t)
	require.NoError(t, s.Start(context.Background()))

	s.Cancel()

	buf := make([]byte, 4096)
	_, err := s.Read(context.Background(), buf)
	require.Error(t, err)
	assert.Equal(t, sanecore.KindCancelled, sanecore.KindOf(err))
	assert.Equal(t, StateCancelled, s.state)
}

func TestCloseReleasesRegistryClaim(t *testing.T) {
	s, fb := openTestSession(t)
	require.NoError(t, s.Close())
	assert.True(t, fb.fake.Closed)

	// Close frees the one-open-Session claim, so a fresh Open of the
	// same device on the same registry must succeed.
	reg := s.registry
	_, err := Open(context.Background(), reg, "/dev/bus/usb/001:002", newFakeBackend().fake)
	require.NoError(t, err)
}
