package option

import (
	"testing"

	"github.com/corescan/sane/internal/device"
	"github.com/corescan/sane/internal/timing"
	"github.com/stretchr/testify/assert"
)

func testDevice() *device.Device {
	return &device.Device{
		Vendor:      "Acme",
		Model:       "Flatbed 9000",
		OpticalDPIX: 600,
		OpticalDPIY: 600,
		BitDepths:   []int{1, 8, 24},
		Modes:       []device.Mode{device.ModeLineart, device.ModeGray, device.ModeColor},
		Sources:     []device.Source{device.SourceFlatbed, device.SourceADF},
	}
}

// Property 1 (spec.md §8): setting the same value twice is idempotent and
// the second SET reports no reload.
func TestLineartModeIdempotent(t *testing.T) {
	m := NewModel(testDevice())
	v := &Values{Mode: device.ModeGray}

	v.Mode = device.ModeLineart
	info1 := ApplyCrossEffects(m, v, NameMode)
	assert.True(t, info1.ReloadOpts)
	snapshot := *v
	thresholdActive := m.Descriptors[NameThreshold].active()
	assert.True(t, thresholdActive)

	// Re-applying the same mode must leave descriptors and values
	// unchanged; ApplyCrossEffects still reports a reload because it
	// always does for MODE (spec.md doesn't special-case "unchanged
	// value" at this layer — that's the session's job before calling in,
	// see session.ControlOption), but the resulting state is identical.
	v.Mode = device.ModeLineart
	ApplyCrossEffects(m, v, NameMode)
	assert.Equal(t, snapshot, *v)
	assert.Equal(t, thresholdActive, m.Descriptors[NameThreshold].active())
}

func TestLineartActivatesThresholdDeactivatesGammaAndBrightness(t *testing.T) {
	m := NewModel(testDevice())
	v := &Values{Mode: device.ModeLineart}
	ApplyCrossEffects(m, v, NameMode)
	assert.True(t, m.Descriptors[NameThreshold].active())
	assert.False(t, m.Descriptors[NameGamma].active())
	assert.False(t, m.Descriptors[NameBrightness].active())

	v.Mode = device.ModeColor
	ApplyCrossEffects(m, v, NameMode)
	assert.False(t, m.Descriptors[NameThreshold].active())
	assert.True(t, m.Descriptors[NameGamma].active())
	assert.True(t, m.Descriptors[NameBrightness].active())
}

func TestFixedPaperSizeDeactivatesTLBR(t *testing.T) {
	m := NewModel(testDevice())
	v := &Values{PaperSize: timing.PaperA4}
	ApplyCrossEffects(m, v, NamePaperSize)
	assert.False(t, m.Descriptors[NameTLX].active())
	assert.False(t, m.Descriptors[NameBRY].active())
	assert.Equal(t, 210.0, v.BBox.BRX)
	assert.Equal(t, 297.0, v.BBox.BRY)
}

func TestA5DefaultsLandscape(t *testing.T) {
	m := NewModel(testDevice())
	v := &Values{PaperSize: timing.PaperA5}
	ApplyCrossEffects(m, v, NamePaperSize)
	assert.True(t, v.Landscape)
	assert.InDelta(t, 210.0, v.BBox.BRX, 0.001)
	assert.InDelta(t, 148.0, v.BBox.BRY, 0.001)
}

func TestUserDefPaperSizeReactivatesTLBR(t *testing.T) {
	m := NewModel(testDevice())
	v := &Values{PaperSize: timing.PaperA4}
	ApplyCrossEffects(m, v, NamePaperSize)
	v.PaperSize = timing.PaperUserDef
	ApplyCrossEffects(m, v, NamePaperSize)
	assert.True(t, m.Descriptors[NameTLX].active())
	assert.True(t, m.Descriptors[NameBRY].active())
}

func TestManualFeedOffDeactivatesTimeout(t *testing.T) {
	m := NewModel(testDevice())
	v := &Values{ManualFeed: true}
	ApplyCrossEffects(m, v, NameManualFeed)
	assert.True(t, m.Descriptors[NameFeedTimeout].active())

	v.ManualFeed = false
	ApplyCrossEffects(m, v, NameManualFeed)
	assert.False(t, m.Descriptors[NameFeedTimeout].active())
}

func TestClampTLReportsInexact(t *testing.T) {
	tl, inexact := ClampTL(290, 295, 10)
	assert.True(t, inexact)
	assert.Equal(t, 285.0, tl)

	tl2, inexact2 := ClampTL(10, 295, 10)
	assert.False(t, inexact2)
	assert.Equal(t, 10.0, tl2)
}

func TestValidateResolutionSteps(t *testing.T) {
	d := testDevice()
	v := Values{Mode: device.ModeGray, Source: device.SourceFlatbed, ResolutionX: 600, ResolutionY: 600, BBox: BBox{0, 0, 100, 100}}
	assert.NoError(t, Validate(v, d, 300, 300))

	v.ResolutionX = 601 // not on the 5% step above base
	assert.Error(t, Validate(v, d, 300, 300))
}

func TestValidateBBoxInvariant(t *testing.T) {
	d := testDevice()
	v := Values{Mode: device.ModeGray, Source: device.SourceFlatbed, ResolutionX: 600, ResolutionY: 600, BBox: BBox{TLX: 290, TLY: 0, BRX: 295, BRY: 100}}
	err := Validate(v, d, 300, 300)
	assert.NoError(t, err) // 290+1 <= 295 <= 300

	v.BBox.BRX = 290.5
	assert.Error(t, Validate(v, d, 300, 300))
}
