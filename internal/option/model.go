package option

import (
	"github.com/corescan/sane/internal/device"
	"github.com/corescan/sane/internal/timing"
)

// Option names, used as Descriptor.Name / the frontend's option index
// lookup key (pkg/sane resolves human option names to these).
const (
	NameMode          = "mode"
	NameResolutionX   = "resolution-x"
	NameResolutionY   = "resolution-y"
	NameSource        = "source"
	NameDuplex        = "duplex"
	NamePaperSize     = "paper-size"
	NameLandscape     = "landscape"
	NameTLX           = "tl-x"
	NameTLY           = "tl-y"
	NameBRX           = "br-x"
	NameBRY           = "br-y"
	NameBrightness    = "brightness"
	NameContrast      = "contrast"
	NameThreshold     = "threshold"
	NameGamma         = "gamma"
	NameDoubleFeed    = "double-feed-detect"
	NameManualFeed    = "manual-feed"
	NameFeedTimeout   = "feed-timeout"
	NameImageEmphasis = "image-emphasis"
	NameLampDropout   = "lamp-dropout"
)

// Model is the live set of Descriptors for one Session, derived from a
// Device's capabilities. Descriptors' active/inactive caps are mutated in
// place by ApplyCrossEffects whenever a value changes (spec.md §4.F).
type Model struct {
	Descriptors map[string]*Descriptor
	Order       []string // descriptor iteration order for get_option_descriptor(i)
}

// NewModel builds a Model from a Device's capabilities.
func NewModel(d *device.Device) *Model {
	strList := func(ss []string) []string { return ss }
	var modes []string
	for _, m := range d.Modes {
		modes = append(modes, string(m))
	}
	var sources []string
	for _, s := range d.Sources {
		sources = append(sources, string(s))
	}

	m := &Model{Descriptors: map[string]*Descriptor{}}
	add := func(desc Descriptor) {
		m.Descriptors[desc.Name] = &desc
		m.Order = append(m.Order, desc.Name)
	}

	add(Descriptor{Name: NameMode, Type: TypeString, Constraint: ConstraintStringList, StringList: strList(modes), Caps: CapSoftSelect})
	add(Descriptor{Name: NameResolutionX, Type: TypeFixed, Constraint: ConstraintRange, Range: Range{Min: 1, Max: d.OpticalDPIX * 4, Quant: 0}, Caps: CapSoftSelect})
	add(Descriptor{Name: NameResolutionY, Type: TypeFixed, Constraint: ConstraintRange, Range: Range{Min: 1, Max: d.OpticalDPIY * 4, Quant: 0}, Caps: CapSoftSelect})
	add(Descriptor{Name: NameSource, Type: TypeString, Constraint: ConstraintStringList, StringList: strList(sources), Caps: CapSoftSelect})
	add(Descriptor{Name: NameDuplex, Type: TypeBool, Caps: CapSoftSelect})
	add(Descriptor{Name: NamePaperSize, Type: TypeString, Constraint: ConstraintStringList, StringList: []string{"user-def", "a3", "a4", "a5", "a6", "b4", "b5", "b6", "letter", "legal"}, Caps: CapSoftSelect})
	add(Descriptor{Name: NameLandscape, Type: TypeBool, Caps: CapSoftSelect})
	add(Descriptor{Name: NameTLX, Type: TypeFixed, Caps: CapSoftSelect})
	add(Descriptor{Name: NameTLY, Type: TypeFixed, Caps: CapSoftSelect})
	add(Descriptor{Name: NameBRX, Type: TypeFixed, Caps: CapSoftSelect})
	add(Descriptor{Name: NameBRY, Type: TypeFixed, Caps: CapSoftSelect})
	add(Descriptor{Name: NameBrightness, Type: TypeInt, Constraint: ConstraintRange, Range: Range{Min: -127, Max: 127, Quant: 1}, Caps: CapSoftSelect | CapAdvanced})
	add(Descriptor{Name: NameContrast, Type: TypeInt, Constraint: ConstraintRange, Range: Range{Min: -127, Max: 127, Quant: 1}, Caps: CapSoftSelect | CapAdvanced})
	add(Descriptor{Name: NameThreshold, Type: TypeInt, Constraint: ConstraintRange, Range: Range{Min: 0, Max: 255, Quant: 1}, Caps: CapSoftSelect | CapInactive})
	add(Descriptor{Name: NameGamma, Type: TypeFixed, Caps: CapSoftSelect | CapAdvanced})
	add(Descriptor{Name: NameDoubleFeed, Type: TypeBool, Caps: CapSoftSelect | CapAdvanced})
	add(Descriptor{Name: NameManualFeed, Type: TypeBool, Caps: CapSoftSelect})
	add(Descriptor{Name: NameFeedTimeout, Type: TypeInt, Constraint: ConstraintRange, Range: Range{Min: 1, Max: 300, Quant: 1}, Caps: CapSoftSelect | CapInactive})
	add(Descriptor{Name: NameImageEmphasis, Type: TypeInt, Caps: CapSoftSelect | CapAdvanced})
	add(Descriptor{Name: NameLampDropout, Type: TypeInt, Caps: CapSoftSelect | CapAdvanced})

	return m
}

func (m *Model) setActive(name string, active bool) {
	d, ok := m.Descriptors[name]
	if !ok {
		return
	}
	if active {
		d.Caps &^= CapInactive
	} else {
		d.Caps |= CapInactive
	}
}

// ApplyCrossEffects applies spec.md §4.F's cross-option effects atomically
// after any option change, mutating both m's active/inactive caps and v in
// place, and returns the accumulated Info flags.
func ApplyCrossEffects(m *Model, v *Values, changed string) Info {
	var info Info

	switch changed {
	case NameMode:
		info.ReloadOpts = true
		info.ReloadParams = true
		if v.Mode == device.ModeLineart {
			m.setActive(NameThreshold, true)
			m.setActive(NameGamma, false)
			m.setActive(NameBrightness, false)
		} else {
			m.setActive(NameThreshold, false)
			m.setActive(NameGamma, true)
			m.setActive(NameBrightness, true)
		}

	case NamePaperSize:
		if v.PaperSize == timing.PaperUserDef {
			m.setActive(NameTLX, true)
			m.setActive(NameTLY, true)
			m.setActive(NameBRX, true)
			m.setActive(NameBRY, true)
		} else {
			m.setActive(NameTLX, false)
			m.setActive(NameTLY, false)
			m.setActive(NameBRX, false)
			m.setActive(NameBRY, false)
			v.Landscape = timing.LandscapeDefault(v.PaperSize)
			if dims, ok := timing.DimensionsOf(v.PaperSize); ok {
				w, h := dims.WidthMM, dims.HeightMM
				if v.Landscape {
					w, h = h, w
				}
				v.BBox = BBox{TLX: 0, TLY: 0, BRX: w, BRY: h}
			}
		}
		info.ReloadOpts = true
		info.ReloadParams = true

	case NameManualFeed:
		m.setActive(NameFeedTimeout, v.ManualFeed)
		info.ReloadOpts = true

	case NameTLX, NameTLY, NameBRX, NameBRY, NameResolutionX, NameResolutionY, NameSource, NameDuplex:
		info.ReloadParams = true
	}

	return info
}
