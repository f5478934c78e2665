package device

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Override is a per-model table loaded from the expansion's devices.yaml
// (SPEC_FULL.md §3/§4.D): this is "the mechanism by which new
// [CCD/DAC] combinations are added" that spec.md's Non-goals defer rather
// than specify constants for.
type Override struct {
	Model       string  `yaml:"model"`
	ModelID     uint32  `yaml:"model_id"`
	OpticalDPIX int     `yaml:"optical_dpi_x"`
	OpticalDPIY int     `yaml:"optical_dpi_y"`
	SpeedSteps  int     `yaml:"speed_steps"`
	ColorScheme string  `yaml:"color_scheme"` // flat|seq_rgb|goofy_rgb|seq_2r2g2b
	GainCurve   []uint8 `yaml:"gain_curve"`   // empirical, never baked into code (spec.md Open Questions)
}

// LoadOverrides parses a devices.yaml file into a Model-keyed map.
func LoadOverrides(path string) (map[string]Override, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("device: read overrides %s: %w", path, err)
	}
	var list []Override
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("device: parse overrides %s: %w", path, err)
	}
	out := make(map[string]Override, len(list))
	for _, o := range list {
		out[o.Model] = o
	}
	return out, nil
}

func parseColorScheme(s string) ColorScheme {
	switch s {
	case "seq_rgb":
		return SchemeSeqRGB
	case "goofy_rgb":
		return SchemeGoofyRGB
	case "seq_2r2g2b":
		return SchemeSeq2R2G2B
	default:
		return SchemeFlat
	}
}

// Apply overlays o onto d in place.
func (o Override) Apply(d *Device) {
	if o.ModelID != 0 {
		d.ModelID = o.ModelID
	}
	if o.OpticalDPIX != 0 {
		d.OpticalDPIX = o.OpticalDPIX
	}
	if o.OpticalDPIY != 0 {
		d.OpticalDPIY = o.OpticalDPIY
	}
	if o.SpeedSteps != 0 {
		d.SpeedSteps = o.SpeedSteps
	}
	if o.ColorScheme != "" {
		d.ColorScheme = parseColorScheme(o.ColorScheme)
	}
}
