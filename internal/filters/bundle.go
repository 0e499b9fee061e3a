// Package filters defines the closed set of color-grading parameters a clip
// can carry, with documented ranges and identity defaults. Out-of-range
// values are clamped, never rejected, so a weird bundle can always be applied.
package filters

import "encoding/json"

// Parameter ranges. Identity values sit inside every range, so a clamped
// bundle is still a valid bundle.
const (
	BrightnessMin, BrightnessMax   = 0.0, 200.0 // percent, identity 100
	ContrastMin, ContrastMax       = 0.0, 200.0 // percent, identity 100
	SaturationMin, SaturationMax   = 0.0, 200.0 // percent, identity 100
	HueMin, HueMax                 = -180.0, 180.0
	BlurMin, BlurMax               = 0.0, 20.0 // px
	SepiaMin, SepiaMax             = 0.0, 100.0
	GammaMin, GammaMax             = 0.1, 10.0 // identity 1
	ExposureMin, ExposureMax       = -3.0, 3.0 // stops
	ShadowsMin, ShadowsMax         = -100.0, 100.0
	HighlightsMin, HighlightsMax   = -100.0, 100.0
	TemperatureMin, TemperatureMax = -100.0, 100.0
	TintMin, TintMax               = -100.0, 100.0
	VibranceMin, VibranceMax       = -100.0, 100.0
	ClarityMin, ClarityMax         = 0.0, 100.0
	GrainMin, GrainMax             = 0.0, 100.0
	VignetteMin, VignetteMax       = 0.0, 100.0
	IntensityMin, IntensityMax     = 0.0, 100.0
)

// RGB is an 8-bit color used by the zone tint passes.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Bundle is the full set of grading parameters for a clip. The zero value of
// each field is NOT its identity; construct with Identity() and override.
type Bundle struct {
	// Composite pass, CSS-filter equivalents, applied in this order.
	Brightness float64 `json:"brightness"` // percent
	Contrast   float64 `json:"contrast"`   // percent
	Saturation float64 `json:"saturation"` // percent
	Hue        float64 `json:"hue"`        // degrees
	Blur       float64 `json:"blur"`       // px
	Sepia      float64 `json:"sepia"`      // percent

	// Custom per-pixel passes.
	Vintage     bool    `json:"vintage"`
	BlackWhite  bool    `json:"black_white"`
	Gamma       float64 `json:"gamma"`
	Exposure    float64 `json:"exposure"`
	Shadows     float64 `json:"shadows"`
	Highlights  float64 `json:"highlights"`
	Temperature float64 `json:"temperature"`
	Tint        float64 `json:"tint"`
	Vibrance    float64 `json:"vibrance"`
	Clarity     float64 `json:"clarity"`
	Grain       float64 `json:"grain"`
	Vignette    float64 `json:"vignette"`

	// Zone color grading. Nil means the zone is untouched.
	ShadowTint    *RGB `json:"shadow_tint,omitempty"`
	MidtoneTint   *RGB `json:"midtone_tint,omitempty"`
	HighlightTint *RGB `json:"highlight_tint,omitempty"`

	// Named LUT, interpreted by the export stage only.
	LUT          string  `json:"lut,omitempty"`
	LUTIntensity float64 `json:"lut_intensity"`
}

// Identity returns the bundle that leaves every pixel untouched.
func Identity() Bundle {
	return Bundle{
		Brightness:   100,
		Contrast:     100,
		Saturation:   100,
		Gamma:        1,
		LUTIntensity: 100,
	}
}

// IsIdentity reports whether applying the bundle is a no-op for the preview
// kernel. A bare LUT assignment still counts as identity here: LUT sampling
// belongs to the export stage.
func (b Bundle) IsIdentity() bool {
	return b.Brightness == 100 && b.Contrast == 100 && b.Saturation == 100 &&
		b.Hue == 0 && b.Blur == 0 && b.Sepia == 0 &&
		!b.Vintage && !b.BlackWhite &&
		b.Gamma == 1 && b.Exposure == 0 && b.Shadows == 0 && b.Highlights == 0 &&
		b.Temperature == 0 && b.Tint == 0 && b.Vibrance == 0 && b.Clarity == 0 &&
		b.Grain == 0 && b.Vignette == 0 &&
		b.ShadowTint == nil && b.MidtoneTint == nil && b.HighlightTint == nil
}

// Clamp returns a copy with every numeric parameter forced into its
// documented range.
func (b Bundle) Clamp() Bundle {
	b.Brightness = clampF(b.Brightness, BrightnessMin, BrightnessMax)
	b.Contrast = clampF(b.Contrast, ContrastMin, ContrastMax)
	b.Saturation = clampF(b.Saturation, SaturationMin, SaturationMax)
	b.Hue = clampF(b.Hue, HueMin, HueMax)
	b.Blur = clampF(b.Blur, BlurMin, BlurMax)
	b.Sepia = clampF(b.Sepia, SepiaMin, SepiaMax)
	b.Gamma = clampF(b.Gamma, GammaMin, GammaMax)
	b.Exposure = clampF(b.Exposure, ExposureMin, ExposureMax)
	b.Shadows = clampF(b.Shadows, ShadowsMin, ShadowsMax)
	b.Highlights = clampF(b.Highlights, HighlightsMin, HighlightsMax)
	b.Temperature = clampF(b.Temperature, TemperatureMin, TemperatureMax)
	b.Tint = clampF(b.Tint, TintMin, TintMax)
	b.Vibrance = clampF(b.Vibrance, VibranceMin, VibranceMax)
	b.Clarity = clampF(b.Clarity, ClarityMin, ClarityMax)
	b.Grain = clampF(b.Grain, GrainMin, GrainMax)
	b.Vignette = clampF(b.Vignette, VignetteMin, VignetteMax)
	b.LUTIntensity = clampF(b.LUTIntensity, IntensityMin, IntensityMax)
	return b
}

// Merge overlays the non-identity fields of other onto b. Used when a custom
// adjustment is made after selecting a preset.
func (b Bundle) Merge(other Bundle) Bundle {
	id := Identity()
	if other.Brightness != id.Brightness {
		b.Brightness = other.Brightness
	}
	if other.Contrast != id.Contrast {
		b.Contrast = other.Contrast
	}
	if other.Saturation != id.Saturation {
		b.Saturation = other.Saturation
	}
	if other.Hue != 0 {
		b.Hue = other.Hue
	}
	if other.Blur != 0 {
		b.Blur = other.Blur
	}
	if other.Sepia != 0 {
		b.Sepia = other.Sepia
	}
	if other.Vintage {
		b.Vintage = true
	}
	if other.BlackWhite {
		b.BlackWhite = true
	}
	if other.Gamma != id.Gamma {
		b.Gamma = other.Gamma
	}
	if other.Exposure != 0 {
		b.Exposure = other.Exposure
	}
	if other.Shadows != 0 {
		b.Shadows = other.Shadows
	}
	if other.Highlights != 0 {
		b.Highlights = other.Highlights
	}
	if other.Temperature != 0 {
		b.Temperature = other.Temperature
	}
	if other.Tint != 0 {
		b.Tint = other.Tint
	}
	if other.Vibrance != 0 {
		b.Vibrance = other.Vibrance
	}
	if other.Clarity != 0 {
		b.Clarity = other.Clarity
	}
	if other.Grain != 0 {
		b.Grain = other.Grain
	}
	if other.Vignette != 0 {
		b.Vignette = other.Vignette
	}
	if other.ShadowTint != nil {
		b.ShadowTint = other.ShadowTint
	}
	if other.MidtoneTint != nil {
		b.MidtoneTint = other.MidtoneTint
	}
	if other.HighlightTint != nil {
		b.HighlightTint = other.HighlightTint
	}
	if other.LUT != "" {
		b.LUT = other.LUT
		b.LUTIntensity = other.LUTIntensity
	}
	return b.Clamp()
}

// UnmarshalJSON fills unset keys with their identity values, so a partial
// bundle from the API layer still means "touch only what I named".
func (b *Bundle) UnmarshalJSON(data []byte) error {
	type alias Bundle
	tmp := alias(Identity())
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*b = Bundle(tmp).Clamp()
	return nil
}

// Normalized composite-pass parameters. The preview kernel and the export
// compiler both derive their math from these, which is what keeps the two
// sides in visual agreement.

// BrightnessScale returns the per-channel multiplier (identity 1.0).
func (b Bundle) BrightnessScale() float64 { return b.Brightness / 100 }

// ContrastScale returns the slope around the 128 midpoint (identity 1.0).
func (b Bundle) ContrastScale() float64 { return b.Contrast / 100 }

// SaturationScale returns the luminance-mix factor (identity 1.0).
func (b Bundle) SaturationScale() float64 { return b.Saturation / 100 }

// SepiaAmount returns the sepia matrix blend in [0,1].
func (b Bundle) SepiaAmount() float64 { return b.Sepia / 100 }

// BlurRadius returns the box blur radius in whole pixels.
func (b Bundle) BlurRadius() int { return int(b.Blur + 0.5) }

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
