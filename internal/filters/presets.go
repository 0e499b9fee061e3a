package filters

// Preset is a named parameter combination. Selecting one replaces the active
// bundle wholesale.
type Preset struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Category string `json:"category"`
	Bundle   Bundle `json:"bundle"`
}

// LUT is a named look-up-table entry. The preview kernel ignores LUTs; the
// export stage interprets the name and intensity.
type LUT struct {
	Name      string  `json:"name"`
	Label     string  `json:"label"`
	Category  string  `json:"category"`
	Intensity float64 `json:"intensity"`
}

func preset(name, label, category string, mutate func(*Bundle)) Preset {
	b := Identity()
	mutate(&b)
	return Preset{Name: name, Label: label, Category: category, Bundle: b.Clamp()}
}

var presets = []Preset{
	preset("vintage", "Vintage", "film", func(b *Bundle) {
		b.Vintage = true
		b.Contrast = 110
		b.Saturation = 85
		b.Grain = 20
		b.Vignette = 25
	}),
	preset("dramatic", "Dramatic", "mood", func(b *Bundle) {
		b.Contrast = 135
		b.Saturation = 110
		b.Shadows = -25
		b.Highlights = 15
		b.Clarity = 30
	}),
	preset("cinematic", "Cinematic", "film", func(b *Bundle) {
		b.Contrast = 115
		b.Saturation = 90
		b.ShadowTint = &RGB{R: 10, G: 30, B: 60}
		b.HighlightTint = &RGB{R: 60, G: 40, B: 10}
	}),
	preset("warm", "Warm", "tone", func(b *Bundle) {
		b.Temperature = 35
		b.Tint = 5
		b.Saturation = 105
	}),
	preset("cool", "Cool", "tone", func(b *Bundle) {
		b.Temperature = -35
		b.Saturation = 95
	}),
	preset("noir", "Film Noir", "mono", func(b *Bundle) {
		b.BlackWhite = true
		b.Contrast = 140
		b.Vignette = 35
		b.Grain = 15
	}),
	preset("golden-hour", "Golden Hour", "tone", func(b *Bundle) {
		b.Temperature = 45
		b.Brightness = 105
		b.Saturation = 115
		b.Gamma = 1.05
	}),
	preset("faded", "Faded", "film", func(b *Bundle) {
		b.Contrast = 85
		b.Saturation = 70
		b.Exposure = 0.2
	}),
	preset("vivid", "Vivid", "mood", func(b *Bundle) {
		b.Saturation = 140
		b.Vibrance = 40
		b.Contrast = 110
	}),
	preset("dreamy", "Dreamy", "mood", func(b *Bundle) {
		b.Blur = 1
		b.Brightness = 108
		b.Saturation = 85
		b.Highlights = 20
	}),
}

var luts = []LUT{
	{Name: "cinematic_warm", Label: "Cinematic Warm", Category: "film", Intensity: 80},
	{Name: "cinematic_cool", Label: "Cinematic Cool", Category: "film", Intensity: 80},
	{Name: "orange_teal", Label: "Orange & Teal", Category: "film", Intensity: 75},
	{Name: "bleach_bypass", Label: "Bleach Bypass", Category: "film", Intensity: 70},
	{Name: "vintage_fade", Label: "Vintage Fade", Category: "retro", Intensity: 65},
	{Name: "film_noir", Label: "Film Noir", Category: "mono", Intensity: 90},
	{Name: "pastel", Label: "Pastel", Category: "soft", Intensity: 60},
	{Name: "moonlit", Label: "Moonlit Night", Category: "mood", Intensity: 75},
}

// Presets returns the full preset catalog in a stable order.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// LUTs returns the LUT catalog in a stable order.
func LUTs() []LUT {
	out := make([]LUT, len(luts))
	copy(out, luts)
	return out
}

// ResolvePreset returns the bundle for a named preset. Unknown names resolve
// to the identity bundle rather than failing.
func ResolvePreset(name string) Bundle {
	for _, p := range presets {
		if p.Name == name {
			return p.Bundle
		}
	}
	return Identity()
}

// ApplyLUT sets the named LUT on a bundle at the given intensity. Unknown LUT
// names leave the bundle unchanged.
func ApplyLUT(b Bundle, name string, intensity float64) Bundle {
	for _, l := range luts {
		if l.Name == name {
			b.LUT = name
			b.LUTIntensity = clampF(intensity, IntensityMin, IntensityMax)
			return b
		}
	}
	return b
}
