package filters

import (
	"encoding/json"
	"testing"
)

func TestIdentity_IsIdentity(t *testing.T) {
	if !Identity().IsIdentity() {
		t.Fatal("Identity() must report IsIdentity")
	}
}

func TestBundle_SingleFieldBreaksIdentity(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Bundle)
	}{
		{"brightness", func(b *Bundle) { b.Brightness = 120 }},
		{"contrast", func(b *Bundle) { b.Contrast = 80 }},
		{"saturation", func(b *Bundle) { b.Saturation = 150 }},
		{"hue", func(b *Bundle) { b.Hue = 45 }},
		{"blur", func(b *Bundle) { b.Blur = 2 }},
		{"sepia", func(b *Bundle) { b.Sepia = 30 }},
		{"vintage", func(b *Bundle) { b.Vintage = true }},
		{"black_white", func(b *Bundle) { b.BlackWhite = true }},
		{"gamma", func(b *Bundle) { b.Gamma = 2.2 }},
		{"exposure", func(b *Bundle) { b.Exposure = 1 }},
		{"shadows", func(b *Bundle) { b.Shadows = 10 }},
		{"highlights", func(b *Bundle) { b.Highlights = -10 }},
		{"temperature", func(b *Bundle) { b.Temperature = 20 }},
		{"tint", func(b *Bundle) { b.Tint = -20 }},
		{"vibrance", func(b *Bundle) { b.Vibrance = 50 }},
		{"clarity", func(b *Bundle) { b.Clarity = 25 }},
		{"grain", func(b *Bundle) { b.Grain = 40 }},
		{"vignette", func(b *Bundle) { b.Vignette = 60 }},
		{"shadow_tint", func(b *Bundle) { b.ShadowTint = &RGB{B: 40} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := Identity()
			tc.mutate(&b)
			if b.IsIdentity() {
				t.Fatalf("bundle with %s set must not be identity", tc.name)
			}
		})
	}
}

func TestBundle_ClampForcesRanges(t *testing.T) {
	b := Bundle{
		Brightness:  500,
		Contrast:    -10,
		Saturation:  1000,
		Hue:         720,
		Blur:        99,
		Sepia:       -5,
		Gamma:       0,
		Exposure:    12,
		Shadows:     -500,
		Highlights:  500,
		Temperature: 101,
		Tint:        -101,
		Vibrance:    300,
		Clarity:     -1,
		Grain:       1e9,
		Vignette:    200,
	}.Clamp()

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"brightness", b.Brightness, BrightnessMax},
		{"contrast", b.Contrast, ContrastMin},
		{"saturation", b.Saturation, SaturationMax},
		{"hue", b.Hue, HueMax},
		{"blur", b.Blur, BlurMax},
		{"sepia", b.Sepia, SepiaMin},
		{"gamma", b.Gamma, GammaMin},
		{"exposure", b.Exposure, ExposureMax},
		{"shadows", b.Shadows, ShadowsMin},
		{"highlights", b.Highlights, HighlightsMax},
		{"temperature", b.Temperature, TemperatureMax},
		{"tint", b.Tint, TintMin},
		{"vibrance", b.Vibrance, VibranceMax},
		{"clarity", b.Clarity, ClarityMin},
		{"grain", b.Grain, GrainMax},
		{"vignette", b.Vignette, VignetteMax},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s clamped to %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestBundle_UnmarshalPartialFillsIdentity(t *testing.T) {
	var b Bundle
	if err := json.Unmarshal([]byte(`{"contrast": 130}`), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if b.Contrast != 130 {
		t.Errorf("contrast = %v, want 130", b.Contrast)
	}
	if b.Brightness != 100 || b.Saturation != 100 || b.Gamma != 1 {
		t.Errorf("unset keys not at identity: %+v", b)
	}
}

func TestBundle_MergeKeepsBaseForIdentityFields(t *testing.T) {
	base := ResolvePreset("dramatic")
	custom := Identity()
	custom.Temperature = 40

	merged := base.Merge(custom)
	if merged.Temperature != 40 {
		t.Errorf("temperature = %v, want 40", merged.Temperature)
	}
	if merged.Contrast != base.Contrast {
		t.Errorf("contrast = %v, want preset value %v", merged.Contrast, base.Contrast)
	}
}

func TestResolvePreset_UnknownIsIdentity(t *testing.T) {
	if b := ResolvePreset("no-such-preset"); !b.IsIdentity() {
		t.Fatalf("unknown preset must resolve to identity, got %+v", b)
	}
}

func TestResolvePreset_KnownPresets(t *testing.T) {
	for _, p := range Presets() {
		t.Run(p.Name, func(t *testing.T) {
			got := ResolvePreset(p.Name)
			if got.IsIdentity() && p.Name != "identity" {
				t.Fatalf("preset %q resolved to identity", p.Name)
			}
		})
	}
}

func TestApplyLUT(t *testing.T) {
	b := ApplyLUT(Identity(), "orange_teal", 150)
	if b.LUT != "orange_teal" {
		t.Errorf("lut = %q, want orange_teal", b.LUT)
	}
	if b.LUTIntensity != IntensityMax {
		t.Errorf("intensity = %v, want clamped %v", b.LUTIntensity, IntensityMax)
	}
	if !b.IsIdentity() {
		t.Error("a bare LUT assignment must stay kernel-identity")
	}

	unchanged := ApplyLUT(Identity(), "not-a-lut", 50)
	if unchanged.LUT != "" {
		t.Errorf("unknown LUT must not be applied, got %q", unchanged.LUT)
	}
}
