package raster

import (
	"bytes"
	"math"
	"testing"

	"github.com/cliplab/cliplab-agent/internal/filters"
)

func uniformFrame(t *testing.T, w, h int, r, g, b byte) *Frame {
	t.Helper()
	f, err := NewFrame(w, h)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	for i := 0; i < len(f.Pix); i += 4 {
		f.Pix[i] = r
		f.Pix[i+1] = g
		f.Pix[i+2] = b
		f.Pix[i+3] = 255
	}
	return f
}

func pixelAt(f *Frame, x, y int) (byte, byte, byte) {
	o := (y*f.Width + x) * 4
	return f.Pix[o], f.Pix[o+1], f.Pix[o+2]
}

func TestApplyFilters_IdentityIsBitIdentical(t *testing.T) {
	f := uniformFrame(t, 8, 8, 10, 120, 240)
	// Break uniformity so the test covers more than one value.
	f.Pix[0], f.Pix[21], f.Pix[42] = 1, 99, 254

	before := make([]byte, len(f.Pix))
	copy(before, f.Pix)

	got := ApplyFilters(f, filters.Identity())
	if !bytes.Equal(got.Pix, before) {
		t.Fatal("identity bundle must leave the frame bit-identical")
	}
}

func TestApplyFilters_BrightnessScalesChannels(t *testing.T) {
	f := uniformFrame(t, 2, 2, 100, 50, 200)
	b := filters.Identity()
	b.Brightness = 150

	ApplyFilters(f, b)
	r, g, bl := pixelAt(f, 0, 0)
	if r != 150 || g != 75 {
		t.Errorf("got r=%d g=%d, want 150/75", r, g)
	}
	if bl != 255 {
		t.Errorf("blue must clamp at 255, got %d", bl)
	}
}

func TestApplyFilters_ContrastPivotsAt128(t *testing.T) {
	f := uniformFrame(t, 2, 1, 128, 64, 192)
	b := filters.Identity()
	b.Contrast = 150

	ApplyFilters(f, b)
	r, g, bl := pixelAt(f, 0, 0)
	if r != 128 {
		t.Errorf("midpoint must be unchanged, got %d", r)
	}
	if g != 32 { // (64-128)*1.5+128
		t.Errorf("g = %d, want 32", g)
	}
	if bl != 224 { // (192-128)*1.5+128
		t.Errorf("b = %d, want 224", bl)
	}
}

func TestApplyFilters_GammaFormula(t *testing.T) {
	f := uniformFrame(t, 1, 1, 64, 64, 64)
	b := filters.Identity()
	b.Gamma = 2

	ApplyFilters(f, b)
	want := clampByte(255 * math.Pow(64.0/255, 0.5))
	if r, _, _ := pixelAt(f, 0, 0); r != want {
		t.Errorf("gamma output = %d, want %d", r, want)
	}
}

func TestApplyFilters_TemperatureOnlyMovesRedAndBlue(t *testing.T) {
	f := uniformFrame(t, 2, 2, 100, 100, 100)
	b := filters.Identity()
	b.Temperature = 50

	ApplyFilters(f, b)
	r, g, bl := pixelAt(f, 1, 1)
	if r != 105 || bl != 95 {
		t.Errorf("got r=%d b=%d, want 105/95", r, bl)
	}
	if g != 100 {
		t.Errorf("green must be untouched by temperature, got %d", g)
	}
}

func TestApplyFilters_TintOnlyMovesGreen(t *testing.T) {
	f := uniformFrame(t, 2, 2, 100, 100, 100)
	b := filters.Identity()
	b.Tint = -40

	ApplyFilters(f, b)
	r, g, bl := pixelAt(f, 0, 1)
	if g != 96 {
		t.Errorf("g = %d, want 96", g)
	}
	if r != 100 || bl != 100 {
		t.Errorf("r/b must be untouched by tint, got %d/%d", r, bl)
	}
}

func TestApplyFilters_ShadowsOnlyTouchDarkPixels(t *testing.T) {
	f := uniformFrame(t, 2, 1, 0, 0, 0)
	// Left pixel dark, right pixel bright.
	o := (0*f.Width + 0) * 4
	f.Pix[o], f.Pix[o+1], f.Pix[o+2] = 50, 50, 50
	o = (0*f.Width + 1) * 4
	f.Pix[o], f.Pix[o+1], f.Pix[o+2] = 200, 200, 200

	b := filters.Identity()
	b.Shadows = 20

	ApplyFilters(f, b)
	if r, _, _ := pixelAt(f, 0, 0); r != 60 { // 50 * 1.2
		t.Errorf("dark pixel r = %d, want 60", r)
	}
	if r, _, _ := pixelAt(f, 1, 0); r != 200 {
		t.Errorf("bright pixel must be untouched by shadows, got %d", r)
	}
}

func TestApplyFilters_BlackWhiteUsesLuminance(t *testing.T) {
	f := uniformFrame(t, 1, 1, 200, 100, 50)
	b := filters.Identity()
	b.BlackWhite = true

	ApplyFilters(f, b)
	want := clampByte(0.299*200 + 0.587*100 + 0.114*50)
	r, g, bl := pixelAt(f, 0, 0)
	if r != want || g != want || bl != want {
		t.Errorf("got %d/%d/%d, want all %d", r, g, bl, want)
	}
}

func TestApplyFilters_VintageFormula(t *testing.T) {
	f := uniformFrame(t, 1, 1, 100, 100, 100)
	b := filters.Identity()
	b.Vintage = true

	ApplyFilters(f, b)
	r, g, bl := pixelAt(f, 0, 0)
	if r != 140 || g != 120 || bl != 80 {
		t.Errorf("got %d/%d/%d, want 140/120/80", r, g, bl)
	}
}

func TestApplyFilters_VignetteLeavesCenterPixel(t *testing.T) {
	// Odd dimensions so an exact center pixel exists at distance zero.
	f := uniformFrame(t, 5, 5, 180, 180, 180)
	b := filters.Identity()
	b.Vignette = 80

	ApplyFilters(f, b)
	if r, g, bl := pixelAt(f, 2, 2); r != 180 || g != 180 || bl != 180 {
		t.Errorf("center pixel changed to %d/%d/%d", r, g, bl)
	}
	if r, _, _ := pixelAt(f, 0, 0); r >= 180 {
		t.Errorf("corner pixel must darken, got %d", r)
	}
}

func TestApplyFilters_ClarityLeavesUniformRegionsAndBorders(t *testing.T) {
	f := uniformFrame(t, 4, 4, 90, 90, 90)
	b := filters.Identity()
	b.Clarity = 100

	ApplyFilters(f, b)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if r, _, _ := pixelAt(f, x, y); r != 90 {
				t.Fatalf("uniform frame changed at (%d,%d): %d", x, y, r)
			}
		}
	}
}

func TestApplyFilters_ZoneTintWeights(t *testing.T) {
	tests := []struct {
		name   string
		base   byte
		mutate func(*filters.Bundle)
		wantR  byte
	}{
		{"shadows 0.3", 50, func(b *filters.Bundle) { b.ShadowTint = &filters.RGB{R: 100} }, 80},
		{"midtones 0.2", 120, func(b *filters.Bundle) { b.MidtoneTint = &filters.RGB{R: 100} }, 140},
		{"highlights 0.1", 200, func(b *filters.Bundle) { b.HighlightTint = &filters.RGB{R: 100} }, 210},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := uniformFrame(t, 1, 1, tc.base, tc.base, tc.base)
			b := filters.Identity()
			tc.mutate(&b)

			ApplyFilters(f, b)
			if r, _, _ := pixelAt(f, 0, 0); r != tc.wantR {
				t.Errorf("r = %d, want %d", r, tc.wantR)
			}
		})
	}
}

func TestApplyFilters_ZoneTintSkipsOtherZones(t *testing.T) {
	f := uniformFrame(t, 1, 1, 200, 200, 200) // highlight-zone pixel
	b := filters.Identity()
	b.ShadowTint = &filters.RGB{R: 255, G: 255, B: 255}

	ApplyFilters(f, b)
	if r, _, _ := pixelAt(f, 0, 0); r != 200 {
		t.Errorf("shadow tint must not touch highlight pixels, got %d", r)
	}
}

func TestApplyFilters_GrainBoundedAndDeterministic(t *testing.T) {
	b := filters.Identity()
	b.Grain = 100

	f1 := uniformFrame(t, 6, 6, 128, 128, 128)
	f2 := uniformFrame(t, 6, 6, 128, 128, 128)
	ApplyFilters(f1, b)
	ApplyFilters(f2, b)

	if !bytes.Equal(f1.Pix, f2.Pix) {
		t.Fatal("grain must be deterministic across runs")
	}
	for i := 0; i < len(f1.Pix); i += 4 {
		for ch := 0; ch < 3; ch++ {
			v := int(f1.Pix[i+ch])
			if v < 128-26 || v > 128+26 {
				t.Fatalf("grain moved channel to %d, outside +/-25 of 128", v)
			}
		}
	}
}

func TestApplyFilters_SaturationZeroIsGray(t *testing.T) {
	f := uniformFrame(t, 1, 1, 250, 20, 20)
	b := filters.Identity()
	b.Saturation = 0

	ApplyFilters(f, b)
	r, g, bl := pixelAt(f, 0, 0)
	if r != g || g != bl {
		t.Errorf("saturation 0 must be gray, got %d/%d/%d", r, g, bl)
	}
}

func TestPreviewFrame_DownscalesOnlyWhenNeeded(t *testing.T) {
	small := uniformFrame(t, 10, 10, 1, 2, 3)
	if got := PreviewFrame(small, 100, 100); got != small {
		t.Error("frames inside bounds must be returned unchanged")
	}

	big := uniformFrame(t, 200, 100, 1, 2, 3)
	got := PreviewFrame(big, 100, 100)
	if got.Width != 100 || got.Height != 50 {
		t.Errorf("got %dx%d, want 100x50", got.Width, got.Height)
	}
}
