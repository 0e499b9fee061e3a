package raster

import (
	"math"
	"math/rand"

	"github.com/cliplab/cliplab-agent/internal/filters"
)

// grainSeed keeps the grain pass deterministic so a replayed edit log renders
// the same frame twice.
const grainSeed = 0x5eed

// ApplyFilters grades a frame with the given bundle. The frame may be mutated
// in place or replaced; callers must use the returned frame and assume
// nothing about the argument afterwards. Out-of-range parameters are clamped,
// never rejected, and every pass clamps channel values to [0,255].
func ApplyFilters(f *Frame, b filters.Bundle) *Frame {
	b = b.Clamp()
	if b.IsIdentity() {
		return f
	}

	// Composite pass, fixed order. Order affects the result and must match
	// the export compiler's combined color instruction.
	if s := b.BrightnessScale(); s != 1 {
		eachChannel(f, func(v float64) float64 { return v * s })
	}
	if c := b.ContrastScale(); c != 1 {
		eachChannel(f, func(v float64) float64 { return (v-128)*c + 128 })
	}
	if s := b.SaturationScale(); s != 1 {
		eachPixel(f, func(r, g, bl float64) (float64, float64, float64) {
			l := 0.299*r + 0.587*g + 0.114*bl
			return l + (r-l)*s, l + (g-l)*s, l + (bl-l)*s
		})
	}
	if b.Hue != 0 {
		hueRotate(f, b.Hue)
	}
	if r := b.BlurRadius(); r > 0 {
		boxBlur(f, r)
	}
	if a := b.SepiaAmount(); a > 0 {
		sepia(f, a)
	}

	// Custom per-pixel passes, fixed order.
	if b.Vintage {
		eachPixel(f, func(r, g, bl float64) (float64, float64, float64) {
			return r*1.2 + 20, g*1.1 + 10, bl * 0.8
		})
	}
	if b.BlackWhite {
		eachPixel(f, func(r, g, bl float64) (float64, float64, float64) {
			l := 0.299*r + 0.587*g + 0.114*bl
			return l, l, l
		})
	}
	if b.Gamma != 1 {
		inv := 1 / b.Gamma
		eachChannel(f, func(v float64) float64 {
			return 255 * math.Pow(v/255, inv)
		})
	}
	if b.Exposure != 0 {
		scale := math.Pow(2, b.Exposure)
		eachChannel(f, func(v float64) float64 { return v * scale })
	}
	if b.Shadows != 0 {
		zoneScale(f, func(l float64) bool { return l < 128 }, 1+b.Shadows/100)
	}
	if b.Highlights != 0 {
		zoneScale(f, func(l float64) bool { return l > 128 }, 1+b.Highlights/100)
	}
	if b.Temperature != 0 {
		shift := b.Temperature / 10
		eachPixel(f, func(r, g, bl float64) (float64, float64, float64) {
			return r + shift, g, bl - shift
		})
	}
	if b.Tint != 0 {
		shift := b.Tint / 10
		eachPixel(f, func(r, g, bl float64) (float64, float64, float64) {
			return r, g + shift, bl
		})
	}
	if b.Vibrance != 0 {
		vibrance(f, b.Vibrance)
	}
	if b.Clarity != 0 {
		clarity(f, b.Clarity)
	}
	if b.Grain != 0 {
		grain(f, b.Grain)
	}
	if b.Vignette != 0 {
		vignette(f, b.Vignette)
	}
	if b.ShadowTint != nil {
		zoneTint(f, *b.ShadowTint, 0.3, func(l float64) bool { return l < 85 })
	}
	if b.MidtoneTint != nil {
		zoneTint(f, *b.MidtoneTint, 0.2, func(l float64) bool { return l >= 85 && l <= 170 })
	}
	if b.HighlightTint != nil {
		zoneTint(f, *b.HighlightTint, 0.1, func(l float64) bool { return l > 170 })
	}

	return f
}

func eachChannel(f *Frame, fn func(float64) float64) {
	for i := 0; i < len(f.Pix); i += 4 {
		f.Pix[i] = clampByte(fn(float64(f.Pix[i])))
		f.Pix[i+1] = clampByte(fn(float64(f.Pix[i+1])))
		f.Pix[i+2] = clampByte(fn(float64(f.Pix[i+2])))
	}
}

func eachPixel(f *Frame, fn func(r, g, b float64) (float64, float64, float64)) {
	for i := 0; i < len(f.Pix); i += 4 {
		r, g, b := fn(float64(f.Pix[i]), float64(f.Pix[i+1]), float64(f.Pix[i+2]))
		f.Pix[i] = clampByte(r)
		f.Pix[i+1] = clampByte(g)
		f.Pix[i+2] = clampByte(b)
	}
}

// hueRotate applies the standard linear hue rotation matrix.
func hueRotate(f *Frame, degrees float64) {
	rad := degrees * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	m := [9]float64{
		0.213 + 0.787*c - 0.213*s, 0.715 - 0.715*c - 0.715*s, 0.072 - 0.072*c + 0.928*s,
		0.213 - 0.213*c + 0.143*s, 0.715 + 0.285*c + 0.140*s, 0.072 - 0.072*c - 0.283*s,
		0.213 - 0.213*c - 0.787*s, 0.715 - 0.715*c + 0.715*s, 0.072 + 0.928*c + 0.072*s,
	}
	eachPixel(f, func(r, g, b float64) (float64, float64, float64) {
		return m[0]*r + m[1]*g + m[2]*b,
			m[3]*r + m[4]*g + m[5]*b,
			m[6]*r + m[7]*g + m[8]*b
	})
}

func sepia(f *Frame, amount float64) {
	// Sepia matrix interpolated with identity by amount.
	lerp := func(full, ident float64) float64 { return ident + (full-ident)*amount }
	m := [9]float64{
		lerp(0.393, 1), lerp(0.769, 0), lerp(0.189, 0),
		lerp(0.349, 0), lerp(0.686, 1), lerp(0.168, 0),
		lerp(0.272, 0), lerp(0.534, 0), lerp(0.131, 1),
	}
	eachPixel(f, func(r, g, b float64) (float64, float64, float64) {
		return m[0]*r + m[1]*g + m[2]*b,
			m[3]*r + m[4]*g + m[5]*b,
			m[6]*r + m[7]*g + m[8]*b
	})
}

// boxBlur runs a separable box blur of the given radius over the RGB
// channels; alpha is untouched.
func boxBlur(f *Frame, radius int) {
	src := make([]byte, len(f.Pix))

	// Horizontal pass.
	copy(src, f.Pix)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			var sr, sg, sb float64
			n := 0
			for dx := -radius; dx <= radius; dx++ {
				nx := x + dx
				if nx < 0 || nx >= f.Width {
					continue
				}
				o := f.offset(nx, y)
				sr += float64(src[o])
				sg += float64(src[o+1])
				sb += float64(src[o+2])
				n++
			}
			o := f.offset(x, y)
			f.Pix[o] = clampByte(sr / float64(n))
			f.Pix[o+1] = clampByte(sg / float64(n))
			f.Pix[o+2] = clampByte(sb / float64(n))
		}
	}

	// Vertical pass.
	copy(src, f.Pix)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			var sr, sg, sb float64
			n := 0
			for dy := -radius; dy <= radius; dy++ {
				ny := y + dy
				if ny < 0 || ny >= f.Height {
					continue
				}
				o := f.offset(x, ny)
				sr += float64(src[o])
				sg += float64(src[o+1])
				sb += float64(src[o+2])
				n++
			}
			o := f.offset(x, y)
			f.Pix[o] = clampByte(sr / float64(n))
			f.Pix[o+1] = clampByte(sg / float64(n))
			f.Pix[o+2] = clampByte(sb / float64(n))
		}
	}
}

// zoneScale multiplies every channel of pixels whose luminance matches the
// zone predicate.
func zoneScale(f *Frame, zone func(float64) bool, scale float64) {
	for i := 0; i < len(f.Pix); i += 4 {
		if !zone(luminance(f.Pix[i], f.Pix[i+1], f.Pix[i+2])) {
			continue
		}
		f.Pix[i] = clampByte(float64(f.Pix[i]) * scale)
		f.Pix[i+1] = clampByte(float64(f.Pix[i+1]) * scale)
		f.Pix[i+2] = clampByte(float64(f.Pix[i+2]) * scale)
	}
}

// vibrance boosts the two lower channels toward the max channel,
// proportionally to how far the pixel already is from gray.
func vibrance(f *Frame, amount float64) {
	k := amount / 100
	eachPixel(f, func(r, g, b float64) (float64, float64, float64) {
		max := math.Max(r, math.Max(g, b))
		avg := (r + g + b) / 3
		boost := (max - avg) * k
		if r < max {
			r += boost
		}
		if g < max {
			g += boost
		}
		if b < max {
			b += boost
		}
		return r, g, b
	})
}

// clarity is a 3x3 unsharp mask over the 4-neighborhood. Border pixels are
// left unmodified.
func clarity(f *Frame, amount float64) {
	k := amount / 100
	src := make([]byte, len(f.Pix))
	copy(src, f.Pix)

	for y := 1; y < f.Height-1; y++ {
		for x := 1; x < f.Width-1; x++ {
			o := f.offset(x, y)
			for ch := 0; ch < 3; ch++ {
				center := float64(src[o+ch])
				avg := (float64(src[f.offset(x, y-1)+ch]) +
					float64(src[f.offset(x, y+1)+ch]) +
					float64(src[f.offset(x-1, y)+ch]) +
					float64(src[f.offset(x+1, y)+ch])) / 4
				f.Pix[o+ch] = clampByte(center + (center-avg)*k)
			}
		}
	}
}

func grain(f *Frame, amount float64) {
	rng := rand.New(rand.NewSource(grainSeed))
	k := amount / 100
	for i := 0; i < len(f.Pix); i += 4 {
		for ch := 0; ch < 3; ch++ {
			noise := (rng.Float64()*50 - 25) * k
			f.Pix[i+ch] = clampByte(float64(f.Pix[i+ch]) + noise)
		}
	}
}

func vignette(f *Frame, amount float64) {
	cx := float64(f.Width-1) / 2
	cy := float64(f.Height-1) / 2
	maxDist := math.Hypot(cx, cy)
	k := amount / 100

	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			dist := math.Hypot(float64(x)-cx, float64(y)-cy)
			factor := 1 - (dist/maxDist)*k
			o := f.offset(x, y)
			f.Pix[o] = clampByte(float64(f.Pix[o]) * factor)
			f.Pix[o+1] = clampByte(float64(f.Pix[o+1]) * factor)
			f.Pix[o+2] = clampByte(float64(f.Pix[o+2]) * factor)
		}
	}
}

// zoneTint additively blends a configured color into pixels of one luminance
// zone at a fixed weight.
func zoneTint(f *Frame, tint filters.RGB, weight float64, zone func(float64) bool) {
	for i := 0; i < len(f.Pix); i += 4 {
		if !zone(luminance(f.Pix[i], f.Pix[i+1], f.Pix[i+2])) {
			continue
		}
		f.Pix[i] = clampByte(float64(f.Pix[i]) + float64(tint.R)*weight)
		f.Pix[i+1] = clampByte(float64(f.Pix[i+1]) + float64(tint.G)*weight)
		f.Pix[i+2] = clampByte(float64(f.Pix[i+2]) + float64(tint.B)*weight)
	}
}
