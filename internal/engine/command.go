package engine

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cliplab/cliplab-agent/internal/compile"
)

// BuildArgs lowers an instruction list into a concrete ffmpeg argument
// vector. The instruction list is the authoritative description of the edit;
// this layer only adapts each instruction to ffmpeg's filter grammar, using
// the closest native filter when no exact equivalent exists.
func BuildArgs(inPath, outPath string, instructions []compile.Instruction) []string {
	var (
		trimArgs []string
		vf       []string
		af       []string
		tracks   []mixTrack
	)

	for _, in := range instructions {
		switch in.Op {
		case compile.OpTrim:
			_, p := compile.ParseExpr(in.Expr)
			trimArgs = append(trimArgs, "-ss", p["start"], "-to", p["end"])
		case compile.OpCrop, compile.OpScale:
			// Already in ffmpeg's positional grammar.
			vf = append(vf, in.Expr)
		case compile.OpColorGrade:
			vf = append(vf, colorGradeFilters(in.Expr)...)
		case compile.OpSpeed:
			if strings.HasPrefix(in.Expr, "setpts=") {
				vf = append(vf, in.Expr)
			} else {
				af = append(af, in.Expr)
			}
		case compile.OpDrawText:
			vf = append(vf, stripParam(in.Expr, "anim"))
		case compile.OpTransition:
			// Single-input renders approximate segment transitions with a
			// fade at the transition offset.
			_, p := compile.ParseExpr(in.Expr)
			vf = append(vf, fmt.Sprintf("fade=t=in:st=%s:d=%s", p["offset"], p["duration"]))
		case compile.OpVolume:
			_, p := compile.ParseExpr(in.Expr)
			af = append(af, "volume="+p["v"])
		case compile.OpAudioMix:
			_, p := compile.ParseExpr(in.Expr)
			tracks = append(tracks, mixTrack{
				name:   p["track"],
				start:  p["start"],
				volume: p["volume"],
				fadeIn: p["fade_in"],
			})
		}
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	args = append(args, "-i", inPath)
	for _, t := range tracks {
		args = append(args, "-i", filepath.Join(filepath.Dir(inPath), t.name))
	}
	args = append(args, trimArgs...)

	if len(tracks) > 0 {
		args = append(args, "-filter_complex", mixGraph(vf, af, tracks))
		args = append(args, "-map", "[vout]", "-map", "[aout]")
	} else {
		if len(vf) > 0 {
			args = append(args, "-vf", strings.Join(vf, ","))
		}
		if len(af) > 0 {
			args = append(args, "-af", strings.Join(af, ","))
		}
	}

	args = append(args, "-movflags", "+faststart", outPath)
	return args
}

type mixTrack struct {
	name   string
	start  string
	volume string
	fadeIn string
}

// mixGraph builds the filter_complex graph merging the main stream's audio
// with the additional staged tracks.
func mixGraph(vf, af []string, tracks []mixTrack) string {
	videoChain := "null"
	if len(vf) > 0 {
		videoChain = strings.Join(vf, ",")
	}
	mainAudio := "anull"
	if len(af) > 0 {
		mainAudio = strings.Join(af, ",")
	}

	parts := []string{
		"[0:v]" + videoChain + "[vout]",
		"[0:a]" + mainAudio + "[a0]",
	}

	labels := []string{"[a0]"}
	for i, t := range tracks {
		chain := []string{}
		if ms := toMillis(t.start); ms > 0 {
			chain = append(chain, fmt.Sprintf("adelay=%d|%d", ms, ms))
		}
		if t.volume != "" {
			chain = append(chain, "volume="+t.volume)
		}
		if t.fadeIn != "" {
			chain = append(chain, "afade=t=in:d="+t.fadeIn)
		}
		if len(chain) == 0 {
			chain = append(chain, "anull")
		}
		label := fmt.Sprintf("[a%d]", i+1)
		parts = append(parts, fmt.Sprintf("[%d:a]%s%s", i+1, strings.Join(chain, ","), label))
		labels = append(labels, label)
	}

	parts = append(parts, fmt.Sprintf("%samix=inputs=%d:duration=first:normalize=0[aout]",
		strings.Join(labels, ""), len(labels)))
	return strings.Join(parts, ";")
}

func toMillis(s string) int {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f * 1000)
}

// colorGradeFilters expands the combined colorgrade instruction into the
// chain of native ffmpeg filters, in the same order the preview kernel
// applies its passes.
func colorGradeFilters(expr string) []string {
	_, p := compile.ParseExpr(expr)
	var out []string

	// Composite adjustments fold into a single eq plus hue/boxblur.
	var eq []string
	if v, ok := p["brightness"]; ok {
		eq = append(eq, fmt.Sprintf("brightness=%.4f", pf(v)-1))
	}
	if v, ok := p["contrast"]; ok {
		eq = append(eq, "contrast="+v)
	}
	if v, ok := p["saturation"]; ok {
		eq = append(eq, "saturation="+v)
	}
	if v, ok := p["gamma"]; ok {
		eq = append(eq, "gamma="+v)
	}
	if len(eq) > 0 {
		out = append(out, "eq="+strings.Join(eq, ":"))
	}
	if v, ok := p["hue"]; ok {
		out = append(out, "hue=h="+v)
	}
	if v, ok := p["blur"]; ok {
		out = append(out, "boxblur="+v)
	}
	if v, ok := p["sepia"]; ok {
		out = append(out, sepiaMixer(pf(v)))
	}
	if p["vintage"] == "1" {
		out = append(out, "colorchannelmixer=rr=1.2:gg=1.1:bb=0.8", "eq=brightness=0.06")
	}
	if p["bw"] == "1" {
		out = append(out, "hue=s=0")
	}
	if v, ok := p["exposure"]; ok {
		out = append(out, "exposure=exposure="+v)
	}
	if v, ok := p["shadows"]; ok {
		s := pf(v) / 100 * 0.3
		out = append(out, fmt.Sprintf("colorbalance=rs=%.4f:gs=%.4f:bs=%.4f", s, s, s))
	}
	if v, ok := p["highlights"]; ok {
		h := pf(v) / 100 * 0.3
		out = append(out, fmt.Sprintf("colorbalance=rh=%.4f:gh=%.4f:bh=%.4f", h, h, h))
	}
	if v, ok := p["temperature"]; ok {
		out = append(out, fmt.Sprintf("colortemperature=temperature=%d", 6500+int(pf(v)*35)))
	}
	if v, ok := p["tint"]; ok {
		out = append(out, fmt.Sprintf("colorbalance=gm=%.4f", pf(v)/100*0.2))
	}
	if v, ok := p["vibrance"]; ok {
		out = append(out, fmt.Sprintf("vibrance=intensity=%.4f", pf(v)/100))
	}
	if v, ok := p["clarity"]; ok {
		out = append(out, fmt.Sprintf("unsharp=5:5:%.4f", pf(v)/100*1.5))
	}
	if v, ok := p["grain"]; ok {
		out = append(out, fmt.Sprintf("noise=alls=%d:allf=t", int(pf(v)/100*25)))
	}
	if v, ok := p["vignette"]; ok {
		out = append(out, fmt.Sprintf("vignette=a=%.4f", pf(v)/100*0.628))
	}
	for key, zone := range map[string]string{
		"shadow_tint":    "s",
		"midtone_tint":   "m",
		"highlight_tint": "h",
	} {
		if v, ok := p[key]; ok {
			out = append(out, tintBalance(zone, v))
		}
	}
	if name, ok := p["lut"]; ok {
		if preset, known := lutCurves[name]; known {
			out = append(out, preset)
		}
	}
	return out
}

// sepiaMixer lerps the identity matrix toward the standard sepia matrix.
func sepiaMixer(amount float64) string {
	lerp := func(from, to float64) float64 { return from + (to-from)*amount }
	return fmt.Sprintf("colorchannelmixer=rr=%.4f:rg=%.4f:rb=%.4f:gr=%.4f:gg=%.4f:gb=%.4f:br=%.4f:bg=%.4f:bb=%.4f",
		lerp(1, 0.393), lerp(0, 0.769), lerp(0, 0.189),
		lerp(0, 0.349), lerp(1, 0.686), lerp(0, 0.168),
		lerp(0, 0.272), lerp(0, 0.534), lerp(1, 0.131))
}

// tintBalance converts an additive rrggbb zone tint into per-channel
// colorbalance shifts for the shadows, midtones or highlights band.
func tintBalance(zone, hex string) string {
	shift := func(i int) float64 {
		if len(hex) != 6 {
			return 0
		}
		v, err := strconv.ParseUint(hex[i:i+2], 16, 8)
		if err != nil {
			return 0
		}
		return float64(v) / 255 * 0.3
	}
	return fmt.Sprintf("colorbalance=r%s=%.4f:g%s=%.4f:b%s=%.4f",
		zone, shift(0), zone, shift(2), zone, shift(4))
}

// lutCurves maps the catalog's style LUT names onto curves presets that
// approximate each look.
var lutCurves = map[string]string{
	"cinematic_warm": "curves=r='0/0.05 0.5/0.55 1/1':b='0/0 0.5/0.45 1/0.95'",
	"cinematic_cool": "curves=r='0/0 0.5/0.45 1/0.95':b='0/0.05 0.5/0.55 1/1'",
	"orange_teal":    "curves=r='0/0 0.3/0.25 0.7/0.8 1/1':b='0/0.1 0.3/0.4 0.7/0.6 1/0.9'",
	"bleach_bypass":  "curves=all='0/0 0.3/0.2 0.7/0.85 1/1',hue=s=0.6",
	"vintage_fade":   "curves=all='0/0.08 0.5/0.52 1/0.95'",
	"film_noir":      "hue=s=0,curves=all='0/0 0.4/0.3 0.6/0.75 1/1'",
	"pastel":         "curves=all='0/0.06 0.5/0.56 1/0.98',hue=s=0.8",
	"moonlit":        "curves=r='0/0 0.5/0.42 1/0.9':b='0/0.08 0.5/0.56 1/1',hue=s=0.7",
}

// pf parses a numeric parameter; values come from our own compiler so
// failures collapse to zero rather than an error path.
func pf(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// stripParam removes one k=v segment from a filter expression without
// reparsing it, since drawtext values legally embed separators.
func stripParam(expr, key string) string {
	marker := ":" + key + "="
	i := strings.Index(expr, marker)
	if i < 0 {
		return expr
	}
	end := strings.IndexByte(expr[i+len(marker):], ':')
	if end < 0 {
		return expr[:i]
	}
	return expr[:i] + expr[i+len(marker)+end:]
}
