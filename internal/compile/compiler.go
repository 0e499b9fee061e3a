package compile

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cliplab/cliplab-agent/internal/filters"
	"github.com/cliplab/cliplab-agent/internal/history"
)

// Source describes the actual input media. Crop percentages are always
// converted against these dimensions, never against a preview canvas.
type Source struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Duration float64 `json:"duration"`
}

// Target selects the output geometry by symbolic resolution and aspect ratio.
type Target struct {
	Resolution string `json:"resolution"` // "480p".."2160p"/"4k"; empty = keep source
	Aspect     string `json:"aspect"`     // "16:9" (default), "9:16", "1:1", "4:3", "21:9"
}

// Request is everything the compiler needs for one export.
type Request struct {
	State  history.MaterializedState
	Audio  []history.AudioTrack
	Source Source
	Target Target
}

// Heights for symbolic resolutions; widths derive from the aspect ratio.
var resolutionHeights = map[string]int{
	"480p":  480,
	"720p":  720,
	"1080p": 1080,
	"1440p": 1440,
	"2160p": 2160,
	"4k":    2160,
}

var aspectRatios = map[string][2]int{
	"16:9": {16, 9},
	"9:16": {9, 16},
	"1:1":  {1, 1},
	"4:3":  {4, 3},
	"21:9": {21, 9},
}

// Compile validates the request and produces the ordered instruction list.
// Validation failures mean the request never reaches the engine; empty
// instruction categories are omitted, not errors.
func Compile(req Request) ([]Instruction, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var out []Instruction
	state := req.State

	if t := state.Trim; t != nil {
		out = append(out, Instruction{OpTrim, expr("trim",
			pair("start", "%.3f", t.Start), pair("end", "%.3f", t.End))})
	}
	if c := state.Crop; c != nil {
		out = append(out, cropInstruction(*c, req.Source))
	}
	if w, h, ok := targetDimensions(req.Target); ok {
		out = append(out, Instruction{OpScale, fmt.Sprintf("scale=%d:%d", w, h)})
	}
	if in, ok := colorGradeInstruction(state.Filters); ok {
		out = append(out, in)
	}
	if state.Speed != 1 {
		out = append(out, speedInstructions(state.Speed)...)
	}
	out = append(out, overlayInstructions(state.Overlays)...)
	out = append(out, transitionInstructions(state.Transitions)...)
	if state.Volume != 1 {
		out = append(out, Instruction{OpVolume, expr("volume", pair("v", "%.4f", state.Volume))})
	}
	out = append(out, audioInstructions(req.Audio)...)

	return out, nil
}

func validate(req Request) error {
	s := req.State
	if t := s.Trim; t != nil {
		if t.Start < 0 {
			return fmt.Errorf("trim start %.3f is negative", t.Start)
		}
		if t.End <= t.Start {
			return fmt.Errorf("trim end %.3f must be greater than start %.3f", t.End, t.Start)
		}
	}
	if c := s.Crop; c != nil {
		if c.Width <= 0 || c.Height <= 0 {
			return fmt.Errorf("zero-size crop %gx%g", c.Width, c.Height)
		}
		if req.Source.Width <= 0 || req.Source.Height <= 0 {
			return fmt.Errorf("crop requires source dimensions, got %dx%d", req.Source.Width, req.Source.Height)
		}
	}
	if s.SplitPoints != nil && len(s.SplitPoints) == 0 {
		return fmt.Errorf("split requested with empty point set")
	}
	if s.Speed <= 0 {
		return fmt.Errorf("speed factor %g must be positive", s.Speed)
	}
	for _, o := range s.Overlays {
		if o.End < o.Start {
			return fmt.Errorf("overlay %q window end %.3f before start %.3f", o.ID, o.End, o.Start)
		}
	}
	return nil
}

// cropInstruction converts percentage coordinates to absolute pixels against
// the source media's actual dimensions.
func cropInstruction(c history.CropRect, src Source) Instruction {
	w := int(math.Round(c.Width / 100 * float64(src.Width)))
	h := int(math.Round(c.Height / 100 * float64(src.Height)))
	x := int(math.Round(c.X / 100 * float64(src.Width)))
	y := int(math.Round(c.Y / 100 * float64(src.Height)))
	return Instruction{OpCrop, fmt.Sprintf("crop=%d:%d:%d:%d", w, h, x, y)}
}

func targetDimensions(t Target) (int, int, bool) {
	height, ok := resolutionHeights[strings.ToLower(t.Resolution)]
	if !ok {
		return 0, 0, false
	}
	ratio, ok := aspectRatios[t.Aspect]
	if !ok {
		ratio = aspectRatios["16:9"]
	}
	width := int(math.Round(float64(height) * float64(ratio[0]) / float64(ratio[1])))
	if width%2 != 0 {
		width++
	}
	return width, height, true
}

// colorGradeInstruction emits the single combined color-filter instruction.
// Parameters are normalized through the same filters.Bundle accessors the
// preview kernel reads, which is what keeps preview and export in agreement.
// Identity parameters and the whole instruction are omitted when unset.
func colorGradeInstruction(b filters.Bundle) (Instruction, bool) {
	b = b.Clamp()
	if b.IsIdentity() && b.LUT == "" {
		return Instruction{}, false
	}

	var p []string
	if s := b.BrightnessScale(); s != 1 {
		p = append(p, pair("brightness", "%.4f", s))
	}
	if c := b.ContrastScale(); c != 1 {
		p = append(p, pair("contrast", "%.4f", c))
	}
	if s := b.SaturationScale(); s != 1 {
		p = append(p, pair("saturation", "%.4f", s))
	}
	if b.Hue != 0 {
		p = append(p, pair("hue", "%.1f", b.Hue))
	}
	if r := b.BlurRadius(); r > 0 {
		p = append(p, pair("blur", "%d", r))
	}
	if a := b.SepiaAmount(); a > 0 {
		p = append(p, pair("sepia", "%.4f", a))
	}
	if b.Vintage {
		p = append(p, "vintage=1")
	}
	if b.BlackWhite {
		p = append(p, "bw=1")
	}
	if b.Gamma != 1 {
		p = append(p, pair("gamma", "%.4f", b.Gamma))
	}
	if b.Exposure != 0 {
		p = append(p, pair("exposure", "%.4f", b.Exposure))
	}
	if b.Shadows != 0 {
		p = append(p, pair("shadows", "%.2f", b.Shadows))
	}
	if b.Highlights != 0 {
		p = append(p, pair("highlights", "%.2f", b.Highlights))
	}
	if b.Temperature != 0 {
		p = append(p, pair("temperature", "%.2f", b.Temperature))
	}
	if b.Tint != 0 {
		p = append(p, pair("tint", "%.2f", b.Tint))
	}
	if b.Vibrance != 0 {
		p = append(p, pair("vibrance", "%.2f", b.Vibrance))
	}
	if b.Clarity != 0 {
		p = append(p, pair("clarity", "%.2f", b.Clarity))
	}
	if b.Grain != 0 {
		p = append(p, pair("grain", "%.2f", b.Grain))
	}
	if b.Vignette != 0 {
		p = append(p, pair("vignette", "%.2f", b.Vignette))
	}
	if c := b.ShadowTint; c != nil {
		p = append(p, fmt.Sprintf("shadow_tint=%02x%02x%02x", c.R, c.G, c.B))
	}
	if c := b.MidtoneTint; c != nil {
		p = append(p, fmt.Sprintf("midtone_tint=%02x%02x%02x", c.R, c.G, c.B))
	}
	if c := b.HighlightTint; c != nil {
		p = append(p, fmt.Sprintf("highlight_tint=%02x%02x%02x", c.R, c.G, c.B))
	}
	if b.LUT != "" {
		p = append(p, "lut="+b.LUT, pair("lut_intensity", "%.2f", b.LUTIntensity/100))
	}

	return Instruction{OpColorGrade, expr("colorgrade", p...)}, true
}

// speedInstructions emits the timestamp rescale plus the audio tempo chain.
// The tempo primitive only supports factors in [0.5,2.0], so larger changes
// are chained.
func speedInstructions(factor float64) []Instruction {
	out := []Instruction{{OpSpeed, fmt.Sprintf("setpts=PTS/%.4f", factor)}}

	remaining := factor
	for remaining > 2.0 {
		out = append(out, Instruction{OpSpeed, "atempo=2.0000"})
		remaining /= 2.0
	}
	for remaining < 0.5 {
		out = append(out, Instruction{OpSpeed, "atempo=0.5000"})
		remaining /= 0.5
	}
	if remaining != 1.0 {
		out = append(out, Instruction{OpSpeed, fmt.Sprintf("atempo=%.4f", remaining)})
	}
	return out
}

func overlayInstructions(overlays []history.TextOverlay) []Instruction {
	sorted := append([]history.TextOverlay(nil), overlays...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].ID < sorted[j].ID
	})

	out := make([]Instruction, 0, len(sorted))
	for _, o := range sorted {
		size := o.FontSize
		if size <= 0 {
			size = 24
		}
		color := o.Color
		if color == "" {
			color = "white"
		}

		p := []string{
			fmt.Sprintf("text='%s'", escapeText(o.Text)),
			pair("fontsize", "%d", size),
			"fontcolor=" + color,
			fmt.Sprintf("x=(w-text_w)*%.2f", o.X/100),
			fmt.Sprintf("y=(h-text_h)*%.2f", o.Y/100),
		}
		if o.BackgroundOpacity > 0 {
			bg := o.BackgroundColor
			if bg == "" {
				bg = "black"
			}
			p = append(p, "box=1", fmt.Sprintf("boxcolor=%s@%.2f", bg, o.BackgroundOpacity))
		}
		if o.Animation != "" {
			p = append(p, "anim="+o.Animation)
		}
		p = append(p, fmt.Sprintf("enable='between(t,%.3f,%.3f)'", o.Start, o.End))

		out = append(out, Instruction{OpDrawText, expr("drawtext", p...)})
	}
	return out
}

// Optional transition fields by kind. Fields a kind ignores are silently not
// emitted, never rejected.
var (
	directionalKinds = map[history.TransitionKind]bool{
		history.TransitionSlide: true,
		history.TransitionWipe:  true,
		history.TransitionPush:  true,
	}
	intensityKinds = map[history.TransitionKind]bool{
		history.TransitionZoom: true,
	}
	easingKinds = map[history.TransitionKind]bool{
		history.TransitionSlide: true,
		history.TransitionPush:  true,
		history.TransitionZoom:  true,
	}
)

func transitionInstructions(transitions []history.Transition) []Instruction {
	sorted := append([]history.Transition(nil), transitions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].ID < sorted[j].ID
	})

	out := make([]Instruction, 0, len(sorted))
	for _, tr := range sorted {
		if tr.Duration <= 0 {
			continue
		}
		name := string(tr.Kind)
		if tr.Kind == history.TransitionCrossfade {
			name = "fade"
		}
		if directionalKinds[tr.Kind] {
			dir := tr.Direction
			if dir == "" {
				dir = "left"
			}
			name += dir
		}

		p := []string{
			"transition=" + name,
			pair("duration", "%.3f", tr.Duration),
			pair("offset", "%.3f", tr.Start),
		}
		if intensityKinds[tr.Kind] && tr.Intensity > 0 {
			p = append(p, pair("intensity", "%.2f", tr.Intensity))
		}
		if easingKinds[tr.Kind] && tr.Easing != "" {
			p = append(p, "easing="+tr.Easing)
		}

		out = append(out, Instruction{OpTransition, expr("xfade", p...)})
	}
	return out
}

func audioInstructions(tracks []history.AudioTrack) []Instruction {
	out := make([]Instruction, 0, len(tracks))
	for _, tr := range tracks {
		vol := tr.Volume
		if vol <= 0 {
			vol = 1
		}
		p := []string{
			"track=" + tr.ID,
			pair("start", "%.3f", tr.Start),
			pair("volume", "%.4f", vol),
		}
		if tr.FadeIn > 0 {
			p = append(p, pair("fade_in", "%.3f", tr.FadeIn))
		}
		if tr.FadeOut > 0 {
			p = append(p, pair("fade_out", "%.3f", tr.FadeOut))
		}
		out = append(out, Instruction{OpAudioMix, expr("amix", p...)})
	}
	return out
}

func escapeText(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	return r.Replace(s)
}
