package compile

import (
	"strconv"
	"strings"
	"testing"

	"github.com/cliplab/cliplab-agent/internal/filters"
	"github.com/cliplab/cliplab-agent/internal/history"
	"github.com/cliplab/cliplab-agent/internal/raster"
)

func baseRequest() Request {
	return Request{
		State:  history.DefaultState(),
		Source: Source{Width: 1920, Height: 1080, Duration: 30},
	}
}

func findOp(t *testing.T, instrs []Instruction, op Op) Instruction {
	t.Helper()
	for _, in := range instrs {
		if in.Op == op {
			return in
		}
	}
	t.Fatalf("no %s instruction in %v", op, instrs)
	return Instruction{}
}

func countOp(instrs []Instruction, op Op) int {
	n := 0
	for _, in := range instrs {
		if in.Op == op {
			n++
		}
	}
	return n
}

func TestCompile_DefaultStateIsEmpty(t *testing.T) {
	instrs, err := Compile(baseRequest())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(instrs) != 0 {
		t.Fatalf("default state must compile to no instructions, got %v", instrs)
	}
}

func TestCompile_CropPercentToAbsolutePixels(t *testing.T) {
	req := baseRequest()
	req.State.Crop = &history.CropRect{X: 10, Y: 10, Width: 50, Height: 50}

	instrs, err := Compile(req)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got := findOp(t, instrs, OpCrop)
	if got.Expr != "crop=960:540:192:108" {
		t.Errorf("crop expr = %q, want crop=960:540:192:108", got.Expr)
	}
}

func TestCompile_ScaleSymbolicResolutions(t *testing.T) {
	tests := []struct {
		resolution string
		aspect     string
		want       string
	}{
		{"1080p", "16:9", "scale=1920:1080"},
		{"1080p", "", "scale=1920:1080"},
		{"4k", "16:9", "scale=3840:2160"},
		{"2160p", "16:9", "scale=3840:2160"},
		{"720p", "16:9", "scale=1280:720"},
		{"1080p", "9:16", "scale=608:1080"},
		{"1080p", "1:1", "scale=1080:1080"},
		{"1080p", "4:3", "scale=1440:1080"},
	}
	for _, tc := range tests {
		t.Run(tc.resolution+"_"+tc.aspect, func(t *testing.T) {
			req := baseRequest()
			req.Target = Target{Resolution: tc.resolution, Aspect: tc.aspect}
			instrs, err := Compile(req)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			if got := findOp(t, instrs, OpScale); got.Expr != tc.want {
				t.Errorf("scale expr = %q, want %q", got.Expr, tc.want)
			}
		})
	}
}

func TestCompile_UnknownResolutionOmitsScale(t *testing.T) {
	req := baseRequest()
	req.Target = Target{Resolution: "potato"}
	instrs, err := Compile(req)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if countOp(instrs, OpScale) != 0 {
		t.Error("unknown resolution must omit the scale instruction")
	}
}

func TestCompile_TrimAndSpeed(t *testing.T) {
	req := baseRequest()
	req.State.Trim = &history.TrimRange{Start: 5, End: 15}
	req.State.Speed = 3

	instrs, err := Compile(req)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := findOp(t, instrs, OpTrim); got.Expr != "trim=start=5.000:end=15.000" {
		t.Errorf("trim expr = %q", got.Expr)
	}

	var speeds []string
	for _, in := range instrs {
		if in.Op == OpSpeed {
			speeds = append(speeds, in.Expr)
		}
	}
	want := []string{"setpts=PTS/3.0000", "atempo=2.0000", "atempo=1.5000"}
	if len(speeds) != len(want) {
		t.Fatalf("speed instructions = %v, want %v", speeds, want)
	}
	for i := range want {
		if speeds[i] != want[i] {
			t.Errorf("speed[%d] = %q, want %q", i, speeds[i], want[i])
		}
	}
}

func TestCompile_ValidationRejectsBeforeEngine(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"trim end before start", func(r *Request) {
			r.State.Trim = &history.TrimRange{Start: 10, End: 5}
		}},
		{"zero size crop", func(r *Request) {
			r.State.Crop = &history.CropRect{X: 10, Y: 10, Width: 0, Height: 50}
		}},
		{"empty split set", func(r *Request) {
			r.State.SplitPoints = []float64{}
		}},
		{"non-positive speed", func(r *Request) {
			r.State.Speed = 0
		}},
		{"overlay window inverted", func(r *Request) {
			r.State.Overlays = []history.TextOverlay{{ID: "o", End: 1, Start: 5}}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := baseRequest()
			tc.mutate(&req)
			if _, err := Compile(req); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCompile_OverlayInstruction(t *testing.T) {
	req := baseRequest()
	req.State.Overlays = []history.TextOverlay{{
		ID: "o1", Text: "It's 10:00", Start: 1, End: 5,
		X: 50, Y: 90, FontSize: 32, Color: "#ffffff",
		BackgroundOpacity: 0.5,
	}}

	instrs, err := Compile(req)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got := findOp(t, instrs, OpDrawText).Expr
	for _, want := range []string{
		`text='It\'s 10\:00'`,
		"fontsize=32",
		"fontcolor=#ffffff",
		"x=(w-text_w)*0.50",
		"y=(h-text_h)*0.90",
		"boxcolor=black@0.50",
		"enable='between(t,1.000,5.000)'",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("drawtext %q missing %q", got, want)
		}
	}
}

func TestCompile_TransitionFieldRules(t *testing.T) {
	req := baseRequest()
	req.State.Transitions = []history.Transition{
		{ID: "t1", Kind: history.TransitionFade, Duration: 1, Start: 3, Intensity: 0.9, Direction: "left"},
		{ID: "t2", Kind: history.TransitionSlide, Duration: 0.5, Start: 8, Direction: "up"},
		{ID: "t3", Kind: history.TransitionZoom, Duration: 1, Start: 12, Intensity: 0.7},
		{ID: "t4", Kind: history.TransitionWipe, Duration: 0, Start: 20}, // invalid duration, skipped
	}

	instrs, err := Compile(req)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	var trs []string
	for _, in := range instrs {
		if in.Op == OpTransition {
			trs = append(trs, in.Expr)
		}
	}
	if len(trs) != 3 {
		t.Fatalf("got %d transitions, want 3 (zero-duration skipped): %v", len(trs), trs)
	}
	if strings.Contains(trs[0], "intensity") || strings.Contains(trs[0], "left") {
		t.Errorf("fade must silently drop intensity/direction: %q", trs[0])
	}
	if !strings.Contains(trs[1], "transition=slideup") {
		t.Errorf("slide must fold direction into the kind: %q", trs[1])
	}
	if !strings.Contains(trs[2], "intensity=0.70") {
		t.Errorf("zoom must carry intensity: %q", trs[2])
	}
}

func TestCompile_AudioMixAndVolume(t *testing.T) {
	req := baseRequest()
	req.State.Volume = 0.5
	req.Audio = []history.AudioTrack{
		{ID: "music", Start: 2, Volume: 0.8, FadeIn: 1, FadeOut: 2},
	}

	instrs, err := Compile(req)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := findOp(t, instrs, OpVolume).Expr; got != "volume=v=0.5000" {
		t.Errorf("volume expr = %q", got)
	}
	mix := findOp(t, instrs, OpAudioMix).Expr
	for _, want := range []string{"track=music", "start=2.000", "volume=0.8000", "fade_in=1.000", "fade_out=2.000"} {
		if !strings.Contains(mix, want) {
			t.Errorf("amix %q missing %q", mix, want)
		}
	}
}

// Preview/export parity: evaluate the compiled colorgrade instruction on a
// pixel using its serialized parameters and compare with the kernel's
// compositing pass applied to the same pixel.
func TestCompile_ColorGradeParityWithKernel(t *testing.T) {
	bundle := filters.Identity()
	bundle.Brightness = 130
	bundle.Contrast = 85
	bundle.Saturation = 140
	bundle.Sepia = 25

	req := baseRequest()
	req.State.Filters = bundle

	instrs, err := Compile(req)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	name, params := ParseExpr(findOp(t, instrs, OpColorGrade).Expr)
	if name != "colorgrade" {
		t.Fatalf("instruction name = %q", name)
	}

	parse := func(key string, def float64) float64 {
		s, ok := params[key]
		if !ok {
			return def
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			t.Fatalf("param %s=%q not numeric: %v", key, s, err)
		}
		return v
	}

	// Semantic evaluation of the instruction on one pixel, in instruction
	// parameter space.
	r, g, b := 90.0, 160.0, 40.0
	bright := parse("brightness", 1)
	r, g, b = r*bright, g*bright, b*bright
	contrast := parse("contrast", 1)
	r, g, b = (r-128)*contrast+128, (g-128)*contrast+128, (b-128)*contrast+128
	sat := parse("saturation", 1)
	l := 0.299*r + 0.587*g + 0.114*b
	r, g, b = l+(r-l)*sat, l+(g-l)*sat, l+(b-l)*sat
	sep := parse("sepia", 0)
	lerp := func(full, ident float64) float64 { return ident + (full-ident)*sep }
	r2 := lerp(0.393, 1)*r + lerp(0.769, 0)*g + lerp(0.189, 0)*b
	g2 := lerp(0.349, 0)*r + lerp(0.686, 1)*g + lerp(0.168, 0)*b
	b2 := lerp(0.272, 0)*r + lerp(0.534, 0)*g + lerp(0.131, 1)*b

	frame, err := raster.NewFrame(1, 1)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	frame.Pix[0], frame.Pix[1], frame.Pix[2], frame.Pix[3] = 90, 160, 40, 255
	raster.ApplyFilters(frame, bundle)

	const tolerance = 3.0 // per-pass byte rounding accumulates in the kernel
	for i, want := range []float64{r2, g2, b2} {
		got := float64(frame.Pix[i])
		if want < 0 {
			want = 0
		}
		if want > 255 {
			want = 255
		}
		if diff := got - want; diff > tolerance || diff < -tolerance {
			t.Errorf("channel %d: kernel=%v instruction=%v (diff %v)", i, got, want, diff)
		}
	}
}

func TestCompile_ColorGradeOmittedForIdentity(t *testing.T) {
	req := baseRequest()
	instrs, err := Compile(req)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if countOp(instrs, OpColorGrade) != 0 {
		t.Error("identity bundle must omit the colorgrade instruction")
	}
}

func TestCompile_LUTCarriedToExport(t *testing.T) {
	req := baseRequest()
	req.State.Filters = filters.ApplyLUT(filters.Identity(), "orange_teal", 75)

	instrs, err := Compile(req)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	_, params := ParseExpr(findOp(t, instrs, OpColorGrade).Expr)
	if params["lut"] != "orange_teal" {
		t.Errorf("lut = %q, want orange_teal", params["lut"])
	}
	if params["lut_intensity"] != "0.75" {
		t.Errorf("lut_intensity = %q, want 0.75", params["lut_intensity"])
	}
}

func TestParseExpr(t *testing.T) {
	name, params := ParseExpr("xfade=transition=fade:duration=1.000:offset=3.000")
	if name != "xfade" {
		t.Errorf("name = %q", name)
	}
	if params["transition"] != "fade" || params["duration"] != "1.000" {
		t.Errorf("params = %v", params)
	}
}
