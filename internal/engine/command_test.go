package engine

import (
	"strings"
	"testing"

	"github.com/cliplab/cliplab-agent/internal/compile"
)

func TestBuildArgsBasicChain(t *testing.T) {
	args := BuildArgs("/work/in.mp4", "/work/out.mp4", []compile.Instruction{
		{Op: compile.OpTrim, Expr: "trim=start=2.000:end=8.500"},
		{Op: compile.OpCrop, Expr: "crop=960:540:192:108"},
		{Op: compile.OpScale, Expr: "scale=1920:1080"},
		{Op: compile.OpVolume, Expr: "volume=v=0.5000"},
	})

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-i /work/in.mp4",
		"-ss 2.000 -to 8.500",
		"-vf crop=960:540:192:108,scale=1920:1080",
		"-af volume=0.5000",
		"-movflags +faststart /work/out.mp4",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q:\n%s", want, joined)
		}
	}
}

func TestBuildArgsSpeedSplitsStreams(t *testing.T) {
	args := BuildArgs("in.mp4", "out.mp4", []compile.Instruction{
		{Op: compile.OpSpeed, Expr: "setpts=PTS/2.0000"},
		{Op: compile.OpSpeed, Expr: "atempo=2.0000"},
	})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-vf setpts=PTS/2.0000") {
		t.Errorf("setpts should land on the video chain: %s", joined)
	}
	if !strings.Contains(joined, "-af atempo=2.0000") {
		t.Errorf("atempo should land on the audio chain: %s", joined)
	}
}

func TestBuildArgsTransitionBecomesFade(t *testing.T) {
	args := BuildArgs("in.mp4", "out.mp4", []compile.Instruction{
		{Op: compile.OpTransition, Expr: "xfade=transition=fade:duration=0.500:offset=4.000"},
	})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "fade=t=in:st=4.000:d=0.500") {
		t.Errorf("transition not lowered to fade: %s", joined)
	}
}

func TestBuildArgsAudioMixGraph(t *testing.T) {
	args := BuildArgs("/work/in.mp4", "/work/out.mp4", []compile.Instruction{
		{Op: compile.OpScale, Expr: "scale=1280:720"},
		{Op: compile.OpAudioMix, Expr: "amix=track=music.mp3:start=1.500:volume=0.8000:fade_in=2.000"},
	})
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "-i /work/music.mp3") {
		t.Fatalf("staged track not added as input: %s", joined)
	}
	if strings.Contains(joined, "-vf ") {
		t.Errorf("mixing should fold video filters into filter_complex: %s", joined)
	}

	var graph string
	for i, a := range args {
		if a == "-filter_complex" {
			graph = args[i+1]
		}
	}
	for _, want := range []string{
		"[0:v]scale=1280:720[vout]",
		"[1:a]adelay=1500|1500,volume=0.8000,afade=t=in:d=2.000[a1]",
		"[a0][a1]amix=inputs=2:duration=first:normalize=0[aout]",
	} {
		if !strings.Contains(graph, want) {
			t.Errorf("filter graph missing %q:\n%s", want, graph)
		}
	}
	if !strings.Contains(joined, "-map [vout] -map [aout]") {
		t.Errorf("missing stream maps: %s", joined)
	}
}

func TestColorGradeFilters(t *testing.T) {
	got := colorGradeFilters("colorgrade=brightness=1.3000:contrast=0.8500:hue=45.0:blur=3:gamma=1.4000")

	if len(got) < 3 {
		t.Fatalf("expected eq, hue and boxblur, got %v", got)
	}
	eq := got[0]
	for _, want := range []string{"brightness=0.3000", "contrast=0.8500", "gamma=1.4000"} {
		if !strings.Contains(eq, want) {
			t.Errorf("eq missing %q: %s", want, eq)
		}
	}
	if got[1] != "hue=h=45.0" {
		t.Errorf("hue = %q", got[1])
	}
	if got[2] != "boxblur=3" {
		t.Errorf("boxblur = %q", got[2])
	}
}

func TestColorGradeFiltersOrderMatchesPasses(t *testing.T) {
	got := colorGradeFilters("colorgrade=sepia=1.0000:bw=1:grain=50.00")

	idx := func(sub string) int {
		for i, f := range got {
			if strings.Contains(f, sub) {
				return i
			}
		}
		return -1
	}
	sepia, bw, grain := idx("colorchannelmixer"), idx("hue=s=0"), idx("noise=")
	if sepia < 0 || bw < 0 || grain < 0 {
		t.Fatalf("missing filters: %v", got)
	}
	if !(sepia < bw && bw < grain) {
		t.Errorf("pass order violated: %v", got)
	}
}

func TestSepiaMixerFull(t *testing.T) {
	got := sepiaMixer(1)
	for _, want := range []string{"rr=0.3930", "rg=0.7690", "bb=0.1310"} {
		if !strings.Contains(got, want) {
			t.Errorf("full sepia missing %q: %s", want, got)
		}
	}
}

func TestStripParam(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			"middle",
			"drawtext=text='hi':anim=fade:fontsize=24",
			"drawtext=text='hi':fontsize=24",
		},
		{
			"trailing",
			"drawtext=text='hi':anim=slide",
			"drawtext=text='hi'",
		},
		{
			"absent",
			"drawtext=text='hi':fontsize=24",
			"drawtext=text='hi':fontsize=24",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := stripParam(tc.in, "anim"); got != tc.want {
				t.Errorf("stripParam(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestResolveRejectsEscapes(t *testing.T) {
	e := &FFmpegEngine{workDir: "/work"}
	for _, name := range []string{"", "../etc/passwd", "a/b.mp4", ".hidden"} {
		if _, err := e.resolve(name); err == nil {
			t.Errorf("resolve(%q) should fail", name)
		}
	}
	if p, err := e.resolve("clip.mp4"); err != nil || p != "/work/clip.mp4" {
		t.Errorf("resolve(clip.mp4) = %q, %v", p, err)
	}
}
