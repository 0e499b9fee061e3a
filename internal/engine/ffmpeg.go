package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const maxStderrBytes = 8 * 1024 // tail kept for diagnostics

// FFmpegEngine renders through a local ffmpeg binary. The working directory
// acts as the engine's virtual file storage: every staged name is a flat
// file underneath it.
type FFmpegEngine struct {
	workDir string
	logger  *slog.Logger

	mu      sync.Mutex
	ffmpeg  string
	ffprobe string
	ready   bool

	// binaryPath, when set, bypasses the PATH lookup for ffmpeg and
	// resolves ffprobe alongside it.
	binaryPath string
}

func NewFFmpegEngine(workDir string, logger *slog.Logger) *FFmpegEngine {
	return &FFmpegEngine{workDir: workDir, logger: logger}
}

// SetBinaryPath points the engine at an explicit ffmpeg binary instead of
// searching PATH. Must be called before Init.
func (e *FFmpegEngine) SetBinaryPath(path string) {
	e.mu.Lock()
	e.binaryPath = path
	e.mu.Unlock()
}

// Init resolves the binaries and prepares working storage. A successful init
// is cached; a failed engine can be re-initialized by calling Init again.
func (e *FFmpegEngine) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready {
		return nil
	}

	var ffmpeg, ffprobe string
	if e.binaryPath != "" {
		if _, err := os.Stat(e.binaryPath); err != nil {
			return fmt.Errorf("configured ffmpeg binary: %w", err)
		}
		ffmpeg = e.binaryPath
		ffprobe = filepath.Join(filepath.Dir(e.binaryPath), "ffprobe")
		if _, err := os.Stat(ffprobe); err != nil {
			return fmt.Errorf("ffprobe not found next to configured ffmpeg: %w", err)
		}
	} else {
		var err error
		ffmpeg, err = exec.LookPath("ffmpeg")
		if err != nil {
			return fmt.Errorf("ffmpeg not found in PATH: %w", err)
		}
		ffprobe, err = exec.LookPath("ffprobe")
		if err != nil {
			return fmt.Errorf("ffprobe not found in PATH: %w", err)
		}
	}
	if err := os.MkdirAll(e.workDir, 0755); err != nil {
		return fmt.Errorf("cannot create engine work dir: %w", err)
	}

	e.ffmpeg = ffmpeg
	e.ffprobe = ffprobe
	e.ready = true
	e.logger.Info("render engine initialised", "ffmpeg", ffmpeg, "work_dir", e.workDir)
	return nil
}

func (e *FFmpegEngine) Healthy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// markUnhealthy forces the next Init to run again.
func (e *FFmpegEngine) markUnhealthy() {
	e.mu.Lock()
	e.ready = false
	e.mu.Unlock()
}

func (e *FFmpegEngine) WriteInput(name string, data []byte) error {
	path, err := e.resolve(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot stage %s: %w", name, err)
	}
	return nil
}

func (e *FFmpegEngine) Probe(ctx context.Context, name string) (*ProbeResult, error) {
	path, err := e.resolve(name)
	if err != nil {
		return nil, err
	}

	out, err := exec.CommandContext(ctx, e.ffprobe,
		"-v", "error",
		"-show_entries", "stream=codec_type,codec_name,width,height:format=duration",
		"-of", "json",
		path,
	).Output()
	if err != nil {
		e.markUnhealthy()
		return nil, fmt.Errorf("probe failed for %s: %w", name, err)
	}

	var probe struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			CodecName string `json:"codec_name"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("cannot parse probe output: %w", err)
	}

	result := &ProbeResult{}
	result.Duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			if result.Width == 0 {
				result.Width = s.Width
				result.Height = s.Height
				result.Codec = s.CodecName
			}
		case "audio":
			result.HasAudio = true
		}
	}
	return result, nil
}

func (e *FFmpegEngine) Exec(ctx context.Context, cmd Command) error {
	inPath, err := e.resolve(cmd.InputName)
	if err != nil {
		return err
	}
	outPath, err := e.resolve(cmd.OutputName)
	if err != nil {
		return err
	}

	args := BuildArgs(inPath, outPath, cmd.Instructions)

	e.logger.Info("executing render command",
		"input", cmd.InputName,
		"output", cmd.OutputName,
		"instructions", len(cmd.Instructions),
	)
	e.logger.Debug("render args", "args", args)

	start := time.Now()
	proc := exec.CommandContext(ctx, e.ffmpeg, args...)

	var stderrBuf bytes.Buffer
	proc.Stderr = io.Writer(&limitedWriter{w: &stderrBuf, limit: maxStderrBytes})
	proc.Stdout = io.Discard

	err = proc.Run()
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			// Caller decides whether this was a timeout or a cancellation.
			return ctx.Err()
		}
		e.markUnhealthy()
		tail := strings.TrimSpace(stderrBuf.String())
		e.logger.Warn("render command failed",
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(tail, 512),
		)
		return fmt.Errorf("engine exited with error: %w (stderr: %s)", err, truncate(tail, 512))
	}

	e.logger.Info("render command succeeded", "duration_ms", elapsed.Milliseconds())
	return nil
}

func (e *FFmpegEngine) ReadOutput(name string) ([]byte, error) {
	path, err := e.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotStaged, name)
		}
		return nil, fmt.Errorf("cannot read %s: %w", name, err)
	}
	return data, nil
}

func (e *FFmpegEngine) Remove(name string) error {
	path, err := e.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot remove %s: %w", name, err)
	}
	return nil
}

// resolve maps a virtual name to its on-disk path, rejecting anything that
// could escape the working directory.
func (e *FFmpegEngine) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid virtual name %q", name)
	}
	return filepath.Join(e.workDir, name), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter keeps only the last `limit` bytes written.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
