// Package config provides configuration management for the ClipLab agent.
// Configuration is read from environment variables with sensible defaults,
// with an optional TOML file overlay in the data directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// Default values
	DefaultPort     = 8787
	DefaultLogLevel = "info"
	DefaultDataDir  = ".cliplab"

	// Environment variable names
	EnvPort       = "CLIPLAB_PORT"
	EnvLogLevel   = "CLIPLAB_LOG_LEVEL"
	EnvDataDir    = "CLIPLAB_DATA_DIR"
	EnvFFmpegPath = "CLIPLAB_FFMPEG_PATH"
	EnvHeadless   = "CLIPLAB_HEADLESS"

	// Database filename
	DBFilename = "cliplab.db"

	// Optional config file overlay, relative to the data directory
	ConfigFilename = "config.toml"

	// Render defaults (seconds)
	DefaultRenderInitTimeout    = 30
	DefaultRenderBaseTimeout    = 120
	DefaultRenderPerInstruction = 30
	DefaultRenderMaxTimeout     = 600
	DefaultRenderMaxRetries     = 2
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	OutputDir() string
	EngineWorkDir() string
	FFmpegPath() string
	Headless() bool
	RenderInitTimeout() time.Duration
	RenderBaseTimeout() time.Duration
	RenderPerInstruction() time.Duration
	RenderMaxTimeout() time.Duration
	RenderMaxRetries() int
}

// fileOverlay is the config file schema. Every field is a pointer so
// unset keys fall through to the environment and defaults.
type fileOverlay struct {
	Port     *int    `toml:"port"`
	LogLevel *string `toml:"log_level"`
	FFmpeg   *string `toml:"ffmpeg_path"`
	Headless *bool   `toml:"headless"`

	Render struct {
		InitTimeoutS    *int `toml:"init_timeout_s"`
		BaseTimeoutS    *int `toml:"base_timeout_s"`
		PerInstructionS *int `toml:"per_instruction_s"`
		MaxTimeoutS     *int `toml:"max_timeout_s"`
		MaxRetries      *int `toml:"max_retries"`
	} `toml:"render"`
}

// EnvConfig reads configuration from environment variables plus the
// optional TOML overlay in the data directory.
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	ffmpeg   string
	headless bool

	renderInit    int
	renderBase    int
	renderPerInst int
	renderMax     int
	renderRetries int
}

// New creates a new EnvConfig with defaults, environment variable
// overrides, and finally the config.toml overlay when one exists.
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:          DefaultPort,
		logLevel:      DefaultLogLevel,
		dataDir:       defaultDataDir(),
		renderInit:    DefaultRenderInitTimeout,
		renderBase:    DefaultRenderBaseTimeout,
		renderPerInst: DefaultRenderPerInstruction,
		renderMax:     DefaultRenderMaxTimeout,
		renderRetries: DefaultRenderMaxRetries,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override data directory from environment
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	cfg.ffmpeg = os.Getenv(EnvFFmpegPath)

	if h := os.Getenv(EnvHeadless); h == "1" || h == "true" {
		cfg.headless = true
	}

	if err := cfg.applyOverlay(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *EnvConfig) applyOverlay() error {
	path := filepath.Join(c.dataDir, ConfigFilename)
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	var overlay fileOverlay
	if _, err := toml.DecodeFile(path, &overlay); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}

	if overlay.Port != nil {
		c.port = *overlay.Port
	}
	if overlay.LogLevel != nil {
		c.logLevel = *overlay.LogLevel
	}
	if overlay.FFmpeg != nil {
		c.ffmpeg = *overlay.FFmpeg
	}
	if overlay.Headless != nil {
		c.headless = *overlay.Headless
	}
	if v := overlay.Render.InitTimeoutS; v != nil {
		c.renderInit = *v
	}
	if v := overlay.Render.BaseTimeoutS; v != nil {
		c.renderBase = *v
	}
	if v := overlay.Render.PerInstructionS; v != nil {
		c.renderPerInst = *v
	}
	if v := overlay.Render.MaxTimeoutS; v != nil {
		c.renderMax = *v
	}
	if v := overlay.Render.MaxRetries; v != nil {
		c.renderRetries = *v
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// OutputDir returns the directory export artifacts are written to
func (c *EnvConfig) OutputDir() string {
	return filepath.Join(c.dataDir, "exports")
}

// EngineWorkDir returns the render engine's staging directory
func (c *EnvConfig) EngineWorkDir() string {
	return filepath.Join(c.dataDir, "work")
}

// FFmpegPath returns an explicit ffmpeg binary path, or empty for PATH lookup
func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpeg
}

// Headless reports whether the system tray should be skipped
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) RenderInitTimeout() time.Duration {
	return time.Duration(c.renderInit) * time.Second
}

func (c *EnvConfig) RenderBaseTimeout() time.Duration {
	return time.Duration(c.renderBase) * time.Second
}

func (c *EnvConfig) RenderPerInstruction() time.Duration {
	return time.Duration(c.renderPerInst) * time.Second
}

func (c *EnvConfig) RenderMaxTimeout() time.Duration {
	return time.Duration(c.renderMax) * time.Second
}

func (c *EnvConfig) RenderMaxRetries() int {
	return c.renderRetries
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
