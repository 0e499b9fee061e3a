package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cliplab/cliplab-agent/internal/api"
	"github.com/cliplab/cliplab-agent/internal/config"
	"github.com/cliplab/cliplab-agent/internal/db"
	"github.com/cliplab/cliplab-agent/internal/engine"
	"github.com/cliplab/cliplab-agent/internal/jobs"
	"github.com/cliplab/cliplab-agent/internal/logging"
	"github.com/cliplab/cliplab-agent/internal/playback"
	"github.com/cliplab/cliplab-agent/internal/render"
	"github.com/cliplab/cliplab-agent/internal/studio"
	"github.com/cliplab/cliplab-agent/internal/ui"
)

var headless bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cliplab-agent",
	Short: "ClipLab Agent - local non-destructive video editing service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agent API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cliplab-agent %s (built %s, commit %s)\n",
			config.Version, config.BuildTime, config.GitCommit)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "run without the system tray")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.OutputDir(), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting cliplab agent", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := jobs.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                    CLIPLAB AGENT v" + config.Version + "                   ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	eng := engine.NewFFmpegEngine(cfg.EngineWorkDir(), logger)
	if p := cfg.FFmpegPath(); p != "" {
		eng.SetBinaryPath(p)
	}

	orch := render.New(eng, render.Config{
		InitTimeout:      cfg.RenderInitTimeout(),
		BaseTimeout:      cfg.RenderBaseTimeout(),
		PerInstruction:   cfg.RenderPerInstruction(),
		MaxTimeout:       cfg.RenderMaxTimeout(),
		MaxRetries:       cfg.RenderMaxRetries(),
		ProgressInterval: 500 * time.Millisecond,
		Logger:           logger,
	})

	studioSvc := studio.NewService(eng, orch, repo, cfg.OutputDir(), logger)
	playbackSvc := playback.NewServer(logger)

	apiServer := api.NewServer(api.ServerConfig{
		Port:         cfg.Port(),
		Studio:       studioSvc,
		Repository:   repo,
		Orchestrator: orch,
		Streamer:     playbackSvc,
		Logger:       logger,
		StartTime:    startTime,
		DeviceID:     deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if headless || cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Logger: logger,
			OnOpenStudio: func() error {
				logger.Info("open studio requested from tray",
					"url", fmt.Sprintf("http://127.0.0.1:%d", cfg.Port()))
				return nil
			},
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureDeviceID(repo jobs.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo jobs.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
