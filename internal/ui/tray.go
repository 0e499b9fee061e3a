package ui

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"
)

type Tray struct {
	logger *slog.Logger

	statusItem  *systray.MenuItem
	exportsItem *systray.MenuItem

	mu sync.Mutex

	onOpenStudio func() error
	onQuit       func()
}

type TrayConfig struct {
	Logger       *slog.Logger
	OnOpenStudio func() error
	OnQuit       func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		logger:       cfg.Logger,
		onOpenStudio: cfg.OnOpenStudio,
		onQuit:       cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("ClipLab")
	systray.SetTooltip("ClipLab Agent")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current agent status")
	t.statusItem.Disable()

	t.exportsItem = systray.AddMenuItem("Exports: 0 active", "Running export jobs")
	t.exportsItem.Disable()

	systray.AddSeparator()

	openItem := systray.AddMenuItem("Open Studio...", "Open the editing studio in a browser")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit ClipLab Agent")

	go func() {
		for {
			select {
			case <-openItem.ClickedCh:
				t.handleOpenStudio()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) handleOpenStudio() {
	if t.onOpenStudio != nil {
		if err := t.onOpenStudio(); err != nil {
			t.logger.Error("failed to open studio", "error", err)
		}
	}
}

func (t *Tray) UpdateStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statusItem.SetTitle("Status: " + status)
}

func (t *Tray) UpdateExportsCount(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.exportsItem.SetTitle(fmt.Sprintf("Exports: %d active", count))
}

func (t *Tray) Quit() {
	systray.Quit()
}
