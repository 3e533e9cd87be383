// Package ui is the system tray surface: a status line, counters, and
// pause/quit controls for the background agent.
package ui

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/adcanvas/adapt-agent/internal/catalog"
)

type Tray struct {
	runner *catalog.Runner
	logger *slog.Logger

	statusItem *systray.MenuItem
	assetsItem *systray.MenuItem
	outputItem *systray.MenuItem
	pauseItem  *systray.MenuItem

	mu sync.Mutex

	onOpenOutputs func() error
	onQuit        func()
}

type TrayConfig struct {
	Runner        *catalog.Runner
	Logger        *slog.Logger
	OnOpenOutputs func() error
	OnQuit        func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		runner:        cfg.Runner,
		logger:        cfg.Logger,
		onOpenOutputs: cfg.OnOpenOutputs,
		onQuit:        cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Adapt")
	systray.SetTooltip("Adapt Agent")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current agent status")
	t.statusItem.Disable()

	t.assetsItem = systray.AddMenuItem("Assets: 0", "Registered source videos")
	t.assetsItem.Disable()

	t.outputItem = systray.AddMenuItem("Renditions: 0", "Finished outputs")
	t.outputItem.Disable()

	systray.AddSeparator()

	t.pauseItem = systray.AddMenuItem("Pause", "Pause adaptation")

	openItem := systray.AddMenuItem("Open Outputs...", "Open the outputs folder")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Adapt Agent")

	go func() {
		for {
			select {
			case <-t.pauseItem.ClickedCh:
				t.togglePause()
			case <-openItem.ClickedCh:
				t.handleOpenOutputs()
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

func (t *Tray) togglePause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runner == nil {
		return
	}

	if t.runner.IsPaused() {
		t.runner.Resume()
		t.pauseItem.SetTitle("Pause")
		t.statusItem.SetTitle("Status: Idle")
	} else {
		t.runner.Pause()
		t.pauseItem.SetTitle("Resume")
		t.statusItem.SetTitle("Status: Paused")
	}
}

func (t *Tray) handleOpenOutputs() {
	if t.onOpenOutputs != nil {
		if err := t.onOpenOutputs(); err != nil {
			t.logger.Error("could not open outputs folder", "error", err)
		}
	}
}

func (t *Tray) UpdateStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runner != nil && t.runner.IsPaused() {
		return
	}
	t.statusItem.SetTitle("Status: " + status)
}

func (t *Tray) UpdateAssetsCount(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.assetsItem.SetTitle(fmt.Sprintf("Assets: %d", count))
}

func (t *Tray) UpdateRenditionsCount(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outputItem.SetTitle(fmt.Sprintf("Renditions: %d", count))
}

func (t *Tray) Quit() {
	systray.Quit()
}
