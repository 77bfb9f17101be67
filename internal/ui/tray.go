package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/frameforge/frameforge-agent/internal/render"
)

const refreshInterval = 2 * time.Second

// QueueController is the part of the render queue the tray drives.
type QueueController interface {
	QueueStatus() render.Status
	Pause()
	Resume(ctx context.Context)
	IsPaused() bool
}

type Tray struct {
	queue  QueueController
	logger *slog.Logger

	statusItem *systray.MenuItem
	pauseItem  *systray.MenuItem

	mu sync.Mutex

	onQuit func()
	done   chan struct{}
}

type TrayConfig struct {
	Queue  QueueController
	Logger *slog.Logger
	OnQuit func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		queue:  cfg.Queue,
		logger: cfg.Logger,
		onQuit: cfg.OnQuit,
		done:   make(chan struct{}),
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("FrameForge")
	systray.SetTooltip("FrameForge Agent")

	t.statusItem = systray.AddMenuItem(StatusLabel(t.queue.QueueStatus()), "Render queue status")
	t.statusItem.Disable()

	systray.AddSeparator()

	t.pauseItem = systray.AddMenuItem(pauseLabel(t.queue.IsPaused()), "Hold or release queued renders")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit FrameForge Agent")

	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.refresh()
			case <-t.pauseItem.ClickedCh:
				t.togglePause()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			case <-t.done:
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

	if t.queue.IsPaused() {
		t.queue.Resume(context.Background())
	} else {
		t.queue.Pause()
	}
	t.pauseItem.SetTitle(pauseLabel(t.queue.IsPaused()))
	t.statusItem.SetTitle(StatusLabel(t.queue.QueueStatus()))
}

func (t *Tray) refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statusItem.SetTitle(StatusLabel(t.queue.QueueStatus()))
}

func (t *Tray) Quit() {
	close(t.done)
	systray.Quit()
}

// StatusLabel renders the queue state for the menu.
func StatusLabel(s render.Status) string {
	switch {
	case s.Paused:
		return "Status: Paused"
	case s.ActiveTaskCount > 0:
		return fmt.Sprintf("Status: Rendering %d/%d", s.ActiveTaskCount, s.MaxConcurrent)
	default:
		return "Status: Idle"
	}
}

func pauseLabel(paused bool) string {
	if paused {
		return "Resume all"
	}
	return "Pause all"
}
