// Package indicator handles visual state notifications and audio cue playback.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/rehearse/internal/config"
	"github.com/rbright/rehearse/internal/hypr"
)

// Controller is the session-facing indicator contract.
type Controller interface {
	Show(context.Context, Status)
	Hide(context.Context)
}

// HyprNotify is the concrete indicator implementation used by runtime sessions.
// It can route notifications via Hyprland or desktop DBus based on config backend.
type HyprNotify struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages
	bus      desktopBus

	mu                    sync.Mutex
	desktopNotificationID uint32
	soundMu               sync.Mutex
}

// NewHyprNotify creates an indicator controller from config.
func NewHyprNotify(cfg config.IndicatorConfig, logger *slog.Logger) *HyprNotify {
	return &HyprNotify{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
		bus:      newDesktopBus(),
	}
}

// Show mirrors status on the desktop and plays the matching cue.
func (h *HyprNotify) Show(ctx context.Context, status Status) {
	h.playCue(status.Kind)
	if !h.cfg.Enable {
		return
	}

	label := h.messages.label(status)
	urgency := urgencyFor(status.Kind)
	switch status.Kind {
	case StatusReady:
		h.run(ctx, h.dismiss)
	case StatusRecording:
		h.run(ctx, func(ctx context.Context) error {
			return h.notify(ctx, 1, 300000, "rgb(f38ba8)", urgency, label)
		})
	case StatusAnalyzing:
		h.run(ctx, func(ctx context.Context) error {
			return h.notify(ctx, 1, 300000, "rgb(cba6f7)", urgency, label)
		})
	case StatusComplete:
		h.run(ctx, func(ctx context.Context) error {
			return h.notify(ctx, 5, 2500, "rgb(a6e3a1)", urgency, label)
		})
	default:
		timeout := h.cfg.ErrorTimeoutMS
		if timeout <= 0 {
			timeout = 1200
		}
		h.run(ctx, func(ctx context.Context) error {
			return h.notify(ctx, 3, timeout, "rgb(f38ba8)", urgency, label)
		})
	}
}

// Hide dismisses the active indicator surface.
func (h *HyprNotify) Hide(ctx context.Context) {
	if !h.cfg.Enable {
		return
	}
	h.run(ctx, h.dismiss)
}

// notify dispatches indicator output through the configured backend.
func (h *HyprNotify) notify(ctx context.Context, icon int, timeoutMS int, color string, urgency byte, text string) error {
	if strings.EqualFold(strings.TrimSpace(h.cfg.Backend), "desktop") {
		return h.notifyDesktop(ctx, timeoutMS, urgency, text)
	}
	return hypr.Notify(ctx, icon, timeoutMS, color, text)
}

// dismiss removes indicator output from the configured backend.
func (h *HyprNotify) dismiss(ctx context.Context) error {
	if strings.EqualFold(strings.TrimSpace(h.cfg.Backend), "desktop") {
		return h.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (h *HyprNotify) notifyDesktop(ctx context.Context, timeoutMS int, urgency byte, text string) error {
	h.mu.Lock()
	replaceID := h.desktopNotificationID
	h.mu.Unlock()

	appName := strings.TrimSpace(h.cfg.DesktopAppName)
	if appName == "" {
		appName = "rehearse-indicator"
	}

	id, err := h.bus.Notify(ctx, desktopNote{
		App:       appName,
		ReplaceID: replaceID,
		Summary:   text,
		Urgency:   urgency,
		TimeoutMS: timeoutMS,
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.desktopNotificationID = id
	h.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (h *HyprNotify) dismissDesktop(ctx context.Context) error {
	h.mu.Lock()
	id := h.desktopNotificationID
	h.desktopNotificationID = 0
	h.mu.Unlock()

	if id == 0 {
		return nil
	}
	return h.bus.Close(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (h *HyprNotify) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		h.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (h *HyprNotify) playCue(kind StatusKind) {
	if !h.cfg.SoundEnable || len(cueSamples(kind)) == 0 {
		return
	}
	go func() {
		h.soundMu.Lock()
		defer h.soundMu.Unlock()
		if err := emitCue(kind, h.cfg); err != nil {
			h.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (h *HyprNotify) log(message string, err error) {
	if h.logger == nil || err == nil {
		return
	}
	h.logger.Debug(message, "error", err.Error())
}
