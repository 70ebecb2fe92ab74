// Package notify fans user-facing notifications out to logs, the TUI, and the desktop.
package notify

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/rbright/rehearse/internal/config"
)

// Level is a notification severity.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// ParseLevel accepts info, success, warning, or error (case-insensitive).
func ParseLevel(raw string) (Level, error) {
	switch level := Level(strings.ToLower(strings.TrimSpace(raw))); level {
	case LevelInfo, LevelSuccess, LevelWarning, LevelError:
		return level, nil
	default:
		return "", fmt.Errorf("unknown notification level %q", raw)
	}
}

func (l Level) rank() int {
	switch l {
	case LevelError:
		return 3
	case LevelWarning:
		return 2
	case LevelSuccess:
		return 1
	default:
		return 0
	}
}

// Notification is one message delivered to every sink.
type Notification struct {
	Level   Level
	Message string
	At      time.Time
}

// Sink receives notifications. Deliver must not block for long.
type Sink interface {
	Deliver(Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Notification)

func (f SinkFunc) Deliver(n Notification) { f(n) }

type desktopSender func(level Level, title string, message string) error

// Hub is the notification channel shared by the session and its surfaces.
type Hub struct {
	logger   *slog.Logger
	desktop  bool
	minLevel Level
	appName  string
	send     desktopSender
	now      func() time.Time

	mu    sync.RWMutex
	sinks []Sink
}

// NewHub builds a hub from notify config. logger may be nil.
func NewHub(cfg config.NotifyConfig, logger *slog.Logger) *Hub {
	minLevel, err := ParseLevel(cfg.MinLevel)
	if err != nil {
		minLevel = LevelWarning
	}
	appName := strings.TrimSpace(cfg.AppName)
	if appName == "" {
		appName = "rehearse"
	}
	return &Hub{
		logger:   logger,
		desktop:  cfg.Desktop,
		minLevel: minLevel,
		appName:  appName,
		send:     beeepSend,
		now:      time.Now,
	}
}

// Register adds a sink; notifications already sent are not replayed.
func (h *Hub) Register(sink Sink) {
	if sink == nil {
		return
	}
	h.mu.Lock()
	h.sinks = append(h.sinks, sink)
	h.mu.Unlock()
}

// Notify logs the message and forwards it to every sink and, when enabled, the desktop.
func (h *Hub) Notify(level Level, message string) {
	n := Notification{Level: level, Message: message, At: h.now()}
	h.log(n)

	h.mu.RLock()
	sinks := append([]Sink(nil), h.sinks...)
	h.mu.RUnlock()
	for _, sink := range sinks {
		sink.Deliver(n)
	}

	if h.desktop && level.rank() >= h.minLevel.rank() {
		if err := h.send(level, h.appName, message); err != nil && h.logger != nil {
			h.logger.Debug("desktop notification failed", "error", err.Error())
		}
	}
}

func (h *Hub) Info(message string)    { h.Notify(LevelInfo, message) }
func (h *Hub) Success(message string) { h.Notify(LevelSuccess, message) }
func (h *Hub) Warning(message string) { h.Notify(LevelWarning, message) }
func (h *Hub) Error(message string)   { h.Notify(LevelError, message) }

func (h *Hub) log(n Notification) {
	if h.logger == nil {
		return
	}
	attrs := []any{"level_name", string(n.Level), "message", n.Message}
	switch n.Level {
	case LevelError:
		h.logger.Error("notification", attrs...)
	case LevelWarning:
		h.logger.Warn("notification", attrs...)
	default:
		h.logger.Info("notification", attrs...)
	}
}

func beeepSend(level Level, title string, message string) error {
	if level == LevelError {
		return beeep.Alert(title, message, "")
	}
	return beeep.Notify(title, message, "")
}
