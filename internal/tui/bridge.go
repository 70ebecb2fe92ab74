package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rbright/rehearse/internal/dashboard"
	"github.com/rbright/rehearse/internal/indicator"
	"github.com/rbright/rehearse/internal/notify"
	"github.com/rbright/rehearse/internal/session"
)

// Bridge forwards session, dashboard, and notification callbacks into the
// running program as messages. Callbacks before Attach are dropped.
type Bridge struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

// NewBridge returns a detached bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach routes later callbacks through send, typically (*tea.Program).Send.
func (b *Bridge) Attach(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

func (b *Bridge) post(msg tea.Msg) {
	b.mu.RLock()
	send := b.send
	b.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}

// SetControls implements session.Surface.
func (b *Bridge) SetControls(controls session.Controls) {
	b.post(ControlsMsg{Controls: controls})
}

// SetStatus implements session.Surface.
func (b *Bridge) SetStatus(status indicator.Status) {
	b.post(StatusMsg{Status: status})
}

// Show implements dashboard.Sink.
func (b *Bridge) Show(view dashboard.View) {
	b.post(DashboardMsg{View: view})
}

// Deliver implements notify.Sink.
func (b *Bridge) Deliver(n notify.Notification) {
	b.post(NotificationMsg{Notification: n})
}
