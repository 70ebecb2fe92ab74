package tui

import (
	"github.com/rbright/rehearse/internal/dashboard"
	"github.com/rbright/rehearse/internal/indicator"
	"github.com/rbright/rehearse/internal/notify"
	"github.com/rbright/rehearse/internal/session"
)

// ControlsMsg carries the session's enabled controls.
type ControlsMsg struct {
	Controls session.Controls
}

// StatusMsg carries a status badge change.
type StatusMsg struct {
	Status indicator.Status
}

// NotificationMsg carries one notification for the banner.
type NotificationMsg struct {
	Notification notify.Notification
}

// DashboardMsg carries a freshly presented analysis.
type DashboardMsg struct {
	View dashboard.View
}

// QuestionMsg carries the result of fetching a new question.
type QuestionMsg struct {
	Question string
	Err      error
}

// CopiedMsg reports the outcome of a clipboard copy.
type CopiedMsg struct {
	Err error
}

// actionDoneMsg ends a manager call. The manager notifies failures itself.
type actionDoneMsg struct {
	Err error
}

// fillTickMsg advances the confidence bar animation.
type fillTickMsg struct{}

// clearBannerMsg clears the banner if it is still the one identified by seq.
type clearBannerMsg struct {
	seq int
}
