package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/rbright/rehearse/internal/dashboard"
	"github.com/rbright/rehearse/internal/indicator"
	"github.com/rbright/rehearse/internal/notify"
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(dashboard.ColorBlue)

	QuestionStyle = lipgloss.NewStyle().
			Foreground(dashboard.ColorText)

	NotesStyle = lipgloss.NewStyle().
			Foreground(dashboard.ColorGray)

	NotesActiveStyle = lipgloss.NewStyle().
				Foreground(dashboard.ColorMauve)

	OverlayStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(dashboard.ColorRed)

	FooterStyle = lipgloss.NewStyle().
			Foreground(dashboard.ColorGray)

	badgeBase = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("#1E1E2E"))
)

func badgeStyle(kind indicator.StatusKind) lipgloss.Style {
	switch kind {
	case indicator.StatusRecording, indicator.StatusError:
		return badgeBase.Background(dashboard.ColorRed)
	case indicator.StatusAnalyzing:
		return badgeBase.Background(dashboard.ColorYellow)
	case indicator.StatusComplete:
		return badgeBase.Background(dashboard.ColorGreen)
	default:
		return badgeBase.Background(dashboard.ColorBlue)
	}
}

func bannerStyle(level notify.Level) lipgloss.Style {
	switch level {
	case notify.LevelError:
		return lipgloss.NewStyle().Foreground(dashboard.ColorRed).Bold(true)
	case notify.LevelWarning:
		return lipgloss.NewStyle().Foreground(dashboard.ColorYellow)
	case notify.LevelSuccess:
		return lipgloss.NewStyle().Foreground(dashboard.ColorGreen)
	default:
		return lipgloss.NewStyle().Foreground(dashboard.ColorBlue)
	}
}
