package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors follow the indicator palette.
var (
	ColorRed    = lipgloss.Color("#F38BA8")
	ColorGreen  = lipgloss.Color("#A6E3A1")
	ColorYellow = lipgloss.Color("#F9E2AF")
	ColorBlue   = lipgloss.Color("#89B4FA")
	ColorMauve  = lipgloss.Color("#CBA6F7")
	ColorGray   = lipgloss.Color("#6C7086")
	ColorText   = lipgloss.Color("#CDD6F4")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBlue)

	LabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	BarEmptyStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray).
			Padding(0, 1)
)

const barCells = 30

func tierStyle(t Tier) lipgloss.Style {
	switch t {
	case TierExcellent:
		return lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
	case TierGood:
		return lipgloss.NewStyle().Foreground(ColorBlue).Bold(true)
	case TierAverage:
		return lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	}
}

// Bar draws a confidence bar filled to fill percent.
func Bar(t Tier, fill int) string {
	fill = clampScore(fill)
	filled := fill * barCells / 100
	return tierStyle(t).Render(strings.Repeat("█", filled)) +
		BarEmptyStyle.Render(strings.Repeat("░", barCells-filled))
}

// Render draws v inside a bordered panel. fill is the current bar fill,
// which the surface animates from 0 to v.BarFill.
func Render(v View, fill int, width int) string {
	if width <= 0 {
		width = 80
	}
	textWidth := max(20, width-6)
	wrap := lipgloss.NewStyle().Width(textWidth)

	var lines []string
	lines = append(lines, TitleStyle.Render("Interview Analysis"))
	lines = append(lines, "")
	lines = append(lines, LabelStyle.Render("Confidence ")+tierStyle(v.Tier).Render(v.ScoreText))
	lines = append(lines, Bar(v.Tier, fill))
	lines = append(lines, tierStyle(v.Tier).Render(v.TierText))
	lines = append(lines, "")
	lines = append(lines, field("Eye contact", v.EyeContact))
	lines = append(lines, field("Facial expressions", v.FacialExpressions))
	lines = append(lines, field("Speaking style", v.SpeakingStyle))
	lines = append(lines, "")
	lines = append(lines, LabelStyle.Render("Transcript"))
	lines = append(lines, wrap.Render(v.Transcript))
	lines = append(lines, "")
	lines = append(lines, LabelStyle.Render("Feedback"))
	for _, point := range v.Feedback {
		lines = append(lines, wrap.Render("• "+point))
	}
	lines = append(lines, "")
	lines = append(lines, DimStyle.Render(v.AnalyzedAt))

	return PanelStyle.Width(width - 2).Render(strings.Join(lines, "\n"))
}

func field(label string, value string) string {
	return LabelStyle.Render(label+": ") + value
}
