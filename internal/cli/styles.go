// Package cli renders terminal output for the fincat commands using lipgloss.
package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/Jaikumar96/fincategorizer/internal/triage"
)

// Palette colors. The tier colors double as the success/warning/error
// colors so a review band reads the same everywhere.
var (
	accent   = lipgloss.Color("#4B7BEC")
	accepted = lipgloss.Color("#26DE81")
	review   = lipgloss.Color("#F7B731")
	manual   = lipgloss.Color("#EB3B5A")
	muted    = lipgloss.Color("#778CA3")
	note     = lipgloss.Color("#45B7D1")
)

var (
	SuccessStyle     = lipgloss.NewStyle().Foreground(accepted)
	WarningStyle     = lipgloss.NewStyle().Foreground(review)
	ErrorStyle       = lipgloss.NewStyle().Foreground(manual)
	InfoStyle        = lipgloss.NewStyle().Foreground(note)
	SubtleStyle      = lipgloss.NewStyle().Foreground(muted)
	BoldStyle        = lipgloss.NewStyle().Bold(true)
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(1, 2)
)

// ChartIcon prefixes analytics headings.
const ChartIcon = "📊"

var tierStyles = map[triage.Tier]lipgloss.Style{
	triage.AutoAccepted: SuccessStyle,
	triage.NeedsReview:  WarningStyle,
}

// FormatSuccess renders a check-marked success line.
func FormatSuccess(message string) string {
	return SuccessStyle.Render("✓ " + message)
}

func FormatWarning(message string) string {
	return WarningStyle.Render("⚠️ " + message)
}

func FormatInfo(message string) string {
	return InfoStyle.Render("ℹ️ " + message)
}

func FormatTitle(title string) string {
	return titleStyle.Render(title)
}

// RenderBox draws content under a title inside a rounded border.
func RenderBox(title, content string) string {
	heading := titleStyle.UnsetMargins().Render(title)
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, heading, content))
}

// FormatTier renders a tier label in its band color. Anything that is not
// auto-accepted or queued for review is shown as manual.
func FormatTier(t triage.Tier) string {
	style, ok := tierStyles[t]
	if !ok {
		style = ErrorStyle
	}
	return style.Render(t.Label())
}

// FormatConfidence renders a confidence score as a percentage. A missing
// score renders as "n/a".
func FormatConfidence(score *float64) string {
	if score == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%%", *score*100)
}
