// Package themes holds the color schemes of the review TUI.
package themes

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the visual style for the TUI.
type Theme struct {
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Bold          lipgloss.Style
	Selected      lipgloss.Style
	Header        lipgloss.Style
	RoundedBox    lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusWarning lipgloss.Style
	StatusError   lipgloss.Style
	StatusInfo    lipgloss.Style
	Primary       lipgloss.Color
	Muted         lipgloss.Color
	Border        lipgloss.Color
	Success       lipgloss.Color
	Warning       lipgloss.Color
	Error         lipgloss.Color
}

// TableStyles returns bubbles table styles in the theme's colors.
func (t Theme) TableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = t.Header
	s.Selected = t.Selected
	return s
}

// TierColor returns the color used for a review tier name.
func (t Theme) TierColor(tier string) lipgloss.Color {
	switch tier {
	case "auto_accepted":
		return t.Success
	case "needs_review":
		return t.Warning
	default:
		return t.Error
	}
}

func build(primary, secondary, fg, border, muted, success, warning, errColor, info lipgloss.Color) Theme {
	return Theme{
		Primary: primary,
		Muted:   muted,
		Border:  border,
		Success: success,
		Warning: warning,
		Error:   errColor,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(fg).
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(secondary),
		Normal: lipgloss.NewStyle().
			Foreground(fg),
		Bold: lipgloss.NewStyle().
			Bold(true).
			Foreground(fg),
		Selected: lipgloss.NewStyle().
			Background(primary).
			Foreground(fg).
			Bold(true),
		Header: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(border),
		RoundedBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),

		StatusSuccess: lipgloss.NewStyle().
			Foreground(success).
			Bold(true),
		StatusWarning: lipgloss.NewStyle().
			Foreground(warning).
			Bold(true),
		StatusError: lipgloss.NewStyle().
			Foreground(errColor).
			Bold(true),
		StatusInfo: lipgloss.NewStyle().
			Foreground(info).
			Bold(true),
	}
}

// Default is the default theme.
var Default = build(
	lipgloss.Color("#4B7BEC"),
	lipgloss.Color("#a3a3a3"),
	lipgloss.Color("#fafafa"),
	lipgloss.Color("#404040"),
	lipgloss.Color("#737373"),
	lipgloss.Color("#26DE81"),
	lipgloss.Color("#F7B731"),
	lipgloss.Color("#EB3B5A"),
	lipgloss.Color("#45B7D1"),
)

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = build(
	lipgloss.Color("#cba6f7"),
	lipgloss.Color("#a6adc8"),
	lipgloss.Color("#cdd6f4"),
	lipgloss.Color("#45475a"),
	lipgloss.Color("#6c7086"),
	lipgloss.Color("#a6e3a1"),
	lipgloss.Color("#f9e2af"),
	lipgloss.Color("#f38ba8"),
	lipgloss.Color("#89dceb"),
)

// ByName returns the named theme, falling back to Default.
func ByName(name string) Theme {
	switch name {
	case "catppuccin", "catppuccin-mocha":
		return CatppuccinMocha
	default:
		return Default
	}
}
