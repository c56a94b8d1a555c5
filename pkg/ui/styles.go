package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	// Brand colors
	Primary   = lipgloss.Color("#2563EB") // Blue - brand color
	Secondary = lipgloss.Color("#00D4AA") // Teal

	// Risk colors
	RiskHigh   = lipgloss.Color("#FF3838") // Red
	RiskMedium = lipgloss.Color("#FFB800") // Amber
	RiskLow    = lipgloss.Color("#00D26A") // Green

	// Status colors
	Success = lipgloss.Color("#00D26A") // Bright green
	Warning = lipgloss.Color("#FFB800") // Amber
	Error   = lipgloss.Color("#FF3838") // Red
	Muted   = lipgloss.Color("#6B7280") // Gray

	Bright = lipgloss.Color("#FAFAFA")
	Track  = lipgloss.Color("#3B3B4F")
)

// Pre-configured styles
var (
	// Headers
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	BannerStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	VersionStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	SectionStyle = lipgloss.NewStyle().
			Foreground(Bright).
			Bold(true).
			MarginTop(1)

	// Configuration display
	ConfigLabelStyle = lipgloss.NewStyle().
				Foreground(Muted).
				Width(15)

	ConfigValueStyle = lipgloss.NewStyle().
				Foreground(Bright)

	// Progress bar
	ProgressFullStyle = lipgloss.NewStyle().
				Foreground(Primary)

	ProgressEmptyStyle = lipgloss.NewStyle().
				Foreground(Track)

	// Statistics
	StatLabelStyle = lipgloss.NewStyle().
			Foreground(Muted)

	StatValueStyle = lipgloss.NewStyle().
			Foreground(Bright).
			Bold(true)

	BracketStyle = lipgloss.NewStyle().
			Foreground(Muted)

	PassStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	FailStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarnStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	DividerStyle = lipgloss.NewStyle().
			Foreground(Muted)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	// Category badge
	CategoryStyle = lipgloss.NewStyle().
			Foreground(Bright).
			Background(Track).
			Padding(0, 1)

	// Question prompt
	PromptStyle = lipgloss.NewStyle().
			Foreground(Bright).
			Bold(true)

	CriticalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(RiskHigh).
			Bold(true).
			Padding(0, 1)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Primary)
)

// RiskStyle returns the badge style for a risk category (low, medium, high).
func RiskStyle(category string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch strings.ToLower(category) {
	case "high":
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(RiskHigh)
	case "medium":
		return base.Foreground(lipgloss.Color("#000000")).Background(RiskMedium)
	case "low":
		return base.Foreground(lipgloss.Color("#000000")).Background(RiskLow)
	default:
		return base.Foreground(Muted)
	}
}

// VerdictStyle returns the text style for a verdict or category status.
func VerdictStyle(verdict string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch strings.ToUpper(verdict) {
	case "PASS":
		return base.Foreground(Success)
	case "NEEDS IMPROVEMENT", "IMPROVE":
		return base.Foreground(Warning)
	case "FAIL":
		return base.Foreground(Error)
	default:
		return base.Foreground(Muted)
	}
}

// OptionStyle colors an answer label.
func OptionStyle(option string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch strings.ToLower(strings.TrimSpace(option)) {
	case "yes":
		return base.Foreground(Success)
	case "no":
		return base.Foreground(Error)
	default:
		return base.Foreground(Muted)
	}
}
