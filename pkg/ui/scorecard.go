package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cyberph/posture/pkg/strutil"
)

// maxCategoryWidth caps the category column of the breakdown.
const maxCategoryWidth = 36

// ScoreCard is the terminal view of a scored assessment.
type ScoreCard struct {
	Organization     string
	Verdict          string
	RiskCategory     string
	CompliancePct    float64
	TotalScore       float64
	MaxScore         float64
	CriticalFailures int
	Answered         int
	Total            int
	Incomplete       bool
	Categories       []ScoreRow
}

// ScoreRow is one category line of a ScoreCard.
type ScoreRow struct {
	Category      string
	CompliancePct float64
	Answered      int
	Total         int
	Applicable    bool
	Status        string
}

// PrintScoreCard prints the score summary box and the per-category table.
func PrintScoreCard(c ScoreCard) {
	if IsSilent() {
		return
	}
	WriteScoreCard(Output(), c)
}

// WriteScoreCard writes the score card to w.
func WriteScoreCard(w io.Writer, c ScoreCard) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, SectionStyle.Render("> Compliance Score"))
	fmt.Fprintln(w, DividerStyle.Render(strings.Repeat("-", 64)))
	if c.Organization != "" {
		fmt.Fprintf(w, "  %s %s\n", ConfigLabelStyle.Render("Organization:"), ConfigValueStyle.Render(SanitizeString(c.Organization)))
	}
	fmt.Fprintln(w)

	// ASCII box avoids Unicode width issues
	const boxWidth = 50
	border := BracketStyle.Render("  +" + strings.Repeat("-", boxWidth-2) + "+")

	printRow := func(label, value string, valueStyle lipgloss.Style) {
		const labelW = 20
		const valueW = boxWidth - 4 - labelW
		fmt.Fprintf(w, "  |  %s%s|\n",
			StatLabelStyle.Render(strutil.Fit(label, labelW)),
			valueStyle.Render(strutil.Fit(value, valueW)),
		)
	}

	fmt.Fprintln(w, border)
	printRow("Verdict:", c.Verdict, VerdictStyle(c.Verdict))
	printRow("Risk category:", strings.ToUpper(c.RiskCategory), RiskStyle(c.RiskCategory).UnsetPadding().UnsetBackground())
	fmt.Fprintln(w, border)
	printRow("Compliance:", fmt.Sprintf("%.1f%%", c.CompliancePct), StatValueStyle)
	printRow("Risk points:", fmt.Sprintf("%.1f of %.1f", c.TotalScore, c.MaxScore), StatValueStyle)
	printRow("Critical failures:", fmt.Sprintf("%d", c.CriticalFailures), criticalStyle(c.CriticalFailures))
	printRow("Answered:", fmt.Sprintf("%d of %d", c.Answered, c.Total), StatValueStyle)
	fmt.Fprintln(w, border)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", ComplianceMeter(c.CompliancePct))

	if len(c.Categories) > 0 {
		fmt.Fprintln(w)
		nameW := 0
		for _, row := range c.Categories {
			nameW = max(nameW, lipgloss.Width(row.Category))
		}
		nameW = min(nameW, maxCategoryWidth)
		for _, row := range c.Categories {
			pct := "N/A"
			if row.Applicable {
				pct = fmt.Sprintf("%5.1f%%", row.CompliancePct)
			}
			fmt.Fprintf(w, "  %s %s %s %s\n",
				ConfigValueStyle.Render(strutil.Fit(SanitizeString(row.Category), nameW)),
				StatValueStyle.Render(padRight(pct, 6)),
				StatLabelStyle.Render(padRight(fmt.Sprintf("%d/%d", row.Answered, row.Total), 5)),
				VerdictStyle(row.Status).Render(row.Status),
			)
		}
	}

	fmt.Fprintln(w)
	if c.Incomplete {
		fmt.Fprintln(w, WarnStyle.Render(fmt.Sprintf("  [!] Incomplete: %d of %d questions answered; unanswered questions are excluded", c.Answered, c.Total)))
	}
}

// ComplianceMeter renders a one-line colored compliance bar.
func ComplianceMeter(percent float64) string {
	const barWidth = 25

	var color lipgloss.Color
	var icon string
	switch {
	case percent >= 85:
		color = Success
		icon = "[+]"
	case percent >= 60:
		color = Warning
		icon = "[!]"
	default:
		color = Error
		icon = "[X]"
	}

	filled := NewProgressBar(barWidth).filled(percent)
	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("#", filled)) +
		ProgressEmptyStyle.Render(strings.Repeat(".", barWidth-filled))

	percentStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	return fmt.Sprintf("%s%s %s %s",
		StatLabelStyle.Render("Compliance: "),
		bar,
		percentStyle.Render(fmt.Sprintf("%.1f%%", percent)),
		icon,
	)
}

func criticalStyle(n int) lipgloss.Style {
	if n > 0 {
		return FailStyle
	}
	return PassStyle
}

// padRight pads a string to the right to reach a specific width
// Uses lipgloss.Width to correctly measure visible width (excludes ANSI codes)
func padRight(s string, width int) string {
	visibleWidth := lipgloss.Width(s)
	padding := width - visibleWidth
	if padding <= 0 {
		return s
	}
	return s + strings.Repeat(" ", padding)
}
