package ui

import (
	"fmt"
	"strings"
)

// ProgressBar is a simple static progress bar
type ProgressBar struct {
	width int
}

// NewProgressBar creates a progress bar width cells wide (20 when <= 0).
func NewProgressBar(width int) *ProgressBar {
	if width <= 0 {
		width = 20
	}
	return &ProgressBar{width: width}
}

// Render renders the progress bar at a given percentage.
// Uses block characters on Unicode terminals, ASCII on legacy consoles.
func (pb *ProgressBar) Render(percent float64) string {
	filled := pb.filled(percent)

	fill := Icon("█", "#")  // █ or #
	empty := Icon("░", ".") // ░ or .
	return ProgressFullStyle.Render(strings.Repeat(fill, filled)) +
		ProgressEmptyStyle.Render(strings.Repeat(empty, pb.width-filled))
}

func (pb *ProgressBar) filled(percent float64) int {
	switch {
	case percent <= 0:
		return 0
	case percent >= 100:
		return pb.width
	}
	return int(float64(pb.width) * percent / 100)
}

// PrintProgress prints questionnaire progress as "[bar] answered/total (pct%)".
func PrintProgress(answered, total int) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(Output(), FormatProgress(answered, total))
}

// FormatProgress returns the line PrintProgress prints.
func FormatProgress(answered, total int) string {
	pct := 0.0
	if total > 0 {
		pct = float64(answered) / float64(total) * 100
	}
	return fmt.Sprintf("  [%s] %s %s",
		NewProgressBar(20).Render(pct),
		StatValueStyle.Render(fmt.Sprintf("%d/%d", answered, total)),
		StatLabelStyle.Render(fmt.Sprintf("(%.0f%%)", pct)),
	)
}
