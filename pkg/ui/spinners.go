package ui

import (
	"time"
)

// SpinnerType represents different spinner animation styles
type SpinnerType int

const (
	SpinnerDots SpinnerType = iota
	SpinnerLine
	SpinnerCircle
	SpinnerArc
)

// Spinner holds spinner animation frames
type Spinner struct {
	Frames   []string
	Interval time.Duration
}

// Spinners provides various spinner animation styles
var Spinners = map[SpinnerType]Spinner{
	SpinnerDots: {
		Frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		Interval: 80 * time.Millisecond,
	},
	SpinnerLine: {
		Frames:   []string{"-", "\\", "|", "/"},
		Interval: 100 * time.Millisecond,
	},
	SpinnerCircle: {
		Frames:   []string{"◐", "◓", "◑", "◒"},
		Interval: 100 * time.Millisecond,
	},
	SpinnerArc: {
		Frames:   []string{"◜", "◠", "◝", "◞", "◡", "◟"},
		Interval: 100 * time.Millisecond,
	},
}

// GetSpinner returns a spinner by type with a default fallback.
// On terminals that cannot render Unicode (legacy Windows consoles),
// Unicode-heavy spinners are replaced with SpinnerLine.
func GetSpinner(t SpinnerType) Spinner {
	if !UnicodeTerminal() {
		// Only SpinnerLine is pure ASCII; all others use Unicode glyphs.
		return Spinners[SpinnerLine]
	}
	if s, ok := Spinners[t]; ok {
		return s
	}
	return Spinners[SpinnerDots]
}

// Symbols provides consistent icons/symbols throughout the UI
var Symbols = struct {
	Success string
	Error   string
	Warning string
	Info    string
	Bullet  string
	Arrow   string
	Check   string
	Cross   string
	Skip    string
	Box     string
}{
	Success: "+",
	Error:   "x",
	Warning: "!",
	Info:    "i",
	Bullet:  "*",
	Arrow:   "->",
	Check:   "[x]",
	Cross:   "x",
	Skip:    "~",
	Box:     "[ ]",
}
