package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/cyberph/posture/pkg/defaults"
)

// Version information - BuildDate and Commit can be overridden at build time via ldflags:
// go build -ldflags "-X github.com/cyberph/posture/pkg/ui.Commit=abc123"
var (
	Version   = defaults.Version
	BuildDate = "2026-09-30"
	Commit    = "dev"
)

const (
	Author  = "posture maintainers"
	Website = "https://privacy.gov.ph/data-privacy-act/"
)

// Global UI state
var (
	silentMode  bool
	noColorMode bool
	output      io.Writer = os.Stderr
	uiMu        sync.RWMutex
)

// SetSilent enables or disables silent mode (suppresses most output)
func SetSilent(silent bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	silentMode = silent
}

// IsSilent returns whether silent mode is enabled
func IsSilent() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return silentMode
}

// SetNoColor disables colored output
func SetNoColor(noColor bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	noColorMode = noColor
	if noColor {
		// Use ASCII profile to disable colors
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsNoColor returns whether color is disabled
func IsNoColor() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return noColorMode
}

// SetOutput redirects human-readable output (stderr by default) and
// returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	uiMu.Lock()
	defer uiMu.Unlock()
	prev := output
	if w == nil {
		w = os.Stderr
	}
	output = w
	return prev
}

// Output returns the writer used by the Print* functions.
func Output() io.Writer {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return output
}

const bannerArt = `
    ____  ____  _____/ /___  __________
   / __ \/ __ \/ ___/ __/ / / / ___/ _ \
  / /_/ / /_/ (__  ) /_/ /_/ / /  /  __/
 / .___/\____/____/\__/\__,_/_/   \___/
/_/
`

// PrintBanner prints the application banner with version info
func PrintBanner() {
	if IsSilent() {
		return
	}
	w := Output()
	for _, line := range strings.Split(bannerArt, "\n") {
		if line != "" {
			fmt.Fprintln(w, BannerStyle.Render(line))
		}
	}
	fmt.Fprintf(w, "        v%s  %s\n\n", VersionStyle.Render(Version),
		SubtitleStyle.Render("Data Privacy Act self-assessment"))
}

// PrintCompactBanner prints a one-line banner for constrained environments
func PrintCompactBanner() {
	if IsSilent() {
		return
	}
	fmt.Fprintf(Output(), "%s %s\n", BannerStyle.Render(defaults.ToolName), VersionStyle.Render("v"+Version))
}

// PrintDivider prints a stylized divider
func PrintDivider() {
	if IsSilent() {
		return
	}
	fmt.Fprintln(Output(), DividerStyle.Render(strings.Repeat("-", 64)))
}

// PrintSection prints a section header
func PrintSection(title string) {
	if IsSilent() {
		return
	}
	w := Output()
	fmt.Fprintln(w)
	fmt.Fprintln(w, SectionStyle.Render("> "+title))
	PrintDivider()
}

// PrintConfigLine prints a single config line
func PrintConfigLine(key, value string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(Output(), "  %s %s\n",
		ConfigLabelStyle.Render(key+":"),
		ConfigValueStyle.Render(SanitizeString(value)),
	)
}

// PrintBracketedInfo prints bracketed information
// Example: [critical] [Security Measures] DPA-007
func PrintBracketedInfo(parts ...BracketPart) {
	if IsSilent() {
		return
	}

	var out strings.Builder
	for _, part := range parts {
		out.WriteString(BracketStyle.Render("["))
		out.WriteString(part.Style.Render(part.Text))
		out.WriteString(BracketStyle.Render("] "))
	}
	fmt.Fprintln(Output(), strings.TrimRight(out.String(), " "))
}

// BracketPart represents a piece of bracketed output
type BracketPart struct {
	Text  string
	Style Style
}

// Style is a simplified style type for bracket parts
type Style = lipgloss.Style

func RiskBracket(category string) BracketPart {
	return BracketPart{Text: strings.ToLower(category), Style: RiskStyle(category).UnsetPadding()}
}

func VerdictBracket(verdict string) BracketPart {
	return BracketPart{Text: verdict, Style: VerdictStyle(verdict)}
}

func OptionBracket(option string) BracketPart {
	return BracketPart{Text: option, Style: OptionStyle(option)}
}

func TextBracket(text string) BracketPart {
	return BracketPart{Text: text, Style: ConfigValueStyle}
}

func MutedBracket(text string) BracketPart {
	return BracketPart{Text: text, Style: lipgloss.NewStyle().Foreground(Muted)}
}

// PrintHelp prints contextual help
func PrintHelp(text string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(Output(), HelpStyle.Render("  [i] "+SanitizeString(text)))
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(Output(), PassStyle.Render("  [+] "+SanitizeString(message)))
}

// PrintError prints an error message. Errors are shown even in silent mode.
func PrintError(message string) {
	fmt.Fprintln(Output(), FailStyle.Render("  [X] "+SanitizeString(message)))
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(Output(), WarnStyle.Render("  [!] "+SanitizeString(message)))
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(Output(), "  %s %s\n", SpinnerStyle.Render("*"), SanitizeString(message))
}
