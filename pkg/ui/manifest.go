// pkg/ui/manifest.go - Session manifest display for start/resume/status
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cyberph/posture/pkg/strutil"
)

// maxValueWidth keeps long organization names from stretching the box.
const maxValueWidth = 60

// ManifestItem represents a single item in the manifest
type ManifestItem struct {
	Label    string
	Value    string
	Emphasis bool // If true, highlight this item
}

// Manifest is a titled list of label/value pairs, boxed on terminals.
type Manifest struct {
	Title       string
	Description string
	Items       []ManifestItem
	Writer      io.Writer
	BoxStyle    bool // If true, draw a box around the manifest
}

// asciiBorder renders on any console.
var asciiBorder = lipgloss.Border{
	Top: "=", Bottom: "=", Left: "|", Right: "|",
	TopLeft: "+", TopRight: "+", BottomLeft: "+", BottomRight: "+",
}

// NewManifest creates a new manifest with default settings
func NewManifest(title string) *Manifest {
	return &Manifest{
		Title:    title,
		Writer:   Output(),
		BoxStyle: true,
	}
}

// SetDescription sets a description line under the title
func (m *Manifest) SetDescription(desc string) *Manifest {
	m.Description = desc
	return m
}

// Add adds an item to the manifest
func (m *Manifest) Add(label string, value any) *Manifest {
	m.Items = append(m.Items, ManifestItem{Label: label, Value: fmt.Sprint(value)})
	return m
}

// AddEmphasis adds an emphasized item (highlighted)
func (m *Manifest) AddEmphasis(label string, value any) *Manifest {
	m.Items = append(m.Items, ManifestItem{Label: label, Value: fmt.Sprint(value), Emphasis: true})
	return m
}

// Render returns the manifest as text.
func (m *Manifest) Render() string {
	labelW := 0
	for _, item := range m.Items {
		labelW = max(labelW, len(item.Label)+1)
	}

	var b strings.Builder
	b.WriteString(StatValueStyle.Render(m.Title))
	if m.Description != "" {
		b.WriteString("\n")
		b.WriteString(SubtitleStyle.Render(SanitizeString(m.Description)))
	}
	b.WriteString("\n")
	for _, item := range m.Items {
		value := strutil.Truncate(SanitizeString(item.Value), maxValueWidth)
		style := ConfigValueStyle
		if item.Emphasis {
			style = lipgloss.NewStyle().Foreground(Secondary).Bold(true)
		}
		label := item.Label + ":"
		fmt.Fprintf(&b, "\n%s %s", StatLabelStyle.Render(label+strings.Repeat(" ", labelW-len(label))), style.Render(value))
	}

	if !m.BoxStyle {
		return b.String()
	}
	border := lipgloss.RoundedBorder()
	if !UnicodeTerminal() {
		border = asciiBorder
	}
	return lipgloss.NewStyle().
		Border(border).
		BorderForeground(Muted).
		Padding(0, 2).
		Render(b.String())
}

// Print displays the manifest
func (m *Manifest) Print() {
	if IsSilent() {
		return
	}
	fmt.Fprintln(m.Writer)
	fmt.Fprintln(m.Writer, m.Render())
	fmt.Fprintln(m.Writer)
}

// SessionManifest builds the manifest shown when a session starts or resumes.
func SessionManifest(title, sessionID, organization, assessor, date string, answered, total int) *Manifest {
	m := NewManifest(title)
	m.SetDescription("Data Privacy Act of 2012 (R.A. 10173)")
	m.AddEmphasis("Organization", organization)
	if assessor != "" {
		m.Add("Assessor", assessor)
	}
	m.Add("Date", date)
	m.Add("Session", sessionID)
	m.Add("Progress", fmt.Sprintf("%d of %d answered", answered, total))
	return m
}
