package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cyberph/posture/pkg/defaults"
)

// Layout defines customizable report settings.
// It is loaded from YAML so each organization can brand its reports and
// choose which sections appear.
type Layout struct {
	// Name is the layout identifier (e.g., "full", "minimal")
	Name string `yaml:"name" json:"name"`

	// Version is the layout file version for compatibility
	Version string `yaml:"version" json:"version"`

	Branding Branding `yaml:"branding" json:"branding"`
	Sections Sections `yaml:"sections" json:"sections"`
}

// Branding holds organization branding information.
type Branding struct {
	// Title replaces the default report title
	Title string `yaml:"title" json:"title"`

	// AccentColor is the header band color (hex, e.g., "#1F2937")
	AccentColor string `yaml:"accent_color" json:"accent_color"`

	// FooterText appears at the bottom left of each numbered page
	FooterText string `yaml:"footer_text" json:"footer_text"`

	// ShowPoweredBy appends the tool name and version to the footer
	ShowPoweredBy bool `yaml:"show_powered_by" json:"show_powered_by"`

	// Logo is a PNG, JPEG or GIF file for the cover and page headers
	Logo string `yaml:"logo,omitempty" json:"logo,omitempty"`
}

// Sections enables or disables individual report sections. The cover page
// is always rendered.
type Sections struct {
	ExecutiveSummary bool `yaml:"executive_summary" json:"executive_summary"`
	Results          bool `yaml:"results" json:"results"`
	Breakdown        bool `yaml:"breakdown" json:"breakdown"`
	Answers          bool `yaml:"answers" json:"answers"`
	Recommendations  bool `yaml:"recommendations" json:"recommendations"`
	Signatures       bool `yaml:"signatures" json:"signatures"`
}

// DefaultLayout returns the full layout.
func DefaultLayout() *Layout {
	return &Layout{
		Name:    "full",
		Version: "1.0",
		Branding: Branding{
			Title:         defaults.ReportTitle,
			AccentColor:   "#1F2937",
			FooterText:    "Guidance only, not legal advice.",
			ShowPoweredBy: true,
		},
		Sections: Sections{
			ExecutiveSummary: true,
			Results:          true,
			Breakdown:        true,
			Answers:          true,
			Recommendations:  true,
			Signatures:       true,
		},
	}
}

// MinimalLayout returns a layout with the summary and improvements only.
func MinimalLayout() *Layout {
	l := DefaultLayout()
	l.Name = "minimal"
	l.Sections = Sections{
		ExecutiveSummary: true,
		Recommendations:  true,
	}
	return l
}

// LoadLayout reads a layout from a YAML file. Keys missing from the file
// keep their default value.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}

	l := DefaultLayout()
	if err := yaml.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidLayout, path, err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// SaveLayout writes a layout to a YAML file.
func SaveLayout(l *Layout, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), defaults.DirPermission); err != nil {
		return err
	}

	data, err := yaml.Marshal(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, defaults.FilePermission)
}

// Validate checks the layout and returns every problem found.
func (l *Layout) Validate() error {
	var errs []string

	if strings.TrimSpace(l.Branding.Title) == "" {
		errs = append(errs, "branding.title is empty")
	}
	if _, err := parseHexColor(l.Branding.AccentColor); err != nil {
		errs = append(errs, fmt.Sprintf("branding.accent_color: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidLayout, strings.Join(errs, "; "))
	}
	return nil
}

// parseHexColor converts "#RRGGBB" to an RGB triple.
func parseHexColor(s string) ([]int, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return nil, fmt.Errorf("%q is not #RRGGBB", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%q is not #RRGGBB", s)
	}
	return []int{int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)}, nil
}
