package defaults_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cyberph/posture/pkg/defaults"
	"github.com/cyberph/posture/pkg/ui"
)

// TestVersionConsistency ensures all version references match defaults.Version
func TestVersionConsistency(t *testing.T) {
	t.Parallel()

	assert.Equal(t, defaults.Version, ui.Version, "ui.Version must track defaults.Version")

	semverPattern := regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9]+)?$`)
	assert.Regexp(t, semverPattern, defaults.Version)
}

func TestThresholdOrdering(t *testing.T) {
	t.Parallel()

	assert.Less(t, defaults.ImproveThreshold, defaults.PassThreshold)
	assert.Less(t, defaults.LowRiskBelow, defaults.MediumRiskBelow)
	assert.LessOrEqual(t, defaults.LowRiskMaxCritical, defaults.MediumRiskMaxCritical)
	assert.Greater(t, defaults.CriticalMultiplier, 1.0)
}

func TestFileNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		org  string
		want string
	}{
		{"Acme Corp", "DPA_Report_Acme_Corp_2026-10-14.pdf"},
		{"Dela Cruz & Sons, Inc.", "DPA_Report_Dela_Cruz__Sons_Inc__2026-10-14.pdf"},
		{"", "DPA_Report_Organization_2026-10-14.pdf"},
		{"../../etc", "DPA_Report_____etc_2026-10-14.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, defaults.ReportFileName(tt.org, "2026-10-14"), tt.org)
	}

	assert.Equal(t, "DPA_Checklist_Acme_2026-01-02.pdf", defaults.ChecklistFileName("Acme", "2026-01-02"))
	assert.Equal(t, "DPA_Summary_Acme_2026-01-02.md", defaults.SummaryFileName("Acme", "2026-01-02"))
}
