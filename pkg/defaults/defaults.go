// Package defaults provides canonical default values for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for runtime configuration defaults.
//
// Usage:
//
//	cfg.Scoring.PassThreshold = defaults.PassThreshold
//	store := checkpoint.NewStore(defaults.ProgressDir, logger)
//
// DO NOT hardcode thresholds or file names elsewhere; reference the
// appropriate constant from this package.
package defaults

import "fmt"

// Version is the current posture release.
const Version = "1.2.0"

// ToolName is used in report footers, PDF metadata and the CLI banner.
const ToolName = "posture"

// FormatVersion is the progress/history file format written by this build.
const FormatVersion = "1.0"

// ============================================================================
// SCORING
// ============================================================================
//
// Compliance percentage verdicts and risk-point bands. A "No" on a question
// adds its weight as risk points; critical questions are multiplied first.
// ============================================================================

const (
	// PassThreshold is the compliance percentage needed for PASS (85)
	PassThreshold = 85.0

	// ImproveThreshold is the compliance percentage needed for NEEDS IMPROVEMENT (60)
	ImproveThreshold = 60.0

	// CriticalMultiplier scales the weight of critical questions (1.3)
	CriticalMultiplier = 1.3

	// LowRiskBelow is the exclusive upper risk-point bound of the low band (3)
	LowRiskBelow = 3.0

	// MediumRiskBelow is the exclusive upper risk-point bound of the medium band (8)
	MediumRiskBelow = 8.0

	// LowRiskMaxCritical is the number of critical failures tolerated in the low band (0)
	LowRiskMaxCritical = 0

	// MediumRiskMaxCritical is the number of critical failures tolerated in the medium band (2)
	MediumRiskMaxCritical = 2

	// AllowNA enables the N/A answer option
	AllowNA = true
)

// Risk category names.
const (
	RiskLow        = "low"
	RiskMedium     = "medium"
	RiskHigh       = "high"
	RiskIncomplete = "incomplete"
)

// ============================================================================
// STORAGE
// ============================================================================

const (
	// DataDir is the default root for all persisted state
	DataDir = ".posture"

	// ProgressDir holds one progress file per in-flight session
	ProgressDir = ".posture/progress"

	// HistoryDir holds finalized assessment records
	HistoryDir = ".posture/history"

	// ReportDir receives generated reports
	ReportDir = "reports"

	// ConfigFile is probed when -config is not given
	ConfigFile = "posture.yaml"

	// EnvFile is loaded into the environment when present
	EnvFile = ".env"

	// EnvPrefix prefixes every environment override
	EnvPrefix = "POSTURE_"

	// DirPermission is used for created directories
	DirPermission = 0o755

	// FilePermission is used for written files
	FilePermission = 0o644
)

// ============================================================================
// REPORT
// ============================================================================

const (
	// ReportTitle is printed on the cover page
	ReportTitle = "Data Privacy & Cybersecurity Posture Report"

	// ChecklistTitle is printed on the action checklist
	ChecklistTitle = "Compliance Action Checklist"

	// PageSize is the default paper size
	PageSize = "A4"

	// KeyFindingCategories is how many weakest categories the summary lists
	KeyFindingCategories = 3

	// FingerprintLength is the hex length of report fingerprints (128-bit)
	FingerprintLength = 32
)

// ReportFileName returns the conventional PDF file name for an organization.
func ReportFileName(org, date string) string {
	return fmt.Sprintf("DPA_Report_%s_%s.pdf", fileSafe(org), date)
}

// ChecklistFileName returns the conventional checklist file name.
func ChecklistFileName(org, date string) string {
	return fmt.Sprintf("DPA_Checklist_%s_%s.pdf", fileSafe(org), date)
}

// SummaryFileName returns the conventional Markdown summary file name.
func SummaryFileName(org, date string) string {
	return fmt.Sprintf("DPA_Summary_%s_%s.md", fileSafe(org), date)
}

// BadgeFileName returns the conventional compliance badge file name.
func BadgeFileName(org, date string) string {
	return fmt.Sprintf("DPA_Badge_%s_%s.pdf", fileSafe(org), date)
}

func fileSafe(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			out = append(out, r)
		case r == ' ', r == '_', r == '.':
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "Organization"
	}
	return string(out)
}
