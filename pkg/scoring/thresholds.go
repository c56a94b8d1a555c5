package scoring

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cyberph/posture/pkg/defaults"
)

// RiskIncomplete is reported when no question was answered.
const RiskIncomplete = defaults.RiskIncomplete

// Band is one risk category. A total below Below with at most
// MaxCriticalFailures critical failures falls in the band.
// MaxCriticalFailures < 0 means no limit, and a YAML band that omits
// max_critical_failures gets no limit. The last band catches everything
// and its bounds are ignored.
type Band struct {
	Name                string  `json:"name" yaml:"name"`
	Below               float64 `json:"below" yaml:"below"`
	MaxCriticalFailures int     `json:"max_critical_failures" yaml:"max_critical_failures"`
}

// UnmarshalYAML decodes a band, defaulting a missing
// max_critical_failures to -1.
func (b *Band) UnmarshalYAML(node *yaml.Node) error {
	type plain Band
	p := plain{MaxCriticalFailures: -1}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*b = Band(p)
	return nil
}

// Thresholds maps totals and compliance percentages to categories.
type Thresholds struct {
	PassThreshold    float64 `json:"pass_threshold" yaml:"pass_threshold"`
	ImproveThreshold float64 `json:"improve_threshold" yaml:"improve_threshold"`
	Bands            []Band  `json:"bands" yaml:"bands"`
}

// DefaultThresholds returns the stock low / medium / high bands.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PassThreshold:    defaults.PassThreshold,
		ImproveThreshold: defaults.ImproveThreshold,
		Bands: []Band{
			{Name: defaults.RiskLow, Below: defaults.LowRiskBelow, MaxCriticalFailures: defaults.LowRiskMaxCritical},
			{Name: defaults.RiskMedium, Below: defaults.MediumRiskBelow, MaxCriticalFailures: defaults.MediumRiskMaxCritical},
			{Name: defaults.RiskHigh, MaxCriticalFailures: -1},
		},
	}
}

// Validate checks that bands are ordered and the verdict thresholds are sane.
func (t Thresholds) Validate() error {
	if len(t.Bands) == 0 {
		return fmt.Errorf("%w: at least one band is required", ErrInvalidThresholds)
	}
	seen := make(map[string]bool, len(t.Bands))
	for i, b := range t.Bands {
		name := strings.TrimSpace(b.Name)
		if name == "" {
			return fmt.Errorf("%w: band %d has no name", ErrInvalidThresholds, i+1)
		}
		if name == RiskIncomplete {
			return fmt.Errorf("%w: band name %q is reserved", ErrInvalidThresholds, name)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate band %q", ErrInvalidThresholds, name)
		}
		seen[name] = true
		if i == len(t.Bands)-1 {
			break
		}
		if b.Below <= 0 {
			return fmt.Errorf("%w: band %q needs a positive upper bound", ErrInvalidThresholds, name)
		}
		if i > 0 && b.Below <= t.Bands[i-1].Below {
			return fmt.Errorf("%w: band %q upper bound %.2f must exceed %.2f",
				ErrInvalidThresholds, name, b.Below, t.Bands[i-1].Below)
		}
	}
	if t.PassThreshold < 0 || t.PassThreshold > 100 || t.ImproveThreshold < 0 || t.ImproveThreshold > 100 {
		return fmt.Errorf("%w: verdict thresholds must be within 0-100", ErrInvalidThresholds)
	}
	if t.ImproveThreshold > t.PassThreshold {
		return fmt.Errorf("%w: improve threshold %.1f exceeds pass threshold %.1f",
			ErrInvalidThresholds, t.ImproveThreshold, t.PassThreshold)
	}
	return nil
}

// Category returns the first band admitting total and criticalFailures,
// or the last band.
func (t Thresholds) Category(total float64, criticalFailures int) string {
	if len(t.Bands) == 0 {
		return defaults.RiskHigh
	}
	last := len(t.Bands) - 1
	for _, b := range t.Bands[:last] {
		if total < b.Below && (b.MaxCriticalFailures < 0 || criticalFailures <= b.MaxCriticalFailures) {
			return b.Name
		}
	}
	return t.Bands[last].Name
}

// Verdict maps a compliance percentage to PASS, NEEDS IMPROVEMENT or FAIL.
func (t Thresholds) Verdict(compliancePct float64) Verdict {
	switch {
	case compliancePct >= t.PassThreshold:
		return VerdictPass
	case compliancePct >= t.ImproveThreshold:
		return VerdictImprove
	default:
		return VerdictFail
	}
}
