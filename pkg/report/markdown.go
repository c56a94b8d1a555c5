package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/cyberph/posture/pkg/defaults"
	"github.com/cyberph/posture/pkg/questionbank"
	"github.com/cyberph/posture/pkg/remediation"
	"github.com/cyberph/posture/pkg/scoring"
)

//go:embed summary.md.tmpl
var summaryTemplate string

// summaryData is the value a Markdown template executes against.
type summaryData struct {
	Title            string
	Tool             string
	Version          string
	Organization     string
	Assessor         string
	Date             string
	SessionID        string
	Fingerprint      string
	Score            scoring.Result
	Weakest          []scoring.CategoryScore
	CriticalFailures []questionbank.Question
	Recommendations  []remediation.Recommendation
	Methodology      []string
	Compliant        int
	NonCompliant     int
	NotApplicable    int
}

// parseSummaryTemplate parses the template at path, or the built-in one
// when path is empty.
func parseSummaryTemplate(path string) (*template.Template, error) {
	content := summaryTemplate
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read summary template: %w", err)
		}
		content = string(data)
	}

	funcMap := sprig.TxtFuncMap()
	funcMap["pct"] = func(v float64) string { return fmt.Sprintf("%.1f%%", v) }
	funcMap["shortDomain"] = shortDomain
	funcMap["categoryPct"] = formatPct
	funcMap["mdEscape"] = mdEscape

	tmpl, err := template.New("summary").Funcs(funcMap).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse summary template: %w", err)
	}
	return tmpl, nil
}

// RenderMarkdown produces the plain-text summary.
func (r *Renderer) RenderMarkdown(doc Document) ([]byte, error) {
	if err := doc.check(); err != nil {
		return nil, err
	}

	// builder only supplies derived values here; no page is laid out
	b := r.newBuilder(doc, "markdown")
	compliant, nonCompliant, na := b.answerCounts()
	s := doc.Session
	data := summaryData{
		Title:            r.layout.Branding.Title,
		Tool:             defaults.ToolName,
		Version:          defaults.Version,
		Organization:     s.Organization,
		Assessor:         orNotSpecified(s.Assessor),
		Date:             s.AssessmentDate,
		SessionID:        s.ID,
		Fingerprint:      b.fingerprint,
		Score:            doc.Score,
		Weakest:          doc.Score.Weakest(defaults.KeyFindingCategories),
		CriticalFailures: b.criticalFailures(),
		Recommendations:  doc.Recommendations,
		Methodology:      b.methodologyLines(),
		Compliant:        compliant,
		NonCompliant:     nonCompliant,
		NotApplicable:    na,
	}

	var buf bytes.Buffer
	if err := r.markdown.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: template execution error: %v", ErrRenderFailure, err)
	}
	return buf.Bytes(), nil
}

var mdReplacer = strings.NewReplacer("|", "\\|", "\n", " ")

// mdEscape makes s safe inside a Markdown table cell.
func mdEscape(s string) string {
	return mdReplacer.Replace(s)
}
