package report

import (
	"fmt"
	"strings"

	"github.com/cyberph/posture/pkg/defaults"
	"github.com/cyberph/posture/pkg/remediation"
)

// addChecklist renders the action worksheet: one row per recommendation
// with a tick box and a comments line under it.
func (b *builder) addChecklist() {
	pdf := b.pdf
	s := b.doc.Session
	recs := b.doc.Recommendations

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	setText(pdf, colorDark)
	pdf.CellFormat(0, 10, b.tr(strings.ToUpper(defaults.ChecklistTitle)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	setText(pdf, colorGray)
	pdf.CellFormat(0, 6, b.tr(fmt.Sprintf("%s | %s", s.Organization, s.AssessmentDate)), "", 1, "L", false, 0, "")

	y := pdf.GetY() + 1
	setDraw(pdf, b.accent)
	pdf.SetLineWidth(0.8)
	pdf.Line(pageMargin, y, pageMargin+b.contentWidth(), y)
	pdf.SetLineWidth(0.2)
	pdf.Ln(6)

	if len(recs) == 0 {
		b.paragraph("No actions required: every answered control is in place.", colorGray)
		return
	}

	cols := []column{
		{title: "Done", width: 12, align: "C"},
		{title: "Domain", width: 30},
		{title: "Action Required", width: 110},
		{title: "Timeline", width: 28, align: "C"},
	}
	b.tableHeader(cols)
	for _, r := range recs {
		b.checklistRow(cols, r)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 9)
	setText(pdf, colorDark)
	critical := 0
	for _, r := range recs {
		if r.Priority == remediation.PriorityCritical {
			critical++
		}
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("%d actions, %d critical", len(recs), critical), "", 1, "L", false, 0, "")
}

func (b *builder) checklistRow(cols []column, r remediation.Recommendation) {
	pdf := b.pdf
	const commentsH = 10.0

	// keep the action and its comments line together
	if !b.fits(commentsH + 3*lineHeight + 2) {
		pdf.AddPage()
		b.tableHeader(cols)
	}

	action := cell{text: r.Action}
	if r.Priority == remediation.PriorityCritical {
		action = cell{text: "[CRITICAL] " + r.Action}
	}
	y, _ := b.tableRow(cols, []cell{
		plain(""),
		plain(shortDomain(r.Category)),
		action,
		{text: r.Timeline, bold: true},
	}, false)

	setDraw(pdf, colorDark)
	pdf.Rect(pageMargin+(cols[0].width-4.5)/2, y+1.5, 4.5, 4.5, "D")

	cy := pdf.GetY()
	setDraw(pdf, colorBorder)
	pdf.Rect(pageMargin, cy, b.contentWidth(), commentsH, "D")
	pdf.SetXY(pageMargin+1, cy+1)
	pdf.SetFont("Helvetica", "I", 7.5)
	setText(pdf, colorGray)
	pdf.CellFormat(20, 4, "Comments:", "", 0, "L", false, 0, "")
	setDraw(pdf, colorLight)
	pdf.Line(pageMargin+22, cy+commentsH-2.5, pageMargin+b.contentWidth()-2, cy+commentsH-2.5)
	pdf.SetXY(pageMargin, cy+commentsH)
}
