package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cyberph/posture/pkg/defaults"
	"github.com/cyberph/posture/pkg/questionbank"
	"github.com/cyberph/posture/pkg/remediation"
	"github.com/cyberph/posture/pkg/scoring"
)

// addCover renders the title page. It never carries a footer.
func (b *builder) addCover() {
	pdf := b.pdf
	s := b.doc.Session
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	setFill(pdf, b.accent)
	pdf.Rect(0, 0, pageW, 70, "F")

	textW := b.contentWidth()
	if b.hasLogo {
		b.drawImage(imageLogo, pageW-pageMargin-coverLogoMaxWidth, 15, coverLogoMaxWidth, 40)
		textW -= coverLogoMaxWidth + 5
	}

	pdf.SetXY(pageMargin, 22)
	pdf.SetFont("Helvetica", "B", 22)
	setText(pdf, colorWhite)
	pdf.MultiCell(textW, 10, b.tr(b.title), "", "L", false)
	pdf.SetX(pageMargin)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(textW, 6,
		b.tr("Self-assessment against the Data Privacy Act of 2012 (R.A. 10173), NPC issuances and NIST CSF 2.0"),
		"", "L", false)

	pdf.SetY(90)
	res := b.doc.Score
	details := [][2]string{
		{"Organization", s.Organization},
		{"Assessor", orNotSpecified(s.Assessor)},
		{"Assessment Date", s.AssessmentDate},
		{"Questions Answered", fmt.Sprintf("%d of %d", res.Answered, res.TotalQuestions)},
		{"Overall Compliance", fmt.Sprintf("%.1f%% - %s", res.CompliancePct, res.Verdict)},
		{"Risk Category", b.titleCase.String(res.RiskCategory)},
		{"Session", s.ID},
		{"Fingerprint", b.fingerprint},
	}
	for _, d := range details {
		pdf.SetX(pageMargin)
		pdf.SetFont("Helvetica", "B", 10)
		setText(pdf, colorGray)
		pdf.CellFormat(45, 9, b.tr(d[0]), "B", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		setText(pdf, colorDark)
		pdf.CellFormat(b.contentWidth()-45, 9, b.tr(d[1]), "B", 1, "L", false, 0, "")
	}

	pdf.SetY(pageH - 45)
	pdf.SetFont("Helvetica", "I", 8.5)
	setText(pdf, colorGray)
	pdf.MultiCell(0, 4.5, b.tr("This report is a self-assessment aid. It reflects the answers given by the "+
		"organization and is guidance only, not legal advice. Consult the National Privacy Commission "+
		"or qualified counsel for compliance determinations."), "", "L", false)
}

func (b *builder) addExecutiveSummary() {
	pdf := b.pdf
	res := b.doc.Score
	s := b.doc.Session

	pdf.AddPage()
	b.addSectionHeader("Executive Summary")

	critical := 0
	for _, q := range b.doc.Questions {
		if q.Critical {
			critical++
		}
	}
	b.paragraph(fmt.Sprintf("%s was assessed on %s against %d privacy and security controls, %d of them "+
		"critical. The overall compliance is %.1f%% and the organization falls in the %s risk category.",
		s.Organization, s.AssessmentDate, len(b.doc.Questions), critical, res.CompliancePct,
		strings.ToLower(res.RiskCategory)), colorGray)

	b.addSubHeader("Assessment Overview")
	b.addScoreBoxes()

	b.addSubHeader("Compliance Status")
	compliant, nonCompliant, na := b.answerCounts()
	share := func(n int) float64 {
		if res.Answered == 0 {
			return 0
		}
		return 100 * float64(n) / float64(res.Answered)
	}
	b.paragraph(strings.Join([]string{
		fmt.Sprintf("Compliant: %d (%.1f%%)", compliant, share(compliant)),
		fmt.Sprintf("Non-Compliant: %d (%.1f%%)", nonCompliant, share(nonCompliant)),
		fmt.Sprintf("Not Applicable: %d", na),
		fmt.Sprintf("Unanswered: %d", len(res.Unanswered)),
		fmt.Sprintf("Verdict: %s", res.Verdict),
	}, "\n"), colorDark)
	if res.Incomplete {
		b.paragraph(fmt.Sprintf("This assessment is incomplete: %d of %d questions answered. "+
			"Unanswered questions are excluded from every score.", res.Answered, res.TotalQuestions), colorOrange)
	}

	b.addSubHeader("Scoring Methodology")
	b.paragraph(strings.Join(b.methodologyLines(), "\n"), colorGray)

	b.addSubHeader("Key Findings")
	weakest := res.Weakest(defaults.KeyFindingCategories)
	if len(weakest) == 0 {
		b.paragraph("No applicable domain has been answered yet.", colorGray)
	} else {
		lines := []string{"Priority areas:"}
		for i, c := range weakest {
			lines = append(lines, fmt.Sprintf("%d. %s: %.1f%%", i+1, c.Category, c.CompliancePct))
		}
		b.paragraph(strings.Join(lines, "\n"), colorDark)
	}

	if failed := b.criticalFailures(); len(failed) > 0 {
		lines := []string{fmt.Sprintf("Critical controls not in place (%d):", len(failed))}
		for _, q := range failed {
			lines = append(lines, fmt.Sprintf("- %s: %s", q.ID, q.Prompt))
		}
		b.paragraph(strings.Join(lines, "\n"), colorRed)
	}
}

func (b *builder) methodologyLines() []string {
	th, mult := b.doc.methodology()
	lines := []string{
		"- Each non-compliant answer adds its weight in risk points. N/A answers are excluded.",
		fmt.Sprintf("- Critical controls weighted x%.1f", mult),
		fmt.Sprintf("- PASS threshold: >= %.0f%% compliance", th.PassThreshold),
		fmt.Sprintf("- NEEDS IMPROVEMENT threshold: >= %.0f%% compliance", th.ImproveThreshold),
	}
	for i, band := range th.Bands {
		name := b.titleCase.String(band.Name)
		if i == len(th.Bands)-1 {
			lines = append(lines, fmt.Sprintf("- %s risk: any other result", name))
			continue
		}
		limit := "any number of critical failures"
		if band.MaxCriticalFailures >= 0 {
			limit = fmt.Sprintf("at most %d critical failures", band.MaxCriticalFailures)
		}
		lines = append(lines, fmt.Sprintf("- %s risk: below %g points and %s", name, band.Below, limit))
	}
	return lines
}

func (b *builder) addScoreBoxes() {
	pdf := b.pdf
	res := b.doc.Score

	crit := colorSoft
	if res.CriticalFailures > 0 {
		crit = colorRed
	}
	boxes := []struct {
		value, label string
		fill         []int
	}{
		{fmt.Sprintf("%.1f%%", res.CompliancePct), "Overall Compliance", b.verdictColor(res.Verdict)},
		{b.titleCase.String(res.RiskCategory), "Risk Category", b.riskColor(res.RiskCategory)},
		{fmt.Sprintf("%d", res.CriticalFailures), "Critical Failures", crit},
		{fmt.Sprintf("%d / %d", res.Answered, res.TotalQuestions), "Answered", colorSoft},
	}

	const gap, h = 4.0, 24.0
	w := (b.contentWidth() - gap*float64(len(boxes)-1)) / float64(len(boxes))
	y := pdf.GetY()
	x := pageMargin
	for _, box := range boxes {
		setFill(pdf, box.fill)
		setDraw(pdf, colorBorder)
		pdf.Rect(x, y, w, h, "FD")

		text := colorWhite
		if box.fill[0] == colorSoft[0] && box.fill[1] == colorSoft[1] {
			text = colorDark
		}
		setText(pdf, text)
		pdf.SetXY(x+4, y+4)
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(w-8, 5, b.tr(box.label), "", 0, "L", false, 0, "")
		pdf.SetXY(x+4, y+11)
		pdf.SetFont("Helvetica", "B", 15)
		pdf.CellFormat(w-8, 9, b.tr(box.value), "", 0, "L", false, 0, "")
		x += w + gap
	}
	pdf.SetXY(pageMargin, y+h+4)
}

func (b *builder) addResults() {
	pdf := b.pdf
	res := b.doc.Score
	th, _ := b.doc.methodology()

	pdf.AddPage()
	b.addSectionHeader("Results")

	b.addSubHeader("Overall Result")
	w := b.contentWidth()
	y := pdf.GetY()
	setFill(pdf, b.verdictColor(res.Verdict))
	pdf.Rect(pageMargin, y, w, 20, "F")
	setText(pdf, colorWhite)
	pdf.SetXY(pageMargin+5, y+5)
	pdf.SetFont("Helvetica", "B", 15)
	pdf.CellFormat(w/2, 10, b.tr("VERDICT: "+string(res.Verdict)), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(w/2-10, 10, fmt.Sprintf("%.1f%% compliance", res.CompliancePct), "", 0, "R", false, 0, "")

	y += 24
	setFill(pdf, b.riskColor(res.RiskCategory))
	pdf.Rect(pageMargin, y, w, 14, "F")
	pdf.SetXY(pageMargin+5, y+2)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(w/2, 10, b.tr("RISK CATEGORY: "+strings.ToUpper(res.RiskCategory)), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9.5)
	pdf.CellFormat(w/2-10, 10, fmt.Sprintf("%.2f of %.2f risk points, %d critical failures",
		res.TotalScore, res.MaxScore, res.CriticalFailures), "", 0, "R", false, 0, "")
	pdf.SetXY(pageMargin, y+20)

	b.addSubHeader("Compliance by Domain")
	const labelW, valueW = 55.0, 18.0
	barW := w - labelW - valueW - 2
	for _, c := range res.Categories {
		if !b.fits(9) {
			pdf.AddPage()
		}
		y := pdf.GetY()
		pdf.SetFont("Helvetica", "", 8.5)
		setText(pdf, colorDark)
		pdf.CellFormat(labelW, 7, b.tr(c.Category), "", 0, "L", false, 0, "")

		x0 := pageMargin + labelW
		setFill(pdf, colorLight)
		pdf.Rect(x0, y+1.5, barW, 4, "F")
		if c.Answered > 0 && c.Applicable && c.CompliancePct > 0 {
			setFill(pdf, b.verdictColor(c.Status))
			pdf.Rect(x0, y+1.5, barW*c.CompliancePct/100, 4, "F")
		}
		setDraw(pdf, colorGray)
		for _, mark := range []float64{th.ImproveThreshold, th.PassThreshold} {
			mx := x0 + barW*mark/100
			pdf.Line(mx, y+0.5, mx, y+6.5)
		}

		pdf.SetXY(x0+barW+2, y)
		pdf.CellFormat(valueW, 7, formatPct(c), "", 0, "R", false, 0, "")
		pdf.SetXY(pageMargin, y+8)
	}
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "I", 8)
	setText(pdf, colorGray)
	pdf.MultiCell(0, 4.5, fmt.Sprintf("Markers show the NEEDS IMPROVEMENT (%.0f%%) and PASS (%.0f%%) thresholds.",
		th.ImproveThreshold, th.PassThreshold), "", "L", false)
}

func (b *builder) addBreakdown() {
	pdf := b.pdf
	res := b.doc.Score

	pdf.AddPage()
	b.addSectionHeader("Domain Breakdown")
	b.paragraph("Domains are listed from lowest to highest compliance. Risk points are the sum of the "+
		"weights of the selected options; the maximum is the score if every control in the domain failed.", colorGray)

	cols := []column{
		{title: "Domain", width: 66},
		{title: "Answered", width: 22, align: "C"},
		{title: "Risk Points", width: 24, align: "R"},
		{title: "Max", width: 20, align: "R"},
		{title: "Compliance", width: 26, align: "R"},
		{title: "Status", width: 22, align: "C"},
	}

	cats := append([]scoring.CategoryScore(nil), res.Categories...)
	rank := func(c scoring.CategoryScore) float64 {
		if c.Answered == 0 || !c.Applicable {
			return 1000
		}
		return c.CompliancePct
	}
	sort.SliceStable(cats, func(i, j int) bool { return rank(cats[i]) < rank(cats[j]) })

	b.tableHeader(cols)
	for i, c := range cats {
		b.tableRow(cols, []cell{
			plain(c.Category),
			plain(fmt.Sprintf("%d / %d", c.Answered, c.Total)),
			plain(fmt.Sprintf("%.2f", c.Score)),
			plain(fmt.Sprintf("%.2f", c.MaxScore)),
			plain(formatPct(c)),
			{text: c.Status.Short(), color: b.verdictColor(c.Status), bold: true},
		}, i%2 == 1)
	}
	b.tableRow(cols, []cell{
		{text: "Overall", bold: true},
		{text: fmt.Sprintf("%d / %d", res.Answered, res.TotalQuestions), bold: true},
		{text: fmt.Sprintf("%.2f", res.TotalScore), bold: true},
		{text: fmt.Sprintf("%.2f", res.MaxScore), bold: true},
		{text: fmt.Sprintf("%.1f%%", res.CompliancePct), bold: true},
		{text: res.Verdict.Short(), color: b.verdictColor(res.Verdict), bold: true},
	}, false)
}

func (b *builder) addAnswers() {
	pdf := b.pdf
	pdf.AddPage()
	b.addSectionHeader("Answer Register")
	b.paragraph("Every question in the bank with the answer recorded for this assessment. "+
		"Critical controls carry the critical weight multiplier.", colorGray)

	cols := []column{
		{title: "#", width: 9, align: "C"},
		{title: "Question", width: 101},
		{title: "Answer", width: 24, align: "C"},
		{title: "Risk Points", width: 24, align: "R"},
		{title: "Critical", width: 22, align: "C"},
	}
	b.tableHeader(cols)

	category := ""
	for i, q := range b.doc.Questions {
		if q.Category != category {
			category = q.Category
			if !b.fits(16) {
				pdf.AddPage()
				b.tableHeader(cols)
			}
			pdf.SetFont("Helvetica", "B", 8.5)
			setFill(pdf, colorLight)
			setText(pdf, colorHeader)
			pdf.CellFormat(b.contentWidth(), 7, b.tr(category), "1", 1, "L", true, 0, "")
		}

		answer := cell{text: "Unanswered", color: colorGray}
		points := "-"
		if a, ok := b.doc.Session.AnswerFor(q.ID); ok {
			if opt, ok := q.Option(a.Option); ok {
				answer = cell{text: opt.Label, color: kindColor(opt.Kind), bold: true}
				points = fmt.Sprintf("%.2f", opt.Weight)
			}
		}
		crit := ""
		if q.Critical {
			crit = "Yes"
		}

		b.tableRow(cols, []cell{
			plain(fmt.Sprintf("%d", i+1)),
			plain(q.Prompt),
			answer,
			plain(points),
			{text: crit, color: colorRed},
		}, false)
	}
}

func kindColor(k questionbank.Kind) []int {
	switch k {
	case questionbank.Compliant:
		return colorGreen
	case questionbank.NonCompliant:
		return colorRed
	}
	return colorGray
}

func (b *builder) addRecommendations() {
	pdf := b.pdf
	recs := b.doc.Recommendations

	pdf.AddPage()
	b.addSectionHeader("Recommended Improvements")
	if len(recs) == 0 {
		b.paragraph("No improvements are required: every answered control is in place.", colorGray)
		return
	}
	b.paragraph("Actions are listed critical first, then in questionnaire order. Timelines are suggested "+
		"targets counted from the assessment date.", colorGray)

	cols := []column{
		{title: "Priority", width: 20, align: "C"},
		{title: "Domain", width: 30},
		{title: "Action", width: 104},
		{title: "Timeline", width: 26, align: "C"},
	}
	b.tableHeader(cols)
	for i, r := range recs {
		action := r.Action
		if len(r.References) > 0 {
			action += "\nRef: " + strings.Join(r.References, "; ")
		}
		prio := cell{text: b.titleCase.String(string(r.Priority)), color: colorGray}
		if r.Priority == remediation.PriorityCritical {
			prio = cell{text: "Critical", color: colorRed, bold: true}
		}
		b.tableRow(cols, []cell{
			prio,
			plain(shortDomain(r.Category)),
			plain(action),
			plain(r.Timeline),
		}, i%2 == 1)
	}
}

func (b *builder) addSignatures() {
	pdf := b.pdf
	s := b.doc.Session

	if !b.fits(75) {
		pdf.AddPage()
		b.addSectionHeader("Approvals")
	} else {
		pdf.Ln(6)
	}
	b.addSubHeader("Signatures")

	const gap, h = 10.0, 42.0
	w := (b.contentWidth() - gap) / 2
	y := pdf.GetY() + 2
	boxes := []struct {
		role, name string
		key        string
		scan       *Image
	}{
		{"Organization Representative", s.Organization, imageSigOrg, b.doc.Signatures.Organization},
		{"Assessor", orNotSpecified(s.Assessor), imageSigAssessor, b.doc.Signatures.Assessor},
	}
	for i, box := range boxes {
		x := pageMargin + float64(i)*(w+gap)
		setDraw(pdf, colorBorder)
		pdf.Rect(x, y, w, h, "D")

		pdf.SetXY(x+4, y+4)
		pdf.SetFont("Helvetica", "B", 9)
		setText(pdf, colorHeader)
		pdf.CellFormat(w-8, 5, b.tr(box.role), "", 0, "L", false, 0, "")

		if b.registerImage(box.key, box.scan) {
			b.drawImage(box.key, x+4, y+10, w-8, 15)
		}

		setDraw(pdf, colorGray)
		pdf.Line(x+4, y+26, x+w-4, y+26)
		pdf.SetXY(x+4, y+27)
		pdf.SetFont("Helvetica", "", 8.5)
		setText(pdf, colorGray)
		pdf.CellFormat(w-8, 5, b.tr(box.name), "", 0, "L", false, 0, "")
		pdf.SetXY(x+4, y+33)
		pdf.CellFormat(w-8, 5, "Date: ____________________", "", 0, "L", false, 0, "")
	}

	pdf.SetXY(pageMargin, y+h+6)
	pdf.SetFont("Courier", "", 8)
	setText(pdf, colorGray)
	pdf.CellFormat(0, 5, "Answer fingerprint: "+b.fingerprint, "", 1, "L", false, 0, "")
}

// addBadge lays out the single badge page: accent band, organization,
// verdict and the answer fingerprint.
func (b *builder) addBadge() {
	pdf := b.pdf
	s := b.doc.Session
	res := b.doc.Score
	pdf.SetMargins(8, 8, 8)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	setFill(pdf, b.accent)
	pdf.Rect(0, 0, pageW, 22, "F")

	textW := pageW - 16
	if b.hasLogo {
		lw, _ := b.drawImage(imageLogo, pageW-8-28, 4, 28, 14)
		textW -= lw + 4
	}
	pdf.SetXY(8, 6)
	pdf.SetFont("Helvetica", "B", 12)
	setText(pdf, colorWhite)
	pdf.CellFormat(textW, 6, "DATA PRIVACY ACT", "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(textW, 5, "Self-assessment (R.A. 10173)", "", 0, "L", false, 0, "")

	pdf.SetXY(8, 27)
	pdf.SetFont("Helvetica", "B", 11)
	setText(pdf, colorDark)
	pdf.CellFormat(pageW-16, 6, b.tr(s.Organization), "", 2, "C", false, 0, "")

	setFill(pdf, b.verdictColor(res.Verdict))
	pdf.SetX((pageW - 60) / 2)
	pdf.SetFont("Helvetica", "B", 14)
	setText(pdf, colorWhite)
	pdf.CellFormat(60, 11, string(res.Verdict), "", 2, "C", true, 0, "")

	pdf.SetX(8)
	pdf.SetFont("Helvetica", "", 8.5)
	setText(pdf, colorGray)
	pdf.CellFormat(pageW-16, 6, fmt.Sprintf("%.1f%% compliance  |  %s risk  |  assessed %s",
		res.CompliancePct, b.titleCase.String(res.RiskCategory), s.AssessmentDate), "", 2, "C", false, 0, "")

	pdf.SetXY(8, pageH-9)
	pdf.SetFont("Courier", "", 6.5)
	pdf.CellFormat(pageW-16, 4, "Fingerprint "+b.fingerprint, "", 0, "C", false, 0, "")
}
