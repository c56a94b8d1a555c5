package report

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	gofpdf "github.com/go-pdf/fpdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cyberph/posture/pkg/defaults"
	"github.com/cyberph/posture/pkg/questionbank"
	"github.com/cyberph/posture/pkg/scoring"
)

const (
	pageMargin = 15.0
	lineHeight = 4.5
)

// Palette, RGB.
var (
	colorDark   = []int{31, 41, 55}
	colorGray   = []int{107, 114, 128}
	colorLight  = []int{229, 231, 235}
	colorSoft   = []int{248, 250, 252}
	colorBorder = []int{209, 213, 219}
	colorHeader = []int{30, 41, 59}
	colorGreen  = []int{16, 185, 129}
	colorOrange = []int{245, 158, 11}
	colorRed    = []int{239, 68, 68}
	colorWhite  = []int{255, 255, 255}
)

var verdictColors = map[scoring.Verdict][]int{
	scoring.VerdictPass:          colorGreen,
	scoring.VerdictImprove:       colorOrange,
	scoring.VerdictFail:          colorRed,
	scoring.VerdictIncomplete:    colorGray,
	scoring.VerdictNotApplicable: colorGray,
}

var riskColors = map[string][]int{
	defaults.RiskLow:        colorGreen,
	defaults.RiskMedium:     colorOrange,
	defaults.RiskHigh:       colorRed,
	defaults.RiskIncomplete: colorGray,
}

// shortDomains are compact labels for narrow table columns.
var shortDomains = map[string]string{
	"Governance & Compliance":   "Governance",
	"Privacy Impact Assessment": "Privacy Impact",
	"Data Subject Rights":       "Data Subject",
	"Security Measures":         "Security",
	"Breach Management":         "Breach Mgmt",
	"Physical & Organizational": "Physical/Org",
}

func shortDomain(name string) string {
	if s, ok := shortDomains[name]; ok {
		return s
	}
	return name
}

// pdfcpu writes a user config directory unless told otherwise.
var pdfcpuSetup sync.Once

// validatePDF checks the structure of a rendered document.
func validatePDF(data []byte) error {
	pdfcpuSetup.Do(func() { model.ConfigPath = "disable" })
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return pdfapi.Validate(bytes.NewReader(data), conf)
}

// builder carries one document through layout.
type builder struct {
	pdf         *gofpdf.Fpdf
	tr          func(string) string
	doc         Document
	layout      *Layout
	accent      []int
	title       string
	fingerprint string
	kind        string
	hasCover    bool
	byID        map[string]questionbank.Question
	titleCase   cases.Caser
	images      map[string]*gofpdf.ImageInfoType
	hasLogo     bool
}

// Registered image keys.
const (
	imageLogo        = "logo"
	imageSigOrg      = "signature-organization"
	imageSigAssessor = "signature-assessor"
)

// Image and badge geometry, mm.
const (
	badgeWidth        = 120.0
	badgeHeight       = 70.0
	headerLogoHeight  = 9.0
	coverLogoMaxWidth = 40.0
)

func (r *Renderer) render(kind string, doc Document, build func(*builder)) (out []byte, err error) {
	if err := doc.check(); err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("report layout panicked", "kind", kind, "panic", rec)
			out, err = nil, fmt.Errorf("%w: %s layout: %v", ErrRenderFailure, kind, rec)
		}
	}()

	b := r.newBuilder(doc, kind)
	build(b)

	var buf bytes.Buffer
	if err := b.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailure, kind, err)
	}
	if r.validate {
		if err := validatePDF(buf.Bytes()); err != nil {
			r.logger.Error("rendered document failed validation", "kind", kind, "error", err)
			return nil, fmt.Errorf("%w: %s failed validation: %v", ErrRenderFailure, kind, err)
		}
	}

	r.logger.Debug("rendered document",
		"kind", kind,
		"session", doc.Session.ID,
		"pages", b.pdf.PageCount(),
		"bytes", buf.Len(),
	)
	return buf.Bytes(), nil
}

func (r *Renderer) newBuilder(doc Document, kind string) *builder {
	var pdf *gofpdf.Fpdf
	if kind == "badge" {
		pdf = gofpdf.NewCustom(&gofpdf.InitType{
			OrientationStr: "P",
			UnitStr:        "mm",
			Size:           gofpdf.SizeType{Wd: badgeWidth, Ht: badgeHeight},
		})
	} else {
		pdf = gofpdf.New("P", "mm", r.pageSize, "")
	}
	pdf.SetCompression(r.compress)

	stamp := doc.stamp()
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetCatalogSort(true)

	title := r.layout.Branding.Title
	pdf.SetTitle(title, true)
	pdf.SetSubject(doc.Session.Organization, true)
	pdf.SetAuthor(doc.Session.Assessor, true)
	pdf.SetCreator(defaults.ToolName+" "+defaults.Version, true)

	pdf.SetMargins(pageMargin, 20, pageMargin)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")

	accent, err := parseHexColor(r.layout.Branding.AccentColor)
	if err != nil {
		accent = colorDark
	}

	byID := make(map[string]questionbank.Question, len(doc.Questions))
	for _, q := range doc.Questions {
		byID[q.ID] = q
	}

	b := &builder{
		pdf:         pdf,
		tr:          pdf.UnicodeTranslatorFromDescriptor(""),
		doc:         doc,
		layout:      r.layout,
		accent:      accent,
		title:       title,
		fingerprint: Fingerprint(doc.Session),
		kind:        kind,
		hasCover:    kind == "report",
		byID:        byID,
		titleCase:   cases.Title(language.English),
		images:      make(map[string]*gofpdf.ImageInfoType),
	}
	b.hasLogo = b.registerImage(imageLogo, r.logo)
	pdf.SetHeaderFunc(b.header)
	pdf.SetFooterFunc(b.footer)
	return b
}

// header puts the logo at the top right of every numbered page.
func (b *builder) header() {
	if !b.hasLogo || b.kind == "badge" || (b.hasCover && b.pdf.PageNo() == 1) {
		return
	}
	pageW, _ := b.pdf.GetPageSize()
	b.drawImage(imageLogo, pageW-pageMargin-3*headerLogoHeight, 6, 3*headerLogoHeight, headerLogoHeight)
}

func (b *builder) footer() {
	pdf := b.pdf
	if b.kind == "badge" || (b.hasCover && pdf.PageNo() == 1) {
		return
	}

	left := b.layout.Branding.FooterText
	if b.layout.Branding.ShowPoweredBy {
		if left != "" {
			left += "  |  "
		}
		left += fmt.Sprintf("%s %s", defaults.ToolName, defaults.Version)
	}

	pdf.SetY(-15)
	setDraw(pdf, colorLight)
	pageW, _ := pdf.GetPageSize()
	pdf.Line(pageMargin, pdf.GetY(), pageW-pageMargin, pdf.GetY())

	pdf.SetFont("Helvetica", "", 7.5)
	setText(pdf, colorGray)
	pdf.CellFormat(0, 8, b.tr(left), "", 0, "L", false, 0, "")
	pdf.SetX(pageMargin)
	pdf.CellFormat(0, 8, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
}

func setFill(pdf *gofpdf.Fpdf, c []int) { pdf.SetFillColor(c[0], c[1], c[2]) }
func setText(pdf *gofpdf.Fpdf, c []int) { pdf.SetTextColor(c[0], c[1], c[2]) }
func setDraw(pdf *gofpdf.Fpdf, c []int) { pdf.SetDrawColor(c[0], c[1], c[2]) }

func (b *builder) contentWidth() float64 {
	pageW, _ := b.pdf.GetPageSize()
	return pageW - 2*pageMargin
}

func (b *builder) pageBreakY() float64 {
	_, pageH := b.pdf.GetPageSize()
	return pageH - 25
}

// fits reports whether h more millimeters fit on the current page.
func (b *builder) fits(h float64) bool {
	return b.pdf.GetY()+h <= b.pageBreakY()
}

func (b *builder) addSectionHeader(title string) {
	pdf := b.pdf
	pdf.SetFont("Helvetica", "B", 16)
	setText(pdf, colorDark)
	pdf.CellFormat(0, 10, b.tr(title), "", 1, "L", false, 0, "")

	y := pdf.GetY()
	setDraw(pdf, b.accent)
	pdf.SetLineWidth(0.8)
	pdf.Line(pageMargin, y, pageMargin+40, y)
	pdf.SetLineWidth(0.2)
	pdf.Ln(5)
}

func (b *builder) addSubHeader(title string) {
	pdf := b.pdf
	if !b.fits(20) {
		pdf.AddPage()
	}
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 11)
	setText(pdf, colorHeader)
	pdf.CellFormat(0, 7, b.tr(title), "", 1, "L", false, 0, "")

	y := pdf.GetY()
	setDraw(pdf, colorLight)
	pdf.Line(pageMargin, y, pageMargin+b.contentWidth(), y)
	pdf.Ln(2)
}

func (b *builder) paragraph(text string, color []int) {
	pdf := b.pdf
	pdf.SetFont("Helvetica", "", 9.5)
	setText(pdf, color)
	pdf.MultiCell(0, 5, b.tr(text), "", "L", false)
	pdf.Ln(2)
}

// column is one table column.
type column struct {
	title string
	width float64
	align string
}

// cell is one table value. A nil color means the default text color.
type cell struct {
	text  string
	color []int
	bold  bool
}

func plain(s string) cell { return cell{text: s} }

func (b *builder) tableHeader(cols []column) {
	pdf := b.pdf
	pdf.SetFont("Helvetica", "B", 8.5)
	setFill(pdf, colorHeader)
	setDraw(pdf, colorBorder)
	setText(pdf, colorWhite)
	for _, c := range cols {
		pdf.CellFormat(c.width, 8, b.tr(c.title), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

// tableRow draws one wrapped row and returns its top and height. When the
// row does not fit, a new page is started and the header repeated.
func (b *builder) tableRow(cols []column, cells []cell, zebra bool) (float64, float64) {
	pdf := b.pdf
	texts := make([]string, len(cells))
	lines := 1
	for i, c := range cells {
		texts[i] = b.tr(c.text)
		style := ""
		if c.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 8.5)
		if n := len(pdf.SplitLines([]byte(texts[i]), cols[i].width-2)); n > lines {
			lines = n
		}
	}
	h := float64(lines)*lineHeight + 2

	if !b.fits(h) {
		pdf.AddPage()
		b.tableHeader(cols)
	}

	y := pdf.GetY()
	x := pageMargin
	setDraw(pdf, colorBorder)
	for i, col := range cols {
		style := "D"
		if zebra {
			setFill(pdf, colorSoft)
			style = "FD"
		}
		pdf.Rect(x, y, col.width, h, style)

		c := cells[i]
		fontStyle := ""
		if c.bold {
			fontStyle = "B"
		}
		pdf.SetFont("Helvetica", fontStyle, 8.5)
		if c.color != nil {
			setText(pdf, c.color)
		} else {
			setText(pdf, colorDark)
		}
		align := col.align
		if align == "" {
			align = "L"
		}
		pdf.SetXY(x+1, y+1)
		pdf.MultiCell(col.width-2, lineHeight, texts[i], "", align, false)
		x += col.width
	}
	pdf.SetXY(pageMargin, y+h)
	return y, h
}

// answerCounts tallies the recorded answers by kind.
func (b *builder) answerCounts() (compliant, nonCompliant, notApplicable int) {
	for _, a := range b.doc.Session.Answers {
		q, ok := b.byID[a.QuestionID]
		if !ok {
			continue
		}
		opt, ok := q.Option(a.Option)
		if !ok {
			continue
		}
		switch opt.Kind {
		case questionbank.Compliant:
			compliant++
		case questionbank.NonCompliant:
			nonCompliant++
		case questionbank.NotApplicable:
			notApplicable++
		}
	}
	return compliant, nonCompliant, notApplicable
}

// criticalFailures returns failed critical questions in bank order.
func (b *builder) criticalFailures() []questionbank.Question {
	var out []questionbank.Question
	for _, q := range b.doc.Questions {
		a, ok := b.doc.Session.AnswerFor(q.ID)
		if !ok || !q.Critical {
			continue
		}
		if opt, ok := q.Option(a.Option); ok && opt.Kind == questionbank.NonCompliant {
			out = append(out, q)
		}
	}
	return out
}

func (b *builder) verdictColor(v scoring.Verdict) []int {
	if c, ok := verdictColors[v]; ok {
		return c
	}
	return colorGray
}

func (b *builder) riskColor(name string) []int {
	if c, ok := riskColors[strings.ToLower(name)]; ok {
		return c
	}
	return colorOrange
}

func formatPct(c scoring.CategoryScore) string {
	switch {
	case c.Answered == 0:
		return "-"
	case !c.Applicable:
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", c.CompliancePct)
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}
