package report

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberph/posture/pkg/assessment"
	"github.com/cyberph/posture/pkg/questionbank"
	"github.com/cyberph/posture/pkg/remediation"
	"github.com/cyberph/posture/pkg/scoring"
)

var testStart = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func testBank(t *testing.T) *questionbank.Bank {
	t.Helper()
	bank, err := questionbank.Default(questionbank.Options{CriticalMultiplier: 1.3, AllowNA: true})
	require.NoError(t, err)
	return bank
}

// buildDocument answers every question with label, or leaves the session
// empty when label is "".
func buildDocument(t *testing.T, label string) Document {
	t.Helper()
	bank := testBank(t)
	s, err := assessment.NewSession("Dela Cruz Trading", "Maria Santos", "2026-10-14", testStart)
	require.NoError(t, err)
	if label != "" {
		for i, q := range bank.ListQuestions() {
			require.NoError(t, s.Answer(bank, q.ID, label, testStart.Add(time.Duration(i)*time.Minute)))
		}
	}
	return documentFor(t, bank, s)
}

func documentFor(t *testing.T, bank *questionbank.Bank, s *assessment.Session) Document {
	t.Helper()
	cat, err := remediation.Default()
	require.NoError(t, err)
	qs := bank.ListQuestions()
	th := scoring.DefaultThresholds()
	return Document{
		Session:            s,
		Questions:          qs,
		Score:              scoring.Compute(qs, s.Answers, th),
		Recommendations:    cat.RecommendationsFor(qs, s.Answers),
		Thresholds:         th,
		CriticalMultiplier: 1.3,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRenderer(t *testing.T, opts Options) *Renderer {
	t.Helper()
	opts.Compress = false // keep streams uncompressed so text is searchable in raw bytes
	opts.Logger = quietLogger()
	r, err := NewRenderer(opts)
	require.NoError(t, err)
	return r
}

// pdfResult holds a generated PDF and provides semantic assertions.
type pdfResult struct {
	t      *testing.T
	raw    []byte
	reader *bytes.Reader
}

func newPDFResult(t *testing.T, raw []byte) pdfResult {
	t.Helper()
	require.True(t, bytes.HasPrefix(raw, []byte("%PDF-")), "missing PDF header")
	return pdfResult{t: t, raw: raw, reader: bytes.NewReader(raw)}
}

// assertValid validates the PDF structure using pdfcpu.
func (p *pdfResult) assertValid() {
	p.t.Helper()
	p.reader.Seek(0, 0)
	if err := pdfapi.Validate(p.reader, nil); err != nil {
		p.t.Errorf("PDF validation failed: %v", err)
	}
	p.reader.Seek(0, 0)
}

// assertPageCountAtLeast checks minimum page count.
func (p *pdfResult) assertPageCountAtLeast(min int) {
	p.t.Helper()
	p.reader.Seek(0, 0)
	count, err := pdfapi.PageCount(p.reader, nil)
	if err != nil {
		p.t.Fatalf("PageCount failed: %v", err)
	}
	if count < min {
		p.t.Errorf("page count = %d, want at least %d", count, min)
	}
}

func (p *pdfResult) pageCount() int {
	p.t.Helper()
	p.reader.Seek(0, 0)
	count, err := pdfapi.PageCount(p.reader, nil)
	require.NoError(p.t, err)
	return count
}

// assertContainsText checks that the raw PDF bytes contain the given text.
// fpdf encodes Helvetica text as literal bytes in PDF content streams.
func (p *pdfResult) assertContainsText(text string) {
	p.t.Helper()
	if !bytes.Contains(p.raw, []byte(text)) {
		p.t.Errorf("PDF does not contain text %q", text)
	}
}

// assertNotContainsText checks that the raw PDF bytes do NOT contain the given text.
func (p *pdfResult) assertNotContainsText(text string) {
	p.t.Helper()
	if bytes.Contains(p.raw, []byte(text)) {
		p.t.Errorf("PDF unexpectedly contains text %q", text)
	}
}

func TestRender_FullReport(t *testing.T) {
	t.Parallel()

	doc := buildDocument(t, "No")
	raw, err := testRenderer(t, Options{}).Render(doc)
	require.NoError(t, err)

	p := newPDFResult(t, raw)
	p.assertValid()
	p.assertPageCountAtLeast(7)

	for _, text := range []string{
		"Posture Report",
		"Dela Cruz Trading",
		"Maria Santos",
		"Executive Summary",
		"Scoring Methodology",
		"Critical controls weighted x1.3",
		"Priority areas:",
		"VERDICT: FAIL",
		"RISK CATEGORY: HIGH",
		"Compliance by Domain",
		"Domain Breakdown",
		"Answer Register",
		"Recommended Improvements",
		"Organization Representative",
		"Answer fingerprint: " + Fingerprint(doc.Session),
		"Page 2 of",
	} {
		p.assertContainsText(text)
	}
	p.assertNotContainsText("{nb}")
	p.assertNotContainsText("Page 1 of")
}

func TestRender_Deterministic(t *testing.T) {
	t.Parallel()

	doc := buildDocument(t, "No")
	r := testRenderer(t, Options{})
	first, err := r.Render(doc)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := r.Render(doc)
		require.NoError(t, err)
		require.True(t, bytes.Equal(first, again), "render %d differs", i)
	}

	compressed, err := NewRenderer(Options{Compress: true, Logger: quietLogger()})
	require.NoError(t, err)
	a, err := compressed.Render(doc)
	require.NoError(t, err)
	b, err := compressed.Render(doc)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
	assert.Less(t, len(a), len(first))
}

func TestRender_DatesPinnedToSession(t *testing.T) {
	t.Parallel()

	doc := buildDocument(t, "Yes")
	raw, err := testRenderer(t, Options{}).Render(doc)
	require.NoError(t, err)

	p := newPDFResult(t, raw)
	p.assertContainsText(doc.Session.LastModifiedAt.Format("20060102150405"))
}

func TestRender_AllCompliant(t *testing.T) {
	t.Parallel()

	doc := buildDocument(t, "Yes")
	require.Empty(t, doc.Recommendations)
	raw, err := testRenderer(t, Options{}).Render(doc)
	require.NoError(t, err)

	p := newPDFResult(t, raw)
	p.assertValid()
	p.assertContainsText("VERDICT: PASS")
	p.assertContainsText("RISK CATEGORY: LOW")
	p.assertContainsText("No improvements are required")
	p.assertNotContainsText("Critical controls not in place")
}

func TestRender_EmptySession(t *testing.T) {
	t.Parallel()

	doc := buildDocument(t, "")
	raw, err := testRenderer(t, Options{}).Render(doc)
	require.NoError(t, err)

	p := newPDFResult(t, raw)
	p.assertValid()
	p.assertContainsText("VERDICT: INCOMPLETE")
	p.assertContainsText("This assessment is incomplete: 0 of 17 questions answered.")
	p.assertContainsText("Unanswered")
}

func TestRender_MinimalLayout(t *testing.T) {
	t.Parallel()

	doc := buildDocument(t, "No")
	full, err := testRenderer(t, Options{}).Render(doc)
	require.NoError(t, err)
	raw, err := testRenderer(t, Options{Layout: MinimalLayout()}).Render(doc)
	require.NoError(t, err)

	p := newPDFResult(t, raw)
	p.assertValid()
	p.assertContainsText("Executive Summary")
	p.assertContainsText("Recommended Improvements")
	p.assertNotContainsText("Answer Register")
	p.assertNotContainsText("Domain Breakdown")

	fp := newPDFResult(t, full)
	assert.Less(t, p.pageCount(), fp.pageCount())
}

func TestRender_LetterAndBranding(t *testing.T) {
	t.Parallel()

	layout := DefaultLayout()
	layout.Branding.Title = "Dela Cruz Privacy Review"
	layout.Branding.FooterText = "Confidential"
	layout.Branding.ShowPoweredBy = false

	raw, err := testRenderer(t, Options{Layout: layout, PageSize: "letter"}).Render(buildDocument(t, "No"))
	require.NoError(t, err)

	p := newPDFResult(t, raw)
	p.assertValid()
	p.assertContainsText("Dela Cruz Privacy Review")
	p.assertContainsText("Confidential")
	p.assertNotContainsText("posture 1.2.0")
}

func TestRender_Failures(t *testing.T) {
	t.Parallel()

	r := testRenderer(t, Options{})

	_, err := r.Render(Document{})
	assert.ErrorIs(t, err, ErrRenderFailure)

	doc := buildDocument(t, "No")
	doc.Questions = nil
	_, err = r.Render(doc)
	assert.ErrorIs(t, err, ErrRenderFailure)

	doc = buildDocument(t, "No")
	out, err := r.render("report", doc, func(*builder) { panic("layout bug") })
	assert.ErrorIs(t, err, ErrRenderFailure)
	assert.Nil(t, out)

	out, err = r.render("report", doc, func(b *builder) {
		b.addCover()
		b.pdf.SetError(errors.New("font missing"))
	})
	assert.ErrorIs(t, err, ErrRenderFailure)
	assert.Nil(t, out)
}

func TestNewRenderer_Invalid(t *testing.T) {
	t.Parallel()

	_, err := NewRenderer(Options{PageSize: "A3"})
	assert.ErrorIs(t, err, ErrInvalidLayout)

	layout := DefaultLayout()
	layout.Branding.AccentColor = "blue"
	_, err = NewRenderer(Options{Layout: layout})
	assert.ErrorIs(t, err, ErrInvalidLayout)
}

func TestRenderChecklist(t *testing.T) {
	t.Parallel()

	doc := buildDocument(t, "No")
	raw, err := testRenderer(t, Options{}).RenderChecklist(doc)
	require.NoError(t, err)

	p := newPDFResult(t, raw)
	p.assertValid()
	p.assertPageCountAtLeast(2)
	p.assertContainsText("COMPLIANCE ACTION CHECKLIST")
	p.assertContainsText("Dela Cruz Trading | 2026-10-14")
	p.assertContainsText("Action Required")
	p.assertContainsText("Comments:")
	p.assertContainsText("Breach Mgmt")
	p.assertContainsText("17 actions, 8 critical")
	p.assertContainsText("Page 1 of")
}

func TestRenderChecklist_NoActions(t *testing.T) {
	t.Parallel()

	raw, err := testRenderer(t, Options{}).RenderChecklist(buildDocument(t, "Yes"))
	require.NoError(t, err)

	p := newPDFResult(t, raw)
	p.assertValid()
	p.assertContainsText("No actions required")
	p.assertNotContainsText("Action Required")
}

func TestShortDomain(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Physical/Org", shortDomain("Physical & Organizational"))
	assert.Equal(t, "Cybersecurity", shortDomain("Cybersecurity"))
}
