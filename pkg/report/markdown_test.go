package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	t.Parallel()

	doc := buildDocument(t, "No")
	out, err := testRenderer(t, Options{}).RenderMarkdown(doc)
	require.NoError(t, err)

	md := string(out)
	assert.True(t, strings.HasPrefix(md, "# Data Privacy & Cybersecurity Posture Report\n"))
	assert.Contains(t, md, "| Organization | Dela Cruz Trading |")
	assert.Contains(t, md, "**Verdict: FAIL** with 0.0% compliance.")
	assert.Contains(t, md, "Risk category **HIGH**")
	assert.Contains(t, md, "8 critical failures")
	assert.Contains(t, md, "| Governance & Compliance | 3 / 3 | 0.0% | FAIL |")
	assert.Contains(t, md, "1. Governance & Compliance: 0.0%")
	assert.Contains(t, md, "### Critical controls not in place")
	assert.Contains(t, md, "| Critical | Governance |")
	assert.Contains(t, md, "| 30 days |")
	assert.Contains(t, md, "- Critical controls weighted x1.3")
	assert.Contains(t, md, "`"+Fingerprint(doc.Session)+"`")
	assert.NotContains(t, md, "incomplete")
}

func TestRenderMarkdown_PartialAndCompliant(t *testing.T) {
	t.Parallel()

	bank := testBank(t)
	doc := buildDocument(t, "")
	require.NoError(t, doc.Session.Answer(bank, "gov_dpo", "Yes", testStart))
	doc = documentFor(t, bank, doc.Session)

	out, err := testRenderer(t, Options{}).RenderMarkdown(doc)
	require.NoError(t, err)

	md := string(out)
	assert.Contains(t, md, "> This assessment is incomplete. Unanswered: gov_pmp, gov_registration,")
	assert.Contains(t, md, "No improvements are required")
	assert.Contains(t, md, "| Cybersecurity | 0 / 1 | - | INCOMPLETE |")
	assert.NotContains(t, md, "### Critical controls not in place")
}

func TestRenderMarkdown_CustomTemplate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "summary.tmpl")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{{ .Organization | upper }} {{ .Score.Verdict }} {{ len .Recommendations }}`), 0o644))

	out, err := testRenderer(t, Options{MarkdownTemplate: path}).RenderMarkdown(buildDocument(t, "No"))
	require.NoError(t, err)
	assert.Equal(t, "DELA CRUZ TRADING FAIL 17", string(out))
}

func TestRenderMarkdown_TemplateErrors(t *testing.T) {
	t.Parallel()

	_, err := NewRenderer(Options{MarkdownTemplate: filepath.Join(t.TempDir(), "missing.tmpl")})
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.tmpl")
	require.NoError(t, os.WriteFile(bad, []byte(`{{ .Organization `), 0o644))
	_, err = NewRenderer(Options{MarkdownTemplate: bad})
	assert.Error(t, err)

	failing := filepath.Join(t.TempDir(), "failing.tmpl")
	require.NoError(t, os.WriteFile(failing, []byte(`{{ .NoSuchField }}`), 0o644))
	r := testRenderer(t, Options{MarkdownTemplate: failing})
	_, err = r.RenderMarkdown(buildDocument(t, "No"))
	assert.ErrorIs(t, err, ErrRenderFailure)

	_, err = r.RenderMarkdown(Document{})
	assert.ErrorIs(t, err, ErrRenderFailure)
}

func TestMdEscape(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `a \| b c`, mdEscape("a | b\nc"))
}
