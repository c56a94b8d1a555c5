// Package report renders assessment results as documents.
//
// The package is organized by output:
//
// # PDF Report (report.go, pdf.go, pdf_sections.go)
//
// Renderer, Document, Options. Render produces the full posture report:
// cover, executive summary, results chart, domain breakdown, answer
// register, recommended improvements and a signature block. Output is
// deterministic for a given Document: document dates are pinned to the
// session's last modification time and the PDF catalog is sorted.
//
// # Action Checklist (checklist.go)
//
// RenderChecklist produces a printable worksheet with one row per
// recommendation, a timeline box and space for comments.
//
// # Markdown Summary (markdown.go)
//
// RenderMarkdown executes a text/template (sprig functions available)
// against the same Document. A custom template file may replace the
// built-in one.
//
// # Layout (layout.go)
//
// Layout, Branding, Sections. Per-organization footer text, accent color
// and section visibility loaded from YAML.
//
// # Fingerprint and Jobs (fingerprint.go, job.go)
//
// Fingerprint identifies the answers a report was built from. Start runs
// a render in the background so the caller can show progress.
package report
