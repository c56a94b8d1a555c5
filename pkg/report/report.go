package report

import (
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/cyberph/posture/pkg/assessment"
	"github.com/cyberph/posture/pkg/defaults"
	"github.com/cyberph/posture/pkg/questionbank"
	"github.com/cyberph/posture/pkg/remediation"
	"github.com/cyberph/posture/pkg/scoring"
)

// Document is everything a report is built from. Render reads nothing else:
// no clock, no environment, no files.
type Document struct {
	Session         *assessment.Session
	Questions       []questionbank.Question
	Score           scoring.Result
	Recommendations []remediation.Recommendation

	// Thresholds and CriticalMultiplier describe the scoring methodology
	// on the summary page. Zero values print the stock methodology.
	Thresholds         scoring.Thresholds
	CriticalMultiplier float64

	// Signatures are optional scans drawn into the approval boxes.
	Signatures Signatures
}

// Options configures a Renderer.
type Options struct {
	// Layout controls branding and section visibility. Nil means DefaultLayout.
	Layout *Layout

	// PageSize is "A4" or "Letter". Empty means A4.
	PageSize string

	// Compress enables PDF stream compression.
	Compress bool

	// SkipValidation turns off the pdfcpu structural check of rendered output.
	SkipValidation bool

	// MarkdownTemplate is a text/template file replacing the built-in
	// Markdown summary.
	MarkdownTemplate string

	// Logo is drawn on the cover, the page headers and the badge. Nil
	// loads Layout.Branding.Logo when that is set.
	Logo *Image

	Logger *slog.Logger
}

// Renderer produces report documents. It is safe for concurrent use.
type Renderer struct {
	layout   *Layout
	pageSize string
	compress bool
	validate bool
	markdown *template.Template
	logo     *Image
	logger   *slog.Logger
}

// NewRenderer creates a renderer.
func NewRenderer(opts Options) (*Renderer, error) {
	layout := opts.Layout
	if layout == nil {
		layout = DefaultLayout()
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	size := strings.TrimSpace(opts.PageSize)
	switch strings.ToLower(size) {
	case "", "a4":
		size = "A4"
	case "letter":
		size = "Letter"
	default:
		return nil, fmt.Errorf("%w: unsupported page size %q", ErrInvalidLayout, opts.PageSize)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	md, err := parseSummaryTemplate(opts.MarkdownTemplate)
	if err != nil {
		return nil, err
	}

	logo := opts.Logo
	if logo == nil && strings.TrimSpace(layout.Branding.Logo) != "" {
		if logo, err = LoadImage(layout.Branding.Logo); err != nil {
			return nil, err
		}
	}

	return &Renderer{
		layout:   layout,
		pageSize: size,
		compress: opts.Compress,
		validate: !opts.SkipValidation,
		markdown: md,
		logo:     logo,
		logger:   logger,
	}, nil
}

// Render produces the full PDF report.
func (r *Renderer) Render(doc Document) ([]byte, error) {
	return r.render("report", doc, func(b *builder) {
		b.addCover()
		if b.layout.Sections.ExecutiveSummary {
			b.addExecutiveSummary()
		}
		if b.layout.Sections.Results {
			b.addResults()
		}
		if b.layout.Sections.Breakdown {
			b.addBreakdown()
		}
		if b.layout.Sections.Answers {
			b.addAnswers()
		}
		if b.layout.Sections.Recommendations {
			b.addRecommendations()
		}
		if b.layout.Sections.Signatures {
			b.addSignatures()
		}
	})
}

// RenderBadge produces a one-page compliance badge. Only a PASS verdict
// earns one.
func (r *Renderer) RenderBadge(doc Document) ([]byte, error) {
	if doc.Score.Verdict != scoring.VerdictPass {
		return nil, fmt.Errorf("%w: verdict is %s", ErrBadgeNotEarned, doc.Score.Verdict)
	}
	return r.render("badge", doc, func(b *builder) {
		b.addBadge()
	})
}

// RenderChecklist produces the printable action checklist.
func (r *Renderer) RenderChecklist(doc Document) ([]byte, error) {
	return r.render("checklist", doc, func(b *builder) {
		b.addChecklist()
	})
}

func (doc Document) check() error {
	if doc.Session == nil {
		return fmt.Errorf("%w: document has no session", ErrRenderFailure)
	}
	if len(doc.Questions) == 0 {
		return fmt.Errorf("%w: document has no questions", ErrRenderFailure)
	}
	return nil
}

// stamp is the fixed document date.
func (doc Document) stamp() time.Time {
	t := doc.Session.LastModifiedAt
	if t.IsZero() {
		t = doc.Session.CreatedAt
	}
	if t.IsZero() {
		if d, err := time.Parse(assessment.DateLayout, doc.Session.AssessmentDate); err == nil {
			t = d
		}
	}
	return t.UTC()
}

func (doc Document) methodology() (scoring.Thresholds, float64) {
	th := doc.Thresholds
	if len(th.Bands) == 0 {
		th = scoring.DefaultThresholds()
	}
	mult := doc.CriticalMultiplier
	if mult <= 0 {
		mult = defaults.CriticalMultiplier
	}
	return th, mult
}
