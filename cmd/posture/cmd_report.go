package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cyberph/posture/pkg/assessment"
	"github.com/cyberph/posture/pkg/checkpoint"
	"github.com/cyberph/posture/pkg/defaults"
	"github.com/cyberph/posture/pkg/duration"
	"github.com/cyberph/posture/pkg/history"
	"github.com/cyberph/posture/pkg/report"
	"github.com/cyberph/posture/pkg/scoring"
	"github.com/cyberph/posture/pkg/ui"
)

// =============================================================================
// REPORT - render documents and finalize the assessment
// =============================================================================

func runReport(ctx context.Context, s sys, args []string) error {
	var cf CommonFlags
	var rf reportFlags
	fs := newFlagSet("report", s, &cf)
	id := fs.String("session", "", "Session id or unique prefix")
	rf.Register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	a, err := newApp(s, cf)
	if err != nil {
		return err
	}
	defer a.close()

	session, err := a.openSession(*id)
	if err != nil {
		return err
	}
	if session.Closed() {
		return fmt.Errorf("%w: %s", assessment.ErrSessionClosed, session.Status)
	}
	return a.writeReport(ctx, session, rf)
}

// reportFlags are the document options of report, also accepted by the
// -report path of start and ask.
type reportFlags struct {
	OutDir       string
	Checklist    bool
	Markdown     bool
	Keep         bool
	Minimal      bool
	NoValidate   bool
	Badge        bool
	Logo         string
	SignOrg      string
	SignAssessor string
}

// Register adds the document flags to fs.
func (rf *reportFlags) Register(fs *flag.FlagSet) {
	fs.StringVar(&rf.OutDir, "o", "", "Output directory (default report_dir from config)")
	fs.BoolVar(&rf.Checklist, "checklist", false, "Also render the action checklist PDF")
	fs.BoolVar(&rf.Markdown, "markdown", false, "Also write the Markdown summary")
	fs.BoolVar(&rf.Keep, "keep", false, "Keep the assessment open instead of finalizing it")
	fs.BoolVar(&rf.Minimal, "minimal", false, "Use the minimal layout (cover, results, recommendations)")
	fs.BoolVar(&rf.NoValidate, "no-validate", false, "Skip the structural check of rendered PDFs")
	fs.BoolVar(&rf.Badge, "badge", false, "Also render a compliance badge when the verdict is PASS")
	fs.StringVar(&rf.Logo, "logo", "", "Logo image (PNG, JPEG or GIF) for the cover, page headers and badge")
	fs.StringVar(&rf.SignOrg, "sign-org", "", "Scanned signature of the organization representative")
	fs.StringVar(&rf.SignAssessor, "sign-assessor", "", "Scanned signature of the assessor")
}

// signatures loads the signature scans named by the flags.
func (rf reportFlags) signatures() (report.Signatures, error) {
	var sig report.Signatures
	for _, f := range []struct {
		path string
		dst  **report.Image
	}{
		{rf.SignOrg, &sig.Organization},
		{rf.SignAssessor, &sig.Assessor},
	} {
		if f.path == "" {
			continue
		}
		img, err := report.LoadImage(f.path)
		if err != nil {
			return report.Signatures{}, err
		}
		*f.dst = img
	}
	return sig, nil
}

// writeReport renders the documents selected by rf for session, prints
// their paths and finalizes the session unless rf.Keep.
func (a *app) writeReport(ctx context.Context, session *assessment.Session, rf reportFlags) error {
	layout, err := a.layout(rf.Minimal)
	if err != nil {
		return err
	}
	if rf.Logo != "" {
		layout.Branding.Logo = rf.Logo
	}
	sigs, err := rf.signatures()
	if err != nil {
		return err
	}
	renderer, err := report.NewRenderer(report.Options{
		Layout:           layout,
		PageSize:         a.cfg.Report.PageSize,
		Compress:         a.cfg.Report.Compress,
		SkipValidation:   rf.NoValidate,
		MarkdownTemplate: a.cfg.Report.MarkdownTemplate,
		Logger:           a.logger,
	})
	if err != nil {
		return err
	}

	res := a.score(session)
	if res.Incomplete {
		ui.PrintWarning(fmt.Sprintf("%d of %d questions unanswered; the report marks the assessment incomplete",
			len(res.Unanswered), res.TotalQuestions))
	}
	doc := report.Document{
		Session:            session,
		Questions:          a.bank.ListQuestions(),
		Score:              res,
		Recommendations:    a.catalog.RecommendationsFor(a.bank.ListQuestions(), session.Answers),
		Thresholds:         a.cfg.Thresholds(),
		CriticalMultiplier: a.cfg.Scoring.CriticalMultiplier,
		Signatures:         sigs,
	}

	dir := rf.OutDir
	if dir == "" {
		dir = a.cfg.ReportDir
	}
	org, date := session.Organization, session.AssessmentDate
	outputs := []output{
		{"report", "Rendering report", defaults.ReportFileName(org, date), renderer.Render},
	}
	if rf.Checklist {
		outputs = append(outputs, output{"checklist", "Rendering checklist", defaults.ChecklistFileName(org, date), renderer.RenderChecklist})
	}
	if rf.Markdown {
		outputs = append(outputs, output{"markdown", "Writing summary", defaults.SummaryFileName(org, date), renderer.RenderMarkdown})
	}
	if rf.Badge {
		if res.Verdict == scoring.VerdictPass {
			outputs = append(outputs, output{"badge", "Rendering badge", defaults.BadgeFileName(org, date), renderer.RenderBadge})
		} else {
			ui.PrintInfo(fmt.Sprintf("No badge: the verdict is %s, a badge needs PASS", res.Verdict))
		}
	}

	var written []string
	for _, o := range outputs {
		path := filepath.Join(dir, o.name)
		if err := a.renderTo(ctx, o.kind, o.title, path, func() ([]byte, error) { return o.render(doc) }); err != nil {
			return err
		}
		written = append(written, path)
	}

	for _, path := range written {
		ui.PrintSuccess("Wrote " + path)
		fmt.Fprintln(a.sys.stdout, path)
	}
	ui.PrintScoreCard(scoreCard(session.Organization, res))

	if rf.Keep {
		ui.PrintInfo("Assessment kept open; later answers change the next report")
		return nil
	}
	return a.finalize(session, res)
}

// output is one document a report run produces.
type output struct {
	kind   string
	title  string
	name   string
	render func(report.Document) ([]byte, error)
}

// layout resolves the report layout from config and flags.
func (a *app) layout(minimal bool) (*report.Layout, error) {
	var layout *report.Layout
	switch {
	case minimal:
		layout = report.MinimalLayout()
	case a.cfg.Report.LayoutFile != "":
		l, err := report.LoadLayout(a.cfg.Report.LayoutFile)
		if err != nil {
			return nil, err
		}
		layout = l
	default:
		layout = report.DefaultLayout()
	}
	if t := a.cfg.Report.Title; t != "" && t != defaults.ReportTitle {
		layout.Branding.Title = t
	}
	if a.cfg.Report.FooterText != "" {
		layout.Branding.FooterText = a.cfg.Report.FooterText
	}
	if a.cfg.Report.Logo != "" {
		layout.Branding.Logo = a.cfg.Report.Logo
	}
	return layout, nil
}

// renderTo runs fn in the background behind a spinner and writes its output
// to path.
func (a *app) renderTo(ctx context.Context, kind, title, path string, fn func() ([]byte, error)) error {
	activity := ui.NewActivity(ui.ActivityConfig{Title: title, Mode: ui.DefaultOutputMode()})
	activity.Start()
	start := time.Now()

	data, err := report.Start(ctx, fn).Wait(ctx)
	if err == nil {
		err = writeFileAtomic(path, data)
		if err != nil {
			err = fmt.Errorf("%w: write %s: %v", report.ErrRenderFailure, path, err)
		}
	}
	activity.Stop(err)
	elapsed := time.Since(start)
	a.metrics.ObserveRender(kind, elapsed, err)
	if err != nil {
		return err
	}
	if elapsed > duration.SlowRender {
		a.logger.Warn("slow render", "kind", kind, "elapsed", elapsed)
	}
	a.logger.Info("document written", "kind", kind, "path", path, "bytes", len(data))
	return nil
}

// finalize closes the session, records it in history and removes its
// progress file.
func (a *app) finalize(session *assessment.Session, res scoring.Result) error {
	if err := session.Finalize(); err != nil {
		return err
	}
	h, err := a.historyStore()
	if err != nil {
		return err
	}
	if err := h.Save(history.RecordFrom(session, res, report.Fingerprint(session))); err != nil {
		return fmt.Errorf("%w: history: %v", checkpoint.ErrStorageUnavailable, err)
	}
	if err := a.progress.Delete(session.ID); err != nil {
		return err
	}
	a.logger.Info("assessment finalized", "session", session.ID, "verdict", res.Verdict)
	ui.PrintSuccess(fmt.Sprintf("Assessment %s finalized and added to history", shortID(session.ID)))
	ui.PrintBracketedInfo(ui.VerdictBracket(string(res.Verdict)), ui.RiskBracket(res.RiskCategory), ui.MutedBracket(shortID(session.ID)))
	return nil
}
