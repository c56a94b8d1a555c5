package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cyberph/posture/pkg/assessment"
	"github.com/cyberph/posture/pkg/checkpoint"
	"github.com/cyberph/posture/pkg/cli"
	"github.com/cyberph/posture/pkg/duration"
	"github.com/cyberph/posture/pkg/strutil"
	"github.com/cyberph/posture/pkg/ui"
)

// =============================================================================
// START / ASK - create an assessment and answer it interactively
// =============================================================================

func runStart(ctx context.Context, s sys, args []string) error {
	var cf CommonFlags
	fs := newFlagSet("start", s, &cf)
	org := fs.String("org", "", "Organization name (required)")
	assessor := fs.String("assessor", "", "Assessor name")
	date := fs.String("date", "", "Assessment date YYYY-MM-DD (default today)")
	noAsk := fs.Bool("no-ask", false, "Do not start the questionnaire")
	render := fs.Bool("report", false, "Render the report when the questionnaire completes")
	var rf reportFlags
	rf.Register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*org) == "" {
		return usageErrorf("-org is required")
	}

	a, err := newApp(s, cf)
	if err != nil {
		return err
	}
	defer a.close()

	session, err := assessment.NewSession(*org, *assessor, *date, time.Now())
	if err != nil {
		return err
	}
	persisted := true
	if err := a.progress.Save(session); err != nil {
		// without a store the questionnaire can still run in memory
		if !errors.Is(err, checkpoint.ErrStorageUnavailable) || *noAsk || !s.interactive {
			return err
		}
		persisted = false
		a.logger.Warn("progress not persisted", "session", session.ID, "error", err)
		ui.PrintWarning("Progress cannot be saved; answers exist only in this run and the report is rendered when it completes")
	}
	a.logger.Info("assessment started", "session", session.ID, "organization", session.Organization)

	ui.SessionManifest("ASSESSMENT STARTED", session.ID, session.Organization, session.Assessor,
		session.AssessmentDate, 0, a.bank.Len()).Print()
	fmt.Fprintln(s.stdout, session.ID)

	if *noAsk || !s.interactive {
		ui.PrintHelp("Answer with 'posture ask' or 'posture answer QID OPTION'")
		return nil
	}
	return a.askAndReport(ctx, session, persisted, *render || !persisted, rf)
}

func runAsk(ctx context.Context, s sys, args []string) error {
	var cf CommonFlags
	fs := newFlagSet("ask", s, &cf)
	id := fs.String("session", "", "Session id or unique prefix")
	from := fs.Int("from", 0, "Start at question number (1-based) instead of the saved position")
	render := fs.Bool("report", false, "Render the report when the questionnaire completes")
	var rf reportFlags
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
	if *from > 0 {
		if err := session.Seek(*from-1, a.bank.Len(), time.Now()); err != nil {
			return err
		}
	}
	p := session.Progress(a.bank.Len())
	ui.SessionManifest("ASSESSMENT", session.ID, session.Organization, session.Assessor,
		session.AssessmentDate, p.Answered, p.Total).Print()
	return a.askAndReport(ctx, session, true, *render, rf)
}

// askAndReport runs the questionnaire over session and, when render is set
// and the run completes, writes the report from the in-memory session.
// persisted is false when the session never reached the store.
func (a *app) askAndReport(ctx context.Context, session *assessment.Session, persisted, render bool, rf reportFlags) error {
	res, err := a.ask(ctx, session, persisted)
	if err != nil || !render || res.Outcome != cli.OutcomeCompleted {
		return err
	}
	err = a.writeReport(ctx, session, rf)
	if err != nil && !persisted && errors.Is(err, checkpoint.ErrStorageUnavailable) {
		a.logger.Warn("assessment not recorded in history", "session", session.ID, "error", err)
		ui.PrintWarning("Report written, but the assessment could not be added to history")
		return nil
	}
	return err
}

// ask runs the questionnaire over session.
func (a *app) ask(ctx context.Context, session *assessment.Session, persisted bool) (cli.Result, error) {
	tracker := a.tracker(session)
	q := cli.NewQuestionnaire(tracker, a.bank.ListQuestions(), a.sys.stdin, a.sys.stderr, cli.WithLogger(a.logger))
	res, err := q.Run(ctx)

	saved := persisted && res.SaveFailures == 0
	switch res.Outcome {
	case cli.OutcomeCompleted:
		switch {
		case res.Answered == res.Total && saved:
			ui.PrintSuccess("All questions answered. Generate the report with 'posture report'")
		case res.Answered == res.Total:
			ui.PrintSuccess("All questions answered")
		default:
			ui.PrintWarning(fmt.Sprintf("%d questions skipped; 'posture ask -from N' returns to them", res.Total-res.Answered))
		}
	case cli.OutcomeQuit:
		if saved {
			ui.PrintInfo("Progress saved. Resume with 'posture ask'")
		} else {
			ui.PrintWarning("Quit without a saved copy; the answers of this run are lost")
		}
	case cli.OutcomeInterrupted:
		if saved {
			ui.PrintWarning("Interrupted. Answers given so far are saved")
		} else {
			ui.PrintWarning("Interrupted. Answers of this run were not saved")
		}
	}
	if persisted && res.SaveFailures > 0 {
		ui.PrintWarning(fmt.Sprintf("%d saves failed; answers since then exist only in this run", res.SaveFailures))
	}
	return res, err
}

// =============================================================================
// ANSWER - non-interactive answers
// =============================================================================

func runAnswer(_ context.Context, s sys, args []string) error {
	var cf CommonFlags
	fs := newFlagSet("answer", s, &cf)
	id := fs.String("session", "", "Session id or unique prefix")
	clearIDs := fs.Bool("clear", false, "Remove the answers of the given question ids")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *clearIDs {
		if fs.NArg() == 0 {
			return usageErrorf("answer -clear needs question ids")
		}
	} else if fs.NArg() == 0 {
		return usageErrorf("answer needs QID OPTION pairs, e.g. 'posture answer gov_dpo yes gov_pmp=no'")
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
	tracker := a.tracker(session)

	if *clearIDs {
		for _, qid := range fs.Args() {
			if err := tracker.Skip(qid); err != nil {
				return err
			}
		}
		ui.PrintSuccess(fmt.Sprintf("Cleared %d answers", fs.NArg()))
		return nil
	}

	pairs, err := answerPairs(fs.Args())
	if err != nil {
		return err
	}
	// check everything first so a typo applies nothing
	trial := session.Clone()
	for _, p := range pairs {
		if err := trial.Answer(a.bank, p[0], p[1], time.Now()); err != nil {
			return err
		}
	}
	var saveErr error
	for _, p := range pairs {
		if err := tracker.Record(p[0], p[1]); err != nil {
			if errors.Is(err, assessment.ErrInvalidAnswer) {
				return err
			}
			saveErr = err
		}
	}
	if saveErr != nil {
		return saveErr
	}

	p := tracker.Progress()
	for _, pair := range pairs {
		if ans, ok := trial.AnswerFor(pair[0]); ok {
			ui.PrintBracketedInfo(ui.TextBracket(pair[0]), ui.OptionBracket(ans.Option))
		}
	}
	ui.PrintSuccess(fmt.Sprintf("Recorded %d answers", len(pairs)))
	ui.PrintProgress(p.Answered, p.Total)
	return nil
}

// answerPairs accepts "QID OPTION" sequences and "QID=OPTION" tokens.
func answerPairs(args []string) ([][2]string, error) {
	var pairs [][2]string
	for i := 0; i < len(args); i++ {
		if qid, opt, ok := strings.Cut(args[i], "="); ok {
			if qid == "" || opt == "" {
				return nil, usageErrorf("malformed answer %q", args[i])
			}
			pairs = append(pairs, [2]string{qid, opt})
			continue
		}
		if i+1 >= len(args) {
			return nil, usageErrorf("question %s has no option", args[i])
		}
		pairs = append(pairs, [2]string{args[i], args[i+1]})
		i++
	}
	return pairs, nil
}

// =============================================================================
// STATUS / DISCARD / LIST
// =============================================================================

func runStatus(_ context.Context, s sys, args []string) error {
	var cf CommonFlags
	fs := newFlagSet("status", s, &cf)
	id := fs.String("session", "", "Session id or unique prefix")
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
	p := session.Progress(a.bank.Len())
	ui.SessionManifest("ASSESSMENT STATUS", session.ID, session.Organization, session.Assessor,
		session.AssessmentDate, p.Answered, p.Total).Print()
	ui.PrintProgress(p.Answered, p.Total)

	w := tabwriter.NewWriter(s.stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "#\tID\tCATEGORY\tANSWER")
	for i, q := range a.bank.ListQuestions() {
		marker := ""
		if i == session.Cursor {
			marker = " <"
		}
		ans := "-"
		if got, ok := session.AnswerFor(q.ID); ok {
			ans = got.Option
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s%s\n", i+1, q.ID, q.Category, ans, marker)
	}
	return w.Flush()
}

func runDiscard(_ context.Context, s sys, args []string) error {
	var cf CommonFlags
	fs := newFlagSet("discard", s, &cf)
	id := fs.String("session", "", "Session id or unique prefix")
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
	if err := session.Discard(time.Now()); err != nil {
		return err
	}
	if err := a.progress.Delete(session.ID); err != nil {
		return err
	}
	a.logger.Info("assessment discarded", "session", session.ID)
	ui.PrintSuccess(fmt.Sprintf("Discarded assessment %s (%s)", session.ID, session.Organization))
	return nil
}

func runList(_ context.Context, s sys, args []string) error {
	var cf CommonFlags
	fs := newFlagSet("list", s, &cf)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	a, err := newApp(s, cf)
	if err != nil {
		return err
	}
	defer a.close()

	list, err := a.progress.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		ui.PrintInfo("No assessments in progress")
		return nil
	}

	now := time.Now()
	stale := 0
	w := tabwriter.NewWriter(s.stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SESSION\tORGANIZATION\tDATE\tANSWERED\tUPDATED")
	for _, sum := range list {
		updated := sum.LastModifiedAt.Local().Format("2006-01-02 15:04")
		if duration.Since(sum.LastModifiedAt, now, duration.StaleProgress) {
			updated += " (stale)"
			stale++
		}
		ui.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\n",
			shortID(sum.ID), strutil.Truncate(sum.Organization, orgColumnWidth), sum.AssessmentDate, sum.Answered, a.bank.Len(), updated)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if stale > 0 {
		ui.PrintHelp(fmt.Sprintf("%d assessments untouched for %d days; finish them or 'posture discard'", stale, int(duration.StaleProgress/duration.Day)))
	}
	return nil
}
