// Package cli runs the interactive questionnaire and the process-level
// plumbing (signals) shared by the posture subcommands.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cyberph/posture/pkg/assessment"
	"github.com/cyberph/posture/pkg/questionbank"
	"github.com/cyberph/posture/pkg/ui"
)

// Outcome tells how a questionnaire run ended.
type Outcome string

const (
	// OutcomeCompleted means the cursor passed the last question.
	OutcomeCompleted Outcome = "completed"
	// OutcomeQuit means the user quit or the input ended.
	OutcomeQuit Outcome = "quit"
	// OutcomeInterrupted means the context was cancelled.
	OutcomeInterrupted Outcome = "interrupted"
)

// Result summarizes a questionnaire run.
type Result struct {
	Outcome      Outcome
	Answered     int
	Total        int
	SaveFailures int
}

// Questionnaire asks the bank's questions in order starting at the session
// cursor and records every answer through the tracker.
type Questionnaire struct {
	tracker   *assessment.Tracker
	questions []questionbank.Question
	in        io.Reader
	out       io.Writer
	logger    *slog.Logger
}

// Option configures a Questionnaire.
type Option func(*Questionnaire)

// WithLogger sets a custom structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Questionnaire) { q.logger = l }
}

// NewQuestionnaire reads answers from in and writes prompts to out.
func NewQuestionnaire(tracker *assessment.Tracker, questions []questionbank.Question, in io.Reader, out io.Writer, opts ...Option) *Questionnaire {
	q := &Questionnaire{
		tracker:   tracker,
		questions: questions,
		in:        in,
		out:       out,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.logger == nil {
		q.logger = slog.Default()
	}
	return q
}

type action int

const (
	actionAnswer action = iota
	actionKeep
	actionBack
	actionSkip
	actionQuit
	actionHelp
	actionInvalid
)

// Run asks questions until the last one is passed, the user quits, the
// input ends or ctx is cancelled. The cursor is saved on every move, so a
// later Run resumes where this one stopped.
func (q *Questionnaire) Run(ctx context.Context) (Result, error) {
	res := Result{Total: len(q.questions)}
	lines, stop := readLines(q.in)
	defer close(stop)

	cursor := q.tracker.Session().Cursor
	if cursor > 0 && cursor < len(q.questions) {
		fmt.Fprintf(q.out, "%s\n", ui.HelpStyle.Render(fmt.Sprintf("  Resuming at question %d of %d", cursor+1, len(q.questions))))
	}

	for cursor < len(q.questions) {
		question := q.questions[cursor]
		current, hasCurrent := q.tracker.Session().AnswerFor(question.ID)
		q.show(cursor, question, current, hasCurrent)

		var line string
		select {
		case <-ctx.Done():
			res.Outcome = OutcomeInterrupted
			return q.finish(res), ctx.Err()
		case l, ok := <-lines:
			if !ok {
				res.Outcome = OutcomeQuit
				return q.finish(res), nil
			}
			line = l
		}

		act, label := parseInput(line, question, hasCurrent)
		switch act {
		case actionAnswer:
			err := q.tracker.Record(question.ID, label)
			switch {
			case errors.Is(err, assessment.ErrInvalidAnswer), errors.Is(err, assessment.ErrSessionClosed):
				q.warn(err.Error())
				continue
			case err != nil:
				res.SaveFailures++
				q.warn("progress not saved: " + err.Error())
			}
			cursor = q.move(cursor+1, &res)
		case actionKeep, actionSkip:
			cursor = q.move(cursor+1, &res)
		case actionBack:
			if cursor == 0 {
				q.warn("already at the first question")
				continue
			}
			cursor = q.move(cursor-1, &res)
		case actionQuit:
			res.Outcome = OutcomeQuit
			return q.finish(res), nil
		case actionHelp:
			q.help(question)
		default:
			q.warn(fmt.Sprintf("unrecognized input %q, type ? for help", strings.TrimSpace(line)))
		}
	}

	res.Outcome = OutcomeCompleted
	return q.finish(res), nil
}

// move seeks the tracker and returns the new cursor. Save failures are
// counted and reported but never stop the run.
func (q *Questionnaire) move(cursor int, res *Result) int {
	if err := q.tracker.Seek(cursor); err != nil {
		res.SaveFailures++
		q.warn("progress not saved: " + err.Error())
	}
	return q.tracker.Session().Cursor
}

func (q *Questionnaire) finish(res Result) Result {
	p := q.tracker.Progress()
	res.Answered = p.Answered
	fmt.Fprintln(q.out)
	fmt.Fprintln(q.out, ui.FormatProgress(p.Answered, p.Total))
	q.logger.Debug("questionnaire ended", "outcome", res.Outcome, "answered", res.Answered, "save_failures", res.SaveFailures)
	return res
}

func (q *Questionnaire) show(cursor int, question questionbank.Question, current assessment.Answer, hasCurrent bool) {
	w := q.out
	fmt.Fprintln(w)
	header := fmt.Sprintf("Question %d of %d", cursor+1, len(q.questions))
	fmt.Fprintf(w, "  %s %s", ui.StatLabelStyle.Render(header), ui.CategoryStyle.Render(question.Category))
	if question.Critical {
		fmt.Fprintf(w, " %s", ui.CriticalStyle.Render("CRITICAL"))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", ui.PromptStyle.Render(ui.SanitizeString(question.Prompt)))
	if question.Tip != "" {
		fmt.Fprintf(w, "  %s\n", ui.HelpStyle.Render("Tip: "+ui.SanitizeString(question.Tip)))
	}
	if hasCurrent {
		fmt.Fprintf(w, "  %s %s\n", ui.StatLabelStyle.Render("Current answer:"), ui.OptionStyle(current.Option).Render(current.Option))
	}

	choices := make([]string, 0, len(question.Options))
	for i, o := range question.Options {
		choices = append(choices, fmt.Sprintf("[%s] %s", shortcut(o.Label, i), ui.OptionStyle(o.Label).Render(o.Label)))
	}
	fmt.Fprintf(w, "  %s  %s\n", strings.Join(choices, "  "), ui.StatLabelStyle.Render("[b]ack [s]kip [q]uit [?]"))
	fmt.Fprint(w, "  > ")
}

func (q *Questionnaire) help(question questionbank.Question) {
	w := q.out
	fmt.Fprintln(w)
	for i, o := range question.Options {
		fmt.Fprintf(w, "  %-4s or %d  answer %s\n", shortcut(o.Label, i), i+1, o.Label)
	}
	fmt.Fprintln(w, "  enter      keep the current answer and continue")
	fmt.Fprintln(w, "  b          go back one question")
	fmt.Fprintln(w, "  s          skip this question for now")
	fmt.Fprintln(w, "  q          save progress and quit")
	if question.Control != "" {
		fmt.Fprintf(w, "  %s %s\n", ui.StatLabelStyle.Render("Control:"), ui.SanitizeString(question.Control))
	}
	if len(question.References) > 0 {
		fmt.Fprintf(w, "  %s %s\n", ui.StatLabelStyle.Render("References:"), strings.Join(question.References, "; "))
	}
}

func (q *Questionnaire) warn(msg string) {
	fmt.Fprintln(q.out, ui.WarnStyle.Render("  [!] "+msg))
}

// parseInput maps a line to an action. Commands win over option labels;
// options match by shortcut, 1-based number, or full label.
func parseInput(line string, question questionbank.Question, hasCurrent bool) (action, string) {
	in := strings.ToLower(strings.TrimSpace(line))
	switch in {
	case "":
		if hasCurrent {
			return actionKeep, ""
		}
		return actionInvalid, ""
	case "b", "back":
		return actionBack, ""
	case "s", "skip":
		return actionSkip, ""
	case "q", "quit", "exit":
		return actionQuit, ""
	case "?", "h", "help":
		return actionHelp, ""
	}

	for i, o := range question.Options {
		if in == shortcut(o.Label, i) || in == strings.ToLower(o.Label) {
			return actionAnswer, o.Label
		}
	}
	if n, err := strconv.Atoi(in); err == nil && n >= 1 && n <= len(question.Options) {
		return actionAnswer, question.Options[n-1].Label
	}
	// Let the tracker reject labels the question does not offer, such as
	// N/A when it is disabled.
	switch in {
	case "y", "yes":
		return actionAnswer, questionbank.LabelYes
	case "n", "no":
		return actionAnswer, questionbank.LabelNo
	case "na", "n/a":
		return actionAnswer, questionbank.LabelNA
	}
	return actionInvalid, ""
}

// shortcut is the key shown for option i.
func shortcut(label string, i int) string {
	switch strings.ToLower(label) {
	case "yes":
		return "y"
	case "no":
		return "n"
	case "n/a":
		return "na"
	}
	return strconv.Itoa(i + 1)
}

// readLines feeds in line by line until it ends or stop is closed.
func readLines(in io.Reader) (<-chan string, chan struct{}) {
	lines := make(chan string)
	stop := make(chan struct{})
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-stop:
				return
			}
		}
	}()
	return lines, stop
}
