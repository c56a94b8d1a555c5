package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/cyberph/posture/pkg/ui"
)

// =============================================================================
// SCORE - current result of an assessment
// =============================================================================

func runScore(_ context.Context, s sys, args []string) error {
	var cf CommonFlags
	fs := newFlagSet("score", s, &cf)
	id := fs.String("session", "", "Session id or unique prefix")
	asJSON := fs.Bool("json", false, "Print the result as JSON on stdout")
	recs := fs.Bool("recommendations", false, "List recommendations for non-compliant answers")
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
	res := a.score(session)

	if *asJSON {
		out := struct {
			Session         string `json:"session"`
			Organization    string `json:"organization"`
			AssessmentDate  string `json:"assessment_date"`
			Result          any    `json:"result"`
			Recommendations any    `json:"recommendations,omitempty"`
		}{
			Session:        session.ID,
			Organization:   session.Organization,
			AssessmentDate: session.AssessmentDate,
			Result:         res,
		}
		if *recs {
			out.Recommendations = a.catalog.RecommendationsFor(a.bank.ListQuestions(), session.Answers)
		}
		return printJSON(s, out)
	}

	ui.PrintScoreCard(scoreCard(session.Organization, res))
	if res.Incomplete {
		ui.PrintWarning(fmt.Sprintf("%d questions unanswered: %s", len(res.Unanswered), strings.Join(res.Unanswered, ", ")))
	}
	if !*recs {
		return nil
	}

	list := a.catalog.RecommendationsFor(a.bank.ListQuestions(), session.Answers)
	if len(list) == 0 {
		ui.PrintSuccess("No recommendations: every applicable answer is compliant")
		return nil
	}
	ui.PrintSection("RECOMMENDATIONS")
	w := tabwriter.NewWriter(s.stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "PRIORITY\tQUESTION\tTIMELINE\tACTION")
	for _, r := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Priority, r.QuestionID, r.Timeline, r.Action)
	}
	return w.Flush()
}

// =============================================================================
// QUESTIONS - print the bank
// =============================================================================

func runQuestions(_ context.Context, s sys, args []string) error {
	var cf CommonFlags
	fs := newFlagSet("questions", s, &cf)
	asJSON := fs.Bool("json", false, "Print the bank as JSON")
	category := fs.String("category", "", "Only questions of this category")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	a, err := newApp(s, cf)
	if err != nil {
		return err
	}
	defer a.close()

	questions := a.bank.ListQuestions()
	if *category != "" {
		filtered := questions[:0:0]
		for _, q := range questions {
			if strings.EqualFold(q.Category, *category) {
				filtered = append(filtered, q)
			}
		}
		if len(filtered) == 0 {
			var names []string
			for _, c := range a.bank.Categories() {
				names = append(names, c.Name)
			}
			return usageErrorf("no category %q (have %s)", *category, strings.Join(names, ", "))
		}
		questions = filtered
	}

	if *asJSON {
		return printJSON(s, questions)
	}

	w := tabwriter.NewWriter(s.stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "#\tID\tCATEGORY\tWEIGHT\tOPTIONS\tPROMPT")
	for _, q := range questions {
		weight := fmt.Sprintf("%g", q.Weight)
		if q.Critical {
			weight += "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			a.bank.Position(q.ID)+1, q.ID, q.Category, weight, strings.Join(q.Labels(), "/"), q.Prompt)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	ui.PrintHelp("* critical question, weight is multiplied when answered non-compliant")
	return nil
}
