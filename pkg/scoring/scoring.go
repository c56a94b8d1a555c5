// Package scoring derives a risk category, a compliance percentage and
// per-category subtotals from an ordered question bank and a set of answers.
//
// Compute is a pure function: it reads no clock, no environment and no files,
// and sums in bank order so equal inputs always give equal results.
package scoring

import (
	"sort"

	"github.com/cyberph/posture/pkg/assessment"
	"github.com/cyberph/posture/pkg/questionbank"
)

// Verdict is the compliance-percentage outcome.
type Verdict string

const (
	VerdictPass       Verdict = "PASS"
	VerdictImprove    Verdict = "NEEDS IMPROVEMENT"
	VerdictFail       Verdict = "FAIL"
	VerdictIncomplete Verdict = "INCOMPLETE"
	// VerdictNotApplicable marks a category whose every answer was N/A.
	VerdictNotApplicable Verdict = "N/A"
)

// Short returns the compact label used in tables.
func (v Verdict) Short() string {
	if v == VerdictImprove {
		return "IMPROVE"
	}
	return string(v)
}

// CategoryScore is the subtotal for one question domain.
type CategoryScore struct {
	Category      string  `json:"category"`
	Score         float64 `json:"score"`
	MaxScore      float64 `json:"max_score"`
	CompliancePct float64 `json:"compliance_pct"`
	Answered      int     `json:"answered"`
	NotApplicable int     `json:"not_applicable"`
	Total         int     `json:"total"`
	// Applicable is false when nothing in the category carried weight.
	Applicable bool    `json:"applicable"`
	Status     Verdict `json:"status"`
}

// Result is the derived score of a session. It is never persisted as the
// source of truth; recompute it from the answers.
type Result struct {
	TotalScore       float64         `json:"total_score"`
	MaxScore         float64         `json:"max_score"`
	RiskCategory     string          `json:"risk_category"`
	Verdict          Verdict         `json:"verdict"`
	CompliancePct    float64         `json:"compliance_pct"`
	CriticalFailures int             `json:"critical_failures"`
	Answered         int             `json:"answered"`
	NotApplicable    int             `json:"not_applicable"`
	TotalQuestions   int             `json:"total_questions"`
	Incomplete       bool            `json:"incomplete"`
	Unanswered       []string        `json:"unanswered,omitempty"`
	Categories       []CategoryScore `json:"categories"`
}

// Compute scores answers against questions.
//
// Answers that reference unknown questions or options are ignored; the
// session layer rejects them before they get here. A session with no answers
// scores 0 with the "incomplete" category and is not an error.
func Compute(questions []questionbank.Question, answers []assessment.Answer, th Thresholds) Result {
	selected := make(map[string]string, len(answers))
	for _, a := range answers {
		selected[a.QuestionID] = a.Option
	}

	res := Result{TotalQuestions: len(questions)}
	catIndex := make(map[string]int)
	var tallies []tally
	var total tally

	for _, q := range questions {
		ci, ok := catIndex[q.Category]
		if !ok {
			ci = len(res.Categories)
			catIndex[q.Category] = ci
			res.Categories = append(res.Categories, CategoryScore{Category: q.Category})
			tallies = append(tallies, tally{})
		}
		cat := &res.Categories[ci]
		cat.Total++

		worst := q.MaxWeight()
		res.MaxScore += worst
		cat.MaxScore += worst

		label, answered := selected[q.ID]
		var opt questionbank.Option
		if answered {
			opt, answered = q.Option(label)
		}
		if !answered {
			res.Unanswered = append(res.Unanswered, q.ID)
			continue
		}

		res.Answered++
		cat.Answered++
		res.TotalScore += opt.Weight
		cat.Score += opt.Weight

		if opt.Kind == questionbank.NotApplicable {
			res.NotApplicable++
			cat.NotApplicable++
			continue
		}
		if opt.Kind == questionbank.NonCompliant && q.Critical {
			res.CriticalFailures++
		}
		tallies[ci].add(worst, opt.Weight)
		total.add(worst, opt.Weight)
	}

	for i := range res.Categories {
		cat := &res.Categories[i]
		cat.Applicable = tallies[i].applicable > 0
		cat.CompliancePct = tallies[i].percent()
		switch {
		case cat.Answered == 0:
			cat.Status = VerdictIncomplete
		case !cat.Applicable:
			cat.Status = VerdictNotApplicable
		default:
			cat.Status = th.Verdict(cat.CompliancePct)
		}
	}

	res.Incomplete = len(res.Unanswered) > 0
	res.CompliancePct = total.percent()

	if res.Answered == 0 {
		res.RiskCategory = RiskIncomplete
		res.Verdict = VerdictIncomplete
		res.CompliancePct = 0
		return res
	}
	res.RiskCategory = th.Category(res.TotalScore, res.CriticalFailures)
	res.Verdict = th.Verdict(res.CompliancePct)
	return res
}

// tally accumulates compliance weight over answered, applicable questions.
type tally struct {
	applicable float64
	earned     float64
}

func (t *tally) add(worst, selected float64) {
	t.applicable += worst
	t.earned += worst - selected
}

// percent returns 100*earned/applicable, or 0 when nothing was applicable.
// Answering N/A everywhere must not read as compliant.
func (t tally) percent() float64 {
	if t.applicable <= 0 {
		return 0
	}
	p := 100 * t.earned / t.applicable
	if p < 0 {
		return 0
	}
	return p
}

// Weakest returns up to n applicable categories with the lowest compliance,
// ties broken by bank order.
func (r Result) Weakest(n int) []CategoryScore {
	pool := make([]CategoryScore, 0, len(r.Categories))
	for _, c := range r.Categories {
		if c.Answered > 0 && c.Applicable {
			pool = append(pool, c)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].CompliancePct < pool[j].CompliancePct
	})
	if n >= 0 && len(pool) > n {
		pool = pool[:n]
	}
	return pool
}
