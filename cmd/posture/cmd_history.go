package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cyberph/posture/pkg/duration"
	"github.com/cyberph/posture/pkg/history"
	"github.com/cyberph/posture/pkg/jsonutil"
	"github.com/cyberph/posture/pkg/strutil"
	"github.com/cyberph/posture/pkg/ui"
)

// =============================================================================
// HISTORY - finalized assessments
// =============================================================================

func runHistory(_ context.Context, s sys, args []string) error {
	var cf CommonFlags
	fs := newFlagSet("history", s, &cf)
	org := fs.String("org", "", "Only this organization")
	limit := fs.Int("limit", 20, "Maximum records to list (0 = all)")
	compare := fs.String("compare", "", "Compare two records: BASE,NEWER (ids or unique prefixes)")
	trend := fs.Bool("trend", false, "Show the compliance trend of -org")
	pruneDays := fs.Int("prune-days", 0, "Delete records assessed more than N days ago")
	asJSON := fs.Bool("json", false, "Print JSON on stdout")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *trend && *org == "" {
		return usageErrorf("-trend needs -org")
	}

	a, err := newApp(s, cf)
	if err != nil {
		return err
	}
	defer a.close()

	h, err := a.historyStore()
	if err != nil {
		return err
	}

	switch {
	case *pruneDays > 0:
		cutoff := time.Now().Add(-time.Duration(*pruneDays) * duration.Day)
		n, err := h.Prune(cutoff)
		if err != nil {
			return err
		}
		a.logger.Info("history pruned", "removed", n, "cutoff", cutoff.Format(time.DateOnly))
		ui.PrintSuccess(fmt.Sprintf("Removed %d records older than %d days", n, *pruneDays))
		return nil

	case *compare != "":
		base, newer, ok := strings.Cut(*compare, ",")
		if !ok {
			return usageErrorf("-compare wants BASE,NEWER")
		}
		baseID, err := resolveRecord(h, strings.TrimSpace(base))
		if err != nil {
			return err
		}
		newerID, err := resolveRecord(h, strings.TrimSpace(newer))
		if err != nil {
			return err
		}
		cmp, err := h.Compare(baseID, newerID)
		if err != nil {
			return err
		}
		if *asJSON {
			return printJSON(s, cmp)
		}
		printComparison(s, cmp)
		return nil

	case *trend:
		points, err := h.Trend(*org, *limit)
		if err != nil {
			return err
		}
		if *asJSON {
			return printJSON(s, points)
		}
		if len(points) == 0 {
			ui.PrintInfo("No finalized assessments for " + *org)
			return nil
		}
		w := tabwriter.NewWriter(s.stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ASSESSED\tCOMPLIANCE\tRISK\tSCORE")
		for _, p := range points {
			fmt.Fprintf(w, "%s\t%.1f%%\t%s\t%.1f\n",
				p.AssessedAt.Local().Format("2006-01-02"), p.CompliancePct, p.RiskCategory, p.TotalScore)
		}
		return w.Flush()
	}

	records, err := h.List(*org, *limit)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(s, records)
	}
	if len(records) == 0 {
		ui.PrintInfo("No finalized assessments yet. 'posture report' adds one")
		return nil
	}
	w := tabwriter.NewWriter(s.stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tORGANIZATION\tDATE\tCOMPLIANCE\tVERDICT\tRISK\tCRITICAL")
	for _, r := range records {
		ui.Fprintf(w, "%s\t%s\t%s\t%.1f%%\t%s\t%s\t%d\n",
			shortID(r.ID), strutil.Truncate(r.Organization, orgColumnWidth), r.AssessmentDate, r.CompliancePct, r.Verdict, r.RiskCategory, r.CriticalFailures)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if *org != "" && duration.Since(records[0].AssessedAt, time.Now(), duration.ReviewCycle) {
		ui.PrintWarning(fmt.Sprintf("Last assessment of %s is over a year old; a reassessment is due", records[0].Organization))
	}
	if stats, err := h.Stats(); err == nil && stats.TotalAssessments > len(records) {
		ui.PrintHelp(fmt.Sprintf("Showing %d of %d records; raise -limit for more", len(records), stats.TotalAssessments))
	}
	return nil
}

// resolveRecord expands a unique id prefix to a record id.
func resolveRecord(h *history.Store, prefix string) (string, error) {
	if prefix == "" {
		return "", usageErrorf("empty record id")
	}
	if r, err := h.Get(prefix); err == nil {
		return r.ID, nil
	}
	all, err := h.List("", 0)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, r := range all {
		if strings.HasPrefix(r.ID, prefix) {
			matches = append(matches, r.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", history.ErrNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return "", usageErrorf("record prefix %q is ambiguous (%d matches)", prefix, len(matches))
	}
}

func printComparison(s sys, cmp *history.ComparisonResult) {
	ui.PrintSection("COMPARISON")
	ui.PrintConfigLine("Base", fmt.Sprintf("%s (%s)", shortID(cmp.BaseID), cmp.BaseAssessedAt.Local().Format("2006-01-02")))
	ui.PrintConfigLine("Compared", fmt.Sprintf("%s (%s)", shortID(cmp.CompareID), cmp.CompareAssessedAt.Local().Format("2006-01-02")))
	ui.PrintConfigLine("Compliance", fmt.Sprintf("%+.1f pts", cmp.ComplianceDelta))
	ui.PrintConfigLine("Risk score", fmt.Sprintf("%+.1f", cmp.TotalScoreDelta))
	ui.PrintConfigLine("Critical failures", fmt.Sprintf("%+d", cmp.CriticalFailuresDelta))

	cats := make([]string, 0, len(cmp.CategoryDeltas))
	for c := range cmp.CategoryDeltas {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	w := tabwriter.NewWriter(s.stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tDELTA")
	for _, c := range cats {
		fmt.Fprintf(w, "%s\t%+.1f\n", c, cmp.CategoryDeltas[c])
	}
	w.Flush()

	switch {
	case cmp.Regressed:
		ui.PrintWarning("Posture regressed since the base assessment")
	case cmp.Improved:
		ui.PrintSuccess("Posture improved since the base assessment")
	default:
		ui.PrintInfo("No material change")
	}
}

func printJSON(s sys, v any) error {
	enc := jsonutil.NewStreamEncoder(s.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
