// Command posture runs a Data Privacy Act (R.A. 10173) compliance
// self-assessment: it asks the question bank, saves progress between runs,
// scores the answers and renders PDF reports.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cyberph/posture/pkg/cli"
	"github.com/cyberph/posture/pkg/duration"
	"github.com/cyberph/posture/pkg/ui"
)

// sys holds the process streams and environment so commands can be run
// in tests without touching the real ones.
type sys struct {
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	environ []string // nil = os.Environ()

	// interactive reports whether stdin can be prompted.
	interactive bool
}

type command struct {
	name    string
	aliases []string
	summary string
	run     func(ctx context.Context, s sys, args []string) error
}

// commands is populated in init to break the help -> commands cycle.
var commands []command

func init() {
	commands = []command{
		{"start", nil, "Start a new assessment", runStart},
		{"ask", []string{"resume", "continue"}, "Answer questions interactively, resuming at the saved position", runAsk},
		{"answer", nil, "Record answers non-interactively (QID OPTION or QID=OPTION pairs)", runAnswer},
		{"status", nil, "Show progress of an assessment", runStatus},
		{"score", nil, "Score an assessment (-json for machine output)", runScore},
		{"report", nil, "Render the PDF report, optional checklist, Markdown summary and badge", runReport},
		{"discard", nil, "Delete an assessment in progress", runDiscard},
		{"list", []string{"ls"}, "List assessments in progress", runList},
		{"history", nil, "List finalized assessments and compare two of them", runHistory},
		{"questions", nil, "Print the question bank", runQuestions},
		{"version", []string{"-v", "--version"}, "Print version information", runVersion},
		{"help", []string{"-h", "--help"}, "Show this help", runHelp},
	}
}

func main() {
	ctx, cancel := cli.SignalContext(duration.ShutdownGrace)
	defer cancel()

	s := sys{
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		interactive: ui.StdinIsTerminal(),
	}
	if err := run(ctx, s, os.Args[1:]); err != nil {
		exitWithError(err)
	}
}

// run dispatches args[0] to its subcommand.
func run(ctx context.Context, s sys, args []string) error {
	ui.SetOutput(s.stderr)
	if len(args) == 0 {
		printUsage(s.stderr)
		return usageErrorf("no command given")
	}
	name := args[0]
	for _, c := range commands {
		if c.name == name || contains(c.aliases, name) {
			return c.run(ctx, s, args[1:])
		}
	}
	printUsage(s.stderr)
	return usageErrorf("unknown command %q", name)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func printUsage(w io.Writer) {
	ui.PrintBanner()
	fmt.Fprintln(w, ui.SectionStyle.Render("USAGE"))
	fmt.Fprintln(w, "  posture <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.SectionStyle.Render("COMMANDS"))
	for _, c := range commands {
		fmt.Fprintf(w, "  %s %s\n", ui.ConfigValueStyle.Render(fmt.Sprintf("%-10s", c.name)), c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.SectionStyle.Render("COMMON FLAGS"))
	fmt.Fprintln(w, "  -config FILE      YAML configuration (default posture.yaml when present)")
	fmt.Fprintln(w, "  -store DIR        State directory for progress and history (default .posture)")
	fmt.Fprintln(w, "  -verbose          Debug logging")
	fmt.Fprintln(w, "  -no-color         Disable colored output")
	fmt.Fprintln(w, "  -log-format FMT   Log format: text or json")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", ui.SubtitleStyle.Render("Quick start:"))
	fmt.Fprintln(w, `    posture start -org "Acme Corp" -assessor "J. Cruz"`)
	fmt.Fprintln(w, "    posture ask")
	fmt.Fprintln(w, "    posture report -checklist")
	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.HelpStyle.Render("  Guidance only, not legal advice. Consult the National Privacy Commission for official requirements."))
	fmt.Fprintln(w, ui.HelpStyle.Render("  "+ui.Website))
}

func runHelp(_ context.Context, s sys, _ []string) error {
	printUsage(s.stdout)
	return nil
}

func runVersion(_ context.Context, s sys, _ []string) error {
	fmt.Fprintf(s.stdout, "posture %s (commit %s, built %s)\n", ui.Version, ui.Commit, ui.BuildDate)
	return nil
}
