package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyberph/posture/pkg/assessment"
	"github.com/cyberph/posture/pkg/checkpoint"
	"github.com/cyberph/posture/pkg/config"
	"github.com/cyberph/posture/pkg/history"
	"github.com/cyberph/posture/pkg/metrics"
	"github.com/cyberph/posture/pkg/questionbank"
	"github.com/cyberph/posture/pkg/remediation"
	"github.com/cyberph/posture/pkg/retry"
	"github.com/cyberph/posture/pkg/scoring"
	"github.com/cyberph/posture/pkg/ui"
)

// CommonFlags holds flags shared by every command.
// Use Register to bind these flags to a flag.FlagSet.
type CommonFlags struct {
	ConfigFile string
	Store      string
	Verbose    bool
	NoColor    bool
	LogFormat  string
}

// Register binds common flags to the given FlagSet.
func (cf *CommonFlags) Register(fs *flag.FlagSet) {
	fs.StringVar(&cf.ConfigFile, "config", "", "YAML configuration file")
	fs.StringVar(&cf.Store, "store", "", "State directory for progress and history")
	fs.BoolVar(&cf.Verbose, "verbose", false, "Debug logging")
	fs.BoolVar(&cf.Verbose, "v", false, "Debug logging (alias)")
	fs.BoolVar(&cf.NoColor, "no-color", false, "Disable colored output")
	fs.StringVar(&cf.LogFormat, "log-format", "", "Log format: text or json")
}

// newFlagSet creates a flag set that reports errors instead of exiting.
func newFlagSet(name string, s sys, cf *CommonFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(s.stderr)
	cf.Register(fs)
	return fs
}

// parseFlags parses args, wrapping failures as usage errors.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// app is the wired dependency set of one command invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	bank     *questionbank.Bank
	catalog  *remediation.Catalog
	progress *checkpoint.Store
	metrics  *metrics.Recorder
	sys      sys

	history *history.Store // opened lazily
}

// newApp resolves configuration, applies flag overrides and loads content.
func newApp(s sys, cf CommonFlags) (*app, error) {
	cfg, err := config.Load(config.Sources{File: cf.ConfigFile, Environ: s.environ})
	if err != nil {
		return nil, err
	}
	if cf.Store != "" {
		cfg.DataDir = cf.Store
	}
	if cf.Verbose {
		cfg.LogLevel = "debug"
	}
	if cf.NoColor {
		cfg.NoColor = true
	}
	if cf.LogFormat != "" {
		cfg.LogFormat = cf.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ui.SetNoColor(cfg.NoColor)
	logger := newLogger(s.stderr, cfg)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger, sys: s}

	opts := cfg.BankOptions()
	if cfg.QuestionsFile != "" {
		a.bank, err = questionbank.Load(cfg.QuestionsFile, opts)
	} else {
		a.bank, err = questionbank.Default(opts)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RemediationsFile != "" {
		a.catalog, err = remediation.Load(cfg.RemediationsFile)
	} else {
		a.catalog, err = remediation.Default()
	}
	if err != nil {
		return nil, err
	}
	if err := a.catalog.Validate(a.bank.ListQuestions()); err != nil {
		return nil, err
	}

	if cfg.MetricsFile != "" {
		if a.metrics, err = metrics.New(); err != nil {
			return nil, err
		}
	}

	a.progress = checkpoint.NewStore(cfg.ProgressDir(), logger)
	logger.Debug("posture ready",
		"questions", a.bank.Len(),
		"remediations", a.catalog.Len(),
		"data_dir", cfg.DataDir,
		"metrics", cfg.MetricsFile != "")
	return a, nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// close flushes metrics. Failures are warnings: the command itself is done.
func (a *app) close() {
	if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
		a.logger.Warn("metrics not written", "path", a.cfg.MetricsFile, "error", err)
	}
}

// historyStore opens the history store on first use.
func (a *app) historyStore() (*history.Store, error) {
	if a.history != nil {
		return a.history, nil
	}
	h, err := history.NewStore(a.cfg.HistoryDir())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", checkpoint.ErrStorageUnavailable, err)
	}
	a.history = h
	return h, nil
}

// openSession loads the session named by idOrPrefix. Empty picks the only
// active session, or fails when there are none or several.
func (a *app) openSession(idOrPrefix string) (*assessment.Session, error) {
	if strings.TrimSpace(idOrPrefix) == "" {
		list, err := a.progress.List()
		if err != nil {
			return nil, err
		}
		var active []checkpoint.Summary
		for _, sum := range list {
			if sum.Status == assessment.StatusActive {
				active = append(active, sum)
			}
		}
		switch len(active) {
		case 0:
			return nil, fmt.Errorf("%w: no assessment in progress, run 'posture start'", checkpoint.ErrNotFound)
		case 1:
			idOrPrefix = active[0].ID
		default:
			return nil, usageErrorf("%d assessments in progress, pass -session (see 'posture list')", len(active))
		}
	}

	id, err := a.progress.Resolve(idOrPrefix)
	if err != nil {
		return nil, err
	}
	s, err := a.progress.Load(id)
	if err != nil {
		return nil, err
	}
	if dropped := s.Prune(a.bank); len(dropped) > 0 {
		a.logger.Warn("dropped answers for questions not in the bank", "session", s.ID, "questions", dropped)
	}
	return s, nil
}

// tracker wraps s with saving and metrics.
func (a *app) tracker(s *assessment.Session) *assessment.Tracker {
	opts := []assessment.TrackerOption{assessment.WithLogger(a.logger)}
	if a.metrics != nil {
		opts = append(opts, assessment.WithObserver(a.metrics))
	}
	return assessment.NewTracker(s, a.bank, a.bank.Len(), a.progress, opts...)
}

// score computes the current result of s.
func (a *app) score(s *assessment.Session) scoring.Result {
	res := scoring.Compute(a.bank.ListQuestions(), s.Answers, a.cfg.Thresholds())
	a.metrics.ObserveScore(s.Organization, res)
	return res
}

// writeFileAtomic writes data to path via a temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	rename := func() error { return os.Rename(tmpName, path) }
	if err := retry.Do(context.Background(), retry.FileConfig(), rename); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// scoreCard adapts a result to the terminal view.
func scoreCard(org string, res scoring.Result) ui.ScoreCard {
	card := ui.ScoreCard{
		Organization:     org,
		Verdict:          string(res.Verdict),
		RiskCategory:     res.RiskCategory,
		CompliancePct:    res.CompliancePct,
		TotalScore:       res.TotalScore,
		MaxScore:         res.MaxScore,
		CriticalFailures: res.CriticalFailures,
		Answered:         res.Answered,
		Total:            res.TotalQuestions,
		Incomplete:       res.Incomplete,
	}
	for _, c := range res.Categories {
		card.Categories = append(card.Categories, ui.ScoreRow{
			Category:      c.Category,
			CompliancePct: c.CompliancePct,
			Answered:      c.Answered,
			Total:         c.Total,
			Applicable:    c.Applicable,
			Status:        string(c.Status),
		})
	}
	return card
}

// orgColumnWidth bounds organization names in listings.
const orgColumnWidth = 32

// shortID is the display form of a session or record id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
