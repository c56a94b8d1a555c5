// Package config resolves posture settings.
//
// Values are layered, later sources winning: built-in defaults, the YAML
// file, a .env file, POSTURE_* environment variables, then command flags
// (applied by the caller on the returned Config).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cyberph/posture/pkg/defaults"
	"github.com/cyberph/posture/pkg/questionbank"
	"github.com/cyberph/posture/pkg/scoring"
)

// Config holds all posture settings.
type Config struct {
	// Storage settings
	DataDir   string `yaml:"data_dir" env:"DATA_DIR"`     // Root of progress and history state
	ReportDir string `yaml:"report_dir" env:"REPORT_DIR"` // Where generated documents are written

	// Content overrides
	QuestionsFile    string `yaml:"questions_file" env:"QUESTIONS_FILE"`       // Replaces the embedded question bank
	RemediationsFile string `yaml:"remediations_file" env:"REMEDIATIONS_FILE"` // Replaces the embedded catalog

	Scoring Scoring `yaml:"scoring" envPrefix:"SCORING_"`
	Report  Report  `yaml:"report" envPrefix:"REPORT_"`

	// Output settings
	MetricsFile string `yaml:"metrics_file" env:"METRICS_FILE"` // Prometheus textfile (.prom), empty = off
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`       // debug, info, warn, error
	LogFormat   string `yaml:"log_format" env:"LOG_FORMAT"`     // text, json
	NoColor     bool   `yaml:"no_color" env:"NO_COLOR"`
}

// Scoring holds the scoring parameters.
type Scoring struct {
	PassThreshold      float64        `yaml:"pass_threshold" env:"PASS_THRESHOLD"`
	ImproveThreshold   float64        `yaml:"improve_threshold" env:"IMPROVE_THRESHOLD"`
	CriticalMultiplier float64        `yaml:"critical_multiplier" env:"CRITICAL_MULTIPLIER"`
	AllowNA            bool           `yaml:"allow_na" env:"ALLOW_NA"`
	Bands              []scoring.Band `yaml:"bands"` // Empty = stock low/medium/high
}

// Report holds document options.
type Report struct {
	Title            string `yaml:"title" env:"TITLE"`
	PageSize         string `yaml:"page_size" env:"PAGE_SIZE"` // A4 or Letter
	Compress         bool   `yaml:"compress" env:"COMPRESS"`
	FooterText       string `yaml:"footer_text" env:"FOOTER_TEXT"`
	LayoutFile       string `yaml:"layout_file" env:"LAYOUT_FILE"`             // Branding and section visibility
	MarkdownTemplate string `yaml:"markdown_template" env:"MARKDOWN_TEMPLATE"` // Replaces the built-in summary
	Logo             string `yaml:"logo" env:"LOGO"`                           // Cover, page header and badge image
}

// Sources selects where Load reads from.
type Sources struct {
	// File is the YAML config path. Empty probes defaults.ConfigFile and
	// skips it when absent; a named file must exist.
	File string

	// DotEnv is the .env path. Empty probes defaults.EnvFile.
	DotEnv string

	// Environ replaces os.Environ, as KEY=VALUE pairs.
	Environ []string

	Logger *slog.Logger
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:   defaults.DataDir,
		ReportDir: defaults.ReportDir,
		Scoring: Scoring{
			PassThreshold:      defaults.PassThreshold,
			ImproveThreshold:   defaults.ImproveThreshold,
			CriticalMultiplier: defaults.CriticalMultiplier,
			AllowNA:            defaults.AllowNA,
		},
		Report: Report{
			Title:    defaults.ReportTitle,
			PageSize: defaults.PageSize,
			Compress: true,
		},
		LogLevel:  "warn",
		LogFormat: "text",
	}
}

// Load layers every source over the defaults and validates the result.
func Load(src Sources) (*Config, error) {
	logger := src.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := Default()

	path, explicit := src.File, src.File != ""
	if !explicit {
		path = defaults.ConfigFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
		logger.Debug("loaded config file", "path", path)
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	environ := envMap(src.Environ)
	dotenv := src.DotEnv
	if dotenv == "" {
		dotenv = defaults.EnvFile
	}
	if vars, err := godotenv.Read(dotenv); err == nil {
		// real environment variables win over the file
		for k, v := range vars {
			if _, set := environ[k]; !set {
				environ[k] = v
			}
		}
		logger.Debug("loaded env file", "path", dotenv, "vars", len(vars))
	} else if src.DotEnv != "" || !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, dotenv, err)
	}

	if err := env.Parse(cfg, env.Options{Environment: environ, Prefix: defaults.EnvPrefix}); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envMap(environ []string) map[string]string {
	if environ == nil {
		environ = os.Environ()
	}
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("%w: data_dir", ErrMissingRequired)
	}

	var errs []string
	if err := c.Thresholds().Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Scoring.CriticalMultiplier <= 0 {
		errs = append(errs, fmt.Sprintf("critical_multiplier %g must be positive", c.Scoring.CriticalMultiplier))
	}
	switch strings.ToLower(c.Report.PageSize) {
	case "a4", "letter":
	default:
		errs = append(errs, fmt.Sprintf("invalid page_size %q: must be A4 or Letter", c.Report.PageSize))
	}
	if _, ok := logLevels[strings.ToLower(c.LogLevel)]; !ok {
		errs = append(errs, fmt.Sprintf("invalid log_level %q: must be debug, info, warn, or error", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid log_format %q: must be text or json", c.LogFormat))
	}
	if c.MetricsFile != "" && filepath.Ext(c.MetricsFile) != ".prom" {
		errs = append(errs, fmt.Sprintf("metrics_file %q must end in .prom", c.MetricsFile))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel returns the configured log level, warn when unknown.
func (c *Config) SlogLevel() slog.Level {
	if l, ok := logLevels[strings.ToLower(c.LogLevel)]; ok {
		return l
	}
	return slog.LevelWarn
}

// Thresholds returns the scoring thresholds, with the stock bands when
// none are configured.
func (c *Config) Thresholds() scoring.Thresholds {
	th := scoring.DefaultThresholds()
	th.PassThreshold = c.Scoring.PassThreshold
	th.ImproveThreshold = c.Scoring.ImproveThreshold
	if len(c.Scoring.Bands) > 0 {
		th.Bands = append([]scoring.Band(nil), c.Scoring.Bands...)
	}
	return th
}

// BankOptions returns the question bank options.
func (c *Config) BankOptions() questionbank.Options {
	return questionbank.Options{
		CriticalMultiplier: c.Scoring.CriticalMultiplier,
		AllowNA:            c.Scoring.AllowNA,
	}
}

// ProgressDir is where progress files live.
func (c *Config) ProgressDir() string { return filepath.Join(c.DataDir, "progress") }

// HistoryDir is where the assessment history lives.
func (c *Config) HistoryDir() string { return filepath.Join(c.DataDir, "history") }
