package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberph/posture/pkg/defaults"
)

// isolated returns sources that read nothing from the working directory or
// the process environment.
func isolated(t *testing.T, environ ...string) Sources {
	t.Helper()
	dir := t.TempDir()
	return Sources{
		File:    writeFile(t, dir, "posture.yaml", ""),
		DotEnv:  writeFile(t, dir, ".env", ""),
		Environ: append([]string{}, environ...),
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestConfigDefaults verifies default values are set correctly
func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(isolated(t))
	require.NoError(t, err)

	assert.Equal(t, defaults.DataDir, cfg.DataDir)
	assert.Equal(t, defaults.ReportDir, cfg.ReportDir)
	assert.Equal(t, 85.0, cfg.Scoring.PassThreshold)
	assert.Equal(t, 60.0, cfg.Scoring.ImproveThreshold)
	assert.Equal(t, 1.3, cfg.Scoring.CriticalMultiplier)
	assert.True(t, cfg.Scoring.AllowNA)
	assert.Equal(t, "A4", cfg.Report.PageSize)
	assert.True(t, cfg.Report.Compress)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	assert.Equal(t, filepath.Join(".posture", "progress"), cfg.ProgressDir())
	assert.Equal(t, filepath.Join(".posture", "history"), cfg.HistoryDir())
	assert.Len(t, cfg.Thresholds().Bands, 3)
}

func TestLoad_Precedence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := Sources{
		File: writeFile(t, dir, "posture.yaml", `
data_dir: /var/lib/posture
scoring:
  pass_threshold: 90
  improve_threshold: 70
  allow_na: false
report:
  title: Annual Review
  page_size: Letter
log_level: info
`),
		DotEnv: writeFile(t, dir, ".env", "POSTURE_SCORING_IMPROVE_THRESHOLD=65\nPOSTURE_REPORT_TITLE=From Dotenv\n"),
		Environ: []string{
			"POSTURE_REPORT_TITLE=From Env",
			"POSTURE_METRICS_FILE=/tmp/posture.prom",
			"UNRELATED=1",
		},
	}

	cfg, err := Load(src)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/posture", cfg.DataDir, "yaml over default")
	assert.Equal(t, 90.0, cfg.Scoring.PassThreshold, "yaml over default")
	assert.Equal(t, 65.0, cfg.Scoring.ImproveThreshold, ".env over yaml")
	assert.Equal(t, "From Env", cfg.Report.Title, "environment over .env")
	assert.Equal(t, "/tmp/posture.prom", cfg.MetricsFile)
	assert.False(t, cfg.Scoring.AllowNA)
	assert.Equal(t, "Letter", cfg.Report.PageSize)
	assert.Equal(t, 1.3, cfg.Scoring.CriticalMultiplier, "untouched default")
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())

	th := cfg.Thresholds()
	assert.Equal(t, 90.0, th.PassThreshold)
	assert.Equal(t, 65.0, th.ImproveThreshold)

	opts := cfg.BankOptions()
	assert.False(t, opts.AllowNA)
	assert.Equal(t, 1.3, opts.CriticalMultiplier)
}

func TestLoad_CustomBands(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := isolated(t)
	src.File = writeFile(t, dir, "bands.yaml", `
scoring:
  bands:
    - {name: low, below: 2, max_critical_failures: 0}
    - {name: elevated, below: 5, max_critical_failures: 1}
    - {name: severe}
`)
	cfg, err := Load(src)
	require.NoError(t, err)

	th := cfg.Thresholds()
	require.Len(t, th.Bands, 3)
	assert.Equal(t, "elevated", th.Category(3, 1))
	assert.Equal(t, "severe", th.Category(3, 2))
}

func TestLoad_BandWithoutCriticalLimit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := isolated(t)
	src.File = writeFile(t, dir, "bands.yaml", `
scoring:
  bands:
    - {name: low, below: 3, max_critical_failures: 0}
    - {name: moderate, below: 8}
    - {name: high}
`)
	cfg, err := Load(src)
	require.NoError(t, err)

	th := cfg.Thresholds()
	assert.Equal(t, -1, th.Bands[1].MaxCriticalFailures)
	assert.Equal(t, "moderate", th.Category(5, 4), "a band without max_critical_failures takes any number")
	assert.Equal(t, "high", th.Category(9, 0))
}

func TestLoad_MissingSources(t *testing.T) {
	t.Parallel()

	src := isolated(t)
	src.File = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := Load(src)
	assert.ErrorIs(t, err, ErrInvalidConfig, "named config file must exist")

	src = isolated(t)
	src.DotEnv = filepath.Join(t.TempDir(), "missing.env")
	_, err = Load(src)
	assert.ErrorIs(t, err, ErrInvalidConfig, "named .env file must exist")
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		yaml    string
		environ []string
	}{
		"bad yaml":        {yaml: "scoring: ["},
		"bad env float":   {environ: []string{"POSTURE_SCORING_PASS_THRESHOLD=high"}},
		"bad env bool":    {environ: []string{"POSTURE_SCORING_ALLOW_NA=maybe"}},
		"improve > pass":  {yaml: "scoring: {pass_threshold: 50, improve_threshold: 70}"},
		"pass > 100":      {environ: []string{"POSTURE_SCORING_PASS_THRESHOLD=120"}},
		"zero multiplier": {yaml: "scoring: {critical_multiplier: 0}"},
		"page size":       {environ: []string{"POSTURE_REPORT_PAGE_SIZE=A3"}},
		"log level":       {yaml: "log_level: loud"},
		"log format":      {yaml: "log_format: xml"},
		"metrics file":    {environ: []string{"POSTURE_METRICS_FILE=/tmp/metrics.txt"}},
		"unordered bands": {yaml: "scoring: {bands: [{name: a, below: 5}, {name: b, below: 2}, {name: c}]}"},
	}
	for name, tc := range tests {
		src := isolated(t, tc.environ...)
		src.File = writeFile(t, t.TempDir(), "posture.yaml", tc.yaml)
		_, err := Load(src)
		assert.ErrorIs(t, err, ErrInvalidConfig, name)
	}
}

func TestValidate_MissingDataDir(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.DataDir = " "
	assert.ErrorIs(t, cfg.Validate(), ErrMissingRequired)

	require.NoError(t, Default().Validate())
}
