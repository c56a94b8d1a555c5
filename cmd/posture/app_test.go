package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyberph/posture/pkg/ui"
)

func TestCommonFlagsRegister(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var cf CommonFlags
	cf.Register(fs)

	err := fs.Parse([]string{
		"-config", "posture.yaml",
		"-store", "/tmp/state",
		"-v",
		"-no-color",
		"-log-format", "json",
	})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cf.ConfigFile != "posture.yaml" {
		t.Errorf("ConfigFile = %q, want posture.yaml", cf.ConfigFile)
	}
	if cf.Store != "/tmp/state" {
		t.Errorf("Store = %q, want /tmp/state", cf.Store)
	}
	if !cf.Verbose {
		t.Error("Verbose = false, want true")
	}
	if !cf.NoColor {
		t.Error("NoColor = false, want true")
	}
	if cf.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cf.LogFormat)
	}
}

func TestCommonFlagsRegisterDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var cf CommonFlags
	cf.Register(fs)

	_ = fs.Parse([]string{})

	if cf != (CommonFlags{}) {
		t.Errorf("defaults = %+v, want zero value", cf)
	}
}

func TestNewAppOverrides(t *testing.T) {
	dir := t.TempDir()
	s := sys{stderr: os.Stderr, environ: []string{"POSTURE_LOG_FORMAT=json"}}

	a, err := newApp(s, CommonFlags{Store: dir, Verbose: true, LogFormat: "text", NoColor: true})
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.close()

	if a.cfg.DataDir != dir {
		t.Errorf("DataDir = %q, want %q", a.cfg.DataDir, dir)
	}
	if a.cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", a.cfg.LogLevel)
	}
	if a.cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, flag should beat environment", a.cfg.LogFormat)
	}
	if a.bank.Len() != 17 {
		t.Errorf("bank has %d questions, want 17", a.bank.Len())
	}
	if a.metrics != nil {
		t.Error("metrics enabled without metrics_file")
	}
	if !ui.IsNoColor() {
		t.Error("-no-color did not reach the ui package")
	}
}

func TestNewAppMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	prom := filepath.Join(dir, "posture.prom")
	s := sys{stderr: os.Stderr, environ: []string{"POSTURE_METRICS_FILE=" + prom}}

	a, err := newApp(s, CommonFlags{Store: dir})
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	if a.metrics == nil {
		t.Fatal("metrics not enabled")
	}
	a.metrics.ObserveAnswer("Yes")
	a.close()

	data, err := os.ReadFile(prom)
	if err != nil {
		t.Fatalf("textfile not written: %v", err)
	}
	if len(data) == 0 {
		t.Error("textfile is empty")
	}
}

func TestNewAppBadConfig(t *testing.T) {
	s := sys{stderr: os.Stderr, environ: []string{}}
	_, err := newApp(s, CommonFlags{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	if err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
	if exitCode(err) != 2 {
		t.Errorf("exit code = %d, want 2", exitCode(err))
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.pdf")
	if err := writeFileAtomic(path, []byte("%PDF-1.4")); err != nil {
		t.Fatalf("writeFileAtomic: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "%PDF-1.4" {
		t.Fatalf("read back %q, %v", got, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}

	if err := writeFileAtomic(filepath.Join(os.DevNull, "sub", "x.pdf"), nil); err == nil {
		t.Error("expected error for an unwritable directory")
	}
}
