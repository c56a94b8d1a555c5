package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/cyberph/posture/pkg/assessment"
	"github.com/cyberph/posture/pkg/checkpoint"
	"github.com/cyberph/posture/pkg/config"
	"github.com/cyberph/posture/pkg/defaults"
	"github.com/cyberph/posture/pkg/history"
	"github.com/cyberph/posture/pkg/questionbank"
	"github.com/cyberph/posture/pkg/remediation"
	"github.com/cyberph/posture/pkg/report"
	"github.com/cyberph/posture/pkg/scoring"
	"github.com/cyberph/posture/pkg/ui"
)

// errUsage marks invalid invocations.
var errUsage = errors.New("usage")

func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// exitWithError prints err and exits with the code for its kind.
// Use this instead of ui.PrintError + os.Exit for consistent CLI error handling.
func exitWithError(err error) {
	if !errors.Is(err, flag.ErrHelp) {
		ui.PrintError(err.Error())
	}
	os.Exit(exitCode(err))
}

// exitCode maps an error to a process exit code.
func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return defaults.ExitSuccess
	case errors.Is(err, context.Canceled):
		return defaults.ExitInterrupted
	case errors.Is(err, checkpoint.ErrStorageUnavailable):
		return defaults.ExitStorageError
	case errors.Is(err, report.ErrRenderFailure):
		return defaults.ExitRenderError
	case errors.Is(err, errUsage),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrMissingRequired),
		errors.Is(err, assessment.ErrInvalidAnswer),
		errors.Is(err, assessment.ErrInvalidSession),
		errors.Is(err, assessment.ErrSessionClosed),
		errors.Is(err, checkpoint.ErrNotFound),
		errors.Is(err, history.ErrNotFound),
		errors.Is(err, questionbank.ErrInvalidBank),
		errors.Is(err, remediation.ErrInvalidCatalog),
		errors.Is(err, scoring.ErrInvalidThresholds),
		errors.Is(err, report.ErrInvalidLayout),
		errors.Is(err, report.ErrInvalidImage),
		errors.Is(err, report.ErrBadgeNotEarned):
		return defaults.ExitUserError
	default:
		return defaults.ExitInternalError
	}
}
