package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyberph/posture/pkg/defaults"
)

// SignalContext returns a context cancelled on SIGINT/SIGTERM.
// If a second signal arrives during gracePeriod, the process exits with
// defaults.ExitInterrupted.
//
// Usage:
//
//	ctx, cancel := cli.SignalContext(duration.ShutdownGrace)
//	defer cancel()
//	res, err := q.Run(ctx)
func SignalContext(gracePeriod time.Duration) (context.Context, context.CancelFunc) {
	return signalContextWithNotifier(gracePeriod, nil, nil)
}

// signalContextWithNotifier is the internal implementation for testing.
// sigChan, if non-nil, overrides the real signal channel.
// exitFn, if non-nil, overrides os.Exit for testing.
func signalContextWithNotifier(
	gracePeriod time.Duration,
	sigChan chan os.Signal,
	exitFn func(int),
) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	ownChannel := sigChan == nil
	if ownChannel {
		sigChan = make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	}

	if exitFn == nil {
		exitFn = os.Exit
	}

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, "Interrupt received, saving progress...")
			cancel()

			// Wait for a second signal or grace period.
			select {
			case <-sigChan:
				exitFn(defaults.ExitInterrupted)
			case <-time.After(gracePeriod):
			}
		case <-ctx.Done():
		}
		if ownChannel {
			signal.Stop(sigChan)
		}
	}()

	return ctx, cancel
}
