// pkg/ui/activity.go - Spinner shown while a document renders in the background
package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// OutputMode determines how progress is displayed
type OutputMode int

const (
	// OutputModeInteractive - animated terminal output with ANSI escape codes
	OutputModeInteractive OutputMode = iota
	// OutputModeStreaming - one line per state change, no ANSI codes
	OutputModeStreaming
	// OutputModeSilent - no progress output
	OutputModeSilent
)

// DefaultOutputMode returns Interactive when stderr is a terminal,
// Streaming otherwise. Use this instead of hardcoding OutputModeInteractive
// to avoid ANSI escape codes in redirected output.
func DefaultOutputMode() OutputMode {
	if IsSilent() {
		return OutputModeSilent
	}
	if StderrIsTerminal() {
		return OutputModeInteractive
	}
	return OutputModeStreaming
}

// ActivityConfig configures an Activity.
type ActivityConfig struct {
	// Title shown next to the spinner (e.g., "Rendering report")
	Title string

	// Output mode (default: DefaultOutputMode())
	Mode OutputMode

	// Output writer (default: Output())
	Writer io.Writer

	// Spinner style (default: SpinnerDots)
	SpinnerType SpinnerType
}

// Activity animates a spinner until Stop is called.
type Activity struct {
	config    ActivityConfig
	startTime time.Time

	done    chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex

	frameIdx int
}

// NewActivity creates an activity display. Mode zero value is Interactive,
// so callers that do not care should pass DefaultOutputMode().
func NewActivity(config ActivityConfig) *Activity {
	if config.Writer == nil {
		config.Writer = Output()
	}
	if config.Title == "" {
		config.Title = "Working"
	}
	return &Activity{config: config, done: make(chan struct{})}
}

// Start begins the display
func (a *Activity) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}
	a.running = true
	a.startTime = time.Now()
	a.done = make(chan struct{})

	switch a.config.Mode {
	case OutputModeSilent:
		return
	case OutputModeStreaming:
		fmt.Fprintf(a.config.Writer, "  %s...\n", a.config.Title)
		return
	}

	a.wg.Add(1)
	go a.renderLoop()
}

// Stop halts the display and prints a final status line. A nil err reports
// success.
func (a *Activity) Stop(err error) {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	close(a.done)
	a.mu.Unlock()

	a.wg.Wait()

	elapsed := time.Since(a.startTime)
	switch a.config.Mode {
	case OutputModeSilent:
		return
	case OutputModeInteractive:
		// Clear the spinner line
		fmt.Fprint(a.config.Writer, "\r\033[K")
	}

	status := "done"
	if err != nil {
		status = "failed"
	}
	fmt.Fprintf(a.config.Writer, "  %s %s (%s)\n", a.config.Title, status, formatElapsedCompact(elapsed))
}

func (a *Activity) renderLoop() {
	defer a.wg.Done()

	spinner := GetSpinner(a.config.SpinnerType)
	ticker := time.NewTicker(spinner.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			frame := spinner.Frames[a.frameIdx%len(spinner.Frames)]
			a.frameIdx++
			fmt.Fprintf(a.config.Writer, "\r  %s %s... %s",
				SpinnerStyle.Render(frame), a.config.Title,
				StatLabelStyle.Render(formatElapsedCompact(time.Since(a.startTime))))
		}
	}
}

// formatElapsedCompact formats a duration as "850ms", "4.2s" or "1m05s".
func formatElapsedCompact(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%02ds", m, s)
	}
}
