package report

import (
	"context"
	"fmt"
)

// Job is a render running in the background.
type Job struct {
	done chan struct{}
	data []byte
	err  error
}

// Start runs fn in a new goroutine. If ctx is already done fn never runs
// and the job fails with ctx's error. Cancelling ctx later has no effect on
// a render that has started.
func Start(ctx context.Context, fn func() ([]byte, error)) *Job {
	j := &Job{done: make(chan struct{})}
	if err := ctx.Err(); err != nil {
		j.err = err
		close(j.done)
		return j
	}

	go func() {
		defer close(j.done)
		defer func() {
			if rec := recover(); rec != nil {
				j.data, j.err = nil, fmt.Errorf("%w: %v", ErrRenderFailure, rec)
			}
		}()
		j.data, j.err = fn()
	}()
	return j
}

// Done is closed when the render finishes.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the render finishes or ctx is done. A done ctx only
// stops the wait; a later Wait still returns the result.
func (j *Job) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-j.done:
		return j.data, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
