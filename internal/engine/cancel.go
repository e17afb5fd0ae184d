package engine

import (
	"context"
	"errors"
	"fmt"
)

// Stop requests cancellation of a running job. It returns immediately; the
// job moves to ABORTED once its runner honors the request. A false result
// carries a message describing why nothing was done.
func (e *Engine) Stop(id string) (bool, string) {
	h, state, err := e.registry.ActiveRunner(id)
	switch {
	case errors.Is(err, ErrJobNotFound):
		return false, fmt.Sprintf("Job %s not found", id)
	case errors.Is(err, ErrJobNotRunning):
		return false, fmt.Sprintf("Job %s is not running (state: %s)", id, state)
	case errors.Is(err, ErrNoActiveRunner):
		return false, fmt.Sprintf("No active runner found for job %s. It may have already completed or was never started.", id)
	case errors.Is(err, ErrStopRequested):
		return false, fmt.Sprintf("Job %s is not running: stop already requested", id)
	case err != nil:
		return false, err.Error()
	}

	h.Cancel()
	e.logger.Info("stop requested", "job_id", id)
	return true, fmt.Sprintf("Job %s stopped", id)
}

// Shutdown cancels every running job and waits for the execution goroutines
// to record their outcome, or for ctx to expire.
func (e *Engine) Shutdown(ctx context.Context) error {
	runners := e.registry.Drain()
	for _, h := range runners {
		h.Cancel()
	}
	if len(runners) > 0 {
		e.logger.Info("cancelling running jobs", "count", len(runners))
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for jobs: %w", ctx.Err())
	}
}
