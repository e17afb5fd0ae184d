package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seantiz/pipebench/internal/pipeline"
)

// DefaultStopGrace is how long a cancelled pipeline may take to drain after
// SIGINT before it is killed.
const DefaultStopGrace = 5 * time.Second

// ProcessRunner runs a pipeline as a child process and reads its throughput
// from gvafpscounter output. Run may be called several times in sequence;
// once cancelled, every later Run returns immediately.
type ProcessRunner struct {
	stopGrace time.Duration
	onLine    LineFunc

	cancelled atomic.Bool
	stopOnce  sync.Once
	stop      chan struct{}
}

var _ PipelineRunner = (*ProcessRunner)(nil)

// NewProcessRunner creates a runner. onLine receives every stdout and stderr
// line and may be nil.
func NewProcessRunner(stopGrace time.Duration, onLine LineFunc) *ProcessRunner {
	if stopGrace <= 0 {
		stopGrace = DefaultStopGrace
	}
	return &ProcessRunner{
		stopGrace: stopGrace,
		onLine:    onLine,
		stop:      make(chan struct{}),
	}
}

// Cancel interrupts the running process, if any, and marks the runner cancelled.
func (r *ProcessRunner) Cancel() {
	r.cancelled.Store(true)
	r.stopOnce.Do(func() { close(r.stop) })
}

// IsCancelled reports whether Cancel has been called.
func (r *ProcessRunner) IsCancelled() bool {
	return r.cancelled.Load()
}

// Run starts cmd and blocks until it exits. The result is nil when the run
// was cancelled or the pipeline printed no fps summary.
func (r *ProcessRunner) Run(ctx context.Context, cmd pipeline.Command, totalStreams int) (*Result, error) {
	if r.IsCancelled() {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-r.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Env = append(os.Environ(), cmd.Env...)
	// SIGINT lets gst-launch -e push EOS so the fps counter prints its summary.
	c.Cancel = func() error { return c.Process.Signal(os.Interrupt) }
	c.WaitDelay = r.stopGrace

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	c.Stdout = stdoutW
	c.Stderr = stderrW

	var (
		mu         sync.Mutex
		tracker    fpsTracker
		lastStderr string
	)
	var g errgroup.Group
	g.Go(func() error {
		return r.scan(stdoutR, func(line string) {
			mu.Lock()
			tracker.observe(line)
			mu.Unlock()
		})
	})
	g.Go(func() error {
		return r.scan(stderrR, func(line string) {
			mu.Lock()
			tracker.observe(line)
			lastStderr = line
			mu.Unlock()
		})
	})
	closeWriters := func() {
		stdoutW.Close()
		stderrW.Close()
	}

	start := time.Now()
	if err := c.Start(); err != nil {
		closeWriters()
		_ = g.Wait()
		if r.IsCancelled() {
			runsTotal.WithLabelValues(outcomeCancelled).Inc()
			return nil, nil
		}
		runsTotal.WithLabelValues(outcomeFailed).Inc()
		return nil, fmt.Errorf("start pipeline: %w", err)
	}

	waitErr := c.Wait()
	closeWriters()
	readErr := g.Wait()
	runDuration.Observe(time.Since(start).Seconds())

	if r.IsCancelled() {
		runsTotal.WithLabelValues(outcomeCancelled).Inc()
		return nil, nil
	}
	if waitErr != nil {
		runsTotal.WithLabelValues(outcomeFailed).Inc()
		if lastStderr != "" {
			return nil, fmt.Errorf("pipeline exited: %w: %s", waitErr, lastStderr)
		}
		return nil, fmt.Errorf("pipeline exited: %w", waitErr)
	}
	if readErr != nil {
		runsTotal.WithLabelValues(outcomeFailed).Inc()
		return nil, fmt.Errorf("read pipeline output: %w", readErr)
	}

	runsTotal.WithLabelValues(outcomeCompleted).Inc()
	res := tracker.result()
	if res != nil && res.NumStreams == 0 {
		res.NumStreams = totalStreams
	}
	return res, nil
}

func (r *ProcessRunner) scan(rd io.Reader, observe func(string)) error {
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		line := scanner.Text()
		observe(line)
		if r.onLine != nil {
			r.onLine(line)
		}
	}
	if err := scanner.Err(); err != nil {
		// Keep draining so the process never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, rd)
		return err
	}
	return nil
}
