package runner_test

import (
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/seantiz/pipebench/internal/pipeline"
	"github.com/seantiz/pipebench/internal/runner"
)

func shCommand(t *testing.T, script string) pipeline.Command {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}
	return pipeline.Command{Path: sh, Args: []string{"-c", script}}
}

func TestProcessRunnerParsesFPS(t *testing.T) {
	t.Parallel()
	cmd := shCommand(t, `
echo "Setting pipeline to PLAYING ..."
echo "FpsCounter(last 1.00sec): total=88.00 fps, number-streams=3, per-stream=29.33 fps (29.0, 29.5, 29.5)"
echo "FpsCounter(average 2.00sec): total=89.50 fps, number-streams=3, per-stream=29.83 fps (29.8, 29.8, 29.9)"
echo "FpsCounter(overall 2.00sec): total=90.00 fps, number-streams=3, per-stream=30.00 fps (30.0, 30.0, 30.0)" 1>&2
echo "Got EOS from element pipeline0."
`)

	var (
		mu    sync.Mutex
		lines []string
	)
	r := runner.NewProcessRunner(time.Second, func(line string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, line)
	})

	res, err := r.Run(t.Context(), cmd, 3)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, 90.0, res.TotalFPS)
	require.Equal(t, 30.0, res.PerStreamFPS)
	require.Equal(t, 3, res.NumStreams)
	require.False(t, r.IsCancelled())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, lines, 5)
	require.Contains(t, lines, "Got EOS from element pipeline0.")
}

func TestProcessRunnerAverageFallback(t *testing.T) {
	t.Parallel()
	cmd := shCommand(t, `echo "FpsCounter(average 5.00sec): total=60.00 fps, number-streams=2, per-stream=30.00 fps (30.0, 30.0)"`)

	res, err := runner.NewProcessRunner(time.Second, nil).Run(t.Context(), cmd, 2)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, 60.0, res.TotalFPS)
}

func TestProcessRunnerNoFPS(t *testing.T) {
	t.Parallel()
	cmd := shCommand(t, `echo "nothing to see"`)

	res, err := runner.NewProcessRunner(time.Second, nil).Run(t.Context(), cmd, 1)
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestProcessRunnerExitError(t *testing.T) {
	t.Parallel()
	cmd := shCommand(t, `echo "ERROR: no element \"gvadetect\"" 1>&2; exit 1`)

	res, err := runner.NewProcessRunner(time.Second, nil).Run(t.Context(), cmd, 1)
	require.Nil(t, res)
	require.Error(t, err)
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.ErrorContains(t, err, `no element "gvadetect"`)
}

func TestProcessRunnerStartError(t *testing.T) {
	t.Parallel()
	cmd := pipeline.Command{Path: "does-not-exist-gst-launch"}

	_, err := runner.NewProcessRunner(time.Second, nil).Run(t.Context(), cmd, 1)
	require.Error(t, err)
	var execErr *exec.Error
	require.ErrorAs(t, err, &execErr)
}

func TestProcessRunnerCancel(t *testing.T) {
	t.Parallel()
	cmd := shCommand(t, `exec sleep 30`)
	r := runner.NewProcessRunner(200*time.Millisecond, nil)

	done := make(chan error, 1)
	go func() {
		res, err := r.Run(t.Context(), cmd, 1)
		if res != nil {
			t.Errorf("result = %+v, want nil after cancel", res)
		}
		done <- err
	}()

	time.Sleep(100 * time.Millisecond)
	r.Cancel()
	r.Cancel() // idempotent

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Cancel")
	}
	require.True(t, r.IsCancelled())
}

func TestProcessRunnerCancelledBeforeRun(t *testing.T) {
	t.Parallel()
	cmd := shCommand(t, `exec sleep 30`)
	r := runner.NewProcessRunner(time.Second, nil)
	r.Cancel()

	start := time.Now()
	res, err := r.Run(t.Context(), cmd, 1)
	require.NoError(t, err)
	require.Nil(t, res)
	require.Less(t, time.Since(start), time.Second)
}
