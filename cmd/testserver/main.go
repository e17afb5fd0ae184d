// testserver starts a pipebench API server with simulated pipelines, so the
// HTTP surface can be exercised on machines without GStreamer.
// Usage: go run ./cmd/testserver
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seantiz/pipebench/internal/api"
	"github.com/seantiz/pipebench/internal/engine"
	"github.com/seantiz/pipebench/internal/pipeline"
	"github.com/seantiz/pipebench/internal/runner"
)

// simRunner pretends to be a device with a fixed frame budget shared by all
// streams, printing gvafpscounter-style lines while it runs.
type simRunner struct {
	budget   float64
	duration time.Duration
	onLine   runner.LineFunc

	cancelled atomic.Bool
	stopOnce  sync.Once
	stop      chan struct{}
}

func (s *simRunner) Cancel() {
	s.cancelled.Store(true)
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *simRunner) IsCancelled() bool { return s.cancelled.Load() }

func (s *simRunner) Run(ctx context.Context, cmd pipeline.Command, n int) (*runner.Result, error) {
	if s.IsCancelled() {
		return nil, nil
	}
	perStream := s.budget / float64(n)
	s.onLine("simulating: " + cmd.String())

	ticker := time.NewTicker(s.duration / 4)
	defer ticker.Stop()
	deadline := time.After(s.duration)
	for {
		select {
		case <-s.stop:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			s.onLine(fmt.Sprintf("FpsCounter(overall %.2fsec): total=%.2f fps, number-streams=%d, per-stream=%.2f fps",
				s.duration.Seconds(), s.budget, n, perStream))
			return &runner.Result{TotalFPS: s.budget, PerStreamFPS: perStream, NumStreams: n}, nil
		case <-ticker.C:
			s.onLine(fmt.Sprintf("FpsCounter(last 1.00sec): total=%.2f fps, number-streams=%d, per-stream=%.2f fps",
				s.budget, n, perStream))
		}
	}
}

type simFactory struct {
	catalog *pipeline.Catalog
}

func (f *simFactory) newRunner(onLine runner.LineFunc) *simRunner {
	return &simRunner{budget: 480, duration: 2 * time.Second, onLine: onLine, stop: make(chan struct{})}
}

func (f *simFactory) NewPipelineRunner(onLine runner.LineFunc) runner.PipelineRunner {
	return f.newRunner(onLine)
}

func (f *simFactory) NewDensityRunner(onLine runner.LineFunc) runner.DensityRunner {
	return runner.NewBenchmark(f.catalog, f.newRunner(onLine), 32)
}

func main() {
	addr := ":8080"
	if v := os.Getenv("PIPEBENCH_LISTEN_ADDR"); v != "" {
		addr = v
	}

	catalog, err := pipeline.LoadCatalog("", "gst-launch-1.0")
	if err != nil {
		log.Fatalf("failed to load pipeline catalog: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	eng := engine.NewEngine(catalog, &simFactory{catalog: catalog}, logger)
	srv := api.NewServer(addr, eng, catalog, logger)

	logger.Info("testserver: starting", "addr", addr)
	runErr := srv.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := eng.Shutdown(ctx); err != nil {
		logger.Error("engine shutdown", "error", err)
	}
	if runErr != nil {
		log.Fatalf("server error: %v", runErr)
	}
}
