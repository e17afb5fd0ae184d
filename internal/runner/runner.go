package runner

import (
	"context"

	"github.com/seantiz/pipebench/internal/model"
	"github.com/seantiz/pipebench/internal/pipeline"
)

// LineFunc receives one line of runner output. It may be nil.
type LineFunc func(line string)

// Handle is the cancellable reference to an in-flight run that the job
// registry keeps while a job is running.
type Handle interface {
	// Cancel requests the run to stop. It is idempotent and safe to call from
	// any goroutine, including concurrently with Run returning.
	Cancel()

	// IsCancelled reports whether Cancel has been called.
	IsCancelled() bool
}

// PipelineRunner executes a pipeline command and measures its throughput.
type PipelineRunner interface {
	Handle

	// Run blocks until the pipeline exits or is cancelled. A nil result with a
	// nil error means the run produced no throughput figures.
	Run(ctx context.Context, cmd pipeline.Command, totalStreams int) (*Result, error)
}

// DensityRunner searches for the highest stream count that sustains a target
// per-stream frame rate.
type DensityRunner interface {
	Handle

	// Run blocks until the sweep finishes or is cancelled.
	Run(ctx context.Context, specs []model.PipelineDensitySpec, fpsFloor float64) (*DensityResult, error)

	// Runner returns the nested pipeline runner that cancellation is delegated to.
	Runner() Handle
}

// CommandBuilder turns stream assignments into an executable command.
type CommandBuilder interface {
	BuildCommand(specs []model.PipelinePerformanceSpec) (pipeline.Command, error)
}

// Factory creates a fresh runner for every job.
type Factory interface {
	NewPipelineRunner(onLine LineFunc) PipelineRunner
	NewDensityRunner(onLine LineFunc) DensityRunner
}

// Result holds the throughput reported by a pipeline run.
type Result struct {
	TotalFPS     float64 `json:"total_fps"`
	PerStreamFPS float64 `json:"per_stream_fps"`
	NumStreams   int     `json:"num_streams"`
}

// DensityResult holds the outcome of a density sweep.
type DensityResult struct {
	NStreams           int                             `json:"n_streams"`
	PerStreamFPS       float64                         `json:"per_stream_fps"`
	StreamsPerPipeline []model.PipelinePerformanceSpec `json:"streams_per_pipeline"`
}
