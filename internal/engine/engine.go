package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seantiz/pipebench/internal/model"
	"github.com/seantiz/pipebench/internal/pipeline"
	"github.com/seantiz/pipebench/internal/runner"
)

// ErrInvalidSpec is returned when a submitted request is structurally unusable.
var ErrInvalidSpec = errors.New("invalid test spec")

const noStreamsMessage = "At least one stream must be specified to run the pipeline."

// Pipelines resolves pipeline references for the engine.
type Pipelines interface {
	BuildCommand(specs []model.PipelinePerformanceSpec) (pipeline.Command, error)
	Describe(specs []model.PipelinePerformanceSpec) []model.PipelinePerformanceSpec
}

// Engine owns test jobs: it registers them, executes each in its own
// goroutine, records exactly one terminal outcome per job and serves
// status snapshots at any time.
type Engine struct {
	registry  *Registry
	pipelines Pipelines
	runners   runner.Factory
	broker    *LogBroker
	logger    *slog.Logger
	wg        sync.WaitGroup

	// Timestamps are epoch plus the monotonic time elapsed since it, never
	// below the last one handed out.
	epoch  time.Time
	now    func() time.Time
	lastMS atomic.Int64
}

// NewEngine creates a new job engine.
func NewEngine(pipelines Pipelines, runners runner.Factory, logger *slog.Logger) *Engine {
	return &Engine{
		registry:  NewRegistry(),
		pipelines: pipelines,
		runners:   runners,
		broker:    NewLogBroker(),
		logger:    logger,
		epoch:     time.Now(),
		now:       time.Now,
	}
}

// Registry returns the engine's job registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Broker returns the engine's log broker for SSE subscription.
func (e *Engine) Broker() *LogBroker {
	return e.broker
}

// SubmitPerformance registers a performance job and starts it in the
// background. It never waits for the pipeline.
func (e *Engine) SubmitPerformance(ctx context.Context, spec *model.PerformanceTestSpec) (string, error) {
	if spec == nil {
		return "", fmt.Errorf("%w: performance request is required", ErrInvalidSpec)
	}
	return e.submit(ctx, &model.Job{Kind: model.KindPerformance, Performance: spec})
}

// SubmitDensity registers a density job and starts it in the background.
func (e *Engine) SubmitDensity(ctx context.Context, spec *model.DensityTestSpec) (string, error) {
	if spec == nil {
		return "", fmt.Errorf("%w: density request is required", ErrInvalidSpec)
	}
	return e.submit(ctx, &model.Job{Kind: model.KindDensity, Density: spec})
}

func (e *Engine) submit(ctx context.Context, job *model.Job) (string, error) {
	job.ID = model.NewJobID()
	job.State = model.StateRunning
	job.StartTime = e.nowMS()

	// The goroutine gets its own copy; the registry owns job from here on.
	jobCopy := job.Clone()
	if err := e.registry.Put(job); err != nil {
		return "", fmt.Errorf("register job: %w", err)
	}

	kind := string(job.Kind)
	jobsSubmitted.WithLabelValues(kind).Inc()
	jobsRunning.WithLabelValues(kind).Inc()
	e.logger.InfoContext(ctx, "test job started", "job_id", job.ID, "kind", kind)

	e.wg.Go(func() {
		e.execute(&jobCopy)
	})

	return jobCopy.ID, nil
}

// Wait blocks until all in-flight job goroutines complete.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// execute runs one job to its terminal state. Faults, including panics, are
// recorded on the job and never escape the goroutine.
func (e *Engine) execute(job *model.Job) {
	// Close the log stream when execution finishes, regardless of outcome.
	defer e.broker.Close(job.ID)
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("test job panicked", "job_id", job.ID, "panic", p)
			e.fail(job, fmt.Sprintf("internal error: %v", p))
		}
	}()

	ctx := context.Background()
	var err error
	switch job.Kind {
	case model.KindPerformance:
		err = e.runPerformance(ctx, job)
	case model.KindDensity:
		err = e.runDensity(ctx, job)
	default:
		err = fmt.Errorf("unsupported job kind %q", job.Kind)
	}
	if err != nil {
		e.fail(job, err.Error())
	}
}

func (e *Engine) runPerformance(ctx context.Context, job *model.Job) error {
	spec := job.Performance
	total := spec.TotalStreams()
	if total <= 0 {
		return errors.New(noStreamsMessage)
	}

	cmd, err := e.pipelines.BuildCommand(spec.PipelinePerformanceSpecs)
	if err != nil {
		return err
	}

	r := e.runners.NewPipelineRunner(e.logWriter(job.ID))
	e.registry.AttachRunner(job.ID, r)
	e.logger.Debug("running pipeline", "job_id", job.ID, "streams", total, "command", cmd.String())

	// A fault is recorded as such even after a stop request; cancellation
	// only overrides a run that returned normally.
	res, err := r.Run(ctx, cmd, total)
	if err != nil {
		return err
	}
	if r.IsCancelled() {
		e.abort(job)
		return nil
	}

	streams := e.pipelines.Describe(spec.PipelinePerformanceSpecs)
	e.complete(job, func(j *model.Job) {
		if res == nil {
			return
		}
		j.TotalFPS = &res.TotalFPS
		j.PerStreamFPS = &res.PerStreamFPS
		j.TotalStreams = &res.NumStreams
		j.StreamsPerPipeline = streams
	})
	return nil
}

func (e *Engine) runDensity(ctx context.Context, job *model.Job) error {
	spec := job.Density

	d := e.runners.NewDensityRunner(e.logWriter(job.ID))
	e.registry.AttachRunner(job.ID, d)
	e.logger.Debug("running density sweep", "job_id", job.ID, "fps_floor", spec.FPSFloor)

	res, err := d.Run(ctx, spec.PipelineDensitySpecs, spec.FPSFloor)
	if err != nil {
		return err
	}
	if d.Runner().IsCancelled() {
		e.abort(job)
		return nil
	}

	e.complete(job, func(j *model.Job) {
		if res == nil {
			return
		}
		j.PerStreamFPS = &res.PerStreamFPS
		j.TotalStreams = &res.NStreams
		j.StreamsPerPipeline = e.pipelines.Describe(res.StreamsPerPipeline)
	})
	if res != nil {
		e.logger.Info("density test result", "job_id", job.ID,
			"streams", res.NStreams, "per_stream_fps", res.PerStreamFPS)
	}
	return nil
}

// complete marks the job COMPLETED, setting results through setResults in
// the same critical section.
func (e *Engine) complete(job *model.Job, setResults func(*model.Job)) {
	e.finish(job, model.StateCompleted, "", func(j *model.Job) {
		setResults(j)
	})
}

// abort marks the job ABORTED after a user-requested stop.
func (e *Engine) abort(job *model.Job) {
	e.finish(job, model.StateAborted, model.CancelledMessage, nil)
}

// fail marks the job ERROR with the given message.
func (e *Engine) fail(job *model.Job, msg string) {
	e.finish(job, model.StateError, msg, nil)
}

func (e *Engine) finish(job *model.Job, state model.JobState, msg string, extra func(*model.Job)) {
	end := e.nowMS()
	ok := e.registry.Finish(job.ID, func(j *model.Job) {
		j.State = state
		j.EndTime = &end
		if msg != "" {
			j.ErrorMessage = &msg
		}
		if extra != nil {
			extra(j)
		}
	})
	if !ok {
		e.logger.Warn("ignoring transition of finished job", "job_id", job.ID, "state", state)
		return
	}

	kind := string(job.Kind)
	jobsRunning.WithLabelValues(kind).Dec()
	jobsFinished.WithLabelValues(kind, string(state)).Inc()
	jobDuration.WithLabelValues(kind).Observe(float64(end-job.StartTime) / 1000)

	switch state {
	case model.StateError:
		e.logger.Error("test job failed", "job_id", job.ID, "kind", kind, "error", msg)
	case model.StateAborted:
		e.logger.Info("test job aborted", "job_id", job.ID, "kind", kind)
	default:
		e.logger.Info("test job completed", "job_id", job.ID, "kind", kind)
	}
}

// logWriter publishes runner output to the job's log stream.
func (e *Engine) logWriter(id string) runner.LineFunc {
	return func(line string) {
		e.broker.Publish(id, line)
	}
}

// nowMS returns the current time in epoch milliseconds. Wall-clock steps
// after the engine started do not move it backwards.
func (e *Engine) nowMS() int64 {
	ms := e.epoch.UnixMilli() + e.now().Sub(e.epoch).Milliseconds()
	for {
		last := e.lastMS.Load()
		if ms <= last {
			return last
		}
		if e.lastMS.CompareAndSwap(last, ms) {
			return ms
		}
	}
}
