package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/seantiz/pipebench/internal/model"
)

// DefaultMaxStreams bounds a density sweep when no limit is configured.
const DefaultMaxStreams = 64

// errSweepCancelled stops a sweep between trials.
var errSweepCancelled = errors.New("density sweep cancelled")

// Benchmark is a DensityRunner that grows the stream count exponentially
// while the per-stream frame rate holds, then binary-searches the boundary.
// Every trial runs through one nested PipelineRunner, so cancelling that
// runner stops the whole sweep.
type Benchmark struct {
	builder    CommandBuilder
	runner     PipelineRunner
	maxStreams int
}

var _ DensityRunner = (*Benchmark)(nil)

// NewBenchmark creates a sweep that builds trial commands with builder and
// runs them with runner.
func NewBenchmark(builder CommandBuilder, runner PipelineRunner, maxStreams int) *Benchmark {
	if maxStreams <= 0 {
		maxStreams = DefaultMaxStreams
	}
	return &Benchmark{
		builder:    builder,
		runner:     runner,
		maxStreams: maxStreams,
	}
}

// Runner returns the nested pipeline runner.
func (b *Benchmark) Runner() Handle {
	return b.runner
}

// Cancel delegates to the nested runner.
func (b *Benchmark) Cancel() {
	b.runner.Cancel()
}

// IsCancelled reports the nested runner's cancellation flag.
func (b *Benchmark) IsCancelled() bool {
	return b.runner.IsCancelled()
}

type trial struct {
	streams      int
	perStreamFPS float64
	distribution []model.PipelinePerformanceSpec
}

// Run performs the sweep. It returns nil, nil when cancelled. When not even
// a single stream reaches fpsFloor the result reports zero streams.
func (b *Benchmark) Run(ctx context.Context, specs []model.PipelineDensitySpec, fpsFloor float64) (*DensityResult, error) {
	if err := validateDensitySpecs(specs); err != nil {
		return nil, err
	}
	if fpsFloor <= 0 {
		return nil, errors.New("fps_floor must be greater than 0")
	}

	var best, first *trial
	lo, hi := 0, 0 // lo passes the floor (0 = none yet), hi is the first failure
	for n := 1; n <= b.maxStreams; n *= 2 {
		t, err := b.try(ctx, specs, n)
		if err != nil {
			return b.finish(err)
		}
		if first == nil {
			first = &t
		}
		if t.perStreamFPS < fpsFloor {
			hi = n
			break
		}
		best, lo = &t, n
	}
	if hi == 0 {
		hi = b.maxStreams + 1
	}

	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		t, err := b.try(ctx, specs, mid)
		if err != nil {
			return b.finish(err)
		}
		if t.perStreamFPS >= fpsFloor {
			best, lo = &t, mid
		} else {
			hi = mid
		}
	}

	if best == nil {
		res := &DensityResult{StreamsPerPipeline: distribute(specs, 0)}
		if first != nil {
			res.PerStreamFPS = first.perStreamFPS
		}
		return res, nil
	}
	return &DensityResult{
		NStreams:           best.streams,
		PerStreamFPS:       best.perStreamFPS,
		StreamsPerPipeline: best.distribution,
	}, nil
}

func (b *Benchmark) finish(err error) (*DensityResult, error) {
	if errors.Is(err, errSweepCancelled) {
		return nil, nil
	}
	return nil, err
}

// try runs one trial with n streams spread across specs.
func (b *Benchmark) try(ctx context.Context, specs []model.PipelineDensitySpec, n int) (trial, error) {
	if b.runner.IsCancelled() {
		return trial{}, errSweepCancelled
	}
	densityTrials.Inc()

	dist := distribute(specs, n)
	cmd, err := b.builder.BuildCommand(dist)
	if err != nil {
		return trial{}, fmt.Errorf("build command for %d streams: %w", n, err)
	}

	res, err := b.runner.Run(ctx, cmd, n)
	if err != nil {
		return trial{}, fmt.Errorf("run %d streams: %w", n, err)
	}
	if b.runner.IsCancelled() {
		return trial{}, errSweepCancelled
	}

	t := trial{streams: n, distribution: dist}
	if res != nil {
		t.perStreamFPS = res.PerStreamFPS
	}
	return t, nil
}

func validateDensitySpecs(specs []model.PipelineDensitySpec) error {
	if len(specs) == 0 {
		return errors.New("at least one pipeline must be specified")
	}
	sum := 0
	for _, s := range specs {
		if s.StreamRate < 0 {
			return fmt.Errorf("pipeline %q: stream_rate must not be negative", s.ID)
		}
		sum += s.StreamRate
	}
	if sum != 100 {
		return fmt.Errorf("pipeline stream_rate values must sum to 100, got %d", sum)
	}
	return nil
}

// distribute splits n streams across specs by stream_rate using the largest
// remainder method. Ties go to the earlier pipeline.
func distribute(specs []model.PipelineDensitySpec, n int) []model.PipelinePerformanceSpec {
	out := make([]model.PipelinePerformanceSpec, len(specs))
	type rem struct {
		idx  int
		frac int
	}
	rems := make([]rem, len(specs))
	assigned := 0
	for i, s := range specs {
		share := n * s.StreamRate
		out[i] = model.PipelinePerformanceSpec{ID: s.ID, Name: s.Name, Version: s.Version, Streams: share / 100}
		rems[i] = rem{idx: i, frac: share % 100}
		assigned += share / 100
	}
	sort.SliceStable(rems, func(a, b int) bool {
		return rems[a].frac > rems[b].frac
	})
	for i := 0; assigned < n && i < len(rems); i++ {
		out[rems[i].idx].Streams++
		assigned++
	}
	return out
}
