package runner

import "time"

// ExecFactory creates process-backed runners.
type ExecFactory struct {
	Builder    CommandBuilder
	StopGrace  time.Duration
	MaxStreams int
}

var _ Factory = (*ExecFactory)(nil)

// NewPipelineRunner returns a ProcessRunner.
func (f *ExecFactory) NewPipelineRunner(onLine LineFunc) PipelineRunner {
	return NewProcessRunner(f.StopGrace, onLine)
}

// NewDensityRunner returns a Benchmark driving a fresh ProcessRunner.
func (f *ExecFactory) NewDensityRunner(onLine LineFunc) DensityRunner {
	return NewBenchmark(f.Builder, NewProcessRunner(f.StopGrace, onLine), f.MaxStreams)
}
