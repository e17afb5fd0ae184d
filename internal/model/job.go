package model

import (
	"slices"

	"github.com/oklog/ulid/v2"
)

// JobKind discriminates the two test job variants.
type JobKind string

// Job kind constants.
const (
	KindPerformance JobKind = "performance"
	KindDensity     JobKind = "density"
)

// ParseJobKind maps a URL or config token to a JobKind.
func ParseJobKind(s string) (JobKind, bool) {
	switch JobKind(s) {
	case KindPerformance:
		return KindPerformance, true
	case KindDensity:
		return KindDensity, true
	default:
		return "", false
	}
}

// JobState is the lifecycle state of a test job.
type JobState string

// Job state constants.
const (
	StateRunning   JobState = "RUNNING"
	StateCompleted JobState = "COMPLETED"
	StateError     JobState = "ERROR"
	StateAborted   JobState = "ABORTED"
)

// CancelledMessage is recorded on jobs stopped through the cancellation path.
const CancelledMessage = "Cancelled by user"

// validTransitions maps each state to the set of states it may transition to.
// Terminal states have no entry.
var validTransitions = map[JobState]map[JobState]bool{
	StateRunning: {
		StateCompleted: true,
		StateError:     true,
		StateAborted:   true,
	},
}

// ValidTransition reports whether transitioning from one state to another is allowed.
func ValidTransition(from, to JobState) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// IsTerminal reports whether no further transition can leave s.
func (s JobState) IsTerminal() bool {
	return s == StateCompleted || s == StateError || s == StateAborted
}

// PipelinePerformanceSpec assigns a number of streams to a catalog pipeline.
// It is used both in performance requests and in the streams_per_pipeline
// result of every job kind.
type PipelinePerformanceSpec struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Streams int    `json:"streams"`
}

// PerformanceTestSpec requests a fixed-configuration throughput run.
type PerformanceTestSpec struct {
	PipelinePerformanceSpecs []PipelinePerformanceSpec `json:"pipeline_performance_specs"`
	FPSFloor                 *float64                  `json:"fps_floor,omitempty"`
}

// TotalStreams returns the number of streams across all pipelines.
func (s *PerformanceTestSpec) TotalStreams() int {
	total := 0
	for _, p := range s.PipelinePerformanceSpecs {
		total += p.Streams
	}
	return total
}

// PipelineDensitySpec gives a pipeline its percentage share of the streams
// explored by a density sweep.
type PipelineDensitySpec struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Version    string `json:"version,omitempty"`
	StreamRate int    `json:"stream_rate"`
}

// DensityTestSpec requests a sweep for the maximum stream count that keeps
// per-stream throughput at or above FPSFloor.
type DensityTestSpec struct {
	PipelineDensitySpecs []PipelineDensitySpec `json:"pipeline_density_specs"`
	FPSFloor             float64               `json:"fps_floor"`
}

// Job is one tracked asynchronous test execution. Kind selects which of
// Performance or Density holds the immutable request.
type Job struct {
	ID          string
	Kind        JobKind
	Performance *PerformanceTestSpec
	Density     *DensityTestSpec

	State     JobState
	StartTime int64  // ms since epoch
	EndTime   *int64 // ms since epoch, nil while running

	TotalFPS           *float64
	PerStreamFPS       *float64
	TotalStreams       *int
	StreamsPerPipeline []PipelinePerformanceSpec
	ErrorMessage       *string
}

// Request returns the original request of the job's variant.
func (j *Job) Request() any {
	switch j.Kind {
	case KindPerformance:
		return j.Performance
	case KindDensity:
		return j.Density
	default:
		return nil
	}
}

// Clone returns a copy that shares no mutable state with j. Requests are
// immutable after submission and are shared.
func (j *Job) Clone() Job {
	c := *j
	c.EndTime = clonePtr(j.EndTime)
	c.TotalFPS = clonePtr(j.TotalFPS)
	c.PerStreamFPS = clonePtr(j.PerStreamFPS)
	c.TotalStreams = clonePtr(j.TotalStreams)
	c.ErrorMessage = clonePtr(j.ErrorMessage)
	c.StreamsPerPipeline = slices.Clone(j.StreamsPerPipeline)
	return c
}

// Status projects the job at the given instant. Elapsed time is frozen once
// EndTime is set.
func (j *Job) Status(nowMS int64) JobStatus {
	end := nowMS
	if j.EndTime != nil {
		end = *j.EndTime
	}
	c := j.Clone()
	return JobStatus{
		ID:                 c.ID,
		Kind:               c.Kind,
		StartTime:          c.StartTime,
		ElapsedTime:        max(end-c.StartTime, 0),
		State:              c.State,
		TotalFPS:           c.TotalFPS,
		PerStreamFPS:       c.PerStreamFPS,
		TotalStreams:       c.TotalStreams,
		StreamsPerPipeline: c.StreamsPerPipeline,
		ErrorMessage:       c.ErrorMessage,
	}
}

// Summary projects the job identity and its original request.
func (j *Job) Summary() JobSummary {
	return JobSummary{ID: j.ID, Kind: j.Kind, Request: j.Request()}
}

// JobStatus is the polled view of a job.
type JobStatus struct {
	ID                 string                    `json:"id"`
	Kind               JobKind                   `json:"kind"`
	StartTime          int64                     `json:"start_time"`
	ElapsedTime        int64                     `json:"elapsed_time"`
	State              JobState                  `json:"state"`
	TotalFPS           *float64                  `json:"total_fps,omitempty"`
	PerStreamFPS       *float64                  `json:"per_stream_fps,omitempty"`
	TotalStreams       *int                      `json:"total_streams,omitempty"`
	StreamsPerPipeline []PipelinePerformanceSpec `json:"streams_per_pipeline,omitempty"`
	ErrorMessage       *string                   `json:"error_message,omitempty"`
}

// JobSummary is the audit view of a job.
type JobSummary struct {
	ID      string  `json:"id"`
	Kind    JobKind `json:"kind"`
	Request any     `json:"request"`
}

// NewJobID generates a new ULID string for use as a job identifier.
func NewJobID() string {
	return ulid.Make().String()
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
