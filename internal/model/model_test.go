package model

import (
	"regexp"
	"testing"
)

// crockfordBase32 matches valid ULID strings (26 chars, Crockford Base32 alphabet).
var crockfordBase32 = regexp.MustCompile(`^[0123456789ABCDEFGHJKMNPQRSTVWXYZ]{26}$`)

func TestNewJobIDFormat(t *testing.T) {
	id := NewJobID()
	if !crockfordBase32.MatchString(id) {
		t.Errorf("NewJobID() = %q, does not match Crockford Base32 ULID format", id)
	}
}

func TestNewJobIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewJobID()
		if seen[id] {
			t.Fatalf("NewJobID() produced duplicate: %s", id)
		}
		seen[id] = true
	}
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to JobState
		want     bool
	}{
		{StateRunning, StateCompleted, true},
		{StateRunning, StateError, true},
		{StateRunning, StateAborted, true},
		{StateRunning, StateRunning, false},
		{StateCompleted, StateAborted, false},
		{StateAborted, StateCompleted, false},
		{StateError, StateRunning, false},
	}
	for _, tt := range tests {
		if got := ValidTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseJobKind(t *testing.T) {
	for _, s := range []string{"performance", "density"} {
		if k, ok := ParseJobKind(s); !ok || string(k) != s {
			t.Errorf("ParseJobKind(%q) = %q, %v", s, k, ok)
		}
	}
	if _, ok := ParseJobKind("optimize"); ok {
		t.Error("ParseJobKind(optimize) should fail")
	}
}

func TestTotalStreams(t *testing.T) {
	spec := &PerformanceTestSpec{PipelinePerformanceSpecs: []PipelinePerformanceSpec{
		{ID: "a", Streams: 3},
		{ID: "b", Streams: 0},
		{ID: "c", Streams: 2},
	}}
	if got := spec.TotalStreams(); got != 5 {
		t.Errorf("TotalStreams() = %d, want 5", got)
	}
}

func TestStatusElapsedTime(t *testing.T) {
	j := &Job{ID: "j1", Kind: KindPerformance, State: StateRunning, StartTime: 1000}

	if got := j.Status(1500).ElapsedTime; got != 500 {
		t.Errorf("running elapsed = %d, want 500", got)
	}

	end := int64(1700)
	j.EndTime = &end
	j.State = StateCompleted
	if got := j.Status(9000).ElapsedTime; got != 700 {
		t.Errorf("finished elapsed = %d, want 700 (frozen at end_time)", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	fps := 30.0
	j := &Job{
		ID:                 "j1",
		PerStreamFPS:       &fps,
		StreamsPerPipeline: []PipelinePerformanceSpec{{ID: "p1", Streams: 1}},
	}
	c := j.Clone()
	*c.PerStreamFPS = 1
	c.StreamsPerPipeline[0].Streams = 9

	if *j.PerStreamFPS != 30.0 {
		t.Errorf("original per_stream_fps changed to %v", *j.PerStreamFPS)
	}
	if j.StreamsPerPipeline[0].Streams != 1 {
		t.Errorf("original streams changed to %d", j.StreamsPerPipeline[0].Streams)
	}
}

func TestSummaryCarriesRequest(t *testing.T) {
	spec := &DensityTestSpec{FPSFloor: 30}
	j := &Job{ID: "d1", Kind: KindDensity, Density: spec}
	sum := j.Summary()
	if sum.Request != spec {
		t.Errorf("summary request = %v, want %v", sum.Request, spec)
	}
	if sum.Kind != KindDensity {
		t.Errorf("summary kind = %q, want density", sum.Kind)
	}
}
