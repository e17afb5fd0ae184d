package engine_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/seantiz/pipebench/internal/engine"
	"github.com/seantiz/pipebench/internal/model"
)

type flagHandle struct{ cancelled atomic.Bool }

func (h *flagHandle) Cancel()           { h.cancelled.Store(true) }
func (h *flagHandle) IsCancelled() bool { return h.cancelled.Load() }

func runningJob(id string, kind model.JobKind) *model.Job {
	return &model.Job{ID: id, Kind: kind, State: model.StateRunning, StartTime: 1000}
}

func TestRegistryPutDuplicate(t *testing.T) {
	r := engine.NewRegistry()
	if err := r.Put(runningJob("a", model.KindPerformance)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	err := r.Put(runningJob("a", model.KindPerformance))
	if !errors.Is(err, engine.ErrDuplicateJob) {
		t.Errorf("second Put err = %v, want ErrDuplicateJob", err)
	}
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r := engine.NewRegistry()
	if err := r.Put(runningJob("a", model.KindPerformance)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	j, ok := r.Get("a")
	if !ok {
		t.Fatal("Get: not found")
	}
	j.State = model.StateCompleted

	again, _ := r.Get("a")
	if again.State != model.StateRunning {
		t.Errorf("registry state = %s after mutating a copy", again.State)
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get of unknown id reported found")
	}
}

func TestRegistryListByKindKeepsOrder(t *testing.T) {
	r := engine.NewRegistry()
	for _, j := range []*model.Job{
		runningJob("c", model.KindPerformance),
		runningJob("x", model.KindDensity),
		runningJob("a", model.KindPerformance),
		runningJob("b", model.KindPerformance),
	} {
		if err := r.Put(j); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	var ids []string
	for _, j := range r.ListByKind(model.KindPerformance) {
		ids = append(ids, j.ID)
	}
	if len(ids) != 3 || ids[0] != "c" || ids[1] != "a" || ids[2] != "b" {
		t.Errorf("ListByKind = %v, want [c a b]", ids)
	}
	if d := r.ListByKind(model.KindDensity); len(d) != 1 || d[0].ID != "x" {
		t.Errorf("density jobs = %v", d)
	}
}

func TestRegistryFinishDetachesOnce(t *testing.T) {
	r := engine.NewRegistry()
	if err := r.Put(runningJob("a", model.KindPerformance)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	r.AttachRunner("a", &flagHandle{})

	fps := 30.0
	ok := r.Finish("a", func(j *model.Job) {
		j.State = model.StateCompleted
		j.PerStreamFPS = &fps
	})
	if !ok {
		t.Fatal("Finish = false")
	}
	if r.HasRunner("a") {
		t.Error("runner attached after Finish")
	}

	ok = r.Finish("a", func(j *model.Job) { j.State = model.StateError })
	if ok {
		t.Error("second Finish = true, want false")
	}
	j, _ := r.Get("a")
	if j.State != model.StateCompleted || j.PerStreamFPS == nil || *j.PerStreamFPS != 30 {
		t.Errorf("job after second Finish = %+v", j)
	}
}

func TestRegistryFinishRejectsInvalidTarget(t *testing.T) {
	r := engine.NewRegistry()
	if err := r.Put(runningJob("a", model.KindPerformance)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	r.AttachRunner("a", &flagHandle{})

	if r.Finish("a", func(j *model.Job) { j.State = model.StateRunning }) {
		t.Error("Finish to RUNNING = true, want false")
	}
	if !r.HasRunner("a") {
		t.Error("rejected Finish detached the runner")
	}
	if r.Finish("missing", func(j *model.Job) { j.State = model.StateError }) {
		t.Error("Finish of unknown job = true")
	}
}

func TestRegistryActiveRunner(t *testing.T) {
	r := engine.NewRegistry()
	for _, id := range []string{"attached", "bare", "done", "stopping"} {
		if err := r.Put(runningJob(id, model.KindDensity)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	live := &flagHandle{}
	r.AttachRunner("attached", live)
	stopping := &flagHandle{}
	stopping.Cancel()
	r.AttachRunner("stopping", stopping)
	r.Finish("done", func(j *model.Job) { j.State = model.StateError })

	tests := []struct {
		id      string
		wantErr error
		state   model.JobState
	}{
		{"attached", nil, model.StateRunning},
		{"bare", engine.ErrNoActiveRunner, model.StateRunning},
		{"done", engine.ErrJobNotRunning, model.StateError},
		{"stopping", engine.ErrStopRequested, model.StateRunning},
		{"missing", engine.ErrJobNotFound, ""},
	}
	for _, tt := range tests {
		h, state, err := r.ActiveRunner(tt.id)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ActiveRunner(%s) err = %v, want %v", tt.id, err, tt.wantErr)
		}
		if state != tt.state {
			t.Errorf("ActiveRunner(%s) state = %q, want %q", tt.id, state, tt.state)
		}
		if tt.wantErr == nil && h != live {
			t.Errorf("ActiveRunner(%s) returned wrong handle", tt.id)
		}
	}
}

func TestRegistryDetachIsIdempotent(t *testing.T) {
	r := engine.NewRegistry()
	r.AttachRunner("a", &flagHandle{})
	r.DetachRunner("a")
	r.DetachRunner("a")
	if r.HasRunner("a") {
		t.Error("runner still attached")
	}
	if n := len(r.Runners()); n != 0 {
		t.Errorf("Runners() = %d handles, want 0", n)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := engine.NewRegistry()
	var wg sync.WaitGroup
	for i := range 50 {
		id := model.NewJobID()
		wg.Go(func() {
			if err := r.Put(runningJob(id, model.KindPerformance)); err != nil {
				t.Errorf("Put: %v", err)
				return
			}
			r.AttachRunner(id, &flagHandle{})
			if i%2 == 0 {
				r.Finish(id, func(j *model.Job) { j.State = model.StateCompleted })
			}
			_ = r.ListByKind(model.KindPerformance)
		})
	}
	wg.Wait()

	if n := len(r.ListByKind(model.KindPerformance)); n != 50 {
		t.Errorf("jobs = %d, want 50", n)
	}
	if n := len(r.Runners()); n != 25 {
		t.Errorf("attached runners = %d, want 25", n)
	}
}

func TestRegistryDrainCancelsLateRunners(t *testing.T) {
	r := engine.NewRegistry()
	early := &flagHandle{}
	r.AttachRunner("early", early)

	drained := r.Drain()
	if len(drained) != 1 || drained[0] != early {
		t.Fatalf("Drain = %v, want the attached handle", drained)
	}
	if early.IsCancelled() {
		t.Error("Drain cancelled the handle itself")
	}

	late := &flagHandle{}
	r.AttachRunner("late", late)
	if !late.IsCancelled() {
		t.Error("runner attached while draining was not cancelled")
	}
}
