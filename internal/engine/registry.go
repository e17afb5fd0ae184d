package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/seantiz/pipebench/internal/model"
	"github.com/seantiz/pipebench/internal/runner"
)

var (
	// ErrDuplicateJob is returned by Put when the id is already registered.
	ErrDuplicateJob = errors.New("job already registered")

	// ErrJobNotFound is returned for ids that were never submitted.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotRunning is returned when a job has reached a terminal state.
	ErrJobNotRunning = errors.New("job is not running")

	// ErrNoActiveRunner is returned when a running job has no runner attached.
	ErrNoActiveRunner = errors.New("no active runner")

	// ErrStopRequested is returned when the attached runner is already cancelled.
	ErrStopRequested = errors.New("stop already requested")
)

// Registry maps job ids to job records and to the runner handles of jobs
// that are executing. It is safe for concurrent use; every method holds the
// lock only for in-memory map work.
type Registry struct {
	mu      sync.Mutex
	jobs    map[string]*model.Job
	order   []string
	runners map[string]runner.Handle
	closing bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs:    make(map[string]*model.Job),
		runners: make(map[string]runner.Handle),
	}
}

// Put inserts a new job.
func (r *Registry) Put(job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; ok {
		return fmt.Errorf("put %s: %w", job.ID, ErrDuplicateJob)
	}
	r.jobs[job.ID] = job
	r.order = append(r.order, job.ID)
	return nil
}

// Get returns a copy of the job with the given id.
func (r *Registry) Get(id string) (model.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return model.Job{}, false
	}
	return j.Clone(), true
}

// AttachRunner associates a live runner with a job. Once the registry is
// draining the handle is cancelled straight away, so a job that was still
// preparing its command cannot outlive shutdown.
func (r *Registry) AttachRunner(id string, h runner.Handle) {
	r.mu.Lock()
	r.runners[id] = h
	closing := r.closing
	r.mu.Unlock()

	if closing {
		h.Cancel()
	}
}

// DetachRunner removes the runner of a job. It is a no-op when none is attached.
func (r *Registry) DetachRunner(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runners, id)
}

// ListByKind returns copies of all jobs of the given kind in submission order.
func (r *Registry) ListByKind(kind model.JobKind) []model.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	jobs := make([]model.Job, 0, len(r.order))
	for _, id := range r.order {
		if j := r.jobs[id]; j.Kind == kind {
			jobs = append(jobs, j.Clone())
		}
	}
	return jobs
}

// Finish applies a terminal transition and detaches the job's runner in one
// critical section, so readers never see a terminal job with a runner still
// attached or a running job with results. It returns false, changing
// nothing, when the job is unknown or already terminal, or when apply leaves
// the job in a state it may not move to.
func (r *Registry) Finish(id string, apply func(*model.Job)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok || j.State != model.StateRunning {
		return false
	}

	next := j.Clone()
	apply(&next)
	if !model.ValidTransition(j.State, next.State) {
		return false
	}
	*j = next
	delete(r.runners, id)
	return true
}

// ActiveRunner returns the runner of a running job that can still be
// stopped, together with the job's current state.
func (r *Registry) ActiveRunner(id string) (runner.Handle, model.JobState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, "", ErrJobNotFound
	}
	if j.State != model.StateRunning {
		return nil, j.State, ErrJobNotRunning
	}
	h, ok := r.runners[id]
	if !ok {
		return nil, j.State, ErrNoActiveRunner
	}
	if h.IsCancelled() {
		return nil, j.State, ErrStopRequested
	}
	return h, j.State, nil
}

// Runners returns the handles of all attached runners.
func (r *Registry) Runners() []runner.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	hs := make([]runner.Handle, 0, len(r.runners))
	for _, h := range r.runners {
		hs = append(hs, h)
	}
	return hs
}

// Drain marks the registry as closing and returns the handles attached so
// far. Runners attached afterwards are cancelled on attach.
func (r *Registry) Drain() []runner.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closing = true
	hs := make([]runner.Handle, 0, len(r.runners))
	for _, h := range r.runners {
		hs = append(hs, h)
	}
	return hs
}
