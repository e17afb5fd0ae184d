package engine

import "github.com/seantiz/pipebench/internal/model"

// Status returns the polled view of a job. ok is false when the id is unknown.
func (e *Engine) Status(id string) (model.JobStatus, bool) {
	j, ok := e.registry.Get(id)
	if !ok {
		return model.JobStatus{}, false
	}
	return j.Status(e.nowMS()), true
}

// Summary returns the identity and original request of a job.
func (e *Engine) Summary(id string) (model.JobSummary, bool) {
	j, ok := e.registry.Get(id)
	if !ok {
		return model.JobSummary{}, false
	}
	return j.Summary(), true
}

// StatusesByKind projects every job of kind in submission order.
func (e *Engine) StatusesByKind(kind model.JobKind) []model.JobStatus {
	jobs := e.registry.ListByKind(kind)
	now := e.nowMS()
	out := make([]model.JobStatus, 0, len(jobs))
	for i := range jobs {
		out = append(out, jobs[i].Status(now))
	}
	return out
}

// Stats holds job counts.
type Stats struct {
	Total         int                    `json:"total"`
	ByKind        map[model.JobKind]int  `json:"by_kind"`
	ByState       map[model.JobState]int `json:"by_state"`
	ActiveRunners int                    `json:"active_runners"`
}

// Stats counts jobs by kind and by state.
func (e *Engine) Stats() Stats {
	s := Stats{
		ByKind:  make(map[model.JobKind]int),
		ByState: make(map[model.JobState]int),
	}
	for _, kind := range []model.JobKind{model.KindPerformance, model.KindDensity} {
		for _, j := range e.registry.ListByKind(kind) {
			s.Total++
			s.ByKind[kind]++
			s.ByState[j.State]++
		}
	}
	s.ActiveRunners = len(e.registry.Runners())
	return s
}
