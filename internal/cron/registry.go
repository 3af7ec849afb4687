package cron

import "context"

// Job is one unit of scheduled maintenance work, such as the cart integrity
// sweep. Run is invoked once per cycle while the worker holds the lock.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs a worker cycle executes, in registration order.
// Names are unique; a job registered under an already-taken name is ignored
// so a wiring mistake cannot run the same sweep twice per cycle.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry builds a registry preloaded with the given jobs. Nil entries
// are skipped.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{names: make(map[string]struct{})}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register appends the job unless it is nil or its name is already taken.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	if _, taken := r.names[job.Name()]; taken {
		return
	}
	r.names[job.Name()] = struct{}{}
	r.jobs = append(r.jobs, job)
}

// Jobs returns a copy of the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	out := make([]Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}
