package cron

import (
	"context"
	"fmt"
)

// Job is one maintenance task executed by the cron worker on every cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) (Report, error)
}

// Report is what a job hands back to the scheduler after a run.
type Report struct {
	// Rows is the number of rows the job touched or counted.
	Rows int64
	// Fields are logged alongside the job completion line.
	Fields map[string]any
	// Alert, when set, is logged at warn level so operators notice.
	Alert string
}

// Registry holds jobs in run order. Names are unique because they label
// metrics and log lines.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry builds a registry from jobs, skipping nil entries.
func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{names: make(map[string]struct{}, len(jobs))}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends job, rejecting empty or duplicate names.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := job.Name()
	if name == "" {
		return fmt.Errorf("cron job name required")
	}
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	out := make([]Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}
