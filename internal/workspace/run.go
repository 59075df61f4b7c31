package workspace

import (
	"time"

	"github.com/google/uuid"
)

// Run status values.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// Artifact describes a dataset a run read or wrote.
type Artifact struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
}

// Run records one execution of a pipeline stage.
type Run struct {
	ID         string     `json:"id"`
	Stage      string     `json:"stage"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Inputs     []Artifact `json:"inputs"`
	Outputs    []Artifact `json:"outputs"`
}

// BeginRun appends a running record for stage.
func (w *Workspace) BeginRun(stage string) *Run {
	r := &Run{
		ID:        uuid.NewString(),
		Stage:     stage,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	w.Runs = append(w.Runs, r)
	return r
}

// Finish marks the run done, or failed when err is non-nil.
func (r *Run) Finish(err error) {
	r.FinishedAt = time.Now()
	if err != nil {
		r.Status = StatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = StatusOK
}

// Duration is the wall time of a finished run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
