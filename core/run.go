package core

import "time"

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run records one execution of the pipeline over a dataset.
type Run struct {
	ID           string    `json:"id"`
	Dataset      string    `json:"dataset"`
	Status       RunStatus `json:"status"`
	Stage        string    `json:"stage"`
	Error        string    `json:"error,omitempty"`
	TotalTokens  int       `json:"total_tokens"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitzero"`
}

// Finished reports whether the run reached a terminal state.
func (r *Run) Finished() bool {
	return r.Status == RunSucceeded || r.Status == RunFailed
}
