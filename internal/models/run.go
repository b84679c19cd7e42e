package models

import (
	"errors"
	"time"
)

// Run statuses.
const (
	RunRunning = "running"
	RunDone    = "done"
	RunSkipped = "skipped"
	RunFailed  = "failed"
)

// Run kinds.
const (
	KindFlatten = "flatten"
	KindExtract = "extract"
	KindPrePost = "prepost"
	KindCombine = "combine"
)

// Run records one processed scene in the run ledger.
type Run struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Scene      string     `json:"scene"`
	Workspace  string     `json:"workspace"`
	Options    string     `json:"options"` // JSON encoded options
	Status     string     `json:"status"`
	Outputs    int        `json:"outputs"`
	Message    string     `json:"message,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Validate checks that all run fields are valid.
func (r *Run) Validate() error {
	if r.ID == "" {
		return errors.New("run ID must not be empty")
	}
	switch r.Kind {
	case KindFlatten, KindExtract, KindPrePost, KindCombine:
	default:
		return errors.New("run kind must be one of flatten, extract, prepost, combine")
	}
	if r.Scene == "" {
		return errors.New("run scene must not be empty")
	}
	switch r.Status {
	case RunRunning, RunDone, RunSkipped, RunFailed:
	default:
		return errors.New("run status must be one of running, done, skipped, failed")
	}
	if r.Outputs < 0 {
		return errors.New("run outputs must not be negative")
	}
	if r.StartedAt.IsZero() {
		return errors.New("run started at must be set")
	}
	if r.FinishedAt != nil && r.FinishedAt.Before(r.StartedAt) {
		return errors.New("run finished at must be >= started at")
	}
	if r.Status == RunRunning && r.FinishedAt != nil {
		return errors.New("running run must not have finished at")
	}
	return nil
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
