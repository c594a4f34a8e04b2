// Package store keeps the last known status of every capture job so it can
// be looked up after the submitting connection is gone.
package store

import (
	"context"
	"time"

	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/dispatch"
)

// JobStatus is the persisted view of one job.
type JobStatus struct {
	JobID      string    `json:"jobId"`
	Owner      string    `json:"owner"`
	URL        string    `json:"url"`
	State      string    `json:"state"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"durationMs,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// StatusFromEvent converts a dispatcher event.
func StatusFromEvent(ev dispatch.Event) JobStatus {
	status := JobStatus{
		JobID:      ev.JobID.String(),
		Owner:      ev.Owner,
		URL:        ev.URL,
		State:      string(ev.State),
		DurationMs: ev.Duration.Milliseconds(),
		UpdatedAt:  ev.At.UTC(),
	}
	if ev.Err != nil {
		status.Error = ev.Err.Error()
	}
	return status
}

// StatusStore persists job status.
type StatusStore interface {
	SetStatus(ctx context.Context, status JobStatus) error
	GetStatus(ctx context.Context, jobID string) (JobStatus, bool, error)
}
