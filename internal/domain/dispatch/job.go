package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/capture"
	"github.com/GriffinCanCode/PageCapture/backend/internal/shared/id"
)

var (
	ErrClosed  = errors.New("dispatcher is closed")
	ErrDropped = errors.New("job dropped before start")
)

// State is the lifecycle state of a job.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Runner executes one capture end to end.
type Runner interface {
	Run(ctx context.Context, opts capture.Options) (capture.Image, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, opts capture.Options) (capture.Image, error)

func (f RunnerFunc) Run(ctx context.Context, opts capture.Options) (capture.Image, error) {
	return f(ctx, opts)
}

// Result is handed to the submitter once a job ends. Jobs dropped from the
// queue end with ErrDropped and no image.
type Result struct {
	JobID    id.JobID
	Owner    string
	Options  capture.Options
	Image    capture.Image
	Err      error
	Duration time.Duration
}

// Delivery receives the result of a job. It runs on the job's goroutine.
type Delivery func(Result)

// Event is a snapshot taken at a state change.
type Event struct {
	JobID    id.JobID
	Owner    string
	URL      string
	State    State
	Err      error
	Active   int
	Pending  int
	Duration time.Duration
	At       time.Time
}

// Observer is notified of every job state change.
type Observer interface {
	JobEvent(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

func (f ObserverFunc) JobEvent(ev Event) { f(ev) }

type job struct {
	id         id.JobID
	owner      string
	opts       capture.Options
	deliver    Delivery
	enqueuedAt time.Time
	startedAt  time.Time
}
