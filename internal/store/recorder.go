package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/dispatch"
	"github.com/GriffinCanCode/PageCapture/backend/internal/infrastructure/logging"
)

const writeTimeout = 2 * time.Second

// Recorder writes every dispatcher event to a StatusStore. Write failures
// are logged and never reach the job.
type Recorder struct {
	store  StatusStore
	logger *zap.Logger
}

// NewRecorder creates a dispatcher observer backed by store.
func NewRecorder(store StatusStore, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, logger: logger}
}

// JobEvent implements dispatch.Observer.
func (r *Recorder) JobEvent(ev dispatch.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.store.SetStatus(ctx, StatusFromEvent(ev)); err != nil {
		fields := append(logging.Job(ev.JobID.String(), ev.Owner, ev.URL),
			zap.String("state", string(ev.State)),
			zap.Error(err),
		)
		r.logger.Warn("Failed to record job status", fields...)
	}
}
