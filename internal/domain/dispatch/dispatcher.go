package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/capture"
	"github.com/GriffinCanCode/PageCapture/backend/internal/shared/id"
)

const (
	DefaultMaxConcurrent = 5

	recentWindow = 256
)

// Dispatcher runs capture jobs with bounded concurrency and FIFO queueing.
type Dispatcher struct {
	runner    Runner
	limit     int
	logger    *zap.Logger
	observers []Observer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	active     int
	peak       int
	pending    []*job
	closed     bool
	completed  uint64
	failed     uint64
	recent     []float64
	recentNext int

	events       []Event
	eventSignal  chan struct{}
	stopNotifier chan struct{}
	notifierDone chan struct{}
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithObserver registers an observer for job state changes.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observers = append(d.observers, o)
		}
	}
}

// New creates a dispatcher running at most maxConcurrent jobs at once.
func New(runner Runner, maxConcurrent int, opts ...Option) (*Dispatcher, error) {
	if runner == nil {
		return nil, fmt.Errorf("dispatch: runner is required")
	}
	if maxConcurrent < 1 {
		return nil, fmt.Errorf("dispatch: max concurrent must be >= 1, got %d", maxConcurrent)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		runner:       runner,
		limit:        maxConcurrent,
		logger:       zap.NewNop(),
		ctx:          ctx,
		cancel:       cancel,
		recent:       make([]float64, 0, recentWindow),
		eventSignal:  make(chan struct{}, 1),
		stopNotifier: make(chan struct{}),
		notifierDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	go d.notifyLoop()
	return d, nil
}

// Limit returns the concurrency limit.
func (d *Dispatcher) Limit() int {
	return d.limit
}

// Submit registers a capture job for owner. Invalid options are rejected
// before the job exists. The returned state is the one the job entered:
// running when a slot was free, queued otherwise.
func (d *Dispatcher) Submit(owner string, opts capture.Options, deliver Delivery) (id.JobID, State, error) {
	if err := opts.Validate(); err != nil {
		return "", "", err
	}

	j := &job{
		id:         id.NewJobID(),
		owner:      owner,
		opts:       opts,
		deliver:    deliver,
		enqueuedAt: time.Now(),
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return "", "", ErrClosed
	}
	state := StateQueued
	if d.active < d.limit {
		state = StateRunning
		d.startLocked(j)
	} else {
		d.pending = append(d.pending, j)
		d.emitLocked(j, StateQueued, nil, 0)
	}
	d.mu.Unlock()

	if state == StateRunning {
		go d.run(j)
	}

	d.logger.Debug("Job submitted",
		zap.String("job_id", j.id.String()),
		zap.String("owner", owner),
		zap.String("url", opts.URL),
		zap.String("state", string(state)),
	)
	return j.id, state, nil
}

// DropPending discards owner's queued jobs. Running jobs are unaffected.
// Each dropped job is delivered with ErrDropped.
func (d *Dispatcher) DropPending(owner string) int {
	d.mu.Lock()
	kept := d.pending[:0]
	var dropped []*job
	for _, j := range d.pending {
		if j.owner == owner {
			dropped = append(dropped, j)
			d.failed++
			d.emitLocked(j, StateFailed, ErrDropped, 0)
			continue
		}
		kept = append(kept, j)
	}
	for i := len(kept); i < len(d.pending); i++ {
		d.pending[i] = nil
	}
	d.pending = kept
	d.mu.Unlock()

	if len(dropped) > 0 {
		d.logger.Info("Dropped queued jobs", zap.String("owner", owner), zap.Int("count", len(dropped)))
	}
	d.deliverDropped(dropped)
	return len(dropped)
}

func (d *Dispatcher) deliverDropped(jobs []*job) {
	for _, j := range jobs {
		d.deliver(j, Result{
			JobID:   j.id,
			Owner:   j.owner,
			Options: j.opts,
			Err:     ErrDropped,
		})
	}
}

// startLocked claims a slot for j. Callers hold d.mu.
func (d *Dispatcher) startLocked(j *job) {
	d.active++
	if d.active > d.peak {
		d.peak = d.active
	}
	d.wg.Add(1)
	j.startedAt = time.Now()
	d.emitLocked(j, StateRunning, nil, 0)
}

// run executes j and then every job handed to this slot.
func (d *Dispatcher) run(j *job) {
	for j != nil {
		img, err := d.execute(j)
		duration := time.Since(j.startedAt)

		d.mu.Lock()
		state := StateCompleted
		if err != nil {
			state = StateFailed
			d.failed++
		} else {
			d.completed++
		}
		d.recordDurationLocked(duration)
		d.emitLocked(j, state, err, duration)
		d.mu.Unlock()

		if err != nil {
			d.logger.Warn("Job failed",
				zap.String("job_id", j.id.String()),
				zap.String("url", j.opts.URL),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			d.logger.Info("Job completed",
				zap.String("job_id", j.id.String()),
				zap.String("url", j.opts.URL),
				zap.Duration("duration", duration),
				zap.Int("bytes", len(img.Data)),
			)
		}

		d.deliver(j, Result{
			JobID:    j.id,
			Owner:    j.owner,
			Options:  j.opts,
			Image:    img,
			Err:      err,
			Duration: duration,
		})

		j = d.next()
	}
}

// next hands the finished slot to the queue head, or releases it.
func (d *Dispatcher) next() *job {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.active--
	d.wg.Done()
	if len(d.pending) == 0 || d.closed {
		return nil
	}

	j := d.pending[0]
	d.pending[0] = nil
	d.pending = d.pending[1:]
	d.startLocked(j)
	return j
}

func (d *Dispatcher) execute(j *job) (img capture.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.id, r)
		}
	}()
	return d.runner.Run(d.ctx, j.opts)
}

func (d *Dispatcher) deliver(j *job, res Result) {
	if j.deliver == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Result delivery panicked",
				zap.String("job_id", j.id.String()),
				zap.Any("panic", r),
			)
		}
	}()
	j.deliver(res)
}

// Close stops accepting jobs, drops the queue and waits for running jobs.
// When ctx expires first, running jobs are cancelled and ctx.Err() returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	dropped := d.pending
	for _, j := range dropped {
		d.failed++
		d.emitLocked(j, StateFailed, ErrDropped, 0)
	}
	d.pending = nil
	d.mu.Unlock()

	d.logger.Info("Dispatcher closing", zap.Int("dropped", len(dropped)))
	d.deliverDropped(dropped)

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	d.cancel()

	close(d.stopNotifier)
	<-d.notifierDone
	return err
}

// emitLocked queues an event for observers. Callers hold d.mu.
func (d *Dispatcher) emitLocked(j *job, state State, err error, duration time.Duration) {
	if len(d.observers) == 0 {
		return
	}
	d.events = append(d.events, Event{
		JobID:    j.id,
		Owner:    j.owner,
		URL:      j.opts.URL,
		State:    state,
		Err:      err,
		Active:   d.active,
		Pending:  len(d.pending),
		Duration: duration,
		At:       time.Now(),
	})
	select {
	case d.eventSignal <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) notifyLoop() {
	defer close(d.notifierDone)
	for {
		select {
		case <-d.eventSignal:
			d.flushEvents()
		case <-d.stopNotifier:
			d.flushEvents()
			return
		}
	}
}

func (d *Dispatcher) flushEvents() {
	d.mu.Lock()
	batch := d.events
	d.events = nil
	d.mu.Unlock()

	for _, ev := range batch {
		for _, o := range d.observers {
			o.JobEvent(ev)
		}
	}
}

func (d *Dispatcher) recordDurationLocked(duration time.Duration) {
	if len(d.recent) < recentWindow {
		d.recent = append(d.recent, duration.Seconds())
		return
	}
	d.recent[d.recentNext] = duration.Seconds()
	d.recentNext = (d.recentNext + 1) % recentWindow
}

// Stats is a point-in-time view of the dispatcher.
type Stats struct {
	Limit     int           `json:"limit"`
	Active    int           `json:"active"`
	Pending   int           `json:"pending"`
	Peak      int           `json:"peak"`
	Completed uint64        `json:"completed"`
	Failed    uint64        `json:"failed"`
	Closed    bool          `json:"closed"`
	P50       time.Duration `json:"p50"`
	P95       time.Duration `json:"p95"`
}

// Stats returns a snapshot; P50/P95 cover the most recent finished jobs.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	s := Stats{
		Limit:     d.limit,
		Active:    d.active,
		Pending:   len(d.pending),
		Peak:      d.peak,
		Completed: d.completed,
		Failed:    d.failed,
		Closed:    d.closed,
	}
	samples := append([]float64(nil), d.recent...)
	d.mu.Unlock()

	if len(samples) > 0 {
		sort.Float64s(samples)
		s.P50 = seconds(stat.Quantile(0.5, stat.Empirical, samples, nil))
		s.P95 = seconds(stat.Quantile(0.95, stat.Empirical, samples, nil))
	}
	return s
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
