// Package pipeline runs one capture job end to end: open the page, wait for
// load, measure, plan, capture every planned step and stitch the result.
//
// The page is closed on every exit path. No timeout is applied to the load
// wait; a page that never signals completion holds its dispatcher slot until
// the job context is cancelled.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/capture"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Stitcher combines captured segments.
type Stitcher interface {
	Stitch(segments []capture.Segment) (capture.Image, error)
}

// Pipeline executes capture jobs against a renderer.
type Pipeline struct {
	renderer capture.Renderer
	stitcher Stitcher
	sleep    Sleeper
	logger   *zap.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithSleeper replaces the timer based sleeper.
func WithSleeper(s Sleeper) Option {
	return func(p *Pipeline) { p.sleep = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline.
func New(renderer capture.Renderer, stitcher Stitcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		renderer: renderer,
		stitcher: stitcher,
		sleep:    defaultSleeper,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run captures opts.URL and returns the stitched image.
func (p *Pipeline) Run(ctx context.Context, opts capture.Options) (capture.Image, error) {
	if err := opts.Validate(); err != nil {
		return capture.Image{}, err
	}

	page, err := p.renderer.Open(ctx, opts.URL)
	if err != nil {
		return capture.Image{}, capture.RendererError("open", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			p.logger.Warn("Failed to close page", zap.String("url", opts.URL), zap.Error(cerr))
		}
	}()

	if err := page.WaitLoaded(ctx); err != nil {
		return capture.Image{}, capture.RendererError("wait_loaded", err)
	}

	geom, err := page.Measure(ctx)
	if err != nil {
		return capture.Image{}, capture.RendererError("measure", err)
	}

	plan, err := capture.NewPlan(geom, opts)
	if err != nil {
		return capture.Image{}, err
	}
	p.logger.Debug("Capture planned",
		zap.String("url", opts.URL),
		zap.Int("page_width", geom.PageWidth),
		zap.Int("page_height", geom.PageHeight),
		zap.Int("segments", len(plan.Steps)),
	)

	segments := make([]capture.Segment, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		seg, err := p.captureStep(ctx, page, plan, step)
		if err != nil {
			return capture.Image{}, err
		}
		segments = append(segments, seg)
	}

	return p.stitcher.Stitch(segments)
}

func (p *Pipeline) captureStep(ctx context.Context, page capture.Page, plan capture.Plan, step capture.Step) (capture.Segment, error) {
	if plan.Scroll {
		if err := page.ScrollTo(ctx, step.OffsetY); err != nil {
			return capture.Segment{}, capture.RendererError("scroll", err)
		}
	}
	if step.StripFixed {
		if err := page.StripFixedElements(ctx); err != nil {
			return capture.Segment{}, capture.RendererError("strip_fixed", err)
		}
		if err := p.sleep(ctx, step.StripSettle); err != nil {
			return capture.Segment{}, capture.RendererError("strip_settle", err)
		}
	}
	if step.Settle > 0 {
		if err := p.sleep(ctx, step.Settle); err != nil {
			return capture.Segment{}, capture.RendererError("scroll_settle", err)
		}
	}

	data, err := page.CaptureRect(ctx, step.OffsetY, plan.Width, step.Height)
	if err != nil {
		return capture.Segment{}, capture.RendererError("capture", err)
	}
	return capture.Segment{
		Image:   data,
		OffsetY: step.OffsetY,
		Width:   plan.Width,
		Height:  step.Height,
	}, nil
}

func defaultSleeper(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
