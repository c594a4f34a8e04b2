package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/capture"
	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/stitch"
)

type fakePage struct {
	mu     sync.Mutex
	geom   capture.Geometry
	calls  []string
	failOn string
	closed int
}

func (p *fakePage) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	if p.failOn != "" && p.failOn == call {
		return errors.New("boom: " + call)
	}
	return nil
}

func (p *fakePage) WaitLoaded(ctx context.Context) error { return p.record("wait") }

func (p *fakePage) Measure(ctx context.Context) (capture.Geometry, error) {
	if err := p.record("measure"); err != nil {
		return capture.Geometry{}, err
	}
	return p.geom, nil
}

func (p *fakePage) ScrollTo(ctx context.Context, offsetY int) error {
	return p.record(fmt.Sprintf("scroll:%d", offsetY))
}

func (p *fakePage) StripFixedElements(ctx context.Context) error { return p.record("strip") }

func (p *fakePage) CaptureRect(ctx context.Context, offsetY, width, height int) ([]byte, error) {
	if err := p.record(fmt.Sprintf("capture:%d+%d", offsetY, height)); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

type fakeRenderer struct {
	page    *fakePage
	openErr error
	opened  []string
}

func (r *fakeRenderer) Open(ctx context.Context, url string) (capture.Page, error) {
	r.opened = append(r.opened, url)
	if r.openErr != nil {
		return nil, r.openErr
	}
	return r.page, nil
}

type sleepLog struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	return nil
}

func newTestPipeline(r capture.Renderer) (*Pipeline, *sleepLog) {
	sl := &sleepLog{}
	return New(r, stitch.New(0), WithSleeper(sl.sleep)), sl
}

func TestRunScrollExample(t *testing.T) {
	page := &fakePage{geom: capture.Geometry{PageWidth: 30, PageHeight: 2500, ViewportHeight: 1000}}
	renderer := &fakeRenderer{page: page}
	p, sl := newTestPipeline(renderer)

	opts := capture.DefaultOptions("https://example.com")
	opts.WithScroll = true
	opts.RemoveFixedElements = true

	img, err := p.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"wait", "measure",
		"scroll:0", "capture:0+1000",
		"scroll:1000", "strip", "capture:1000+1000",
		"scroll:2000", "capture:2000+500",
	}, page.calls)
	assert.Equal(t, []time.Duration{
		500 * time.Millisecond,
		capture.FixedElementSettle, 500 * time.Millisecond,
		500 * time.Millisecond,
	}, sl.sleeps)
	assert.Equal(t, 1, page.closed)

	cfg, err := png.DecodeConfig(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Width)
	assert.Equal(t, 2500, cfg.Height)
	assert.Equal(t, "image/png", img.MIME)
}

func TestRunWithoutScroll(t *testing.T) {
	page := &fakePage{geom: capture.Geometry{PageWidth: 10, PageHeight: 3000, ViewportHeight: 700}}
	p, sl := newTestPipeline(&fakeRenderer{page: page})

	img, err := p.Run(context.Background(), capture.DefaultOptions("https://example.com"))
	require.NoError(t, err)

	assert.Equal(t, []string{"wait", "measure", "capture:0+3000"}, page.calls)
	assert.Empty(t, sl.sleeps)
	assert.Equal(t, 1, page.closed)

	cfg, err := png.DecodeConfig(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Height)
}

func TestRunClosesPageOnFailure(t *testing.T) {
	for _, failOn := range []string{"wait", "measure", "scroll:1000", "strip", "capture:0+1000"} {
		t.Run(failOn, func(t *testing.T) {
			page := &fakePage{
				geom:   capture.Geometry{PageWidth: 10, PageHeight: 2500, ViewportHeight: 1000},
				failOn: failOn,
			}
			p, _ := newTestPipeline(&fakeRenderer{page: page})

			opts := capture.DefaultOptions("https://example.com")
			opts.WithScroll = true
			opts.RemoveFixedElements = true

			_, err := p.Run(context.Background(), opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, capture.ErrRenderer))
			assert.Equal(t, 1, page.closed)
		})
	}
}

func TestRunClosesPageOnPlanError(t *testing.T) {
	page := &fakePage{geom: capture.Geometry{PageWidth: 10, PageHeight: 0, ViewportHeight: 1000}}
	p, _ := newTestPipeline(&fakeRenderer{page: page})

	_, err := p.Run(context.Background(), capture.DefaultOptions("https://example.com"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, capture.ErrInvalidConfig))
	assert.Equal(t, 1, page.closed)
}

func TestRunRejectsInvalidOptionsBeforeOpen(t *testing.T) {
	renderer := &fakeRenderer{page: &fakePage{}}
	p, _ := newTestPipeline(renderer)

	opts := capture.DefaultOptions("https://example.com")
	opts.ScrollFactor = 0

	_, err := p.Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, capture.ErrInvalidConfig))
	assert.Empty(t, renderer.opened)
}

func TestRunOpenFailure(t *testing.T) {
	p, _ := newTestPipeline(&fakeRenderer{openErr: errors.New("browser gone")})

	_, err := p.Run(context.Background(), capture.DefaultOptions("https://example.com"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, capture.ErrRenderer))
}

func TestDefaultSleeperCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := defaultSleeper(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, defaultSleeper(context.Background(), 0))
}
