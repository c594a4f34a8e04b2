package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/capture"
)

const (
	measureJS = `() => {
		const root = document.body || document.documentElement;
		return {
			width: root.scrollWidth,
			height: root.scrollHeight,
			viewport: window.innerHeight,
		};
	}`

	scrollJS = `(y) => window.scrollTo(0, y)`

	stripFixedJS = `() => {
		let removed = 0;
		for (const el of Array.from(document.querySelectorAll('body *'))) {
			const position = window.getComputedStyle(el).position;
			if (position === 'fixed' || position === 'sticky') {
				el.remove();
				removed++;
			}
		}
		return removed;
	}`
)

// page adapts a rod tab to capture.Page.
type page struct {
	tab     *rod.Page
	base    *rod.Page
	loaded  func()
	quality int
}

func (p *page) WaitLoaded(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.loaded()
		close(done)
	}()

	select {
	case <-done:
		// The waiter also returns when the open context ends.
		return p.tab.GetContext().Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *page) Measure(ctx context.Context) (capture.Geometry, error) {
	res, err := p.tab.Context(ctx).Eval(measureJS)
	if err != nil {
		return capture.Geometry{}, fmt.Errorf("measure: %w", err)
	}
	return capture.Geometry{
		PageWidth:      res.Value.Get("width").Int(),
		PageHeight:     res.Value.Get("height").Int(),
		ViewportHeight: res.Value.Get("viewport").Int(),
	}, nil
}

func (p *page) ScrollTo(ctx context.Context, offsetY int) error {
	if _, err := p.tab.Context(ctx).Eval(scrollJS, offsetY); err != nil {
		return fmt.Errorf("scroll to %d: %w", offsetY, err)
	}
	return nil
}

func (p *page) StripFixedElements(ctx context.Context) error {
	if _, err := p.tab.Context(ctx).Eval(stripFixedJS); err != nil {
		return fmt.Errorf("strip fixed elements: %w", err)
	}
	return nil
}

// CaptureRect takes a JPEG of the document rectangle at offsetY.
func (p *page) CaptureRect(ctx context.Context, offsetY, width, height int) ([]byte, error) {
	data, err := p.tab.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(p.quality),
		Clip: &proto.PageViewport{
			X:      0,
			Y:      float64(offsetY),
			Width:  float64(width),
			Height: float64(height),
			Scale:  1,
		},
		CaptureBeyondViewport: true,
	})
	if err != nil {
		return nil, fmt.Errorf("capture at %d: %w", offsetY, err)
	}
	return data, nil
}

func (p *page) Close() error {
	return p.base.Close()
}
