package capture

import "context"

// Renderer opens pages in a browser.
type Renderer interface {
	Open(ctx context.Context, url string) (Page, error)
}

// Page is one opened page. Close must be called exactly once.
type Page interface {
	// WaitLoaded blocks until the page signalled load completion.
	WaitLoaded(ctx context.Context) error
	Measure(ctx context.Context) (Geometry, error)
	ScrollTo(ctx context.Context, offsetY int) error
	StripFixedElements(ctx context.Context) error
	CaptureRect(ctx context.Context, offsetY, width, height int) ([]byte, error)
	Close() error
}
