package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/capture"
	"github.com/GriffinCanCode/PageCapture/backend/internal/infrastructure/resilience"
)

func TestResolveControlURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Browser":"HeadlessChrome/126.0","webSocketDebuggerUrl":"ws://127.0.0.1:9222/devtools/browser/abc"}`))
	}))
	defer srv.Close()

	client := resty.New()

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"http address", srv.URL, "ws://127.0.0.1:9222/devtools/browser/abc", false},
		{"trailing slash", srv.URL + "/", "ws://127.0.0.1:9222/devtools/browser/abc", false},
		{"websocket passthrough", "ws://browser:9222/devtools/browser/xyz", "ws://browser:9222/devtools/browser/xyz", false},
		{"secure websocket passthrough", "wss://browser/devtools/browser/xyz", "wss://browser/devtools/browser/xyz", false},
		{"unsupported scheme", "ftp://browser:9222", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveControlURL(context.Background(), client, tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveControlURL_BadResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, `{}`, "returned"},
		{"missing debugger url", http.StatusOK, `{"Browser":"HeadlessChrome/126.0"}`, "no webSocketDebuggerUrl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := ResolveControlURL(context.Background(), resty.New(), srv.URL)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

type fakePage struct{ closed bool }

func (p *fakePage) WaitLoaded(context.Context) error { return nil }
func (p *fakePage) Measure(context.Context) (capture.Geometry, error) {
	return capture.Geometry{PageWidth: 1280, PageHeight: 800, ViewportHeight: 800}, nil
}
func (p *fakePage) ScrollTo(context.Context, int) error { return nil }
func (p *fakePage) StripFixedElements(context.Context) error { return nil }
func (p *fakePage) CaptureRect(context.Context, int, int, int) ([]byte, error) {
	return []byte{0xff, 0xd8}, nil
}
func (p *fakePage) Close() error { p.closed = true; return nil }

func TestRenderer_OpenTripsBreaker(t *testing.T) {
	r := newRenderer(Config{Breaker: resilience.Settings{MaxFailures: 3}}, zap.NewNop())

	calls := 0
	errRefused := errors.New("dial devtools: connection refused")
	r.open = func(ctx context.Context, url string) (capture.Page, error) {
		calls++
		return nil, errRefused
	}

	for i := 0; i < 3; i++ {
		_, err := r.Open(context.Background(), "https://example.com")
		assert.ErrorIs(t, err, errRefused)
	}
	assert.Equal(t, resilience.StateOpen, r.BreakerState())

	_, err := r.Open(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 3, calls)
}

func TestRenderer_OpenReturnsPage(t *testing.T) {
	r := newRenderer(Config{}, nil)
	page := &fakePage{}
	r.open = func(ctx context.Context, url string) (capture.Page, error) {
		assert.Equal(t, "https://example.com", url)
		return page, nil
	}

	got, err := r.Open(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Same(t, page, got)
	assert.Equal(t, resilience.StateClosed, r.BreakerState())
}

func TestNewRenderer_Defaults(t *testing.T) {
	r := newRenderer(Config{JPEGQuality: 400}, zap.NewNop())
	assert.Equal(t, 1280, r.cfg.ViewportWidth)
	assert.Equal(t, 800, r.cfg.ViewportHeight)
	assert.Equal(t, 75, r.cfg.JPEGQuality)
	assert.NoError(t, r.Close())
}
