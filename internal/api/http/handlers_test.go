package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/capture"
	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/dispatch"
	"github.com/GriffinCanCode/PageCapture/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PageCapture/backend/internal/store"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func newRouter(t *testing.T, runner dispatch.Runner, limit int, statusStore store.StatusStore) (*gin.Engine, *dispatch.Dispatcher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var opts []dispatch.Option
	if statusStore != nil {
		opts = append(opts, dispatch.WithObserver(store.NewRecorder(statusStore, nil)))
	}
	d, err := dispatch.New(runner, limit, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = d.Close(ctx)
	})

	metrics := monitoring.NewMetrics()
	t.Cleanup(metrics.Close)

	h := NewHandlers(d, statusStore, metrics, nil)
	router := gin.New()
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/stats", h.Stats)
	router.POST("/captures", h.Capture)
	router.GET("/jobs/:id", h.JobStatus)
	return router, d
}

func pngRunner() dispatch.Runner {
	return dispatch.RunnerFunc(func(ctx context.Context, opts capture.Options) (capture.Image, error) {
		return capture.Image{Data: pngBytes, MIME: "image/png"}, nil
	})
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRootAndHealth(t *testing.T) {
	router, d := newRouter(t, pngRunner(), 3, nil)

	w := do(router, "GET", "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "online", decode(t, w)["status"])

	w = do(router, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(3), body["limit"])
	assert.Equal(t, float64(0), body["active"])

	require.NoError(t, d.Close(context.Background()))
	w = do(router, "GET", "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "closing", decode(t, w)["status"])
}

func TestCapture_ReturnsImage(t *testing.T) {
	router, _ := newRouter(t, pngRunner(), 1, nil)

	w := do(router, "POST", "/captures", `{"url":"https://example.com","withScroll":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Header().Get("X-Job-ID"), "job_"))
	assert.Equal(t, pngBytes, w.Body.Bytes())

	w = do(router, "GET", "/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["completed"])
	assert.Contains(t, body, "service")
}

func TestCapture_Errors(t *testing.T) {
	failing := dispatch.RunnerFunc(func(ctx context.Context, opts capture.Options) (capture.Image, error) {
		return capture.Image{}, capture.RendererError("navigate", errors.New("net::ERR_NAME_NOT_RESOLVED"))
	})
	router, _ := newRouter(t, failing, 1, nil)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"empty body", "", http.StatusBadRequest, "request body is required"},
		{"malformed", `{"url":`, http.StatusBadRequest, "malformed capture options"},
		{"missing url", `{"withScroll":true}`, http.StatusBadRequest, capture.ErrInvalidConfig.Error()},
		{"bad scheme", `{"url":"ftp://example.com"}`, http.StatusBadRequest, capture.ErrInvalidConfig.Error()},
		{"renderer failure", `{"url":"https://nowhere.invalid"}`, http.StatusBadGateway, capture.ErrRenderer.Error()},
		{"url too long", `{"url":"https://example.com/` + strings.Repeat("a", 10000) + `"}`, http.StatusBadRequest, "payload too large"},
		{"body too large", `{"url":"https://example.com/` + strings.Repeat("a", 70000) + `"}`, http.StatusRequestEntityTooLarge, "payload too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, "POST", "/captures", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, decode(t, w)["error"], tt.wantErr)
		})
	}
}

func TestCapture_ClosedDispatcher(t *testing.T) {
	router, d := newRouter(t, pngRunner(), 1, nil)
	require.NoError(t, d.Close(context.Background()))

	w := do(router, "POST", "/captures", `{"url":"https://example.com"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCapture_ClientGoneDropsQueuedJob(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	runner := dispatch.RunnerFunc(func(ctx context.Context, opts capture.Options) (capture.Image, error) {
		started <- struct{}{}
		<-release
		return capture.Image{Data: pngBytes, MIME: "image/png"}, nil
	})
	router, d := newRouter(t, runner, 1, nil)
	defer close(release)

	// Occupy the only slot.
	_, _, err := d.Submit("other", capture.DefaultOptions("https://example.com/busy"), nil)
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("POST", "/captures", strings.NewReader(`{"url":"https://example.com"}`)).WithContext(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}()

	require.Eventually(t, func() bool { return d.Stats().Pending == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after the client went away")
	}
	assert.Zero(t, d.Stats().Pending)
	assert.Equal(t, uint64(1), d.Stats().Failed)
}

func TestJobStatus(t *testing.T) {
	mem := store.NewMemoryStatusStore()
	router, _ := newRouter(t, pngRunner(), 1, mem)

	w := do(router, "POST", "/captures", `{"url":"https://example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	jobID := w.Header().Get("X-Job-ID")

	// The recorder runs on the notifier goroutine.
	require.Eventually(t, func() bool {
		status, ok, _ := mem.GetStatus(context.Background(), jobID)
		return ok && status.State == string(dispatch.StateCompleted)
	}, 2*time.Second, 5*time.Millisecond)

	w = do(router, "GET", "/jobs/"+jobID, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, jobID, body["jobId"])
	assert.Equal(t, "completed", body["state"])
	assert.Equal(t, "https://example.com", body["url"])

	w = do(router, "GET", "/jobs/not-a-job", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, "GET", "/jobs/job_01ARZ3NDEKTSV4RRFFQ69G5FAV", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobStatus_StoreDisabled(t *testing.T) {
	router, _ := newRouter(t, pngRunner(), 1, nil)

	w := do(router, "GET", "/jobs/job_01ARZ3NDEKTSV4RRFFQ69G5FAV", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
