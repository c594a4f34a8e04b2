package http

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/capture"
	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/dispatch"
	"github.com/GriffinCanCode/PageCapture/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PageCapture/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PageCapture/backend/internal/shared/id"
	"github.com/GriffinCanCode/PageCapture/backend/internal/shared/utils"
	"github.com/GriffinCanCode/PageCapture/backend/internal/store"
)

const (
	serviceName    = "page-capture"
	serviceVersion = "0.1.0"
)

// Dispatcher is the part of dispatch.Dispatcher the handlers need.
type Dispatcher interface {
	Submit(owner string, opts capture.Options, deliver dispatch.Delivery) (id.JobID, dispatch.State, error)
	DropPending(owner string) int
	Stats() dispatch.Stats
}

// Handlers contains all HTTP handlers
type Handlers struct {
	dispatcher Dispatcher
	store      store.StatusStore
	metrics    *monitoring.Metrics
	validator  *utils.SizeValidator
	logger     *zap.Logger
}

// NewHandlers creates a new handler set. statusStore and metrics may be nil.
func NewHandlers(d Dispatcher, statusStore store.StatusStore, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		dispatcher: d,
		store:      statusStore,
		metrics:    metrics,
		validator:  utils.DefaultRequestValidator(),
		logger:     logger,
	}
}

// Root handles service info
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// Health reports dispatcher load. A closing dispatcher is unhealthy.
func (h *Handlers) Health(c *gin.Context) {
	stats := h.dispatcher.Stats()

	status, code := "healthy", http.StatusOK
	if stats.Closed {
		status, code = "closing", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"active":  stats.Active,
		"pending": stats.Pending,
		"limit":   stats.Limit,
	})
}

// Stats reports job totals and recent latency
func (h *Handlers) Stats(c *gin.Context) {
	stats := h.dispatcher.Stats()

	body := gin.H{
		"limit":     stats.Limit,
		"active":    stats.Active,
		"pending":   stats.Pending,
		"peak":      stats.Peak,
		"completed": stats.Completed,
		"failed":    stats.Failed,
		"closed":    stats.Closed,
		"p50Ms":     stats.P50.Milliseconds(),
		"p95Ms":     stats.P95.Milliseconds(),
	}
	if h.metrics != nil {
		body["service"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, body)
}

// Capture runs one job synchronously and answers with the image bytes.
// A client leaving while its job is still queued drops the job.
func (h *Handlers) Capture(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validator.ValidateSize(data); err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body is required"})
		return
	}

	var opts capture.Options
	if err := sonic.Unmarshal(data, &opts); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed capture options"})
		return
	}
	if err := utils.ValidateURLLength(opts.URL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	owner := id.NewRequestID().String()
	results := make(chan dispatch.Result, 1)
	jobID, _, err := h.dispatcher.Submit(owner, opts, func(res dispatch.Result) {
		results <- res
	})
	if err != nil {
		c.JSON(submitStatus(err), gin.H{"error": err.Error()})
		return
	}

	select {
	case res := <-results:
		if res.Err != nil {
			code := http.StatusBadGateway
			if errors.Is(res.Err, dispatch.ErrDropped) {
				code = http.StatusServiceUnavailable
			}
			c.JSON(code, gin.H{"error": res.Err.Error(), "jobId": jobID.String()})
			return
		}
		c.Header("X-Job-ID", jobID.String())
		c.Data(http.StatusOK, res.Image.MIME, res.Image.Data)

	case <-c.Request.Context().Done():
		dropped := h.dispatcher.DropPending(owner)
		fields := append(logging.Job(jobID.String(), owner, opts.URL), zap.Bool("dropped", dropped > 0))
		h.logger.Info("Capture client went away", fields...)
		c.Abort()
	}
}

func submitStatus(err error) int {
	switch {
	case errors.Is(err, capture.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, dispatch.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// JobStatus returns the last recorded state of a job
func (h *Handlers) JobStatus(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "job status store is disabled"})
		return
	}

	jobID := c.Param("id")
	if !id.IsJobID(jobID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	status, ok, err := h.store.GetStatus(c.Request.Context(), jobID)
	if err != nil {
		h.logger.Warn("Job status lookup failed", zap.String("job_id", jobID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status lookup failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, status)
}
