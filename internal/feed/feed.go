package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PageCapture/backend/internal/api/ws"
	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/capture"
	"github.com/GriffinCanCode/PageCapture/backend/internal/storage"
)

// Config configures a feed run.
type Config struct {
	// ServerURL is the http base address of the capture server.
	ServerURL     string
	Interval      time.Duration
	HealthRetries int
	HealthMaxWait time.Duration
}

// DefaultConfig sends one job per second to a local server.
func DefaultConfig() Config {
	return Config{
		ServerURL:     "http://localhost:8080",
		Interval:      time.Second,
		HealthRetries: 10,
		HealthMaxWait: 5 * time.Second,
	}
}

// Failure is a job that ended with screenshot_error.
type Failure struct {
	RequestID string
	JobID     string
	Reason    string
}

// Report summarizes a run.
type Report struct {
	Saved    []string
	Failures []Failure
}

// Feed submits capture jobs over the stream endpoint and stores results.
type Feed struct {
	cfg    Config
	store  storage.Provider
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	lastMs int64
}

// New creates a feed writing screenshots to store.
func New(cfg Config, store storage.Provider, logger *zap.Logger) *Feed {
	def := DefaultConfig()
	if cfg.ServerURL == "" {
		cfg.ServerURL = def.ServerURL
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.HealthMaxWait <= 0 {
		cfg.HealthMaxWait = def.HealthMaxWait
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{cfg: cfg, store: store, logger: logger, now: time.Now}
}

// StreamURL maps the http base address to the stream endpoint.
func StreamURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/stream"
	return u.String(), nil
}

// Run waits for the server, sends every job at the configured interval and
// returns once each job produced a screenshot or an error.
func (f *Feed) Run(ctx context.Context, jobs []capture.Options) (Report, error) {
	if len(jobs) == 0 {
		return Report{}, errors.New("no jobs to send")
	}
	if err := WaitHealthy(ctx, f.cfg.ServerURL, f.cfg.HealthRetries, f.cfg.HealthMaxWait, f.logger); err != nil {
		return Report{}, err
	}

	streamURL, err := StreamURL(f.cfg.ServerURL)
	if err != nil {
		return Report{}, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		return Report{}, fmt.Errorf("dial %s: %w", streamURL, err)
	}
	defer conn.Close()

	// Unblocks the reader when ctx ends.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	done := make(chan struct{})
	defer close(done)

	results := make(chan ws.Outbound)
	readErr := make(chan error, 1)
	go f.readLoop(conn, results, readErr, done)

	go f.sendLoop(ctx, conn, jobs)

	var report Report
	for pending := len(jobs); pending > 0; {
		select {
		case msg := <-results:
			switch msg.Type {
			case ws.TypeScreenshot:
				key, err := f.save(ctx, msg)
				if err != nil {
					f.logger.Error("Failed to save screenshot", zap.String("job_id", msg.JobID), zap.Error(err))
					report.Failures = append(report.Failures, Failure{RequestID: msg.RequestID, JobID: msg.JobID, Reason: err.Error()})
				} else {
					f.logger.Info("Screenshot saved", zap.String("job_id", msg.JobID), zap.String("key", key))
					report.Saved = append(report.Saved, key)
				}
			case ws.TypeScreenshotError:
				f.logger.Warn("Capture failed", zap.String("job_id", msg.JobID), zap.String("reason", msg.Reason))
				report.Failures = append(report.Failures, Failure{RequestID: msg.RequestID, JobID: msg.JobID, Reason: msg.Reason})
			case ws.TypeError:
				// Every frame the feed sends is a job, so a generic error answers one of them.
				f.logger.Warn("Job rejected", zap.String("message", msg.Message))
				report.Failures = append(report.Failures, Failure{Reason: msg.Message})
			}
			pending--
		case err := <-readErr:
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			return report, fmt.Errorf("connection lost: %w", err)
		}
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return report, nil
}

// readLoop forwards terminal job frames.
func (f *Feed) readLoop(conn *websocket.Conn, results chan<- ws.Outbound, readErr chan<- error, done <-chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		msg, err := ws.DecodeOutbound(data)
		if err != nil {
			f.logger.Warn("Undecodable frame", zap.Error(err))
			continue
		}

		switch msg.Type {
		case ws.TypeScreenshot, ws.TypeScreenshotError, ws.TypeError:
			select {
			case results <- msg:
			case <-done:
				return
			}
		case ws.TypeSystem:
			f.logger.Info("Connected", zap.String("connection_id", msg.ConnectionID))
		case ws.TypeAccepted:
			f.logger.Debug("Job accepted",
				zap.String("request_id", msg.RequestID),
				zap.String("job_id", msg.JobID),
				zap.String("state", msg.State),
			)
		}
	}
}

func (f *Feed) sendLoop(ctx context.Context, conn *websocket.Conn, jobs []capture.Options) {
	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()

	for i := range jobs {
		if i > 0 {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}

		data, err := sonic.Marshal(ws.Inbound{
			Type:      ws.TypeScreenshot,
			RequestID: fmt.Sprintf("feed-%d", i+1),
			Options:   &jobs[i],
		})
		if err != nil {
			f.logger.Error("Failed to encode job", zap.Error(err))
			return
		}
		// Only data frame writer on conn.
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			f.logger.Warn("Failed to send job", zap.String("url", jobs[i].URL), zap.Error(err))
			return
		}
		f.logger.Info("Job sent", zap.Int("n", i+1), zap.String("url", jobs[i].URL))
	}
}

// save decodes the data URI and stores it as screenshot-<unix-ms>.<ext>.
func (f *Feed) save(ctx context.Context, msg ws.Outbound) (string, error) {
	img, err := capture.ParseDataURI(msg.Screenshot)
	if err != nil {
		return "", err
	}

	mt := mimetype.Detect(img.Data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("payload is %s, not an image", mt.String())
	}

	key := fmt.Sprintf("screenshot-%d%s", f.nextMillis(), mt.Extension())
	out, err := f.store.PutObject(ctx, storage.PutObjectInput{
		ObjectKey:   key,
		ContentType: mt.String(),
		Reader:      bytes.NewReader(img.Data),
	})
	if err != nil {
		return "", err
	}
	return out.ObjectKey, nil
}

// nextMillis returns the current unix milliseconds, bumped past the last
// value so two results in the same millisecond get distinct names.
func (f *Feed) nextMillis() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ms := f.now().UnixMilli()
	if ms <= f.lastMs {
		ms = f.lastMs + 1
	}
	f.lastMs = ms
	return ms
}
