package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/capture"
	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/dispatch"
	"github.com/GriffinCanCode/PageCapture/backend/internal/shared/id"
	"github.com/GriffinCanCode/PageCapture/backend/internal/shared/utils"
)

var (
	errSessionClosed = errors.New("session closed")
	errRateLimited   = errors.New("rate limit exceeded")
)

// Dispatcher is the part of dispatch.Dispatcher the handler needs.
type Dispatcher interface {
	Submit(owner string, opts capture.Options, deliver dispatch.Delivery) (id.JobID, dispatch.State, error)
	DropPending(owner string) int
}

// Recorder receives connection and message counts.
type Recorder interface {
	IncWSConnections()
	DecWSConnections()
	RecordWSMessage(direction, msgType string)
}

// Config tunes connection handling.
type Config struct {
	MessagesPerSecond float64
	MessageBurst      int
	ReadLimit         int64
	PongWait          time.Duration
	PingInterval      time.Duration
	WriteWait         time.Duration
}

// DefaultConfig returns the connection defaults.
func DefaultConfig() Config {
	return Config{
		MessagesPerSecond: 20,
		MessageBurst:      40,
		ReadLimit:         utils.MaxRequestSize,
		PongWait:          60 * time.Second,
		PingInterval:      54 * time.Second,
		WriteWait:         30 * time.Second,
	}
}

// Handler manages WebSocket connections
type Handler struct {
	dispatcher Dispatcher
	recorder   Recorder
	logger     *zap.Logger
	cfg        Config
	upgrader   websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. recorder may be nil.
func NewHandler(d Dispatcher, recorder Recorder, logger *zap.Logger, cfg Config) *Handler {
	def := DefaultConfig()
	if cfg.MessagesPerSecond <= 0 {
		cfg.MessagesPerSecond = def.MessagesPerSecond
	}
	if cfg.MessageBurst <= 0 {
		cfg.MessageBurst = def.MessageBurst
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = def.ReadLimit
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		cfg.PingInterval = cfg.PongWait * 9 / 10
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		dispatcher: d,
		recorder:   recorder,
		logger:     logger,
		cfg:        cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleConnection upgrades the request and serves capture jobs until the
// peer goes away. Jobs still queued for the connection are then dropped.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	s := &session{
		id:      uuid.NewString(),
		conn:    conn,
		h:       h,
		limiter: rate.NewLimiter(rate.Limit(h.cfg.MessagesPerSecond), h.cfg.MessageBurst),
		done:    make(chan struct{}),
	}
	h.recorder.IncWSConnections()
	h.logger.Info("Connection opened",
		zap.String("connection_id", s.id),
		zap.String("remote", c.ClientIP()),
	)

	defer func() {
		s.close()
		dropped := h.dispatcher.DropPending(s.id)
		h.recorder.DecWSConnections()
		h.logger.Info("Connection closed",
			zap.String("connection_id", s.id),
			zap.Int("dropped", dropped),
		)
	}()

	go s.keepalive()

	if err := s.send(Outbound{
		Type:         TypeSystem,
		Message:      "Connected to page capture service",
		ConnectionID: s.id,
	}); err != nil {
		return
	}

	s.readLoop()
}

// session is one client connection. Writes are serialized by writeMu.
type session struct {
	id      string
	conn    *websocket.Conn
	h       *Handler
	limiter *rate.Limiter

	writeMu sync.Mutex
	closed  bool

	done      chan struct{}
	closeOnce sync.Once
}

func (s *session) readLoop() {
	conn := s.conn
	conn.SetReadLimit(s.h.cfg.ReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(s.h.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.h.cfg.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.h.logger.Warn("WebSocket read error", zap.String("connection_id", s.id), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.h.cfg.PongWait))

		msg, decodeErr := DecodeInbound(data)

		if !s.limiter.Allow() {
			s.h.recorder.RecordWSMessage("in", "rate_limited")
			// A limited job still gets its own terminal frame.
			if decodeErr == nil && msg.Type == TypeScreenshot {
				_ = s.send(Outbound{
					Type:      TypeScreenshotError,
					RequestID: msg.RequestID,
					Reason:    errRateLimited.Error(),
				})
			} else {
				_ = s.sendError(errRateLimited.Error())
			}
			continue
		}

		if decodeErr != nil {
			s.h.recorder.RecordWSMessage("in", "malformed")
			_ = s.sendError("malformed message")
			continue
		}
		s.h.recorder.RecordWSMessage("in", msg.Type)

		switch msg.Type {
		case TypeScreenshot:
			s.submit(msg)
		case TypePing:
			_ = s.send(Outbound{Type: TypePong})
		default:
			_ = s.sendError("unknown message type")
		}
	}
}

// submit hands the job to the dispatcher. The write lock is held until the
// acknowledgement is written so the result can never overtake it.
func (s *session) submit(msg Inbound) {
	var opts capture.Options
	if msg.Options != nil {
		opts = *msg.Options
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := utils.ValidateURLLength(opts.URL)
	var (
		jobID id.JobID
		state dispatch.State
	)
	if err == nil {
		jobID, state, err = s.h.dispatcher.Submit(s.id, opts, s.deliverTo(msg.RequestID))
	}
	if err != nil {
		s.h.logger.Info("Job rejected",
			zap.String("connection_id", s.id),
			zap.String("url", opts.URL),
			zap.Error(err),
		)
		_ = s.writeLocked(Outbound{
			Type:      TypeScreenshotError,
			RequestID: msg.RequestID,
			Reason:    err.Error(),
		})
		return
	}

	_ = s.writeLocked(Outbound{
		Type:      TypeAccepted,
		JobID:     jobID.String(),
		RequestID: msg.RequestID,
		State:     string(state),
	})
}

func (s *session) deliverTo(requestID string) dispatch.Delivery {
	return func(res dispatch.Result) {
		out := Outbound{
			JobID:     res.JobID.String(),
			RequestID: requestID,
		}
		if res.Err != nil {
			out.Type = TypeScreenshotError
			out.Reason = res.Err.Error()
		} else {
			out.Type = TypeScreenshot
			out.URL = res.Options.URL
			out.Screenshot = res.Image.DataURI()
		}

		if err := s.send(out); err != nil {
			s.h.logger.Debug("Result discarded",
				zap.String("connection_id", s.id),
				zap.String("job_id", res.JobID.String()),
				zap.Error(err),
			)
		}
	}
}

func (s *session) send(msg Outbound) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.writeLocked(msg)
}

func (s *session) sendError(message string) error {
	return s.send(Outbound{Type: TypeError, Message: message})
}

// writeLocked writes one frame. Callers hold writeMu.
func (s *session) writeLocked(msg Outbound) error {
	if s.closed {
		return errSessionClosed
	}
	data, err := Encode(msg)
	if err != nil {
		return err
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(s.h.cfg.WriteWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	s.h.recorder.RecordWSMessage("out", msg.Type)
	return nil
}

func (s *session) keepalive() {
	ticker := time.NewTicker(s.h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(s.h.cfg.WriteWait)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()

		s.writeMu.Lock()
		s.closed = true
		s.writeMu.Unlock()
	})
}

type nopRecorder struct{}

func (nopRecorder) IncWSConnections() {}
func (nopRecorder) DecWSConnections() {}
func (nopRecorder) RecordWSMessage(string, string) {}
