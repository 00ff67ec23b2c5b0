package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"simdash/internal/config"
	"simdash/internal/infrastructure"
)

const (
	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Outbound frames buffered ahead of the write pump
	sendBufferSize = 256
)

// ErrSessionClosed is returned by Send once the write pump has stopped
var ErrSessionClosed = errors.New("websocket session closed")

// Producer generates the frames of a session through Send. It must return
// promptly once ctx is done.
type Producer func(ctx context.Context, s *Session) error

// Session streams server-produced frames to a single peer. A write pump
// serializes frames and pings; a read pump drains client frames and cancels
// the session when the peer goes away.
type Session struct {
	conn    Connection
	send    chan []byte
	id      string
	cfg     config.WebSocketConfig
	metrics *infrastructure.Metrics
	logger  *slog.Logger

	writerDone chan struct{}
	readerDone chan struct{}

	connectedAt      time.Time
	messagesSent     atomic.Int64
	bytesSent        atomic.Int64
	messagesReceived atomic.Int64
}

// NewSession prepares a session on conn. Zero durations and sizes in cfg
// fall back to the package defaults from config.
func NewSession(conn Connection, cfg config.WebSocketConfig, metrics *infrastructure.Metrics, logger *slog.Logger) *Session {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	id := uuid.New().String()
	return &Session{
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		id:      id,
		cfg:     withDefaults(cfg),
		metrics: metrics,
		logger: logger.With(
			slog.String("component", "websocket.session"),
			slog.String("session_id", id),
			slog.String("remote_addr", conn.RemoteAddr()),
		),
		writerDone:  make(chan struct{}),
		readerDone:  make(chan struct{}),
		connectedAt: time.Now(),
	}
}

func withDefaults(cfg config.WebSocketConfig) config.WebSocketConfig {
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = config.WebSocketWriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = config.WebSocketPongWait
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = (cfg.PongWait * 9) / 10
	}
	return cfg
}

// ID returns the session identifier used in logs
func (s *Session) ID() string {
	return s.id
}

// MessagesSent returns the number of frames written so far
func (s *Session) MessagesSent() int64 {
	return s.messagesSent.Load()
}

// Run starts both pumps, calls produce, and closes the connection once every
// queued frame and the close frame have been written. It returns produce's
// error. No goroutine outlives Run.
func (s *Session) Run(ctx context.Context, produce Producer) error {
	s.metrics.WebSocketOpened(ctx)
	defer s.metrics.WebSocketClosed(context.WithoutCancel(ctx))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer cancel()
		s.writePump(ctx)
	}()
	go func() {
		defer cancel()
		s.readPump(ctx)
	}()

	s.logger.DebugContext(ctx, "websocket session started")

	err := produce(ctx, s)
	close(s.send)

	<-s.writerDone
	s.conn.Close()
	<-s.readerDone

	s.logger.InfoContext(ctx, "websocket session closed",
		slog.Duration("connection_duration", time.Since(s.connectedAt)),
		slog.Int64("messages_sent", s.messagesSent.Load()),
		slog.Int64("bytes_sent", s.bytesSent.Load()),
		slog.Int64("messages_received", s.messagesReceived.Load()))
	return err
}

// Send queues v as one JSON text frame. It blocks while the buffer is full
// and fails once ctx is done or the write pump has stopped.
func (s *Session) Send(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	select {
	case s.send <- data:
		return nil
	case <-s.writerDone:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// writePump pumps queued frames to the connection and pings the peer
func (s *Session) writePump(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		close(s.writerDone)
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if !ok {
				// Producer finished
				s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.DebugContext(ctx, "error writing websocket frame",
					slog.String("error", err.Error()))
				return
			}
			s.messagesSent.Add(1)
			s.bytesSent.Add(int64(len(message)))

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.DebugContext(ctx, "failed to send ping message",
					slog.String("error", err.Error()))
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// readPump discards client frames until the peer closes or stops answering pings
func (s *Session) readPump(ctx context.Context) {
	defer close(s.readerDone)

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.WarnContext(ctx, "unexpected websocket close",
					slog.String("error", err.Error()))
			}
			return
		}
		s.messagesReceived.Add(1)
	}
}
