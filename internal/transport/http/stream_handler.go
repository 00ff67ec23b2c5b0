package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	gorillaws "github.com/gorilla/websocket"

	"simdash/internal/config"
	apierrors "simdash/internal/errors"
	"simdash/internal/infrastructure"
	simmw "simdash/internal/middleware"
	"simdash/internal/services"
	"simdash/internal/websocket"
	"simdash/pkg/contracts/domain"
)

// StreamHandler pushes classified points over websocket connections
type StreamHandler struct {
	service      ActionsServiceInterface
	validator    *simmw.Validator
	errorHandler *apierrors.ErrorHandler
	upgrader     *gorillaws.Upgrader
	wsConfig     config.WebSocketConfig
	metrics      *infrastructure.Metrics
	logger       *slog.Logger
}

// NewStreamHandler creates a websocket stream handler. allowedOrigins uses
// the CORS origin list.
func NewStreamHandler(
	service ActionsServiceInterface,
	validator *simmw.Validator,
	errorHandler *apierrors.ErrorHandler,
	wsConfig config.WebSocketConfig,
	allowedOrigins []string,
	metrics *infrastructure.Metrics,
	logger *slog.Logger,
) *StreamHandler {
	return &StreamHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		upgrader:     websocket.NewUpgrader(wsConfig, allowedOrigins),
		wsConfig:     wsConfig,
		metrics:      metrics,
		logger:       logger.With(slog.String("component", "stream_handler")),
	}
}

// Routes returns the websocket routes, mounted under /ws
func (h *StreamHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/data-sources/{id}/actions", h.StreamActions)
	return r
}

// StreamActions handles GET /ws/data-sources/{id}/actions. Each point is
// one text frame; row failures arrive as non-fatal error frames and a
// complete frame carrying the summary ends a successful run.
func (h *StreamHandler) StreamActions(w http.ResponseWriter, r *http.Request) {
	req, err := parseSourceRequest(r, h.validator, h.service.MaxRowsLimit())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("source", req.ID),
			slog.String("error", err.Error()))
		return
	}

	session := websocket.NewSession(websocket.NewConnectionWrapper(conn), h.wsConfig, h.metrics, h.logger)
	h.logger.InfoContext(r.Context(), "websocket stream opened",
		slog.String("source", req.ID),
		slog.String("session_id", session.ID()))

	err = session.Run(r.Context(), func(ctx context.Context, s *websocket.Session) error {
		opts := services.ProcessOptions{
			MaxRowsToCheck: req.Options.MaxRowsToCheck,
			OnRowError: func(rowErr error) {
				if err := s.Send(ctx, websocket.NewErrorFrame(rowErr)); err != nil {
					h.logger.DebugContext(ctx, "failed to send row error frame",
						slog.String("source", req.ID),
						slog.String("error", err.Error()))
				}
			},
		}

		summary, err := h.service.ProcessDataSource(ctx, req.ID, opts, func(p domain.PlotPoint) error {
			return s.Send(ctx, p)
		})
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, websocket.ErrSessionClosed) {
				return err
			}
			return s.Send(ctx, websocket.NewErrorFrame(err))
		}
		return s.Send(ctx, websocket.NewCompleteFrame(summary))
	})
	if err != nil {
		h.logger.DebugContext(r.Context(), "websocket stream ended early",
			slog.String("source", req.ID),
			slog.String("error", err.Error()))
	}
}
