package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "simdash/internal/errors"
	"simdash/internal/exporter"
	simmw "simdash/internal/middleware"
	"simdash/internal/services"
	"simdash/pkg/contracts/domain"
)

// sourceRequest holds the validated parameters of a data-source request
type sourceRequest struct {
	ID      string                  `json:"id" validate:"required,sourceid"`
	Options services.ProcessOptions `json:"-" validate:"-"`
}

type sourceRequestKey struct{}

// ActionsHandler serves classified action logs of the local catalogue with
// RFC 7807 errors
type ActionsHandler struct {
	service      ActionsServiceInterface
	validator    *simmw.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewActionsHandler creates a new actions handler
func NewActionsHandler(service ActionsServiceInterface, validator *simmw.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ActionsHandler {
	return &ActionsHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "actions_handler")),
	}
}

// Routes returns the data-source routes, mounted under /api/data-sources
func (h *ActionsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListDataSources)

	r.Route("/{id}/actions", func(r chi.Router) {
		r.Use(h.SourceCtx)
		r.Get("/", h.GetActions)
		r.Get("/raw", h.StreamActions)
		r.Get("/summary", h.GetSummary)
		r.Get("/export", h.ExportActions)
	})

	return r
}

// SourceCtx validates the source id and the max_rows query parameter
func (h *ActionsHandler) SourceCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := parseSourceRequest(r, h.validator, h.service.MaxRowsLimit())
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), sourceRequestKey{}, req)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func parseSourceRequest(r *http.Request, v *simmw.Validator, maxRowsLimit int) (sourceRequest, error) {
	req := sourceRequest{ID: chi.URLParam(r, "id")}
	if err := v.Struct(req); err != nil {
		return req, err
	}

	maxRows, err := v.QueryInt(r, "max_rows", 0, maxRowsLimit)
	if err != nil {
		return req, err
	}
	req.Options.MaxRowsToCheck = maxRows
	return req, nil
}

func getSourceRequest(ctx context.Context) sourceRequest {
	req, _ := ctx.Value(sourceRequestKey{}).(sourceRequest)
	return req
}

// ListDataSources handles GET /api/data-sources
func (h *ActionsHandler) ListDataSources(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListDataSources(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   list,
		"count":  len(list),
	})
}

// GetActions handles GET /api/data-sources/{id}/actions. Malformed rows are
// logged by the service and left out of the array.
func (h *ActionsHandler) GetActions(w http.ResponseWriter, r *http.Request) {
	req := getSourceRequest(r.Context())

	points, summary, err := h.service.CollectDataSource(r.Context(), req.ID, req.Options)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "actions served",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("source", req.ID),
		slog.Int("points", len(points)),
		slog.Int("row_errors", summary.RowErrors))

	render.JSON(w, r, points)
}

// StreamActions handles GET /api/data-sources/{id}/actions/raw. Points are
// written as one JSON array, flushed after every element. Failures before
// the first point become problem details; later ones truncate the array.
func (h *ActionsHandler) StreamActions(w http.ResponseWriter, r *http.Request) {
	req := getSourceRequest(r.Context())
	flusher, _ := w.(http.Flusher)

	started := false
	begin := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("["))
	}

	written := 0
	_, err := h.service.ProcessDataSource(r.Context(), req.ID, req.Options, func(p domain.PlotPoint) error {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}

		begin()
		if written > 0 {
			if _, err := w.Write([]byte(",")); err != nil {
				return err
			}
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		written++

		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		if !started {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.logger.ErrorContext(r.Context(), "action stream interrupted",
			slog.String("source", req.ID),
			slog.Int("points_written", written),
			slog.String("error", err.Error()))
		return
	}

	begin()
	w.Write([]byte("]"))
}

// GetSummary handles GET /api/data-sources/{id}/actions/summary
func (h *ActionsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	req := getSourceRequest(r.Context())

	summary, err := h.service.Summarize(r.Context(), req.ID, req.Options)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, summary)
}

// ExportActions handles GET /api/data-sources/{id}/actions/export?format=csv|xlsx
func (h *ActionsHandler) ExportActions(w http.ResponseWriter, r *http.Request) {
	req := getSourceRequest(r.Context())

	format, err := exporter.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// CSV bytes reach the client as soon as the writer exists, so it is
	// created lazily to keep early failures reportable as problem details.
	var pw exporter.PointWriter
	open := func() error {
		if pw != nil {
			return nil
		}
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="%s-actions%s"`, req.ID, format.Extension()))
		var err error
		pw, err = exporter.NewWriter(format, w)
		return err
	}

	summary, err := h.service.ProcessDataSource(r.Context(), req.ID, req.Options, func(p domain.PlotPoint) error {
		if err := open(); err != nil {
			return err
		}
		return pw.WritePoint(p)
	})
	if err == nil {
		err = open()
	}
	if err != nil {
		if pw == nil || format == exporter.FormatXLSX {
			w.Header().Del("Content-Disposition")
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.logger.ErrorContext(r.Context(), "export interrupted",
			slog.String("source", req.ID),
			slog.String("format", string(format)),
			slog.String("error", err.Error()))
		return
	}

	if err := exporter.WriteSummary(pw, summary); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := pw.Close(); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to finish export",
			slog.String("source", req.ID),
			slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(r.Context(), "actions exported",
		slog.String("source", req.ID),
		slog.String("format", string(format)),
		slog.Int("points", summary.Points()))
}
