package http

import (
	"net/http"

	apierrors "simdash/internal/errors"
)

// MetricsHandler exposes the Prometheus registry
type MetricsHandler struct {
	exporter     http.Handler
	errorHandler *apierrors.ErrorHandler
}

// NewMetricsHandler wraps the promhttp handler. A nil exporter means the
// Prometheus exporter is disabled and /metrics answers 503.
func NewMetricsHandler(exporter http.Handler, errorHandler *apierrors.ErrorHandler) *MetricsHandler {
	return &MetricsHandler{exporter: exporter, errorHandler: errorHandler}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusServiceUnavailable,
			"SERVICE_UNAVAILABLE",
			"Metrics exporter is disabled",
		))
		return
	}
	h.exporter.ServeHTTP(w, r)
}
