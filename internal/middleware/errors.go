package middleware

import (
	"net/http"

	"github.com/go-chi/render"

	apierrors "simdash/internal/errors"
)

// ProblemFromStatus creates problem details for an HTTP status code
func ProblemFromStatus(status int, detail, instance string) *apierrors.ProblemDetails {
	var title, problemType string

	switch status {
	case http.StatusBadRequest:
		title, problemType = "Bad Request", apierrors.TypeValidation
	case http.StatusForbidden:
		title, problemType = "Forbidden", apierrors.TypeForbidden
	case http.StatusNotFound:
		title, problemType = "Not Found", apierrors.TypeNotFound
	case http.StatusTooManyRequests:
		title, problemType = "Too Many Requests", apierrors.TypeRateLimit
	case http.StatusServiceUnavailable:
		title, problemType = "Service Unavailable", apierrors.TypeServiceDown
	case http.StatusGatewayTimeout:
		title, problemType = "Gateway Timeout", apierrors.TypeTimeout
	case http.StatusInternalServerError:
		title, problemType = "Internal Server Error", apierrors.TypeInternal
	default:
		title, problemType = http.StatusText(status), "/errors/unknown"
	}

	return apierrors.NewProblemDetails(status, problemType, title, detail, instance)
}

// writeProblem renders an RFC 7807 response carrying the request's trace ID
func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	problem := ProblemFromStatus(status, detail, r.URL.Path)
	if traceID := GetRequestID(r.Context()); traceID != "" {
		problem.WithExtension("trace_id", traceID)
	}
	render.Render(w, r, problem)
}
