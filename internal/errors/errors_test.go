package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	err := New(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Metrics exporter is disabled")
	assert.Equal(t, "Metrics exporter is disabled", err.Error())
}

func TestAPIError_Render(t *testing.T) {
	err := New(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Metrics exporter is disabled")

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/actions/x", nil)

	require.NoError(t, render.Render(w, r, err))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "SERVICE_UNAVAILABLE", body["error_code"])
	assert.Equal(t, "Metrics exporter is disabled", body["message"])
}

func TestNewWithDetails(t *testing.T) {
	details := map[string]interface{}{"line": 3}
	err := NewWithDetails(http.StatusBadRequest, "UNSUPPORTED_FORMAT", "bad format", details)

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "UNSUPPORTED_FORMAT", err.ErrorCode)
	assert.Equal(t, details, err.Details)
}

func TestInvalidRequestWithError(t *testing.T) {
	err := InvalidRequestWithError(errors.New("max_rows must be a number"))

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "max_rows must be a number", err.Details)
}

func TestNewValidationErrors(t *testing.T) {
	fields := []ValidationError{
		{Field: "max_rows", Message: "must be at most 100"},
	}
	err := NewValidationErrors(fields)

	assert.Equal(t, "VALIDATION_FAILED", err.ErrorCode)
	details, ok := err.Details.(ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, fields, details.Errors)
}

func TestUnsupportedFormatError(t *testing.T) {
	err := UnsupportedFormatError("pdf")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "UNSUPPORTED_FORMAT", err.ErrorCode)
	assert.Contains(t, err.Message, `"pdf"`)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusNotFound, TypeSourceNotFound, "Data Source Not Found", "", "/api/v1/actions/x").
		WithExtension("trace_id", "req-1")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, TypeSourceNotFound, body["type"])
	assert.Equal(t, float64(http.StatusNotFound), body["status"])
	assert.Equal(t, "/api/v1/actions/x", body["instance"])
	assert.Equal(t, "req-1", body["trace_id"])
	assert.NotContains(t, body, "detail")
}

func TestProblemDetails_ExtensionCannotOverrideStatus(t *testing.T) {
	problem := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Validation Failed", "bad", "/x").
		WithExtension("status", 200)

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, float64(http.StatusBadRequest), body["status"])
}
