package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "simdash/internal/errors"
	"simdash/internal/files"
)

// Validator checks request structs and query parameters with validator/v10
// and reports failures as VALIDATION_FAILED API errors.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a validator with the sourceid tag registered
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New()
	v.RegisterValidation("sourceid", isSourceID)

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validate: v,
		logger:   logger.With(slog.String("component", "validator")),
	}
}

// Struct validates s against its validate tags
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apierrors.InvalidRequestWithError(err)
	}

	errs := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe.Field(), fe.Tag(), fe.Param()),
		})
	}
	return apierrors.NewValidationErrors(errs)
}

// QueryInt reads an optional integer query parameter bounded by min and max.
// A missing parameter yields nil.
func (v *Validator) QueryInt(r *http.Request, param string, min, max int) (*int, error) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return nil, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, v.fieldError(r, param, fmt.Sprintf("%s must be a valid integer", param))
	}

	tag := fmt.Sprintf("gte=%d,lte=%d", min, max)
	if err := v.validate.Var(n, tag); err != nil {
		return nil, v.fieldError(r, param, fmt.Sprintf("%s must be between %d and %d", param, min, max))
	}
	return &n, nil
}

// QueryEnum reads an optional query parameter restricted to allowed values
func (v *Validator) QueryEnum(r *http.Request, param string, allowed []string, defaultValue string) (string, error) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return defaultValue, nil
	}

	if err := v.validate.Var(raw, "oneof="+strings.Join(allowed, " ")); err != nil {
		return "", v.fieldError(r, param, formatValidationError(param, "oneof", strings.Join(allowed, " ")))
	}
	return raw, nil
}

func (v *Validator) fieldError(r *http.Request, field, message string) error {
	v.logger.DebugContext(r.Context(), "query parameter rejected",
		slog.String("field", field),
		slog.String("value", r.URL.Query().Get(field)))
	return apierrors.NewValidationErrors([]apierrors.ValidationError{{Field: field, Message: message}})
}

// formatValidationError formats validation error messages
func formatValidationError(field, tag, param string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "sourceid":
		return fmt.Sprintf("%s must be a valid data source id", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}

// isSourceID validates a catalogue folder name
func isSourceID(fl validator.FieldLevel) bool {
	return files.ValidateID(fl.Field().String()) == nil
}
