package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"simdash/internal/config"
	"simdash/internal/dataprocessing"
	apierrors "simdash/internal/errors"
	"simdash/internal/infrastructure"
	"simdash/internal/sources"
	"simdash/pkg/contracts/domain"
)

// SourceOpener opens action logs by reference or catalogue id.
type SourceOpener interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	OpenDataSource(ctx context.Context, id string) (io.ReadCloser, error)
	List(ctx context.Context) ([]sources.DataSource, error)
}

// PointHandler receives each classified point in stream order. Returning an
// error stops processing and the error is returned to the caller.
type PointHandler func(domain.PlotPoint) error

// ProcessOptions tunes one classification run.
type ProcessOptions struct {
	// MaxRowsToCheck overrides the configured lookback when non-nil.
	MaxRowsToCheck *int
	// OnRowError is called for every row that could not be deserialized.
	// Such rows are always skipped.
	OnRowError func(error)
}

// ActionsService classifies action logs into plot points.
type ActionsService struct {
	sources        SourceOpener
	maxRowsToCheck int
	maxRowsLimit   int
	tracer         trace.Tracer
	metrics        *infrastructure.Metrics
	logger         *slog.Logger
	now            func() time.Time
}

// ActionsOption configures an ActionsService.
type ActionsOption func(*ActionsService)

// WithTracer sets the tracer used for the per-stream span.
func WithTracer(t trace.Tracer) ActionsOption {
	return func(s *ActionsService) { s.tracer = t }
}

// WithMetrics records stream metrics on m.
func WithMetrics(m *infrastructure.Metrics) ActionsOption {
	return func(s *ActionsService) { s.metrics = m }
}

// WithClock fixes the calendar day used for row timestamps.
func WithClock(now func() time.Time) ActionsOption {
	return func(s *ActionsService) { s.now = now }
}

// NewActionsService creates the service.
func NewActionsService(src SourceOpener, cfg config.ProcessingConfig, logger *slog.Logger, opts ...ActionsOption) *ActionsService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ActionsService{
		sources:        src,
		maxRowsToCheck: cfg.MaxRowsToCheck,
		maxRowsLimit:   cfg.MaxRowsLimit,
		tracer:         otel.Tracer(infrastructure.MeterName),
		logger:         logger.With(slog.String("service", "actions")),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxRowsLimit is the largest accepted MaxRowsToCheck override.
func (s *ActionsService) MaxRowsLimit() int {
	return s.maxRowsLimit
}

// ListDataSources returns the local catalogue.
func (s *ActionsService) ListDataSources(ctx context.Context) ([]sources.DataSource, error) {
	return s.sources.List(ctx)
}

// ProcessDataSource classifies the action log of catalogue entry id.
func (s *ActionsService) ProcessDataSource(ctx context.Context, id string, opts ProcessOptions, fn PointHandler) (*domain.ActionsSummary, error) {
	return s.process(ctx, id, opts, fn, s.sources.OpenDataSource)
}

// ProcessSource classifies the action log behind ref, a URL, gdrive:// reference or path.
func (s *ActionsService) ProcessSource(ctx context.Context, ref string, opts ProcessOptions, fn PointHandler) (*domain.ActionsSummary, error) {
	return s.process(ctx, ref, opts, fn, s.sources.Open)
}

// CollectDataSource returns every point of catalogue entry id.
func (s *ActionsService) CollectDataSource(ctx context.Context, id string, opts ProcessOptions) ([]domain.PlotPoint, *domain.ActionsSummary, error) {
	points := []domain.PlotPoint{}
	summary, err := s.ProcessDataSource(ctx, id, opts, func(p domain.PlotPoint) error {
		points = append(points, p)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return points, summary, nil
}

// Summarize counts the points of catalogue entry id by kind.
func (s *ActionsService) Summarize(ctx context.Context, id string, opts ProcessOptions) (*domain.ActionsSummary, error) {
	return s.ProcessDataSource(ctx, id, opts, nil)
}

// CheckHeader opens ref and validates only its header row.
func (s *ActionsService) CheckHeader(ctx context.Context, ref string) error {
	rc, err := s.sources.Open(ctx, ref)
	if err != nil {
		return err
	}
	defer rc.Close()

	if _, err := dataprocessing.NewStream(rc); err != nil {
		return streamError(ref, err)
	}
	return nil
}

// ResolveMaxRows returns the lookback for opts, validating any override.
func (s *ActionsService) ResolveMaxRows(opts ProcessOptions) (int, error) {
	if opts.MaxRowsToCheck == nil {
		return s.maxRowsToCheck, nil
	}
	n := *opts.MaxRowsToCheck
	if n < 0 || n > s.maxRowsLimit {
		return 0, apierrors.NewAppValidationError(
			fmt.Sprintf("max_rows must be between 0 and %d", s.maxRowsLimit)).
			WithContext("max_rows", n)
	}
	return n, nil
}

type openFunc func(ctx context.Context, ref string) (io.ReadCloser, error)

func (s *ActionsService) process(ctx context.Context, ref string, opts ProcessOptions, fn PointHandler, open openFunc) (summary *domain.ActionsSummary, err error) {
	maxRows, err := s.ResolveMaxRows(opts)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "actions.process",
		trace.WithAttributes(
			attribute.String("source", ref),
			attribute.Int("max_rows_to_check", maxRows),
		))
	defer span.End()

	start := time.Now()
	summary = &domain.ActionsSummary{Source: ref}
	s.metrics.StreamStarted(ctx)
	defer func() {
		summary.Duration = time.Since(start)
		s.metrics.StreamFinished(ctx, summary.RowsRead, summary.RowErrors, summary.Duration, err)
		span.SetAttributes(
			attribute.Int("rows_read", summary.RowsRead),
			attribute.Int("row_errors", summary.RowErrors),
			attribute.Int("points", summary.Points()),
		)
		if err != nil {
			infrastructure.RecordError(ctx, err)
			summary = nil
		}
	}()

	rc, err := open(ctx, ref)
	if err != nil {
		return summary, err
	}
	defer rc.Close()

	stream, err := dataprocessing.NewStream(rc,
		dataprocessing.WithMaxRowsToCheck(maxRows),
		dataprocessing.WithLogger(s.logger.With(slog.String("source", ref))),
		dataprocessing.WithClock(s.now),
	)
	if err != nil {
		return summary, streamError(ref, err)
	}

	for point, perr := range stream.All() {
		summary.RowsRead = stream.RowsRead()
		summary.RowErrors = stream.RowErrors()

		if cerr := ctx.Err(); cerr != nil {
			return summary, cerr
		}

		if perr != nil {
			if !dataprocessing.IsRowError(perr) {
				return summary, apierrors.NewParsingError("failed to read action log", perr).
					WithContext("source", ref)
			}
			s.logger.WarnContext(ctx, "skipping malformed row",
				slog.String("source", ref),
				slog.String("error", perr.Error()))
			if opts.OnRowError != nil {
				opts.OnRowError(perr)
			}
			continue
		}

		summary.Add(point)
		s.metrics.RecordPoint(ctx, pointMetricKind(point))
		if fn != nil {
			if err := fn(point); err != nil {
				return summary, err
			}
		}
	}
	summary.RowsRead = stream.RowsRead()
	summary.RowErrors = stream.RowErrors()

	s.logger.DebugContext(ctx, "action log classified",
		slog.String("source", ref),
		slog.Int("rows_read", summary.RowsRead),
		slog.Int("row_errors", summary.RowErrors),
		slog.Int("points", summary.Points()))

	return summary, nil
}

func streamError(ref string, err error) error {
	var he *dataprocessing.HeaderError
	if errors.As(err, &he) {
		return apierrors.NewParsingError("invalid action log header", err).WithContext("source", ref)
	}
	return apierrors.NewStorageError("failed to read action log", err).WithContext("source", ref)
}

func pointMetricKind(p domain.PlotPoint) string {
	if p.Kind == domain.PointPeriod {
		return string(p.Kind) + "_" + string(p.Period.Kind)
	}
	return string(p.Kind)
}
