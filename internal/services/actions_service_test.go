package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"simdash/internal/config"
	"simdash/internal/dataprocessing"
	apierrors "simdash/internal/errors"
	"simdash/internal/infrastructure"
	"simdash/internal/shared/testutil"
	"simdash/internal/sources"
	"simdash/pkg/contracts/domain"
)

const testDataDir = "/data"

var processingConfig = config.ProcessingConfig{MaxRowsToCheck: 5, MaxRowsLimit: 100}

func newCatalogueService(t *testing.T, opts ...ActionsOption) (*ActionsService, afero.Fs, *testutil.CaptureHandler) {
	t.Helper()
	fs := afero.NewMemMapFs()
	logger, handler := testutil.NewTestLogger(t)
	resolver := sources.NewResolver(testDataDir, sources.WithFs(fs), sources.WithLogger(logger))
	return NewActionsService(resolver, processingConfig, logger, opts...), fs, handler
}

func intPtr(n int) *int { return &n }

func TestActionsService_ProcessDataSource(t *testing.T) {
	svc, fs, _ := newCatalogueService(t)
	testutil.WriteDataSource(t, fs, testDataDir, "020325", testutil.SampleActionLog())

	var points []domain.PlotPoint
	summary, err := svc.ProcessDataSource(context.Background(), "020325", ProcessOptions{},
		func(p domain.PlotPoint) error {
			points = append(points, p)
			return nil
		})
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, "020325", summary.Source)
	assert.Equal(t, 10, summary.RowsRead)
	assert.Zero(t, summary.RowErrors)
	assert.Equal(t, testutil.SampleSummary.Actions, summary.Actions)
	assert.Equal(t, testutil.SampleSummary.MissedActions, summary.MissedActions)
	assert.Equal(t, testutil.SampleSummary.ErroneousActions, summary.ErroneousActions)
	assert.Equal(t, testutil.SampleSummary.StagePeriods, summary.StagePeriods)
	assert.Equal(t, testutil.SampleSummary.CPRPeriods, summary.CPRPeriods)
	assert.Len(t, points, summary.Points())
}

func TestActionsService_CollectAndSummarize(t *testing.T) {
	svc, fs, _ := newCatalogueService(t)
	testutil.WriteDataSource(t, fs, testDataDir, "run-1", testutil.SampleActionLog())

	points, summary, err := svc.CollectDataSource(context.Background(), "run-1", ProcessOptions{})
	require.NoError(t, err)
	assert.Len(t, points, summary.Points())

	counted, err := svc.Summarize(context.Background(), "run-1", ProcessOptions{})
	require.NoError(t, err)
	assert.Equal(t, summary.Points(), counted.Points())
	assert.Equal(t, summary.Actions, counted.Actions)
}

func TestActionsService_EmptyLogCollectsEmptySlice(t *testing.T) {
	svc, fs, _ := newCatalogueService(t)
	testutil.WriteDataSource(t, fs, testDataDir, "empty", testutil.ActionLog())

	points, summary, err := svc.CollectDataSource(context.Background(), "empty", ProcessOptions{})
	require.NoError(t, err)
	assert.NotNil(t, points)
	assert.Empty(t, points)
	assert.Zero(t, summary.RowsRead)
}

func TestActionsService_Errors(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		content string
		opts    ProcessOptions
		errType apierrors.ErrorType
		is      error
	}{
		{name: "unknown source", id: "missing", errType: apierrors.ErrTypeNotFound},
		{name: "invalid id", id: "..", errType: apierrors.ErrTypeValidation},
		{
			name:    "header mismatch",
			id:      "bad-header",
			content: "Time,Action\n0:00:01,Pulse Check\n",
			errType: apierrors.ErrTypeParsing,
			is:      dataprocessing.ErrHeaderMismatch,
		},
		{
			name:    "empty file",
			id:      "blank",
			content: "",
			errType: apierrors.ErrTypeParsing,
			is:      dataprocessing.ErrHeaderMismatch,
		},
		{
			name:    "max rows above limit",
			id:      "ok",
			content: testutil.SampleActionLog(),
			opts:    ProcessOptions{MaxRowsToCheck: intPtr(101)},
			errType: apierrors.ErrTypeValidation,
		},
		{
			name:    "negative max rows",
			id:      "ok",
			content: testutil.SampleActionLog(),
			opts:    ProcessOptions{MaxRowsToCheck: intPtr(-1)},
			errType: apierrors.ErrTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, fs, _ := newCatalogueService(t)
			if tt.content != "" || tt.id == "blank" {
				testutil.WriteDataSource(t, fs, testDataDir, tt.id, tt.content)
			}

			summary, err := svc.ProcessDataSource(context.Background(), tt.id, tt.opts, nil)
			require.Error(t, err)
			assert.Nil(t, summary)
			assert.True(t, apierrors.IsType(err, tt.errType), "got %v", err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestActionsService_RowErrorsAreSkipped(t *testing.T) {
	svc, fs, logs := newCatalogueService(t)
	testutil.WriteDataSource(t, fs, testDataDir, "run-1", testutil.ActionLog(
		testutil.ActionRow("0:00:05", 1, "Stage 1", "Pulse Check"),
		"soon,Pulse Check,,,,,,,",
		testutil.ActionRow("0:00:09", 1, "Stage 1", "Order EKG"),
	))

	var rowErrs []error
	points, summary, err := svc.CollectDataSource(context.Background(), "run-1", ProcessOptions{
		OnRowError: func(err error) { rowErrs = append(rowErrs, err) },
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.RowsRead)
	assert.Equal(t, 1, summary.RowErrors)
	assert.Equal(t, 2, summary.Actions)
	assert.Len(t, points, 2)

	require.Len(t, rowErrs, 1)
	assert.ErrorIs(t, rowErrs[0], dataprocessing.ErrInvalidTimestamp)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "skipping malformed row")
}

func TestActionsService_MaxRowsOverride(t *testing.T) {
	svc, fs, _ := newCatalogueService(t)
	testutil.WriteDataSource(t, fs, testDataDir, "run-1", testutil.SampleActionLog())

	for _, n := range []int{0, 1, 100} {
		summary, err := svc.Summarize(context.Background(), "run-1", ProcessOptions{MaxRowsToCheck: intPtr(n)})
		require.NoError(t, err, "max_rows=%d", n)
		assert.Equal(t, 10, summary.RowsRead)
	}

	n, err := svc.ResolveMaxRows(ProcessOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 100, svc.MaxRowsLimit())
}

func TestActionsService_HandlerErrorStops(t *testing.T) {
	svc, fs, _ := newCatalogueService(t)
	testutil.WriteDataSource(t, fs, testDataDir, "run-1", testutil.SampleActionLog())

	errStop := errors.New("client went away")
	calls := 0
	summary, err := svc.ProcessDataSource(context.Background(), "run-1", ProcessOptions{},
		func(domain.PlotPoint) error {
			calls++
			return errStop
		})
	assert.ErrorIs(t, err, errStop)
	assert.Nil(t, summary)
	assert.Equal(t, 1, calls)
}

func TestActionsService_ContextCancelled(t *testing.T) {
	svc, fs, _ := newCatalogueService(t)
	testutil.WriteDataSource(t, fs, testDataDir, "run-1", testutil.SampleActionLog())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ProcessDataSource(ctx, "run-1", ProcessOptions{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestActionsService_Clock(t *testing.T) {
	day := time.Date(2025, 2, 3, 15, 4, 5, 0, time.UTC)
	svc, fs, _ := newCatalogueService(t, WithClock(func() time.Time { return day }))
	testutil.WriteDataSource(t, fs, testDataDir, "run-1", testutil.ActionLog(
		testutil.ActionRow("0:00:42", 1, "Stage 1", "Pulse Check"),
	))

	points, _, err := svc.CollectDataSource(context.Background(), "run-1", ProcessOptions{})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "2025-02-03 00:00:42", points[0].Location().Timestamp.DateString)
}

func TestActionsService_ProcessSource(t *testing.T) {
	opener := new(MockSourceOpener)
	opener.On("Open", mock.Anything, "https://example.test/run.csv").
		Return(io.NopCloser(strings.NewReader(testutil.SampleActionLog())), nil)
	opener.On("Open", mock.Anything, "gdrive://gone").
		Return(nil, apierrors.NewNotFoundError("drive file gone"))

	logger, _ := testutil.NewTestLogger(t)
	svc := NewActionsService(opener, processingConfig, logger)

	summary, err := svc.ProcessSource(context.Background(), "https://example.test/run.csv", ProcessOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/run.csv", summary.Source)
	assert.Equal(t, testutil.SampleSummary.Actions, summary.Actions)

	_, err = svc.ProcessSource(context.Background(), "gdrive://gone", ProcessOptions{}, nil)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeNotFound))

	opener.AssertExpectations(t)
}

func TestActionsService_CheckHeader(t *testing.T) {
	opener := new(MockSourceOpener)
	opener.On("Open", mock.Anything, "good.csv").
		Return(io.NopCloser(strings.NewReader(testutil.ActionLogHeader+",Extra\n")), nil)
	opener.On("Open", mock.Anything, "bad.csv").
		Return(io.NopCloser(strings.NewReader("a,b,c\n")), nil)

	svc := NewActionsService(opener, processingConfig, nil)

	assert.NoError(t, svc.CheckHeader(context.Background(), "good.csv"))

	err := svc.CheckHeader(context.Background(), "bad.csv")
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeParsing))
	assert.ErrorIs(t, err, dataprocessing.ErrHeaderMismatch)
}

func TestActionsService_ListDataSources(t *testing.T) {
	opener := new(MockSourceOpener)
	opener.On("List", mock.Anything).Return([]sources.DataSource{{ID: "a", Name: "a"}}, nil)

	svc := NewActionsService(opener, processingConfig, nil)
	list, err := svc.ListDataSources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []sources.DataSource{{ID: "a", Name: "a"}}, list)
}

func sumCounter(t *testing.T, rm metricdata.ResourceMetrics, name string, attr ...string) int64 {
	t.Helper()
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				if len(attr) == 2 {
					v, ok := dp.Attributes.Value(attribute.Key(attr[0]))
					if !ok || v.AsString() != attr[1] {
						continue
					}
				}
				total += dp.Value
			}
		}
	}
	return total
}

func TestActionsService_Telemetry(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	metrics, err := infrastructure.NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	svc, fs, _ := newCatalogueService(t, WithMetrics(metrics), WithTracer(tp.Tracer("test")))
	testutil.WriteDataSource(t, fs, testDataDir, "run-1", testutil.SampleActionLog())

	_, err = svc.Summarize(context.Background(), "run-1", ProcessOptions{})
	require.NoError(t, err)
	_, err = svc.Summarize(context.Background(), "missing", ProcessOptions{})
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	assert.Equal(t, int64(10), sumCounter(t, rm, "actions_rows_processed_total"))
	assert.Equal(t, int64(testutil.SampleSummary.Actions),
		sumCounter(t, rm, "actions_points_emitted_total", "kind", "action"))
	assert.Equal(t, int64(testutil.SampleSummary.CPRPeriods),
		sumCounter(t, rm, "actions_points_emitted_total", "kind", "period_cpr"))
	assert.Zero(t, sumCounter(t, rm, "actions_active_streams"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "actions.process", spans[0].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
