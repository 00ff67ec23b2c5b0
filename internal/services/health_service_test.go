package services

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"simdash/internal/shared/testutil"
	"simdash/internal/sources"
)

func newHealthService(t *testing.T, fs afero.Fs, catalogue SourceOpener) *HealthService {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewHealthService("1.2.3", testDataDir, catalogue, logger,
		WithHealthFs(fs), WithBuildTime("2025-02-03T10:00:00Z"))
}

func TestHealthService_HealthAndLiveness(t *testing.T) {
	hs := newHealthService(t, afero.NewMemMapFs(), nil)

	health := hs.HealthCheck(context.Background())
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.3", health.Version)

	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	require.NotNil(t, live.Runtime)
	assert.Positive(t, live.Runtime.Goroutines)
}

func TestHealthService_ReadinessCheck(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(fs afero.Fs)
		status string
	}{
		{"missing data dir", func(afero.Fs) {}, "not_ready"},
		{"data path is a file", func(fs afero.Fs) {
			require.NoError(t, afero.WriteFile(fs, testDataDir, []byte("x"), 0644))
		}, "not_ready"},
		{"data dir present", func(fs afero.Fs) {
			require.NoError(t, fs.MkdirAll(testDataDir, 0755))
		}, "ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			tt.setup(fs)
			hs := newHealthService(t, fs, nil)

			status := hs.ReadinessCheck(context.Background())
			assert.Equal(t, tt.status, status.Status)
			assert.Equal(t, tt.status, status.Services["data"].Status)
		})
	}
}

func TestHealthService_SystemStats(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteDataSource(t, fs, testDataDir, "run-1", "abc")
	testutil.WriteDataSource(t, fs, testDataDir, "run-2", "abcdef")

	catalogue := new(MockSourceOpener)
	catalogue.On("List", mock.Anything).
		Return([]sources.DataSource{{ID: "run-1"}, {ID: "run-2"}}, nil)

	hs := newHealthService(t, fs, catalogue)
	stats, err := hs.SystemStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.DataSources)
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, int64(9), stats.TotalSizeBytes)
	assert.NotEmpty(t, stats.GoVersion)
}

func TestHealthService_DetailedHealth(t *testing.T) {
	catalogue := new(MockSourceOpener)
	catalogue.On("List", mock.Anything).Return(nil, errors.New("disk on fire"))

	hs := newHealthService(t, afero.NewMemMapFs(), catalogue)
	detail := hs.GetDetailedHealth(context.Background())

	assert.Contains(t, detail, "health")
	assert.Contains(t, detail, "readiness")
	assert.Contains(t, detail, "liveness")
	assert.NotContains(t, detail, "stats")
}

func TestHealthService_Version(t *testing.T) {
	hs := newHealthService(t, afero.NewMemMapFs(), nil)
	v := hs.Version()

	assert.Equal(t, "1.2.3", v["version"])
	assert.Equal(t, "2025-02-03T10:00:00Z", v["build_time"])
	assert.Contains(t, v, "go_version")
}
