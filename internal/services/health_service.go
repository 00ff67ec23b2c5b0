package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/spf13/afero"

	"simdash/internal/infrastructure"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	fs        afero.Fs
	dataDir   string
	catalogue SourceOpener
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                       `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Version   string                       `json:"version"`
	Runtime   *infrastructure.RuntimeStats `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth     `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds  float64 `json:"uptime_seconds"`
	DataSources    int     `json:"data_sources"`
	TotalFiles     int     `json:"total_files"`
	TotalSizeBytes int64   `json:"total_size_bytes"`
	GoVersion      string  `json:"go_version"`
	OS             string  `json:"os"`
	Arch           string  `json:"arch"`
}

// HealthOption configures a HealthService.
type HealthOption func(*HealthService)

// WithBuildTime records the build timestamp reported by Version.
func WithBuildTime(buildTime string) HealthOption {
	return func(hs *HealthService) { hs.buildTime = buildTime }
}

// WithHealthFs replaces the filesystem used to inspect the data directory.
func WithHealthFs(fs afero.Fs) HealthOption {
	return func(hs *HealthService) { hs.fs = fs }
}

// NewHealthService creates a health service for the catalogue rooted at dataDir.
func NewHealthService(version, dataDir string, catalogue SourceOpener, logger *slog.Logger, opts ...HealthOption) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	hs := &HealthService{
		version:   version,
		fs:        afero.NewOsFs(),
		dataDir:   dataDir,
		catalogue: catalogue,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
	for _, opt := range opts {
		opt(hs)
	}

	hs.logger.Debug("health service initialized",
		slog.String("version", version),
		slog.String("data_dir", dataDir))
	return hs
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether the data directory can be served.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"data": hs.checkDataHealth(),
		},
	}

	for name, service := range status.Services {
		if service.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "readiness check failed",
				slog.String("check", name),
				slog.String("message", service.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	stats := infrastructure.CollectRuntimeStats(hs.startTime)
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime:   &stats,
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

// SystemStats returns catalogue and process statistics
func (hs *HealthService) SystemStats(ctx context.Context) (SystemStats, error) {
	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}

	if hs.catalogue != nil {
		list, err := hs.catalogue.List(ctx)
		if err != nil {
			return stats, err
		}
		stats.DataSources = len(list)
	}

	err := afero.Walk(hs.fs, hs.dataDir, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			stats.TotalFiles++
			stats.TotalSizeBytes += info.Size()
		}
		return nil
	})
	return stats, err
}

func (hs *HealthService) checkDataHealth() ServiceHealth {
	info, err := hs.fs.Stat(hs.dataDir)
	switch {
	case os.IsNotExist(err):
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Data directory not found: %s", hs.dataDir),
		}
	case err != nil:
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Cannot read data directory: %v", err),
		}
	case !info.IsDir():
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Data path is not a directory: %s", hs.dataDir),
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: "Data directory is readable",
	}
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	result := map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
	}
	if stats, err := hs.SystemStats(ctx); err == nil {
		result["stats"] = stats
	} else {
		hs.logger.WarnContext(ctx, "failed to collect system stats", slog.String("error", err.Error()))
	}
	return result
}
