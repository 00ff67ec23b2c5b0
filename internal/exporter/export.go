package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"simdash/internal/files"
	"simdash/pkg/contracts/domain"
)

// PointWriter receives classified points in stream order.
type PointWriter interface {
	WritePoint(p domain.PlotPoint) error
	Close() error
}

// SummaryWriter is implemented by writers that can embed a stream summary.
type SummaryWriter interface {
	WriteSummary(s domain.ActionsSummary) error
}

// NewWriter returns a PointWriter producing format f on w.
func NewWriter(f Format, w io.Writer) (PointWriter, error) {
	switch f {
	case FormatCSV:
		return NewCSVWriter(w, true)
	case FormatXLSX:
		return NewXLSXWriter(w)
	}
	return nil, fmt.Errorf("unsupported export format %q", f)
}

// Create opens name through m, truncating any existing file, and returns a
// writer that closes the file on Close.
func Create(m *files.Manager, name string, f Format, logger *slog.Logger) (PointWriter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	file, err := m.Create(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}

	w, err := NewWriter(f, file)
	if err != nil {
		file.Close()
		return nil, err
	}

	logger.Info("exporting points",
		slog.String("file", file.Name()),
		slog.String("format", string(f)))
	return w, nil
}

// WriteSummary embeds s when w supports it.
func WriteSummary(w PointWriter, s *domain.ActionsSummary) error {
	sw, ok := w.(SummaryWriter)
	if !ok || s == nil {
		return nil
	}
	return sw.WriteSummary(*s)
}
