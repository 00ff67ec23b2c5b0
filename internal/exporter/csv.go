package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"simdash/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter streams plot points as CSV rows. The header is written on
// construction and every point is flushed as it is written.
type CSVWriter struct {
	writer *csv.Writer
	closer io.Closer
}

// NewCSVWriter writes the header row to w. A UTF-8 BOM is prepended when bom
// is set, which helps Excel recognize the encoding.
func NewCSVWriter(w io.Writer, bom bool) (*CSVWriter, error) {
	if bom {
		if _, err := w.Write(utf8BOM); err != nil {
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	c := &CSVWriter{writer: writer}
	if closer, ok := w.(io.Closer); ok {
		c.closer = closer
	}
	return c, nil
}

// WritePoint writes one point.
func (c *CSVWriter) WritePoint(p domain.PlotPoint) error {
	if err := c.writer.Write(PointRecord(p)); err != nil {
		return fmt.Errorf("failed to write %s point: %w", p.Kind, err)
	}
	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes pending output and closes the underlying writer when it is
// an io.Closer.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	err := c.writer.Error()
	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
