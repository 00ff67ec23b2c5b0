package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"simdash/pkg/contracts/domain"
)

const (
	PointsSheet  = "Points"
	SummarySheet = "Summary"
)

// XLSXWriter builds a workbook with a Points sheet and, when WriteSummary is
// called, a Summary sheet. The workbook is written to the destination on Close.
type XLSXWriter struct {
	dest    io.Writer
	file    *excelize.File
	stream  *excelize.StreamWriter
	row     int
	summary *domain.ActionsSummary
	bold    int
}

// NewXLSXWriter prepares a workbook that will be written to w.
func NewXLSXWriter(w io.Writer) (*XLSXWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", PointsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	stream, err := f.NewStreamWriter(PointsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create stream writer: %w", err)
	}

	x := &XLSXWriter{dest: w, file: f, stream: stream, row: 1, bold: bold}
	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = excelize.Cell{StyleID: bold, Value: c}
	}
	if err := x.writeRow(header); err != nil {
		f.Close()
		return nil, err
	}
	return x, nil
}

// WritePoint appends one point to the Points sheet.
func (x *XLSXWriter) WritePoint(p domain.PlotPoint) error {
	record := PointRecord(p)
	row := make([]interface{}, len(record))
	for i, v := range record {
		row[i] = v
	}
	loc := p.Location()
	row[2] = loc.Timestamp.TotalSeconds
	row[4] = loc.Stage.Number
	if p.Kind == domain.PointPeriod {
		row[11] = p.Period.End.Timestamp.TotalSeconds
	}
	return x.writeRow(row)
}

// WriteSummary records s for the Summary sheet.
func (x *XLSXWriter) WriteSummary(s domain.ActionsSummary) error {
	x.summary = &s
	return nil
}

// Close finalizes the workbook and writes it out. Closing the destination is
// left to the caller unless it is an io.Closer.
func (x *XLSXWriter) Close() error {
	defer x.file.Close()

	if err := x.stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush points sheet: %w", err)
	}
	if x.summary != nil {
		if err := x.writeSummarySheet(*x.summary); err != nil {
			return err
		}
	}
	if err := x.file.Write(x.dest); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if closer, ok := x.dest.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (x *XLSXWriter) writeRow(values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return err
	}
	if err := x.stream.SetRow(cell, values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", x.row, err)
	}
	x.row++
	return nil
}

func (x *XLSXWriter) writeSummarySheet(s domain.ActionsSummary) error {
	if _, err := x.file.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	for i, pair := range SummaryRows(s) {
		label, _ := excelize.CoordinatesToCellName(1, i+1)
		value, _ := excelize.CoordinatesToCellName(2, i+1)
		if err := x.file.SetCellValue(SummarySheet, label, pair[0]); err != nil {
			return err
		}
		if err := x.file.SetCellValue(SummarySheet, value, pair[1]); err != nil {
			return err
		}
	}
	return x.file.SetCellStyle(SummarySheet, "A1", fmt.Sprintf("A%d", len(SummaryRows(s))), x.bold)
}
