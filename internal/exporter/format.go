package exporter

import (
	"strconv"
	"strings"

	apierrors "simdash/internal/errors"
	"simdash/pkg/contracts/domain"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx", case-insensitively. An empty string
// selects CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", apierrors.UnsupportedFormatError(s)
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Extension is the file name suffix for f, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Columns is the header of an exported point table.
var Columns = []string{
	"type",
	"timestamp",
	"total_seconds",
	"date",
	"stage_number",
	"stage_name",
	"name",
	"category",
	"shock_value",
	"period_kind",
	"end_timestamp",
	"end_total_seconds",
	"end_stage_name",
	"action_rule",
	"violation",
	"advice",
}

// PointRecord flattens p into one row matching Columns. Fields that do not
// apply to the point's kind are empty.
func PointRecord(p domain.PlotPoint) []string {
	loc := p.Location()
	record := []string{
		string(p.Kind),
		loc.Timestamp.Timestamp,
		formatUint(loc.Timestamp.TotalSeconds),
		loc.Timestamp.DateString,
		formatUint(loc.Stage.Number),
		loc.Stage.Name,
		"", "", "", "", "", "", "", "", "", "",
	}

	var info *domain.ErrorInfo
	switch p.Kind {
	case domain.PointAction:
		record[6], record[7], record[8] = p.Action.Name, p.Action.Category, p.Action.ShockValue
	case domain.PointMissedAction:
		record[6] = p.MissedAction.Name
		info = &p.MissedAction.ErrorInfo
	case domain.PointErroneousAction:
		e := p.ErroneousAction
		record[6], record[7], record[8] = e.Name, e.Category, e.ShockValue
		info = &e.ErrorInfo
	case domain.PointPeriod:
		record[9] = string(p.Period.Kind)
		record[10] = p.Period.End.Timestamp.Timestamp
		record[11] = formatUint(p.Period.End.Timestamp.TotalSeconds)
		record[12] = p.Period.End.Stage.Name
	}
	if info != nil {
		record[13], record[14], record[15] = info.ActionRule, info.Violation, info.Advice
	}
	return record
}

// SummaryRows renders s as label/value pairs.
func SummaryRows(s domain.ActionsSummary) [][]string {
	return [][]string{
		{"source", s.Source},
		{"rows_read", formatInt(s.RowsRead)},
		{"row_errors", formatInt(s.RowErrors)},
		{"actions", formatInt(s.Actions)},
		{"missed_actions", formatInt(s.MissedActions)},
		{"erroneous_actions", formatInt(s.ErroneousActions)},
		{"stage_periods", formatInt(s.StagePeriods)},
		{"cpr_periods", formatInt(s.CPRPeriods)},
		{"points", formatInt(s.Points())},
	}
}

func formatUint(u uint32) string {
	return strconv.FormatUint(uint64(u), 10)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}
