package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "simdash/internal/errors"
	"simdash/pkg/contracts/domain"
)

func location(ts string, secs uint32, stage uint32, name string) domain.PlotLocation {
	return domain.PlotLocation{
		Timestamp: domain.RowTime{TotalSeconds: secs, DateString: "2025-02-03 " + ts, Timestamp: ts},
		Stage:     domain.Stage{Number: stage, Name: name},
	}
}

func samplePoints() []domain.PlotPoint {
	info := domain.ErrorInfo{ActionRule: "Check rhythm first", Violation: "Action-Was-Performed", Advice: "Check the rhythm"}
	return []domain.PlotPoint{
		domain.NewActionPoint(domain.Action{
			Location: location("00:00:40", 40, 1, "Stage 1"),
			Name:     "Select Epinephrine",
			Category: "Medication",
		}),
		domain.NewErroneousActionPoint(domain.ErroneousAction{
			Location:   location("00:00:12", 12, 1, "Stage 1"),
			Name:       "Defib (Unsynchronized Shock)",
			Category:   "Defib (Unsynchronized Shock)",
			ShockValue: "200J",
			ErrorInfo:  info,
		}),
		domain.NewMissedActionPoint(domain.MissedAction{
			Location:  location("00:01:40", 100, 1, "Stage 1"),
			Name:      "Give Oxygen",
			ErrorInfo: domain.ErrorInfo{ActionRule: "Oxygen rule", Violation: "Action-Was-Not-Performed", Advice: "Give oxygen early"},
		}),
		domain.NewPeriodPoint(domain.PeriodCPR,
			location("00:00:30", 30, 1, "Stage 1"),
			location("00:01:30", 90, 1, "Stage 1")),
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
		ok    bool
	}{
		{"", FormatCSV, true},
		{"csv", FormatCSV, true},
		{" CSV ", FormatCSV, true},
		{"xlsx", FormatXLSX, true},
		{"XLSX", FormatXLSX, true},
		{"pdf", "", false},
		{"xls", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if !tt.ok {
				require.Error(t, err)
				var apiErr *apierrors.APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "UNSUPPORTED_FORMAT", apiErr.ErrorCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_ContentTypeAndExtension(t *testing.T) {
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
	assert.Contains(t, FormatXLSX.ContentType(), "spreadsheetml")
	assert.Equal(t, ".csv", FormatCSV.Extension())
	assert.Equal(t, ".xlsx", FormatXLSX.Extension())
}

func TestPointRecord(t *testing.T) {
	points := samplePoints()

	tests := []struct {
		name  string
		point domain.PlotPoint
		want  []string
	}{
		{
			name:  "action",
			point: points[0],
			want: []string{"action", "00:00:40", "40", "2025-02-03 00:00:40", "1", "Stage 1",
				"Select Epinephrine", "Medication", "", "", "", "", "", "", "", ""},
		},
		{
			name:  "erroneous action",
			point: points[1],
			want: []string{"erroneous_action", "00:00:12", "12", "2025-02-03 00:00:12", "1", "Stage 1",
				"Defib (Unsynchronized Shock)", "Defib (Unsynchronized Shock)", "200J", "", "", "", "",
				"Check rhythm first", "Action-Was-Performed", "Check the rhythm"},
		},
		{
			name:  "missed action",
			point: points[2],
			want: []string{"missed_action", "00:01:40", "100", "2025-02-03 00:01:40", "1", "Stage 1",
				"Give Oxygen", "", "", "", "", "", "",
				"Oxygen rule", "Action-Was-Not-Performed", "Give oxygen early"},
		},
		{
			name:  "cpr period",
			point: points[3],
			want: []string{"period", "00:00:30", "30", "2025-02-03 00:00:30", "1", "Stage 1",
				"", "", "", "cpr", "00:01:30", "90", "Stage 1", "", "", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PointRecord(tt.point)
			assert.Len(t, got, len(Columns))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSummaryRows(t *testing.T) {
	rows := SummaryRows(domain.ActionsSummary{Source: "run-1", RowsRead: 10, Actions: 3, CPRPeriods: 1})

	assert.Equal(t, []string{"source", "run-1"}, rows[0])
	assert.Equal(t, []string{"rows_read", "10"}, rows[1])
	assert.Equal(t, []string{"points", "4"}, rows[len(rows)-1])
}
