package testutil

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

// ActionLogHeader is the header row written by the simulator.
const ActionLogHeader = "Time Stamp[Hr:Min:Sec],Action/Vital Name,SubAction Time[Min:Sec],SubAction Name,Score,Old Value,New Value,Username,Speech Command"

// SampleSummary describes the points SampleActionLog classifies into.
var SampleSummary = struct {
	Actions, MissedActions, ErroneousActions, StagePeriods, CPRPeriods int
}{Actions: 3, MissedActions: 1, ErroneousActions: 1, StagePeriods: 2, CPRPeriods: 1}

// ActionLog joins rows under the header into a CSV document.
func ActionLog(rows ...string) string {
	var b strings.Builder
	b.WriteString(ActionLogHeader)
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(row)
		b.WriteByte('\n')
	}
	return b.String()
}

// StageLabel formats a stage as it appears in the Action/Vital Name column.
func StageLabel(n int, name string) string {
	return fmt.Sprintf("(%d) %s (action)", n, name)
}

// StageRow announces a stage.
func StageRow(ts string, n int, name string) string {
	return fmt.Sprintf("%s,%s,,,,,,,", ts, StageLabel(n, name))
}

// ActionRow records a performed action inside a stage.
func ActionRow(ts string, n int, stage, action string) string {
	return fmt.Sprintf("%s,%s,0:01,%s,,,,,", ts, StageLabel(n, stage), action)
}

// ErrorMarkerRow flags the action logged under the given stage label.
func ErrorMarkerRow(ts, target, rule, advice string) string {
	return fmt.Sprintf("%s,Rule,,%s,Action-Was-Performed,Error-Triggered,,%s,%s", ts, rule, target, advice)
}

// MissedActionRow records an action that was never performed.
func MissedActionRow(ts, action, target, rule, advice string) string {
	return fmt.Sprintf("%s,%s,,%s,Action-Was-Not-Performed,Error-Triggered,,%s,%s", ts, action, rule, target, advice)
}

// SampleActionLog is a small scenario touching every point kind.
func SampleActionLog() string {
	stage1 := StageLabel(1, "Stage 1")
	return ActionLog(
		StageRow("0:00:10", 1, "Stage 1"),
		ActionRow("0:00:12", 1, "Stage 1", "Defib (UNsynchronized Shock) 200J"),
		ErrorMarkerRow("0:00:13", stage1, "Check rhythm first", "Check the rhythm before shocking"),
		ActionRow("0:00:30", 1, "Stage 1", "Begin CPR"),
		ActionRow("0:00:40", 1, "Stage 1", "Select Epinephrine"),
		ActionRow("0:01:30", 1, "Stage 1", "Stop CPR"),
		MissedActionRow("0:01:40", "Give Oxygen", stage1, "Oxygen rule", "Give oxygen early"),
		StageRow("0:02:00", 2, "Stage 2"),
		ActionRow("0:02:05", 2, "Stage 2", "Pulse Check"),
		ActionRow("0:02:20", 2, "Stage 2", "order ekg"),
	)
}

// WriteDataSource stores content as <dataDir>/<id>/actions.csv on fs.
func WriteDataSource(t *testing.T, fs afero.Fs, dataDir, id, content string) {
	t.Helper()
	dir := filepath.Join(dataDir, id)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create data source dir: %v", err)
	}
	if err := afero.WriteFile(fs, filepath.Join(dir, "actions.csv"), []byte(content), 0o644); err != nil {
		t.Fatalf("write data source: %v", err)
	}
}
