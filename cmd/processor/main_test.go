package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simdash/internal/exporter"
	"simdash/internal/shared/testutil"
	"simdash/internal/sources"
)

const testDataDir = "/data"

type result struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, fs afero.Fs, args ...string) result {
	t.Helper()
	t.Setenv("SIMDASH_SOURCES_DATA_DIR", testDataDir)
	t.Setenv("SIMDASH_SOURCES_ALLOW_REMOTE", "false")

	var stdout, stderr bytes.Buffer
	root := newRootCmd(fs, &stdout, &stderr)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func decodeLines(t *testing.T, out string) []pointLine {
	t.Helper()
	var lines []pointLine
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var line pointLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line), scanner.Text())
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	return lines
}

func samplePoints() int {
	s := testutil.SampleSummary
	return s.Actions + s.MissedActions + s.ErroneousActions + s.StagePeriods + s.CPRPeriods
}

func newSampleFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	testutil.WriteDataSource(t, fs, testDataDir, "run-1", testutil.SampleActionLog())
	testutil.WriteDataSource(t, fs, testDataDir, "run-2", testutil.SampleActionLog())
	return fs
}

func TestProcess_PrintsJSONLines(t *testing.T) {
	fs := newSampleFs(t)

	res := execute(t, fs, "process", "/data/run-1/actions.csv")
	require.NoError(t, res.err, res.stderr)

	lines := decodeLines(t, res.stdout)
	require.Len(t, lines, samplePoints())
	for _, line := range lines {
		assert.Equal(t, "/data/run-1/actions.csv", line.Source)
	}
}

func TestProcess_CatalogueSourcesConcurrently(t *testing.T) {
	fs := newSampleFs(t)

	res := execute(t, fs, "process", "--catalogue", "--jobs", "2", "run-1", "run-2")
	require.NoError(t, res.err, res.stderr)

	perSource := make(map[string]int)
	for _, line := range decodeLines(t, res.stdout) {
		perSource[line.Source]++
	}
	assert.Equal(t, map[string]int{"run-1": samplePoints(), "run-2": samplePoints()}, perSource)
}

func TestProcess_ExportCSV(t *testing.T) {
	fs := newSampleFs(t)

	res := execute(t, fs, "process", "--format", "csv", "--out", "/out", "/data/run-1/actions.csv")
	require.NoError(t, res.err, res.stderr)
	assert.Empty(t, res.stdout)

	data, err := afero.ReadFile(fs, "/out/data-run-1-actions-actions.csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\ufeff"+strings.Join(exporter.Columns, ",")))
	assert.Equal(t, samplePoints()+1, strings.Count(string(data), "\n"))
}

func TestProcess_ExportXLSX(t *testing.T) {
	fs := newSampleFs(t)

	res := execute(t, fs, "process", "--format", "xlsx", "--out", "/out", "--catalogue", "run-1")
	require.NoError(t, res.err, res.stderr)

	exists, err := afero.Exists(fs, "/out/run-1-actions.xlsx")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestProcess_FailedExportIsRemoved(t *testing.T) {
	fs := newSampleFs(t)
	require.NoError(t, afero.WriteFile(fs, "/data/bad.csv", []byte("Time,Action\n0:00:01,x\n"), 0o644))

	for _, format := range []string{"csv", "xlsx"} {
		t.Run(format, func(t *testing.T) {
			res := execute(t, fs, "process", "--format", format, "--out", "/out", "/data/bad.csv", "/data/run-1/actions.csv")
			require.Error(t, res.err)
			assert.Contains(t, res.err.Error(), "/data/bad.csv")

			exists, err := afero.Exists(fs, "/out/data-bad-actions."+format)
			require.NoError(t, err)
			assert.False(t, exists, "partial export left behind")

			exists, err = afero.Exists(fs, "/out/data-run-1-actions-actions."+format)
			require.NoError(t, err)
			assert.True(t, exists)
		})
	}
}

func TestProcess_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
		// points still printed for the healthy sources
		wantPoints int
	}{
		{
			name:       "missing source does not stop others",
			args:       []string{"process", "/data/missing.csv", "/data/run-1/actions.csv"},
			wantErr:    "/data/missing.csv",
			wantPoints: samplePoints(),
		},
		{
			name:    "max rows above limit",
			args:    []string{"process", "--max-rows", "100000", "/data/run-1/actions.csv"},
			wantErr: "max_rows must be between",
		},
		{
			name:    "unsupported format",
			args:    []string{"process", "--format", "pdf", "/data/run-1/actions.csv"},
			wantErr: "pdf",
		},
		{
			name:    "no sources",
			args:    []string{"process"},
			wantErr: "requires at least 1 arg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, newSampleFs(t), tt.args...)
			require.Error(t, res.err)
			assert.Contains(t, res.err.Error(), tt.wantErr)
			assert.Len(t, decodeLines(t, res.stdout), tt.wantPoints)
		})
	}
}

func TestCheckHeader(t *testing.T) {
	fs := newSampleFs(t)
	require.NoError(t, afero.WriteFile(fs, "/data/bad.csv", []byte("Time,Action\n"), 0o644))

	res := execute(t, fs, "check-header", "/data/run-1/actions.csv")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "ok   /data/run-1/actions.csv")

	res = execute(t, fs, "check-header", "/data/run-1/actions.csv", "/data/bad.csv")
	require.Error(t, res.err)
	assert.Contains(t, res.stdout, "FAIL /data/bad.csv")
	assert.Contains(t, res.stdout, "ok   /data/run-1/actions.csv")
}

func TestList(t *testing.T) {
	res := execute(t, newSampleFs(t), "list")
	require.NoError(t, res.err, res.stderr)

	var list []sources.DataSource
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "run-1", list[0].ID)
}

func TestExportName(t *testing.T) {
	tests := []struct {
		ref    string
		format exporter.Format
		want   string
	}{
		{"actions.csv", exporter.FormatCSV, "actions-actions.csv"},
		{"./logs/run 1/actions.csv", exporter.FormatXLSX, "logs-run-1-actions-actions.xlsx"},
		{"https://example.com/runs/a.csv", exporter.FormatCSV, "example.com-runs-a-actions.csv"},
		{"gdrive://1AbC", exporter.FormatCSV, "1AbC-actions.csv"},
		{"010225", exporter.FormatCSV, "010225-actions.csv"},
		{"///", exporter.FormatCSV, "source-actions.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, exportName(tt.ref, tt.format))
		})
	}
}
