package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/stackvity/utf-cast/internal/cli/config"
	"github.com/stackvity/utf-cast/internal/testutil"
	"github.com/stackvity/utf-cast/pkg/converter"
)

func newSettings(dir string, format converter.OutputFormat) config.Settings {
	return config.Settings{
		RunOptions:   converter.DefaultRunOptions(dir),
		OutputFormat: format,
	}
}

func TestRun_TextReport(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "a.txt"), "plain")
	testutil.CreateDummyBytes(t, filepath.Join(dir, "sub", "b.txt"), []byte{0xEF, 0xBB, 0xBF, 'h', 'e', 'y'})

	var out bytes.Buffer
	err := Run(context.Background(), newSettings(dir, converter.OutputFormatText), nil, &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "converted a.txt (Default/ANSI)")
	assert.Contains(t, text, "converted sub/b.txt (UTF-8 +BOM)")
	assert.Contains(t, text, "Run Completed")
	assert.Contains(t, text, "Files: 2  Converted: 2  Detected: 0  Failed: 0  With BOM: 1")
	assert.NotContains(t, text, "\x1b[", "non-terminal output is not colored")

	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF, 'p', 'l', 'a', 'i', 'n'}, testutil.ReadFile(t, filepath.Join(dir, "a.txt")))
}

func TestRun_JSONReport(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "a.txt"), "plain")
	s := newSettings(dir, converter.OutputFormatJSON)
	s.DetectOnly = true

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), s, nil, &out))

	var report converter.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, converter.OutcomeCompleted, report.Outcome)
	assert.Equal(t, 1, report.Summary.Detected)
	require.Len(t, report.Files, 1)
	assert.Equal(t, converter.StateDetected, report.Files[0].State)
	assert.Equal(t, "plain", string(testutil.ReadFile(t, filepath.Join(dir, "a.txt"))), "detect-only leaves files untouched")
}

func TestRun_FileFailureReturnsError(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "a.txt"), "plain")

	converterMock := new(testutil.MockConverter)
	converterMock.On("Transcode", filepath.Join(dir, "a.txt"), "Default/ANSI", "UTF-8", true).Return(assert.AnError)
	s := newSettings(dir, converter.OutputFormatYAML)
	s.Converter = converterMock

	var out, logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	err := Run(context.Background(), s, logger, &out)
	require.ErrorIs(t, err, ErrFilesFailed)
	assert.Contains(t, logs.String(), `msg="Run observed"`)
	assert.Contains(t, logs.String(), "seen=1 failed=1")

	var report converter.Report
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 1, report.Summary.Failed)
	assert.True(t, report.HasFailures())
	converterMock.AssertExpectations(t)
}

func TestRun_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "a.txt"), "plain")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, newSettings(dir, converter.OutputFormatText), nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrRunCancelled)
	assert.Equal(t, "plain", string(testutil.ReadFile(t, filepath.Join(dir, "a.txt"))))
}

func TestRun_MissingDirectoryFails(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone")
	var out bytes.Buffer
	err := Run(context.Background(), newSettings(missing, converter.OutputFormatText), nil, &out)
	require.ErrorIs(t, err, converter.ErrWalkFailed)
	assert.Contains(t, out.String(), "Run Failed")
}

func TestRun_InvalidOptions(t *testing.T) {
	s := newSettings("", converter.OutputFormatText)
	err := Run(context.Background(), s, nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, converter.ErrConfigValidation)
}

func TestWriteReport_Formats(t *testing.T) {
	report := converter.Report{
		Directory: "/d",
		Outcome:   converter.OutcomeFailed,
		Error:     "walk failed",
		Summary:   converter.ReportSummary{Total: 1, Failed: 1, Encodings: map[string]int{"Unicode": 1}},
		Files: []converter.FileRecord{
			{FullPath: "/d/x.txt", EncodingName: "Unicode", State: converter.StateFailed, ErrorMessage: "denied"},
		},
	}

	var text bytes.Buffer
	require.NoError(t, WriteReport(&text, report, converter.OutputFormatText, false))
	assert.Contains(t, text.String(), "failed    x.txt (Unicode): denied")
	assert.Contains(t, text.String(), "Error: walk failed")
	assert.Contains(t, text.String(), "Unicode")

	var colored bytes.Buffer
	require.NoError(t, WriteReport(&colored, report, converter.OutputFormatText, true))
	assert.Contains(t, colored.String(), "\x1b[")

	var js bytes.Buffer
	require.NoError(t, WriteReport(&js, report, converter.OutputFormatJSON, false))
	assert.Contains(t, js.String(), `"outcome": "Failed"`)

	var ym bytes.Buffer
	require.NoError(t, WriteReport(&ym, report, converter.OutputFormatYAML, false))
	assert.Contains(t, ym.String(), "outcome: Failed")

	assert.Error(t, WriteReport(&bytes.Buffer{}, report, "xml", false))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f))
}
