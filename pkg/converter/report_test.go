package converter_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stackvity/utf-cast/pkg/converter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleRecords() []converter.FileRecord {
	return []converter.FileRecord{
		{FullPath: "/d/a.txt", EncodingName: "Unicode", State: converter.StateConverted},
		{FullPath: "/d/b.txt", EncodingName: "UTF-8", HasBOM: true, State: converter.StateDetected},
		{FullPath: "/d/c.txt", EncodingName: "Default/ANSI", State: converter.StateFailed, ErrorMessage: "boom"},
		{FullPath: "/d/e.txt", EncodingName: "Default/ANSI", State: converter.StateConverted},
	}
}

func TestNewReport_Summary(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	info := converter.FinishInfo{
		RunID:      "run-1",
		Directory:  "/d",
		Outcome:    converter.OutcomeCompleted,
		Processed:  4,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	}
	report := converter.NewReport(info, sampleRecords())

	assert.Equal(t, converter.ReportSchemaVersion, report.SchemaVersion)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 1.5, report.DurationSeconds)
	assert.Equal(t, converter.ReportSummary{
		Total:     4,
		Detected:  1,
		Converted: 2,
		Failed:    1,
		WithBOM:   1,
		Encodings: map[string]int{"Unicode": 1, "UTF-8": 1, "Default/ANSI": 2},
	}, report.Summary)
	assert.True(t, report.HasFailures())
	assert.Empty(t, report.Error)
}

func TestNewReport_FailedRun(t *testing.T) {
	report := converter.NewReport(converter.FinishInfo{Outcome: converter.OutcomeFailed, Err: errors.New("walk failed")}, nil)
	assert.Equal(t, "walk failed", report.Error)
	assert.True(t, report.HasFailures())
	assert.Zero(t, report.Summary.Total)
	assert.NotNil(t, report.Files)
}

func TestNewReport_CleanRunHasNoFailures(t *testing.T) {
	report := converter.NewReport(converter.FinishInfo{Outcome: converter.OutcomeCancelled}, sampleRecords()[:2])
	assert.False(t, report.HasFailures())
}

func TestReport_SerializedFieldNames(t *testing.T) {
	report := converter.NewReport(converter.FinishInfo{RunID: "r", Outcome: converter.OutcomeCompleted}, sampleRecords()[2:3])

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	var asJSON map[string]any
	require.NoError(t, json.Unmarshal(raw, &asJSON))
	assert.Equal(t, "Completed", asJSON["outcome"])
	files := asJSON["files"].([]any)
	assert.Equal(t, "boom", files[0].(map[string]any)["error"])

	raw, err = yaml.Marshal(report)
	require.NoError(t, err)
	var asYAML map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &asYAML))
	assert.Equal(t, "r", asYAML["runId"])
	summary := asYAML["summary"].(map[string]any)
	assert.Equal(t, 1, summary["failed"])
}

func TestReportBuilder(t *testing.T) {
	b := converter.NewReportBuilder()
	assert.False(t, b.Finished())
	for _, r := range sampleRecords() {
		b.OnProgress(r)
	}
	b.OnFinished(converter.FinishInfo{RunID: "x", Outcome: converter.OutcomeCompleted})

	assert.True(t, b.Finished())
	assert.Len(t, b.Records(), 4)
	report := b.Report()
	assert.Equal(t, "x", report.RunID)
	assert.Equal(t, 4, report.Summary.Total)
}
