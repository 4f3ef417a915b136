package converter

import (
	"sync"
	"time"
)

// Report summarizes a finished run.
type Report struct {
	SchemaVersion   string        `json:"schemaVersion" yaml:"schemaVersion"`
	RunID           string        `json:"runId" yaml:"runId"`
	Directory       string        `json:"directory" yaml:"directory"`
	Outcome         Outcome       `json:"outcome" yaml:"outcome"`
	Error           string        `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt       time.Time     `json:"startedAt" yaml:"startedAt"`
	DurationSeconds float64       `json:"durationSeconds" yaml:"durationSeconds"`
	Summary         ReportSummary `json:"summary" yaml:"summary"`
	Files           []FileRecord  `json:"files" yaml:"files"`
}

// ReportSummary holds per-state counts for a run.
type ReportSummary struct {
	Total     int            `json:"total" yaml:"total"`
	Detected  int            `json:"detected" yaml:"detected"`
	Converted int            `json:"converted" yaml:"converted"`
	Failed    int            `json:"failed" yaml:"failed"`
	WithBOM   int            `json:"withBom" yaml:"withBom"`
	Encodings map[string]int `json:"encodings" yaml:"encodings"`
}

// HasFailures reports whether the run failed or any file failed.
func (r Report) HasFailures() bool {
	return r.Outcome == OutcomeFailed || r.Summary.Failed > 0
}

// NewReport builds a report from a run's finish info and its records.
func NewReport(info FinishInfo, records []FileRecord) Report {
	report := Report{
		SchemaVersion:   ReportSchemaVersion,
		RunID:           info.RunID,
		Directory:       info.Directory,
		Outcome:         info.Outcome,
		StartedAt:       info.StartedAt,
		DurationSeconds: info.Duration().Seconds(),
		Summary:         ReportSummary{Encodings: make(map[string]int)},
		Files:           append([]FileRecord{}, records...),
	}
	if info.Err != nil {
		report.Error = info.Err.Error()
	}
	for _, rec := range records {
		report.Summary.Total++
		report.Summary.Encodings[rec.EncodingName]++
		if rec.HasBOM {
			report.Summary.WithBOM++
		}
		switch rec.State {
		case StateDetected:
			report.Summary.Detected++
		case StateConverted:
			report.Summary.Converted++
		case StateFailed:
			report.Summary.Failed++
		}
	}
	return report
}

// ReportBuilder is an Observer that collects records and finish info into a
// Report. It is safe for concurrent use.
type ReportBuilder struct {
	mu       sync.Mutex
	records  []FileRecord
	info     FinishInfo
	finished bool
}

// NewReportBuilder returns an empty ReportBuilder.
func NewReportBuilder() *ReportBuilder {
	return &ReportBuilder{}
}

// OnProgress implements Observer.
func (b *ReportBuilder) OnProgress(record FileRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, record)
}

// OnFinished implements Observer.
func (b *ReportBuilder) OnFinished(info FinishInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.info = info
	b.finished = true
}

// Finished reports whether OnFinished has been received.
func (b *ReportBuilder) Finished() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finished
}

// Records returns a copy of the records received so far.
func (b *ReportBuilder) Records() []FileRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]FileRecord(nil), b.records...)
}

// Report returns the report for the records and finish info received so far.
func (b *ReportBuilder) Report() Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	return NewReport(b.info, b.records)
}
