package converter

import "time"

// State is the processing state of a single file. It only moves forward:
// Detected, then optionally Converted or Failed.
type State string

const (
	StateDetected  State = "Detected"
	StateConverted State = "Converted"
	StateFailed    State = "Failed"
)

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeCompleted Outcome = "Completed"
	OutcomeCancelled Outcome = "Cancelled"
	OutcomeFailed    Outcome = "Failed"
)

// OutputFormat defines the format of the summary report printed when the TUI is disabled.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// FileRecord is the per-file result emitted to the observer. It is created
// when a candidate path is found and handed off once all fields are set.
type FileRecord struct {
	FullPath     string `json:"fullPath" yaml:"fullPath"`
	EncodingName string `json:"encoding" yaml:"encoding"`
	HasBOM       bool   `json:"hasBom" yaml:"hasBom"`
	State        State  `json:"state" yaml:"state"`
	ErrorMessage string `json:"error,omitempty" yaml:"error,omitempty"`
}

// FinishInfo is delivered exactly once per run, after the last FileRecord.
type FinishInfo struct {
	RunID      string
	Directory  string
	Outcome    Outcome
	Err        error // set when Outcome is OutcomeFailed
	Processed  int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is the wall-clock time the run took.
func (f FinishInfo) Duration() time.Duration { return f.FinishedAt.Sub(f.StartedAt) }
