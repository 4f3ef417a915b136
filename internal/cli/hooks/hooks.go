// Package hooks bridges converter run notifications to the CLI's UI layer.
package hooks

import (
	"io"
	"log/slog"
	"sync"

	"github.com/stackvity/utf-cast/pkg/converter"
)

// FileRecordMsg carries one processed file to the TUI.
type FileRecordMsg struct{ Record converter.FileRecord }

// RunFinishedMsg signals that the run is over and no further records follow.
type RunFinishedMsg struct{ Info converter.FinishInfo }

// TUIProgram defines the interface needed to interact with the Bubble Tea program.
type TUIProgram interface {
	Send(msg interface{})
}

// NoOpTUIProgram provides a default null implementation.
type NoOpTUIProgram struct{}

// Send implements TUIProgram.
func (n *NoOpTUIProgram) Send(msg interface{}) {}

// CLIHooks implements converter.Observer. In TUI mode every notification is
// forwarded to the Bubble Tea program; otherwise records are logged.
type CLIHooks struct {
	logger         *slog.Logger
	tuiEnabled     bool
	verboseEnabled bool

	mu         sync.Mutex
	tuiProgram TUIProgram
	processed  int
	failed     int
}

// NewCLIHooks creates a new CLIHooks instance. A nil tuiProg is replaced by a no-op.
func NewCLIHooks(logger *slog.Logger, tuiEnabled, verboseEnabled bool, tuiProg TUIProgram) *CLIHooks {
	if tuiProg == nil {
		tuiProg = &NoOpTUIProgram{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CLIHooks{
		logger:         logger.With(slog.String("component", "hooks")),
		tuiEnabled:     tuiEnabled,
		verboseEnabled: verboseEnabled,
		tuiProgram:     tuiProg,
	}
}

// SetProgram attaches the TUI program once it has been created. The program
// needs the hooks' cancel path, so it cannot always be passed to NewCLIHooks.
func (h *CLIHooks) SetProgram(p TUIProgram) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p == nil {
		p = &NoOpTUIProgram{}
	}
	h.tuiProgram = p
}

// Counts returns the number of records seen and how many of them failed.
func (h *CLIHooks) Counts() (processed, failed int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.processed, h.failed
}

// OnProgress implements converter.Observer.
func (h *CLIHooks) OnProgress(record converter.FileRecord) {
	h.mu.Lock()
	h.processed++
	if record.State == converter.StateFailed {
		h.failed++
	}
	prog := h.tuiProgram
	h.mu.Unlock()

	if h.tuiEnabled {
		prog.Send(FileRecordMsg{Record: record})
		return
	}

	attrs := []any{
		slog.String("path", record.FullPath),
		slog.String("encoding", record.EncodingName),
		slog.Bool("bom", record.HasBOM),
		slog.String("state", string(record.State)),
	}
	switch {
	case record.State == converter.StateFailed:
		h.logger.Error("File processing failed", append(attrs, slog.String("error", record.ErrorMessage))...)
	case h.verboseEnabled:
		h.logger.Info("File processed", attrs...)
	}
}

// OnFinished implements converter.Observer.
func (h *CLIHooks) OnFinished(info converter.FinishInfo) {
	h.mu.Lock()
	prog := h.tuiProgram
	h.mu.Unlock()

	if h.tuiEnabled {
		prog.Send(RunFinishedMsg{Info: info})
		return
	}
	if h.verboseEnabled {
		h.logger.Info("Run finished",
			slog.String("outcome", string(info.Outcome)),
			slog.Int("processed", info.Processed),
			slog.Duration("duration", info.Duration()))
	}
}
