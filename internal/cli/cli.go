// Package cli runs a conversion from resolved settings and presents the result.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stackvity/utf-cast/internal/cli/config"
	"github.com/stackvity/utf-cast/internal/cli/hooks"
	"github.com/stackvity/utf-cast/internal/cli/ui"
	"github.com/stackvity/utf-cast/pkg/converter"
)

var (
	// ErrRunCancelled is returned when the run was cancelled before it finished.
	ErrRunCancelled = errors.New("run cancelled")
	// ErrFilesFailed is returned when the run completed but some files could not be converted.
	ErrFilesFailed = errors.New("one or more files failed")
)

// teaProgram adapts *tea.Program to hooks.TUIProgram.
type teaProgram struct{ p *tea.Program }

func (t teaProgram) Send(msg interface{}) { t.p.Send(msg) }

// Run executes one conversion run for s and writes the final report to out.
// Run blocks until the run has finished and, in TUI mode, until the user
// has closed the interface.
func Run(ctx context.Context, s config.Settings, logger *slog.Logger, out io.Writer) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	controller := converter.NewController()
	builder := converter.NewReportBuilder()
	cliHooks := hooks.NewCLIHooks(logger, s.TuiEnabled, s.Verbose, nil)

	opts := s.RunOptions
	opts.Observer = converter.MultiObserver{builder, cliHooks}
	if opts.Logger == nil {
		opts.Logger = logger.Handler()
	}

	var (
		handleMu sync.Mutex
		handle   converter.RunHandle
	)
	cancelRun := func() {
		handleMu.Lock()
		h := handle
		handleMu.Unlock()
		controller.Cancel(h)
	}

	var (
		program *tea.Program
		tuiDone chan error
	)
	if s.TuiEnabled {
		model := ui.NewModel(s.AppVersion, s.Directory, cancelRun)
		program = tea.NewProgram(&model, tea.WithOutput(os.Stderr))
		cliHooks.SetProgram(teaProgram{p: program})
	}

	handleMu.Lock()
	h, err := controller.Start(ctx, opts)
	handle = h
	handleMu.Unlock()
	if err != nil {
		logger.Error("Failed to start run", slog.Any("error", err))
		return err
	}
	logger.Debug("Run started", slog.String("runId", h.ID()))

	if program != nil {
		tuiDone = make(chan error, 1)
		go func() {
			_, runErr := program.Run()
			// The user may force quit before the run has finished.
			cancelRun()
			tuiDone <- runErr
		}()
	}

	// The run observes ctx itself, so waiting without a deadline always returns.
	info, err := h.Wait(context.Background())
	if err != nil {
		return err
	}
	if tuiDone != nil {
		if tuiErr := <-tuiDone; tuiErr != nil {
			logger.Warn("Terminal UI exited with error", slog.Any("error", tuiErr))
		}
	}

	seen, failed := cliHooks.Counts()
	logger.Debug("Run observed", slog.String("runId", h.ID()), slog.Int("seen", seen), slog.Int("failed", failed))

	report := builder.Report()
	format := s.OutputFormat
	if format == "" {
		format = converter.OutputFormatText
	}
	if err := WriteReport(out, report, format, isTerminal(out)); err != nil {
		logger.Error("Failed to write report", slog.Any("error", err))
		return fmt.Errorf("writing report: %w", err)
	}

	switch {
	case info.Outcome == converter.OutcomeFailed:
		return info.Err
	case info.Outcome == converter.OutcomeCancelled:
		return ErrRunCancelled
	case report.Summary.Failed > 0:
		return fmt.Errorf("%w: %d of %d", ErrFilesFailed, report.Summary.Failed, report.Summary.Total)
	}
	return nil
}
