// Package converter scans a directory tree, detects the character encoding of
// each matching file from its byte signature, and optionally rewrites each
// file in a target encoding. Runs execute on a background goroutine managed
// by a Controller and report progress through an Observer.
package converter

import (
	"context"
	"log/slog"
)

// Run performs a complete run synchronously and returns its report. A run
// that finishes with OutcomeFailed returns its error alongside the partial
// report. Cancelling ctx stops the run between files.
func Run(ctx context.Context, opts RunOptions) (Report, error) {
	builder := NewReportBuilder()
	if opts.Observer != nil {
		opts.Observer = MultiObserver{builder, opts.Observer}
	} else {
		opts.Observer = builder
	}

	handle, err := NewController().Start(ctx, opts)
	if err != nil {
		if opts.Logger != nil {
			slog.New(opts.Logger).Error("Failed to start run", slog.String("error", err.Error()))
		}
		return Report{}, err
	}
	// The run observes ctx itself, so waiting without a deadline always returns.
	info, err := handle.Wait(context.Background())
	if err != nil {
		return Report{}, err
	}
	report := builder.Report()
	if info.Outcome == OutcomeFailed {
		return report, info.Err
	}
	return report, nil
}
