package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var errInvalidHandle = errors.New("invalid run handle")

// RunHandle identifies one run started by a Controller.
type RunHandle struct {
	run *run
}

// ID returns the run's unique identifier, or "" for the zero handle.
func (h RunHandle) ID() string {
	if h.run == nil {
		return ""
	}
	return h.run.id
}

// Done is closed once the run's OnFinished notification has returned.
func (h RunHandle) Done() <-chan struct{} {
	if h.run == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return h.run.done
}

// Wait blocks until the run has finished and OnFinished has been delivered,
// or until ctx is done.
func (h RunHandle) Wait(ctx context.Context) (FinishInfo, error) {
	if h.run == nil {
		return FinishInfo{}, errInvalidHandle
	}
	select {
	case <-h.run.done:
		return h.run.info, nil
	case <-ctx.Done():
		return FinishInfo{}, ctx.Err()
	}
}

type run struct {
	id        string
	opts      resolvedOptions
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}
	info      FinishInfo // written before done is closed
}

func (r *run) isCancelled() bool {
	return r.cancelled.Load() || r.ctx.Err() != nil
}

// Controller starts and cancels runs. At most one run is active at a time.
type Controller struct {
	mu     sync.Mutex
	active *run
}

// NewController returns an idle Controller.
func NewController() *Controller {
	return &Controller{}
}

// Running reports whether a run is in progress.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Start validates and snapshots opts, then processes the matching files on a
// background goroutine. It returns ErrRunActive while another run is in
// progress and an error wrapping ErrConfigValidation for invalid options.
// Cancelling ctx cancels the run the same way Cancel does.
func (c *Controller) Start(ctx context.Context, opts RunOptions) (RunHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return RunHandle{}, ErrRunActive
	}
	resolved, err := resolve(opts)
	if err != nil {
		return RunHandle{}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		id:     uuid.NewString(),
		opts:   resolved,
		ctx:    runCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.active = r
	go c.execute(r)
	return RunHandle{run: r}, nil
}

// Cancel requests cooperative cancellation of the run behind handle. The file
// being processed completes; no further files are started. Cancel is a no-op
// when handle is not the active run.
func (c *Controller) Cancel(handle RunHandle) {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()
	if handle.run == nil || handle.run != active {
		return
	}
	active.cancelled.Store(true)
	active.cancel()
}

func (c *Controller) execute(r *run) {
	logger := slog.New(r.opts.Logger).With(slog.String("component", "controller"), slog.String("run_id", r.id))
	info := FinishInfo{RunID: r.id, Directory: r.opts.Directory, StartedAt: time.Now()}
	logger.Info("Starting run",
		slog.String("directory", r.opts.Directory),
		slog.String("pattern", r.opts.FilePattern),
		slog.Bool("recursive", r.opts.Recursive),
		slog.Bool("detectOnly", r.opts.DetectOnly),
		slog.String("target", r.opts.target.Name))

	// Unbuffered with an ack per record: file N+1 is not started until the
	// observer has returned from file N, so a Cancel issued from OnProgress
	// is seen before the next file.
	records := make(chan FileRecord)
	acks := make(chan struct{})
	delivered := make(chan struct{})
	go deliver(records, acks, r.opts.Observer, logger, delivered)

	info.Outcome, info.Processed, info.Err = c.scan(r, records, acks, logger)
	close(records)
	<-delivered
	info.FinishedAt = time.Now()
	r.cancel()

	c.mu.Lock()
	if c.active == r {
		c.active = nil
	}
	c.mu.Unlock()

	attrs := []any{
		slog.String("outcome", string(info.Outcome)),
		slog.Int("processed", info.Processed),
		slog.Duration("duration", info.Duration()),
	}
	if info.Err != nil {
		logger.Error("Run failed", append(attrs, slog.String("error", info.Err.Error()))...)
	} else {
		logger.Info("Run finished", attrs...)
	}

	notifyFinished(r.opts.Observer, info, logger)
	r.info = info
	close(r.done)
}

// scan enumerates and processes files until done, cancelled or failed. A
// panic is recovered into OutcomeFailed.
func (c *Controller) scan(r *run, records chan<- FileRecord, acks <-chan struct{}, logger *slog.Logger) (outcome Outcome, processed int, err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic recovered during run", slog.Any("panic", p))
			outcome, err = OutcomeFailed, fmt.Errorf("%w: %v", ErrRunPanicked, p)
		}
	}()

	walker, err := NewWalker(r.opts.RunOptions, r.opts.Logger)
	if err != nil {
		return OutcomeFailed, 0, err
	}
	paths, err := walker.Enumerate(r.ctx)
	if err != nil {
		if r.isCancelled() {
			return OutcomeCancelled, 0, nil
		}
		return OutcomeFailed, 0, err
	}
	logger.Debug("Files enumerated", slog.String("root", walker.Root()), slog.Int("count", len(paths)))

	processor := NewFileProcessor(r.opts.Detector, r.opts.Converter, r.opts.target, r.opts.WriteBOM, r.opts.DetectOnly, r.opts.Logger)
	for _, path := range paths {
		if r.isCancelled() {
			logger.Info("Run cancelled", slog.Int("processed", processed), slog.Int("remaining", len(paths)-processed))
			return OutcomeCancelled, processed, nil
		}
		records <- processor.ProcessFile(path)
		<-acks
		processed++
	}
	return OutcomeCompleted, processed, nil
}

func deliver(records <-chan FileRecord, acks chan<- struct{}, observer Observer, logger *slog.Logger, done chan<- struct{}) {
	defer close(done)
	for record := range records {
		notifyProgress(observer, record, logger)
		acks <- struct{}{}
	}
}

func notifyProgress(observer Observer, record FileRecord, logger *slog.Logger) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Observer panicked in OnProgress", slog.String("path", record.FullPath), slog.Any("panic", p))
		}
	}()
	observer.OnProgress(record)
}

func notifyFinished(observer Observer, info FinishInfo, logger *slog.Logger) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Observer panicked in OnFinished", slog.Any("panic", p))
		}
	}()
	observer.OnFinished(info)
}

func discardHandler() slog.Handler {
	return slog.NewTextHandler(io.Discard, nil)
}
