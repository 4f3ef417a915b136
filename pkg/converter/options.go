package converter

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/stackvity/utf-cast/pkg/converter/encoding"
	"github.com/stackvity/utf-cast/pkg/util"
)

// Observer receives run progress. OnProgress is called once per processed
// file in discovery order; OnFinished is called once per run after every
// OnProgress of that run. Both are called from a single delivery goroutine,
// never concurrently for the same run.
type Observer interface {
	OnProgress(record FileRecord)
	OnFinished(info FinishInfo)
}

// NoOpObserver discards all notifications.
type NoOpObserver struct{}

// OnProgress implements Observer.
func (NoOpObserver) OnProgress(FileRecord) {}

// OnFinished implements Observer.
func (NoOpObserver) OnFinished(FinishInfo) {}

// MultiObserver fans notifications out to several observers in order.
type MultiObserver []Observer

// OnProgress implements Observer.
func (m MultiObserver) OnProgress(record FileRecord) {
	for _, o := range m {
		o.OnProgress(record)
	}
}

// OnFinished implements Observer.
func (m MultiObserver) OnFinished(info FinishInfo) {
	for _, o := range m {
		o.OnFinished(info)
	}
}

// RunOptions configures one run. Controller.Start takes a snapshot, so later
// changes to the caller's value do not affect a run in progress.
type RunOptions struct {
	Directory   string `mapstructure:"directory"`
	FilePattern string `mapstructure:"pattern"`
	Recursive   bool   `mapstructure:"recursive"`
	WriteBOM    bool   `mapstructure:"writeBom"`
	DetectOnly  bool   `mapstructure:"detectOnly"`

	Exclude         []string `mapstructure:"exclude"`         // gitignore-style patterns relative to Directory
	TargetEncoding  string   `mapstructure:"targetEncoding"`  // label accepted by encoding.ByLabel
	DefaultEncoding string   `mapstructure:"defaultEncoding"` // code page for files without a signature
	AtomicWrite     bool     `mapstructure:"atomicWrite"`     // temp file + rename under a lock file

	// Injected dependencies. Nil values are replaced with defaults at Start.
	Observer  Observer           `mapstructure:"-"`
	Logger    slog.Handler       `mapstructure:"-"`
	Detector  encoding.Detector  `mapstructure:"-"`
	Converter encoding.Converter `mapstructure:"-"`
}

// DefaultRunOptions returns options with the documented defaults for dir.
func DefaultRunOptions(dir string) RunOptions {
	return RunOptions{
		Directory:       dir,
		FilePattern:     DefaultFilePattern,
		Recursive:       DefaultRecursive,
		WriteBOM:        DefaultWriteBOM,
		DetectOnly:      DefaultDetectOnly,
		TargetEncoding:  DefaultTargetEncoding,
		DefaultEncoding: DefaultDefaultEncoding,
		AtomicWrite:     DefaultAtomicWrite,
	}
}

// snapshot copies opts so the run does not share slices with the caller.
func (o RunOptions) snapshot() RunOptions {
	o.Exclude = append([]string(nil), o.Exclude...)
	return o
}

// resolvedOptions is a validated snapshot plus the encodings it names.
type resolvedOptions struct {
	RunOptions
	fallback encoding.Encoding
	target   encoding.Encoding
}

// resolve validates opts and fills in defaults for unset fields.
func resolve(opts RunOptions) (resolvedOptions, error) {
	opts = opts.snapshot()
	if strings.TrimSpace(opts.Directory) == "" {
		return resolvedOptions{}, fmt.Errorf("%w: directory cannot be empty", ErrConfigValidation)
	}
	if opts.FilePattern == "" {
		opts.FilePattern = DefaultFilePattern
	}
	if !util.ValidFilePattern(opts.FilePattern) {
		return resolvedOptions{}, fmt.Errorf("%w: invalid file pattern %q", ErrConfigValidation, opts.FilePattern)
	}
	fallback, err := encoding.Default(opts.DefaultEncoding)
	if err != nil {
		return resolvedOptions{}, fmt.Errorf("%w: defaultEncoding: %w", ErrConfigValidation, err)
	}
	target, err := encoding.ByLabel(opts.TargetEncoding, fallback)
	if err != nil {
		return resolvedOptions{}, fmt.Errorf("%w: targetEncoding: %w", ErrConfigValidation, err)
	}
	if !opts.DetectOnly && !target.CanEncode() {
		return resolvedOptions{}, fmt.Errorf("%w: targetEncoding: %w: %s", ErrConfigValidation, encoding.ErrUnsupportedTarget, target.Name)
	}

	if opts.Observer == nil {
		opts.Observer = NoOpObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = discardHandler()
	}
	if opts.Detector == nil {
		opts.Detector = encoding.NewSignatureDetector(fallback, opts.Logger)
	}
	if opts.Converter == nil {
		var w encoding.FileWriter = encoding.InPlaceWriter{}
		if opts.AtomicWrite {
			w = encoding.AtomicWriter{}
		}
		opts.Converter = encoding.NewTranscoder(w, opts.Logger)
	}
	return resolvedOptions{RunOptions: opts, fallback: fallback, target: target}, nil
}
