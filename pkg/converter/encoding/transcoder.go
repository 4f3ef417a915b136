package encoding

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/stackvity/utf-cast/pkg/converter/filelock"
)

// Errors returned by Transcode, one per stage of a conversion.
var (
	ErrReadFailed   = errors.New("failed to read file")
	ErrDecodeFailed = errors.New("failed to decode content")
	ErrEncodeFailed = errors.New("failed to encode content")
	ErrWriteFailed  = errors.New("failed to write file")
)

// FileWriter replaces the contents of an existing file.
type FileWriter interface {
	WriteFile(path string, data []byte, perm fs.FileMode) error
}

// InPlaceWriter truncates the file and writes the new bytes into it.
type InPlaceWriter struct{}

// WriteFile implements FileWriter.
func (InPlaceWriter) WriteFile(path string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(path, data, perm)
}

// AtomicWriter writes through a temp file and rename while holding a lock file
// next to the target.
type AtomicWriter struct{}

// WriteFile implements FileWriter.
func (AtomicWriter) WriteFile(path string, data []byte, perm fs.FileMode) error {
	return filelock.LockAndWrite(path, data, perm)
}

// Converter rewrites a file from one encoding into another.
type Converter interface {
	Transcode(path string, source, target Encoding, writeBOM bool) error
}

// Transcoder reads a whole file, decodes it, and writes it back in the target
// encoding.
type Transcoder struct {
	writer FileWriter
	logger *slog.Logger
}

// NewTranscoder returns a Transcoder. A nil writer selects InPlaceWriter and a
// nil handler discards log output.
func NewTranscoder(writer FileWriter, loggerHandler slog.Handler) *Transcoder {
	if writer == nil {
		writer = InPlaceWriter{}
	}
	if loggerHandler == nil {
		loggerHandler = discardHandler()
	}
	return &Transcoder{
		writer: writer,
		logger: slog.New(loggerHandler).With(slog.String("component", "transcoder")),
	}
}

// Transcode rewrites path from source to target. When writeBOM is set the
// output begins with U+FEFF in the target encoding. The returned error wraps
// one of ErrReadFailed, ErrDecodeFailed, ErrEncodeFailed, ErrWriteFailed or
// ErrUnsupportedTarget.
func (t *Transcoder) Transcode(path string, source, target Encoding, writeBOM bool) error {
	if !target.CanEncode() {
		return fmt.Errorf("%w: %s", ErrUnsupportedTarget, target.Name)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	text, err := source.Decode(raw)
	if err != nil {
		return fmt.Errorf("%w as %s: %w", ErrDecodeFailed, source.Name, err)
	}
	out, err := target.Encode(text, writeBOM)
	if err != nil {
		return fmt.Errorf("%w as %s: %w", ErrEncodeFailed, target.Name, err)
	}

	if err := t.writer.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	t.logger.Debug("File transcoded",
		slog.String("path", path),
		slog.String("from", source.Name),
		slog.String("to", target.Name),
		slog.Bool("bom", writeBOM),
		slog.Int("bytes", len(out)))
	return nil
}
