package encoding

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
)

// probeLen is the number of leading bytes inspected for a signature.
const probeLen = 5

var (
	sigUTF8  = []byte{0xEF, 0xBB, 0xBF}
	sigUTF16 = []byte{0xFE, 0xFF}
	sigUTF32 = []byte{0x00, 0x00, 0xFE, 0xFF}
	sigUTF7  = []byte{0x2B, 0x2F, 0x76}
)

// Detection is the result of probing one file.
type Detection struct {
	Encoding Encoding
	// HasBOM is true iff the file starts with the UTF-8 byte-order mark EF BB BF.
	HasBOM bool

	content Encoding // set when the content must be read differently than Encoding says
}

// ContentEncoding is the encoding to decode the file with. It equals
// Encoding except for files shorter than the probe that start with a UTF-8,
// UTF-16 or UTF-32 byte-order mark: those are reported as the default
// encoding but are read in the encoding their mark names.
func (d Detection) ContentEncoding() Encoding {
	if d.content.Name != "" {
		return d.content
	}
	return d.Encoding
}

// Detector classifies the encoding of a file on disk.
type Detector interface {
	Detect(path string) Detection
}

// SignatureDetector detects encodings from a fixed table of byte signatures.
type SignatureDetector struct {
	fallback Encoding
	logger   *slog.Logger
}

// NewSignatureDetector returns a detector that reports fallback for files
// without a recognized signature. A nil handler discards log output.
func NewSignatureDetector(fallback Encoding, loggerHandler slog.Handler) *SignatureDetector {
	if loggerHandler == nil {
		loggerHandler = discardHandler()
	}
	return &SignatureDetector{
		fallback: fallback,
		logger:   slog.New(loggerHandler).With(slog.String("component", "detector")),
	}
}

// Detect reads at most the first five bytes of path. Errors opening or
// reading the file are logged and yield the fallback encoding without a BOM.
func (d *SignatureDetector) Detect(path string) Detection {
	prefix, err := readPrefix(path)
	if err != nil {
		d.logger.Warn("Could not probe file, assuming default encoding",
			slog.String("path", path), slog.String("error", err.Error()))
		return Detection{Encoding: d.fallback}
	}
	detection := Detection{Encoding: d.Classify(prefix), HasBOM: HasUTF8BOM(prefix)}
	if len(prefix) < probeLen {
		if marked, ok := matchBOM(prefix); ok {
			detection.content = marked
		}
	}
	d.logger.Debug("Encoding detected",
		slog.String("path", path),
		slog.String("encoding", detection.Encoding.Name),
		slog.String("content", detection.ContentEncoding().Name),
		slog.Bool("bom", detection.HasBOM))
	return detection
}

// Classify maps a file prefix to an encoding. Signatures are checked in a
// fixed order and the first match wins. A prefix shorter than five bytes
// never matches.
func (d *SignatureDetector) Classify(prefix []byte) Encoding {
	if len(prefix) < probeLen {
		return d.fallback
	}
	if enc, ok := matchBOM(prefix); ok {
		return enc
	}
	if bytes.HasPrefix(prefix, sigUTF7) {
		return UTF7()
	}
	return d.fallback
}

// matchBOM matches the byte-order-mark signatures in probe order, each
// against its own length.
func matchBOM(prefix []byte) (Encoding, bool) {
	switch {
	case bytes.HasPrefix(prefix, sigUTF8):
		return UTF8(), true
	case bytes.HasPrefix(prefix, sigUTF16):
		return UTF16BE(), true
	case bytes.HasPrefix(prefix, sigUTF32):
		return UTF32BE(), true
	}
	return Encoding{}, false
}

// HasUTF8BOM reports whether prefix starts with EF BB BF.
func HasUTF8BOM(prefix []byte) bool {
	return bytes.HasPrefix(prefix, sigUTF8)
}

func readPrefix(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, probeLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

func discardHandler() slog.Handler {
	return slog.NewTextHandler(io.Discard, nil)
}
