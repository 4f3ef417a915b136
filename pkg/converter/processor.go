package converter

import (
	"log/slog"
	"time"

	"github.com/stackvity/utf-cast/pkg/converter/encoding"
)

// FileProcessor runs detection and, unless detect-only, conversion for one file.
type FileProcessor struct {
	detector   encoding.Detector
	converter  encoding.Converter
	target     encoding.Encoding
	writeBOM   bool
	detectOnly bool
	logger     *slog.Logger
}

// NewFileProcessor creates a FileProcessor that converts files to target.
func NewFileProcessor(
	detector encoding.Detector,
	converter encoding.Converter,
	target encoding.Encoding,
	writeBOM, detectOnly bool,
	loggerHandler slog.Handler,
) *FileProcessor {
	if loggerHandler == nil {
		loggerHandler = discardHandler()
	}
	return &FileProcessor{
		detector:   detector,
		converter:  converter,
		target:     target,
		writeBOM:   writeBOM,
		detectOnly: detectOnly,
		logger:     slog.New(loggerHandler).With(slog.String("component", "processor")),
	}
}

// ProcessFile builds the record for path. Conversion errors are recorded on
// the record and never returned.
func (p *FileProcessor) ProcessFile(path string) FileRecord {
	start := time.Now()
	record := FileRecord{FullPath: path}

	detection := p.detector.Detect(path)
	record.EncodingName = detection.Encoding.Name
	record.HasBOM = detection.HasBOM
	record.State = StateDetected

	if !p.detectOnly {
		if err := p.converter.Transcode(path, detection.ContentEncoding(), p.target, p.writeBOM); err != nil {
			record.State = StateFailed
			record.ErrorMessage = err.Error()
			p.logger.Error("Conversion failed",
				slog.String("path", path),
				slog.String("encoding", record.EncodingName),
				slog.String("error", err.Error()))
		} else {
			record.State = StateConverted
		}
	}

	p.logger.Debug("File processed",
		slog.String("path", path),
		slog.String("encoding", record.EncodingName),
		slog.Bool("bom", record.HasBOM),
		slog.String("state", string(record.State)),
		slog.Duration("duration", time.Since(start)))
	return record
}
