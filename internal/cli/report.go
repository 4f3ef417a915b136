package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/fatih/color"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/stackvity/utf-cast/pkg/converter"
)

// WriteReport renders report to w in the given format. Colors are only
// used for text output and only when colored is true.
func WriteReport(w io.Writer, report converter.Report, format converter.OutputFormat, colored bool) error {
	switch format {
	case converter.OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case converter.OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case converter.OutputFormatText, "":
		return writeText(w, report, colored)
	}
	return fmt.Errorf("unsupported output format %q", format)
}

func writeText(w io.Writer, report converter.Report, colored bool) error {
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	info := color.New(color.FgCyan)
	bold := color.New(color.Bold)
	for _, c := range []*color.Color{ok, bad, info, bold} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	ew := &errWriter{w: w}
	for _, rec := range report.Files {
		rel := rec.FullPath
		if r, err := filepath.Rel(report.Directory, rec.FullPath); err == nil && report.Directory != "" {
			rel = filepath.ToSlash(r)
		}
		bom := ""
		if rec.HasBOM {
			bom = " +BOM"
		}
		switch rec.State {
		case converter.StateConverted:
			ew.printf("%s %s (%s%s)\n", ok.Sprint("converted"), rel, rec.EncodingName, bom)
		case converter.StateFailed:
			ew.printf("%s %s (%s%s): %s\n", bad.Sprint("failed   "), rel, rec.EncodingName, bom, rec.ErrorMessage)
		default:
			ew.printf("%s %s (%s%s)\n", info.Sprint("detected "), rel, rec.EncodingName, bom)
		}
	}

	s := report.Summary
	outcome := ok.Sprint(report.Outcome)
	if report.Outcome != converter.OutcomeCompleted {
		outcome = bad.Sprint(report.Outcome)
	}
	ew.printf("\n%s %s in %.2fs\n", bold.Sprint("Run"), outcome, report.DurationSeconds)
	if report.Error != "" {
		ew.printf("%s %s\n", bad.Sprint("Error:"), report.Error)
	}
	ew.printf("Files: %d  Converted: %d  Detected: %d  Failed: %d  With BOM: %d\n",
		s.Total, s.Converted, s.Detected, s.Failed, s.WithBOM)

	names := make([]string, 0, len(s.Encodings))
	for name := range s.Encodings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ew.printf("  %-14s %d\n", name, s.Encodings[name])
	}
	return ew.err
}

// errWriter keeps the first write error and drops later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
