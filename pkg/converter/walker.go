package converter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/stackvity/utf-cast/pkg/util"
)

// Walker enumerates the files a run will process.
type Walker struct {
	root          string // absolute scan root
	pattern       string
	recursive     bool
	ignoreMatcher *ignoreMatcher
	logger        *slog.Logger
}

// NewWalker creates a Walker for the directory, pattern, recursion and
// exclusion settings in opts.
func NewWalker(opts RunOptions, loggerHandler slog.Handler) (*Walker, error) {
	if loggerHandler == nil {
		loggerHandler = discardHandler()
	}
	logger := slog.New(loggerHandler).With(slog.String("component", "walker"))
	root, err := filepath.Abs(opts.Directory)
	if err != nil {
		return nil, fmt.Errorf("%w: could not resolve %q: %w", ErrWalkFailed, opts.Directory, err)
	}
	matcher := newIgnoreMatcher(opts.Exclude)
	logger.Debug("Exclude patterns loaded", slog.Int("count", matcher.patternCount()))
	return &Walker{
		root:          root,
		pattern:       opts.FilePattern,
		recursive:     opts.Recursive,
		ignoreMatcher: matcher,
		logger:        logger,
	}, nil
}

// Root returns the absolute scan root.
func (w *Walker) Root() string { return w.root }

// Enumerate returns the absolute paths of all regular files under the root
// whose base name matches the pattern, sorted lexicographically. An
// inaccessible root is an error wrapping ErrWalkFailed; unreadable
// subdirectories are logged and skipped. Symbolic links are not followed.
func (w *Walker) Enumerate(ctx context.Context) ([]string, error) {
	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot access %q: %w", ErrWalkFailed, w.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %q is not a directory", ErrWalkFailed, w.root)
	}

	w.logger.Debug("Starting directory walk", slog.String("path", w.root), slog.Bool("recursive", w.recursive))
	var paths []string
	walkErr := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == w.root {
				return fmt.Errorf("%w: cannot read %q: %w", ErrWalkFailed, path, err)
			}
			w.logger.Warn("Error accessing path during walk, skipping", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == w.root {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			w.logger.Debug("Skipping symbolic link", slog.String("path", path))
			return nil
		}

		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			w.logger.Warn("Could not calculate relative path", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		isDir := d.IsDir()
		if pattern := w.ignoreMatcher.Match(rel, isDir); pattern != "" {
			w.logger.Debug("Path excluded", slog.String("path", rel), slog.String("pattern", pattern))
			if isDir {
				return filepath.SkipDir
			}
			return nil
		}
		if isDir {
			if !w.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ok, _ := util.MatchFileName(w.pattern, d.Name()); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			w.logger.Debug("Directory walk cancelled")
		}
		return nil, walkErr
	}
	sort.Strings(paths)
	w.logger.Debug("Directory walk completed", slog.Int("matches", len(paths)))
	return paths, nil
}

// ignoreMatcher applies gitignore-style exclude patterns. Later patterns win,
// and a leading "!" re-includes a path.
type ignoreMatcher struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	raw     string
	pattern gitignore.Pattern
}

func newIgnoreMatcher(rawPatterns []string) *ignoreMatcher {
	m := &ignoreMatcher{}
	for _, raw := range rawPatterns {
		trimmed := filepath.ToSlash(strings.TrimSpace(raw))
		if strings.Trim(trimmed, "!/") == "" {
			continue
		}
		m.patterns = append(m.patterns, ignorePattern{
			raw:     raw,
			pattern: gitignore.ParsePattern(trimmed, nil),
		})
	}
	return m
}

// Match returns the pattern that excludes relPath, or "" when it is kept.
func (m *ignoreMatcher) Match(relPath string, isDir bool) string {
	rel := filepath.ToSlash(relPath)
	if rel == "" || rel == "." {
		return ""
	}
	parts := strings.Split(rel, "/")
	for i := len(m.patterns) - 1; i >= 0; i-- {
		switch m.patterns[i].pattern.Match(parts, isDir) {
		case gitignore.Exclude:
			return m.patterns[i].raw
		case gitignore.Include:
			return ""
		}
	}
	return ""
}

func (m *ignoreMatcher) patternCount() int { return len(m.patterns) }
