// Package util holds file-name matching helpers shared by the scanner and the CLI.
package util

import "path/filepath"

// MatchFileName reports whether a file's base name matches a file pattern
// such as "*.txt". The pattern "*.*" matches every name, including names
// without a dot, and an empty pattern is treated the same way.
func MatchFileName(pattern, name string) (bool, error) {
	if pattern == "" || pattern == "*.*" {
		return true, nil
	}
	return filepath.Match(pattern, name)
}

// ValidFilePattern reports whether pattern is syntactically valid for
// MatchFileName.
func ValidFilePattern(pattern string) bool {
	_, err := MatchFileName(pattern, "")
	return err == nil
}
