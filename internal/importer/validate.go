// Package importer checks uploaded spreadsheets and turns a decoded deck
// into the list of cards a review session starts with.
package importer

import (
	"slices"
	"strings"

	"github.com/conorfennell/recall/internal/domain"
)

// MaxFileSize is the largest spreadsheet accepted, in bytes.
const MaxFileSize = 10 * 1024 * 1024

// AllowedExtensions lists the accepted file extensions, lowercased.
var AllowedExtensions = []string{".xls", ".xlsx"}

// Validate checks a file's size and name before it is read.
func Validate(name string, size int64) error {
	if size > MaxFileSize {
		return &domain.ImportError{Kind: domain.FileTooLarge, Max: MaxFileSize}
	}

	if !slices.Contains(AllowedExtensions, Extension(name)) {
		return &domain.ImportError{Kind: domain.UnsupportedType}
	}

	return nil
}

// Extension returns the lowercased text from the last dot in name, or ""
// when name has no dot.
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i:])
}
