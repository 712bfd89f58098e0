package bagger

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// A FileSet is the result of looking for content files in a directory.
// Paths is either empty or holds exactly the number of files expected.
type FileSet struct {
	Dir        string
	Extensions []string // the patterns which matched
	Paths      []string
}

// ImagePatterns are tried in order when looking for page images. Matching
// is case sensitive.
var ImagePatterns = []string{"*.tif", "*.TIF", "*.jp2", "*.jpg"}

// Patterns for the OCR output of each page.
const (
	TextPattern     = "*.txt"
	PositionPattern = "*.pos"
)

// glob returns the sorted matches for pattern inside dir. An empty dir
// would match against the working directory, so it never matches anything.
func glob(dir, pattern string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, errors.Wrapf(err, "searching %s", dir)
	}
	sort.Strings(matches)
	return matches, nil
}

// FindImages returns the page images in dir. The patterns in ImagePatterns
// are tried in turn and the first which matches anything is used; matches
// under different patterns are never combined. It is an error unless
// exactly expected images are found. An empty dir holds no images.
func FindImages(dir string, expected int) (*FileSet, error) {
	for _, pattern := range ImagePatterns {
		matches, err := glob(dir, pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			continue
		}
		if len(matches) != expected {
			return nil, &ContentCountMismatchError{
				Dir:      dir,
				Pattern:  pattern,
				Expected: expected,
				Found:    len(matches),
			}
		}
		return &FileSet{Dir: dir, Extensions: []string{pattern}, Paths: matches}, nil
	}
	return nil, &MissingContentError{Dir: dir, Patterns: ImagePatterns}
}

// FindTextAndPosition returns the OCR text files and word position files
// in dir, text files first. There must be exactly expected files of each
// kind.
func FindTextAndPosition(dir string, expected int) (*FileSet, error) {
	patterns := []string{TextPattern, PositionPattern}
	found := make([][]string, len(patterns))
	var total int
	for i, pattern := range patterns {
		matches, err := glob(dir, pattern)
		if err != nil {
			return nil, err
		}
		found[i] = matches
		total += len(matches)
	}
	if total == 0 {
		return nil, &MissingContentError{Dir: dir, Patterns: patterns}
	}
	result := &FileSet{Dir: dir, Extensions: patterns}
	for i, pattern := range patterns {
		if len(found[i]) != expected {
			return nil, &ContentCountMismatchError{
				Dir:      dir,
				Pattern:  pattern,
				Expected: expected,
				Found:    len(found[i]),
			}
		}
		result.Paths = append(result.Paths, found[i]...)
	}
	return result, nil
}
