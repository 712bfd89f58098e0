package bagger

import (
	"fmt"
	"strings"
)

// MissingContentError means no files were found in a content directory
// under any of the patterns tried.
type MissingContentError struct {
	Dir      string
	Patterns []string
}

func (e *MissingContentError) Error() string {
	if e.Dir == "" {
		return "no content directory given"
	}
	return fmt.Sprintf("no content found in %s (tried %s)", e.Dir, strings.Join(e.Patterns, ", "))
}

// ContentCountMismatchError means a content directory does not hold the
// number of files the source record says it should.
type ContentCountMismatchError struct {
	Dir      string
	Pattern  string
	Expected int
	Found    int
}

func (e *ContentCountMismatchError) Error() string {
	return fmt.Sprintf("expected %d files matching %s in %s, found %d",
		e.Expected, e.Pattern, e.Dir, e.Found)
}

// DirectoryConflictError means a metadata category directory already
// exists. Each category is written once per bag.
type DirectoryConflictError struct {
	Dir string
}

func (e *DirectoryConflictError) Error() string {
	return fmt.Sprintf("metadata directory %s already exists", e.Dir)
}

// PackageExistsError means the bag directory is already present.
type PackageExistsError struct {
	Dir string
}

func (e *PackageExistsError) Error() string {
	return fmt.Sprintf("bag directory %s already exists", e.Dir)
}
