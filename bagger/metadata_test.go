package bagger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteCategory(t *testing.T) {
	src := filepath.Join(t.TempDir(), "ocm08951025_MRC.xml")
	if err := os.WriteFile(src, []byte("<record/>"), 0600); err != nil {
		t.Fatal(err)
	}
	bagdir := t.TempDir()
	dir, err := WriteCategory(bagdir, Descriptive, []string{src}, 0664)
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join(bagdir, "metadata", "descriptive") {
		t.Errorf("Received %s", dir)
	}
	for _, name := range []string{"ocm08951025_MRC.xml", HumanReadableFile} {
		fi, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if fi.Mode().Perm() != 0664 {
			t.Errorf("%s: Received mode %v, expected %v", name, fi.Mode().Perm(), os.FileMode(0664))
		}
	}

	// each category is written once
	_, err = WriteCategory(bagdir, Descriptive, nil, 0664)
	var derr *DirectoryConflictError
	if !errors.As(err, &derr) {
		t.Errorf("Received %v, expected *DirectoryConflictError", err)
	}

	// a different category is fine
	if _, err := WriteCategory(bagdir, Rights, nil, 0664); err != nil {
		t.Error(err)
	}
}

func TestWriteCategoryUnknown(t *testing.T) {
	if _, err := WriteCategory(t.TempDir(), Category("bogus"), nil, 0664); err == nil {
		t.Errorf("expected an error for an unknown category")
	}
}

func TestCategoryFiles(t *testing.T) {
	for _, c := range Categories {
		files, err := c.Files(&Base{})
		if err != nil || len(files) != 0 {
			t.Errorf("%s: Received (%v, %v), expected no files", c, files, err)
		}
		if humanReadable[c] == "" {
			t.Errorf("%s has no human readable text", c)
		}
	}
	if _, err := Category("bogus").Files(&Base{}); err == nil {
		t.Errorf("expected an error for an unknown category")
	}
}
