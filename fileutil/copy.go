package fileutil

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// CopyFile copies the file src into the directory dir, keeping its base
// name and modification time, and sets the permission bits of the copy to
// mode. It returns the path of the copy. An existing file at the
// destination is an error.
func CopyFile(src, dir string, mode os.FileMode) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return "", err
	}
	if !fi.Mode().IsRegular() {
		return "", errors.Errorf("%s is not a regular file", src)
	}
	dst := filepath.Join(dir, filepath.Base(src))
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return "", err
	}
	_, err = io.Copy(out, in)
	err2 := out.Close()
	if err == nil {
		err = err2
	}
	if err != nil {
		os.Remove(dst)
		return "", errors.Wrapf(err, "copying %s", src)
	}
	// the umask may have cleared bits in mode
	if err := os.Chmod(dst, mode); err != nil {
		return "", err
	}
	if err := os.Chtimes(dst, fi.ModTime(), fi.ModTime()); err != nil {
		return "", err
	}
	return dst, nil
}

// WriteFile writes data to the file name, with the permission bits set to
// mode regardless of the umask.
func WriteFile(name string, data []byte, mode os.FileMode) error {
	if err := os.WriteFile(name, data, mode); err != nil {
		return err
	}
	return os.Chmod(name, mode)
}
