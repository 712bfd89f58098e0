// Package store provides a simple, goroutine safe key-value interface used
// as the deposit target for serialized bags. Instead of values being an
// opaque array of bytes, though, they are a stream. This approach allows
// large bags to be stored easily.
//
// The FileSystem store keeps each key as a file in a single directory. The
// S3 store keeps keys in a bucket, and the Memory store is useful for
// testing.
package store

import (
	"io"

	"github.com/pkg/errors"
)

// ReadAtCloser combines the io.ReaderAt and io.Closer interfaces.
type ReadAtCloser interface {
	io.ReaderAt
	io.Closer
}

// Store defines the basic stream based key-value store.
// Items are immutable once stored, but they may be deleted and then replaced
// with a new value.
//
// Since the FileSystem store uses the key as file names, keys should not
// contain forbidden filesystem characters, such as '/'.
//
// Open() returns a ReadAtCloser instead of a ReadCloser so the result can be
// handed directly to a zip reader.
type Store interface {
	Create(key string) (io.WriteCloser, error)
	Open(key string) (ReadAtCloser, int64, error)
	Delete(key string) error
}

var (
	// ErrKeyExists indicates an attempt to create a key which already exists
	ErrKeyExists = errors.New("key already exists")

	// ErrNotFound indicates an attempt to open a key which does not exist
	ErrNotFound = errors.New("key not found")
)

// NewReader converts a ReaderAt into a io.Reader. It is here as a utility to
// help work with the ReadAtCloser returned by Open.
func NewReader(r io.ReaderAt) io.Reader {
	return &reader{r: r}
}

type reader struct {
	r   io.ReaderAt
	off int64
}

func (r *reader) Read(p []byte) (n int, err error) {
	n, err = r.r.ReadAt(p, r.off)
	r.off += int64(n)
	if err == io.EOF && n > 0 {
		// reading less than a full buffer is not an error for
		// an io.Reader
		err = nil
	}
	return
}
