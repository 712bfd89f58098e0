package store

import (
	"io"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Memory implements a simple in-memory version of a store. It is intended
// mainly for testing.
type Memory struct {
	m     sync.RWMutex
	store map[string]*buf
}

var (
	// ensure Memory satisfies the Store interface
	_ Store = &Memory{}
)

// NewMemory returns a new, empty memory store.
func NewMemory() *Memory {
	return &Memory{store: make(map[string]*buf)}
}

// Keys returns the sorted list of keys in the store.
func (ms *Memory) Keys() []string {
	ms.m.RLock()
	defer ms.m.RUnlock()
	result := make([]string, 0, len(ms.store))
	for k := range ms.store {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

// Open returns a ReadAtCloser and the size of the given blob.
func (ms *Memory) Open(key string) (ReadAtCloser, int64, error) {
	ms.m.RLock()
	v, ok := ms.store[key]
	ms.m.RUnlock()
	if !ok {
		return nil, 0, errors.Wrap(ErrNotFound, key)
	}
	v.m.RLock()
	return &bufReader{v}, int64(len(v.b)), nil
}

// A buf is locked for writing until its writer is closed, so readers wait
// for the data to be complete.
type buf struct {
	m sync.RWMutex
	b []byte
}

type bufWriter struct {
	*buf
	closed bool
}

func (w *bufWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("write to closed item")
	}
	w.b = append(w.b, p...)
	return len(p), nil
}

func (w *bufWriter) Close() error {
	if !w.closed {
		w.closed = true
		w.m.Unlock()
	}
	return nil
}

type bufReader struct {
	*buf
}

func (r *bufReader) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r.b)) {
		return 0, io.EOF
	}
	n := copy(p, r.b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (r *bufReader) Close() error {
	r.m.RUnlock()
	return nil
}

// Create makes a new entry in the store, and returns a writer to save data
// into it.
func (ms *Memory) Create(key string) (io.WriteCloser, error) {
	ms.m.Lock()
	defer ms.m.Unlock()
	if _, ok := ms.store[key]; ok {
		return nil, errors.Wrap(ErrKeyExists, key)
	}
	r := &buf{}
	r.m.Lock()
	ms.store[key] = r
	return &bufWriter{buf: r}, nil
}

// Delete the given key from the store. It is not an error if the item does
// not exist in the store.
func (ms *Memory) Delete(key string) error {
	ms.m.Lock()
	delete(ms.store, key)
	ms.m.Unlock()
	return nil
}
