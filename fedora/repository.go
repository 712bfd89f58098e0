package fedora

import (
	"context"
	"sync"
)

// Getter fetches a single object. *Client is a Getter.
type Getter interface {
	GetObject(ctx context.Context, pid string) (*Object, error)
}

// Volume is a scanned volume along with the book it is part of. Book is nil
// if the volume does not exist in the repository or names no book.
type Volume struct {
	*Object
	Book *Book
}

// Book is a digitized book along with the collection it is a member of.
// Collection is nil if the book names no collection.
type Book struct {
	*Object
	Collection *Object
}

// Repository resolves volumes into their books and collections. Objects
// are remembered once fetched, and concurrent requests for the same object
// are combined into a single fetch, since many volumes share a collection.
// It is safe for concurrent use.
type Repository struct {
	source Getter

	mu       sync.Mutex               // controls everything below
	objects  map[string]*Object       // objects already fetched
	inflight map[string]*fetchrequest // requests in progress
}

type fetchrequest struct {
	wg     sync.WaitGroup
	result *Object
	err    error
}

// NewRepository returns a Repository reading objects from source.
func NewRepository(source Getter) *Repository {
	return &Repository{
		source:   source,
		objects:  make(map[string]*Object),
		inflight: make(map[string]*fetchrequest),
	}
}

// Object returns the object with the given pid. Failed fetches are not
// remembered.
func (r *Repository) Object(ctx context.Context, pid string) (*Object, error) {
	// the first goroutine asking for a given pid will do the work. Others
	// will wait until the data is ready.
	r.mu.Lock()
	if obj, ok := r.objects[pid]; ok {
		r.mu.Unlock()
		return obj, nil
	}
	if f, ok := r.inflight[pid]; ok {
		// item is already being worked on
		r.mu.Unlock()
		f.wg.Wait()
		return f.result, f.err
	}
	// set up a flight record and then call the function
	f := &fetchrequest{}
	f.wg.Add(1)
	r.inflight[pid] = f
	r.mu.Unlock()

	f.result, f.err = r.source.GetObject(ctx, pid)

	// at end we signal and remove the inflight record
	r.mu.Lock()
	if f.err == nil {
		r.objects[pid] = f.result
	}
	delete(r.inflight, pid)
	r.mu.Unlock()
	f.wg.Done()
	return f.result, f.err
}

// Volume returns the volume with the given pid, with its book and the book's
// collection resolved.
func (r *Repository) Volume(ctx context.Context, pid string) (*Volume, error) {
	obj, err := r.Object(ctx, pid)
	if err != nil {
		return nil, err
	}
	vol := &Volume{Object: obj}
	if !obj.Exists {
		return vol, nil
	}
	bookpid := obj.Related(IsConstituentOf)
	if bookpid == "" {
		return vol, nil
	}
	book, err := r.Object(ctx, bookpid)
	if err != nil {
		return nil, err
	}
	vol.Book = &Book{Object: book}
	collpid := book.Related(IsMemberOfCollection)
	if collpid == "" {
		return vol, nil
	}
	vol.Book.Collection, err = r.Object(ctx, collpid)
	if err != nil {
		return nil, err
	}
	return vol, nil
}
