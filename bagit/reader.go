package bagit

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/ndlib/baggins/util"
)

// Reader reads a bag serialized as a zip file.
type Reader struct {
	z *zip.Reader
	t Bag
}

// NewReader creates a bag reader which wraps r. It expects a ZIP datastream,
// and uses size to locate the zip manifest block, which is at the end.
//
// The checksums are not checked upon opening. Call Verify() to verify all the
// checksums. Tags are loaded lazily from the tag file. Ask for a tag to force
// the tag file to be read.
//
// Closing a reader does not close the underlying ReaderAt.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	in, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	result := &Reader{
		z: in,
		t: New(),
	}
	if len(result.z.File) > 0 {
		paths := strings.SplitN(result.z.File[0].Name, "/", 2)
		if len(paths) == 2 {
			result.t.dir = paths[0]
		}
	}
	return result, nil
}

// Name returns the directory name the bag unserializes into.
func (r *Reader) Name() string { return r.t.dir }

var (
	// ErrNotFound means a stream inside a zip file with the given name
	// could not be found.
	ErrNotFound = errors.New("stream not found")
)

// Open returns a reader for the file having the given name.
// Note, that inside the bag, the file is searched for from the path
// "<bag name>/data/<name>".
func (r *Reader) Open(name string) (io.ReadCloser, error) {
	return r.open("data/" + name)
}

// open will open any file, not necessarily one inside the data directory.
func (r *Reader) open(name string) (io.ReadCloser, error) {
	xname := r.t.dir + "/" + name
	for _, f := range r.z.File {
		if f.Name != xname {
			continue
		}
		return f.Open()
	}
	return nil, errors.Wrap(ErrNotFound, name)
}

// Tags returns the tags in bagit.txt and bag-info.txt.
func (r *Reader) Tags() map[string]string {
	if len(r.t.tags) == 0 {
		r.loadtagfile("bagit.txt")
		r.loadtagfile("bag-info.txt")
	}
	return r.t.tags
}

func (r *Reader) loadtagfile(name string) error {
	rc, err := r.open(name)
	if err != nil {
		return err
	}
	defer rc.Close()
	return parseTagFile(rc, r.t.tags)
}

// Files returns the sorted names of the payload files, without the "data/"
// prefix.
func (r *Reader) Files() []string {
	var result []string
	prefix := r.t.dir + "/data/"
	for _, f := range r.z.File {
		if strings.HasPrefix(f.Name, prefix) {
			result = append(result, strings.TrimPrefix(f.Name, prefix))
		}
	}
	sort.Strings(result)
	return result
}

// Verify checks the contents of every file against the manifests and tag
// manifests, and makes sure every file in the zip is listed in one.
func (r *Reader) Verify() error {
	manifest := make(map[string]*Checksum)
	prefix := r.t.dir + "/"
	for _, f := range r.z.File {
		name := strings.TrimPrefix(f.Name, prefix)
		if path.Dir(name) != "." || !strings.HasSuffix(name, ".txt") {
			continue
		}
		if !strings.HasPrefix(name, "manifest-") && !isTagManifest(name) {
			continue
		}
		alg := manifestAlgorithm(name)
		if !util.KnownAlgorithm(alg) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = parseManifestFile(rc, alg, manifest)
		rc.Close()
		if err != nil {
			return errors.Wrapf(err, "reading %s", name)
		}
	}
	verr := &ValidationError{Dir: r.t.dir}
	for _, f := range r.z.File {
		name := strings.TrimPrefix(f.Name, prefix)
		if strings.HasSuffix(name, "/") || isTagManifest(name) {
			continue
		}
		ck := manifest[name]
		if ck == nil {
			verr.Problems = append(verr.Problems, name+": not in any manifest")
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		ok, err := util.VerifyStreamHash(rc, ck.MD5, ck.SHA256)
		rc.Close()
		if err != nil {
			return err
		}
		if !ok {
			verr.Problems = append(verr.Problems, fmt.Sprintf("%s: checksum mismatch", name))
		}
		delete(manifest, name)
	}
	for name := range manifest {
		verr.Problems = append(verr.Problems, name+": missing")
	}
	if len(verr.Problems) > 0 {
		sort.Strings(verr.Problems)
		return verr
	}
	return nil
}
