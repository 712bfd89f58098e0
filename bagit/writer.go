package bagit

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/ndlib/baggins/util"
)

// Writer allows for writing a new bag as a zip file. When it is closed, all
// the relevant tag files and manifests will be written out.
type Writer struct {
	z        *zip.Writer      // the underlying zip writer
	t        Bag              // our bag structure to track the files
	checksum *Checksum        // pointer to current checksum
	hw       *util.HashWriter // current hash writer
	ns       int              // number of "streams" (i.e. payload files)
	sz       int64            // size of the payload files, in bytes
}

// NewWriter creates a new bag writer which will serialize itself to the
// provided io.Writer. Use name to set the directory name the bag will
// unserialize into, as BagIt requires.
func NewWriter(w io.Writer, name string) *Writer {
	t := New()
	t.dir = name + "/"
	t.algorithms = append([]string(nil), DefaultAlgorithms...)
	return &Writer{
		z: zip.NewWriter(w),
		t: t,
	}
}

// Close this Writer and serialize all necessary bookkeeping files. It does
// not close the original io.Writer provided to NewWriter().
func (w *Writer) Close() error {
	w.t.tags[TagPayloadOxum] = fmt.Sprintf("%d.%d", w.sz, w.ns)
	w.t.tags[TagBaggingDate] = time.Now().Format("2006-01-02")
	w.t.tags[TagBagSize] = humanize.Bytes(uint64(w.sz))

	// If Close() is called after a write error, then this first
	// call will also fail with an error.
	err := w.writeTags()
	if err != nil {
		return err
	}
	if err := w.writeManifests(); err != nil {
		return err
	}
	return w.z.Close()
}

// SetTag adds the given tag to this bag, and sets it to be equal to content.
// The bag writer will add the tags "Payload-Oxum", "Bagging-Date", and
// "Bag-Size" itself. Other useful tags are listed in the BagIt specification.
func (w *Writer) SetTag(tag, content string) {
	w.t.tags[tag] = content
}

// Create a new file inside this bag. The file will be put inside the "data/"
// directory.
func (w *Writer) Create(name string) (io.Writer, error) {
	w.ns++
	out, err := w.create("data/" + name)
	return &countWriter{
		w:     out,
		count: &w.sz,
	}, err
}

// CreateTag makes a new tag file, such as "metadata/rights/notes.txt",
// outside of the payload directory. The control files the writer produces
// itself may not be created this way.
func (w *Writer) CreateTag(name string) (io.Writer, error) {
	if isPayload(name) || isReserved(name) {
		return nil, errors.Errorf("%s is not a valid tag file name", name)
	}
	return w.create(name)
}

func isReserved(name string) bool {
	return name == "bagit.txt" || name == "bag-info.txt" ||
		strings.HasPrefix(name, "manifest-") || strings.HasPrefix(name, "tagmanifest-")
}

// create is for internal use. It allows non-payload files to be written.
func (w *Writer) create(name string) (io.Writer, error) {
	w.saveChecksum()

	ck := new(Checksum)
	w.t.manifest[name] = ck
	w.checksum = ck

	header := zip.FileHeader{
		Name:     w.t.dir + name,
		Method:   zip.Store,
		Modified: time.Now(),
	}
	out, err := w.z.CreateHeader(&header)
	if err != nil {
		return nil, err
	}

	w.hw = util.NewHashWriter(out)

	return w.hw, nil
}

// Checksum returns the checksums for what has been written so far to the
// last io.Writer returned by Create().
func (w *Writer) Checksum() *Checksum {
	w.saveChecksum()
	return w.checksum
}

// saveChecksum records the checksums of the file being written, if any, in
// the manifest.
func (w *Writer) saveChecksum() {
	if w.hw != nil && w.checksum != nil {
		w.checksum.fill(w.hw, w.t.algorithms)
	}
}

func (w *Writer) writeTags() error {
	// first write bag-it marker file
	out, err := w.create("bagit.txt")
	if err != nil {
		return err
	}
	if err := writeBagitTxt(out); err != nil {
		return err
	}

	// now write tags file
	out, err = w.create("bag-info.txt")
	if err != nil {
		return err
	}
	return writeTagFile(out, w.t.tags)
}

func (w *Writer) writeManifests() error {
	for _, alg := range w.t.algorithms {
		if err := w.manifest(false, alg); err != nil {
			return err
		}
	}
	// the manifests above are now in w.t.manifest, so the tag manifests
	// cover them
	w.saveChecksum()
	for _, alg := range w.t.algorithms {
		if err := w.manifest(true, alg); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) manifest(istag bool, alg string) error {
	// tag manifests only include files NOT having the prefix "data/",
	// non-tag manifests only include "data/" files
	var names []string
	for fname := range w.t.manifest {
		if isPayload(fname) != istag && !isTagManifest(fname) {
			names = append(names, fname)
		}
	}
	sort.Strings(names)
	mname := "manifest-" + alg + ".txt"
	if istag {
		mname = "tag" + mname
	}
	// snapshot the checksums before create() adds an entry for the manifest
	w.saveChecksum()
	snapshot := make(map[string]*Checksum, len(names))
	for _, name := range names {
		snapshot[name] = w.t.manifest[name]
	}
	out, err := w.create(mname)
	if err != nil {
		return err
	}
	return writeManifestFile(out, alg, names, snapshot)
}

// WriteZip serializes the directory bag b as a zip file onto out. The zip
// file unpacks into a directory having the same name as the bag directory.
// Checksums are recomputed as the files are copied.
func WriteZip(b *Bag, out io.Writer) error {
	w := NewWriter(out, filepath.Base(b.dir))
	for k, v := range b.tags {
		if k == "BagIt-Version" || k == "Tag-File-Character-Encoding" {
			continue
		}
		w.SetTag(k, v)
	}
	for _, name := range b.PayloadFiles() {
		dst, err := w.Create(strings.TrimPrefix(name, "data/"))
		if err != nil {
			return err
		}
		if err := copyInto(dst, filepath.Join(b.dir, filepath.FromSlash(name))); err != nil {
			return err
		}
	}
	for _, name := range b.TagFiles() {
		if isReserved(name) {
			continue
		}
		dst, err := w.CreateTag(name)
		if err != nil {
			return err
		}
		if err := copyInto(dst, filepath.Join(b.dir, filepath.FromSlash(name))); err != nil {
			return err
		}
	}
	return w.Close()
}

func copyInto(w io.Writer, fname string) error {
	f, err := os.Open(fname)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return errors.Wrapf(err, "copying %s", fname)
}

// countWriter is an io.Writer that counts the number of bytes written to it.
type countWriter struct {
	w     io.Writer
	count *int64
}

func (w *countWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	*w.count += int64(n)
	return n, err
}
