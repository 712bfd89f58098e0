package bagit

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/ndlib/baggins/util"
)

// ErrAlreadyBagged is returned by MakeBag for a directory which already has
// a payload directory.
var ErrAlreadyBagged = errors.New("directory already contains a data directory")

// MakeBag turns the directory dir into a bag. Every regular file directly
// inside dir is payload and is moved into "data/". Subdirectories stay where
// they are and are covered by the tag manifests. The given info tags are
// written to bag-info.txt along with the tags the bag maintains itself.
// Manifests are computed for each of the algorithms.
func MakeBag(dir string, info map[string]string, algorithms []string) (*Bag, error) {
	algs, err := checkAlgorithms(algorithms)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, errors.Errorf("%s is not a directory", dir)
	}
	datadir := filepath.Join(dir, "data")
	if _, err := os.Stat(datadir); err == nil {
		return nil, errors.Wrap(ErrAlreadyBagged, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	if err := os.Mkdir(datadir, 0775); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		err := os.Rename(filepath.Join(dir, e.Name()), filepath.Join(datadir, e.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "moving %s into payload", e.Name())
		}
	}

	b := New()
	b.dir = dir
	b.algorithms = algs
	for k, v := range info {
		b.tags[k] = v
	}
	if err := b.Save(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Save recomputes the manifests, tag manifests, and the bag maintained tags
// from the files currently in the bag directory, and rewrites all the
// control files. Call it again after adding or changing files. Saving an
// unchanged bag produces the same manifests.
func (b *Bag) Save() error {
	b.manifest = make(map[string]*Checksum)

	// payload first, so Payload-Oxum is known before bag-info.txt is written
	var size int64
	var count int
	payload, err := b.walk(true)
	if err != nil {
		return err
	}
	for _, name := range payload {
		n, err := b.checksum(name)
		if err != nil {
			return err
		}
		size += n
		count++
	}
	b.tags[TagPayloadOxum] = fmt.Sprintf("%d.%d", size, count)
	b.tags[TagBaggingDate] = time.Now().Format("2006-01-02")
	b.tags[TagBagSize] = humanize.Bytes(uint64(size))

	if err := b.writeControlFiles(payload); err != nil {
		return err
	}

	// now every other file, which includes the control files just written
	tagfiles, err := b.walk(false)
	if err != nil {
		return err
	}
	for _, name := range tagfiles {
		if _, err := b.checksum(name); err != nil {
			return err
		}
	}
	for _, alg := range b.algorithms {
		err := b.writeFile("tagmanifest-"+alg+".txt", func(f *os.File) error {
			return writeManifestFile(f, alg, tagfiles, b.manifest)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *Bag) writeControlFiles(payload []string) error {
	err := b.writeFile("bagit.txt", func(f *os.File) error {
		return writeBagitTxt(f)
	})
	if err != nil {
		return err
	}
	err = b.writeFile("bag-info.txt", func(f *os.File) error {
		return writeTagFile(f, b.tags)
	})
	if err != nil {
		return err
	}
	for _, alg := range b.algorithms {
		err := b.writeFile("manifest-"+alg+".txt", func(f *os.File) error {
			return writeManifestFile(f, alg, payload, b.manifest)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *Bag) writeFile(name string, fn func(f *os.File) error) error {
	f, err := os.Create(filepath.Join(b.dir, name))
	if err != nil {
		return err
	}
	err = fn(f)
	if err2 := f.Close(); err == nil {
		err = err2
	}
	return errors.Wrapf(err, "writing %s", name)
}

// checksum computes and records the checksums of the bag relative file name.
func (b *Bag) checksum(name string) (int64, error) {
	hw, n, err := util.ChecksumFile(filepath.Join(b.dir, filepath.FromSlash(name)))
	if err != nil {
		return 0, err
	}
	ck := new(Checksum)
	ck.fill(hw, b.algorithms)
	b.manifest[name] = ck
	return n, nil
}

// walk returns the sorted, slash separated, bag relative names of either
// the payload files or the tag files. Tag manifests are never returned.
func (b *Bag) walk(payload bool) ([]string, error) {
	var result []string
	err := filepath.WalkDir(b.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if isTagManifest(rel) || isPayload(rel) != payload {
			return nil
		}
		result = append(result, rel)
		return nil
	})
	sort.Strings(result)
	return result, err
}

// Open loads the bag in directory dir. Checksums are not verified; call
// Validate for that.
func Open(dir string) (*Bag, error) {
	b := New()
	b.dir = dir
	for _, name := range []string{"bagit.txt", "bag-info.txt"} {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			if name == "bag-info.txt" && os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "opening bag %s", dir)
		}
		err = parseTagFile(f, b.tags)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", name)
		}
	}
	for _, pattern := range []string{"manifest-*.txt", "tagmanifest-*.txt"} {
		names, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		for _, fname := range names {
			alg := manifestAlgorithm(filepath.Base(fname))
			if !util.KnownAlgorithm(alg) {
				continue
			}
			if pattern == "manifest-*.txt" {
				b.algorithms = append(b.algorithms, alg)
			}
			f, err := os.Open(fname)
			if err != nil {
				return nil, err
			}
			err = parseManifestFile(f, alg, b.manifest)
			f.Close()
			if err != nil {
				return nil, errors.Wrapf(err, "reading %s", fname)
			}
		}
	}
	sort.Strings(b.algorithms)
	return &b, nil
}

// ValidationError lists everything found wrong with a bag.
type ValidationError struct {
	Dir      string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("bag %s is invalid: %s", e.Dir, strings.Join(e.Problems, "; "))
}

// Validate checks that every file in the manifests exists and has the
// expected checksums, that every file in the bag is listed in a manifest, and
// that the Payload-Oxum matches the payload. It returns a *ValidationError
// describing every problem found, or nil.
func (b *Bag) Validate() error {
	verr := &ValidationError{Dir: b.dir}
	if _, err := os.Stat(filepath.Join(b.dir, "bagit.txt")); err != nil {
		verr.Problems = append(verr.Problems, "missing bagit.txt")
	}
	var names []string
	for name := range b.manifest {
		names = append(names, name)
	}
	sort.Strings(names)
	var size int64
	var count int
	for _, name := range names {
		hw, n, err := util.ChecksumFile(filepath.Join(b.dir, filepath.FromSlash(name)))
		if err != nil {
			verr.Problems = append(verr.Problems, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		if isPayload(name) {
			size += n
			count++
		}
		ck := b.manifest[name]
		if _, ok := hw.CheckMD5(ck.MD5); !ok {
			verr.Problems = append(verr.Problems, name+": md5 mismatch")
		}
		if _, ok := hw.CheckSHA256(ck.SHA256); !ok {
			verr.Problems = append(verr.Problems, name+": sha256 mismatch")
		}
	}
	for _, payload := range []bool{true, false} {
		ondisk, err := b.walk(payload)
		if err != nil {
			verr.Problems = append(verr.Problems, err.Error())
			continue
		}
		for _, name := range ondisk {
			if b.manifest[name] == nil {
				verr.Problems = append(verr.Problems, name+": not in any manifest")
			}
		}
	}
	if oxum, ok := b.tags[TagPayloadOxum]; ok {
		if oxum != strconv.FormatInt(size, 10)+"."+strconv.Itoa(count) {
			verr.Problems = append(verr.Problems, fmt.Sprintf("Payload-Oxum %s does not match %d.%d", oxum, size, count))
		}
	}
	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}
