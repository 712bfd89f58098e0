// Package bagit implements enough of the BagIt specification to assemble,
// validate, and serialize the bags produced by the baggers. Bags are built
// in place on the file system: payload files are moved into "data/", and
// every other file in the bag directory is treated as a tag file and listed
// in the tag manifests. Only MD5 and SHA256 checksums are supported.
//
// A directory bag can also be written out as a zip file which does not use
// compression, and such a zip file can be read back and verified.
//
// Specific items not implemented are fetch files and holey bags. The tags in
// bag-info.txt are written in sorted order, and multiple occurrences of a tag
// are not preserved.
//
// The BagIt spec can be found at https://tools.ietf.org/html/draft-kunze-bagit-11.
package bagit

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/ndlib/baggins/util"
)

// Bag represents a single BagIt bag.
type Bag struct {
	// the bag's location. For directory bags this is the path on disk. For
	// zip bags it is the directory name the bag unserializes into, including
	// the trailing slash, e.g. "ex-bag/"
	dir string

	// checksum algorithms used for the manifests
	algorithms []string

	// for each file in this bag, the checksums we expect for it.
	// payload files begin with "data/". Tag and control files don't.
	manifest map[string]*Checksum

	// list of tags to be saved in the bag-info.txt file. The key is the
	// tag name, and the value is the content to save for that tag.
	// content strings are not wrapped at column 75 in this implementation.
	tags map[string]string
}

// Checksum contains all the checksums we know about for a given file.
// Some entries may be empty. At least one entry should be present.
type Checksum struct {
	MD5    []byte
	SHA256 []byte
}

const (
	// Version is the version of the BagIt specification this package implements.
	Version = "0.97"

	// Encoding is the character encoding of the tag files.
	Encoding = "UTF-8"
)

// Tags the bag code maintains itself.
const (
	TagPayloadOxum = "Payload-Oxum"
	TagBaggingDate = "Bagging-Date"
	TagBagSize     = "Bag-Size"
)

// DefaultAlgorithms are the checksums computed when none are requested.
var DefaultAlgorithms = []string{util.MD5, util.SHA256}

// New creates a new, empty bag structure.
func New() Bag {
	return Bag{
		manifest: make(map[string]*Checksum),
		tags:     make(map[string]string),
	}
}

// Dir returns the location of the bag.
func (b *Bag) Dir() string { return b.dir }

// Algorithms returns the checksum algorithms used in the bag manifests.
func (b *Bag) Algorithms() []string { return append([]string(nil), b.algorithms...) }

// Tags returns a copy of the tags from bagit.txt and bag-info.txt.
func (b *Bag) Tags() map[string]string {
	result := make(map[string]string, len(b.tags))
	for k, v := range b.tags {
		result[k] = v
	}
	return result
}

// Checksum returns the manifest checksums for the given bag relative path,
// or nil if the file is not in any manifest.
func (b *Bag) Checksum(name string) *Checksum {
	return b.manifest[name]
}

// PayloadFiles returns the sorted list of payload files, each beginning
// with "data/".
func (b *Bag) PayloadFiles() []string {
	return b.files(true)
}

// TagFiles returns the sorted list of files listed in the tag manifests.
func (b *Bag) TagFiles() []string {
	return b.files(false)
}

func (b *Bag) files(payload bool) []string {
	var result []string
	for name := range b.manifest {
		if isPayload(name) == payload {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result
}

func isPayload(name string) bool {
	return strings.HasPrefix(name, "data/")
}

func isTagManifest(name string) bool {
	return strings.HasPrefix(name, "tagmanifest-") && strings.HasSuffix(name, ".txt")
}

func checkAlgorithms(algorithms []string) ([]string, error) {
	if len(algorithms) == 0 {
		return append([]string(nil), DefaultAlgorithms...), nil
	}
	for _, alg := range algorithms {
		if !util.KnownAlgorithm(alg) {
			return nil, errors.Wrap(util.ErrUnknownAlgorithm, alg)
		}
	}
	return append([]string(nil), algorithms...), nil
}

func (c *Checksum) get(alg string) []byte {
	switch alg {
	case util.MD5:
		return c.MD5
	case util.SHA256:
		return c.SHA256
	}
	return nil
}

func (c *Checksum) set(alg string, b []byte) {
	switch alg {
	case util.MD5:
		c.MD5 = b
	case util.SHA256:
		c.SHA256 = b
	}
}

// fill copies the requested checksums out of hw.
func (c *Checksum) fill(hw *util.HashWriter, algorithms []string) {
	for _, alg := range algorithms {
		h, _ := hw.Sum(alg)
		c.set(alg, h)
	}
}

// writeBagitTxt writes the bag declaration.
func writeBagitTxt(w io.Writer) error {
	_, err := fmt.Fprintf(w, "BagIt-Version: %s\nTag-File-Character-Encoding: %s\n", Version, Encoding)
	return err
}

// writeTagFile writes the tags in sorted order, one per line. Values
// spanning several lines are folded onto indented continuation lines.
func writeTagFile(w io.Writer, tags map[string]string) error {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s: %s\n", k, foldTagValue(tags[k])); err != nil {
			return err
		}
	}
	return nil
}

// foldTagValue indents every line after the first of a multi-line value.
// Blank lines are dropped since they would end the tag.
func foldTagValue(v string) string {
	if !strings.ContainsAny(v, "\r\n") {
		return v
	}
	lines := strings.FieldsFunc(v, func(r rune) bool { return r == '\n' || r == '\r' })
	var kept []string
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n  ")
}

// parseTagFile reads "Name: value" lines into tags. A line beginning with
// white space continues the previous value.
func parseTagFile(r io.Reader, tags map[string]string) error {
	var last string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if last != "" {
				tags[last] += " " + strings.TrimSpace(line)
			}
			continue
		}
		v := strings.SplitN(line, ":", 2)
		if len(v) != 2 {
			return errors.Errorf("malformed tag line %q", line)
		}
		last = strings.TrimSpace(v[0])
		tags[last] = strings.TrimSpace(v[1])
	}
	return scanner.Err()
}

// writeManifestFile writes one manifest line for each name. The 2 spaces
// are to be identical to the GNU md5sum output.
func writeManifestFile(w io.Writer, alg string, names []string, manifest map[string]*Checksum) error {
	for _, name := range names {
		h := manifest[name].get(alg)
		if len(h) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s  %s\n", hex.EncodeToString(h), name); err != nil {
			return err
		}
	}
	return nil
}

// parseManifestFile reads checksum lines for the algorithm alg into manifest.
func parseManifestFile(r io.Reader, alg string, manifest map[string]*Checksum) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return errors.Errorf("malformed manifest line %q", line)
		}
		h, err := hex.DecodeString(fields[0])
		if err != nil {
			return errors.Wrapf(err, "manifest line %q", line)
		}
		// the file name is everything after the checksum and separator
		name := strings.TrimLeft(strings.TrimPrefix(line, fields[0]), " \t*")
		ck := manifest[name]
		if ck == nil {
			ck = new(Checksum)
			manifest[name] = ck
		}
		ck.set(alg, h)
	}
	return scanner.Err()
}

// manifestAlgorithm returns the algorithm name embedded in a manifest or tag
// manifest file name, e.g. "manifest-md5.txt" gives "md5".
func manifestAlgorithm(fname string) string {
	fname = strings.TrimPrefix(fname, "tag")
	fname = strings.TrimPrefix(fname, "manifest-")
	return strings.TrimSuffix(fname, ".txt")
}
