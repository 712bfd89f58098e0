package util

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"hash"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Names of the checksum algorithms a HashWriter knows about. These are also
// the names used in BagIt manifest file names.
const (
	MD5    = "md5"
	SHA256 = "sha256"
)

// ErrUnknownAlgorithm is returned when asking for a checksum we do not compute.
var ErrUnknownAlgorithm = errors.New("unknown checksum algorithm")

// VerifyStreamHash checksums the given io.Reader and compares the checksum
// against the provided md5 and sha256 checksums. It returns true if everything
// matches, and false otherwise. Pass in an empty slice to not verify a given
// checksum type. For example, to only verify the SHA256 hash of the reader,
// pass in []byte{} for the md5 parameter.
// The reader is not closed when finished.
func VerifyStreamHash(r io.Reader, md5, sha256 []byte) (bool, error) {
	if len(md5) == 0 && len(sha256) == 0 {
		return true, nil
	}
	hw := NewHashWriterPlain()
	_, err := io.Copy(hw, r)
	var result = true
	if len(md5) > 0 {
		_, ok := hw.CheckMD5(md5)
		result = result && ok
	}
	if len(sha256) > 0 {
		_, ok := hw.CheckSHA256(sha256)
		result = result && ok
	}
	return result, err
}

// An HashWriter wraps an io.Writer and also calculate the MD5 and SHA256 hashes
// of the bytes written.
type HashWriter struct {
	io.Writer // our io.MultiWriter
	md5       hash.Hash
	sha256    hash.Hash
}

// NewHashWriter returns a HashWriter wrapping w.
func NewHashWriter(w io.Writer) *HashWriter {
	hw := &HashWriter{
		md5:    md5.New(),
		sha256: sha256.New(),
	}
	hw.Writer = io.MultiWriter(w, hw.md5, hw.sha256)
	return hw
}

// NewHashWriterPlain return a HashWriter that does not wrap an output stream.
// It will just compute the checksums of the data written to it.
func NewHashWriterPlain() *HashWriter {
	hw := &HashWriter{
		md5:    md5.New(),
		sha256: sha256.New(),
	}
	hw.Writer = io.MultiWriter(hw.md5, hw.sha256)
	return hw
}

// CheckMD5 returns the MD5 hash for this writer, and compares it for equality
// with the goal hash passed in. Returns true if goal matches the MD5 hash,
// false otherwise. If the goal is empty then it is treated as matching, and
// true is returned.
func (hw *HashWriter) CheckMD5(goal []byte) ([]byte, bool) {
	var computed []byte
	if hw.md5 != nil {
		computed = hw.md5.Sum(nil)
	}
	ok := len(goal) == 0 || bytes.Equal(goal, computed)
	return computed, ok
}

// CheckSHA256 returns the SHA256 hash for this writer, and compares it for
// equality with the goal hash passed in. Returns true if goal matches the
// SHA256 hash, false otherwise. If the goal is empty then it is treated as
// matching, and true is returned.
func (hw *HashWriter) CheckSHA256(goal []byte) ([]byte, bool) {
	var computed []byte
	if hw.sha256 != nil {
		computed = hw.sha256.Sum(nil)
	}
	ok := len(goal) == 0 || bytes.Equal(goal, computed)
	return computed, ok
}

// Sum returns the checksum computed so far for the named algorithm.
func (hw *HashWriter) Sum(algorithm string) ([]byte, error) {
	switch algorithm {
	case MD5:
		h, _ := hw.CheckMD5(nil)
		return h, nil
	case SHA256:
		h, _ := hw.CheckSHA256(nil)
		return h, nil
	}
	return nil, errors.Wrap(ErrUnknownAlgorithm, algorithm)
}

// KnownAlgorithm reports whether a HashWriter can compute the named checksum.
func KnownAlgorithm(algorithm string) bool {
	return algorithm == MD5 || algorithm == SHA256
}

// ChecksumFile reads the file at path and returns a HashWriter holding its
// checksums along with the number of bytes read.
func ChecksumFile(path string) (*HashWriter, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	hw := NewHashWriterPlain()
	n, err := io.Copy(hw, f)
	if err != nil {
		return nil, n, errors.Wrapf(err, "checksum %s", path)
	}
	return hw, n, nil
}
