package bagger

import (
	"strings"
	"sync"

	"github.com/gosimple/slug"
)

// DefaultTitleLength is the title length used when none is configured.
const DefaultTitleLength = 30

// slugMu guards the slug package settings, which are package globals.
var slugMu sync.Mutex

// Slugify turns a title into a string safe for use in a file name. The case
// of the title is kept. Runs of anything other than letters and digits
// become a single "-", and leading and trailing dashes are removed.
func Slugify(title string) string {
	slugMu.Lock()
	lower := slug.Lowercase
	slug.Lowercase = false
	s := slug.Make(title)
	slug.Lowercase = lower
	slugMu.Unlock()

	s = strings.ReplaceAll(s, "_", "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

// FileTitle returns the slug of title, shortened to about maxLen
// characters. Words are never split: a title longer than maxLen is cut at
// the end of the word which spans position maxLen. If that word is the
// last one, the whole slug is returned. A maxLen of zero or less means
// DefaultTitleLength.
func FileTitle(title string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultTitleLength
	}
	s := Slugify(title)
	if len(s) <= maxLen {
		return s
	}
	if s[maxLen-1] == '-' {
		return s[:maxLen-1]
	}
	k := strings.IndexByte(s[maxLen:], '-')
	if k == -1 {
		return s
	}
	return s[:maxLen+k]
}

// BagName is the name of the bag directory for b, "<object id>-<title>".
// When the title has no usable characters the name is just the object id.
func BagName(b Baggee, maxLen int) string {
	t := FileTitle(b.ObjectTitle(), maxLen)
	if t == "" {
		return b.ObjectID()
	}
	return b.ObjectID() + "-" + t
}
