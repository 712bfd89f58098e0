// Package mets builds the METS structural metadata document describing the
// payload of a digitized book. Every payload file is listed in a file
// section, grouped by type, and each scanned page is described in a
// physical structure map which links the page image with its OCR text and
// word position files.
//
// Page files are related through their file names. The files for a page
// share a numeric stem, e.g. 00000012.tif, 00000012.txt, and 00000012.pos.
package mets

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Namespaces and schema used by the document.
const (
	NamespaceMETS  = "http://www.loc.gov/METS/"
	NamespaceXlink = "http://www.w3.org/1999/xlink"
	NamespaceXSI   = "http://www.w3.org/2001/XMLSchema-instance"
	SchemaURL      = "http://www.loc.gov/standards/mets/version191/mets.xsd"
)

// Policy says what to do when the files for a page are incomplete.
type Policy int

const (
	// Warn logs the problem, leaves the page out of the structure map,
	// and records it in Document.Problems.
	Warn Policy = iota
	// Fail makes Build return the problem as an error.
	Fail
)

func (p Policy) String() string {
	switch p {
	case Warn:
		return "warn"
	case Fail:
		return "fail"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy converts "warn" or "fail" into a Policy. The empty string is
// Warn.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "warn":
		return Warn, nil
	case "fail":
		return Fail, nil
	}
	return Warn, errors.Errorf("unknown integrity policy %q", s)
}

// Options control how a document is built.
type Options struct {
	Policy Policy
	Logger zerolog.Logger
}

// IntegrityError describes a page whose files are not exactly one image,
// one OCR text file, and one word position file.
type IntegrityError struct {
	Stem  string   // the shared file name stem, e.g. "00000012"
	Files []string // the files found having that stem
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("page %s is incomplete: expected image, position, and text files, found [%s]",
		e.Stem, strings.Join(e.Files, " "))
}

// A group is a kind of payload file. Each group gets its own fileGrp, and
// its name prefixes the ids of its files.
type group struct {
	name       string
	mimetype   string
	extensions []string
	image      bool
}

// Group names.
const (
	GroupTIFF = "TIFF"
	GroupJPEG = "JPEG"
	GroupJP2  = "JP2000"
	GroupTXT  = "TXT"
	GroupPDF  = "PDF"
	GroupPOS  = "POS"
	GroupXML  = "XML"
)

var groups = []group{
	{GroupTIFF, "image/tiff", []string{".tif", ".tiff"}, true},
	{GroupJPEG, "image/jpeg", []string{".jpg", ".jpeg"}, true},
	{GroupJP2, "image/jp2", []string{".jp2"}, true},
	{GroupTXT, "text/plain", []string{".txt"}, false},
	{GroupPDF, "application/pdf", []string{".pdf"}, false},
	{GroupPOS, "text/x-word-position", []string{".pos"}, false},
	{GroupXML, "application/xml", []string{".xml"}, false},
}

// groupFor returns the index into groups for the file name, or -1.
func groupFor(name string) int {
	ext := strings.ToLower(filepath.Ext(name))
	for i, g := range groups {
		for _, e := range g.extensions {
			if e == ext {
				return i
			}
		}
	}
	return -1
}

// Page is one entry in the structure map.
type Page struct {
	Order    int
	Type     string
	Image    string // file ids
	Position string
	Text     string
}

// entry is a payload file being described.
type entry struct {
	name  string
	stem  string
	group int
	id    string
}

// Build describes the payload files in paths. Only the base names of the
// paths are used, and each file is referenced at "data/<name>". Files are
// numbered within their group in the order of their names. Files of an
// unrecognized type are left out.
func Build(objectID, label string, paths []string, opts Options) (*Document, error) {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	sort.Strings(names)

	var entries []*entry
	counts := make([]int, len(groups))
	bystem := make(map[string][]*entry)
	for _, name := range names {
		g := groupFor(name)
		if g == -1 {
			opts.Logger.Debug().Str("file", name).Msg("skipping file of unknown type")
			continue
		}
		counts[g]++
		e := &entry{
			name:  name,
			stem:  strings.TrimSuffix(name, filepath.Ext(name)),
			group: g,
			id:    fmt.Sprintf("%s%04d", groups[g].name, counts[g]),
		}
		entries = append(entries, e)
		bystem[e.stem] = append(bystem[e.stem], e)
	}

	doc := newDocument(objectID, label)
	for g := range groups {
		if counts[g] == 0 {
			continue
		}
		grp := FileGrp{ID: groups[g].name}
		for _, e := range entries {
			if e.group != g {
				continue
			}
			grp.Files = append(grp.Files, File{
				ID:       e.id,
				MimeType: groups[g].mimetype,
				FLocat:   FLocat{LocType: "URL", Href: "data/" + e.name},
			})
		}
		doc.FileSec.Groups = append(doc.FileSec.Groups, grp)
	}

	for _, e := range entries {
		if !groups[e.group].image || !endsInDigit(e.stem) {
			continue
		}
		page, err := makePage(e.stem, bystem[e.stem])
		if err != nil {
			if opts.Policy == Fail {
				return nil, err
			}
			opts.Logger.Warn().Err(err).Str("object", objectID).Msg("leaving page out of structure map")
			doc.Problems = append(doc.Problems, err)
			continue
		}
		page.Order = len(doc.Pages) + 1
		doc.Pages = append(doc.Pages, page)
	}
	doc.StructMap.Div.Divs = make([]Div, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		doc.StructMap.Div.Divs = append(doc.StructMap.Div.Divs, Div{
			Type:  p.Type,
			Order: p.Order,
			Pointers: []Fptr{
				{FileID: p.Image},
				{FileID: p.Position},
				{FileID: p.Text},
			},
		})
	}
	return doc, nil
}

// makePage links the files sharing a stem, which must be exactly one image,
// one position file, and one text file.
func makePage(stem string, files []*entry) (Page, error) {
	p := Page{Type: "page"}
	ok := len(files) == 3
	for _, e := range files {
		switch {
		case groups[e.group].image && p.Image == "":
			p.Image = e.id
		case groups[e.group].name == GroupPOS && p.Position == "":
			p.Position = e.id
		case groups[e.group].name == GroupTXT && p.Text == "":
			p.Text = e.id
		default:
			ok = false
		}
	}
	if !ok || p.Image == "" || p.Position == "" || p.Text == "" {
		err := &IntegrityError{Stem: stem}
		for _, e := range files {
			err.Files = append(err.Files, e.name)
		}
		return Page{}, err
	}
	return p, nil
}

func endsInDigit(s string) bool {
	return s != "" && s[len(s)-1] >= '0' && s[len(s)-1] <= '9'
}
