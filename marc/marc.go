// Package marc reads the MARCXML bibliographic records which accompany
// digitized books, and extracts the few fields needed to describe them.
package marc

import (
	"encoding/xml"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoRecord means the input contained no MARC record.
var ErrNoRecord = errors.New("no MARC record found")

// Record is a single MARC bibliographic record.
type Record struct {
	Leader        string         `xml:"leader"`
	ControlFields []ControlField `xml:"controlfield"`
	DataFields    []DataField    `xml:"datafield"`
}

// ControlField is one of the 00X fields, which have no subfields.
type ControlField struct {
	Tag   string `xml:"tag,attr"`
	Value string `xml:",chardata"`
}

// DataField is a variable field with indicators and subfields.
type DataField struct {
	Tag       string     `xml:"tag,attr"`
	Ind1      string     `xml:"ind1,attr"`
	Ind2      string     `xml:"ind2,attr"`
	Subfields []Subfield `xml:"subfield"`
}

// Subfield is a coded piece of a data field.
type Subfield struct {
	Code  string `xml:"code,attr"`
	Value string `xml:",chardata"`
}

// Parse reads the first record from a MARCXML document. The document may
// either be a single record or a collection of records.
func Parse(r io.Reader) (*Record, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, ErrNoRecord
		} else if err != nil {
			return nil, errors.Wrap(err, "parsing MARCXML")
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "record" {
			continue
		}
		rec := new(Record)
		if err := dec.DecodeElement(rec, &start); err != nil {
			return nil, errors.Wrap(err, "parsing MARCXML record")
		}
		return rec, nil
	}
}

// ParseFile reads the first record from the MARCXML file at path.
func ParseFile(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rec, err := Parse(f)
	return rec, errors.Wrap(err, path)
}

// Control returns the value of the given control field, or "".
func (r *Record) Control(tag string) string {
	for _, cf := range r.ControlFields {
		if cf.Tag == tag {
			return strings.TrimSpace(cf.Value)
		}
	}
	return ""
}

// Field returns the first data field having the given tag, or nil.
func (r *Record) Field(tag string) *DataField {
	for i := range r.DataFields {
		if r.DataFields[i].Tag == tag {
			return &r.DataFields[i]
		}
	}
	return nil
}

// Subfield returns the first subfield with the given code in the first
// field with the given tag, trimmed of surrounding white space. It returns ""
// if there is no such subfield.
func (r *Record) Subfield(tag, code string) string {
	f := r.Field(tag)
	if f == nil {
		return ""
	}
	return f.Subfield(code)
}

// Subfield returns the first subfield with the given code, or "".
func (f *DataField) Subfield(code string) string {
	for _, sf := range f.Subfields {
		if sf.Code == code {
			return strings.TrimSpace(sf.Value)
		}
	}
	return ""
}

// Title is the title statement, 245 $a followed by the remainder of the
// title in 245 $b.
func (r *Record) Title() string {
	title := r.Subfield("245", "a")
	if b := r.Subfield("245", "b"); b != "" {
		title += " " + b
	}
	return strings.TrimSpace(title)
}

// Description is the summary note in 520 $a.
func (r *Record) Description() string {
	return r.Subfield("520", "a")
}
