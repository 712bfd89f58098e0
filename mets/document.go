package mets

import (
	"bytes"
	"encoding/xml"
	"io"
)

// Document is a METS document. The element and attribute names carry their
// namespace prefixes literally, and the root element declares them.
type Document struct {
	XMLName        xml.Name  `xml:"mets:mets"`
	NSMets         string    `xml:"xmlns:mets,attr"`
	NSXlink        string    `xml:"xmlns:xlink,attr"`
	NSXSI          string    `xml:"xmlns:xsi,attr"`
	SchemaLocation string    `xml:"xsi:schemaLocation,attr"`
	ObjID          string    `xml:"OBJID,attr"`
	Label          string    `xml:"LABEL,attr,omitempty"`
	FileSec        FileSec   `xml:"mets:fileSec"`
	StructMap      StructMap `xml:"mets:structMap"`

	// Pages is the structure map as a list.
	Pages []Page `xml:"-"`
	// Problems lists the pages left out of the structure map.
	Problems []error `xml:"-"`
}

type FileSec struct {
	Groups []FileGrp `xml:"mets:fileGrp"`
}

type FileGrp struct {
	ID    string `xml:"ID,attr"`
	Files []File `xml:"mets:file"`
}

type File struct {
	ID       string `xml:"ID,attr"`
	MimeType string `xml:"MIMETYPE,attr"`
	FLocat   FLocat `xml:"mets:FLocat"`
}

type FLocat struct {
	LocType string `xml:"LOCTYPE,attr"`
	Href    string `xml:"xlink:href,attr"`
}

type StructMap struct {
	Type string `xml:"TYPE,attr"`
	Div  Div    `xml:"mets:div"`
}

type Div struct {
	Type     string `xml:"TYPE,attr"`
	Label    string `xml:"LABEL,attr,omitempty"`
	Order    int    `xml:"ORDER,attr,omitempty"`
	Pointers []Fptr `xml:"mets:fptr"`
	Divs     []Div  `xml:"mets:div"`
}

type Fptr struct {
	FileID string `xml:"FILEID,attr"`
}

func newDocument(objectID, label string) *Document {
	return &Document{
		NSMets:         NamespaceMETS,
		NSXlink:        NamespaceXlink,
		NSXSI:          NamespaceXSI,
		SchemaLocation: NamespaceMETS + " " + SchemaURL,
		ObjID:          objectID,
		Label:          label,
		StructMap: StructMap{
			Type: "physical",
			Div:  Div{Type: "volume", Label: label},
		},
	}
}

// Marshal returns the document as indented XML, with an XML declaration.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes the document as indented XML to w.
func (d *Document) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(d); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
