package mets

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-test/deep"
	"github.com/rs/zerolog"
)

// pageFiles returns n complete pages using the given image extension.
func pageFiles(n int, ext string) []string {
	var result []string
	for i := 1; i <= n; i++ {
		stem := fmt.Sprintf("/src/Output/%08d", i)
		result = append(result, stem+ext, stem+".txt", stem+".pos")
	}
	return result
}

func TestBuild(t *testing.T) {
	paths := append(pageFiles(3, ".tif"), "/src/Output/Output.pdf", "/src/Output/Output.xml")
	doc, err := Build("ocm08951025", "Atlanta city directory", paths, Options{})
	if err != nil {
		t.Fatal(err)
	}
	expected := []Page{
		{1, "page", "TIFF0001", "POS0001", "TXT0001"},
		{2, "page", "TIFF0002", "POS0002", "TXT0002"},
		{3, "page", "TIFF0003", "POS0003", "TXT0003"},
	}
	if diff := deep.Equal(doc.Pages, expected); diff != nil {
		t.Error(diff)
	}
	var grps []string
	for _, g := range doc.FileSec.Groups {
		grps = append(grps, fmt.Sprintf("%s:%d", g.ID, len(g.Files)))
	}
	if diff := deep.Equal(grps, []string{"TIFF:3", "TXT:3", "PDF:1", "POS:3", "XML:1"}); diff != nil {
		t.Error(diff)
	}
	if f := doc.FileSec.Groups[0].Files[1]; f.ID != "TIFF0002" || f.FLocat.Href != "data/00000002.tif" || f.MimeType != "image/tiff" {
		t.Errorf("Received %#v", f)
	}
	if len(doc.Problems) != 0 {
		t.Errorf("Received problems %v", doc.Problems)
	}
}

func TestBuildSortsByName(t *testing.T) {
	paths := []string{"/b/00000002.jpg", "/a/00000001.JPG", "/b/00000002.pos", "/a/00000001.pos", "/b/00000002.txt", "/a/00000001.txt"}
	doc, err := Build("x", "", paths, Options{})
	if err != nil {
		t.Fatal(err)
	}
	expected := []Page{
		{1, "page", "JPEG0001", "POS0001", "TXT0001"},
		{2, "page", "JPEG0002", "POS0002", "TXT0002"},
	}
	if diff := deep.Equal(doc.Pages, expected); diff != nil {
		t.Error(diff)
	}
	if href := doc.FileSec.Groups[0].Files[0].FLocat.Href; href != "data/00000001.JPG" {
		t.Errorf("Received %s, expected %s", href, "data/00000001.JPG")
	}
}

func TestBuildIncompletePage(t *testing.T) {
	paths := pageFiles(3, ".jp2")
	// drop the text file for page 2
	paths = append(paths[:4], paths[5:]...)
	// an image without a numeric stem is not a page
	paths = append(paths, "/src/cover.jp2", "/src/notes.doc")

	var logbuf bytes.Buffer
	doc, err := Build("x", "", paths, Options{Policy: Warn, Logger: zerolog.New(&logbuf)})
	if err != nil {
		t.Fatal(err)
	}
	expected := []Page{
		{1, "page", "JP20000001", "POS0001", "TXT0001"},
		{2, "page", "JP20000003", "POS0003", "TXT0002"},
	}
	if diff := deep.Equal(doc.Pages, expected); diff != nil {
		t.Error(diff)
	}
	if len(doc.Problems) != 1 {
		t.Fatalf("Received %d problems, expected 1", len(doc.Problems))
	}
	var ierr *IntegrityError
	if !errors.As(doc.Problems[0], &ierr) {
		t.Fatalf("Received %T, expected *IntegrityError", doc.Problems[0])
	}
	if diff := deep.Equal(ierr.Files, []string{"00000002.jp2", "00000002.pos"}); diff != nil {
		t.Error(diff)
	}
	if !strings.Contains(logbuf.String(), "00000002") {
		t.Errorf("expected a logged warning, received %q", logbuf.String())
	}

	_, err = Build("x", "", paths, Options{Policy: Fail})
	if !errors.As(err, &ierr) || ierr.Stem != "00000002" {
		t.Errorf("Received %v, expected *IntegrityError for 00000002", err)
	}
}

func TestBuildTooManyFiles(t *testing.T) {
	paths := append(pageFiles(1, ".tif"), "/src/00000001.jpg")
	doc, err := Build("x", "", paths, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Pages) != 0 {
		t.Errorf("Received %v, expected no pages", doc.Pages)
	}
	// reported once per image in the set
	if len(doc.Problems) != 2 {
		t.Errorf("Received %d problems, expected 2", len(doc.Problems))
	}
}

func TestParsePolicy(t *testing.T) {
	var table = []struct {
		input  string
		policy Policy
		ok     bool
	}{
		{"", Warn, true},
		{"warn", Warn, true},
		{"FAIL", Fail, true},
		{"ignore", Warn, false},
	}
	for _, test := range table {
		p, err := ParsePolicy(test.input)
		if (err == nil) != test.ok || p != test.policy {
			t.Errorf("%q: Received (%v, %v), expected %v", test.input, p, err, test.policy)
		}
	}
}

// decoded mirrors the parts of the document checked after a round trip,
// using namespace URLs so prefixes must be declared correctly.
type decoded struct {
	XMLName        xml.Name `xml:"http://www.loc.gov/METS/ mets"`
	SchemaLocation string   `xml:"http://www.w3.org/2001/XMLSchema-instance schemaLocation,attr"`
	ObjID          string   `xml:"OBJID,attr"`
	Groups         []struct {
		ID    string `xml:"ID,attr"`
		Files []struct {
			ID     string `xml:"ID,attr"`
			FLocat struct {
				Href string `xml:"http://www.w3.org/1999/xlink href,attr"`
			} `xml:"http://www.loc.gov/METS/ FLocat"`
		} `xml:"http://www.loc.gov/METS/ file"`
	} `xml:"http://www.loc.gov/METS/ fileSec>fileGrp"`
	StructMap struct {
		Type string `xml:"TYPE,attr"`
		Div  struct {
			Type  string `xml:"TYPE,attr"`
			Pages []struct {
				Order int    `xml:"ORDER,attr"`
				Type  string `xml:"TYPE,attr"`
				Fptrs []struct {
					FileID string `xml:"FILEID,attr"`
				} `xml:"http://www.loc.gov/METS/ fptr"`
			} `xml:"http://www.loc.gov/METS/ div"`
		} `xml:"http://www.loc.gov/METS/ div"`
	} `xml:"http://www.loc.gov/METS/ structMap"`
}

func TestMarshal(t *testing.T) {
	doc, err := Build("ocm08951025", "A Book", pageFiles(2, ".tif"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := doc.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out, []byte(xml.Header)) {
		t.Errorf("missing xml header")
	}
	for _, s := range []string{`<mets:mets `, `xmlns:mets="http://www.loc.gov/METS/"`, `<mets:fileGrp ID="TIFF">`, "\n  <mets:fileSec>"} {
		if !bytes.Contains(out, []byte(s)) {
			t.Errorf("output does not contain %q", s)
		}
	}

	var d decoded
	if err := xml.Unmarshal(out, &d); err != nil {
		t.Fatal(err)
	}
	if d.SchemaLocation != "http://www.loc.gov/METS/ http://www.loc.gov/standards/mets/version191/mets.xsd" {
		t.Errorf("Received schema location %q", d.SchemaLocation)
	}
	if d.ObjID != "ocm08951025" {
		t.Errorf("Received %q, expected %q", d.ObjID, "ocm08951025")
	}
	if len(d.Groups) != 3 || d.Groups[0].Files[0].FLocat.Href != "data/00000001.tif" {
		t.Errorf("Received file groups %+v", d.Groups)
	}
	if d.StructMap.Type != "physical" || d.StructMap.Div.Type != "volume" {
		t.Errorf("Received structure map %+v", d.StructMap)
	}
	if len(d.StructMap.Div.Pages) != 2 {
		t.Fatalf("Received %d pages, expected 2", len(d.StructMap.Div.Pages))
	}
	page := d.StructMap.Div.Pages[1]
	var ids []string
	for _, f := range page.Fptrs {
		ids = append(ids, f.FileID)
	}
	if page.Order != 2 || page.Type != "page" {
		t.Errorf("Received page %+v", page)
	}
	if diff := deep.Equal(ids, []string{"TIFF0002", "POS0002", "TXT0002"}); diff != nil {
		t.Error(diff)
	}
}
