package marc

import (
	"errors"
	"strings"
	"testing"
)

func TestParseFile(t *testing.T) {
	rec, err := ParseFile("testdata/ocm08951025_MRC.xml")
	if err != nil {
		t.Fatal(err)
	}
	const title = "Atlanta City Directory Co.'s Greater Atlanta (Georgia) city directory ... including Avondale, Buckhead ... and all immediate suburbs .."
	if rec.Title() != title {
		t.Errorf("Received %q, expected %q", rec.Title(), title)
	}
	if rec.Control("001") != "ocm08951025" {
		t.Errorf("Received %q, expected %q", rec.Control("001"), "ocm08951025")
	}
	const desc = "Annual directory of residents and businesses of Atlanta and its suburbs."
	if rec.Description() != desc {
		t.Errorf("Received %q, expected %q", rec.Description(), desc)
	}
	if f := rec.Field("650"); f == nil || f.Subfield("a") != "Atlanta (Ga.)" {
		t.Errorf("Received %v, expected first 650 field", f)
	}
}

func TestParse(t *testing.T) {
	var table = []struct {
		name  string
		input string
		title string
		err   error
	}{
		{"bare record", `<record xmlns="http://www.loc.gov/MARC21/slim">
			<datafield tag="245" ind1="0" ind2="0"><subfield code="a">Only a title</subfield></datafield>
			</record>`, "Only a title", nil},
		{"no 245", `<collection><record><controlfield tag="001">x</controlfield></record></collection>`, "", nil},
		{"empty collection", `<collection></collection>`, "", ErrNoRecord},
	}
	for _, test := range table {
		rec, err := Parse(strings.NewReader(test.input))
		if !errors.Is(err, test.err) {
			t.Errorf("%s: Received %v, expected %v", test.name, err, test.err)
			continue
		}
		if err != nil {
			continue
		}
		if rec.Title() != test.title {
			t.Errorf("%s: Received %q, expected %q", test.name, rec.Title(), test.title)
		}
	}
	if _, err := Parse(strings.NewReader("<collection><record>")); err == nil {
		t.Errorf("expected an error for truncated input")
	}
}
