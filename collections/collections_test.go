package collections

import (
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	s, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	s2, _ := Default()
	if s != s2 {
		t.Errorf("Default table loaded more than once")
	}
	var table = []struct {
		id   int
		info Info
	}{
		{1, Info{"Methodism", "Pitts Theology Library", "531 Dickey Drive, Suite 560 Atlanta, GA 30322"}},
		{15, Info{"Emory Yearbooks", "Stuart A. Rose Manuscript, Archives and Rare Book Library", "540 Asbury Circle, Atlanta, GA 30322"}},
		{356, Unknown},
		{0, Unknown},
	}
	for _, test := range table {
		if info := s.Info(test.id); info != test.info {
			t.Errorf("%d: Received %#v, expected %#v", test.id, info, test.info)
		}
	}
	if s.Info(19) == Unknown {
		t.Errorf("expected collection 19 in the default table")
	}
}

func TestLoad(t *testing.T) {
	const input = "source organization\tcollection id\tsource organization address\tcollection name\n" +
		"Somewhere\t7\t1 Main Street\tSeven\n"
	s, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	expected := Info{"Seven", "Somewhere", "1 Main Street"}
	if info := s.Info(7); info != expected {
		t.Errorf("Received %#v, expected %#v", info, expected)
	}
	if s.Len() != 1 {
		t.Errorf("Received %d, expected 1", s.Len())
	}
}

func TestLoadErrors(t *testing.T) {
	var table = []string{
		"",
		"collection id\tcollection name\n1\tx\n",
		"collection id\tcollection name\tsource organization\tsource organization address\nseven\ta\tb\tc\n",
		"collection id\tcollection name\tsource organization\tsource organization address\n1\ta\tb\n",
	}
	for _, input := range table {
		if _, err := Load(strings.NewReader(input)); err == nil {
			t.Errorf("%q: expected an error", input)
		}
	}
}

func TestNilSources(t *testing.T) {
	var s *Sources
	if s.Info(1) != Unknown {
		t.Errorf("Received %#v, expected %#v", s.Info(1), Unknown)
	}
}
