package fedora

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-test/deep"
	"github.com/julienschmidt/httprouter"
)

var objects = map[string]string{
	"emory:7svgb": `{"pid": "emory:7svgb", "label": "Atlanta city directory, 1923",
		"identifiers": ["emory:7svgb", "http://pid.emory.edu/ark:/25593/7svgb"],
		"relations": {"isConstituentOf": ["info:fedora/emory:7r0fk"]}}`,
	"emory:7r0fk": `{"pid": "emory:7r0fk", "label": "Atlanta city directory",
		"identifiers": ["http://pid.emory.edu/ark:/25593/7r0fk"],
		"relations": {"isMemberOfCollection": "emory:93z53"}}`,
	"emory:93z53": `{"pid": "emory:93z53", "label": "Atlanta City Directories",
		"identifiers": ["emory:93z53"]}`,
	"emory:lonely": `{"pid": "emory:lonely", "label": "A volume without a book"}`,
}

// fakeRepository serves objects, counting the requests made for each pid.
func fakeRepository(t *testing.T, counts map[string]*int32) *httptest.Server {
	router := httprouter.New()
	router.GET("/fedora/objects/:pid", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		pid := ps.ByName("pid")
		if c := counts[pid]; c != nil {
			atomic.AddInt32(c, 1)
		}
		if pid == "emory:broken" {
			w.WriteHeader(500)
			return
		}
		body, ok := objects[pid]
		if !ok {
			w.WriteHeader(404)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetObject(t *testing.T) {
	srv := fakeRepository(t, nil)
	c := New(srv.URL + "/fedora/")
	obj, err := c.GetObject(context.Background(), "emory:7svgb")
	if err != nil {
		t.Fatal(err)
	}
	if !obj.Exists {
		t.Errorf("Received Exists false, expected true")
	}
	if obj.Label != "Atlanta city directory, 1923" {
		t.Errorf("Received %q", obj.Label)
	}
	if obj.Related(IsConstituentOf) != "emory:7r0fk" {
		t.Errorf("Received %q, expected %q", obj.Related(IsConstituentOf), "emory:7r0fk")
	}
	if obj.ArkURI() != "http://pid.emory.edu/ark:/25593/7svgb" {
		t.Errorf("Received %q", obj.ArkURI())
	}
	if obj.Ark() != "ark:/25593/7svgb" {
		t.Errorf("Received %q", obj.Ark())
	}

	obj, err = c.GetObject(context.Background(), "emory:nothere")
	if err != nil {
		t.Fatal(err)
	}
	if obj.Exists || obj.PID != "emory:nothere" {
		t.Errorf("Received %#v, expected a non-existent object", obj)
	}

	_, err = c.GetObject(context.Background(), "emory:broken")
	if !errors.Is(err, ErrUnexpectedResp) {
		t.Errorf("Received %v, expected %v", err, ErrUnexpectedResp)
	}
}

func TestArk(t *testing.T) {
	var table = []struct {
		identifiers []string
		uri         string
		ark         string
	}{
		{nil, "", ""},
		{[]string{"pid:foo", "25", "http://pid.co/ark:/1234/98"}, "http://pid.co/ark:/1234/98", "ark:/1234/98"},
		{[]string{"ark:/1234/99", "http://pid.co/ark:/1234/98"}, "ark:/1234/99", "ark:/1234/99"},
	}
	for _, test := range table {
		obj := &Object{Identifiers: test.identifiers}
		if obj.ArkURI() != test.uri {
			t.Errorf("Received %q, expected %q", obj.ArkURI(), test.uri)
		}
		if obj.Ark() != test.ark {
			t.Errorf("Received %q, expected %q", obj.Ark(), test.ark)
		}
	}

	// computed once
	obj := &Object{}
	if obj.ArkURI() != "" {
		t.Fatalf("Received %q, expected empty", obj.ArkURI())
	}
	obj.Identifiers = append(obj.Identifiers, "http://pid.co/ark:/1234/98")
	if obj.ArkURI() != "" {
		t.Errorf("Received %q, expected the first computed value", obj.ArkURI())
	}
}

func TestVolume(t *testing.T) {
	srv := fakeRepository(t, nil)
	repo := NewRepository(New(srv.URL + "/fedora"))
	vol, err := repo.Volume(context.Background(), "emory:7svgb")
	if err != nil {
		t.Fatal(err)
	}
	if vol.Book == nil || vol.Book.Collection == nil {
		t.Fatalf("Received %#v, expected book and collection", vol)
	}
	var table = []struct {
		received string
		expected string
	}{
		{vol.PID, "emory:7svgb"},
		{vol.Book.PID, "emory:7r0fk"},
		{vol.Book.Label, "Atlanta city directory"},
		{vol.Book.Ark(), "ark:/25593/7r0fk"},
		{vol.Book.Collection.PID, "emory:93z53"},
		{vol.Book.Collection.Label, "Atlanta City Directories"},
		{vol.Book.Collection.ArkURI(), ""},
	}
	for _, test := range table {
		if test.received != test.expected {
			t.Errorf("Received %q, expected %q", test.received, test.expected)
		}
	}

	vol, err = repo.Volume(context.Background(), "emory:lonely")
	if err != nil {
		t.Fatal(err)
	}
	if vol.Book != nil {
		t.Errorf("Received book %#v, expected none", vol.Book)
	}

	vol, err = repo.Volume(context.Background(), "emory:missing")
	if err != nil {
		t.Fatal(err)
	}
	if vol.Exists || vol.Book != nil {
		t.Errorf("Received %#v, expected a missing volume", vol)
	}
}

func TestRepositoryFetchesOnce(t *testing.T) {
	counts := map[string]*int32{
		"emory:7svgb": new(int32),
		"emory:7r0fk": new(int32),
		"emory:93z53": new(int32),
	}
	srv := fakeRepository(t, counts)
	repo := NewRepository(New(srv.URL + "/fedora"))
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Volume(context.Background(), "emory:7svgb"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	received := make(map[string]int32)
	for pid, c := range counts {
		received[pid] = atomic.LoadInt32(c)
	}
	expected := map[string]int32{"emory:7svgb": 1, "emory:7r0fk": 1, "emory:93z53": 1}
	if diff := deep.Equal(received, expected); diff != nil {
		t.Error(diff)
	}
}

type failing struct{ n int32 }

func (f *failing) GetObject(ctx context.Context, pid string) (*Object, error) {
	if atomic.AddInt32(&f.n, 1) == 1 {
		return nil, errors.New("connection refused")
	}
	return &Object{PID: pid, Exists: true}, nil
}

func TestRepositoryRetriesErrors(t *testing.T) {
	repo := NewRepository(&failing{})
	if _, err := repo.Object(context.Background(), "emory:x"); err == nil {
		t.Fatalf("expected first fetch to fail")
	}
	obj, err := repo.Object(context.Background(), "emory:x")
	if err != nil {
		t.Fatal(err)
	}
	if !obj.Exists {
		t.Errorf("expected second fetch to succeed")
	}
}
