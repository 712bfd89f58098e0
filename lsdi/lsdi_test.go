package lsdi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/julienschmidt/httprouter"
)

const marcFixture = "../marc/testdata/ocm08951025_MRC.xml"

// makeVolume writes n complete pages, a PDF, and a volume OCR file into a
// new directory, which it returns.
func makeVolume(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	write := func(name string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}
	for i := 1; i <= n; i++ {
		for _, ext := range []string{".tif", ".txt", ".pos"} {
			write(fmt.Sprintf("%08d%s", i, ext))
		}
	}
	write("Output.pdf")
	write("Output.xml")
	return dir
}

// itemXML is a getItems response for a single item with files in dir.
func itemXML(id, pid, key, dir string, count int) string {
	marc, _ := filepath.Abs(marcFixture)
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<items count="1">
  <item id="%s" pid="%s" control_key="%s" status="Ready for Repository">
    <display_images_path count="%d">%s</display_images_path>
    <ocr_files_path count="%d">%s</ocr_files_path>
    <pdf_file>%s</pdf_file>
    <ocr_file>%s</ocr_file>
    <marc_file>%s</marc_file>
    <collection id="27">Atlanta City Directories</collection>
  </item>
</items>`, id, pid, key, count, dir, count, dir,
		filepath.Join(dir, "Output.pdf"), filepath.Join(dir, "Output.xml"), marc)
}

// fakeDigWF answers getItems from responses, keyed by item id. Unknown ids
// get an empty result.
func fakeDigWF(t *testing.T, responses map[string]string) *httptest.Server {
	router := httprouter.New()
	router.GET("/digwf_api/getItems", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id := r.URL.Query().Get("item_id")
		if id == "500" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		body, ok := responses[id]
		if !ok {
			body = `<?xml version="1.0" encoding="UTF-8"?><items/>`
		}
		fmt.Fprint(w, body)
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

var repositoryObjects = map[string]string{
	"emory:7svgb": `{"pid": "emory:7svgb", "label": "Atlanta city directory, 1923",
		"identifiers": ["emory:7svgb", "http://pid.emory.edu/ark:/25593/7svgb"],
		"relations": {"isConstituentOf": ["info:fedora/emory:7r0fk"]}}`,
	"emory:7r0fk": `{"pid": "emory:7r0fk", "label": "Atlanta city directory",
		"identifiers": ["http://pid.emory.edu/ark:/25593/7r0fk"],
		"relations": {"isMemberOfCollection": ["info:fedora/emory:93z53"]}}`,
	"emory:93z53": `{"pid": "emory:93z53", "label": "Atlanta City Directories",
		"identifiers": ["http://pid.emory.edu/ark:/25593/93z53"]}`,
}

// fakeRepository serves repositoryObjects.
func fakeRepository(t *testing.T) *httptest.Server {
	router := httprouter.New()
	router.GET("/fedora/objects/:pid", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		body, ok := repositoryObjects[ps.ByName("pid")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}
