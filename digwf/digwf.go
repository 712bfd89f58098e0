// Package digwf is a client for the Digitization Workflow (DigWF) API, which
// reports where the files for digitized Large Scale Digitization Initiative
// (LSDI) items are kept.
//
// Only the getItems method is supported, and only the fields of an item which
// are needed to bag it are decoded.
package digwf

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ndlib/baggins/marc"
)

// Client queries a DigWF server.
type Client struct {
	// BaseURL of the API, e.g. "http://example.com/digwf_api", without a
	// trailing slash.
	BaseURL string

	// HTTP is the client used for requests. If nil, a client with a
	// generous timeout is used.
	HTTP *http.Client
}

// New returns a client for the DigWF API at baseurl.
func New(baseurl string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseurl, "/")}
}

// StatusError is returned when the server replies with something other than
// 200 OK.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return "DigWF request " + e.URL + " returned " + http.StatusText(e.Status)
}

// GetItems calls the getItems method with the given query arguments. The
// server understands "item_id", "control_key" (which may match more than one
// item), and "pid". With no arguments the server returns every item in the
// Ready for Repository state.
func (c *Client) GetItems(ctx context.Context, query url.Values) (*Items, error) {
	u := c.BaseURL + "/getItems"
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, errors.Wrap(err, "DigWF getItems")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: u, Status: resp.StatusCode}
	}
	result := new(Items)
	if err := xml.NewDecoder(resp.Body).Decode(result); err != nil {
		return nil, errors.Wrap(err, "decoding DigWF getItems response")
	}
	return result, nil
}

// ItemByID looks up a single item by its DigWF item id.
func (c *Client) ItemByID(ctx context.Context, itemID string) (*Items, error) {
	return c.GetItems(ctx, url.Values{"item_id": {itemID}})
}

// do performs an http request using our client with a timeout. The timeout
// is there so we don't hang indefinitely should the server never close the
// connection.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.HTTP == nil {
		c.HTTP = &http.Client{
			Timeout: 2 * time.Minute,
		}
	}
	return c.HTTP.Do(req)
}

// Items is the response of getItems.
type Items struct {
	XMLName xml.Name `xml:"items"`
	// Count is the number of items found. It is 0 for an empty result,
	// where the server leaves out the count attribute.
	Count int     `xml:"count,attr"`
	Items []*Item `xml:"item"`
}

// PathCount is a directory along with the number of files expected in it.
type PathCount struct {
	Path  string `xml:",chardata"`
	Count int    `xml:"count,attr"`
}

// Collection identifies the DigWF collection an item belongs to.
type Collection struct {
	ID   int    `xml:"id,attr"`
	Name string `xml:",chardata"`
}

// Item is the information DigWF has about one digitized item.
type Item struct {
	// ItemID is the item id within DigWF.
	ItemID string `xml:"id,attr"`
	// PID is the noid portion of the ARK or repository pid. It is empty
	// when the item has not been ingested.
	PID string `xml:"pid,attr"`
	// ControlKey is e.g. the OCLC number. It is unique per book, not per
	// volume.
	ControlKey string `xml:"control_key,attr"`

	DisplayImages PathCount  `xml:"display_images_path"`
	OCRFiles      PathCount  `xml:"ocr_files_path"`
	PDF           string     `xml:"pdf_file"`
	OCRFile       string     `xml:"ocr_file"` // ABBYY FineReader XML for the volume
	MarcPath      string     `xml:"marc_file"`
	Collection    Collection `xml:"collection"`

	marcOnce sync.Once
	marc     *marc.Record
	marcErr  error
}

// Marc returns the item's MARC record, parsing the MARC XML file the first
// time it is asked for.
func (item *Item) Marc() (*marc.Record, error) {
	item.marcOnce.Do(func() {
		if item.MarcPath == "" {
			item.marcErr = errors.Errorf("item %s has no MARC file", item.ItemID)
			return
		}
		item.marc, item.marcErr = marc.ParseFile(item.MarcPath)
	})
	return item.marc, item.marcErr
}
