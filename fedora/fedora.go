// Package fedora looks up objects in the digital object repository. Only
// what the bagger needs is supported: an object's label, its identifiers,
// and its relationships to other objects.
//
// Objects are read from the repository's JSON object profile,
//
//	GET <base>/objects/<pid>
//
// which looks like
//
//	{"pid": "emory:7svgb",
//	 "label": "Atlanta city directory, 1923",
//	 "identifiers": ["emory:7svgb", "http://pid.emory.edu/ark:/25593/7svgb"],
//	 "relations": {"isConstituentOf": ["emory:7r0fk"]}}
package fedora

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/pkg/errors"
)

// Relationships between objects that are followed.
const (
	IsConstituentOf      = "isConstituentOf"
	IsMemberOfCollection = "isMemberOfCollection"
)

// Client reads objects from a repository.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a client for the repository API at baseurl.
func New(baseurl string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseurl, "/")}
}

// ErrUnexpectedResp means the repository returned an unexpected status code.
var ErrUnexpectedResp = errors.New("unexpected response from repository")

// GetObject returns the object having the given pid. An object which the
// repository does not have is returned with Exists set to false, and is not
// an error.
func (c *Client) GetObject(ctx context.Context, pid string) (*Object, error) {
	u := c.BaseURL + "/objects/" + url.PathEscape(pid)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", pid)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case 200:
	case 404:
		return &Object{PID: pid}, nil
	default:
		return nil, errors.Wrapf(ErrUnexpectedResp, "status %d for %s", resp.StatusCode, pid)
	}

	v, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", pid)
	}
	obj := &Object{
		PID:       pid,
		Exists:    true,
		Relations: make(map[string][]string),
	}
	if s, err := v.GetString("pid"); err == nil && s != "" {
		obj.PID = s
	}
	obj.Label, _ = v.GetString("label")
	obj.Identifiers, _ = v.GetStringArray("identifiers")
	if rels, err := v.GetObject("relations"); err == nil {
		for name := range rels.Map() {
			targets, err := rels.GetStringArray(name)
			if err != nil {
				// allow a single value as well as a list
				s, err2 := rels.GetString(name)
				if err2 != nil {
					continue
				}
				targets = []string{s}
			}
			obj.Relations[name] = targets
		}
	}
	return obj, nil
}

// do performs an http request using our client with a timeout.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.HTTP == nil {
		c.HTTP = &http.Client{
			Timeout: time.Minute,
		}
	}
	return c.HTTP.Do(req)
}

// Object is a repository object. Objects are shared between goroutines once
// they are returned, and should not be modified.
type Object struct {
	PID         string
	Label       string
	Exists      bool
	Identifiers []string
	Relations   map[string][]string

	arkOnce sync.Once
	arkURI  string
}

// Related returns the first object pid in the given relation, or "".
func (obj *Object) Related(relation string) string {
	if targets := obj.Relations[relation]; len(targets) > 0 {
		return strings.TrimPrefix(targets[0], "info:fedora/")
	}
	return ""
}

// ArkURI is the resolvable ARK for this object, the first identifier
// containing "ark:/". It is "" if there is none.
func (obj *Object) ArkURI() string {
	obj.arkOnce.Do(func() {
		for _, id := range obj.Identifiers {
			if strings.Contains(id, "ark:/") {
				obj.arkURI = id
				return
			}
		}
	})
	return obj.arkURI
}

// Ark is the ARK identifier alone, starting with "ark:/". It is "" if the
// object has no ARK.
func (obj *Object) Ark() string {
	uri := obj.ArkURI()
	if i := strings.Index(uri, "ark:/"); i >= 0 {
		return uri[i:]
	}
	return ""
}
