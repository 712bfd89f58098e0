// Package collections maps DigWF collection ids to the organization which
// supplied the collection's content. A table for the known collections is
// built into the program, and other tables may be loaded instead.
package collections

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

//go:embed collection_sources.tsv
var defaultTable []byte

// Info describes one collection.
type Info struct {
	Name         string `yaml:"name"`
	Organization string `yaml:"organization"`
	Address      string `yaml:"address"`
}

// Unknown is returned for collections not in the table.
var Unknown = Info{Organization: "undetermined", Address: "not known"}

// Sources is a lookup table from collection id to collection information.
// It is not modified after it is loaded, so it is safe for concurrent use.
type Sources struct {
	info map[int]Info
}

// The column names the table must have.
const (
	colID           = "collection id"
	colName         = "collection name"
	colOrganization = "source organization"
	colAddress      = "source organization address"
)

// Load reads a tab separated table. The first row is a header naming the
// columns, and must include "collection id", "collection name",
// "source organization", and "source organization address" in any order.
func Load(r io.Reader) (*Sources, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading collection table header")
	}
	cols := make(map[string]int)
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{colID, colName, colOrganization, colAddress} {
		if _, ok := cols[name]; !ok {
			return nil, errors.Errorf("collection table missing column %q", name)
		}
	}
	s := &Sources{info: make(map[int]Info)}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "reading collection table")
		}
		id, err := strconv.Atoi(strings.TrimSpace(row[cols[colID]]))
		if err != nil {
			line, _ := cr.FieldPos(cols[colID])
			return nil, errors.Errorf("collection table line %d: bad collection id %q", line, row[cols[colID]])
		}
		s.info[id] = Info{
			Name:         strings.TrimSpace(row[cols[colName]]),
			Organization: strings.TrimSpace(row[cols[colOrganization]]),
			Address:      strings.TrimSpace(row[cols[colAddress]]),
		}
	}
	return s, nil
}

var (
	defaultOnce    sync.Once
	defaultSources *Sources
	defaultErr     error
)

// Default returns the built in table. It is parsed the first time it is
// needed.
func Default() (*Sources, error) {
	defaultOnce.Do(func() {
		defaultSources, defaultErr = Load(bytes.NewReader(defaultTable))
	})
	return defaultSources, defaultErr
}

// Info returns the information for the given collection, or Unknown.
func (s *Sources) Info(id int) Info {
	if s != nil {
		if info, ok := s.info[id]; ok {
			return info
		}
	}
	return Unknown
}

// Len is the number of collections in the table.
func (s *Sources) Len() int {
	if s == nil {
		return 0
	}
	return len(s.info)
}
