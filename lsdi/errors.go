package lsdi

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoItem means DigWF has no item with the requested id.
var ErrNoItem = errors.New("no item found")

// ErrSkipped is the result for items not processed because an earlier item
// failed.
var ErrSkipped = errors.New("skipped after an earlier failure")

// ErrNonNumericID is returned by LoadItemIDs.
var ErrNonNumericID = errors.New("item ids should be numeric")

// LookupAmbiguityError means DigWF returned more than one item for an item
// id.
type LookupAmbiguityError struct {
	ItemID string
	Count  int
}

func (e *LookupAmbiguityError) Error() string {
	return fmt.Sprintf("DigWF returned %d matches for item id %s", e.Count, e.ItemID)
}

// UpstreamError is a failure talking to DigWF or the repository.
type UpstreamError struct {
	Service string
	ItemID  string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s lookup for item %s: %v", e.Service, e.ItemID, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
