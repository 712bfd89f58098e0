package lsdi

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	raven "github.com/getsentry/raven-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ndlib/baggins/bagger"
	"github.com/ndlib/baggins/bagit"
	"github.com/ndlib/baggins/digwf"
	"github.com/ndlib/baggins/store"
)

// ItemFinder looks up DigWF items. *digwf.Client is an ItemFinder.
type ItemFinder interface {
	ItemByID(ctx context.Context, itemID string) (*digwf.Items, error)
}

// Processor bags a batch of DigWF items.
type Processor struct {
	DigWF   ItemFinder
	Options Options // used for each Baggee
	Bagger  *bagger.Bagger
	// Output is the directory the bags are made in.
	Output string
	// Workers is the number of items processed at once. Zero means one.
	Workers int
	// StopOnError stops starting new items once one has failed. Items
	// already started are finished.
	StopOnError bool
	// Archive, if set, receives a zip serialization of each bag.
	Archive store.Store
	// Out receives the progress report, a few lines for each item.
	Out    io.Writer
	Logger zerolog.Logger

	outm sync.Mutex // serializes writes to Out
}

// Result is the outcome for one item.
type Result struct {
	ItemID   string
	Bag      string // directory of the bag made
	Archived string // key of the bag in the archive store
	Err      error
}

// ProcessItems makes a bag for each of the DigWF item ids. The results are
// in the same order as ids.
func (p *Processor) ProcessItems(ctx context.Context, ids []string) []Result {
	bg := bagger.New()
	if p.Bagger != nil {
		bg = p.Bagger
	}
	batch := *bg
	if batch.GroupID == "" {
		batch.GroupID = uuid.NewString()
	}
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	p.Logger.Info().Int("items", len(ids)).Int("workers", workers).
		Str("group", batch.GroupID).Msg("starting batch")

	results := make([]Result, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range ids {
		results[i].ItemID = id
		if gctx.Err() != nil {
			results[i].Err = ErrSkipped
			continue
		}
		i := i
		g.Go(func() error {
			r := &results[i]
			if gctx.Err() != nil {
				r.Err = ErrSkipped
				return nil
			}
			// gctx only gates starting an item. Once started it runs
			// to completion under ctx, even if another item fails.
			var report bytes.Buffer
			p.processItem(ctx, &batch, r, &report)
			p.write(report.Bytes())
			if r.Err != nil {
				p.Logger.Error().Stack().Err(r.Err).Str("item", r.ItemID).Msg("item failed")
				raven.CaptureError(r.Err, map[string]string{"item": r.ItemID})
				if p.StopOnError {
					return r.Err
				}
			}
			return nil
		})
	}
	g.Wait()
	return results
}

func (p *Processor) write(b []byte) {
	if p.Out == nil || len(b) == 0 {
		return
	}
	p.outm.Lock()
	defer p.outm.Unlock()
	p.Out.Write(b)
}

// processItem fills in r, writing report lines to out.
func (p *Processor) processItem(ctx context.Context, bg *bagger.Bagger, r *Result, out io.Writer) {
	id := r.ItemID
	result, err := p.DigWF.ItemByID(ctx, id)
	if err != nil {
		r.Err = &UpstreamError{Service: "DigWF", ItemID: id, Err: err}
		fmt.Fprintf(out, "Error processing item %s: %s\n", id, r.Err)
		return
	}
	switch {
	case result.Count == 0 || len(result.Items) == 0:
		r.Err = errors.Wrap(ErrNoItem, id)
		fmt.Fprintf(out, "No item found for item id %s\n", id)
		return
	case result.Count > 1 || len(result.Items) > 1:
		n := result.Count
		if len(result.Items) > n {
			n = len(result.Items)
		}
		r.Err = &LookupAmbiguityError{ItemID: id, Count: n}
		fmt.Fprintf(out, "Error! DigWF returned %d matches for item id %s\n", n, id)
		return
	}
	item := result.Items[0]
	pid := item.PID
	if pid == "" {
		pid = "-"
	}
	marcPath := item.MarcPath
	if marcPath == "" {
		marcPath = "-"
	}
	fmt.Fprintf(out, "Found item %s (pid %s, control key %s, marc %s)\n", id, pid, item.ControlKey, marcPath)

	b, err := NewBaggee(ctx, item, p.Options)
	if err == nil {
		var bag *bagit.Bag
		bag, err = bg.CreateBag(ctx, b, p.Output)
		if err == nil {
			r.Bag = bag.Dir()
			fmt.Fprintf(out, "Bag created at %s\n", r.Bag)
			if p.Archive != nil {
				r.Archived, err = p.archive(bag)
				if err == nil {
					fmt.Fprintf(out, "Bag archived as %s\n", r.Archived)
				}
			}
		}
	}
	if err != nil {
		r.Err = err
		fmt.Fprintf(out, "Error processing item %s: %s\n", id, err)
	}
}

// archive writes bag as a zip file into the archive store and then reads
// it back to verify the checksums. It returns the key used.
func (p *Processor) archive(bag *bagit.Bag) (string, error) {
	key := filepath.Base(bag.Dir()) + ".zip"
	w, err := p.Archive.Create(key)
	if err != nil {
		return "", errors.Wrapf(err, "archiving %s", key)
	}
	err = bagit.WriteZip(bag, w)
	err2 := w.Close()
	if err == nil {
		err = err2
	}
	if err != nil {
		p.Archive.Delete(key)
		return "", errors.Wrapf(err, "archiving %s", key)
	}

	rac, size, err := p.Archive.Open(key)
	if err != nil {
		return "", errors.Wrapf(err, "reopening %s", key)
	}
	defer rac.Close()
	zr, err := bagit.NewReader(rac, size)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", key)
	}
	if err := zr.Verify(); err != nil {
		return "", errors.Wrapf(err, "verifying %s", key)
	}
	return key, nil
}

// LoadItemIDs reads item ids, one per line. Blank lines are ignored, and
// any line which is not a number is an error.
func LoadItemIDs(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		s := strings.TrimSpace(scanner.Text())
		if s == "" {
			continue
		}
		for _, c := range s {
			if c < '0' || c > '9' {
				return nil, errors.Wrapf(ErrNonNumericID, "line %d %q", line, s)
			}
		}
		ids = append(ids, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
