// Package lsdi bags digitized books from the Large Scale Digitization
// Initiative. Items are looked up in the Digitization Workflow (DigWF),
// their files are gathered from the locations DigWF reports, and a bag is
// made for each one.
package lsdi

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ndlib/baggins/bagger"
	"github.com/ndlib/baggins/collections"
	"github.com/ndlib/baggins/digwf"
	"github.com/ndlib/baggins/fedora"
	"github.com/ndlib/baggins/mets"
)

// DefaultNamespace is joined to DigWF pids to make repository pids.
const DefaultNamespace = "emory"

// Options are shared by every Baggee made in a run.
type Options struct {
	// Repository is used to find the book and collection of items which
	// have a pid. If nil, no relationships are looked up.
	Repository *fedora.Repository
	// Sources maps DigWF collections to source organizations. If nil
	// every organization is unknown.
	Sources *collections.Sources
	// Namespace is the repository pid namespace. Empty means
	// DefaultNamespace.
	Namespace string
	// Policy for incomplete pages in the structural metadata.
	Policy mets.Policy
	Logger zerolog.Logger
}

// Baggee is a digitized book volume described by a DigWF item.
type Baggee struct {
	bagger.Base
	Item   *digwf.Item
	Volume *fedora.Volume // nil unless the item has a pid

	source collections.Info
	opts   Options
}

var (
	_ bagger.Baggee               = &Baggee{}
	_ bagger.StructureProvider    = &Baggee{}
	_ bagger.RelationshipProvider = &Baggee{}
)

// NewBaggee prepares item for bagging. If the item has a pid and a
// repository is given, the volume along with its book and collection are
// fetched now, so the Baggee needs no further network access.
func NewBaggee(ctx context.Context, item *digwf.Item, opts Options) (*Baggee, error) {
	b := &Baggee{
		Item:   item,
		opts:   opts,
		source: opts.Sources.Info(item.Collection.ID),
	}
	b.ID = item.PID
	if b.ID == "" {
		b.ID = item.ControlKey
	}
	if b.ID == "" {
		return nil, errors.Errorf("item %s has neither a pid nor a control key", item.ItemID)
	}
	b.Title = b.title()
	if item.PID != "" && opts.Repository != nil {
		vol, err := opts.Repository.Volume(ctx, b.RepositoryPID())
		if err != nil {
			return nil, &UpstreamError{Service: "repository", ItemID: item.ItemID, Err: err}
		}
		b.Volume = vol
		if !vol.Exists {
			opts.Logger.Warn().Str("item", item.ItemID).Str("pid", vol.PID).
				Msg("pid not found in repository")
		}
	}
	b.Info = b.bagInfo()
	return b, nil
}

// RepositoryPID is the item's pid including the namespace, or "".
func (b *Baggee) RepositoryPID() string {
	pid := b.Item.PID
	if pid == "" || strings.Contains(pid, ":") {
		return pid
	}
	ns := b.opts.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	return ns + ":" + pid
}

// title comes from the MARC record. Without one the collection name and
// item id are used.
func (b *Baggee) title() string {
	rec, err := b.Item.Marc()
	if err == nil {
		if t := rec.Title(); t != "" {
			return t
		}
	} else {
		b.opts.Logger.Warn().Err(err).Str("item", b.Item.ItemID).Msg("no title from MARC record")
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s", b.Item.Collection.Name, b.Item.ItemID))
}

func (b *Baggee) bagInfo() map[string]string {
	info := map[string]string{
		bagger.SourceOrganization:        b.source.Organization,
		bagger.OrganizationAddress:       b.source.Address,
		bagger.ExternalDescription:       b.Title,
		bagger.ExternalIdentifier:        b.ID,
		bagger.InternalSenderIdentifier:  b.Item.ItemID,
		bagger.InternalSenderDescription: "Digitization Workflow item " + b.Item.ItemID,
	}
	if b.Item.Collection.Name != "" {
		info[bagger.InternalSenderDescription] += " in collection " + b.Item.Collection.Name
	}
	if b.Volume != nil && b.Volume.Ark() != "" {
		info[bagger.ExternalIdentifier] = b.Volume.Ark()
	}
	if rec, err := b.Item.Marc(); err == nil {
		if d := rec.Description(); d != "" {
			info[bagger.ExternalDescription] = d
		}
	}
	return info
}

// ImageFiles are the page images.
func (b *Baggee) ImageFiles() ([]string, error) {
	fs, err := bagger.FindImages(b.Item.DisplayImages.Path, b.Item.DisplayImages.Count)
	if err != nil {
		return nil, errors.Wrapf(err, "item %s images", b.Item.ItemID)
	}
	return fs.Paths, nil
}

// PageTextFiles are the OCR text and word position files for each page.
func (b *Baggee) PageTextFiles() ([]string, error) {
	fs, err := bagger.FindTextAndPosition(b.Item.OCRFiles.Path, b.Item.OCRFiles.Count)
	if err != nil {
		return nil, errors.Wrapf(err, "item %s OCR files", b.Item.ItemID)
	}
	return fs.Paths, nil
}

// PayloadFiles are the page images and OCR files along with the volume PDF
// and the volume OCR file when DigWF lists them.
func (b *Baggee) PayloadFiles() ([]string, error) {
	images, err := b.ImageFiles()
	if err != nil {
		return nil, err
	}
	text, err := b.PageTextFiles()
	if err != nil {
		return nil, err
	}
	result := append(images, text...)
	for _, f := range []string{b.Item.PDF, b.Item.OCRFile} {
		if f != "" {
			result = append(result, f)
		}
	}
	return result, nil
}

// DescriptiveMetadata is the MARC XML record.
func (b *Baggee) DescriptiveMetadata() ([]string, error) {
	if b.Item.MarcPath == "" {
		return nil, nil
	}
	return []string{b.Item.MarcPath}, nil
}

// Structure describes the pages of the volume.
func (b *Baggee) Structure(payload []string) (*mets.Document, error) {
	logger := b.opts.Logger.With().Str("item", b.Item.ItemID).Logger()
	return mets.Build(b.ID, b.Title, payload, mets.Options{Policy: b.opts.Policy, Logger: logger})
}

// Relationships gives the collection and source of the volume, and the
// book and collection objects when the volume is in the repository.
func (b *Baggee) Relationships(ctx context.Context) (*bagger.Relationships, error) {
	rel := &bagger.Relationships{
		Collection: bagger.CollectionRef{
			ID:   b.Item.Collection.ID,
			Name: b.Item.Collection.Name,
		},
		Source: bagger.SourceRef{
			Organization: b.source.Organization,
			Address:      b.source.Address,
		},
	}
	if b.Volume == nil || b.Volume.Book == nil {
		return rel, nil
	}
	rel.Book = objectRef(b.Volume.Book.Object)
	if b.Volume.Book.Collection != nil {
		rel.CollectionObject = objectRef(b.Volume.Book.Collection)
	}
	return rel, nil
}

func objectRef(obj *fedora.Object) *bagger.ObjectRef {
	return &bagger.ObjectRef{
		PID:    obj.PID,
		Label:  obj.Label,
		Ark:    obj.Ark(),
		ArkURI: obj.ArkURI(),
	}
}
