// Package bagger assembles BagIt bags for digitized objects. An object is
// described by a Baggee, which lists the payload files and the files for
// each category of metadata. A Bagger copies them into a new bag
// directory, generates the remaining metadata, and computes the manifests.
package bagger

import (
	"context"

	"github.com/ndlib/baggins/mets"
)

// A Baggee is one thing to put in a bag. The file list methods return
// absolute paths, and calling them more than once gives the same answer
// while the files on disk are unchanged.
type Baggee interface {
	ObjectID() string
	ObjectTitle() string
	// BagInfo is the set of tags to add to bag-info.txt. See the
	// constants below for the names used.
	BagInfo() map[string]string

	PayloadFiles() ([]string, error)
	DescriptiveMetadata() ([]string, error)
	TechnicalMetadata() ([]string, error)
	RightsMetadata() ([]string, error)
	IdentityMetadata() ([]string, error)
	AuditMetadata() ([]string, error)
	RelationshipMetadata() ([]string, error)
	ContentMetadata() ([]string, error)
}

// Names of the bag-info.txt tags a Baggee may supply.
const (
	SourceOrganization        = "Source-Organization"
	OrganizationAddress       = "Organization-Address"
	ExternalDescription       = "External-Description"
	ExternalIdentifier        = "External-Identifier"
	InternalSenderIdentifier  = "Internal-Sender-Identifier"
	InternalSenderDescription = "Internal-Sender-Description"
	BagGroupIdentifier        = "Bag-Group-Identifier"
)

// Base is a Baggee with no files. Embed it and override the methods for the
// categories an object has.
type Base struct {
	ID    string
	Title string
	Info  map[string]string
}

var _ Baggee = &Base{}

func (b *Base) ObjectID() string    { return b.ID }
func (b *Base) ObjectTitle() string { return b.Title }

func (b *Base) BagInfo() map[string]string {
	result := make(map[string]string, len(b.Info))
	for k, v := range b.Info {
		result[k] = v
	}
	return result
}

func (b *Base) PayloadFiles() ([]string, error)         { return nil, nil }
func (b *Base) DescriptiveMetadata() ([]string, error)  { return nil, nil }
func (b *Base) TechnicalMetadata() ([]string, error)    { return nil, nil }
func (b *Base) RightsMetadata() ([]string, error)       { return nil, nil }
func (b *Base) IdentityMetadata() ([]string, error)     { return nil, nil }
func (b *Base) AuditMetadata() ([]string, error)        { return nil, nil }
func (b *Base) RelationshipMetadata() ([]string, error) { return nil, nil }
func (b *Base) ContentMetadata() ([]string, error)      { return nil, nil }

// A StructureProvider can describe the structure of its payload. The
// document is saved with the content metadata.
type StructureProvider interface {
	Structure(payload []string) (*mets.Document, error)
}

// A RelationshipProvider knows how its object relates to others. The
// relationships are saved with the relationship metadata.
type RelationshipProvider interface {
	Relationships(ctx context.Context) (*Relationships, error)
}

// Relationships is saved as YAML in the relationship metadata.
type Relationships struct {
	Collection CollectionRef `yaml:"collection"`
	Source     SourceRef     `yaml:"source"`
	// Book and CollectionObject are only known for objects already in the
	// repository.
	Book             *ObjectRef `yaml:"book,omitempty"`
	CollectionObject *ObjectRef `yaml:"collection_object,omitempty"`
}

type CollectionRef struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

type SourceRef struct {
	Organization string `yaml:"organization"`
	Address      string `yaml:"address"`
}

// ObjectRef identifies a repository object.
type ObjectRef struct {
	PID    string `yaml:"pid"`
	Label  string `yaml:"label,omitempty"`
	Ark    string `yaml:"ark,omitempty"`
	ArkURI string `yaml:"ark_uri,omitempty"`
}
