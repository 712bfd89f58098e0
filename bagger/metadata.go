package bagger

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ndlib/baggins/fileutil"
)

// A Category is one kind of metadata kept in a bag. Each category has its
// own directory under "metadata/".
type Category string

const (
	Descriptive  Category = "descriptive"
	Content      Category = "content"
	Relationship Category = "relationship"
	Technical    Category = "technical"
	Rights       Category = "rights"
	Identity     Category = "identity"
	Audit        Category = "audit"
)

// Categories lists every category in the order they are written.
var Categories = []Category{
	Descriptive,
	Content,
	Relationship,
	Technical,
	Rights,
	Identity,
	Audit,
}

// MetadataDir is the bag directory holding the category directories.
const MetadataDir = "metadata"

// Names of the files generated in category directories.
const (
	HumanReadableFile   = "human-readable.txt"
	MachineReadableFile = "machine-readable.yml"
	StructureSuffix     = ".mets.xml"
)

var humanReadable = map[Category]string{
	Descriptive: `This directory holds descriptive metadata for the object, copied from
the catalog record the object was digitized from.
`,
	Content: `This directory holds structural metadata for the object. The METS file
lists every payload file by type and describes the order of the pages,
linking each page image with its OCR text and word position files.
`,
	Relationship: `This directory holds metadata relating the object to other objects.
machine-readable.yml gives the collection the object was digitized for,
the organization which supplied the original, and, for objects already in
the repository, the book and collection objects it belongs to.
`,
	Technical: `This directory holds technical metadata about the payload files.
`,
	Rights: `This directory holds rights metadata for the object.
`,
	Identity: `This directory holds identifiers assigned to the object.
`,
	Audit: `This directory holds audit metadata recording events in the life of
the object.
`,
}

// Files returns the files the Baggee lists for the category.
func (c Category) Files(b Baggee) ([]string, error) {
	switch c {
	case Descriptive:
		return b.DescriptiveMetadata()
	case Content:
		return b.ContentMetadata()
	case Relationship:
		return b.RelationshipMetadata()
	case Technical:
		return b.TechnicalMetadata()
	case Rights:
		return b.RightsMetadata()
	case Identity:
		return b.IdentityMetadata()
	case Audit:
		return b.AuditMetadata()
	}
	return nil, errors.Errorf("unknown metadata category %q", string(c))
}

// WriteCategory creates the directory for category c inside bagdir, copies
// the files into it, and adds the category's human-readable.txt. Copies
// keep their modification times and get the permission bits mode. The
// category directory must not already exist. It returns the path of the
// category directory.
func WriteCategory(bagdir string, c Category, files []string, mode os.FileMode) (string, error) {
	text, ok := humanReadable[c]
	if !ok {
		return "", errors.Errorf("unknown metadata category %q", string(c))
	}
	if err := os.MkdirAll(filepath.Join(bagdir, MetadataDir), 0775); err != nil {
		return "", err
	}
	dir := filepath.Join(bagdir, MetadataDir, string(c))
	err := os.Mkdir(dir, 0775)
	if os.IsExist(err) {
		return "", &DirectoryConflictError{Dir: dir}
	} else if err != nil {
		return "", err
	}
	for _, f := range files {
		if _, err := fileutil.CopyFile(f, dir, mode); err != nil {
			return "", errors.Wrapf(err, "%s metadata", c)
		}
	}
	err = fileutil.WriteFile(filepath.Join(dir, HumanReadableFile), []byte(text), mode)
	if err != nil {
		return "", err
	}
	return dir, nil
}

// writeStructure saves the structure of the payload in the content
// directory dir as "<objectid>.mets.xml".
func writeStructure(dir string, b Baggee, sp StructureProvider, payload []string, mode os.FileMode) error {
	doc, err := sp.Structure(payload)
	if err != nil {
		return errors.Wrap(err, "building structural metadata")
	}
	out, err := doc.Marshal()
	if err != nil {
		return err
	}
	return fileutil.WriteFile(filepath.Join(dir, b.ObjectID()+StructureSuffix), out, mode)
}

// writeRelationships saves the relationships as YAML in the relationship
// directory dir.
func writeRelationships(ctx context.Context, dir string, rp RelationshipProvider, mode os.FileMode) error {
	rel, err := rp.Relationships(ctx)
	if err != nil {
		return errors.Wrap(err, "looking up relationships")
	}
	out, err := yaml.Marshal(rel)
	if err != nil {
		return err
	}
	return fileutil.WriteFile(filepath.Join(dir, MachineReadableFile), out, mode)
}
