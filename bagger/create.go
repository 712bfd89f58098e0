package bagger

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ndlib/baggins/bagit"
	"github.com/ndlib/baggins/fileutil"
)

// DefaultMode is the permission given to copied and generated files when no
// other is configured.
const DefaultMode os.FileMode = 0664

// A Bagger makes bags. The zero value is usable, but it leaves the
// directories of failed bags in place; New returns one which removes them.
type Bagger struct {
	// TitleLength is the approximate length of the title part of a bag
	// name. See FileTitle.
	TitleLength int
	// Algorithms are the manifest checksums. md5 and sha256 are always
	// included.
	Algorithms []string
	// Permission bits for payload files and for metadata files.
	PayloadMode  os.FileMode
	MetadataMode os.FileMode
	// Cleanup removes the bag directory if making the bag fails.
	Cleanup bool
	// GroupID, if set, is recorded in every bag as the Bag-Group-Identifier.
	GroupID string
	Logger  zerolog.Logger
}

// New returns a Bagger with the default settings.
func New() *Bagger {
	return &Bagger{
		TitleLength:  DefaultTitleLength,
		Algorithms:   bagit.DefaultAlgorithms,
		PayloadMode:  DefaultMode,
		MetadataMode: DefaultMode,
		Cleanup:      true,
		Logger:       zerolog.Nop(),
	}
}

func mode(m os.FileMode) os.FileMode {
	if m == 0 {
		return DefaultMode
	}
	return m
}

// CreateBag makes a bag for b inside basedir. The bag directory is named by
// BagName and must not already exist. The payload files are copied into the
// bag, every metadata category is written, and then the manifests are
// computed. If any step fails no valid bag is left behind: either the
// directory is removed (when Cleanup is set) or it is left without the
// bag declaration.
func (bg *Bagger) CreateBag(ctx context.Context, b Baggee, basedir string) (*bagit.Bag, error) {
	name := BagName(b, bg.TitleLength)
	dir := filepath.Join(basedir, name)
	logger := bg.Logger.With().Str("object", b.ObjectID()).Str("bag", dir).Logger()

	err := os.Mkdir(dir, 0775)
	if os.IsExist(err) {
		return nil, &PackageExistsError{Dir: dir}
	} else if err != nil {
		return nil, err
	}
	bag, err := bg.fill(ctx, b, dir, logger)
	if err != nil {
		if bg.Cleanup {
			if rerr := os.RemoveAll(dir); rerr != nil {
				logger.Error().Err(rerr).Msg("removing failed bag")
			}
		} else {
			os.Remove(filepath.Join(dir, "bagit.txt"))
		}
		return nil, err
	}
	logger.Info().Str("oxum", bag.Tags()[bagit.TagPayloadOxum]).Msg("bag created")
	return bag, nil
}

// fill does everything after the bag directory is made.
func (bg *Bagger) fill(ctx context.Context, b Baggee, dir string, logger zerolog.Logger) (*bagit.Bag, error) {
	payload, err := b.PayloadFiles()
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("files", len(payload)).Msg("copying payload")
	for _, p := range payload {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := fileutil.CopyFile(p, dir, mode(bg.PayloadMode)); err != nil {
			return nil, errors.Wrap(err, "payload")
		}
	}

	for _, c := range Categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := bg.writeCategory(ctx, b, dir, c, payload); err != nil {
			return nil, err
		}
	}

	info := b.BagInfo()
	if info == nil {
		info = make(map[string]string)
	}
	if bg.GroupID != "" {
		info[BagGroupIdentifier] = bg.GroupID
	}
	logger.Debug().Msg("computing manifests")
	return bagit.MakeBag(dir, info, withRequired(bg.Algorithms))
}

// withRequired adds to algorithms any of bagit.DefaultAlgorithms it lacks,
// dropping repeats.
func withRequired(algorithms []string) []string {
	var result []string
	seen := make(map[string]bool)
	for _, list := range [][]string{algorithms, bagit.DefaultAlgorithms} {
		for _, alg := range list {
			if !seen[alg] {
				seen[alg] = true
				result = append(result, alg)
			}
		}
	}
	return result
}
