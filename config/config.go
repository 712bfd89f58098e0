// Package config reads the TOML configuration file for the LSDI bagger.
//
// A configuration file looks like
//
//	[digwf]
//	url = "http://example.com:3000/digwf_api/"
//
//	[fedora]
//	url = "https://repository.example.com/fedora"
//	namespace = "emory"
//
//	[filepaths]
//	output = "/data/bags"
//
//	[bagging]
//	title_length = 30
//	checksums = ["md5", "sha256"]
//	integrity = "warn"
//	workers = 4
//
//	[archive]
//	location = "s3:/bucket/prefix"
//
//	[log]
//	level = "info"
//
//	[sentry]
//	dsn = ""
//
// Every setting has a default, so only the DigWF URL and the output
// directory need to be given. Use Generate to write a complete file.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ndlib/baggins/mets"
	"github.com/ndlib/baggins/util"
)

// Config is the complete configuration.
type Config struct {
	DigWF     DigWFConfig     `toml:"digwf"`
	Fedora    FedoraConfig    `toml:"fedora"`
	Filepaths FilepathsConfig `toml:"filepaths"`
	Bagging   BaggingConfig   `toml:"bagging"`
	Archive   ArchiveConfig   `toml:"archive"`
	Log       LogConfig       `toml:"log"`
	Sentry    SentryConfig    `toml:"sentry"`
}

type DigWFConfig struct {
	URL string `toml:"url"`
}

// FedoraConfig locates the repository used for relationships. With no URL
// no relationships to repository objects are recorded.
type FedoraConfig struct {
	URL       string `toml:"url"`
	Namespace string `toml:"namespace"`
}

type FilepathsConfig struct {
	Output string `toml:"output"`
	// Collections is a TSV file to use instead of the built in collection
	// source table.
	Collections string `toml:"collections"`
}

type BaggingConfig struct {
	TitleLength  int      `toml:"title_length"`
	Checksums    []string `toml:"checksums"`
	PayloadMode  string   `toml:"payload_mode"`  // octal
	MetadataMode string   `toml:"metadata_mode"` // octal
	// Integrity is "warn" or "fail", and says what to do with pages which
	// do not have an image, text, and position file.
	Integrity   string `toml:"integrity"`
	Workers     int    `toml:"workers"`
	StopOnError bool   `toml:"stop_on_error"`
	Cleanup     bool   `toml:"cleanup"`
}

// ArchiveConfig names a store to copy zipped bags into, e.g. a directory
// or "s3:/bucket/prefix". Empty means bags are not archived.
type ArchiveConfig struct {
	Location string `toml:"location"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type SentryConfig struct {
	DSN string `toml:"dsn"`
}

var (
	ErrNoDigwfURL = errors.New("Digitization Workflow URL not configured")
	ErrNoOutput   = errors.New("Please specify output directory")
)

// LoadError means the configuration file could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("Unable to load config file at %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Fedora: FedoraConfig{Namespace: "emory"},
		Bagging: BaggingConfig{
			TitleLength:  30,
			Checksums:    []string{util.MD5, util.SHA256},
			PayloadMode:  "0664",
			MetadataMode: "0664",
			Integrity:    "warn",
			Workers:      1,
			Cleanup:      true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the configuration file at path over the defaults. Unknown keys
// are an error. The result is not validated.
func Load(path string) (*Config, error) {
	conf := Default()
	md, err := toml.DecodeFile(path, conf)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		var keys []string
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, &LoadError{Path: path, Err: errors.Errorf("unknown keys %s", strings.Join(keys, ", "))}
	}
	return conf, nil
}

// Validate checks that the required settings are present and the others
// make sense.
func (c *Config) Validate() error {
	if c.DigWF.URL == "" {
		return ErrNoDigwfURL
	}
	if c.Filepaths.Output == "" {
		return ErrNoOutput
	}
	b := c.Bagging
	if b.TitleLength < 0 {
		return errors.Errorf("title_length %d is negative", b.TitleLength)
	}
	if b.Workers < 1 {
		return errors.Errorf("workers must be at least 1, not %d", b.Workers)
	}
	have := make(map[string]bool)
	for _, alg := range b.Checksums {
		if !util.KnownAlgorithm(alg) {
			return errors.Wrap(util.ErrUnknownAlgorithm, alg)
		}
		have[alg] = true
	}
	if len(b.Checksums) > 0 && !(have[util.MD5] && have[util.SHA256]) {
		return errors.Errorf("checksums must include %s and %s", util.MD5, util.SHA256)
	}
	if _, _, err := b.Modes(); err != nil {
		return err
	}
	if _, err := b.Policy(); err != nil {
		return err
	}
	if _, err := c.Log.ParseLevel(); err != nil {
		return err
	}
	return nil
}

// Modes returns the permission bits for payload and metadata files.
func (b BaggingConfig) Modes() (payload, metadata os.FileMode, err error) {
	payload, err = parseMode("payload_mode", b.PayloadMode)
	if err != nil {
		return
	}
	metadata, err = parseMode("metadata_mode", b.MetadataMode)
	return
}

func parseMode(name, s string) (os.FileMode, error) {
	if s == "" {
		return 0, nil
	}
	m, err := strconv.ParseUint(s, 8, 32)
	if err != nil || m > 0777 {
		return 0, errors.Errorf("%s %q is not an octal permission", name, s)
	}
	return os.FileMode(m), nil
}

// Policy returns the integrity policy for structural metadata.
func (b BaggingConfig) Policy() (mets.Policy, error) {
	return mets.ParsePolicy(b.Integrity)
}

// ParseLevel returns the log level. Empty means info.
func (l LogConfig) ParseLevel() (zerolog.Level, error) {
	if l.Level == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(l.Level))
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "log level %q", l.Level)
	}
	return level, nil
}

const header = `# Configuration for lsdi-bagger.
#
# [digwf] url is the Digitization Workflow API, and [filepaths] output is
# the directory bags are made in. Both are required.
# [fedora] url is optional; without it no repository relationships are
# recorded.

`

// Generate writes a configuration file with the default settings, and the
// output directory set to output.
func Generate(w io.Writer, output string) error {
	conf := Default()
	conf.Filepaths.Output = output
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	return toml.NewEncoder(w).Encode(conf)
}
