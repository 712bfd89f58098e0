package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-test/deep"
	"github.com/rs/zerolog"

	"github.com/ndlib/baggins/mets"
)

func TestLoad(t *testing.T) {
	conf, err := Load(filepath.Join("testdata", "lsdi-bagger.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := conf.Validate(); err != nil {
		t.Fatal(err)
	}
	expected := Default()
	expected.DigWF.URL = "http://example.co:3100/digwf_api/"
	expected.Filepaths.Output = "/tmp/bags"
	expected.Bagging.Checksums = []string{"sha256"}
	expected.Bagging.Integrity = "fail"
	expected.Bagging.Workers = 4
	expected.Bagging.PayloadMode = "0660"
	if diff := deep.Equal(conf, expected); diff != nil {
		t.Error(diff)
	}

	payload, metadata, err := conf.Bagging.Modes()
	if err != nil || payload != 0660 || metadata != 0664 {
		t.Errorf("Received (%v, %v, %v)", payload, metadata, err)
	}
	if p, _ := conf.Bagging.Policy(); p != mets.Fail {
		t.Errorf("Received %v, expected %v", p, mets.Fail)
	}
}

func TestLoadMissing(t *testing.T) {
	const path = "/not/really/here"
	_, err := Load(path)
	var lerr *LoadError
	if !errors.As(err, &lerr) || lerr.Path != path {
		t.Fatalf("Received %v, expected *LoadError", err)
	}
	if !strings.HasPrefix(err.Error(), "Unable to load config file at /not/really/here") {
		t.Errorf("Received %q", err.Error())
	}
}

func TestLoadUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.toml")
	os.WriteFile(path, []byte("[digwf]\nurl = \"x\"\nuser = \"y\"\n"), 0644)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "digwf.user") {
		t.Errorf("Received %v, expected an unknown key error", err)
	}
}

func TestLoadEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.toml")
	os.WriteFile(path, nil, 0644)
	conf, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := conf.Validate(); err != ErrNoDigwfURL {
		t.Errorf("Received %v, expected %v", err, ErrNoDigwfURL)
	}
	conf.DigWF.URL = "http://example.com"
	if err := conf.Validate(); err != ErrNoOutput {
		t.Errorf("Received %v, expected %v", err, ErrNoOutput)
	}
}

func TestValidate(t *testing.T) {
	var table = []struct {
		change func(c *Config)
		ok     bool
	}{
		{func(c *Config) {}, true},
		{func(c *Config) { c.Bagging.Workers = 0 }, false},
		{func(c *Config) { c.Bagging.TitleLength = -1 }, false},
		{func(c *Config) { c.Bagging.Checksums = []string{"sha1"} }, false},
		{func(c *Config) { c.Bagging.Checksums = []string{"md5"} }, false},
		{func(c *Config) { c.Bagging.Checksums = []string{"sha256"} }, false},
		{func(c *Config) { c.Bagging.Checksums = []string{"sha256", "md5"} }, true},
		{func(c *Config) { c.Bagging.Checksums = nil }, true},
		{func(c *Config) { c.Bagging.PayloadMode = "rw-rw-r--" }, false},
		{func(c *Config) { c.Bagging.MetadataMode = "1777" }, false},
		{func(c *Config) { c.Bagging.MetadataMode = "" }, true},
		{func(c *Config) { c.Bagging.Integrity = "ignore" }, false},
		{func(c *Config) { c.Log.Level = "loud" }, false},
		{func(c *Config) { c.Log.Level = "DEBUG" }, true},
	}
	for i, test := range table {
		conf := Default()
		conf.DigWF.URL = "http://example.com"
		conf.Filepaths.Output = "/tmp"
		test.change(conf)
		err := conf.Validate()
		if (err == nil) != test.ok {
			t.Errorf("%d: Received %v", i, err)
		}
	}
}

func TestParseLevel(t *testing.T) {
	var table = []struct {
		input string
		level zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"Warn", zerolog.WarnLevel},
	}
	for _, test := range table {
		level, err := LogConfig{Level: test.input}.ParseLevel()
		if err != nil || level != test.level {
			t.Errorf("%q: Received (%v, %v), expected %v", test.input, level, err, test.level)
		}
	}
}

func TestGenerate(t *testing.T) {
	for _, output := range []string{"", "/tmp/baggins/"} {
		var buf bytes.Buffer
		if err := Generate(&buf, output); err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(t.TempDir(), "generated.toml")
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			t.Fatal(err)
		}
		conf, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		expected := Default()
		expected.Filepaths.Output = output
		if diff := deep.Equal(conf, expected); diff != nil {
			t.Errorf("%q: %v", output, diff)
		}
		if !strings.Contains(buf.String(), "[digwf]") {
			t.Errorf("missing [digwf] section:\n%s", buf.String())
		}
	}
}
