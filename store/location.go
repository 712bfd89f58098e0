package store

import (
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/pkg/errors"
)

// splitBucketPrefix will take a path and separate the bucket name from a
// prefix, if any. It makes sure the prefix returned is either empty or ends
// with a slash "/".
//
// examples:
//
//	"" -> ("", "")
//	"bucket" -> ("bucket", "")
//	"bucket/and/a/prefix" -> ("bucket", "and/a/prefix/")
func splitBucketPrefix(location string) (bucket, prefix string) {
	if location == "" {
		return
	}
	location = strings.TrimPrefix(location, "/")
	v := strings.SplitN(location, "/", 2)
	bucket = v[0]
	if len(v) > 1 {
		prefix = path.Clean(v[1])
		if prefix == "." {
			prefix = ""
		}
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}
	return
}

// ParseLocation creates the store described by location.
// An empty location gives a memory store. A plain path, or one using the
// "file:" scheme, gives a FileSystem store rooted there; the directory is
// created if needed. A location of the form "s3:/bucket/prefix" or
// "s3://host/bucket/prefix" gives an S3 store. The host form sets a custom
// endpoint, such as a local Minio.
func ParseLocation(location string) (Store, error) {
	if location == "" {
		return NewMemory(), nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing location %s", location)
	}
	switch u.Scheme {
	case "", "file":
		p := u.Path
		if p == "" {
			p = u.Opaque
		}
		if err := os.MkdirAll(p, 0775); err != nil {
			return nil, err
		}
		return NewFileSystem(p), nil
	case "s3":
		conf := &aws.Config{}
		if u.Host != "" {
			conf.Endpoint = aws.String(u.Host)
			conf.Region = aws.String("us-east-1")
			// disable SSL for local development
			if strings.Contains(u.Host, "localhost") {
				conf.DisableSSL = aws.Bool(true)
				conf.S3ForcePathStyle = aws.Bool(true)
			}
		}
		p := u.Path
		if p == "" {
			p = u.Opaque
		}
		bucket, prefix := splitBucketPrefix(p)
		if bucket == "" {
			return nil, errors.Errorf("no bucket name in location %s", location)
		}
		sess, err := session.NewSession(conf)
		if err != nil {
			return nil, err
		}
		return NewS3(bucket, prefix, sess), nil
	}
	return nil, errors.Errorf("unknown location scheme %q", u.Scheme)
}
