package store

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	raven "github.com/getsentry/raven-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// A S3 store keeps each key as an object in an S3 bucket. Every key is
// prepended with Prefix, so one bucket may hold more than one store.
// Do not change Bucket or Prefix concurrently with calls using the structure.
type S3 struct {
	Bucket string
	Prefix string
	Logger zerolog.Logger

	svc      *s3.S3
	uploader *s3manager.Uploader
}

var _ Store = &S3{}

// NewS3 creates a new S3 store using the given bucket and key prefix. The
// authorization method and credentials in the session are used for all
// accesses.
func NewS3(bucket, prefix string, awsSession *session.Session) *S3 {
	return &S3{
		Bucket:   bucket,
		Prefix:   prefix,
		Logger:   zerolog.Nop(),
		svc:      s3.New(awsSession),
		uploader: s3manager.NewUploader(awsSession),
	}
}

// Open will return a ReadAtCloser to get the content for the given key. Data
// is paged in from S3 as needed.
func (s *S3) Open(key string) (ReadAtCloser, int64, error) {
	size, err := s.stat(key)
	if err != nil {
		return nil, 0, err
	}
	result := &s3ReadAtCloser{
		svc:    s.svc,
		bucket: s.Bucket,
		key:    s.Prefix + key,
		size:   size,
	}
	return result, size, nil
}

// Create will return a WriteCloser to upload content to the given key. The
// data written is streamed to the s3manager uploader, which switches to a
// multipart upload for large objects. Close waits for the upload to finish.
func (s *S3) Create(key string) (io.WriteCloser, error) {
	_, err := s.stat(key)
	if err == nil {
		return nil, errors.Wrap(ErrKeyExists, key)
	} else if errors.Cause(err) != ErrNotFound {
		return nil, err
	}
	pr, pw := io.Pipe()
	wc := &s3WriteCloser{
		pw:   pw,
		done: make(chan error, 1),
	}
	go func() {
		_, err := s.uploader.Upload(&s3manager.UploadInput{
			Bucket: aws.String(s.Bucket),
			Key:    aws.String(s.Prefix + key),
			Body:   pr,
		})
		if err != nil {
			s.Logger.Error().Err(err).Str("bucket", s.Bucket).Str("key", s.Prefix+key).Msg("S3 upload")
			raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Key": s.Prefix + key})
		}
		// unblock any writer if the upload stopped early
		pr.CloseWithError(err)
		wc.done <- err
	}()
	return wc, nil
}

// Delete will remove the given key from the store. It is not an error to
// delete something that doesn't exist.
func (s *S3) Delete(key string) error {
	_, err := s.svc.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		s.Logger.Error().Err(err).Str("bucket", s.Bucket).Str("key", s.Prefix+key).Msg("S3 delete")
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix, "Key": key})
	}
	return err
}

// stat returns the size of key, or ErrNotFound if it does not exist.
func (s *S3) stat(key string) (int64, error) {
	info, err := s.svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		if e, ok := err.(awserr.RequestFailure); ok && e.StatusCode() == http.StatusNotFound {
			return 0, errors.Wrap(ErrNotFound, key)
		}
		return 0, err
	}
	return aws.Int64Value(info.ContentLength), nil
}

type s3WriteCloser struct {
	pw   *io.PipeWriter
	done chan error
}

func (wc *s3WriteCloser) Write(p []byte) (int, error) {
	return wc.pw.Write(p)
}

func (wc *s3WriteCloser) Close() error {
	wc.pw.Close()
	return <-wc.done
}

// s3ReadAtCloser adapts ranged GET requests to the io.ReaderAt interface.
// It keeps the most recently fetched page, since zip readers tend to read
// sequentially in small pieces.
//
// It is not safe to use from more than one goroutine.
type s3ReadAtCloser struct {
	svc    *s3.S3
	bucket string
	key    string
	size   int64
	page   []byte
	offset int64 // offset of page in the object
}

const s3PageSize = 8 * 1024 * 1024

// ReadAt implements the io.ReaderAt interface.
func (rac *s3ReadAtCloser) ReadAt(p []byte, offset int64) (int, error) {
	var n int
	for len(p) > 0 {
		if offset >= rac.size {
			return n, io.EOF
		}
		if offset < rac.offset || offset >= rac.offset+int64(len(rac.page)) {
			if err := rac.loadpage(offset); err != nil {
				return n, err
			}
		}
		m := copy(p, rac.page[offset-rac.offset:])
		p = p[m:]
		offset += int64(m)
		n += m
	}
	return n, nil
}

// loadpage reads the page aligned block of the object containing offset.
func (rac *s3ReadAtCloser) loadpage(offset int64) error {
	start := (offset / s3PageSize) * s3PageSize
	output, err := rac.svc.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(rac.bucket),
		Key:    aws.String(rac.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, start+s3PageSize-1)),
	})
	if err != nil {
		// an invalid range means we have gone too far
		if e, ok := err.(awserr.RequestFailure); ok && e.StatusCode() == http.StatusRequestedRangeNotSatisfiable {
			return io.EOF
		}
		return errors.Wrapf(err, "reading %s", rac.key)
	}
	defer output.Body.Close()
	var data bytes.Buffer
	n, err := io.Copy(&data, output.Body)
	if err != nil {
		return errors.Wrapf(err, "reading %s", rac.key)
	}
	if n == 0 {
		return io.EOF
	}
	rac.page = data.Bytes()
	rac.offset = start
	return nil
}

// Close will close this file.
func (rac *s3ReadAtCloser) Close() error {
	return nil
}
