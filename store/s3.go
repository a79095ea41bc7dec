package store

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	raven "github.com/getsentry/raven-go"
	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/internal/log"
)

// A S3 store reads manifests kept on AWS S3 storage, or anything speaking
// the same API.
// Do not change Bucket or Prefix concurrently with calls using the structure.
type S3 struct {
	svc    s3iface.S3API
	Bucket string
	Prefix string
}

var _ ROStore = &S3{}

// NewS3 creates a new S3 store. It will use the given bucket and will prepend
// prefix to all keys. For example if prefix were "aip/" then an
// Open("manifest.json") would look for the key "aip/manifest.json" in the
// bucket. The authorization method and credentials in the session are used
// for all accesses.
func NewS3(bucket, prefix string, awsSession *session.Session) *S3 {
	return &S3{
		Bucket: bucket,
		Prefix: prefix,
		svc:    s3.New(awsSession),
	}
}

// ListPrefix returns the keys in this store that have the given prefix.
// The argument prefix is added to the store's Prefix.
func (s *S3) ListPrefix(prefix string) ([]string, error) {
	var result []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(s.Prefix + prefix),
	}
	err := s.svc.ListObjectsV2Pages(input,
		func(page *s3.ListObjectsV2Output, lastpage bool) bool {
			for _, item := range page.Contents {
				result = append(result, strings.TrimPrefix(*item.Key, s.Prefix))
			}
			return !lastpage
		})
	if err != nil {
		log.WithField("bucket", s.Bucket).Errorf("S3 ListPrefix %s%s: %v", s.Prefix, prefix, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix, "Pattern": prefix})
	}
	return result, err
}

// Open will return a ReadAtCloser to get the content for the given key. Data
// is paged in from S3 as needed.
func (s *S3) Open(key string) (ReadAtCloser, int64, error) {
	input := &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	}
	info, err := s.svc.HeadObject(input)
	if err != nil {
		if e, ok := err.(awserr.RequestFailure); ok && e.StatusCode() == http.StatusNotFound {
			return nil, 0, errors.Wrap(ErrNotExist, key)
		}
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix, "Key": key})
		return nil, 0, err
	}
	size := aws.Int64Value(info.ContentLength)
	result := &s3ReadAtCloser{
		svc:    s.svc,
		bucket: s.Bucket,
		key:    s.Prefix + key,
		size:   size,
	}
	return result, size, nil
}

// s3ReadAtCloser adapts ranged GET requests to the ReadAt interface. It
// keeps the most recently loaded page, which suits the sequential reads of
// a manifest.
//
// It is not safe to use access this from more than one goroutine.
type s3ReadAtCloser struct {
	svc    s3iface.S3API
	bucket string
	key    string
	page   s3Page
	size   int64
}

type s3Page struct {
	data   []byte
	offset int64
}

func (p s3Page) contains(offset int64) bool {
	return p.offset <= offset && offset < p.offset+int64(len(p.data))
}

// ReadAt implements the io.ReadAt interface.
func (rac *s3ReadAtCloser) ReadAt(p []byte, offset int64) (int, error) {
	var err error
	startOffset := offset
	for len(p) > 0 && offset < rac.size {
		if !rac.page.contains(offset) {
			rac.page, err = rac.loadpage(offset)
			if err != nil {
				// don't return, in case we have already copied some
				// data in a previous loop.
				break
			}
			if !rac.page.contains(offset) {
				// the object is shorter than its reported size
				err = io.ErrUnexpectedEOF
				break
			}
		}
		n := copy(p, rac.page.data[offset-rac.page.offset:])
		p = p[n:]
		offset += int64(n)
	}
	// If we copied data and have an EOF, dont return the EOF yet. Conversely
	// if we did not end up copying any data and there is no error, then assume
	// we reached the end and return EOF.
	if err == io.EOF && startOffset != offset {
		err = nil
	} else if err == nil && startOffset == offset {
		err = io.EOF
	}
	return int(offset - startOffset), err
}

const defaultPageSize = 1024 * 1024 // 1 MiB

// loadpage will read one page of data from S3. Pages start at multiples of
// defaultPageSize, and the last one may be short.
func (rac *s3ReadAtCloser) loadpage(offset int64) (s3Page, error) {
	startpos := (offset / defaultPageSize) * defaultPageSize
	endpos := startpos + defaultPageSize
	input := &s3.GetObjectInput{
		Bucket: aws.String(rac.bucket),
		Key:    aws.String(rac.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", startpos, endpos-1)),
	}
	output, err := rac.svc.GetObject(input)
	if err != nil {
		log.WithField("key", rac.key).Errorf("S3 loadpage %d: %v", offset, err)
		// if we get an invalid range error then we have gone too far
		e, ok := err.(awserr.RequestFailure)
		if ok && e.StatusCode() == http.StatusRequestedRangeNotSatisfiable {
			err = io.EOF
		}
		return s3Page{}, err
	}
	data := &bytes.Buffer{}
	n, err := io.Copy(data, output.Body)
	output.Body.Close()
	if n == 0 && err == nil {
		// nothing was transferred and there was no error...?
		err = io.EOF
	}
	return s3Page{data: data.Bytes(), offset: startpos}, err
}

// Close will close this file.
func (rac *s3ReadAtCloser) Close() error {
	return nil
}
