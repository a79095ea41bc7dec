package store

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/pkg/errors"
)

// splitBucketPrefix will take a path and separate the bucket name from a prefix, if any.
// It will also append "addition" to the prefix, and make sure the prefix returned is
// either empty or ends with a slash "/".
//
// examples:
//
//	""                    -> ("", "")
//	"bucket"              -> ("bucket", "")
//	"bucket/and/a/prefix" -> ("bucket", "and/a/prefix/")
func splitBucketPrefix(location string, addition string) (bucket, prefix string) {
	if location == "" {
		return
	}
	location = strings.TrimPrefix(location, "/")
	v := strings.SplitN(location, "/", 2)
	bucket = v[0]
	if len(v) > 1 {
		prefix = v[1]
	}
	if addition != "" {
		prefix = path.Join(prefix, addition)
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}
	return
}

// ParseLocation will create an appropriate store based on location.
// If location is empty, a memory store is returned. Plain paths and the
// "file:" scheme give a FileSystem store, and "s3:" gives an S3 store, e.g.
// "s3:/bucket/prefix" or "s3://localhost:9000/bucket" for a local service.
func ParseLocation(location string, addition string) (ROStore, error) {
	if location == "" {
		return NewMemory(), nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, errors.Wrap(err, "parse location")
	}
	switch u.Scheme {
	case "", "file":
		p := u.Path
		if p == "" {
			// file:rel/path is parsed as opaque
			p = u.Opaque
		}
		return NewFileSystem(filepath.Join(p, addition)), nil
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
		bucket, prefix := splitBucketPrefix(p, addition)
		if bucket == "" {
			return nil, errors.Errorf("location %s has no bucket name", location)
		}
		sess, err := session.NewSession(conf)
		if err != nil {
			return nil, errors.Wrap(err, "aws session")
		}
		return NewS3(bucket, prefix, sess), nil
	}
	return nil, errors.Errorf("unknown location scheme %q", u.Scheme)
}
