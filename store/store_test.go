package store

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func TestSplitBucketPrefix(t *testing.T) {
	var table = []struct {
		location string
		addition string
		bucket   string
		prefix   string
	}{
		{"", "", "", ""},
		{"rel/path", "", "rel", "path/"},
		{"/abs/path/", "", "abs", "path/"},
		{"/bucket", "", "bucket", ""},
		{"/bucket", "more", "bucket", "more/"},
		{"/bucket/prefix/", "", "bucket", "prefix/"},
		{"/bucket/prefix", "", "bucket", "prefix/"},
		{"/bucket/prefix", "more", "bucket", "prefix/more/"},
		{"/bucket/prefix/", "more", "bucket", "prefix/more/"},
	}

	for _, row := range table {
		bucket, prefix := splitBucketPrefix(row.location, row.addition)
		if bucket != row.bucket {
			t.Error("expected bucket", row.bucket, "received", bucket)
		}
		if prefix != row.prefix {
			t.Error("expected prefix", row.prefix, "received", prefix)
		}
	}
}

const (
	typeMemory = iota
	typeFileSystem
	typeS3
	typeError
)

func TestParseLocation(t *testing.T) {
	var table = []struct {
		location string
		addition string
		typ      int
		bucket   string
		prefix   string
	}{
		{"", "", typeMemory, "", ""},
		{"rel/path", "", typeFileSystem, "", ""},
		{"/abs/path/", "", typeFileSystem, "", ""},
		{"file:/rel/path", "", typeFileSystem, "", ""},
		{"file:rel/path", "", typeFileSystem, "", ""},
		{"s3:/bucket", "", typeS3, "bucket", ""},
		{"s3:/bucket", "more", typeS3, "bucket", "more/"},
		{"s3://localhost:9000/bucket/prefix/", "", typeS3, "bucket", "prefix/"},
		{"s3://localhost:9000/bucket/prefix/", "more", typeS3, "bucket", "prefix/more/"},
		{"s3:", "", typeError, "", ""},
		{"blackpearl:/bucket", "", typeError, "", ""},
	}

	for _, row := range table {
		result, err := ParseLocation(row.location, row.addition)
		if err != nil {
			if row.typ != typeError {
				t.Errorf("%s: %v", row.location, err)
			}
			continue
		}
		switch x := result.(type) {
		case *Memory:
			if row.typ != typeMemory {
				t.Errorf("unexpected received %#v", result)
			}
		case *FileSystem:
			if row.typ != typeFileSystem {
				t.Errorf("unexpected received %#v", result)
			}
		case *S3:
			if row.typ != typeS3 {
				t.Errorf("unexpected received %#v", result)
			}
			if x.Bucket != row.bucket {
				t.Error("expected bucket", row.bucket, "received", x.Bucket)
			}
			if x.Prefix != row.prefix {
				t.Error("expected prefix", row.prefix, "received", x.Prefix)
			}
		}
	}
}

func TestMemory(t *testing.T) {
	ms := NewMemory()
	ms.Put("aip-0002.json", []byte("second"))
	ms.Put("aip-0001.json", []byte("first"))
	ms.Put("other", []byte("x"))

	keys, _ := ms.ListPrefix("aip-")
	if diff := cmp.Diff([]string{"aip-0001.json", "aip-0002.json"}, keys); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	b, err := ReadAll(ms, "aip-0001.json")
	if err != nil || string(b) != "first" {
		t.Errorf("Received %q, %v", b, err)
	}
	_, _, err = ms.Open("missing")
	if !errors.Is(err, ErrNotExist) {
		t.Errorf("Received %v, expected ErrNotExist", err)
	}
}

func TestFileSystem(t *testing.T) {
	root, err := ioutil.TempDir("", "vhandle")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(root)
	os.Mkdir(filepath.Join(root, "aip-dir"), 0755)
	for _, name := range []string{"aip-0001.json", "aip-0002.json", "readme"} {
		ioutil.WriteFile(filepath.Join(root, name), []byte(name), 0644)
	}
	s := NewFileSystem(root)

	keys, err := s.ListPrefix("aip-")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"aip-0001.json", "aip-0002.json"}, keys); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	r, size, err := s.Open("readme")
	if err != nil || size != 6 {
		t.Fatalf("Received %d, %v", size, err)
	}
	r.Close()
	b, _ := ReadAll(s, "aip-0002.json")
	if string(b) != "aip-0002.json" {
		t.Errorf("Received %q", b)
	}

	var table = []struct {
		key string
		err error
	}{
		{"missing", ErrNotExist},
		{"../readme", ErrKeyContainsSlash},
	}
	for _, row := range table {
		_, _, err := s.Open(row.key)
		if !errors.Is(err, row.err) {
			t.Errorf("Open(%s) received %v, expected %v", row.key, err, row.err)
		}
	}
}
