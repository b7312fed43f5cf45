package tiles

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/janelia-flyem/schemgen/schemgen"
)

// Sink receives encoded tiles.  Put may be called concurrently.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
	Close() error
}

// BucketSink writes tiles as objects of a blob bucket.
type BucketSink struct {
	ref    string
	bucket *blob.Bucket
}

// NewBucketSink wraps an open bucket.  Closing the sink closes the bucket.
func NewBucketSink(ref string, bucket *blob.Bucket) *BucketSink {
	return &BucketSink{ref: ref, bucket: bucket}
}

// OpenSink opens a sink from a bucket URL such as file:///tmp/out, mem://, gs://bucket
// or s3://bucket.  A plain path is taken as a local directory.  Local directories are
// created if missing.
func OpenSink(ctx context.Context, ref string) (*BucketSink, error) {
	if ref == "" {
		return nil, fmt.Errorf("no output location given: %w", schemgen.ErrInvalidArgument)
	}
	if !strings.Contains(ref, "://") {
		dir, err := filepath.Abs(ref)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("unable to create output directory %q: %v", dir, err)
		}
		bucket, err := fileblob.OpenBucket(dir, nil)
		if err != nil {
			return nil, err
		}
		schemgen.Infof("Writing tiles to directory %q\n", dir)
		return NewBucketSink(dir, bucket), nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("bad output URL %q: %v", ref, err)
	}
	if u.Scheme == fileblob.Scheme && u.Path != "" {
		if err := os.MkdirAll(u.Path, 0755); err != nil {
			return nil, fmt.Errorf("unable to create output directory %q: %v", u.Path, err)
		}
	}
	bucket, err := blob.OpenBucket(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("can't open output bucket %q: %v", ref, err)
	}
	schemgen.Infof("Writing tiles to bucket %q\n", ref)
	return NewBucketSink(ref, bucket), nil
}

func (s *BucketSink) String() string {
	return s.ref
}

// Put writes the object, replacing any existing object of the same name.
func (s *BucketSink) Put(ctx context.Context, name string, data []byte) error {
	if err := s.bucket.WriteAll(ctx, name, data, nil); err != nil {
		return fmt.Errorf("unable to write %q to %s: %v", name, s.ref, err)
	}
	return nil
}

// Get returns a previously written object.  A missing object returns
// schemgen.ErrNotFound.
func (s *BucketSink) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, name)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("no tile %q in %s: %w", name, s.ref, schemgen.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

// List returns the names of all objects with the given prefix.
func (s *BucketSink) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		names = append(names, obj.Key)
	}
	return names, nil
}

func (s *BucketSink) Close() error {
	return s.bucket.Close()
}
