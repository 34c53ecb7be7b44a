// Package storage opens inputs and outputs addressed by a local path or a URI.
//
// Supported schemes:
//
//	path/to/file      local filesystem
//	file:///abs/path  local filesystem through gocloud fileblob
//	mem://name/key    in-process bucket, shared for the life of the process
//	gs://bucket/key   Google Cloud Storage
//	s3://bucket/key   Amazon S3
//	hdfs://host:port/path
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/colinmarc/hdfs/v2"
	"github.com/vitebski/csv-synth/pkg/models"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
)

// Options carries connection settings for schemes that need them
type Options struct {
	// HDFSNamenode is used when an hdfs:// URI has no host
	HDFSNamenode string

	// HDFSUser is the user HDFS requests are made as
	HDFSUser string
}

var (
	memMu      sync.Mutex
	memBuckets = map[string]*blob.Bucket{}
)

// location is a parsed URI
type location struct {
	scheme string
	bucket string // bucket URL for gocloud schemes, namenode for hdfs
	key    string
}

func parse(uri string) (location, error) {
	if !strings.Contains(uri, "://") {
		return location{key: uri}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return location{}, fmt.Errorf("invalid location %q: %w", uri, err)
	}

	switch u.Scheme {
	case "file":
		dir, key := path.Split(u.Path)
		if key == "" {
			return location{}, fmt.Errorf("invalid location %q: no file name", uri)
		}
		return location{scheme: u.Scheme, bucket: "file://" + strings.TrimSuffix(dir, "/"), key: key}, nil
	case "mem", "gs", "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if key == "" {
			return location{}, fmt.Errorf("invalid location %q: no object key", uri)
		}
		bucket := u.Scheme + "://" + u.Host
		if u.RawQuery != "" {
			bucket += "?" + u.RawQuery
		}
		return location{scheme: u.Scheme, bucket: bucket, key: key}, nil
	case "hdfs":
		if u.Path == "" {
			return location{}, fmt.Errorf("invalid location %q: no path", uri)
		}
		return location{scheme: u.Scheme, bucket: u.Host, key: u.Path}, nil
	default:
		return location{}, fmt.Errorf("unsupported scheme %q in %q", u.Scheme, uri)
	}
}

func openBucket(ctx context.Context, loc location) (*blob.Bucket, func(), error) {
	if loc.scheme == "mem" {
		memMu.Lock()
		defer memMu.Unlock()
		b, ok := memBuckets[loc.bucket]
		if !ok {
			b = memblob.OpenBucket(nil)
			memBuckets[loc.bucket] = b
		}
		return b, func() {}, nil
	}

	b, err := blob.OpenBucket(ctx, loc.bucket)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open bucket %s: %w", loc.bucket, err)
	}
	return b, func() { b.Close() }, nil
}

func hdfsClient(loc location, opts Options) (*hdfs.Client, error) {
	namenode := loc.bucket
	if namenode == "" {
		namenode = opts.HDFSNamenode
	}
	if namenode == "" {
		return nil, errors.New("hdfs namenode address is not set")
	}

	client, err := hdfs.NewClient(hdfs.ClientOptions{
		Addresses: []string{namenode},
		User:      opts.HDFSUser,
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to hdfs at %s: %w", namenode, err)
	}
	return client, nil
}

// readCloser closes a stream and then the handle it was opened from
type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

type writeCloser struct {
	io.Writer
	closers []func() error
}

func (w *writeCloser) Close() error {
	var errs []error
	for _, c := range w.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func notFound(uri string, err error) error {
	return fmt.Errorf("%w: %s: %v", models.ErrInputNotFound, uri, err)
}

// Open opens uri for reading. A missing input is reported as
// models.ErrInputNotFound.
func Open(ctx context.Context, uri string, opts Options) (io.ReadCloser, error) {
	loc, err := parse(uri)
	if err != nil {
		return nil, err
	}

	switch loc.scheme {
	case "":
		f, err := os.Open(loc.key)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, notFound(uri, err)
			}
			return nil, err
		}
		return f, nil

	case "hdfs":
		client, err := hdfsClient(loc, opts)
		if err != nil {
			return nil, err
		}
		f, err := client.Open(loc.key)
		if err != nil {
			client.Close()
			if errors.Is(err, os.ErrNotExist) {
				return nil, notFound(uri, err)
			}
			return nil, err
		}
		return &readCloser{Reader: f, closers: []func() error{f.Close, client.Close}}, nil

	default:
		b, closeBucket, err := openBucket(ctx, loc)
		if err != nil {
			return nil, err
		}
		r, err := b.NewReader(ctx, loc.key, nil)
		if err != nil {
			closeBucket()
			if gcerrors.Code(err) == gcerrors.NotFound {
				return nil, notFound(uri, err)
			}
			return nil, err
		}
		return &readCloser{Reader: r, closers: []func() error{r.Close, func() error { closeBucket(); return nil }}}, nil
	}
}

// Create opens uri for writing, replacing any existing content. Local parent
// directories are created as needed. Data is only guaranteed to be persisted
// once Close returns nil.
func Create(ctx context.Context, uri string, opts Options) (io.WriteCloser, error) {
	loc, err := parse(uri)
	if err != nil {
		return nil, err
	}

	switch loc.scheme {
	case "":
		if dir := filepath.Dir(loc.key); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("could not create directory %s: %w", dir, err)
			}
		}
		return os.Create(loc.key)

	case "hdfs":
		client, err := hdfsClient(loc, opts)
		if err != nil {
			return nil, err
		}
		if err := client.Remove(loc.key); err != nil && !errors.Is(err, os.ErrNotExist) {
			client.Close()
			return nil, fmt.Errorf("could not replace %s: %w", uri, err)
		}
		f, err := client.Create(loc.key)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("could not create %s: %w", uri, err)
		}
		return &writeCloser{Writer: f, closers: []func() error{f.Close, client.Close}}, nil

	default:
		if loc.scheme == "file" {
			loc.bucket += "?create_dir=true"
		}
		b, closeBucket, err := openBucket(ctx, loc)
		if err != nil {
			return nil, err
		}
		w, err := b.NewWriter(ctx, loc.key, nil)
		if err != nil {
			closeBucket()
			return nil, fmt.Errorf("could not create %s: %w", uri, err)
		}
		return &writeCloser{Writer: w, closers: []func() error{w.Close, func() error { closeBucket(); return nil }}}, nil
	}
}

// WriteFile writes data to uri in one call
func WriteFile(ctx context.Context, uri string, data []byte, opts Options) error {
	w, err := Create(ctx, uri, opts)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("could not write %s: %w", uri, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("could not write %s: %w", uri, err)
	}
	return nil
}

// ReadFile reads the whole of uri
func ReadFile(ctx context.Context, uri string, opts Options) ([]byte, error) {
	r, err := Open(ctx, uri, opts)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
