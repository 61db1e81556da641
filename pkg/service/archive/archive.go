package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// Service keeps the raw bytes of uploads next to the indexed text
type Service interface {
	// Put stores data for a source and returns its URI
	Put(ctx context.Context, sourceID model.SourceID, filename, contentType string, data io.Reader) (string, error)

	// Delete removes what Put stored. A missing object is not an error.
	Delete(ctx context.Context, sourceID model.SourceID, filename string) error
}

// objectName is "<source_id>/<base filename>" with path separators removed
func objectName(sourceID model.SourceID, filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	return fmt.Sprintf("%s/%s", sourceID, base)
}

// Local writes uploads under a directory
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, goerr.Wrap(err, "failed to create archive directory", goerr.V("dir", dir))
	}
	return &Local{dir: dir}, nil
}

func (x *Local) path(sourceID model.SourceID, filename string) string {
	return filepath.Join(x.dir, filepath.FromSlash(objectName(sourceID, filename)))
}

func (x *Local) Put(ctx context.Context, sourceID model.SourceID, filename, contentType string, data io.Reader) (string, error) {
	path := x.path(sourceID, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", goerr.Wrap(err, "failed to create archive directory", goerr.V("path", path))
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create archive file", goerr.V("path", path))
	}
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		return "", goerr.Wrap(err, "failed to write archive file", goerr.V("path", path))
	}
	if err := f.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to close archive file", goerr.V("path", path))
	}

	return "file://" + filepath.ToSlash(path), nil
}

func (x *Local) Delete(ctx context.Context, sourceID model.SourceID, filename string) error {
	path := x.path(sourceID, filename)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return goerr.Wrap(err, "failed to remove archive file", goerr.V("path", path))
	}
	// the per-source directory only ever holds this one file
	if err := os.Remove(filepath.Dir(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return goerr.Wrap(err, "failed to remove archive directory", goerr.V("path", filepath.Dir(path)))
	}
	return nil
}

// GCS writes uploads to a Cloud Storage bucket
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}
	return &GCS{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (x *GCS) objectName(sourceID model.SourceID, filename string) string {
	name := objectName(sourceID, filename)
	if x.prefix != "" {
		name = x.prefix + "/" + name
	}
	return name
}

func (x *GCS) Put(ctx context.Context, sourceID model.SourceID, filename, contentType string, data io.Reader) (string, error) {
	name := x.objectName(sourceID, filename)

	w := x.client.Bucket(x.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return "", goerr.Wrap(err, "failed to upload object", goerr.V("bucket", x.bucket), goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to finalize object", goerr.V("bucket", x.bucket), goerr.V("object", name))
	}

	return fmt.Sprintf("gs://%s/%s", x.bucket, name), nil
}

func (x *GCS) Delete(ctx context.Context, sourceID model.SourceID, filename string) error {
	name := x.objectName(sourceID, filename)
	if err := x.client.Bucket(x.bucket).Object(name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return goerr.Wrap(err, "failed to delete object", goerr.V("bucket", x.bucket), goerr.V("object", name))
	}
	return nil
}

func (x *GCS) Close() error {
	return x.client.Close()
}
