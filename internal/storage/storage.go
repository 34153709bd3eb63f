package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

const ContentTypePNG = "image/png"

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
	// Location is where clients can find the object: a file path for the
	// local backend, an s3:// or presigned URL for the s3 backend.
	Location string
}

type PutOptions struct {
	ContentType string
	// Metadata is attached to the object where the backend supports it.
	Metadata map[string]string
}

// ObjectStore persists rendered chart images.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

func PutBytes(ctx context.Context, store ObjectStore, key string, payload []byte, opts PutOptions) (ObjectInfo, error) {
	return store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), opts)
}
