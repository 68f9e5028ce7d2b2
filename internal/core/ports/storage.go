package ports

import (
	"context"
	"io"
)

// BlobStore is the sink for generated image bytes. Put streams the content
// to durable storage and returns the storage key and a public URL for it.
type BlobStore interface {
	Put(ctx context.Context, filename string, contentType string, r io.Reader) (key string, url string, size int64, err error)
}
