// Package storage provides the blob sink for generated image bytes.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FSStore streams blobs to a directory on local disk and addresses them
// through a public base URL, typically a volume served by a CDN or reverse
// proxy.
type FSStore struct {
	root    string
	baseURL string
}

// NewFSStore creates the store and its root directory.
func NewFSStore(root, baseURL string) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage: root path not configured")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("storage: public base URL not configured")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &FSStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put streams the content to disk under filename and returns the storage key
// and public URL. Writes go through a temp file and rename so a torn write
// never leaves a half-written asset at the final key.
func (s *FSStore) Put(ctx context.Context, filename string, contentType string, r io.Reader) (string, string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", "", 0, err
	}

	key := filepath.Base(filename)
	finalPath := filepath.Join(s.root, key)

	tmp, err := os.CreateTemp(s.root, key+".tmp-*")
	if err != nil {
		return "", "", 0, fmt.Errorf("storage: create temp file: %w", err)
	}

	size, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", "", 0, fmt.Errorf("storage: write %s: %w", key, err)
	}

	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		_ = os.Remove(tmp.Name())
		return "", "", 0, fmt.Errorf("storage: finalize %s: %w", key, err)
	}

	return key, s.baseURL + "/" + key, size, nil
}
