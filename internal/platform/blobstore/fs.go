package blobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FSBlobStore stores blob content and metadata on the local filesystem.
// Each blob occupies two files under the root directory: <id> for the
// content and <id>.json for the metadata.
type FSBlobStore struct {
	root    string
	maxSize int64
	mu      sync.Mutex
}

// NewFSBlobStore creates the root directory if needed and returns a store.
// maxSize of zero falls back to DefaultMaxFileSize.
func NewFSBlobStore(root string, maxSize int64) (*FSBlobStore, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob root: %w", err)
	}
	return &FSBlobStore{root: root, maxSize: maxSize}, nil
}

func (s *FSBlobStore) contentPath(id string) string {
	return filepath.Join(s.root, id)
}

func (s *FSBlobStore) metaPath(id string) string {
	return filepath.Join(s.root, id+".json")
}

// Upload validates the content, writes it to disk and persists the metadata
// alongside it. A failed metadata write rolls back the content file.
func (s *FSBlobStore) Upload(_ context.Context, meta BlobMetadata, content io.Reader) (*BlobMetadata, error) {
	meta, data, err := validateAndRead(meta, content, s.maxSize)
	if err != nil {
		return nil, err
	}

	// IDs are uuids, reject anything that could escape the root.
	if strings.ContainsAny(meta.ID, "/\\.") {
		return nil, fmt.Errorf("invalid blob id %q", meta.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.contentPath(meta.ID), data, 0o644); err != nil {
		return nil, fmt.Errorf("writing blob content: %w", err)
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		os.Remove(s.contentPath(meta.ID))
		return nil, fmt.Errorf("encoding blob metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath(meta.ID), metaJSON, 0o644); err != nil {
		os.Remove(s.contentPath(meta.ID))
		return nil, fmt.Errorf("writing blob metadata: %w", err)
	}

	out := meta
	return &out, nil
}

// Download opens the blob content for reading along with its metadata.
func (s *FSBlobStore) Download(ctx context.Context, id string) (io.ReadCloser, *BlobMetadata, error) {
	meta, err := s.GetMetadata(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(s.contentPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("opening blob content: %w", err)
	}

	return f, meta, nil
}

// Delete removes the content and metadata files.
func (s *FSBlobStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.metaPath(id)); os.IsNotExist(err) {
		return ErrBlobNotFound
	}

	if err := os.Remove(s.contentPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing blob content: %w", err)
	}
	if err := os.Remove(s.metaPath(id)); err != nil {
		return fmt.Errorf("removing blob metadata: %w", err)
	}
	return nil
}

// GetMetadata reads and decodes the metadata file.
func (s *FSBlobStore) GetMetadata(_ context.Context, id string) (*BlobMetadata, error) {
	raw, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("reading blob metadata: %w", err)
	}

	var meta BlobMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decoding blob metadata: %w", err)
	}
	return &meta, nil
}
