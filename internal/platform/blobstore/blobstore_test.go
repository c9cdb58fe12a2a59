package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestInMemoryUploadDownload(t *testing.T) {
	store := NewInMemoryBlobStore()
	ctx := context.Background()

	meta, err := store.Upload(ctx, BlobMetadata{
		FileName:    "passport.pdf",
		ContentType: "application/pdf",
		CreatedBy:   "op-1",
	}, strings.NewReader("pdf-bytes"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if meta.ID == "" {
		t.Fatal("expected generated blob id")
	}
	if meta.Size != int64(len("pdf-bytes")) {
		t.Errorf("size = %d, want %d", meta.Size, len("pdf-bytes"))
	}
	if meta.Hash == "" {
		t.Error("expected content hash to be set")
	}

	rc, got, err := store.Download(ctx, meta.ID)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "pdf-bytes" {
		t.Errorf("content = %q, want pdf-bytes", data)
	}
	if got.FileName != "passport.pdf" {
		t.Errorf("file name = %q", got.FileName)
	}
}

func TestInMemoryUploadValidation(t *testing.T) {
	store := NewInMemoryBlobStore()
	ctx := context.Background()

	_, err := store.Upload(ctx, BlobMetadata{ContentType: "image/png"}, strings.NewReader("x"))
	if !errors.Is(err, ErrMissingFileName) {
		t.Errorf("expected ErrMissingFileName, got %v", err)
	}

	_, err = store.Upload(ctx, BlobMetadata{
		FileName:    "virus.exe",
		ContentType: "application/x-msdownload",
	}, strings.NewReader("x"))
	if !errors.Is(err, ErrInvalidContentType) {
		t.Errorf("expected ErrInvalidContentType, got %v", err)
	}
}

func TestInMemoryUploadTooLarge(t *testing.T) {
	store := NewInMemoryBlobStore()
	store.maxSize = 16

	_, err := store.Upload(context.Background(), BlobMetadata{
		FileName:    "big.png",
		ContentType: "image/png",
	}, bytes.NewReader(make([]byte, 32)))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestInMemoryDelete(t *testing.T) {
	store := NewInMemoryBlobStore()
	ctx := context.Background()

	meta, err := store.Upload(ctx, BlobMetadata{
		FileName:    "scan.jpg",
		ContentType: "image/jpeg",
	}, strings.NewReader("jpg"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if err := store.Delete(ctx, meta.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetMetadata(ctx, meta.ID); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, meta.ID); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound on double delete, got %v", err)
	}
}

func TestFSBlobStoreRoundTrip(t *testing.T) {
	store, err := NewFSBlobStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFSBlobStore failed: %v", err)
	}
	ctx := context.Background()

	meta, err := store.Upload(ctx, BlobMetadata{
		FileName:    "report.pdf",
		ContentType: "application/pdf",
	}, strings.NewReader("report-body"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	got, err := store.GetMetadata(ctx, meta.ID)
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if got.Hash != meta.Hash {
		t.Errorf("hash mismatch: %q vs %q", got.Hash, meta.Hash)
	}

	rc, _, err := store.Download(ctx, meta.ID)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "report-body" {
		t.Errorf("content = %q, want report-body", data)
	}

	if err := store.Delete(ctx, meta.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, _, err := store.Download(ctx, meta.ID); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound after delete, got %v", err)
	}
}

func TestFSBlobStoreNotFound(t *testing.T) {
	store, err := NewFSBlobStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFSBlobStore failed: %v", err)
	}

	if _, err := store.GetMetadata(context.Background(), "missing-id"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}
