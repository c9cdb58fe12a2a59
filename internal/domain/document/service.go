package document

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/medtour/caseflow/internal/platform/blobstore"
)

var ErrDocumentNotFound = errors.New("document not found")

type Service struct {
	repo  Repository
	blobs blobstore.BlobStore
}

func NewService(repo Repository, blobs blobstore.BlobStore) *Service {
	return &Service{repo: repo, blobs: blobs}
}

// UploadInput describes one file to store.
type UploadInput struct {
	PatientID     uuid.UUID
	ApplicationID *uuid.UUID
	FileName      string
	ContentType   string
	UploadedBy    string
	Content       io.Reader
}

// Upload stores the content in the blobstore, then the metadata row. A
// failed row insert removes the orphaned blob.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*Document, error) {
	if in.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}

	meta, err := s.blobs.Upload(ctx, blobstore.BlobMetadata{
		FileName:    in.FileName,
		ContentType: in.ContentType,
		CreatedBy:   in.UploadedBy,
	}, in.Content)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		PatientID:     in.PatientID,
		ApplicationID: in.ApplicationID,
		FileName:      meta.FileName,
		ContentType:   meta.ContentType,
		Size:          meta.Size,
		BlobID:        meta.ID,
		UploadedBy:    in.UploadedBy,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		_ = s.blobs.Delete(ctx, meta.ID)
		return nil, err
	}
	return doc, nil
}

func (s *Service) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.GetByID(ctx, id)
}

// Download returns the document metadata and a reader over its content.
func (s *Service) Download(ctx context.Context, id uuid.UUID) (*Document, io.ReadCloser, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.blobs.Download(ctx, doc.BlobID)
	if err != nil {
		return nil, nil, fmt.Errorf("blob %s: %w", doc.BlobID, err)
	}
	return doc, rc, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]*Document, error) {
	return s.repo.ListByApplication(ctx, applicationID)
}

// Delete removes the metadata row and the stored content. A missing blob
// is tolerated so a half-deleted document can be cleaned up.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, doc.BlobID); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
		return err
	}
	return nil
}

// DeleteByApplication removes every document tied to an application,
// used when an intake submission is compensated.
func (s *Service) DeleteByApplication(ctx context.Context, applicationID uuid.UUID) error {
	docs, err := s.repo.ListByApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := s.Delete(ctx, doc.ID); err != nil && !errors.Is(err, ErrDocumentNotFound) {
			return err
		}
	}
	return nil
}
