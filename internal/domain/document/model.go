package document

import (
	"time"

	"github.com/google/uuid"
)

// Document maps to the documents table. Content lives in the blobstore;
// this row is the metadata the API serves.
type Document struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	ApplicationID *uuid.UUID `db:"application_id" json:"application_id,omitempty"`
	FileName      string     `db:"file_name" json:"file_name"`
	ContentType   string     `db:"content_type" json:"content_type"`
	Size          int64      `db:"size" json:"size"`
	BlobID        string     `db:"blob_id" json:"blob_id"`
	UploadedBy    string     `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}
