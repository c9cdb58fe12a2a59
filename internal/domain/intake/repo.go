package intake

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines storage operations for intake sessions.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	// GetDraftByPatient returns the patient's open draft, if any.
	GetDraftByPatient(ctx context.Context, patientID uuid.UUID) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}
