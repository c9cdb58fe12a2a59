package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines storage operations for patients and their history.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error)
	ListAll(ctx context.Context) ([]*Patient, error)
	Update(ctx context.Context, p *Patient) error
	UpdateStage(ctx context.Context, id uuid.UUID, stageID string) error
	UpdateTag(ctx context.Context, id uuid.UUID, tagID string) error
	Delete(ctx context.Context, id uuid.UUID) error

	AddHistory(ctx context.Context, h *HistoryEntry) error
	ListHistory(ctx context.Context, patientID uuid.UUID) ([]*HistoryEntry, error)
}
