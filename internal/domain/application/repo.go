package application

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines storage operations for applications.
type Repository interface {
	Create(ctx context.Context, a *Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*Application, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Application, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Application, error)
	Update(ctx context.Context, a *Application) error
	Delete(ctx context.Context, id uuid.UUID) error
}
