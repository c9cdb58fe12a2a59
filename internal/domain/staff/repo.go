package staff

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines storage operations for operator accounts.
type Repository interface {
	Create(ctx context.Context, o *Operator) error
	GetByID(ctx context.Context, id uuid.UUID) (*Operator, error)
	GetByUsername(ctx context.Context, username string) (*Operator, error)
	List(ctx context.Context) ([]*Operator, error)
	Update(ctx context.Context, o *Operator) error
	Delete(ctx context.Context, id uuid.UUID) error
}
