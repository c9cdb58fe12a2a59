package tag

import "context"

// Repository defines storage operations for patient tags.
type Repository interface {
	Create(ctx context.Context, t *Tag) error
	GetByID(ctx context.Context, id string) (*Tag, error)
	List(ctx context.Context) ([]*Tag, error)
	Update(ctx context.Context, t *Tag) error
	Delete(ctx context.Context, id string) error
	CountPatients(ctx context.Context, id string) (int, error)
}
