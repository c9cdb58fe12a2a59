package stage

import "context"

// Repository defines storage operations for board stages.
type Repository interface {
	Create(ctx context.Context, st *Stage) error
	GetByID(ctx context.Context, id string) (*Stage, error)
	List(ctx context.Context) ([]*Stage, error)
	Update(ctx context.Context, st *Stage) error
	Delete(ctx context.Context, id string) error
	CountPatients(ctx context.Context, id string) (int, error)
}
