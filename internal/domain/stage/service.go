package stage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrStageNotFound = errors.New("stage not found")
	ErrStageInUse    = errors.New("stage has patients and cannot be deleted")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateStage(ctx context.Context, st *Stage) error {
	st.Title = strings.TrimSpace(st.Title)
	if st.Title == "" {
		return fmt.Errorf("title is required")
	}
	if st.ID == "" {
		st.ID = "stage-" + uuid.NewString()
	}
	st.ColorClass = ColorClassForHex(st.ColorClass)
	return s.repo.Create(ctx, st)
}

func (s *Service) GetStage(ctx context.Context, id string) (*Stage, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListStages(ctx context.Context) ([]*Stage, error) {
	return s.repo.List(ctx)
}

func (s *Service) UpdateStage(ctx context.Context, st *Stage) error {
	existing, err := s.repo.GetByID(ctx, st.ID)
	if err != nil {
		return err
	}
	if title := strings.TrimSpace(st.Title); title != "" {
		existing.Title = title
	}
	if st.ColorClass != "" {
		existing.ColorClass = ColorClassForHex(st.ColorClass)
	}
	if st.Position > 0 {
		existing.Position = st.Position
	}
	*st = *existing
	return s.repo.Update(ctx, existing)
}

func (s *Service) DeleteStage(ctx context.Context, id string) error {
	n, err := s.repo.CountPatients(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrStageInUse
	}
	return s.repo.Delete(ctx, id)
}
