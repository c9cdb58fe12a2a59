package tag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrTagNotFound = errors.New("tag not found")
	ErrTagInUse    = errors.New("tag has patients and cannot be deleted")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateTag(ctx context.Context, t *Tag) error {
	t.Text = strings.TrimSpace(t.Text)
	if t.Text == "" {
		return fmt.Errorf("text is required")
	}
	if t.ID == "" {
		t.ID = "tag-" + uuid.NewString()
	}
	if t.Color == "" {
		t.Color = "gray"
	}
	return s.repo.Create(ctx, t)
}

func (s *Service) GetTag(ctx context.Context, id string) (*Tag, error) {
	return s.repo.GetByID(ctx, id)
}

// Resolve returns the tag for id, or the fallback display tag when the id
// no longer resolves. It never fails on a dangling reference.
func (s *Service) Resolve(ctx context.Context, id string) *Tag {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return FallbackTag()
	}
	return t
}

func (s *Service) ListTags(ctx context.Context) ([]*Tag, error) {
	return s.repo.List(ctx)
}

func (s *Service) UpdateTag(ctx context.Context, t *Tag) error {
	existing, err := s.repo.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	if text := strings.TrimSpace(t.Text); text != "" {
		existing.Text = text
	}
	if t.Color != "" {
		existing.Color = t.Color
	}
	*t = *existing
	return s.repo.Update(ctx, existing)
}

func (s *Service) DeleteTag(ctx context.Context, id string) error {
	n, err := s.repo.CountPatients(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrTagInUse
	}
	return s.repo.Delete(ctx, id)
}
