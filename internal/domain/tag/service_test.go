package tag

import (
	"context"
	"errors"
	"testing"
	"time"
)

// -- Mock Repository --

type mockRepo struct {
	tags     map[string]*Tag
	patients map[string]int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		tags:     make(map[string]*Tag),
		patients: make(map[string]int),
	}
}

func (m *mockRepo) Create(_ context.Context, t *Tag) error {
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()
	m.tags[t.ID] = t
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*Tag, error) {
	t, ok := m.tags[id]
	if !ok {
		return nil, ErrTagNotFound
	}
	return t, nil
}

func (m *mockRepo) List(_ context.Context) ([]*Tag, error) {
	var result []*Tag
	for _, t := range m.tags {
		result = append(result, t)
	}
	return result, nil
}

func (m *mockRepo) Update(_ context.Context, t *Tag) error {
	if _, ok := m.tags[t.ID]; !ok {
		return ErrTagNotFound
	}
	m.tags[t.ID] = t
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.tags[id]; !ok {
		return ErrTagNotFound
	}
	delete(m.tags, id)
	return nil
}

func (m *mockRepo) CountPatients(_ context.Context, id string) (int, error) {
	return m.patients[id], nil
}

// -- Tests --

func TestCreateTag(t *testing.T) {
	svc := NewService(newMockRepo())

	tg := &Tag{Text: "VIP"}
	if err := svc.CreateTag(context.Background(), tg); err != nil {
		t.Fatalf("CreateTag failed: %v", err)
	}
	if tg.ID == "" {
		t.Error("expected generated tag id")
	}
	if tg.Color != "gray" {
		t.Errorf("color = %q, want gray default", tg.Color)
	}
}

func TestCreateTag_RequiresText(t *testing.T) {
	svc := NewService(newMockRepo())

	if err := svc.CreateTag(context.Background(), &Tag{Text: "  "}); err == nil {
		t.Error("expected error for blank text")
	}
}

func TestResolve_FallsBackOnUnknownID(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	tg := &Tag{ID: "normal", Text: "normal", Color: "green"}
	if err := svc.CreateTag(ctx, tg); err != nil {
		t.Fatalf("CreateTag failed: %v", err)
	}

	if got := svc.Resolve(ctx, "normal"); got.Text != "normal" {
		t.Errorf("Resolve(normal) = %+v", got)
	}

	got := svc.Resolve(ctx, "deleted-tag-id")
	if got.ID != "unknown" || got.Text != "unknown" {
		t.Errorf("expected fallback tag, got %+v", got)
	}
}

func TestDeleteTag_RefusesWhenInUse(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	tg := &Tag{ID: "vip", Text: "VIP"}
	if err := svc.CreateTag(ctx, tg); err != nil {
		t.Fatalf("CreateTag failed: %v", err)
	}
	repo.patients["vip"] = 1

	if err := svc.DeleteTag(ctx, "vip"); !errors.Is(err, ErrTagInUse) {
		t.Errorf("expected ErrTagInUse, got %v", err)
	}
}

func TestUpdateTag_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())

	err := svc.UpdateTag(context.Background(), &Tag{ID: "ghost", Text: "X"})
	if !errors.Is(err, ErrTagNotFound) {
		t.Errorf("expected ErrTagNotFound, got %v", err)
	}
}
