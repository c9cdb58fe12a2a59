package application

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repository --

type mockRepo struct {
	apps map[uuid.UUID]*Application
}

func newMockRepo() *mockRepo {
	return &mockRepo{apps: make(map[uuid.UUID]*Application)}
}

func (m *mockRepo) Create(_ context.Context, a *Application) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	cp := *a
	m.apps[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Application, error) {
	a, ok := m.apps[id]
	if !ok {
		return nil, ErrApplicationNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Application, int, error) {
	var result []*Application
	for _, a := range m.apps {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if f.Order == "asc" {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, len(result), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Application, error) {
	var result []*Application
	for _, a := range m.apps {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockRepo) Update(_ context.Context, a *Application) error {
	if _, ok := m.apps[a.ID]; !ok {
		return ErrApplicationNotFound
	}
	cp := *a
	m.apps[a.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.apps[id]; !ok {
		return ErrApplicationNotFound
	}
	delete(m.apps, id)
	return nil
}

// -- Tests --

func TestCreateApplication(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	a := &Application{PatientID: uuid.New(), ClinicName: "Shifo Clinic", Complaint: "bel og'rig'i"}
	if err := svc.CreateApplication(ctx, a); err != nil {
		t.Fatalf("CreateApplication failed: %v", err)
	}
	if a.Status != StatusNew {
		t.Errorf("status = %q, want new", a.Status)
	}
}

func TestCreateApplication_Validation(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	cases := []Application{
		{ClinicName: "X", Complaint: "y"},                           // missing patient
		{PatientID: uuid.New(), Complaint: "y"},                     // missing clinic
		{PatientID: uuid.New(), ClinicName: "X"},                    // missing complaint
		{PatientID: uuid.New(), ClinicName: "X", Complaint: "  \t"}, // blank complaint
	}
	for i, a := range cases {
		if err := svc.CreateApplication(ctx, &a); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestUpdateStatus_Transitions(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	a := &Application{PatientID: uuid.New(), ClinicName: "Shifo", Complaint: "x"}
	if err := svc.CreateApplication(ctx, a); err != nil {
		t.Fatalf("CreateApplication failed: %v", err)
	}

	// new -> approved skips processing and must fail.
	if _, err := svc.UpdateStatus(ctx, a.ID, StatusApproved); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for new->approved, got %v", err)
	}

	got, err := svc.UpdateStatus(ctx, a.ID, StatusProcessing)
	if err != nil {
		t.Fatalf("new->processing failed: %v", err)
	}
	if got.Status != StatusProcessing {
		t.Errorf("status = %q", got.Status)
	}

	if _, err := svc.UpdateStatus(ctx, a.ID, StatusApproved); err != nil {
		t.Fatalf("processing->approved failed: %v", err)
	}

	// approved is terminal.
	if _, err := svc.UpdateStatus(ctx, a.ID, StatusRejected); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition from approved, got %v", err)
	}

	// Same status is a no-op.
	if _, err := svc.UpdateStatus(ctx, a.ID, StatusApproved); err != nil {
		t.Errorf("same-status update should be a no-op, got %v", err)
	}
}

func TestListApplications_StatusFilter(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		a := &Application{PatientID: uuid.New(), ClinicName: "Shifo", Complaint: "x"}
		if err := svc.CreateApplication(ctx, a); err != nil {
			t.Fatalf("CreateApplication failed: %v", err)
		}
		if i == 0 {
			if _, err := svc.UpdateStatus(ctx, a.ID, StatusProcessing); err != nil {
				t.Fatalf("UpdateStatus failed: %v", err)
			}
		}
	}

	apps, total, err := svc.ListApplications(ctx, ListFilter{Status: StatusNew}, 20, 0)
	if err != nil {
		t.Fatalf("ListApplications failed: %v", err)
	}
	if total != 2 || len(apps) != 2 {
		t.Errorf("expected 2 new applications, got %d", total)
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusNew, StatusProcessing, true},
		{StatusNew, StatusApproved, false},
		{StatusProcessing, StatusApproved, true},
		{StatusProcessing, StatusRejected, true},
		{StatusApproved, StatusProcessing, false},
		{StatusRejected, StatusProcessing, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
