package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateApplication(ctx context.Context, a *Application) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	a.ClinicName = strings.TrimSpace(a.ClinicName)
	if a.ClinicName == "" {
		return fmt.Errorf("clinic_name is required")
	}
	a.Complaint = strings.TrimSpace(a.Complaint)
	if a.Complaint == "" {
		return fmt.Errorf("complaint is required")
	}
	if a.Status == "" {
		a.Status = StatusNew
	}
	if a.Status != StatusNew {
		return fmt.Errorf("new applications must start with status %q", StatusNew)
	}
	return s.repo.Create(ctx, a)
}

func (s *Service) GetApplication(ctx context.Context, id uuid.UUID) (*Application, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListApplications(ctx context.Context, f ListFilter, limit, offset int) ([]*Application, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Application, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// UpdateStatus moves an application along the state machine. Approved and
// rejected are terminal.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Application, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == status {
		return a, nil
	}
	if !CanTransition(a.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, status)
	}
	a.Status = status
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) UpdateApplication(ctx context.Context, a *Application) error {
	existing, err := s.repo.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	if clinic := strings.TrimSpace(a.ClinicName); clinic != "" {
		existing.ClinicName = clinic
	}
	if complaint := strings.TrimSpace(a.Complaint); complaint != "" {
		existing.Complaint = complaint
	}
	if a.Diagnosis != nil {
		existing.Diagnosis = a.Diagnosis
	}
	*a = *existing
	return s.repo.Update(ctx, existing)
}

func (s *Service) DeleteApplication(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
