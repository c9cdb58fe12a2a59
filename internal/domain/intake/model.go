package intake

import (
	"time"

	"github.com/google/uuid"

	"github.com/medtour/caseflow/internal/domain/patient"
)

// Session statuses. Drafts are editable; submitted and failed are final.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusFailed    = "failed"
)

const (
	MinStep = 1
	MaxStep = 4
)

// ClampStep forces a step index into the wizard range.
func ClampStep(step int) int {
	if step < MinStep {
		return MinStep
	}
	if step > MaxStep {
		return MaxStep
	}
	return step
}

// PersonalInfo is the wizard's first step.
type PersonalInfo struct {
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
	Phone       string `json:"phone"`
	Passport    string `json:"passport,omitempty"`
	Email       string `json:"email,omitempty"`
}

// HealthInfo is the wizard's second step.
type HealthInfo struct {
	Complaint         string `json:"complaint"`
	PreviousDiagnosis string `json:"previous_diagnosis,omitempty"`
	ClinicName        string `json:"clinic_name,omitempty"`
}

// StagedDocument is a file parked in the blobstore until submit, when it
// becomes a real document row tagged with the new application.
type StagedDocument struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	BlobID      string    `json:"blob_id"`
}

// Session maps to the intake_sessions table. Personal, Health and
// Documents live in JSONB columns.
type Session struct {
	ID        uuid.UUID        `db:"id" json:"id"`
	PatientID uuid.UUID        `db:"patient_id" json:"patient_id"`
	Step      int              `db:"step" json:"step"`
	Personal  PersonalInfo     `db:"personal" json:"personal"`
	Health    HealthInfo       `db:"health" json:"health"`
	Documents []StagedDocument `db:"documents" json:"documents"`
	Confirmed bool             `db:"confirmed" json:"confirmed"`
	Status    string           `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// FieldErrors maps field names to validation messages for one step.
type FieldErrors map[string]string

// ValidateStep checks the data a given step collects and returns
// field-level messages. An empty map means the step passes.
func (s *Session) ValidateStep(step int) FieldErrors {
	errs := FieldErrors{}
	switch step {
	case 1:
		if s.Personal.FullName == "" {
			errs["full_name"] = "full name is required"
		}
		if s.Personal.DateOfBirth == "" {
			errs["date_of_birth"] = "date of birth is required"
		}
		if s.Personal.Gender == "" {
			errs["gender"] = "gender is required"
		}
		if !patient.ValidPhone(s.Personal.Phone) {
			errs["phone"] = "phone must be 9 digits"
		}
	case 2:
		if s.Health.Complaint == "" {
			errs["complaint"] = "complaint is required"
		}
	case 3:
		if len(s.Documents) == 0 {
			errs["documents"] = "at least one document is required"
		}
	case 4:
		if !s.Confirmed {
			errs["confirmed"] = "confirmation is required"
		}
	}
	return errs
}
