package patient

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/medtour/caseflow/internal/domain/stage"
	"github.com/medtour/caseflow/internal/domain/tag"
)

// Patient maps to the patients table. A patient is a case card on the
// board: workflow position lives in StageID, classification in TagID.
type Patient struct {
	ID                uuid.UUID `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	TagID             string    `db:"tag_id" json:"tag_id"`
	StageID           string    `db:"stage_id" json:"stage_id"`
	Source            *string   `db:"source" json:"source,omitempty"`
	CreatedBy         string    `db:"created_by" json:"created_by"`
	Passport          *string   `db:"passport" json:"passport,omitempty"`
	DateOfBirth       *string   `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender            *string   `db:"gender" json:"gender,omitempty"`
	Phone             string    `db:"phone" json:"phone"`
	Email             *string   `db:"email" json:"email,omitempty"`
	Complaints        *string   `db:"complaints" json:"complaints,omitempty"`
	PreviousDiagnosis *string   `db:"previous_diagnosis" json:"previous_diagnosis,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// HistoryEntry is an append-only record of what happened to a patient case.
type HistoryEntry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Date      time.Time `db:"date" json:"date"`
	Author    string    `db:"author" json:"author"`
	Text      string    `db:"text" json:"text"`
}

// InitialHistoryText is written when a patient profile is created.
const InitialHistoryText = "Bemor profili yaratildi"

var phoneRe = regexp.MustCompile(`^\d{9}$`)

// ValidPhone reports whether s is a 9-digit local phone number.
func ValidPhone(s string) bool {
	return phoneRe.MatchString(s)
}

// UpdateInput carries partial profile updates; nil fields are untouched.
type UpdateInput struct {
	Name              *string `json:"name,omitempty"`
	Source            *string `json:"source,omitempty"`
	Passport          *string `json:"passport,omitempty"`
	DateOfBirth       *string `json:"date_of_birth,omitempty"`
	Gender            *string `json:"gender,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	Email             *string `json:"email,omitempty"`
	Complaints        *string `json:"complaints,omitempty"`
	PreviousDiagnosis *string `json:"previous_diagnosis,omitempty"`
}

// BoardCard is a patient rendered for the kanban board with its tag
// resolved.
type BoardCard struct {
	*Patient
	Tag *tag.Tag `json:"tag"`
}

// BoardColumn is one stage column with its cards.
type BoardColumn struct {
	Stage *stage.Stage `json:"stage"`
	Cards []*BoardCard `json:"cards"`
}

// ListFilter narrows List results.
type ListFilter struct {
	StageID string
	TagID   string
	Search  string
}
