package application

import (
	"time"

	"github.com/google/uuid"
)

// Application statuses. New applications start at StatusNew; approved and
// rejected are terminal.
const (
	StatusNew        = "new"
	StatusProcessing = "processing"
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
)

// allowedTransitions encodes the status state machine.
var allowedTransitions = map[string][]string{
	StatusNew:        {StatusProcessing},
	StatusProcessing: {StatusApproved, StatusRejected},
}

// CanTransition reports whether from → to is a legal status move.
func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Application maps to the applications table: a submitted intake request
// for treatment at a clinic.
type Application struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	ClinicName string    `db:"clinic_name" json:"clinic_name"`
	Complaint  string    `db:"complaint" json:"complaint"`
	Diagnosis  *string   `db:"diagnosis" json:"diagnosis,omitempty"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ListFilter narrows and orders List results.
type ListFilter struct {
	Status string
	Sort   string // created_at | status | clinic_name
	Order  string // asc | desc
}
