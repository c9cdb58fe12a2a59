package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Sides of a conversation. Unread counters and read receipts are tracked
// per side, not per user.
const (
	SideOperator = "operator"
	SidePatient  = "patient"
)

// RecipientSide returns the side that receives a message sent by
// senderRole. Any staff role counts as the operator side.
func RecipientSide(senderRole string) string {
	if senderRole == SidePatient {
		return SideOperator
	}
	return SidePatient
}

// Conversation maps to the conversations table: one thread per
// patient/operator pair.
type Conversation struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	OperatorID    string     `db:"operator_id" json:"operator_id"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Message maps to the messages table. Deleted messages keep their row with
// the content hidden on read.
type Message struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	ConversationID uuid.UUID   `db:"conversation_id" json:"conversation_id"`
	SenderID       string      `db:"sender_id" json:"sender_id"`
	SenderRole     string      `db:"sender_role" json:"sender_role"`
	Content        string      `db:"content" json:"content"`
	Attachments    []uuid.UUID `db:"attachments" json:"attachments,omitempty"`
	ReplyToID      *uuid.UUID  `db:"reply_to_id" json:"reply_to_id,omitempty"`
	Deleted        bool        `db:"deleted" json:"deleted"`
	EditedAt       *time.Time  `db:"edited_at" json:"edited_at,omitempty"`
	ReadAt         *time.Time  `db:"read_at" json:"read_at,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
}
