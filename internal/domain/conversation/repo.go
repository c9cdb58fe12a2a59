package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines storage operations for conversations and messages.
type Repository interface {
	GetOrCreate(ctx context.Context, patientID uuid.UUID, operatorID string) (*Conversation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error)
	ListByOperator(ctx context.Context, operatorID string) ([]*Conversation, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error

	CreateMessage(ctx context.Context, m *Message) error
	GetMessage(ctx context.Context, id uuid.UUID) (*Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error)
	UpdateMessage(ctx context.Context, m *Message) error
	MarkRead(ctx context.Context, conversationID uuid.UUID, readerSide string, at time.Time) error
	CountUnread(ctx context.Context, conversationID uuid.UUID, side string) (int64, error)
}
