package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medtour/caseflow/internal/platform/cache"
	"github.com/medtour/caseflow/internal/platform/realtime"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrEmptyMessage         = errors.New("message needs content or attachments")
	ErrNotSender            = errors.New("only the sender can modify a message")
	ErrMessageDeleted       = errors.New("message has been deleted")
)

// Service coordinates chat threads between an operator and a patient.
// Unread counters live in Redis when available and fall back to SQL counts.
type Service struct {
	repo      Repository
	unread    *cache.UnreadStore
	publisher realtime.Publisher
	logger    zerolog.Logger
}

func NewService(repo Repository, unread *cache.UnreadStore, publisher realtime.Publisher, logger zerolog.Logger) *Service {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &Service{repo: repo, unread: unread, publisher: publisher, logger: logger}
}

func (s *Service) GetOrCreate(ctx context.Context, patientID uuid.UUID, operatorID string) (*Conversation, error) {
	if operatorID == "" {
		return nil, errors.New("operator id is required")
	}
	return s.repo.GetOrCreate(ctx, patientID, operatorID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListForOperator(ctx context.Context, operatorID string) ([]*Conversation, error) {
	return s.repo.ListByOperator(ctx, operatorID)
}

type SendInput struct {
	SenderID    string
	SenderRole  string
	Content     string
	Attachments []uuid.UUID
	ReplyToID   *uuid.UUID
}

func (s *Service) SendMessage(ctx context.Context, conversationID uuid.UUID, in SendInput) (*Message, error) {
	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(in.Content)
	if content == "" && len(in.Attachments) == 0 {
		return nil, ErrEmptyMessage
	}

	if in.ReplyToID != nil {
		parent, err := s.repo.GetMessage(ctx, *in.ReplyToID)
		if err != nil {
			return nil, err
		}
		if parent.ConversationID != conversationID {
			return nil, ErrMessageNotFound
		}
	}

	// Stored role is always a side so read tracking stays a plain
	// column comparison.
	senderSide := SideOperator
	if in.SenderRole == SidePatient {
		senderSide = SidePatient
	}

	msg := &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       in.SenderID,
		SenderRole:     senderSide,
		Content:        content,
		Attachments:    in.Attachments,
		ReplyToID:      in.ReplyToID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.repo.Touch(ctx, conversationID, msg.CreatedAt); err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conversationID.String()).Msg("touch conversation failed")
	}

	recipient := RecipientSide(in.SenderRole)
	if s.unread != nil {
		if err := s.unread.Incr(ctx, conversationID.String(), recipient); err != nil && !errors.Is(err, cache.ErrUnavailable) {
			s.logger.Warn().Err(err).Msg("unread counter increment failed")
		}
	}

	s.publish(ctx, realtime.EventMessageCreated, conv, msg)
	return msg, nil
}

func (s *Service) EditMessage(ctx context.Context, conversationID, messageID uuid.UUID, senderID, content string) (*Message, error) {
	msg, err := s.messageInConversation(ctx, conversationID, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != senderID {
		return nil, ErrNotSender
	}
	if msg.Deleted {
		return nil, ErrMessageDeleted
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	now := time.Now().UTC()
	msg.Content = content
	msg.EditedAt = &now
	if err := s.repo.UpdateMessage(ctx, msg); err != nil {
		return nil, err
	}

	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, realtime.EventMessageUpdated, conv, msg)
	return msg, nil
}

// DeleteMessage soft-deletes: the row stays so threads with replies keep shape.
func (s *Service) DeleteMessage(ctx context.Context, conversationID, messageID uuid.UUID, senderID string) error {
	msg, err := s.messageInConversation(ctx, conversationID, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != senderID {
		return ErrNotSender
	}
	if msg.Deleted {
		return nil
	}

	msg.Deleted = true
	msg.Content = ""
	if err := s.repo.UpdateMessage(ctx, msg); err != nil {
		return err
	}

	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	s.publish(ctx, realtime.EventMessageDeleted, conv, msg)
	return nil
}

func (s *Service) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	if _, err := s.repo.GetByID(ctx, conversationID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListMessages(ctx, conversationID, limit, offset)
}

// MarkRead clears the reader side's unread state for the whole conversation.
func (s *Service) MarkRead(ctx context.Context, conversationID uuid.UUID, readerSide string) error {
	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := s.repo.MarkRead(ctx, conversationID, readerSide, time.Now().UTC()); err != nil {
		return err
	}
	if s.unread != nil {
		if err := s.unread.Reset(ctx, conversationID.String(), readerSide); err != nil && !errors.Is(err, cache.ErrUnavailable) {
			s.logger.Warn().Err(err).Msg("unread counter reset failed")
		}
	}

	payload, _ := json.Marshal(map[string]string{"side": readerSide})
	_ = s.publisher.Publish(ctx, realtime.Event{
		Type:           realtime.EventMessagesRead,
		Topic:          realtime.ConversationTopic(conversationID.String()),
		ConversationID: conversationID.String(),
		PatientID:      conv.PatientID.String(),
		Data:           payload,
	})
	return nil
}

// UnreadCount prefers the Redis counter and falls back to a SQL count when
// the cache is down or was never configured.
func (s *Service) UnreadCount(ctx context.Context, conversationID uuid.UUID, side string) (int64, error) {
	if s.unread != nil {
		n, err := s.unread.Get(ctx, conversationID.String(), side)
		if err == nil {
			return n, nil
		}
		if !errors.Is(err, cache.ErrUnavailable) {
			s.logger.Warn().Err(err).Msg("unread counter read failed, falling back to sql")
		}
	}
	return s.repo.CountUnread(ctx, conversationID, side)
}

func (s *Service) messageInConversation(ctx context.Context, conversationID, messageID uuid.UUID) (*Message, error) {
	msg, err := s.repo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.ConversationID != conversationID {
		return nil, ErrMessageNotFound
	}
	return msg, nil
}

func (s *Service) publish(ctx context.Context, eventType string, conv *Conversation, msg *Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal message event")
		return
	}
	_ = s.publisher.Publish(ctx, realtime.Event{
		Type:           eventType,
		Topic:          realtime.ConversationTopic(conv.ID.String()),
		ConversationID: conv.ID.String(),
		PatientID:      conv.PatientID.String(),
		Data:           payload,
	})
}
