package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medtour/caseflow/internal/platform/realtime"
)

type mockRepo struct {
	mu       sync.Mutex
	convs    map[uuid.UUID]*Conversation
	messages map[uuid.UUID]*Message
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		convs:    make(map[uuid.UUID]*Conversation),
		messages: make(map[uuid.UUID]*Message),
	}
}

func (m *mockRepo) GetOrCreate(ctx context.Context, patientID uuid.UUID, operatorID string) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.convs {
		if c.PatientID == patientID && c.OperatorID == operatorID {
			cp := *c
			return &cp, nil
		}
	}
	c := &Conversation{ID: uuid.New(), PatientID: patientID, OperatorID: operatorID, CreatedAt: time.Now().UTC()}
	m.convs[c.ID] = c
	cp := *c
	return &cp, nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepo) ListByOperator(ctx context.Context, operatorID string) ([]*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Conversation
	for _, c := range m.convs {
		if c.OperatorID == operatorID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return ErrConversationNotFound
	}
	t := at
	c.LastMessageAt = &t
	return nil
}

func (m *mockRepo) CreateMessage(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	cp := *msg
	m.messages[msg.ID] = &cp
	return nil
}

func (m *mockRepo) GetMessage(ctx context.Context, id uuid.UUID) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	cp := *msg
	return &cp, nil
}

func (m *mockRepo) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			cp := *msg
			all = append(all, &cp)
		}
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockRepo) UpdateMessage(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.messages[msg.ID]; !ok {
		return ErrMessageNotFound
	}
	cp := *msg
	m.messages[msg.ID] = &cp
	return nil
}

func (m *mockRepo) MarkRead(ctx context.Context, conversationID uuid.UUID, readerSide string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && msg.SenderRole != readerSide && msg.ReadAt == nil {
			t := at
			msg.ReadAt = &t
		}
	}
	return nil
}

func (m *mockRepo) CountUnread(ctx context.Context, conversationID uuid.UUID, side string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && msg.SenderRole != side && msg.ReadAt == nil && !msg.Deleted {
			n++
		}
	}
	return n, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *capturePublisher) Publish(_ context.Context, e realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) last() (realtime.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return realtime.Event{}, false
	}
	return p.events[len(p.events)-1], true
}

func newTestService() (*Service, *mockRepo, *capturePublisher) {
	repo := newMockRepo()
	pub := &capturePublisher{}
	svc := NewService(repo, nil, pub, zerolog.Nop())
	return svc, repo, pub
}

func seedConversation(t *testing.T, svc *Service) *Conversation {
	t.Helper()
	conv, err := svc.GetOrCreate(context.Background(), uuid.New(), "op-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	return conv
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService()
	patientID := uuid.New()

	first, err := svc.GetOrCreate(context.Background(), patientID, "op-1")
	if err != nil {
		t.Fatalf("first GetOrCreate: %v", err)
	}
	second, err := svc.GetOrCreate(context.Background(), patientID, "op-1")
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected the same conversation, got %s and %s", first.ID, second.ID)
	}
}

func TestSendMessage(t *testing.T) {
	svc, repo, pub := newTestService()
	conv := seedConversation(t, svc)

	msg, err := svc.SendMessage(context.Background(), conv.ID, SendInput{
		SenderID:   "op-1",
		SenderRole: SideOperator,
		Content:    "  Salom!  ",
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.Content != "Salom!" {
		t.Errorf("expected trimmed content, got %q", msg.Content)
	}

	stored, _ := repo.GetByID(context.Background(), conv.ID)
	if stored.LastMessageAt == nil {
		t.Error("expected conversation last_message_at to be touched")
	}

	event, ok := pub.last()
	if !ok {
		t.Fatal("expected an event to be published")
	}
	if event.Type != realtime.EventMessageCreated {
		t.Errorf("expected %s event, got %s", realtime.EventMessageCreated, event.Type)
	}
	if event.Topic != realtime.ConversationTopic(conv.ID.String()) {
		t.Errorf("unexpected topic %s", event.Topic)
	}
}

func TestSendMessageRejectsEmpty(t *testing.T) {
	svc, _, _ := newTestService()
	conv := seedConversation(t, svc)

	_, err := svc.SendMessage(context.Background(), conv.ID, SendInput{
		SenderID:   "op-1",
		SenderRole: SideOperator,
		Content:    "   ",
	})
	if err != ErrEmptyMessage {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestSendMessageAttachmentOnly(t *testing.T) {
	svc, _, _ := newTestService()
	conv := seedConversation(t, svc)

	msg, err := svc.SendMessage(context.Background(), conv.ID, SendInput{
		SenderID:    "patient-1",
		SenderRole:  SidePatient,
		Attachments: []uuid.UUID{uuid.New()},
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(msg.Attachments) != 1 {
		t.Errorf("expected 1 attachment, got %d", len(msg.Attachments))
	}
}

func TestSendMessageReplyMustBeInSameConversation(t *testing.T) {
	svc, _, _ := newTestService()
	convA := seedConversation(t, svc)
	convB := seedConversation(t, svc)

	parent, err := svc.SendMessage(context.Background(), convA.ID, SendInput{
		SenderID: "op-1", SenderRole: SideOperator, Content: "hi",
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	_, err = svc.SendMessage(context.Background(), convB.ID, SendInput{
		SenderID: "op-1", SenderRole: SideOperator, Content: "reply", ReplyToID: &parent.ID,
	})
	if err != ErrMessageNotFound {
		t.Errorf("expected ErrMessageNotFound for cross-conversation reply, got %v", err)
	}
}

func TestEditMessage(t *testing.T) {
	svc, _, pub := newTestService()
	conv := seedConversation(t, svc)

	msg, _ := svc.SendMessage(context.Background(), conv.ID, SendInput{
		SenderID: "op-1", SenderRole: SideOperator, Content: "typo",
	})

	edited, err := svc.EditMessage(context.Background(), conv.ID, msg.ID, "op-1", "fixed")
	if err != nil {
		t.Fatalf("EditMessage: %v", err)
	}
	if edited.Content != "fixed" {
		t.Errorf("expected content %q, got %q", "fixed", edited.Content)
	}
	if edited.EditedAt == nil {
		t.Error("expected edited_at to be set")
	}

	event, _ := pub.last()
	if event.Type != realtime.EventMessageUpdated {
		t.Errorf("expected %s event, got %s", realtime.EventMessageUpdated, event.Type)
	}
}

func TestEditMessageOnlyBySender(t *testing.T) {
	svc, _, _ := newTestService()
	conv := seedConversation(t, svc)

	msg, _ := svc.SendMessage(context.Background(), conv.ID, SendInput{
		SenderID: "op-1", SenderRole: SideOperator, Content: "mine",
	})

	if _, err := svc.EditMessage(context.Background(), conv.ID, msg.ID, "op-2", "theirs"); err != ErrNotSender {
		t.Errorf("expected ErrNotSender, got %v", err)
	}
}

func TestDeleteMessageSoftDeletes(t *testing.T) {
	svc, repo, pub := newTestService()
	conv := seedConversation(t, svc)

	msg, _ := svc.SendMessage(context.Background(), conv.ID, SendInput{
		SenderID: "op-1", SenderRole: SideOperator, Content: "oops",
	})

	if err := svc.DeleteMessage(context.Background(), conv.ID, msg.ID, "op-1"); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}

	stored, err := repo.GetMessage(context.Background(), msg.ID)
	if err != nil {
		t.Fatalf("expected message row to survive soft delete, got %v", err)
	}
	if !stored.Deleted {
		t.Error("expected message to be marked deleted")
	}
	if stored.Content != "" {
		t.Errorf("expected content cleared, got %q", stored.Content)
	}

	event, _ := pub.last()
	if event.Type != realtime.EventMessageDeleted {
		t.Errorf("expected %s event, got %s", realtime.EventMessageDeleted, event.Type)
	}

	if _, err := svc.EditMessage(context.Background(), conv.ID, msg.ID, "op-1", "revive"); err != ErrMessageDeleted {
		t.Errorf("expected ErrMessageDeleted on edit, got %v", err)
	}
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	svc, _, pub := newTestService()
	conv := seedConversation(t, svc)

	for i := 0; i < 3; i++ {
		if _, err := svc.SendMessage(context.Background(), conv.ID, SendInput{
			SenderID: "patient-1", SenderRole: SidePatient, Content: "msg",
		}); err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
	}

	n, err := svc.UnreadCount(context.Background(), conv.ID, SideOperator)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 unread, got %d", n)
	}

	if err := svc.MarkRead(context.Background(), conv.ID, SideOperator); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	n, _ = svc.UnreadCount(context.Background(), conv.ID, SideOperator)
	if n != 0 {
		t.Errorf("expected 0 unread after MarkRead, got %d", n)
	}

	event, _ := pub.last()
	if event.Type != realtime.EventMessagesRead {
		t.Errorf("expected %s event, got %s", realtime.EventMessagesRead, event.Type)
	}
}

func TestUnreadCountIgnoresOwnAndDeleted(t *testing.T) {
	svc, _, _ := newTestService()
	conv := seedConversation(t, svc)

	own, _ := svc.SendMessage(context.Background(), conv.ID, SendInput{
		SenderID: "op-1", SenderRole: SideOperator, Content: "mine",
	})
	_ = own
	theirs, _ := svc.SendMessage(context.Background(), conv.ID, SendInput{
		SenderID: "patient-1", SenderRole: SidePatient, Content: "theirs",
	})

	n, _ := svc.UnreadCount(context.Background(), conv.ID, SideOperator)
	if n != 1 {
		t.Fatalf("expected 1 unread, got %d", n)
	}

	if err := svc.DeleteMessage(context.Background(), conv.ID, theirs.ID, "patient-1"); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	n, _ = svc.UnreadCount(context.Background(), conv.ID, SideOperator)
	if n != 0 {
		t.Errorf("expected 0 unread after delete, got %d", n)
	}
}

func TestRecipientSide(t *testing.T) {
	if got := RecipientSide(SideOperator); got != SidePatient {
		t.Errorf("operator message should land on patient side, got %s", got)
	}
	if got := RecipientSide(SidePatient); got != SideOperator {
		t.Errorf("patient message should land on operator side, got %s", got)
	}
	if got := RecipientSide("admin"); got != SidePatient {
		t.Errorf("staff roles count as operator side, got %s", got)
	}
}
