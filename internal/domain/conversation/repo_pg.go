package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medtour/caseflow/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const convCols = `id, patient_id, operator_id, last_message_at, created_at`
const msgCols = `id, conversation_id, sender_id, sender_role, content, attachments, reply_to_id, deleted, edited_at, read_at, created_at`

func (r *repoPG) GetOrCreate(ctx context.Context, patientID uuid.UUID, operatorID string) (*Conversation, error) {
	var c Conversation
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO conversations (id, patient_id, operator_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (patient_id, operator_id) DO UPDATE SET patient_id = EXCLUDED.patient_id
		RETURNING `+convCols,
		uuid.New(), patientID, operatorID,
	).Scan(&c.ID, &c.PatientID, &c.OperatorID, &c.LastMessageAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	var c Conversation
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+convCols+` FROM conversations WHERE id = $1`, id,
	).Scan(&c.ID, &c.PatientID, &c.OperatorID, &c.LastMessageAt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) ListByOperator(ctx context.Context, operatorID string) ([]*Conversation, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+convCols+` FROM conversations WHERE operator_id = $1
		 ORDER BY last_message_at DESC NULLS LAST`, operatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.PatientID, &c.OperatorID, &c.LastMessageAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		convs = append(convs, &c)
	}
	return convs, rows.Err()
}

func (r *repoPG) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE conversations SET last_message_at = $2 WHERE id = $1`, id, at)
	return err
}

func (r *repoPG) CreateMessage(ctx context.Context, m *Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, sender_role, content, attachments, reply_to_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.ConversationID, m.SenderID, m.SenderRole, m.Content, m.Attachments, m.ReplyToID,
	)
	return err
}

func (r *repoPG) GetMessage(ctx context.Context, id uuid.UUID) (*Message, error) {
	m, err := scanMessage(r.conn(ctx).QueryRow(ctx,
		`SELECT `+msgCols+` FROM messages WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	return m, err
}

func (r *repoPG) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = $1`, conversationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	// Page from the tail so the newest page renders last in order.
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+msgCols+` FROM (
			SELECT `+msgCols+` FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC LIMIT $2 OFFSET $3
		) page ORDER BY created_at`,
		conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderRole, &m.Content,
			&m.Attachments, &m.ReplyToID, &m.Deleted, &m.EditedAt, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		msgs = append(msgs, &m)
	}
	return msgs, total, rows.Err()
}

func (r *repoPG) UpdateMessage(ctx context.Context, m *Message) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE messages SET content=$2, deleted=$3, edited_at=$4, read_at=$5 WHERE id = $1`,
		m.ID, m.Content, m.Deleted, m.EditedAt, m.ReadAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *repoPG) MarkRead(ctx context.Context, conversationID uuid.UUID, readerSide string, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE messages SET read_at = $3
		WHERE conversation_id = $1 AND sender_role <> $2 AND read_at IS NULL`,
		conversationID, readerSide, at,
	)
	return err
}

func (r *repoPG) CountUnread(ctx context.Context, conversationID uuid.UUID, side string) (int64, error) {
	var n int64
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE conversation_id = $1 AND sender_role <> $2 AND read_at IS NULL AND NOT deleted`,
		conversationID, side,
	).Scan(&n)
	return n, err
}

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderRole, &m.Content,
		&m.Attachments, &m.ReplyToID, &m.Deleted, &m.EditedAt, &m.ReadAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
