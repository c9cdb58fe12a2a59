package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

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

const sessionCols = `id, patient_id, step, personal, health, documents, confirmed, status, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, s *Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	personal, health, docs, err := marshalSession(s)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO intake_sessions (id, patient_id, step, personal, health, documents, confirmed, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, s.PatientID, s.Step, personal, health, docs, s.Confirmed, s.Status,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	s, err := scanSession(r.conn(ctx).QueryRow(ctx,
		`SELECT `+sessionCols+` FROM intake_sessions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

func (r *repoPG) GetDraftByPatient(ctx context.Context, patientID uuid.UUID) (*Session, error) {
	s, err := scanSession(r.conn(ctx).QueryRow(ctx, `
		SELECT `+sessionCols+` FROM intake_sessions
		WHERE patient_id = $1 AND status = $2
		ORDER BY created_at DESC LIMIT 1`,
		patientID, StatusDraft))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

func (r *repoPG) Update(ctx context.Context, s *Session) error {
	personal, health, docs, err := marshalSession(s)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE intake_sessions
		SET step=$2, personal=$3, health=$4, documents=$5, confirmed=$6, status=$7, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Step, personal, health, docs, s.Confirmed, s.Status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM intake_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func marshalSession(s *Session) (personal, health, docs []byte, err error) {
	if personal, err = json.Marshal(s.Personal); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal personal: %w", err)
	}
	if health, err = json.Marshal(s.Health); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal health: %w", err)
	}
	if s.Documents == nil {
		s.Documents = []StagedDocument{}
	}
	if docs, err = json.Marshal(s.Documents); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal documents: %w", err)
	}
	return personal, health, docs, nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	var personal, health, docs []byte
	err := row.Scan(&s.ID, &s.PatientID, &s.Step, &personal, &health, &docs,
		&s.Confirmed, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(personal, &s.Personal); err != nil {
		return nil, fmt.Errorf("unmarshal personal: %w", err)
	}
	if err := json.Unmarshal(health, &s.Health); err != nil {
		return nil, fmt.Errorf("unmarshal health: %w", err)
	}
	if err := json.Unmarshal(docs, &s.Documents); err != nil {
		return nil, fmt.Errorf("unmarshal documents: %w", err)
	}
	return &s, nil
}
