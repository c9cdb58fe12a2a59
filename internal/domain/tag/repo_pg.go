package tag

import (
	"context"
	"errors"

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

const tagCols = `id, text, color, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, t *Tag) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO tags (id, text, color) VALUES ($1, $2, $3)`,
		t.ID, t.Text, t.Color,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Tag, error) {
	var t Tag
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+tagCols+` FROM tags WHERE id = $1`, id,
	).Scan(&t.ID, &t.Text, &t.Color, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTagNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repoPG) List(ctx context.Context) ([]*Tag, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+tagCols+` FROM tags ORDER BY text`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Text, &t.Color, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, &t)
	}
	return tags, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, t *Tag) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE tags SET text=$2, color=$3, updated_at=NOW() WHERE id = $1`,
		t.ID, t.Text, t.Color,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTagNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id string) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTagNotFound
	}
	return nil
}

func (r *repoPG) CountPatients(ctx context.Context, id string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patients WHERE tag_id = $1`, id).Scan(&n)
	return n, err
}
