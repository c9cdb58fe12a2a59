package stage

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

const stageCols = `id, title, color_class, position, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, st *Stage) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO stages (id, title, color_class, position)
		VALUES ($1, $2, $3, $4)`,
		st.ID, st.Title, st.ColorClass, st.Position,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Stage, error) {
	var st Stage
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+stageCols+` FROM stages WHERE id = $1`, id,
	).Scan(&st.ID, &st.Title, &st.ColorClass, &st.Position, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *repoPG) List(ctx context.Context) ([]*Stage, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+stageCols+` FROM stages ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []*Stage
	for rows.Next() {
		var st Stage
		if err := rows.Scan(&st.ID, &st.Title, &st.ColorClass, &st.Position, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, err
		}
		stages = append(stages, &st)
	}
	return stages, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, st *Stage) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE stages SET title=$2, color_class=$3, position=$4, updated_at=NOW()
		WHERE id = $1`,
		st.ID, st.Title, st.ColorClass, st.Position,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStageNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id string) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM stages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStageNotFound
	}
	return nil
}

func (r *repoPG) CountPatients(ctx context.Context, id string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patients WHERE stage_id = $1`, id).Scan(&n)
	return n, err
}
