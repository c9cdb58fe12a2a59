package staff

import (
	"context"
	"errors"

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

const operatorCols = `id, username, full_name, role, password_hash, active, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, o *Operator) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO operators (id, username, full_name, role, password_hash, active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.Username, o.FullName, o.Role, o.PasswordHash, o.Active,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Operator, error) {
	o, err := scanOperator(r.conn(ctx).QueryRow(ctx,
		`SELECT `+operatorCols+` FROM operators WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOperatorNotFound
	}
	return o, err
}

func (r *repoPG) GetByUsername(ctx context.Context, username string) (*Operator, error) {
	o, err := scanOperator(r.conn(ctx).QueryRow(ctx,
		`SELECT `+operatorCols+` FROM operators WHERE username = $1`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOperatorNotFound
	}
	return o, err
}

func (r *repoPG) List(ctx context.Context) ([]*Operator, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+operatorCols+` FROM operators ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Operator
	for rows.Next() {
		var o Operator
		if err := rows.Scan(&o.ID, &o.Username, &o.FullName, &o.Role,
			&o.PasswordHash, &o.Active, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, o *Operator) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE operators
		SET username=$2, full_name=$3, role=$4, password_hash=$5, active=$6, updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.Username, o.FullName, o.Role, o.PasswordHash, o.Active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOperatorNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM operators WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOperatorNotFound
	}
	return nil
}

func scanOperator(row pgx.Row) (*Operator, error) {
	var o Operator
	err := row.Scan(&o.ID, &o.Username, &o.FullName, &o.Role,
		&o.PasswordHash, &o.Active, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
