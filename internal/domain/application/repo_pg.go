package application

import (
	"context"
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

const appCols = `id, patient_id, clinic_name, complaint, diagnosis, status, created_at, updated_at`

// sortColumns whitelists sortable columns; anything else falls back to
// created_at.
var sortColumns = map[string]string{
	"created_at":  "created_at",
	"status":      "status",
	"clinic_name": "clinic_name",
}

func (r *repoPG) Create(ctx context.Context, a *Application) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO applications (id, patient_id, clinic_name, complaint, diagnosis, status)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.PatientID, a.ClinicName, a.Complaint, a.Diagnosis, a.Status,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Application, error) {
	var a Application
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+appCols+` FROM applications WHERE id = $1`, id,
	).Scan(&a.ID, &a.PatientID, &a.ClinicName, &a.Complaint, &a.Diagnosis, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Application, int, error) {
	where := ""
	args := []interface{}{}
	if f.Status != "" {
		where = " WHERE status = $1"
		args = append(args, f.Status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM applications`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol, ok := sortColumns[f.Sort]
	if !ok {
		sortCol = "created_at"
	}
	dir := "DESC"
	if f.Order == "asc" {
		dir = "ASC"
	}

	query := `SELECT ` + appCols + ` FROM applications` + where +
		fmt.Sprintf(" ORDER BY %s %s LIMIT $%d OFFSET $%d", sortCol, dir, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	apps, err := collectApps(rows)
	return apps, total, err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Application, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+appCols+` FROM applications WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectApps(rows)
}

func (r *repoPG) Update(ctx context.Context, a *Application) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE applications SET clinic_name=$2, complaint=$3, diagnosis=$4, status=$5, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.ClinicName, a.Complaint, a.Diagnosis, a.Status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

func collectApps(rows pgx.Rows) ([]*Application, error) {
	var apps []*Application
	for rows.Next() {
		var a Application
		if err := rows.Scan(&a.ID, &a.PatientID, &a.ClinicName, &a.Complaint, &a.Diagnosis, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		apps = append(apps, &a)
	}
	return apps, rows.Err()
}
