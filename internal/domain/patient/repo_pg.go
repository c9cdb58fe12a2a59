package patient

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

const patientCols = `id, name, tag_id, stage_id, source, created_by,
	passport, date_of_birth, gender, phone, email, complaints, previous_diagnosis,
	created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (
			id, name, tag_id, stage_id, source, created_by,
			passport, date_of_birth, gender, phone, email, complaints, previous_diagnosis
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.Name, p.TagID, p.StageID, p.Source, p.CreatedBy,
		p.Passport, p.DateOfBirth, p.Gender, p.Phone, p.Email, p.Complaints, p.PreviousDiagnosis,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	return p, err
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	n := 0
	if f.StageID != "" {
		n++
		where += fmt.Sprintf(" AND stage_id = $%d", n)
		args = append(args, f.StageID)
	}
	if f.TagID != "" {
		n++
		where += fmt.Sprintf(" AND tag_id = $%d", n)
		args = append(args, f.TagID)
	}
	if f.Search != "" {
		n++
		where += fmt.Sprintf(" AND (name ILIKE $%d OR phone ILIKE $%d)", n, n)
		args = append(args, "%"+f.Search+"%")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + patientCols + ` FROM patients` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	patients, err := collectPatients(rows)
	return patients, total, err
}

func (r *repoPG) ListAll(ctx context.Context) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET
			name=$2, source=$3, passport=$4, date_of_birth=$5, gender=$6,
			phone=$7, email=$8, complaints=$9, previous_diagnosis=$10, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Source, p.Passport, p.DateOfBirth, p.Gender,
		p.Phone, p.Email, p.Complaints, p.PreviousDiagnosis,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *repoPG) UpdateStage(ctx context.Context, id uuid.UUID, stageID string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET stage_id=$2, updated_at=NOW() WHERE id = $1`, id, stageID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *repoPG) UpdateTag(ctx context.Context, id uuid.UUID, tagID string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET tag_id=$2, updated_at=NOW() WHERE id = $1`, id, tagID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	// patient_history rows go with the patient via ON DELETE CASCADE.
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *repoPG) AddHistory(ctx context.Context, h *HistoryEntry) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_history (id, patient_id, date, author, text)
		VALUES ($1,$2,$3,$4,$5)`,
		h.ID, h.PatientID, h.Date, h.Author, h.Text,
	)
	return err
}

func (r *repoPG) ListHistory(ctx context.Context, patientID uuid.UUID) ([]*HistoryEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, date, author, text
		FROM patient_history WHERE patient_id = $1 ORDER BY date`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.ID, &h.PatientID, &h.Date, &h.Author, &h.Text); err != nil {
			return nil, err
		}
		history = append(history, &h)
	}
	return history, rows.Err()
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.Name, &p.TagID, &p.StageID, &p.Source, &p.CreatedBy,
		&p.Passport, &p.DateOfBirth, &p.Gender, &p.Phone, &p.Email,
		&p.Complaints, &p.PreviousDiagnosis, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPatients(rows pgx.Rows) ([]*Patient, error) {
	var patients []*Patient
	for rows.Next() {
		var p Patient
		err := rows.Scan(
			&p.ID, &p.Name, &p.TagID, &p.StageID, &p.Source, &p.CreatedBy,
			&p.Passport, &p.DateOfBirth, &p.Gender, &p.Phone, &p.Email,
			&p.Complaints, &p.PreviousDiagnosis, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		patients = append(patients, &p)
	}
	return patients, rows.Err()
}
