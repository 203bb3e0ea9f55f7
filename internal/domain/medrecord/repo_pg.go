package medrecord

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/db"
)

const recordCols = `id, professional_id, private_patient_id, chief_complaint, history,
	medications, allergies, examination, diagnosis, treatment_plan, notes,
	vital_signs, created_at, updated_at`

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type recordRepoPG struct {
	pool *pgxpool.Pool
}

func NewRecordRepo(pool *pgxpool.Pool) RecordRepository {
	return &recordRepoPG{pool: pool}
}

func (r *recordRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *recordRepoPG) Create(ctx context.Context, rec *MedicalRecord) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_records (id, professional_id, private_patient_id, chief_complaint,
			history, medications, allergies, examination, diagnosis, treatment_plan, notes,
			vital_signs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID, rec.ProfessionalID, rec.PrivatePatientID, rec.ChiefComplaint,
		rec.History, rec.Medications, rec.Allergies, rec.Examination, rec.Diagnosis,
		rec.TreatmentPlan, rec.Notes, rec.VitalSigns, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.New(apperr.NotFound, "paciente não encontrado")
		}
		return apperr.Wrap(apperr.Internal, "falha ao criar o prontuário", err)
	}
	return nil
}

func (r *recordRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM medical_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "prontuário não encontrado")
		}
		return nil, apperr.Wrap(apperr.Internal, "falha ao consultar o prontuário", err)
	}
	return rec, nil
}

func (r *recordRepoPG) ListByPatient(ctx context.Context, professionalID, patientID uuid.UUID) ([]MedicalRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+recordCols+` FROM medical_records
		WHERE professional_id = $1 AND private_patient_id = $2
		ORDER BY created_at DESC`, professionalID, patientID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "falha ao listar os prontuários", err)
	}
	defer rows.Close()

	var out []MedicalRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "falha ao ler o prontuário", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "falha ao listar os prontuários", err)
	}
	return out, nil
}

func (r *recordRepoPG) Update(ctx context.Context, rec *MedicalRecord) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medical_records
		SET chief_complaint = $2, history = $3, medications = $4, allergies = $5,
			examination = $6, diagnosis = $7, treatment_plan = $8, notes = $9,
			vital_signs = $10, updated_at = NOW()
		WHERE id = $1`,
		rec.ID, rec.ChiefComplaint, rec.History, rec.Medications, rec.Allergies,
		rec.Examination, rec.Diagnosis, rec.TreatmentPlan, rec.Notes, rec.VitalSigns)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao atualizar o prontuário", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "prontuário não encontrado")
	}
	return nil
}

func (r *recordRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medical_records WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao excluir o prontuário", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "prontuário não encontrado")
	}
	return nil
}

func scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var rec MedicalRecord
	err := row.Scan(
		&rec.ID, &rec.ProfessionalID, &rec.PrivatePatientID, &rec.ChiefComplaint,
		&rec.History, &rec.Medications, &rec.Allergies, &rec.Examination, &rec.Diagnosis,
		&rec.TreatmentPlan, &rec.Notes, &rec.VitalSigns, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

const documentCols = `id, professional_id, private_patient_id, record_id, title, kind,
	url, template_inputs, created_at`

type documentRepoPG struct {
	pool *pgxpool.Pool
}

func NewDocumentRepo(pool *pgxpool.Pool) DocumentRepository {
	return &documentRepoPG{pool: pool}
}

func (r *documentRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *documentRepoPG) Create(ctx context.Context, d *MedicalDocument) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_documents (id, professional_id, private_patient_id, record_id,
			title, kind, url, template_inputs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.ProfessionalID, d.PrivatePatientID, d.RecordID,
		d.Title, d.Kind, d.URL, d.TemplateInputs, d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.New(apperr.NotFound, "paciente ou prontuário não encontrado")
		}
		return apperr.Wrap(apperr.Internal, "falha ao registrar o documento", err)
	}
	return nil
}

func (r *documentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalDocument, error) {
	var d MedicalDocument
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+documentCols+` FROM medical_documents WHERE id = $1`, id).
		Scan(&d.ID, &d.ProfessionalID, &d.PrivatePatientID, &d.RecordID,
			&d.Title, &d.Kind, &d.URL, &d.TemplateInputs, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "documento não encontrado")
		}
		return nil, apperr.Wrap(apperr.Internal, "falha ao consultar o documento", err)
	}
	return &d, nil
}

func (r *documentRepoPG) ListByPatient(ctx context.Context, professionalID, patientID uuid.UUID) ([]MedicalDocument, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+documentCols+` FROM medical_documents
		WHERE professional_id = $1 AND private_patient_id = $2
		ORDER BY created_at DESC`, professionalID, patientID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "falha ao listar os documentos", err)
	}
	defer rows.Close()

	var out []MedicalDocument
	for rows.Next() {
		var d MedicalDocument
		if err := rows.Scan(&d.ID, &d.ProfessionalID, &d.PrivatePatientID, &d.RecordID,
			&d.Title, &d.Kind, &d.URL, &d.TemplateInputs, &d.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "falha ao ler o documento", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "falha ao listar os documentos", err)
	}
	return out, nil
}

func (r *documentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medical_documents WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao excluir o documento", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "documento não encontrado")
	}
	return nil
}
