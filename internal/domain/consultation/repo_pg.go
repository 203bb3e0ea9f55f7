package consultation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/db"
)

const consultationCols = `id, professional_id, client_id, dependent_id, private_patient_id,
	service_id, location_id, value, scheduled_at, status, notes,
	cancelled_at, cancelled_by, cancel_reason, created_at, updated_at`

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type consultationRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &consultationRepoPG{pool: pool}
}

func (r *consultationRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *consultationRepoPG) Create(ctx context.Context, c *Consultation) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO consultations (id, professional_id, client_id, dependent_id, private_patient_id,
			service_id, location_id, value, scheduled_at, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		c.ID, c.ProfessionalID, c.ClientID, c.DependentID, c.PrivatePatientID,
		c.ServiceID, c.LocationID, c.Value, c.ScheduledAt, c.Status, c.Notes,
		c.CreatedAt, c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.New(apperr.NotFound, "referência de paciente ou serviço não encontrada")
		}
		return apperr.Wrap(apperr.Internal, "falha ao registrar a consulta", err)
	}
	return nil
}

func (r *consultationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+consultationCols+` FROM consultations WHERE id = $1`, id)
	c, err := scanConsultation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "consulta não encontrada")
		}
		return nil, apperr.Wrap(apperr.Internal, "falha ao consultar a consulta", err)
	}
	return c, nil
}

func (r *consultationRepoPG) UpdateNotes(ctx context.Context, id uuid.UUID, notes *string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE consultations SET notes = $2, updated_at = NOW() WHERE id = $1`, id, notes)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao atualizar a consulta", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "consulta não encontrada")
	}
	return nil
}

func (r *consultationRepoPG) UpdateStatus(ctx context.Context, c *Consultation) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE consultations
		SET status = $2, cancelled_at = $3, cancelled_by = $4, cancel_reason = $5, updated_at = NOW()
		WHERE id = $1`,
		c.ID, c.Status, c.CancelledAt, c.CancelledBy, c.CancelReason)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao atualizar o status da consulta", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "consulta não encontrada")
	}
	return nil
}

func (r *consultationRepoPG) Reschedule(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE consultations SET scheduled_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao reagendar a consulta", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "consulta não encontrada")
	}
	return nil
}

func (r *consultationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM consultations WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao excluir a consulta", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "consulta não encontrada")
	}
	return nil
}

func (r *consultationRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]Consultation, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	n := 0
	next := func(v any) string {
		args = append(args, v)
		n++
		return fmt.Sprintf("$%d", n)
	}
	if f.ProfessionalID != nil {
		where += " AND professional_id = " + next(*f.ProfessionalID)
	}
	if f.ClientID != nil {
		p := next(*f.ClientID)
		where += " AND (client_id = " + p +
			" OR dependent_id IN (SELECT id FROM dependents WHERE client_id = " + p + "))"
	}
	if f.Status != "" {
		where += " AND status = " + next(f.Status)
	}
	if f.From != nil {
		where += " AND scheduled_at >= " + next(*f.From)
	}
	if f.To != nil {
		where += " AND scheduled_at < " + next(*f.To)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM consultations `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "falha ao contar as consultas", err)
	}

	query := `SELECT ` + consultationCols + ` FROM consultations ` + where +
		` ORDER BY scheduled_at DESC LIMIT ` + next(limit) + ` OFFSET ` + next(offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "falha ao listar as consultas", err)
	}
	defer rows.Close()

	var out []Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, 0, apperr.Wrap(apperr.Internal, "falha ao ler a consulta", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "falha ao listar as consultas", err)
	}
	return out, total, nil
}

func (r *consultationRepoPG) ExistsAt(ctx context.Context, professionalID uuid.UUID, at time.Time, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM consultations
			WHERE professional_id = $1 AND scheduled_at = $2 AND status <> 'cancelled' AND id <> $3
		)`, professionalID, at, exclude).Scan(&exists)
	if err != nil {
		return false, apperr.Wrap(apperr.Internal, "falha ao verificar o horário", err)
	}
	return exists, nil
}

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	err := row.Scan(
		&c.ID, &c.ProfessionalID, &c.ClientID, &c.DependentID, &c.PrivatePatientID,
		&c.ServiceID, &c.LocationID, &c.Value, &c.ScheduledAt, &c.Status, &c.Notes,
		&c.CancelledAt, &c.CancelledBy, &c.CancelReason, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
