package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/db"
)

const appointmentCols = `id, professional_id, client_id, dependent_id, private_patient_id,
	service_id, location_id, date, time, status, notes, created_at, updated_at`

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type appointmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, professional_id, client_id, dependent_id, private_patient_id,
			service_id, location_id, date, time, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.ProfessionalID, a.ClientID, a.DependentID, a.PrivatePatientID,
		a.ServiceID, a.LocationID, a.Date, a.Time, a.Status, a.Notes, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return apperr.Wrap(apperr.SlotConflict, "o profissional já possui agendamento neste horário", err)
			case "23503":
				return apperr.Wrap(apperr.NotFound, "referência de paciente ou serviço não encontrada", err)
			}
		}
		return apperr.Wrap(apperr.Internal, "falha ao criar o agendamento", err)
	}
	return nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "agendamento não encontrado")
		}
		return nil, apperr.Wrap(apperr.Internal, "falha ao consultar o agendamento", err)
	}
	return a, nil
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments
		SET service_id = $2, location_id = $3, date = $4, time = $5, notes = $6, updated_at = NOW()
		WHERE id = $1`,
		a.ID, a.ServiceID, a.LocationID, a.Date, a.Time, a.Notes)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Wrap(apperr.SlotConflict, "o profissional já possui agendamento neste horário", err)
		}
		return apperr.Wrap(apperr.Internal, "falha ao atualizar o agendamento", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "agendamento não encontrado")
	}
	return nil
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao atualizar o status do agendamento", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "agendamento não encontrado")
	}
	return nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao excluir o agendamento", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "agendamento não encontrado")
	}
	return nil
}

func (r *appointmentRepoPG) ListByProfessional(ctx context.Context, professionalID uuid.UUID, from, to *time.Time) ([]Appointment, error) {
	query := `SELECT ` + appointmentCols + ` FROM appointments WHERE professional_id = $1`
	args := []any{professionalID}
	if from != nil {
		args = append(args, *from)
		query += ` AND date >= $2`
	}
	if to != nil {
		args = append(args, *to)
		if from != nil {
			query += ` AND date <= $3`
		} else {
			query += ` AND date <= $2`
		}
	}
	query += ` ORDER BY date, time`
	return r.list(ctx, query, args...)
}

func (r *appointmentRepoPG) ListForClient(ctx context.Context, clientID uuid.UUID) ([]Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentCols+` FROM appointments
		WHERE client_id = $1
			OR dependent_id IN (SELECT id FROM dependents WHERE client_id = $1)
		ORDER BY date, time`, clientID)
}

func (r *appointmentRepoPG) list(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "falha ao listar os agendamentos", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "falha ao ler o agendamento", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "falha ao listar os agendamentos", err)
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.ProfessionalID, &a.ClientID, &a.DependentID, &a.PrivatePatientID,
		&a.ServiceID, &a.LocationID, &a.Date, &a.Time, &a.Status, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const locationCols = `id, professional_id, name, address, city, is_default, created_at`

type locationRepoPG struct {
	pool *pgxpool.Pool
}

func NewLocationRepo(pool *pgxpool.Pool) LocationRepository {
	return &locationRepoPG{pool: pool}
}

func (r *locationRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *locationRepoPG) Create(ctx context.Context, l *AttendanceLocation) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO attendance_locations (id, professional_id, name, address, city, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.ID, l.ProfessionalID, l.Name, l.Address, l.City, l.IsDefault, l.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao criar o local de atendimento", err)
	}
	return nil
}

func (r *locationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*AttendanceLocation, error) {
	var l AttendanceLocation
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+locationCols+` FROM attendance_locations WHERE id = $1`, id).
		Scan(&l.ID, &l.ProfessionalID, &l.Name, &l.Address, &l.City, &l.IsDefault, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "local de atendimento não encontrado")
		}
		return nil, apperr.Wrap(apperr.Internal, "falha ao consultar o local de atendimento", err)
	}
	return &l, nil
}

func (r *locationRepoPG) ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]AttendanceLocation, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+locationCols+` FROM attendance_locations WHERE professional_id = $1 ORDER BY created_at`,
		professionalID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "falha ao listar os locais de atendimento", err)
	}
	defer rows.Close()

	var out []AttendanceLocation
	for rows.Next() {
		var l AttendanceLocation
		if err := rows.Scan(&l.ID, &l.ProfessionalID, &l.Name, &l.Address, &l.City, &l.IsDefault, &l.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "falha ao ler o local de atendimento", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "falha ao listar os locais de atendimento", err)
	}
	return out, nil
}

func (r *locationRepoPG) Update(ctx context.Context, l *AttendanceLocation) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE attendance_locations SET name = $2, address = $3, city = $4 WHERE id = $1`,
		l.ID, l.Name, l.Address, l.City)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao atualizar o local de atendimento", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "local de atendimento não encontrado")
	}
	return nil
}

func (r *locationRepoPG) ClearDefault(ctx context.Context, professionalID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE attendance_locations SET is_default = FALSE WHERE professional_id = $1`, professionalID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao limpar o local padrão", err)
	}
	return nil
}

func (r *locationRepoPG) SetDefault(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE attendance_locations SET is_default = TRUE WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao definir o local padrão", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "local de atendimento não encontrado")
	}
	return nil
}

func (r *locationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM attendance_locations WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao excluir o local de atendimento", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "local de atendimento não encontrado")
	}
	return nil
}

const accessCols = `id, professional_id, is_active, granted_by, granted_at, expires_at, reason`

type accessRepoPG struct {
	pool *pgxpool.Pool
}

func NewAccessRepo(pool *pgxpool.Pool) AccessRepository {
	return &accessRepoPG{pool: pool}
}

func (r *accessRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *accessRepoPG) Insert(ctx context.Context, g *SchedulingAccess) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO scheduling_access (id, professional_id, is_active, granted_by, granted_at, expires_at, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.ID, g.ProfessionalID, g.IsActive, g.GrantedBy, g.GrantedAt, g.ExpiresAt, g.Reason)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao registrar o acesso à agenda", err)
	}
	return nil
}

func (r *accessRepoPG) Deactivate(ctx context.Context, professionalID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE scheduling_access SET is_active = FALSE WHERE professional_id = $1`, professionalID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao revogar o acesso à agenda", err)
	}
	return nil
}

func (r *accessRepoPG) Latest(ctx context.Context, professionalID uuid.UUID) (*SchedulingAccess, error) {
	var g SchedulingAccess
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT `+accessCols+` FROM scheduling_access
		WHERE professional_id = $1 ORDER BY granted_at DESC LIMIT 1`, professionalID).
		Scan(&g.ID, &g.ProfessionalID, &g.IsActive, &g.GrantedBy, &g.GrantedAt, &g.ExpiresAt, &g.Reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "acesso à agenda não encontrado")
		}
		return nil, apperr.Wrap(apperr.Internal, "falha ao consultar o acesso à agenda", err)
	}
	return &g, nil
}
