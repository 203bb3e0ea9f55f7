package patients

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/db"
)

// -- Dependent Repository --

type dependentRepoPG struct {
	pool *pgxpool.Pool
}

func NewDependentRepo(pool *pgxpool.Pool) DependentRepository {
	return &dependentRepoPG{pool: pool}
}

func (r *dependentRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const dependentCols = `id, client_id, name, cpf, birth_date,
	subscription_status, subscription_expires_at, gateway_payment_id,
	created_at, updated_at`

func (r *dependentRepoPG) Create(ctx context.Context, d *Dependent) error {
	d.ID = uuid.New()
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO dependents (id, client_id, name, cpf, birth_date, subscription_status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		d.ID, d.ClientID, d.Name, d.CPF, d.BirthDate, d.SubscriptionStatus, d.CreatedAt, d.UpdatedAt,
	)
	if _, ok := db.UniqueViolation(err); ok {
		return apperr.Wrap(apperr.DuplicateIdentifier, "CPF já cadastrado", err)
	}
	return err
}

func (r *dependentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Dependent, error) {
	return scanDependent(r.conn(ctx).QueryRow(ctx,
		`SELECT `+dependentCols+` FROM dependents WHERE id = $1`, id))
}

func (r *dependentRepoPG) GetByCPF(ctx context.Context, cpf string) (*Dependent, error) {
	return scanDependent(r.conn(ctx).QueryRow(ctx,
		`SELECT `+dependentCols+` FROM dependents WHERE cpf = $1`, cpf))
}

func (r *dependentRepoPG) Update(ctx context.Context, d *Dependent) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE dependents SET name = $2, birth_date = $3, updated_at = NOW()
		WHERE id = $1`, d.ID, d.Name, d.BirthDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "dependente não encontrado")
	}
	return nil
}

func (r *dependentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM dependents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "dependente não encontrado")
	}
	return nil
}

func (r *dependentRepoPG) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*Dependent, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+dependentCols+` FROM dependents WHERE client_id = $1 ORDER BY name`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deps []*Dependent
	for rows.Next() {
		d, err := scanDependent(rows)
		if err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

func (r *dependentRepoPG) CountByClient(ctx context.Context, clientID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM dependents WHERE client_id = $1`, clientID).Scan(&n)
	return n, err
}

func (r *dependentRepoPG) SetSubscription(ctx context.Context, id uuid.UUID, status string, expiresAt *time.Time, gatewayPaymentID *string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE dependents SET subscription_status = $2, subscription_expires_at = $3,
			gateway_payment_id = COALESCE($4, gateway_payment_id), updated_at = NOW()
		WHERE id = $1`, id, status, expiresAt, gatewayPaymentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "dependente não encontrado")
	}
	return nil
}

func (r *dependentRepoPG) CPFTaken(ctx context.Context, cpf string) (bool, error) {
	var taken bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE cpf = $1)
		    OR EXISTS (SELECT 1 FROM dependents WHERE cpf = $1)`, cpf).Scan(&taken)
	return taken, err
}

func (r *dependentRepoPG) InUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var used bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM consultations WHERE dependent_id = $1)`, id).Scan(&used)
	return used, err
}

func scanDependent(row pgx.Row) (*Dependent, error) {
	d := &Dependent{}
	err := row.Scan(
		&d.ID, &d.ClientID, &d.Name, &d.CPF, &d.BirthDate,
		&d.SubscriptionStatus, &d.SubscriptionExpiresAt, &d.GatewayPaymentID,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if db.IsNoRows(err) {
		return nil, apperr.New(apperr.NotFound, "dependente não encontrado")
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// -- Private Patient Repository --

type privatePatientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPrivatePatientRepo(pool *pgxpool.Pool) PrivatePatientRepository {
	return &privatePatientRepoPG{pool: pool}
}

func (r *privatePatientRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const privatePatientCols = `id, professional_id, name, cpf, phone, email, birth_date, created_at, updated_at`

func (r *privatePatientRepoPG) Create(ctx context.Context, p *PrivatePatient) error {
	p.ID = uuid.New()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO private_patients (id, professional_id, name, cpf, phone, email, birth_date, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.ProfessionalID, p.Name, p.CPF, p.Phone, p.Email, p.BirthDate, p.CreatedAt, p.UpdatedAt,
	)
	if _, ok := db.UniqueViolation(err); ok {
		return apperr.Wrap(apperr.DuplicateIdentifier, "CPF já cadastrado para este profissional", err)
	}
	return err
}

func (r *privatePatientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PrivatePatient, error) {
	return scanPrivatePatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+privatePatientCols+` FROM private_patients WHERE id = $1`, id))
}

func (r *privatePatientRepoPG) Update(ctx context.Context, p *PrivatePatient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE private_patients SET name = $2, cpf = $3, phone = $4, email = $5, birth_date = $6, updated_at = NOW()
		WHERE id = $1`, p.ID, p.Name, p.CPF, p.Phone, p.Email, p.BirthDate)
	if _, ok := db.UniqueViolation(err); ok {
		return apperr.Wrap(apperr.DuplicateIdentifier, "CPF já cadastrado para este profissional", err)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "paciente não encontrado")
	}
	return nil
}

func (r *privatePatientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM private_patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "paciente não encontrado")
	}
	return nil
}

func (r *privatePatientRepoPG) ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*PrivatePatient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM private_patients WHERE professional_id = $1`, professionalID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+privatePatientCols+` FROM private_patients
		WHERE professional_id = $1 ORDER BY name LIMIT $2 OFFSET $3`,
		professionalID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*PrivatePatient
	for rows.Next() {
		p, err := scanPrivatePatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *privatePatientRepoPG) InUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var used bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM consultations WHERE private_patient_id = $1)`, id).Scan(&used)
	return used, err
}

func scanPrivatePatient(row pgx.Row) (*PrivatePatient, error) {
	p := &PrivatePatient{}
	err := row.Scan(
		&p.ID, &p.ProfessionalID, &p.Name, &p.CPF, &p.Phone, &p.Email, &p.BirthDate,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if db.IsNoRows(err) {
		return nil, apperr.New(apperr.NotFound, "paciente não encontrado")
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
