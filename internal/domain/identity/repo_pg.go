package identity

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

type userRepoPG struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

func (r *userRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const userCols = `id, cpf, password_hash, name, email, phone, roles, birth_date,
	street, number, district, city, state, zip_code,
	subscription_status, subscription_expires_at,
	percentage, category_id, photo_url,
	affiliate_code, affiliate_id, referral_id,
	created_at, updated_at`

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (
			id, cpf, password_hash, name, email, phone, roles, birth_date,
			street, number, district, city, state, zip_code,
			subscription_status, subscription_expires_at,
			percentage, category_id, photo_url, affiliate_code,
			created_at, updated_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,
			$9,$10,$11,$12,$13,$14,
			$15,$16,
			$17,$18,$19,$20,
			$21,$22
		)`,
		u.ID, u.CPF, u.PasswordHash, u.Name, u.Email, u.Phone, u.Roles, u.BirthDate,
		u.Street, u.Number, u.District, u.City, u.State, u.ZipCode,
		u.SubscriptionStatus, u.SubscriptionExpiresAt,
		u.Percentage, u.CategoryID, u.PhotoURL, u.AffiliateCode,
		u.CreatedAt, u.UpdatedAt,
	)
	if _, ok := db.UniqueViolation(err); ok {
		return apperr.Wrap(apperr.DuplicateIdentifier, "CPF já cadastrado", err)
	}
	return err
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByCPF(ctx context.Context, cpf string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE cpf = $1`, cpf))
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET
			name = $2, email = $3, phone = $4, birth_date = $5,
			street = $6, number = $7, district = $8, city = $9, state = $10, zip_code = $11,
			percentage = $12, category_id = $13, affiliate_code = $14,
			updated_at = NOW()
		WHERE id = $1`,
		u.ID, u.Name, u.Email, u.Phone, u.BirthDate,
		u.Street, u.Number, u.District, u.City, u.State, u.ZipCode,
		u.Percentage, u.CategoryID, u.AffiliateCode,
	)
	if _, ok := db.UniqueViolation(err); ok {
		return apperr.Wrap(apperr.DuplicateIdentifier, "código de afiliado já em uso", err)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "usuário não encontrado")
	}
	return nil
}

func (r *userRepoPG) UpdateRoles(ctx context.Context, id uuid.UUID, roles []string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE users SET roles = $2, updated_at = NOW() WHERE id = $1`, id, roles)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "usuário não encontrado")
	}
	return nil
}

func (r *userRepoPG) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "usuário não encontrado")
	}
	return nil
}

func (r *userRepoPG) UpdatePhotoURL(ctx context.Context, id uuid.UUID, url string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE users SET photo_url = $2, updated_at = NOW() WHERE id = $1`, id, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "usuário não encontrado")
	}
	return nil
}

func (r *userRepoPG) SetSubscription(ctx context.Context, id uuid.UUID, status string, expiresAt *time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET subscription_status = $2, subscription_expires_at = $3, updated_at = NOW()
		WHERE id = $1`, id, status, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "usuário não encontrado")
	}
	return nil
}

func (r *userRepoPG) GetByAffiliateCode(ctx context.Context, code string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE affiliate_code = $1`, code))
}

func (r *userRepoPG) SetReferral(ctx context.Context, id, affiliateID, referralID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET affiliate_id = $2, referral_id = $3, updated_at = NOW()
		WHERE id = $1`, id, affiliateID, referralID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "usuário não encontrado")
	}
	return nil
}

func (r *userRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "usuário não encontrado")
	}
	return nil
}

func (r *userRepoPG) List(ctx context.Context, role string, limit, offset int) ([]*User, int, error) {
	where := ``
	args := []interface{}{limit, offset}
	if role != "" {
		where = `WHERE $3 = ANY(roles)`
		args = append(args, role)
	}

	var total int
	countArgs := args[2:]
	countWhere := where
	if role != "" {
		countWhere = `WHERE $1 = ANY(roles)`
	}
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users `+countWhere, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+userCols+` FROM users `+where+` ORDER BY name LIMIT $1 OFFSET $2`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *userRepoPG) CPFTaken(ctx context.Context, cpf string) (bool, error) {
	var taken bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE cpf = $1)
		    OR EXISTS (SELECT 1 FROM dependents WHERE cpf = $1)`, cpf).Scan(&taken)
	return taken, err
}

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID, &u.CPF, &u.PasswordHash, &u.Name, &u.Email, &u.Phone, &u.Roles, &u.BirthDate,
		&u.Street, &u.Number, &u.District, &u.City, &u.State, &u.ZipCode,
		&u.SubscriptionStatus, &u.SubscriptionExpiresAt,
		&u.Percentage, &u.CategoryID, &u.PhotoURL,
		&u.AffiliateCode, &u.AffiliateID, &u.ReferralID,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if db.IsNoRows(err) {
		return nil, apperr.New(apperr.NotFound, "usuário não encontrado")
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
