package affiliate

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

const referralCols = `id, affiliate_id, visitor_id, referral_code, metadata,
	user_id, converted, converted_at, created_at`

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type referralRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &referralRepoPG{pool: pool}
}

func (r *referralRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *referralRepoPG) Insert(ctx context.Context, ref *Referral) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO affiliate_referrals (id, affiliate_id, visitor_id, referral_code,
			metadata, user_id, converted, converted_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ref.ID, ref.AffiliateID, ref.VisitorID, ref.ReferralCode,
		ref.Metadata, ref.UserID, ref.Converted, ref.ConvertedAt, ref.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao registrar a indicação", err)
	}
	return nil
}

func (r *referralRepoPG) OpenByPair(ctx context.Context, visitorID string, affiliateID uuid.UUID) (*Referral, error) {
	return r.one(ctx, `
		SELECT `+referralCols+` FROM affiliate_referrals
		WHERE visitor_id = $1 AND affiliate_id = $2 AND user_id IS NULL
		ORDER BY created_at LIMIT 1`, visitorID, affiliateID)
}

func (r *referralRepoPG) EarliestByUserAgent(ctx context.Context, affiliateID uuid.UUID, userAgent string, since time.Time) (*Referral, error) {
	return r.one(ctx, `
		SELECT `+referralCols+` FROM affiliate_referrals
		WHERE affiliate_id = $1 AND metadata->>'user_agent' = $2 AND created_at >= $3
		ORDER BY created_at LIMIT 1`, affiliateID, userAgent, since)
}

func (r *referralRepoPG) LatestAnonymousByVisitor(ctx context.Context, visitorID string) (*Referral, error) {
	return r.one(ctx, `
		SELECT `+referralCols+` FROM affiliate_referrals
		WHERE visitor_id = $1 AND user_id IS NULL
		ORDER BY created_at DESC LIMIT 1`, visitorID)
}

func (r *referralRepoPG) LatestByVisitor(ctx context.Context, visitorID string) (*Referral, error) {
	return r.one(ctx, `
		SELECT `+referralCols+` FROM affiliate_referrals
		WHERE visitor_id = $1
		ORDER BY created_at DESC LIMIT 1`, visitorID)
}

func (r *referralRepoPG) ByUser(ctx context.Context, userID uuid.UUID) (*Referral, error) {
	return r.one(ctx, `
		SELECT `+referralCols+` FROM affiliate_referrals
		WHERE user_id = $1
		ORDER BY created_at LIMIT 1`, userID)
}

func (r *referralRepoPG) BindUser(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE affiliate_referrals SET user_id = $2 WHERE id = $1 AND user_id IS NULL`,
		id, userID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao vincular a indicação", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "indicação não encontrada ou já vinculada")
	}
	return nil
}

func (r *referralRepoPG) MarkConverted(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE affiliate_referrals SET converted = TRUE, converted_at = $2
		WHERE id = $1 AND NOT converted`, id, at)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao converter a indicação", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "indicação não encontrada ou já convertida")
	}
	return nil
}

func (r *referralRepoPG) ListByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]Referral, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+referralCols+` FROM affiliate_referrals
		WHERE affiliate_id = $1 ORDER BY created_at DESC`, affiliateID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "falha ao listar as indicações", err)
	}
	return collect(rows)
}

func (r *referralRepoPG) List(ctx context.Context, limit, offset int) ([]Referral, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM affiliate_referrals`).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "falha ao contar as indicações", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+referralCols+` FROM affiliate_referrals
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "falha ao listar as indicações", err)
	}
	out, err := collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *referralRepoPG) one(ctx context.Context, query string, args ...any) (*Referral, error) {
	ref, err := scanReferral(r.conn(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "indicação não encontrada")
		}
		return nil, apperr.Wrap(apperr.Internal, "falha ao consultar a indicação", err)
	}
	return ref, nil
}

func collect(rows pgx.Rows) ([]Referral, error) {
	defer rows.Close()
	var out []Referral
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "falha ao ler a indicação", err)
		}
		out = append(out, *ref)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "falha ao listar as indicações", err)
	}
	return out, nil
}

func scanReferral(row pgx.Row) (*Referral, error) {
	var ref Referral
	err := row.Scan(&ref.ID, &ref.AffiliateID, &ref.VisitorID, &ref.ReferralCode,
		&ref.Metadata, &ref.UserID, &ref.Converted, &ref.ConvertedAt, &ref.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}
