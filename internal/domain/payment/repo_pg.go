package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/db"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Per-flavor table and payer column. The three ledgers share every other
// column name.
var flavorTables = map[string]struct {
	table string
	payer string
}{
	FlavorSubscription: {"client_payments", "user_id"},
	FlavorDependent:    {"dependent_payments", "dependent_id"},
	FlavorProfessional: {"professional_payments", "professional_id"},
}

type paymentRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &paymentRepoPG{pool: pool}
}

func (r *paymentRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func ledger(flavor string) (table, payer string, err error) {
	t, ok := flavorTables[flavor]
	if !ok {
		return "", "", apperr.New(apperr.Internal, fmt.Sprintf("tipo de pagamento desconhecido: %q", flavor))
	}
	return t.table, t.payer, nil
}

func (r *paymentRepoPG) Insert(ctx context.Context, p *Payment) error {
	table, payer, err := ledger(p.Flavor)
	if err != nil {
		return err
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	if p.Status == "" {
		p.Status = StatusPending
	}
	_, err = r.conn(ctx).Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, %s, amount, external_reference, preference_id, gateway_payment_id, status, created_at, processed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`, table, payer),
		p.ID, p.PayerID, p.Amount, p.ExternalReference, p.PreferenceID, p.GatewayPaymentID, p.Status, p.CreatedAt, p.ProcessedAt)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao registrar o pagamento", err)
	}
	return nil
}

func (r *paymentRepoPG) one(ctx context.Context, flavor, where string, arg any) (*Payment, error) {
	table, payer, err := ledger(flavor)
	if err != nil {
		return nil, err
	}
	p := &Payment{Flavor: flavor}
	err = r.conn(ctx).QueryRow(ctx, fmt.Sprintf(
		`SELECT id, %s, amount, external_reference, preference_id, gateway_payment_id, status, created_at, processed_at
		 FROM %s WHERE %s ORDER BY created_at DESC LIMIT 1`, payer, table, where), arg).
		Scan(&p.ID, &p.PayerID, &p.Amount, &p.ExternalReference, &p.PreferenceID, &p.GatewayPaymentID, &p.Status, &p.CreatedAt, &p.ProcessedAt)
	if db.IsNoRows(err) {
		return nil, apperr.New(apperr.NotFound, "pagamento não encontrado")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "falha ao consultar o pagamento", err)
	}
	return p, nil
}

func (r *paymentRepoPG) ByExternalReference(ctx context.Context, flavor, ref string) (*Payment, error) {
	return r.one(ctx, flavor, "external_reference = $1", ref)
}

func (r *paymentRepoPG) ByGatewayPaymentID(ctx context.Context, flavor, gatewayPaymentID string) (*Payment, error) {
	return r.one(ctx, flavor, "gateway_payment_id = $1", gatewayPaymentID)
}

func (r *paymentRepoPG) mark(ctx context.Context, status, flavor, ref, gatewayPaymentID string, at time.Time) error {
	table, _, err := ledger(flavor)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET status = $2, gateway_payment_id = $3, processed_at = $4 WHERE external_reference = $1`, table),
		ref, status, gatewayPaymentID, at)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "falha ao atualizar o pagamento", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "pagamento não encontrado")
	}
	return nil
}

func (r *paymentRepoPG) MarkPaid(ctx context.Context, flavor, ref, gatewayPaymentID string, at time.Time) error {
	return r.mark(ctx, StatusPaid, flavor, ref, gatewayPaymentID, at)
}

func (r *paymentRepoPG) MarkFailed(ctx context.Context, flavor, ref, gatewayPaymentID string, at time.Time) error {
	return r.mark(ctx, StatusFailed, flavor, ref, gatewayPaymentID, at)
}

// unionSelect projects the three ledgers into one shape with a flavor tag.
const unionSelect = `
	SELECT id, user_id AS payer_id, amount, external_reference, preference_id, gateway_payment_id, status, created_at, processed_at,
	       'client_subscription' AS flavor
	FROM client_payments %[1]s
	UNION ALL
	SELECT dp.id, dp.dependent_id, dp.amount, dp.external_reference, dp.preference_id, dp.gateway_payment_id, dp.status, dp.created_at, dp.processed_at,
	       'dependent_activation'
	FROM dependent_payments dp %[2]s
	UNION ALL
	SELECT id, professional_id, amount, external_reference, preference_id, gateway_payment_id, status, created_at, processed_at,
	       'professional_remittance'
	FROM professional_payments %[3]s`

func (r *paymentRepoPG) ListByUser(ctx context.Context, userID uuid.UUID) ([]Payment, error) {
	query := fmt.Sprintf(unionSelect,
		"WHERE user_id = $1",
		"JOIN dependents d ON d.id = dp.dependent_id WHERE d.client_id = $1",
		"WHERE professional_id = $1") + " ORDER BY created_at DESC"
	rows, err := r.conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "falha ao listar os pagamentos", err)
	}
	defer rows.Close()
	return collect(rows)
}

func (r *paymentRepoPG) List(ctx context.Context, limit, offset int) ([]Payment, int, error) {
	base := fmt.Sprintf(unionSelect, "", "", "")
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		"SELECT COUNT(*) FROM ("+base+") all_payments").Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "falha ao contar os pagamentos", err)
	}
	rows, err := r.conn(ctx).Query(ctx,
		base+" ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "falha ao listar os pagamentos", err)
	}
	defer rows.Close()
	items, err := collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func collect(rows pgx.Rows) ([]Payment, error) {
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.PayerID, &p.Amount, &p.ExternalReference, &p.PreferenceID, &p.GatewayPaymentID, &p.Status, &p.CreatedAt, &p.ProcessedAt, &p.Flavor); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "falha ao ler o pagamento", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
