package report

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/pkg/money"
)

type reportRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &reportRepoPG{pool: pool}
}

// patientName resolves the consultation's patient across the three
// reference columns.
const patientName = `COALESCE(cu.name, d.name, pp.name)`

const patientJoins = `
	LEFT JOIN users cu ON cu.id = c.client_id
	LEFT JOIN dependents d ON d.id = c.dependent_id
	LEFT JOIN private_patients pp ON pp.id = c.private_patient_id`

func (r *reportRepoPG) ProfessionalAggregates(ctx context.Context, rg Range) ([]ProfessionalBreakdown, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.professional_id, u.name, u.percentage, COUNT(*), COALESCE(SUM(c.value), 0)
		FROM consultations c
		JOIN users u ON u.id = c.professional_id
		WHERE c.status <> 'cancelled' AND c.scheduled_at::date BETWEEN $1 AND $2
		GROUP BY c.professional_id, u.name, u.percentage
		ORDER BY SUM(c.value) DESC`, rg.Start, rg.End)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "falha ao agregar a receita por profissional", err)
	}
	defer rows.Close()

	var out []ProfessionalBreakdown
	for rows.Next() {
		var b ProfessionalBreakdown
		if err := rows.Scan(&b.ProfessionalID, &b.Name, &b.Percentage, &b.Count, &b.Revenue); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "falha ao ler a agregação", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *reportRepoPG) ServiceAggregates(ctx context.Context, rg Range) ([]ServiceBreakdown, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.service_id, s.name, COUNT(*), COALESCE(SUM(c.value), 0)
		FROM consultations c
		JOIN services s ON s.id = c.service_id
		WHERE c.status <> 'cancelled' AND c.scheduled_at::date BETWEEN $1 AND $2
		GROUP BY c.service_id, s.name
		ORDER BY SUM(c.value) DESC`, rg.Start, rg.End)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "falha ao agregar a receita por serviço", err)
	}
	defer rows.Close()

	var out []ServiceBreakdown
	for rows.Next() {
		var b ServiceBreakdown
		if err := rows.Scan(&b.ServiceID, &b.Name, &b.Count, &b.Revenue); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "falha ao ler a agregação", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *reportRepoPG) RevenueItems(ctx context.Context, professionalID uuid.UUID, rg Range) ([]RevenueItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.scheduled_at, `+patientName+`, s.name, c.value,
		       c.private_patient_id IS NULL
		FROM consultations c
		JOIN services s ON s.id = c.service_id`+patientJoins+`
		WHERE c.professional_id = $1 AND c.status <> 'cancelled'
		  AND c.scheduled_at::date BETWEEN $2 AND $3
		ORDER BY c.scheduled_at`, professionalID, rg.Start, rg.End)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "falha ao listar a receita do profissional", err)
	}
	defer rows.Close()

	var out []RevenueItem
	for rows.Next() {
		var it RevenueItem
		if err := rows.Scan(&it.ConsultationID, &it.ScheduledAt, &it.PatientName, &it.ServiceName, &it.Value, &it.Convenio); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "falha ao ler a receita", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *reportRepoPG) ProfessionalTotals(ctx context.Context, professionalID uuid.UUID, rg Range) (int, money.Cents, int, money.Cents, int, error) {
	var (
		convenioCount, privateCount, percentage int
		convenioRevenue, privateRevenue         money.Cents
	)
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE c.private_patient_id IS NULL),
			COALESCE(SUM(c.value) FILTER (WHERE c.private_patient_id IS NULL), 0),
			COUNT(*) FILTER (WHERE c.private_patient_id IS NOT NULL),
			COALESCE(SUM(c.value) FILTER (WHERE c.private_patient_id IS NOT NULL), 0),
			(SELECT percentage FROM users WHERE id = $1)
		FROM consultations c
		WHERE c.professional_id = $1 AND c.status <> 'cancelled'
		  AND c.scheduled_at::date BETWEEN $2 AND $3`,
		professionalID, rg.Start, rg.End).
		Scan(&convenioCount, &convenioRevenue, &privateCount, &privateRevenue, &percentage)
	if err != nil {
		return 0, 0, 0, 0, 0, apperr.Wrap(apperr.Internal, "falha ao totalizar a produção do profissional", err)
	}
	return convenioCount, convenioRevenue, privateCount, privateRevenue, percentage, nil
}

func (r *reportRepoPG) Cancellations(ctx context.Context, professionalID *uuid.UUID, rg Range) ([]Cancellation, error) {
	query := `
		SELECT c.id, pu.name, ` + patientName + `, s.name, al.name, c.value,
		       c.scheduled_at, c.cancelled_at, bu.name, c.cancel_reason
		FROM consultations c
		JOIN users pu ON pu.id = c.professional_id
		JOIN services s ON s.id = c.service_id
		LEFT JOIN attendance_locations al ON al.id = c.location_id
		LEFT JOIN users bu ON bu.id = c.cancelled_by` + patientJoins + `
		WHERE c.status = 'cancelled' AND c.scheduled_at::date BETWEEN $1 AND $2`
	args := []any{rg.Start, rg.End}
	if professionalID != nil {
		query += " AND c.professional_id = $3"
		args = append(args, *professionalID)
	}
	query += " ORDER BY c.cancelled_at DESC NULLS LAST"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "falha ao listar os cancelamentos", err)
	}
	defer rows.Close()

	var out []Cancellation
	for rows.Next() {
		var c Cancellation
		if err := rows.Scan(&c.ConsultationID, &c.ProfessionalName, &c.PatientName, &c.ServiceName,
			&c.LocationName, &c.Value, &c.ScheduledAt, &c.CancelledAt, &c.CancelledByName, &c.Reason); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "falha ao ler o cancelamento", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *reportRepoPG) byCity(ctx context.Context, query string) ([]CityBucket, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "falha ao agregar por cidade", err)
	}
	defer rows.Close()

	var (
		out     []CityBucket
		current *CityBucket
	)
	for rows.Next() {
		var (
			city, key string
			count     int
		)
		if err := rows.Scan(&city, &key, &count); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "falha ao ler a agregação por cidade", err)
		}
		if current == nil || current.City != city {
			out = append(out, CityBucket{City: city, Breakdown: map[string]int{}})
			current = &out[len(out)-1]
		}
		current.Breakdown[key] += count
		current.Total += count
	}
	return out, rows.Err()
}

func (r *reportRepoPG) ClientsByCity(ctx context.Context) ([]CityBucket, error) {
	return r.byCity(ctx, `
		SELECT u.city, u.subscription_status, COUNT(*)
		FROM users u
		WHERE 'client' = ANY(u.roles) AND u.city IS NOT NULL AND u.city <> ''
		GROUP BY u.city, u.subscription_status
		ORDER BY u.city`)
}

func (r *reportRepoPG) ProfessionalsByCity(ctx context.Context) ([]CityBucket, error) {
	return r.byCity(ctx, `
		SELECT u.city, COALESCE(sc.name, 'sem categoria'), COUNT(*)
		FROM users u
		LEFT JOIN service_categories sc ON sc.id = u.category_id
		WHERE 'professional' = ANY(u.roles) AND u.city IS NOT NULL AND u.city <> ''
		GROUP BY u.city, sc.name
		ORDER BY u.city`)
}
