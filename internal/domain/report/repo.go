package report

import (
	"context"

	"github.com/google/uuid"

	"github.com/convenio/convenio/pkg/money"
)

// Repository runs the aggregation queries. Every query excludes cancelled
// consultations except Cancellations, which selects only them.
type Repository interface {
	// ProfessionalAggregates returns per-professional revenue and count
	// with the professional's current percentage. Takes are computed by
	// the service.
	ProfessionalAggregates(ctx context.Context, r Range) ([]ProfessionalBreakdown, error)
	ServiceAggregates(ctx context.Context, r Range) ([]ServiceBreakdown, error)
	// RevenueItems lists the professional's consultations with patient and
	// service names resolved. OwedToClinic is computed by the service.
	RevenueItems(ctx context.Context, professionalID uuid.UUID, r Range) ([]RevenueItem, error)
	// ProfessionalTotals returns the convênio/private split for one
	// professional plus their current percentage.
	ProfessionalTotals(ctx context.Context, professionalID uuid.UUID, r Range) (convenioCount int, convenioRevenue money.Cents, privateCount int, privateRevenue money.Cents, percentage int, err error)
	// Cancellations lists cancelled consultations in the range. A nil
	// professionalID means every professional.
	Cancellations(ctx context.Context, professionalID *uuid.UUID, r Range) ([]Cancellation, error)
	ClientsByCity(ctx context.Context) ([]CityBucket, error)
	ProfessionalsByCity(ctx context.Context) ([]CityBucket, error)
}
