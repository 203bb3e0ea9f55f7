package report

import (
	"context"

	"github.com/google/uuid"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/auth"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ClinicRevenue totals the ledger across every professional, with
// per-professional and per-service breakdowns. The takes use each
// professional's current percentage, not the one in force when the
// consultation happened.
func (s *Service) ClinicRevenue(ctx context.Context, r Range) (*ClinicRevenue, error) {
	if err := r.Valid(); err != nil {
		return nil, err
	}
	byProf, err := s.repo.ProfessionalAggregates(ctx, r)
	if err != nil {
		return nil, err
	}
	byService, err := s.repo.ServiceAggregates(ctx, r)
	if err != nil {
		return nil, err
	}
	out := &ClinicRevenue{ByProfessional: byProf, ByService: byService}
	for i := range out.ByProfessional {
		b := &out.ByProfessional[i]
		b.ProfessionalTake, b.ClinicTake = b.Revenue.Split(b.Percentage)
		out.Total += b.Revenue
		out.Count += b.Count
	}
	return out, nil
}

// ProfessionalRevenue lists the professional's consultations in the range.
// Convênio consultations owe the clinic its share; private-pay ones owe
// nothing.
func (s *Service) ProfessionalRevenue(ctx context.Context, professionalID uuid.UUID, r Range) (*ProfessionalRevenue, error) {
	if err := r.Valid(); err != nil {
		return nil, err
	}
	items, err := s.repo.RevenueItems(ctx, professionalID, r)
	if err != nil {
		return nil, err
	}
	_, _, _, _, percentage, err := s.repo.ProfessionalTotals(ctx, professionalID, r)
	if err != nil {
		return nil, err
	}
	out := &ProfessionalRevenue{Items: items}
	for i := range out.Items {
		it := &out.Items[i]
		if it.Convenio {
			_, it.OwedToClinic = it.Value.Split(percentage)
		}
		out.Total += it.Value
		out.OwedToClinic += it.OwedToClinic
	}
	return out, nil
}

// ProfessionalDetail splits production into convênio and private-pay.
// AmountToPay is the clinic share of the convênio revenue only.
func (s *Service) ProfessionalDetail(ctx context.Context, professionalID uuid.UUID, r Range) (*ProfessionalDetail, error) {
	if err := r.Valid(); err != nil {
		return nil, err
	}
	convCount, convRevenue, privCount, privRevenue, percentage, err := s.repo.ProfessionalTotals(ctx, professionalID, r)
	if err != nil {
		return nil, err
	}
	_, amountToPay := convRevenue.Split(percentage)
	return &ProfessionalDetail{
		Percentage:      percentage,
		ConvenioCount:   convCount,
		ConvenioRevenue: convRevenue,
		PrivateCount:    privCount,
		PrivateRevenue:  privRevenue,
		AmountToPay:     amountToPay,
	}, nil
}

// Cancellations is role-scoped: admins see every professional, a
// professional only their own.
func (s *Service) Cancellations(ctx context.Context, callerID uuid.UUID, r Range) ([]Cancellation, error) {
	if err := r.Valid(); err != nil {
		return nil, err
	}
	switch auth.CurrentRoleFromContext(ctx) {
	case auth.RoleAdmin:
		return s.repo.Cancellations(ctx, nil, r)
	case auth.RoleProfessional:
		return s.repo.Cancellations(ctx, &callerID, r)
	default:
		return nil, apperr.New(apperr.Forbidden, "perfil sem acesso aos relatórios")
	}
}

func (s *Service) ClientsByCity(ctx context.Context) ([]CityBucket, error) {
	return s.repo.ClientsByCity(ctx)
}

func (s *Service) ProfessionalsByCity(ctx context.Context) ([]CityBucket, error) {
	return s.repo.ProfessionalsByCity(ctx)
}
